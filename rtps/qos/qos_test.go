package qos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opendds-go/rtps/rtps/types"
)

func TestCompatibilityReliabilityMismatch(t *testing.T) {
	reader := Default()
	reader.Reliability.Kind = Reliable
	reader.History = HistoryPolicy{Kind: KeepAll}
	writer := Default() // BestEffort

	res := CheckCompatibility(reader, writer)
	require.False(t, res.Compatible)
	require.Equal(t, PolicyReliability, res.FirstBad)
}

func TestCompatibilityDefaultsMatch(t *testing.T) {
	res := CheckCompatibility(Default(), Default())
	require.True(t, res.Compatible)
}

func TestCompatibilityDeadline(t *testing.T) {
	reader := Default()
	reader.Deadline.Period = types.FromStdDuration(time.Second)
	writer := Default()
	writer.Deadline.Period = types.FromStdDuration(2 * time.Second)

	res := CheckCompatibility(reader, writer)
	require.False(t, res.Compatible)
	require.Equal(t, PolicyDeadline, res.FirstBad)
}

func TestValidateInconsistentPolicy(t *testing.T) {
	p := Default()
	p.ResourceLimits.MaxSamples = 5
	p.ResourceLimits.MaxSamplesPerInstance = 10
	require.Error(t, p.Validate())
}
