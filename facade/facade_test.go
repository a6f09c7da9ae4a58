package facade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opendds-go/rtps/config"
	"github.com/opendds-go/rtps/internal/rtpserrors"
	"github.com/opendds-go/rtps/registry"
	"github.com/opendds-go/rtps/rtps/history"
	"github.com/opendds-go/rtps/rtps/qos"
	"github.com/opendds-go/rtps/rtps/types"
)

func newTestParticipant(t *testing.T) *DomainParticipant {
	t.Helper()
	cfg := config.Default()
	cfg.Transport.UnicastPort = 0
	dp, err := NewDomainParticipant(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dp.Close() })
	return dp
}

func TestCreateDataWriterRegistersEndpoint(t *testing.T) {
	dp := newTestParticipant(t)
	pub := dp.CreatePublisher(qos.Default())

	dw, err := pub.CreateDataWriter("Temperature", "TemperatureSample", qos.Default())
	require.NoError(t, err)
	require.NotNil(t, dw)

	candidates := dp.Registry().EndpointsForTopic("Temperature")
	require.Len(t, candidates, 1)
	require.False(t, candidates[0].IsReader)
}

func TestCreateDataReaderRegistersEndpointAndIsMatchCandidate(t *testing.T) {
	dp := newTestParticipant(t)
	pub := dp.CreatePublisher(qos.Default())
	sub := dp.CreateSubscriber(qos.Default())

	_, err := pub.CreateDataWriter("Temperature", "TemperatureSample", qos.Default())
	require.NoError(t, err)
	_, err = sub.CreateDataReader("Temperature", "TemperatureSample", qos.Default(), nil)
	require.NoError(t, err)

	var writerRec *registry.EndpointRecord
	for _, rec := range dp.Registry().EndpointsForTopic("Temperature") {
		if !rec.IsReader {
			writerRec = rec
		}
	}
	require.NotNil(t, writerRec)

	candidates := dp.Registry().MatchCandidates(writerRec)
	require.Len(t, candidates, 1)
	require.True(t, candidates[0].IsReader)
}

func TestDataWriterMatchReaderAndDataReaderMatchWriter(t *testing.T) {
	dp := newTestParticipant(t)
	pub := dp.CreatePublisher(qos.Default())
	sub := dp.CreateSubscriber(qos.Default())

	dw, err := pub.CreateDataWriter("Temperature", "TemperatureSample", qos.Default())
	require.NoError(t, err)
	dr, err := sub.CreateDataReader("Temperature", "TemperatureSample", qos.Default(), nil)
	require.NoError(t, err)

	remotePrefix := types.GuidPrefix{9, 9, 9}
	remoteReaderGuid := types.NewGUID(remotePrefix, types.EntityIdFromBytes([4]byte{0, 0, 5, 0x07}))
	remoteWriterGuid := types.NewGUID(remotePrefix, types.EntityIdFromBytes([4]byte{0, 0, 6, 0x02}))

	dw.MatchReader(remoteReaderGuid, nil, nil, true)
	dr.MatchWriter(remoteWriterGuid, nil, nil)
}

func TestDataWriterWriteAllocatesAliveChange(t *testing.T) {
	dp := newTestParticipant(t)
	pub := dp.CreatePublisher(qos.Default())

	dw, err := pub.CreateDataWriter("Temperature", "TemperatureSample", qos.Default())
	require.NoError(t, err)

	instance := dp.Registry().NextUserInstanceHandle()
	change, err := dw.Write(instance, []byte("23.5C"))
	require.NoError(t, err)
	require.Equal(t, history.Alive, change.Kind)
}

func TestWaitForAcknowledgmentsRequiresMatchedReliableReader(t *testing.T) {
	dp := newTestParticipant(t)
	pub := dp.CreatePublisher(qos.Default())

	p := qos.Default()
	p.Reliability.Kind = qos.Reliable
	dw, err := pub.CreateDataWriter("Temperature", "TemperatureSample", p)
	require.NoError(t, err)

	err = dw.WaitForAcknowledgments(10 * time.Millisecond)
	require.True(t, rtpserrors.Is(err, rtpserrors.PreconditionNotMet))
}

func TestWaitForAcknowledgmentsReturnsOnceAcked(t *testing.T) {
	dp := newTestParticipant(t)
	pub := dp.CreatePublisher(qos.Default())

	p := qos.Default()
	p.Reliability.Kind = qos.Reliable
	dw, err := pub.CreateDataWriter("Temperature", "TemperatureSample", p)
	require.NoError(t, err)

	remote := types.NewGUID(types.GuidPrefix{9, 9, 9}, types.EntityIdFromBytes([4]byte{0, 0, 5, 0x07}))
	loc := types.NewUDPv4Locator([]byte{10, 0, 0, 5}, 7414)
	dw.MatchReader(remote, []types.Locator{loc}, nil, true)

	c, err := dw.Write(types.InstanceHandleNil, []byte("23.5C"))
	require.NoError(t, err)
	require.False(t, dw.IsAckedByAll())

	rp, ok := dw.writer.Reader(remote)
	require.True(t, ok)
	rp.ChangeSent(c.SequenceNumber)
	rp.AckedUpTo(c.SequenceNumber)

	require.NoError(t, dw.WaitForAcknowledgments(10*time.Millisecond))
}
