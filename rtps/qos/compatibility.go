package qos

import "github.com/opendds-go/rtps/rtps/types"

// IncompatiblePolicyId names the first policy found incompatible, so
// listeners can report last_policy_id the way real DDS implementations do
// (§8 scenario 4 expects RELIABILITY there). The values are a local
// enumeration, not wire PIDs.
type IncompatiblePolicyId int

const (
	PolicyNone IncompatiblePolicyId = iota
	PolicyReliability
	PolicyDurability
	PolicyDeadline
	PolicyOwnership
	PolicyLiveliness
	PolicyDestinationOrder
)

// CompatibilityResult reports whether a reader/writer pair may match, and
// if not, the first incompatible policy encountered — checked in the
// fixed order the spec lists them (§4.3.5): reliability, durability,
// deadline, ownership, liveliness, destination-order.
type CompatibilityResult struct {
	Compatible bool
	FirstBad   IncompatiblePolicyId
}

func durationNanos(d types.Duration) int64 {
	return int64(d.StdDuration())
}

// CheckCompatibility applies the §4.3.5 compatibility matrix between a
// reader's requested QoS and a writer's offered QoS, whichever side is
// local. The rules are directional: the reader's policies are always the
// first argument.
func CheckCompatibility(reader, writer Policies) CompatibilityResult {
	if reader.Reliability.Kind == Reliable && writer.Reliability.Kind != Reliable {
		return CompatibilityResult{FirstBad: PolicyReliability}
	}
	if reader.Durability.Kind > writer.Durability.Kind {
		return CompatibilityResult{FirstBad: PolicyDurability}
	}
	// reader.period >= writer.period is required; a shorter reader deadline
	// than the writer can guarantee is incompatible.
	if durationNanos(reader.Deadline.Period) < durationNanos(writer.Deadline.Period) {
		return CompatibilityResult{FirstBad: PolicyDeadline}
	}
	if reader.Ownership.Kind != writer.Ownership.Kind {
		return CompatibilityResult{FirstBad: PolicyOwnership}
	}
	if reader.Liveliness.Kind > writer.Liveliness.Kind {
		return CompatibilityResult{FirstBad: PolicyLiveliness}
	}
	if durationNanos(writer.Liveliness.LeaseDuration) > durationNanos(reader.Liveliness.LeaseDuration) {
		return CompatibilityResult{FirstBad: PolicyLiveliness}
	}
	if reader.DestinationOrder.Kind > writer.DestinationOrder.Kind {
		return CompatibilityResult{FirstBad: PolicyDestinationOrder}
	}
	return CompatibilityResult{Compatible: true}
}
