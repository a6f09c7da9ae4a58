// Package qos defines the QoS policy block attached to every endpoint and
// the compatibility rules §4.3.5 uses to decide whether a reader and
// writer may be matched.
package qos

import (
	"github.com/opendds-go/rtps/internal/rtpserrors"
	"github.com/opendds-go/rtps/rtps/types"
)

// ReliabilityKind selects best-effort or reliable delivery.
type ReliabilityKind int

const (
	BestEffort ReliabilityKind = iota
	Reliable
)

// DurabilityKind orders durability from weakest to strongest; reader.kind
// <= writer.kind is required for compatibility (§4.3.5).
type DurabilityKind int

const (
	Volatile DurabilityKind = iota
	TransientLocal
	Transient
	Persistent
)

// HistoryKind selects the retention policy of a HistoryCache (§3).
type HistoryKind int

const (
	KeepLast HistoryKind = iota
	KeepAll
)

// OwnershipKind selects shared or exclusive instance ownership.
type OwnershipKind int

const (
	SharedOwnership OwnershipKind = iota
	ExclusiveOwnership
)

// LivelinessKind selects how liveliness is asserted.
type LivelinessKind int

const (
	Automatic LivelinessKind = iota
	ManualByParticipant
	ManualByTopic
)

// DestinationOrderKind selects sample ordering at the reader.
type DestinationOrderKind int

const (
	ByReceptionTimestamp DestinationOrderKind = iota
	BySourceTimestamp
)

// ReliabilityPolicy configures reliable delivery timing.
type ReliabilityPolicy struct {
	Kind            ReliabilityKind
	MaxBlockingTime types.Duration
}

// DurabilityPolicy configures sample retention across a writer restart.
type DurabilityPolicy struct {
	Kind DurabilityKind
}

// DeadlinePolicy bounds the period between samples of one instance.
type DeadlinePolicy struct {
	Period types.Duration
}

// HistoryPolicy configures per-instance retention in the HistoryCache.
type HistoryPolicy struct {
	Kind  HistoryKind
	Depth int
}

// ResourceLimitsPolicy bounds cache growth (§3 HistoryCache).
type ResourceLimitsPolicy struct {
	MaxSamples            int
	MaxInstances          int
	MaxSamplesPerInstance int
}

// LivelinessPolicy configures the liveliness protocol.
type LivelinessPolicy struct {
	Kind          LivelinessKind
	LeaseDuration types.Duration
}

// OwnershipPolicy configures ownership strength.
type OwnershipPolicy struct {
	Kind OwnershipKind
}

// DestinationOrderPolicy configures sample ordering.
type DestinationOrderPolicy struct {
	Kind DestinationOrderKind
}

// LifespanPolicy bounds how long a sample remains valid in a cache.
type LifespanPolicy struct {
	Duration types.Duration
}

// Unlimited marks a resource-limit field as having no bound.
const Unlimited = -1

// Policies bundles every policy attached to an endpoint.
type Policies struct {
	Reliability      ReliabilityPolicy
	Durability       DurabilityPolicy
	Deadline         DeadlinePolicy
	History          HistoryPolicy
	ResourceLimits   ResourceLimitsPolicy
	Liveliness       LivelinessPolicy
	Ownership        OwnershipPolicy
	DestinationOrder DestinationOrderPolicy
	Lifespan         LifespanPolicy
}

// Default returns the OMG DDS default QoS: best-effort, volatile,
// keep-last(1), unlimited resources, automatic liveliness.
func Default() Policies {
	return Policies{
		Reliability:    ReliabilityPolicy{Kind: BestEffort},
		Durability:     DurabilityPolicy{Kind: Volatile},
		Deadline:       DeadlinePolicy{Period: types.DurationInfinite},
		History:        HistoryPolicy{Kind: KeepLast, Depth: 1},
		ResourceLimits: ResourceLimitsPolicy{MaxSamples: Unlimited, MaxInstances: Unlimited, MaxSamplesPerInstance: Unlimited},
		Liveliness:     LivelinessPolicy{Kind: Automatic, LeaseDuration: types.DurationInfinite},
		Lifespan:       LifespanPolicy{Duration: types.DurationInfinite},
	}
}

// Validate checks internal consistency (§7 InconsistentPolicy), e.g. a
// per-instance depth that exceeds the overall per-instance cap.
func (p Policies) Validate() error {
	if p.ResourceLimits.MaxSamplesPerInstance != Unlimited &&
		p.ResourceLimits.MaxSamples != Unlimited &&
		p.ResourceLimits.MaxSamplesPerInstance > p.ResourceLimits.MaxSamples {
		return rtpserrors.New(rtpserrors.InconsistentPolicy, "max_samples_per_instance exceeds max_samples")
	}
	if p.History.Kind == KeepLast &&
		p.ResourceLimits.MaxSamplesPerInstance != Unlimited &&
		p.History.Depth > p.ResourceLimits.MaxSamplesPerInstance {
		return rtpserrors.New(rtpserrors.InconsistentPolicy, "history.depth exceeds max_samples_per_instance")
	}
	return nil
}
