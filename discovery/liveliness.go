package discovery

import (
	"time"

	"github.com/opendds-go/rtps/rtps/qos"
	"github.com/opendds-go/rtps/rtps/types"
)

// LivelinessListener receives the status changes §6 names but never wires
// into a concrete component elsewhere in the spec. LivelinessMonitor.Tick
// calls OnLivelinessChanged; nothing in this module calls
// OnOfferedIncompatibleQos.
type LivelinessListener interface {
	OnLivelinessChanged(writer types.GUID, alive bool)
	OnOfferedIncompatibleQos(writer types.GUID, policy qos.IncompatiblePolicyId)
}

// ManualAssertion tracks MANUAL_BY_PARTICIPANT/MANUAL_BY_TOPIC liveliness
// for one local writer: the application must call Assert within the
// writer's lease duration or the writer is reported not-alive (§4.3.5).
type ManualAssertion struct {
	Writer     types.GUID
	Lease      types.Duration
	lastAssert time.Time
}

// NewManualAssertion creates a tracker starting alive as of now.
func NewManualAssertion(writer types.GUID, lease types.Duration, now time.Time) *ManualAssertion {
	return &ManualAssertion{Writer: writer, Lease: lease, lastAssert: now}
}

// Assert records a liveliness assertion at now.
func (m *ManualAssertion) Assert(now time.Time) {
	m.lastAssert = now
}

// Alive reports whether the writer is still within its lease as of now.
func (m *ManualAssertion) Alive(now time.Time) bool {
	return now.Sub(m.lastAssert) <= m.Lease.StdDuration()
}

// LivelinessMonitor periodically checks every tracked manual assertion,
// notifying listener of any transition, and purges SPDP-discovered
// participants whose lease has expired (§4.6 "Failure semantics"); a
// purged participant is reported through SPDP's own lost callback, not
// through listener.
type LivelinessMonitor struct {
	spdp     *SPDP
	manual   map[types.GUID]*ManualAssertion
	wasAlive map[types.GUID]bool
	listener LivelinessListener
}

// NewLivelinessMonitor binds a monitor to an SPDP instance for
// participant-level expiry and an optional listener for status changes.
func NewLivelinessMonitor(spdp *SPDP, listener LivelinessListener) *LivelinessMonitor {
	return &LivelinessMonitor{
		spdp:     spdp,
		manual:   make(map[types.GUID]*ManualAssertion),
		wasAlive: make(map[types.GUID]bool),
		listener: listener,
	}
}

// TrackManual registers a local writer using manual liveliness for
// per-tick alive/not-alive evaluation.
func (m *LivelinessMonitor) TrackManual(a *ManualAssertion) {
	m.manual[a.Writer] = a
	m.wasAlive[a.Writer] = true
}

// Tick evaluates every tracked writer plus the SPDP lease table as of
// now, firing OnLivelinessChanged for any writer whose alive state
// flipped since the previous Tick.
func (m *LivelinessMonitor) Tick(now time.Time) {
	m.spdp.PurgeExpired(now)
	for guid, a := range m.manual {
		alive := a.Alive(now)
		if m.wasAlive[guid] != alive {
			m.wasAlive[guid] = alive
			if m.listener != nil {
				m.listener.OnLivelinessChanged(guid, alive)
			}
		}
	}
}
