package proxy

import (
	"sort"
	"sync"

	"github.com/opendds-go/rtps/rtps/types"
)

// ChangeForReaderStatus is the per-change state a stateful writer keeps
// about one sample relative to one matched reader (§4.3.4).
type ChangeForReaderStatus int

const (
	Unsent ChangeForReaderStatus = iota
	Unacknowledged
	Requested
	Acknowledged
	Underway
)

type changeForReader struct {
	status     ChangeForReaderStatus
	isRelevant bool
}

// ReaderProxy is the writer-side record of one matched remote reader: the
// per-change delivery status plus the reader's requested-but-not-yet-sent
// retransmission queue (§4.3.4).
type ReaderProxy struct {
	mu                  sync.Mutex
	RemoteReader        types.GUID
	UnicastLocators     []types.Locator
	MulticastLocators   []types.Locator
	IsReliable          bool
	changes             map[types.SequenceNumber]*changeForReader
	highestSent         types.SequenceNumber
	highestAckNackCount uint32
}

// NewReaderProxy creates a proxy for a newly matched remote reader.
func NewReaderProxy(remote types.GUID, unicast, multicast []types.Locator, reliable bool) *ReaderProxy {
	return &ReaderProxy{
		RemoteReader:      remote,
		UnicastLocators:   unicast,
		MulticastLocators: multicast,
		IsReliable:        reliable,
		changes:           make(map[types.SequenceNumber]*changeForReader),
	}
}

// AddChange records a newly added writer-history change as Unsent for
// this reader (§4.3.4: "a new change ... is Unsent" for every matched
// reader proxy).
func (p *ReaderProxy) AddChange(sn types.SequenceNumber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes[sn] = &changeForReader{status: Unsent, isRelevant: true}
}

// NextUnsent returns the lowest-numbered Unsent change, if any, and
// advances it to Underway (the sender is about to transmit it).
func (p *ReaderProxy) NextUnsent() (types.SequenceNumber, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var best types.SequenceNumber
	found := false
	for sn, c := range p.changes {
		if c.status == Unsent && (!found || sn < best) {
			best, found = sn, true
		}
	}
	if !found {
		return 0, false
	}
	p.changes[best].status = Underway
	return best, true
}

// ChangeSent marks a change Unacknowledged (reliable) once transmitted;
// best-effort readers never track acknowledgment so callers may drop the
// entry instead by calling Forget.
func (p *ReaderProxy) ChangeSent(sn types.SequenceNumber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.changes[sn]; ok {
		c.status = Unacknowledged
	}
	if sn > p.highestSent {
		p.highestSent = sn
	}
}

// AckedUpTo marks every change at or below sn Acknowledged, except one
// still Requested, per an AckNack whose SequenceNumberSet no longer
// contains them (§4.3.4).
func (p *ReaderProxy) AckedUpTo(sn types.SequenceNumber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for n, c := range p.changes {
		if n <= sn && c.status != Requested {
			c.status = Acknowledged
		}
	}
}

// ReceivedAckNack reports whether count is newer than the last ACKNACK
// this proxy processed, recording it if so. A count at or below the last
// one seen is a stale or duplicate ACKNACK and must be ignored (§4.3.4).
func (p *ReaderProxy) ReceivedAckNack(count uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if count <= p.highestAckNackCount {
		return false
	}
	p.highestAckNackCount = count
	return true
}

// RequestedChangesSet marks the given sequence numbers Requested, coming
// from an AckNack's readerSNState bitmap (§4.3.4: the reader wants them
// retransmitted).
func (p *ReaderProxy) RequestedChangesSet(sns []types.SequenceNumber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, sn := range sns {
		if c, ok := p.changes[sn]; ok {
			c.status = Requested
		} else {
			p.changes[sn] = &changeForReader{status: Requested, isRelevant: true}
		}
	}
}

// RequestedChanges returns the sorted sequence numbers currently
// Requested, for the next retransmission batch.
func (p *ReaderProxy) RequestedChanges() []types.SequenceNumber {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []types.SequenceNumber
	for sn, c := range p.changes {
		if c.status == Requested {
			out = append(out, sn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MarkRepairSent transitions a Requested change back to Unacknowledged
// once its retransmission has been sent,
// so a subsequent ACKNACK's base can carry it to Acknowledged the same
// way a first transmission does (§4.3.4 "Repairing ... marking
// Unacknowledged").
func (p *ReaderProxy) MarkRepairSent(sn types.SequenceNumber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.changes[sn]; ok {
		c.status = Unacknowledged
	}
}

// UnacknowledgedChanges reports whether any change is still outstanding
// (Unsent, Unacknowledged, Requested, or Underway), used to decide
// whether a reliable writer may go idle (§4.3.4).
func (p *ReaderProxy) UnacknowledgedChanges() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.changes {
		if c.status != Acknowledged {
			return true
		}
	}
	return false
}

// Forget drops bookkeeping for a sequence number entirely, used once a
// GAP has been sent for a requested change the writer no longer holds.
func (p *ReaderProxy) Forget(sn types.SequenceNumber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.changes, sn)
}

// HighestSent is the highest sequence number transmitted to this reader.
func (p *ReaderProxy) HighestSent() types.SequenceNumber {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.highestSent
}
