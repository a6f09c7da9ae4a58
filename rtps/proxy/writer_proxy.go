// Package proxy implements the matched-endpoint bookkeeping described in
// §4.3.3/§4.3.4: a WriterProxy tracks the remote writer a stateful reader
// has matched, and a ReaderProxy tracks the remote reader a stateful
// writer has matched.
package proxy

import (
	"sort"
	"sync"

	"github.com/opendds-go/rtps/rtps/types"
)

// ChangeFromWriterStatus is the per-change state a reader keeps about one
// sample it expects (or has received) from a matched writer (§4.3.3).
type ChangeFromWriterStatus int

const (
	Lost ChangeFromWriterStatus = iota
	Missing
	ReceivedChange
	Unknown
)

type changeFromWriter struct {
	status     ChangeFromWriterStatus
	isRelevant bool
}

// WriterProxy is the reader-side record of one matched remote writer: the
// highest sequence number seen, and the status of every change in
// [lowest, highest] that has not yet been fully resolved.
type WriterProxy struct {
	mu                    sync.Mutex
	RemoteWriter          types.GUID
	UnicastLocators       []types.Locator
	MulticastLocators     []types.Locator
	changes               map[types.SequenceNumber]*changeFromWriter
	maxAvailable          types.SequenceNumber
	highestHeartbeatCount uint32
}

// NewWriterProxy creates a proxy for a newly matched remote writer.
func NewWriterProxy(remote types.GUID, unicast, multicast []types.Locator) *WriterProxy {
	return &WriterProxy{
		RemoteWriter:      remote,
		UnicastLocators:   unicast,
		MulticastLocators: multicast,
		changes:           make(map[types.SequenceNumber]*changeFromWriter),
		maxAvailable:      types.SequenceNumberZero,
	}
}

// ReceivedChangeSet records that a DATA submessage for sn has arrived.
func (p *WriterProxy) ReceivedChangeSet(sn types.SequenceNumber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes[sn] = &changeFromWriter{status: ReceivedChange, isRelevant: true}
	if sn > p.maxAvailable {
		p.maxAvailable = sn
	}
}

// LostChangesUpTo marks every change below firstAvailableSeqNum that was
// still Missing/Unknown as Lost (heartbeat's first_sn advancing, §4.3.3).
func (p *WriterProxy) LostChangesUpTo(firstAvailableSeqNum types.SequenceNumber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for sn, c := range p.changes {
		if sn < firstAvailableSeqNum && c.status != ReceivedChange {
			c.status = Lost
		}
	}
}

// MissingChangesUpdate reconciles the known-missing set against a
// heartbeat's [firstSN, lastSN] range, marking any sn in range that this
// proxy has not already resolved as Missing (§4.3.3 Figure in spec).
func (p *WriterProxy) MissingChangesUpdate(firstSN, lastSN types.SequenceNumber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if lastSN > p.maxAvailable {
		p.maxAvailable = lastSN
	}
	for sn := firstSN; sn <= lastSN; sn++ {
		if _, ok := p.changes[sn]; !ok {
			p.changes[sn] = &changeFromWriter{status: Missing, isRelevant: true}
		}
	}
}

// Irrelevant marks a sequence number (covered by a GAP) as not relevant,
// so it is excluded from future AckNack requests without being "received".
func (p *WriterProxy) Irrelevant(sn types.SequenceNumber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes[sn] = &changeFromWriter{status: ReceivedChange, isRelevant: false}
	if sn > p.maxAvailable {
		p.maxAvailable = sn
	}
}

// MissingChanges returns the sorted sequence numbers still Missing.
func (p *WriterProxy) MissingChanges() []types.SequenceNumber {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []types.SequenceNumber
	for sn, c := range p.changes {
		if c.status == Missing {
			out = append(out, sn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AvailableChangeMax is the highest sequence number this proxy knows the
// writer has produced, used to build the AckNack SequenceNumberSet base.
func (p *WriterProxy) AvailableChangeMax() types.SequenceNumber {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxAvailable
}

// ReceivedHeartbeat reports whether count is newer than the last HEARTBEAT
// this proxy processed, recording it if so. A count at or below the last
// one seen is a stale or duplicate HEARTBEAT and must be ignored (§4.3.4).
func (p *WriterProxy) ReceivedHeartbeat(count uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if count <= p.highestHeartbeatCount {
		return false
	}
	p.highestHeartbeatCount = count
	return true
}
