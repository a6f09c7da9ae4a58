package endpoint

import (
	"sync"

	"github.com/opendds-go/rtps/rtps/history"
	"github.com/opendds-go/rtps/rtps/proxy"
	"github.com/opendds-go/rtps/rtps/qos"
	"github.com/opendds-go/rtps/rtps/types"
	"github.com/opendds-go/rtps/rtps/wire"
)

// StatefulWriter matches a fixed set of remote readers and tracks the
// per-reader delivery state needed for reliable retransmission (§4.3.4).
type StatefulWriter struct {
	Identity
	mu      sync.Mutex
	cache   *history.WriterCache
	hbCount counter
	proxies map[types.GUID]*proxy.ReaderProxy
}

// NewStatefulWriter creates a writer with its own HistoryCache.
func NewStatefulWriter(id Identity) *StatefulWriter {
	return &StatefulWriter{
		Identity: id,
		cache:    history.NewWriterCache(id.Guid, id.Qos),
		proxies:  make(map[types.GUID]*proxy.ReaderProxy),
	}
}

// MatchReader adds a reader proxy; existing unacknowledged changes become
// Unsent for the newly matched reader (§4.3.4 "matched_reader_add").
func (w *StatefulWriter) MatchReader(remote types.GUID, unicast, multicast []types.Locator, reliable bool) *proxy.ReaderProxy {
	w.mu.Lock()
	defer w.mu.Unlock()
	rp := proxy.NewReaderProxy(remote, unicast, multicast, reliable)
	for _, c := range w.cache.Range(w.cache.MinSeqNum(), w.cache.MaxSeqNum()) {
		rp.AddChange(c.SequenceNumber)
	}
	w.proxies[remote] = rp
	return rp
}

// UnmatchReader drops a reader proxy (§4.3.4 "matched_reader_remove").
func (w *StatefulWriter) UnmatchReader(remote types.GUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.proxies, remote)
}

// Reader looks up a matched reader's proxy.
func (w *StatefulWriter) Reader(remote types.GUID) (*proxy.ReaderProxy, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rp, ok := w.proxies[remote]
	return rp, ok
}

// Readers returns every currently matched reader proxy.
func (w *StatefulWriter) Readers() []*proxy.ReaderProxy {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*proxy.ReaderProxy, 0, len(w.proxies))
	for _, rp := range w.proxies {
		out = append(out, rp)
	}
	return out
}

// NewChange allocates a new sample in the writer's history and marks it
// Unsent for every currently matched reader.
func (w *StatefulWriter) NewChange(kind history.ChangeKind, instance types.InstanceHandle, payload []byte) (*history.CacheChange, error) {
	c, err := w.cache.AddChange(kind, instance, payload)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	for _, rp := range w.proxies {
		rp.AddChange(c.SequenceNumber)
	}
	w.mu.Unlock()
	return c, nil
}

// DataFor builds the DATA submessage bytes for sn, for direct unicast to
// one reader's EntityId (used both for first transmission and
// retransmission in response to an AckNack).
func (w *StatefulWriter) DataFor(readerId types.EntityId, sn types.SequenceNumber) ([]byte, bool) {
	c, ok := w.cache.Get(sn)
	if !ok {
		return nil, false
	}
	d := wire.Data{
		ReaderId:          readerId,
		WriterId:          w.Guid.EntityId,
		WriterSN:          c.SequenceNumber,
		SerializedPayload: c.Payload,
	}
	return d.Encode(byteOrder), true
}

// PendingUnsent returns the next unsent sequence number for a reader, if
// any, marking it Underway so callers don't resend it concurrently.
func (w *StatefulWriter) PendingUnsent(remote types.GUID) (types.SequenceNumber, bool) {
	rp, ok := w.Reader(remote)
	if !ok {
		return 0, false
	}
	return rp.NextUnsent()
}

// Heartbeat builds a HEARTBEAT submessage reflecting the writer's current
// retained sequence number range (§4.3.4, periodic for Reliable writers).
func (w *StatefulWriter) Heartbeat(readerId types.EntityId, final bool) wire.Heartbeat {
	return wire.Heartbeat{
		ReaderId: readerId,
		WriterId: w.Guid.EntityId,
		FirstSN:  w.cache.MinSeqNum(),
		LastSN:   w.cache.MaxSeqNum(),
		Count:    w.hbCount.next(),
		Final:    final,
	}
}

// HandleAckNack folds an incoming AckNack into the sender's reader proxy:
// everything outside the bitmap up to the base is acknowledged, and every
// requested sequence number is queued for retransmission. An AckNack whose
// count does not exceed the last one processed for this reader is stale or
// duplicate and is dropped silently (§4.3.4).
func (w *StatefulWriter) HandleAckNack(remote types.GUID, an wire.AckNack) {
	rp, ok := w.Reader(remote)
	if !ok {
		return
	}
	if !rp.ReceivedAckNack(an.Count) {
		return
	}
	rp.AckedUpTo(an.ReaderSNState.Base - 1)
	var requested []types.SequenceNumber
	for sn := range an.ReaderSNState.Members {
		requested = append(requested, sn)
	}
	rp.RequestedChangesSet(requested)
}

// IsReliable reports whether this writer's QoS requires acknowledged
// delivery.
func (w *StatefulWriter) IsReliable() bool {
	return w.Qos.Reliability.Kind == qos.Reliable
}
