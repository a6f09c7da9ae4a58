package endpoint

import (
	"sync"

	"github.com/opendds-go/rtps/rtps/history"
	"github.com/opendds-go/rtps/rtps/proxy"
	"github.com/opendds-go/rtps/rtps/types"
	"github.com/opendds-go/rtps/rtps/wire"
)

// StatefulReader matches a fixed set of remote writers and tracks a
// WriterProxy per writer so it can detect gaps and solicit
// retransmission for reliable endpoints (§4.3.4).
type StatefulReader struct {
	Identity
	mu      sync.Mutex
	cache   *history.ReaderCache
	anCount counter
	proxies map[types.GUID]*proxy.WriterProxy
}

// NewStatefulReader creates a reader with its own HistoryCache.
func NewStatefulReader(id Identity) *StatefulReader {
	return &StatefulReader{
		Identity: id,
		cache:    history.NewReaderCache(id.Qos),
		proxies:  make(map[types.GUID]*proxy.WriterProxy),
	}
}

// Cache exposes the reader's HistoryCache for Read/Take.
func (r *StatefulReader) Cache() *history.ReaderCache {
	return r.cache
}

// MatchWriter adds a writer proxy (§4.3.4 "matched_writer_add").
func (r *StatefulReader) MatchWriter(remote types.GUID, unicast, multicast []types.Locator) *proxy.WriterProxy {
	r.mu.Lock()
	defer r.mu.Unlock()
	wp := proxy.NewWriterProxy(remote, unicast, multicast)
	r.proxies[remote] = wp
	return wp
}

// UnmatchWriter drops a writer proxy (§4.3.4 "matched_writer_remove").
func (r *StatefulReader) UnmatchWriter(remote types.GUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.proxies, remote)
}

// Writer looks up a matched writer's proxy.
func (r *StatefulReader) Writer(remote types.GUID) (*proxy.WriterProxy, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wp, ok := r.proxies[remote]
	return wp, ok
}

// HandleData folds an incoming DATA submessage into the HistoryCache and
// marks the sample received on the sender's proxy.
func (r *StatefulReader) HandleData(writer types.GUID, d wire.Data, instance types.InstanceHandle) (bool, error) {
	kind := history.Alive
	if d.InlineQos != nil {
		if p, ok := d.InlineQos.Get(wire.PIDStatusInfo); ok && len(p.Value) == 4 {
			kind = statusInfoKind(p.Value)
		}
	}
	c := &history.CacheChange{
		Kind:           kind,
		WriterGuid:     writer,
		SequenceNumber: d.WriterSN,
		InstanceHandle: instance,
		Payload:        d.SerializedPayload,
	}
	added, err := r.cache.AddChange(c)
	if wp, ok := r.Writer(writer); ok {
		wp.ReceivedChangeSet(d.WriterSN)
	}
	return added, err
}

// HandleGap marks every sequence number in [gapStart, gapList.base) plus
// every member of gapList as not relevant (§4.3.4: writer has no data for
// these, they must never be requested again).
func (r *StatefulReader) HandleGap(writer types.GUID, g wire.Gap) {
	wp, ok := r.Writer(writer)
	if !ok {
		return
	}
	for sn := g.GapStart; sn < g.GapList.Base; sn++ {
		wp.Irrelevant(sn)
	}
	for sn := range g.GapList.Members {
		wp.Irrelevant(sn)
	}
}

// HandleHeartbeat reconciles a matched writer's [firstSN, lastSN] range
// against the proxy's known state and returns the AckNack to send back,
// requesting any newly discovered missing changes (§4.3.4). A HEARTBEAT
// whose count does not exceed the last one processed is stale or
// duplicate and is dropped silently (ok is false).
func (r *StatefulReader) HandleHeartbeat(writer types.GUID, hb wire.Heartbeat) (wire.AckNack, bool) {
	wp, ok := r.Writer(writer)
	if !ok {
		return wire.AckNack{}, false
	}
	if !wp.ReceivedHeartbeat(hb.Count) {
		return wire.AckNack{}, false
	}
	wp.LostChangesUpTo(hb.FirstSN)
	wp.MissingChangesUpdate(hb.FirstSN, hb.LastSN)

	missing := wp.MissingChanges()
	base := hb.LastSN + 1
	if len(missing) > 0 {
		base = missing[0]
	}
	set := types.NewSequenceNumberSet(base)
	for _, sn := range missing {
		set.Add(sn)
	}
	an := wire.AckNack{
		ReaderId:      r.Guid.EntityId,
		WriterId:      writer.EntityId,
		ReaderSNState: set,
		Count:         r.anCount.next(),
		Final:         len(missing) == 0,
	}
	return an, true
}
