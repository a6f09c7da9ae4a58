package endpoint

import (
	"github.com/opendds-go/rtps/rtps/history"
	"github.com/opendds-go/rtps/rtps/types"
	"github.com/opendds-go/rtps/rtps/wire"
)

// StatelessReader accepts DATA from any writer without tracking a
// per-writer proxy (§4.3.3); duplicate suppression still happens in the
// HistoryCache via (writer GUID, sequence number) keying.
type StatelessReader struct {
	Identity
	cache *history.ReaderCache
}

// NewStatelessReader creates a reader with its own HistoryCache.
func NewStatelessReader(id Identity) *StatelessReader {
	return &StatelessReader{Identity: id, cache: history.NewReaderCache(id.Qos)}
}

// Cache exposes the reader's HistoryCache for Read/Take.
func (r *StatelessReader) Cache() *history.ReaderCache {
	return r.cache
}

// HandleData folds an incoming DATA submessage into the HistoryCache.
// writer is the full GUID of the sender, resolved by the MessageReceiver
// from the enclosing message's GuidPrefix and the submessage's writerId.
func (r *StatelessReader) HandleData(writer types.GUID, d wire.Data, instance types.InstanceHandle) (bool, error) {
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
	return r.cache.AddChange(c)
}
