package endpoint

import (
	"sync"

	"github.com/opendds-go/rtps/rtps/history"
	"github.com/opendds-go/rtps/rtps/types"
	"github.com/opendds-go/rtps/rtps/wire"
)

// StatelessWriter sends to a set of reader locators without tracking
// per-reader acknowledgment (§4.3.3): suitable for best-effort endpoints
// and the SPDP announcer, which has no notion of a matched reader set at
// all.
type StatelessWriter struct {
	Identity
	mu       sync.Mutex
	cache    *history.WriterCache
	locators []types.Locator
	unsent   []types.SequenceNumber
}

// NewStatelessWriter creates a writer with its own HistoryCache and an
// initial set of destination locators (e.g. the SPDP multicast group).
func NewStatelessWriter(id Identity, locators []types.Locator) *StatelessWriter {
	return &StatelessWriter{
		Identity: id,
		cache:    history.NewWriterCache(id.Guid, id.Qos),
		locators: locators,
	}
}

// AddLocator appends a destination for future transmissions.
func (w *StatelessWriter) AddLocator(l types.Locator) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.locators = append(w.locators, l)
}

// Locators returns the current destination set.
func (w *StatelessWriter) Locators() []types.Locator {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]types.Locator, len(w.locators))
	copy(out, w.locators)
	return out
}

// NewChange allocates a new sample and queues it for transmission to
// every current locator.
func (w *StatelessWriter) NewChange(kind history.ChangeKind, instance types.InstanceHandle, payload []byte) (*history.CacheChange, error) {
	c, err := w.cache.AddChange(kind, instance, payload)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.unsent = append(w.unsent, c.SequenceNumber)
	w.mu.Unlock()
	return c, nil
}

// NextUnsent pops the next sequence number queued for transmission and
// the encoded DATA submessage bytes for it, addressed to EntityIdUnknown
// (best-effort sends are not reader-specific, §4.3.3).
func (w *StatelessWriter) NextUnsent() ([]byte, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.unsent) == 0 {
		return nil, false
	}
	sn := w.unsent[0]
	w.unsent = w.unsent[1:]
	c, ok := w.cache.Get(sn)
	if !ok {
		return nil, false
	}
	d := wire.Data{
		ReaderId:          types.EntityIdUnknown,
		WriterId:          w.Guid.EntityId,
		WriterSN:          c.SequenceNumber,
		SerializedPayload: c.Payload,
	}
	return d.Encode(byteOrder), true
}
