package history

import (
	"sort"
	"sync"

	"github.com/opendds-go/rtps/internal/rtpserrors"
	"github.com/opendds-go/rtps/rtps/qos"
	"github.com/opendds-go/rtps/rtps/types"
)

// WriterCache is the writer-side HistoryCache (§3): it owns sequence
// number allocation for one writer and enforces the History and
// ResourceLimits policies as changes are added.
type WriterCache struct {
	mu         sync.Mutex
	writer     types.GUID
	policy     qos.Policies
	nextSN     types.SequenceNumber
	changes    []*CacheChange // ascending by SequenceNumber
	byInstance map[types.InstanceHandle][]*CacheChange
}

// NewWriterCache creates an empty cache for the given writer GUID,
// starting sequence number allocation at 1 (§4.1: SN 0 is not used).
func NewWriterCache(writer types.GUID, policy qos.Policies) *WriterCache {
	return &WriterCache{
		writer:     writer,
		policy:     policy,
		nextSN:     1,
		byInstance: make(map[types.InstanceHandle][]*CacheChange),
	}
}

// AddChange allocates the next sequence number, appends the change, and
// evicts per the History/ResourceLimits policy. Returns OutOfResources
// if ResourceLimits.MaxSamples would be exceeded under KEEP_ALL.
func (w *WriterCache) AddChange(kind ChangeKind, handle types.InstanceHandle, payload []byte) (*CacheChange, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.policy.History.Kind == qos.KeepAll &&
		w.policy.ResourceLimits.MaxSamples != qos.Unlimited &&
		len(w.changes) >= w.policy.ResourceLimits.MaxSamples {
		return nil, rtpserrors.New(rtpserrors.OutOfResources, "writer history at max_samples=%d", w.policy.ResourceLimits.MaxSamples)
	}

	c := &CacheChange{
		Kind:           kind,
		WriterGuid:     w.writer,
		SequenceNumber: w.nextSN,
		InstanceHandle: handle,
		Payload:        payload,
	}
	w.nextSN++
	w.changes = append(w.changes, c)
	w.byInstance[handle] = append(w.byInstance[handle], c)

	if w.policy.History.Kind == qos.KeepLast {
		w.evictInstanceLocked(handle, w.policy.History.Depth)
	}
	return c, nil
}

// evictInstanceLocked drops the oldest changes of an instance beyond
// depth, removing them from both the per-instance and global slices.
func (w *WriterCache) evictInstanceLocked(handle types.InstanceHandle, depth int) {
	lst := w.byInstance[handle]
	if depth <= 0 || len(lst) <= depth {
		return
	}
	drop := lst[:len(lst)-depth]
	keep := lst[len(lst)-depth:]
	w.byInstance[handle] = append([]*CacheChange(nil), keep...)

	dropSet := make(map[types.SequenceNumber]struct{}, len(drop))
	for _, c := range drop {
		dropSet[c.SequenceNumber] = struct{}{}
	}
	filtered := w.changes[:0:0]
	for _, c := range w.changes {
		if _, dropped := dropSet[c.SequenceNumber]; dropped {
			continue
		}
		filtered = append(filtered, c)
	}
	w.changes = filtered
}

// MinSeqNum returns the lowest sequence number still retained, or
// SequenceNumberUnknown if the cache is empty.
func (w *WriterCache) MinSeqNum() types.SequenceNumber {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.changes) == 0 {
		return types.SequenceNumberUnknown
	}
	return w.changes[0].SequenceNumber
}

// MaxSeqNum returns the highest sequence number ever allocated by this
// writer (not necessarily still retained), or 0 (SequenceNumberZero) if
// none has been allocated yet.
func (w *WriterCache) MaxSeqNum() types.SequenceNumber {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nextSN - 1
}

// Get retrieves a retained change by sequence number.
func (w *WriterCache) Get(sn types.SequenceNumber) (*CacheChange, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := sort.Search(len(w.changes), func(i int) bool { return w.changes[i].SequenceNumber >= sn })
	if i < len(w.changes) && w.changes[i].SequenceNumber == sn {
		return w.changes[i], true
	}
	return nil, false
}

// Range returns all retained changes with SequenceNumber in [from, to]
// inclusive, in ascending order.
func (w *WriterCache) Range(from, to types.SequenceNumber) []*CacheChange {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []*CacheChange
	for _, c := range w.changes {
		if c.SequenceNumber >= from && c.SequenceNumber <= to {
			out = append(out, c)
		}
	}
	return out
}

// RemoveBefore drops every retained change with SequenceNumber < sn,
// used for lifespan expiry and explicit history clears.
func (w *WriterCache) RemoveBefore(sn types.SequenceNumber) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var kept []*CacheChange
	for _, c := range w.changes {
		if c.SequenceNumber < sn {
			continue
		}
		kept = append(kept, c)
	}
	w.changes = kept
	for h, lst := range w.byInstance {
		var keptInst []*CacheChange
		for _, c := range lst {
			if c.SequenceNumber >= sn {
				keptInst = append(keptInst, c)
			}
		}
		w.byInstance[h] = keptInst
	}
}
