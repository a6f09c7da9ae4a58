package history

import (
	"sync"

	"github.com/opendds-go/rtps/internal/rtpserrors"
	"github.com/opendds-go/rtps/rtps/qos"
	"github.com/opendds-go/rtps/rtps/types"
)

// SampleState tracks whether a reader application has consumed a change.
type SampleState int

const (
	SampleNotRead SampleState = iota
	SampleRead
)

// ViewState tracks whether an instance is newly visible to the reader.
type ViewState int

const (
	ViewNew ViewState = iota
	ViewNotNew
)

// InstanceState mirrors the instance lifecycle seen by a reader.
type InstanceState int

const (
	InstanceAlive InstanceState = iota
	InstanceNotAliveDisposed
	InstanceNotAliveNoWriters
)

// ReaderChange pairs a CacheChange with the reader-local sample state.
type ReaderChange struct {
	*CacheChange
	SampleState SampleState
}

type instanceRecord struct {
	state       InstanceState
	view        ViewState
	changes     []*ReaderChange
	liveWriters map[types.GUID]struct{}
}

// ReaderCache is the reader-side HistoryCache (§3): it deduplicates
// changes by (writer GUID, sequence number), tracks per-instance
// sample/view/instance state, and enforces ResourceLimits.
type ReaderCache struct {
	mu         sync.Mutex
	policy     qos.Policies
	seen       map[Key]struct{}
	byInstance map[types.InstanceHandle]*instanceRecord
}

// NewReaderCache creates an empty reader-side cache governed by policy.
func NewReaderCache(policy qos.Policies) *ReaderCache {
	return &ReaderCache{
		policy:     policy,
		seen:       make(map[Key]struct{}),
		byInstance: make(map[types.InstanceHandle]*instanceRecord),
	}
}

// AddChange inserts a change if not already present (idempotent under
// duplicate delivery, §4.3.3 "ChangeFromWriter" redelivery). Returns
// (false, nil) for a duplicate, (false, err) if ResourceLimits reject the
// insert, and (true, nil) on success.
func (r *ReaderCache) AddChange(c *CacheChange) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := c.Key()
	if _, dup := r.seen[key]; dup {
		return false, nil
	}

	rec, ok := r.byInstance[c.InstanceHandle]
	if !ok {
		if r.policy.ResourceLimits.MaxInstances != qos.Unlimited &&
			len(r.byInstance) >= r.policy.ResourceLimits.MaxInstances {
			return false, rtpserrors.New(rtpserrors.OutOfResources, "reader history at max_instances=%d", r.policy.ResourceLimits.MaxInstances)
		}
		rec = &instanceRecord{state: InstanceAlive, view: ViewNew, liveWriters: make(map[types.GUID]struct{})}
		r.byInstance[c.InstanceHandle] = rec
	}

	if r.policy.ResourceLimits.MaxSamplesPerInstance != qos.Unlimited &&
		len(rec.changes) >= r.policy.ResourceLimits.MaxSamplesPerInstance {
		if r.policy.History.Kind == qos.KeepLast {
			r.evictOldestLocked(rec)
		} else {
			return false, rtpserrors.New(rtpserrors.OutOfResources, "reader instance at max_samples_per_instance=%d", r.policy.ResourceLimits.MaxSamplesPerInstance)
		}
	}

	rec.changes = append(rec.changes, &ReaderChange{CacheChange: c, SampleState: SampleNotRead})
	r.seen[key] = struct{}{}

	switch c.Kind {
	case Alive:
		rec.liveWriters[c.WriterGuid] = struct{}{}
		rec.state = InstanceAlive
	case NotAliveDisposed:
		rec.state = InstanceNotAliveDisposed
	case NotAliveUnregistered:
		delete(rec.liveWriters, c.WriterGuid)
		if len(rec.liveWriters) == 0 {
			rec.state = InstanceNotAliveNoWriters
		}
	}
	return true, nil
}

func (r *ReaderCache) evictOldestLocked(rec *instanceRecord) {
	if len(rec.changes) == 0 {
		return
	}
	delete(r.seen, rec.changes[0].Key())
	rec.changes = rec.changes[1:]
}

// FilterSpec narrows Read/Take to particular sample/view/instance states;
// a nil slice in any field matches any state (§3 read/take semantics).
type FilterSpec struct {
	Sample   []SampleState
	View     []ViewState
	Instance []InstanceState
}

func (f FilterSpec) matches(rec *instanceRecord, rc *ReaderChange) bool {
	if f.Sample != nil && !containsSample(f.Sample, rc.SampleState) {
		return false
	}
	if f.View != nil && !containsView(f.View, rec.view) {
		return false
	}
	if f.Instance != nil && !containsInstance(f.Instance, rec.state) {
		return false
	}
	return true
}

func containsSample(xs []SampleState, x SampleState) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func containsView(xs []ViewState, x ViewState) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func containsInstance(xs []InstanceState, x InstanceState) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// Read returns up to maxSamples changes matching spec without removing
// them, marking returned changes SampleRead and their instance ViewNotNew.
func (r *ReaderCache) Read(maxSamples int, spec FilterSpec) []*ReaderChange {
	return r.readOrTake(maxSamples, spec, false)
}

// Take behaves like Read but removes the returned changes from the cache.
func (r *ReaderCache) Take(maxSamples int, spec FilterSpec) []*ReaderChange {
	return r.readOrTake(maxSamples, spec, true)
}

func (r *ReaderCache) readOrTake(maxSamples int, spec FilterSpec, destructive bool) []*ReaderChange {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*ReaderChange
	for handle, rec := range r.byInstance {
		var keep []*ReaderChange
		for _, rc := range rec.changes {
			if (maxSamples <= 0 || len(out) < maxSamples) && spec.matches(rec, rc) {
				out = append(out, rc)
				if !destructive {
					rc.SampleState = SampleRead
				}
				rec.view = ViewNotNew
				if destructive {
					delete(r.seen, rc.Key())
					continue
				}
			}
			keep = append(keep, rc)
		}
		rec.changes = keep
		if len(rec.changes) == 0 && rec.state != InstanceAlive {
			delete(r.byInstance, handle)
		}
	}
	return out
}

// InstanceState reports the current lifecycle state of an instance, or
// false if the reader has never seen it.
func (r *ReaderCache) InstanceState(handle types.InstanceHandle) (InstanceState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byInstance[handle]
	if !ok {
		return 0, false
	}
	return rec.state, true
}
