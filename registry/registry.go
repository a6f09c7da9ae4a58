// Package registry implements the entity ownership tree described in
// §4.7: Participant -> {Publisher,Subscriber} -> {DataWriter,DataReader},
// a topic-by-name index, and the instance handle allocator that keeps
// GUID-derived and user-instance handles in disjoint subspaces (§9).
package registry

import (
	"sync"

	"github.com/opendds-go/rtps/internal/rtpserrors"
	"github.com/opendds-go/rtps/rtps/qos"
	"github.com/opendds-go/rtps/rtps/types"
)

// Topic is one registered topic name/type pair (§3).
type Topic struct {
	Name string
	Type string
}

// EndpointRecord is one registered reader or writer, enough to drive
// matching and discovery without depending on the endpoint behavior
// engine's concrete type (rtps/endpoint.StatefulWriter etc.).
type EndpointRecord struct {
	Guid      types.GUID
	Topic     Topic
	Qos       qos.Policies
	IsReader  bool
	Unicast   []types.Locator
	Multicast []types.Locator
}

// Registry owns every entity known to one DomainParticipant: itself,
// its groups, and their endpoints, plus the topic index and instance
// handle allocator shared across them.
type Registry struct {
	mu          sync.RWMutex
	participant types.GUID
	endpoints   map[types.GUID]*EndpointRecord
	byTopic     map[string][]types.GUID
}

// New creates a registry rooted at the given participant GUID.
func New(participant types.GUID) *Registry {
	return &Registry{
		participant: participant,
		endpoints:   make(map[types.GUID]*EndpointRecord),
		byTopic:     make(map[string][]types.GUID),
	}
}

// RegisterEndpoint adds a reader or writer under this participant.
// Returns BadParameter if the GUID is already registered.
func (r *Registry) RegisterEndpoint(rec *EndpointRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.endpoints[rec.Guid]; exists {
		return rtpserrors.New(rtpserrors.BadParameter, "endpoint %s already registered", rec.Guid)
	}
	if err := rec.Qos.Validate(); err != nil {
		return err
	}
	r.endpoints[rec.Guid] = rec
	r.byTopic[rec.Topic.Name] = append(r.byTopic[rec.Topic.Name], rec.Guid)
	return nil
}

// UnregisterEndpoint removes a previously registered endpoint. Returns
// AlreadyDeleted if it was never registered or already removed.
func (r *Registry) UnregisterEndpoint(guid types.GUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.endpoints[guid]
	if !ok {
		return rtpserrors.New(rtpserrors.AlreadyDeleted, "endpoint %s not registered", guid)
	}
	delete(r.endpoints, guid)
	lst := r.byTopic[rec.Topic.Name]
	for i, g := range lst {
		if g == guid {
			r.byTopic[rec.Topic.Name] = append(lst[:i], lst[i+1:]...)
			break
		}
	}
	return nil
}

// Endpoint looks up a registered endpoint by GUID.
func (r *Registry) Endpoint(guid types.GUID) (*EndpointRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.endpoints[guid]
	return rec, ok
}

// EndpointsForTopic returns every endpoint registered against topicName,
// readers and writers alike; callers filter by IsReader as needed.
func (r *Registry) EndpointsForTopic(topicName string) []*EndpointRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	guids := r.byTopic[topicName]
	out := make([]*EndpointRecord, 0, len(guids))
	for _, g := range guids {
		out = append(out, r.endpoints[g])
	}
	return out
}

// MatchCandidates returns every registered endpoint of the opposite role
// sharing a topic name with rec — the candidate set SEDP/matching logic
// runs CheckCompatibility over (§4.3.5).
func (r *Registry) MatchCandidates(rec *EndpointRecord) []*EndpointRecord {
	var out []*EndpointRecord
	for _, other := range r.EndpointsForTopic(rec.Topic.Name) {
		if other.IsReader != rec.IsReader {
			out = append(out, other)
		}
	}
	return out
}

// userHandles is the user-instance counter shared by every Registry in
// the process.
var (
	userHandlesMu sync.Mutex
	userHandles   types.UserInstanceCounter
)

// NextUserInstanceHandle allocates the next process-wide user-instance
// handle, disjoint from any GUID-derived handle (§9).
func (r *Registry) NextUserInstanceHandle() types.InstanceHandle {
	userHandlesMu.Lock()
	defer userHandlesMu.Unlock()
	return userHandles.Next()
}

// Participant returns the GUID this registry is rooted at.
func (r *Registry) Participant() types.GUID {
	return r.participant
}
