package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendds-go/rtps/rtps/qos"
	"github.com/opendds-go/rtps/rtps/types"
)

func participantGuid() types.GUID {
	return types.NewGUID(types.GuidPrefix{1, 2, 3}, types.EntityIdParticipant)
}

func TestRegisterAndLookupEndpoint(t *testing.T) {
	r := New(participantGuid())
	rec := &EndpointRecord{
		Guid:  types.NewGUID(participantGuid().Prefix, types.EntityId{Kind: types.EntityKindWriterNoKey}),
		Topic: Topic{Name: "Temp", Type: "SensorSample"},
		Qos:   qos.Default(),
	}
	require.NoError(t, r.RegisterEndpoint(rec))

	got, ok := r.Endpoint(rec.Guid)
	require.True(t, ok)
	require.Equal(t, rec, got)

	require.Error(t, r.RegisterEndpoint(rec))
}

func TestUnregisterEndpointRemovesFromTopicIndex(t *testing.T) {
	r := New(participantGuid())
	rec := &EndpointRecord{
		Guid:  types.NewGUID(participantGuid().Prefix, types.EntityId{Kind: types.EntityKindReaderNoKey}),
		Topic: Topic{Name: "Temp", Type: "SensorSample"},
		Qos:   qos.Default(),
	}
	require.NoError(t, r.RegisterEndpoint(rec))
	require.NoError(t, r.UnregisterEndpoint(rec.Guid))
	require.Empty(t, r.EndpointsForTopic("Temp"))
	require.Error(t, r.UnregisterEndpoint(rec.Guid))
}

func TestMatchCandidatesReturnsOppositeRoleSameTopic(t *testing.T) {
	r := New(participantGuid())
	writer := &EndpointRecord{
		Guid:  types.NewGUID(participantGuid().Prefix, types.EntityId{Kind: types.EntityKindWriterNoKey}),
		Topic: Topic{Name: "Temp", Type: "SensorSample"},
		Qos:   qos.Default(),
	}
	reader := &EndpointRecord{
		Guid:     types.NewGUID(participantGuid().Prefix, types.EntityId{Key: [3]byte{0, 0, 1}, Kind: types.EntityKindReaderNoKey}),
		Topic:    Topic{Name: "Temp", Type: "SensorSample"},
		Qos:      qos.Default(),
		IsReader: true,
	}
	require.NoError(t, r.RegisterEndpoint(writer))
	require.NoError(t, r.RegisterEndpoint(reader))

	candidates := r.MatchCandidates(writer)
	require.Len(t, candidates, 1)
	require.Equal(t, reader.Guid, candidates[0].Guid)
}

func TestNextUserInstanceHandlesAreUnique(t *testing.T) {
	r := New(participantGuid())
	h1 := r.NextUserInstanceHandle()
	h2 := r.NextUserInstanceHandle()
	require.NotEqual(t, h1, h2)
	require.True(t, h1.IsUserInstance())
}
