package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendds-go/rtps/rtps/history"
	"github.com/opendds-go/rtps/rtps/types"
)

func testGuid() types.GUID {
	return types.NewGUID(types.GuidPrefix{1, 2, 3}, types.EntityId{Kind: types.EntityKindWriterNoKey})
}

func TestPersistAndLoadRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "durability.db")
	s, err := Open(dbPath, nil)
	require.NoError(t, err)
	defer s.Close()

	writer := testGuid()
	c1 := &history.CacheChange{Kind: history.Alive, WriterGuid: writer, SequenceNumber: 1, Payload: []byte("a")}
	c2 := &history.CacheChange{Kind: history.Alive, WriterGuid: writer, SequenceNumber: 2, Payload: []byte("b")}
	require.NoError(t, s.Persist(c1))
	require.NoError(t, s.Persist(c2))

	loaded, err := s.Load(writer)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, types.SequenceNumber(1), loaded[0].SequenceNumber)
	require.Equal(t, []byte("a"), loaded[0].Payload)
	require.Equal(t, types.SequenceNumber(2), loaded[1].SequenceNumber)
}

func TestLoadUnknownWriterReturnsEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "durability.db")
	s, err := Open(dbPath, nil)
	require.NoError(t, err)
	defer s.Close()

	loaded, err := s.Load(testGuid())
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestPurgeRemovesAllChangesForWriter(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "durability.db")
	s, err := Open(dbPath, nil)
	require.NoError(t, err)
	defer s.Close()

	writer := testGuid()
	require.NoError(t, s.Persist(&history.CacheChange{Kind: history.Alive, WriterGuid: writer, SequenceNumber: 1, Payload: []byte("a")}))
	require.NoError(t, s.Purge(writer))

	loaded, err := s.Load(writer)
	require.NoError(t, err)
	require.Empty(t, loaded)
}
