package history

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendds-go/rtps/rtps/qos"
	"github.com/opendds-go/rtps/rtps/types"
)

func TestWriterCacheAllocatesMonotonicSequenceNumbers(t *testing.T) {
	w := NewWriterCache(types.NewGUID(types.GuidPrefix{1, 2, 3}, types.EntityIdParticipant), qos.Default())
	h := types.InstanceHandleNil
	c1, err := w.AddChange(Alive, h, []byte("a"))
	require.NoError(t, err)
	c2, err := w.AddChange(Alive, h, []byte("b"))
	require.NoError(t, err)
	require.Equal(t, types.SequenceNumber(1), c1.SequenceNumber)
	require.Equal(t, types.SequenceNumber(2), c2.SequenceNumber)
	require.Equal(t, types.SequenceNumber(2), w.MaxSeqNum())
}

func TestWriterCacheKeepLastEvictsPerInstance(t *testing.T) {
	p := qos.Default()
	p.History = qos.HistoryPolicy{Kind: qos.KeepLast, Depth: 2}
	w := NewWriterCache(types.NewGUID(types.GuidPrefix{1, 2, 3}, types.EntityIdParticipant), p)
	h := types.InstanceHandleNil
	for i := 0; i < 5; i++ {
		_, err := w.AddChange(Alive, h, []byte{byte(i)})
		require.NoError(t, err)
	}
	require.Equal(t, types.SequenceNumber(4), w.MinSeqNum())
	require.Equal(t, types.SequenceNumber(5), w.MaxSeqNum())
}

func TestWriterCacheKeepAllOutOfResources(t *testing.T) {
	p := qos.Default()
	p.History = qos.HistoryPolicy{Kind: qos.KeepAll}
	p.ResourceLimits.MaxSamples = 2
	w := NewWriterCache(types.NewGUID(types.GuidPrefix{1, 2, 3}, types.EntityIdParticipant), p)
	h := types.InstanceHandleNil
	_, err := w.AddChange(Alive, h, nil)
	require.NoError(t, err)
	_, err = w.AddChange(Alive, h, nil)
	require.NoError(t, err)
	_, err = w.AddChange(Alive, h, nil)
	require.Error(t, err)
}

func TestReaderCacheDedupesByWriterAndSequenceNumber(t *testing.T) {
	r := NewReaderCache(qos.Default())
	writer := types.NewGUID(types.GuidPrefix{1, 2, 3}, types.EntityIdParticipant)
	handle := types.InstanceHandleNil
	c := &CacheChange{Kind: Alive, WriterGuid: writer, SequenceNumber: 1, InstanceHandle: handle}
	added, err := r.AddChange(c)
	require.NoError(t, err)
	require.True(t, added)
	added, err = r.AddChange(c)
	require.NoError(t, err)
	require.False(t, added)
}

func TestReaderCacheReadThenTakeSemantics(t *testing.T) {
	r := NewReaderCache(qos.Default())
	writer := types.NewGUID(types.GuidPrefix{1, 2, 3}, types.EntityIdParticipant)
	handle := types.InstanceHandleNil
	for i := types.SequenceNumber(1); i <= 2; i++ {
		_, err := r.AddChange(&CacheChange{Kind: Alive, WriterGuid: writer, SequenceNumber: i, InstanceHandle: handle})
		require.NoError(t, err)
	}

	read := r.Read(0, FilterSpec{})
	require.Len(t, read, 2)

	readAgain := r.Read(0, FilterSpec{Sample: []SampleState{SampleNotRead}})
	require.Empty(t, readAgain)

	taken := r.Take(0, FilterSpec{})
	require.Len(t, taken, 2)

	takenAgain := r.Take(0, FilterSpec{})
	require.Empty(t, takenAgain)
}

func TestReaderCacheInstanceStateTransitionsOnDispose(t *testing.T) {
	r := NewReaderCache(qos.Default())
	writer := types.NewGUID(types.GuidPrefix{1, 2, 3}, types.EntityIdParticipant)
	handle := types.InstanceHandleNil
	_, err := r.AddChange(&CacheChange{Kind: Alive, WriterGuid: writer, SequenceNumber: 1, InstanceHandle: handle})
	require.NoError(t, err)
	state, ok := r.InstanceState(handle)
	require.True(t, ok)
	require.Equal(t, InstanceAlive, state)

	_, err = r.AddChange(&CacheChange{Kind: NotAliveDisposed, WriterGuid: writer, SequenceNumber: 2, InstanceHandle: handle})
	require.NoError(t, err)
	state, ok = r.InstanceState(handle)
	require.True(t, ok)
	require.Equal(t, InstanceNotAliveDisposed, state)
}

func TestReaderCacheMaxInstancesOutOfResources(t *testing.T) {
	p := qos.Default()
	p.ResourceLimits.MaxInstances = 1
	r := NewReaderCache(p)
	writer := types.NewGUID(types.GuidPrefix{1, 2, 3}, types.EntityIdParticipant)
	var h1, h2 types.InstanceHandle
	h2[0] = 1
	_, err := r.AddChange(&CacheChange{Kind: Alive, WriterGuid: writer, SequenceNumber: 1, InstanceHandle: h1})
	require.NoError(t, err)
	_, err = r.AddChange(&CacheChange{Kind: Alive, WriterGuid: writer, SequenceNumber: 2, InstanceHandle: h2})
	require.Error(t, err)
}
