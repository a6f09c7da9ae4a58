package endpoint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendds-go/rtps/rtps/history"
	"github.com/opendds-go/rtps/rtps/qos"
	"github.com/opendds-go/rtps/rtps/types"
	"github.com/opendds-go/rtps/rtps/wire"
)

func guid(kind types.EntityKind) types.GUID {
	return types.NewGUID(types.GuidPrefix{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, types.EntityId{Kind: kind})
}

func TestStatefulWriterReaderReliableRoundTrip(t *testing.T) {
	p := qos.Default()
	p.Reliability.Kind = qos.Reliable
	p.History = qos.HistoryPolicy{Kind: qos.KeepAll}

	writer := NewStatefulWriter(Identity{Guid: guid(types.EntityKindWriterNoKey), Qos: p})
	reader := NewStatefulReader(Identity{Guid: guid(types.EntityKindReaderNoKey), Qos: p})

	rp := writer.MatchReader(reader.Guid, nil, nil, true)
	wp := reader.MatchWriter(writer.Guid, nil, nil)
	require.NotNil(t, rp)
	require.NotNil(t, wp)

	c, err := writer.NewChange(history.Alive, types.InstanceHandleNil, []byte("payload"))
	require.NoError(t, err)
	require.Equal(t, types.SequenceNumber(1), c.SequenceNumber)

	sn, ok := writer.PendingUnsent(reader.Guid)
	require.True(t, ok)
	buf, ok := writer.DataFor(reader.Guid.EntityId, sn)
	require.True(t, ok)

	raw := decodeOneSubmessage(t, buf)
	d, err := wire.DecodeData(raw)
	require.NoError(t, err)

	added, err := reader.HandleData(writer.Guid, d, types.InstanceHandleNil)
	require.NoError(t, err)
	require.True(t, added)

	hb := writer.Heartbeat(reader.Guid.EntityId, true)
	an, ok := reader.HandleHeartbeat(writer.Guid, hb)
	require.True(t, ok)
	require.True(t, an.Final)

	writer.HandleAckNack(reader.Guid, an)
	require.False(t, rp.UnacknowledgedChanges())

	taken := reader.Cache().Take(0, history.FilterSpec{})
	require.Len(t, taken, 1)
	require.Equal(t, []byte("payload"), taken[0].Payload)
}

func TestStatefulReaderRequestsMissingOnGappyHeartbeat(t *testing.T) {
	p := qos.Default()
	p.Reliability.Kind = qos.Reliable
	reader := NewStatefulReader(Identity{Guid: guid(types.EntityKindReaderNoKey), Qos: p})
	writerGuid := guid(types.EntityKindWriterNoKey)
	reader.MatchWriter(writerGuid, nil, nil)

	hb := wire.Heartbeat{FirstSN: 1, LastSN: 3, Count: 1}
	an, ok := reader.HandleHeartbeat(writerGuid, hb)
	require.True(t, ok)
	require.False(t, an.Final)
	require.True(t, an.ReaderSNState.Has(1))
	require.True(t, an.ReaderSNState.Has(2))
	require.True(t, an.ReaderSNState.Has(3))
}

func TestStatefulReaderDropsStaleHeartbeat(t *testing.T) {
	p := qos.Default()
	p.Reliability.Kind = qos.Reliable
	reader := NewStatefulReader(Identity{Guid: guid(types.EntityKindReaderNoKey), Qos: p})
	writerGuid := guid(types.EntityKindWriterNoKey)
	reader.MatchWriter(writerGuid, nil, nil)

	first := wire.Heartbeat{FirstSN: 1, LastSN: 2, Count: 2}
	_, ok := reader.HandleHeartbeat(writerGuid, first)
	require.True(t, ok)

	stale := wire.Heartbeat{FirstSN: 1, LastSN: 5, Count: 2}
	_, ok = reader.HandleHeartbeat(writerGuid, stale)
	require.False(t, ok)

	wp, found := reader.Writer(writerGuid)
	require.True(t, found)
	require.Equal(t, types.SequenceNumber(2), wp.AvailableChangeMax())
}

func TestStatefulWriterDropsStaleAckNack(t *testing.T) {
	p := qos.Default()
	p.Reliability.Kind = qos.Reliable
	writer := NewStatefulWriter(Identity{Guid: guid(types.EntityKindWriterNoKey), Qos: p})
	readerGuid := guid(types.EntityKindReaderNoKey)
	rp := writer.MatchReader(readerGuid, nil, nil, true)

	_, err := writer.NewChange(history.Alive, types.InstanceHandleNil, []byte("a"))
	require.NoError(t, err)

	set := types.NewSequenceNumberSet(2)
	writer.HandleAckNack(readerGuid, wire.AckNack{ReaderSNState: set, Count: 1})
	require.False(t, rp.UnacknowledgedChanges())

	requested := types.NewSequenceNumberSet(1)
	requested.Add(1)
	writer.HandleAckNack(readerGuid, wire.AckNack{ReaderSNState: requested, Count: 1})
	require.False(t, rp.UnacknowledgedChanges(), "stale count must not re-request change 1")
}

func TestStatelessWriterReaderBestEffort(t *testing.T) {
	p := qos.Default()
	loc := types.NewUDPv4Locator([]byte{239, 255, 0, 1}, 7400)
	writer := NewStatelessWriter(Identity{Guid: guid(types.EntityKindWriterNoKey), Qos: p}, []types.Locator{loc})
	reader := NewStatelessReader(Identity{Guid: guid(types.EntityKindReaderNoKey), Qos: p})

	_, err := writer.NewChange(history.Alive, types.InstanceHandleNil, []byte("spdp"))
	require.NoError(t, err)

	buf, ok := writer.NextUnsent()
	require.True(t, ok)
	raw := decodeOneSubmessage(t, buf)
	d, err := wire.DecodeData(raw)
	require.NoError(t, err)

	added, err := reader.HandleData(writer.Guid, d, types.InstanceHandleNil)
	require.NoError(t, err)
	require.True(t, added)
}

func decodeOneSubmessage(t *testing.T, buf []byte) wire.RawSubmessage {
	t.Helper()
	header := wire.MessageHeader{Version: wire.ProtocolVersion24, VendorId: wire.VendorIdThis}
	msg := wire.EncodeMessage(header, [][]byte{buf})
	_, subs, err := wire.DecodeMessage(msg)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	return subs[0]
}
