package receiver

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendds-go/rtps/rtps/types"
	"github.com/opendds-go/rtps/rtps/wire"
)

func TestProcessAppliesInfoSrcAndInfoTS(t *testing.T) {
	header := wire.MessageHeader{Version: wire.ProtocolVersion24, VendorId: wire.VendorIdThis, GuidPrefix: types.GuidPrefix{1}}
	overridden := types.GuidPrefix{9, 9, 9}
	is := wire.InfoSrc{Version: wire.ProtocolVersion24, VendorId: wire.VendorIdThis, GuidPrefix: overridden}
	ts := wire.InfoTS{Timestamp: types.Time{Seconds: 42}}
	hb := wire.Heartbeat{ReaderId: types.EntityIdUnknown, WriterId: types.EntityIdSEDPBuiltinPublicationsWriter, FirstSN: 1, LastSN: 1}

	buf := wire.EncodeMessage(header, [][]byte{
		is.Encode(binary.LittleEndian),
		ts.Encode(binary.LittleEndian),
		hb.Encode(binary.LittleEndian),
	})

	mr := New(types.InvalidLocator, types.InvalidLocator, nil)
	events, err := mr.Process(buf)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, overridden, events[0].Session.SourceGuidPrefix)
	require.NotNil(t, events[0].Session.Timestamp)
	require.Equal(t, uint32(42), events[0].Session.Timestamp.Seconds)
	require.Equal(t, wire.KindHeartbeat, events[0].Raw.Kind)
}

func TestProcessSkipsPad(t *testing.T) {
	header := wire.MessageHeader{Version: wire.ProtocolVersion24, VendorId: wire.VendorIdThis}
	pad := wire.Pad{Padding: []byte{0, 0, 0, 0}}
	buf := wire.EncodeMessage(header, [][]byte{pad.Encode(binary.LittleEndian)})

	mr := New(types.InvalidLocator, types.InvalidLocator, nil)
	events, err := mr.Process(buf)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestSourceGuidCombinesSessionPrefixAndEntityId(t *testing.T) {
	sess := Session{SourceGuidPrefix: types.GuidPrefix{7}}
	got := SourceGuid(sess, types.EntityIdSEDPBuiltinPublicationsWriter)
	require.Equal(t, sess.SourceGuidPrefix, got.Prefix)
	require.Equal(t, types.EntityIdSEDPBuiltinPublicationsWriter, got.EntityId)
}
