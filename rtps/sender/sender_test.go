package sender

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendds-go/rtps/rtps/types"
	"github.com/opendds-go/rtps/rtps/wire"
)

func TestFlushProducesOneBatchPerLocator(t *testing.T) {
	s := New(types.GuidPrefix{1}, 0)
	loc1 := types.NewUDPv4Locator([]byte{10, 0, 0, 1}, 7411)
	loc2 := types.NewUDPv4Locator([]byte{10, 0, 0, 2}, 7411)

	hb := wire.Heartbeat{FirstSN: 1, LastSN: 1}
	s.Enqueue(Destination{Locator: loc1, DestGuidPrefix: types.GuidPrefix{2}, Submessage: hb.Encode(binary.LittleEndian)})
	s.Enqueue(Destination{Locator: loc2, DestGuidPrefix: types.GuidPrefix{3}, Submessage: hb.Encode(binary.LittleEndian)})

	batches := s.Flush()
	require.Len(t, batches, 2)
	for _, b := range batches {
		_, subs, err := wire.DecodeMessage(b.Payload)
		require.NoError(t, err)
		require.Len(t, subs, 2) // INFO_DST + HEARTBEAT
		require.Equal(t, wire.KindInfoDst, subs[0].Kind)
		require.Equal(t, wire.KindHeartbeat, subs[1].Kind)
	}
	require.Empty(t, s.queues)
}

func TestFlushSplitsOversizedQueueIntoMultipleMessages(t *testing.T) {
	s := New(types.GuidPrefix{1}, wire.HeaderLength+40)
	loc := types.NewUDPv4Locator([]byte{10, 0, 0, 1}, 7411)
	hb := wire.Heartbeat{FirstSN: 1, LastSN: 1}

	for i := 0; i < 5; i++ {
		s.Enqueue(Destination{Locator: loc, DestGuidPrefix: types.GuidPrefix{2}, Submessage: hb.Encode(binary.LittleEndian)})
	}
	batches := s.Flush()
	require.Greater(t, len(batches), 1)
	total := 0
	for _, b := range batches {
		_, subs, err := wire.DecodeMessage(b.Payload)
		require.NoError(t, err)
		for _, sm := range subs {
			if sm.Kind == wire.KindHeartbeat {
				total++
			}
		}
	}
	require.Equal(t, 5, total)
}
