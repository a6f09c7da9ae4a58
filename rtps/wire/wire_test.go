package wire

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendds-go/rtps/rtps/types"
)

func TestSequenceNumberSetRoundTripEmpty(t *testing.T) {
	s := types.NewSequenceNumberSet(1)
	buf, err := EncodeSequenceNumberSet(s, binary.BigEndian)
	require.NoError(t, err)
	require.Len(t, buf, 12) // base(8) + num_bits(4), no bitmap words

	got, err := DecodeSequenceNumberSet(buf, binary.BigEndian)
	require.NoError(t, err)
	require.True(t, got.Empty())
	require.Equal(t, s.Base, got.Base)
}

func TestSequenceNumberSetRoundTripSpanning256(t *testing.T) {
	s := types.NewSequenceNumberSet(2)
	s.Add(2)
	s.Add(257)
	buf, err := EncodeSequenceNumberSet(s, binary.BigEndian)
	require.NoError(t, err)
	require.Len(t, buf, 44) // 12 + 8 words * 4 bytes

	got, err := DecodeSequenceNumberSet(buf, binary.BigEndian)
	require.NoError(t, err)
	require.True(t, got.Has(2))
	require.True(t, got.Has(257))
	require.Len(t, got.Members, 2)
}

func TestSequenceNumberSetRoundTripFuzzLike(t *testing.T) {
	for base := types.SequenceNumber(1); base < 5; base++ {
		for span := 0; span < 256; span += 17 {
			s := types.NewSequenceNumberSet(base)
			for i := 0; i <= span; i += 3 {
				s.Add(base + types.SequenceNumber(i))
			}
			buf, err := EncodeSequenceNumberSet(s, binary.LittleEndian)
			require.NoError(t, err)
			got, err := DecodeSequenceNumberSet(buf, binary.LittleEndian)
			require.NoError(t, err)
			require.Equal(t, len(s.Members), len(got.Members))
			for n := range s.Members {
				require.True(t, got.Has(n))
			}
		}
	}
}

func TestParameterListRoundTrip(t *testing.T) {
	var pl ParameterList
	pl.Add(PIDTopicName, []byte("Temp"))       // 4 bytes, already aligned
	pl.Add(PIDTypeName, []byte("Sensor2\x00")) // 8 bytes, already aligned

	buf := pl.Encode(binary.BigEndian)
	got, err := DecodeParameterList(buf, binary.BigEndian)
	require.NoError(t, err)
	require.Equal(t, pl, got)
}

func TestParameterListEmptyIsOnlySentinel(t *testing.T) {
	var pl ParameterList
	buf := pl.Encode(binary.BigEndian)
	require.Len(t, buf, 4)
	got, err := DecodeParameterList(buf, binary.BigEndian)
	require.NoError(t, err)
	require.Empty(t, got.Parameters)
}

func TestMessageRoundTripZeroSubmessages(t *testing.T) {
	header := MessageHeader{Version: ProtocolVersion24, VendorId: VendorIdThis}
	buf := EncodeMessage(header, nil)
	require.Len(t, buf, HeaderLength)

	gotHeader, subs, err := DecodeMessage(buf)
	require.NoError(t, err)
	require.Equal(t, header, gotHeader)
	require.Empty(t, subs)
}

func TestMessageRoundTripWithSubmessages(t *testing.T) {
	header := MessageHeader{Version: ProtocolVersion24, VendorId: VendorIdThis}
	hb := Heartbeat{
		ReaderId: types.EntityIdUnknown,
		WriterId: types.EntityIdSEDPBuiltinPublicationsWriter,
		FirstSN:  1,
		LastSN:   3,
		Count:    1,
	}
	ts := InfoTS{Timestamp: types.Time{Seconds: 100, Fraction: 0}}

	buf := EncodeMessage(header, [][]byte{ts.Encode(binary.LittleEndian), hb.Encode(binary.LittleEndian)})
	gotHeader, subs, err := DecodeMessage(buf)
	require.NoError(t, err)
	require.Equal(t, header, gotHeader)
	require.Len(t, subs, 2)
	require.Equal(t, KindInfoTS, subs[0].Kind)
	require.Equal(t, KindHeartbeat, subs[1].Kind)

	gotHb, err := DecodeHeartbeat(subs[1])
	require.NoError(t, err)
	require.Equal(t, hb, gotHb)

	gotTs, err := DecodeInfoTS(subs[0])
	require.NoError(t, err)
	require.Equal(t, ts, gotTs)
}

func TestOctetsToNextHeaderZeroConsumesRest(t *testing.T) {
	// Build a datagram by hand: one submessage header declaring
	// octets_to_next_header = 0, followed by arbitrary trailing bytes.
	header := MessageHeader{Version: ProtocolVersion24, VendorId: VendorIdThis}
	buf := header.Encode()
	buf = append(buf, byte(KindPad), FlagEndianness, 0, 0)
	buf = append(buf, []byte{1, 2, 3, 4, 5}...)

	_, subs, err := DecodeMessage(buf)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, []byte{1, 2, 3, 4, 5}, subs[0].Body)
}

func TestUnknownSubmessageKindIsSkippable(t *testing.T) {
	header := MessageHeader{Version: ProtocolVersion24, VendorId: VendorIdThis}
	buf := header.Encode()
	// Unknown kind 0x7f, 4 bytes of body, then a real HEARTBEAT.
	buf = append(buf, 0x7f, FlagEndianness, 4, 0)
	buf = append(buf, []byte{9, 9, 9, 9}...)
	hb := Heartbeat{WriterId: types.EntityIdSEDPBuiltinPublicationsWriter, FirstSN: 1, LastSN: 0}
	buf = append(buf, hb.Encode(binary.LittleEndian)...)

	_, subs, err := DecodeMessage(buf)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.Equal(t, SubmessageKind(0x7f), subs[0].Kind)
	require.Equal(t, KindHeartbeat, subs[1].Kind)
}

func TestMalformedSubmessageTruncatesOnlyCurrent(t *testing.T) {
	header := MessageHeader{Version: ProtocolVersion24, VendorId: VendorIdThis}
	buf := header.Encode()
	// Declares 100 octets but supplies none.
	buf = append(buf, byte(KindGap), FlagEndianness, 100, 0)

	_, subs, err := DecodeMessage(buf)
	require.Error(t, err)
	require.Empty(t, subs)
	var malformed *MalformedSubmessage
	require.ErrorAs(t, err, &malformed)
}

func TestHeartbeatFirstGreaterThanLastIsLegal(t *testing.T) {
	hb := Heartbeat{FirstSN: 1, LastSN: 0, Count: 1}
	buf := hb.Encode(binary.BigEndian)
	raw := RawSubmessage{Kind: KindHeartbeat, Flags: 0, Body: buf[submsgHeaderLength:]}
	got, err := DecodeHeartbeat(raw)
	require.NoError(t, err)
	require.Equal(t, hb.FirstSN, got.FirstSN)
	require.Equal(t, hb.LastSN, got.LastSN)
}

func TestAckNackRoundTrip(t *testing.T) {
	set := types.NewSequenceNumberSet(2)
	set.Add(2)
	set.Add(5)
	an := AckNack{
		ReaderId:      types.EntityIdSEDPBuiltinPublicationsReader,
		WriterId:      types.EntityIdSEDPBuiltinPublicationsWriter,
		ReaderSNState: set,
		Count:         7,
		Final:         true,
	}
	buf, err := an.Encode(binary.LittleEndian)
	require.NoError(t, err)
	raw := RawSubmessage{Kind: KindAckNack, Flags: buf[1], Body: buf[submsgHeaderLength:]}
	got, err := DecodeAckNack(raw)
	require.NoError(t, err)
	require.Equal(t, an.ReaderId, got.ReaderId)
	require.Equal(t, an.WriterId, got.WriterId)
	require.Equal(t, an.Count, got.Count)
	require.True(t, got.Final)
	require.Equal(t, len(an.ReaderSNState.Members), len(got.ReaderSNState.Members))
}

func TestGapRoundTrip(t *testing.T) {
	set := types.NewSequenceNumberSet(5)
	set.Add(5)
	g := Gap{
		ReaderId: types.EntityIdUnknown,
		WriterId: types.EntityIdSEDPBuiltinSubscriptionsWriter,
		GapStart: 4,
		GapList:  set,
	}
	buf, err := g.Encode(binary.BigEndian)
	require.NoError(t, err)
	raw := RawSubmessage{Kind: KindGap, Flags: buf[1], Body: buf[submsgHeaderLength:]}
	got, err := DecodeGap(raw)
	require.NoError(t, err)
	require.Equal(t, g.WriterId, got.WriterId)
	require.Equal(t, g.GapStart, got.GapStart)
	require.True(t, got.GapList.Has(5))
}

func TestDataRoundTripWithInlineQosAndPayload(t *testing.T) {
	var qos ParameterList
	qos.Add(PIDStatusInfo, []byte{0, 0, 0, 0})
	payload := append(EncodePayloadHeader(ReprCDR_LE, 0), []byte("hello, dds!")...)
	d := Data{
		ReaderId:          types.EntityIdUnknown,
		WriterId:          types.EntityIdSEDPBuiltinPublicationsWriter,
		WriterSN:          42,
		InlineQos:         &qos,
		SerializedPayload: payload,
	}
	buf := d.Encode(binary.LittleEndian)
	raw := RawSubmessage{Kind: KindData, Flags: buf[1], Body: buf[submsgHeaderLength:]}
	got, err := DecodeData(raw)
	require.NoError(t, err)
	require.Equal(t, d.WriterId, got.WriterId)
	require.Equal(t, d.WriterSN, got.WriterSN)
	require.Equal(t, d.SerializedPayload, got.SerializedPayload)
	require.NotNil(t, got.InlineQos)
	require.Equal(t, qos, *got.InlineQos)
}

func TestInfoReplyRoundTripWithMulticast(t *testing.T) {
	uni := []types.Locator{types.NewUDPv4Locator([]byte{10, 0, 0, 1}, 7411)}
	multi := []types.Locator{types.NewUDPv4Locator([]byte{239, 255, 0, 1}, 7400)}
	ir := InfoReply{UnicastLocatorList: uni, MulticastLocatorList: multi, HasMulticast: true}
	buf := ir.Encode(binary.BigEndian)
	raw := RawSubmessage{Kind: KindInfoReply, Flags: buf[1], Body: buf[submsgHeaderLength:]}
	got, err := DecodeInfoReply(raw)
	require.NoError(t, err)
	require.Equal(t, uni, got.UnicastLocatorList)
	require.Equal(t, multi, got.MulticastLocatorList)
	require.True(t, got.HasMulticast)
}
