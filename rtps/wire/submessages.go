package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/opendds-go/rtps/rtps/types"
)

// Flag bits beyond FlagEndianness, scoped per submessage kind.
const (
	DataFlagInlineQos byte = 0x02
	DataFlagData      byte = 0x04
	DataFlagKey       byte = 0x08

	GapFlagNone byte = 0x00

	HeartbeatFlagFinal      byte = 0x02
	HeartbeatFlagLiveliness byte = 0x04

	AckNackFlagFinal byte = 0x02

	InfoTSFlagInvalidate byte = 0x02

	InfoReplyFlagMulticast byte = 0x02
)

// Data is the DATA submessage: one CacheChange in flight (§3, §4.3).
type Data struct {
	ReaderId          types.EntityId
	WriterId          types.EntityId
	WriterSN          types.SequenceNumber
	InlineQos         *ParameterList
	SerializedPayload []byte // includes the 4-byte representation header when present
}

// Encode serializes the DATA submessage using order for its body.
func (d Data) Encode(order binary.ByteOrder) []byte {
	flags := endiannessFlag(order)
	if d.InlineQos != nil {
		flags |= DataFlagInlineQos
	}
	if len(d.SerializedPayload) > 0 {
		flags |= DataFlagData
	}

	head := make([]byte, 20)
	order.PutUint16(head[0:2], 0) // extraFlags, reserved
	// octetsToInlineQos is filled in below once we know the offset.
	rid := d.ReaderId.Bytes()
	wid := d.WriterId.Bytes()
	copy(head[4:8], rid[:])
	copy(head[8:12], wid[:])
	order.PutUint32(head[12:16], uint32(d.WriterSN.High()))
	order.PutUint32(head[16:20], d.WriterSN.Low())
	// octets_to_inline_qos is measured from right after that field (offset 4)
	// to the start of inline QoS / payload, i.e. the length of readerId+writerId+writerSN = 16.
	order.PutUint16(head[2:4], uint16(16))

	body := append([]byte{}, head...)
	if d.InlineQos != nil {
		body = append(body, d.InlineQos.Encode(order)...)
	}
	body = append(body, d.SerializedPayload...)
	return encodeSubmessage(KindData, flags, body)
}

// DecodeData parses a DATA submessage body.
func DecodeData(raw RawSubmessage) (Data, error) {
	order := raw.Order()
	buf := raw.Body
	if len(buf) < 20 {
		return Data{}, &MalformedSubmessage{Kind: KindData, Err: fmt.Errorf("short body (%d bytes)", len(buf))}
	}
	var rid, wid [4]byte
	copy(rid[:], buf[4:8])
	copy(wid[:], buf[8:12])
	high := int32(order.Uint32(buf[12:16]))
	low := order.Uint32(buf[16:20])
	d := Data{
		ReaderId: types.EntityIdFromBytes(rid),
		WriterId: types.EntityIdFromBytes(wid),
		WriterSN: types.SequenceNumberFromParts(high, low),
	}
	rest := buf[20:]
	if raw.Flags&DataFlagInlineQos != 0 {
		pl, err := DecodeParameterList(rest, order)
		if err != nil {
			return Data{}, &MalformedSubmessage{Kind: KindData, Err: err}
		}
		d.InlineQos = &pl
		consumed := len(pl.Encode(order))
		if consumed > len(rest) {
			consumed = len(rest)
		}
		rest = rest[consumed:]
	}
	if raw.Flags&DataFlagData != 0 || raw.Flags&DataFlagKey != 0 {
		d.SerializedPayload = append([]byte{}, rest...)
	}
	return d, nil
}

// Gap is the GAP submessage: tells a reader certain sequence numbers will
// never be sent (§3, §4.3).
type Gap struct {
	ReaderId types.EntityId
	WriterId types.EntityId
	GapStart types.SequenceNumber
	GapList  types.SequenceNumberSet
}

func (g Gap) Encode(order binary.ByteOrder) ([]byte, error) {
	flags := endiannessFlag(order)
	rid := g.ReaderId.Bytes()
	wid := g.WriterId.Bytes()
	body := make([]byte, 16)
	copy(body[0:4], rid[:])
	copy(body[4:8], wid[:])
	order.PutUint32(body[8:12], uint32(g.GapStart.High()))
	order.PutUint32(body[12:16], g.GapStart.Low())
	set, err := EncodeSequenceNumberSet(g.GapList, order)
	if err != nil {
		return nil, err
	}
	body = append(body, set...)
	return encodeSubmessage(KindGap, flags, body), nil
}

func DecodeGap(raw RawSubmessage) (Gap, error) {
	order := raw.Order()
	buf := raw.Body
	if len(buf) < 16 {
		return Gap{}, &MalformedSubmessage{Kind: KindGap, Err: fmt.Errorf("short body (%d bytes)", len(buf))}
	}
	var rid, wid [4]byte
	copy(rid[:], buf[0:4])
	copy(wid[:], buf[4:8])
	high := int32(order.Uint32(buf[8:12]))
	low := order.Uint32(buf[12:16])
	set, err := DecodeSequenceNumberSet(buf[16:], order)
	if err != nil {
		return Gap{}, &MalformedSubmessage{Kind: KindGap, Err: err}
	}
	return Gap{
		ReaderId: types.EntityIdFromBytes(rid),
		WriterId: types.EntityIdFromBytes(wid),
		GapStart: types.SequenceNumberFromParts(high, low),
		GapList:  set,
	}, nil
}

// Heartbeat announces a writer's available range to a reader (§4.3.3).
type Heartbeat struct {
	ReaderId types.EntityId
	WriterId types.EntityId
	FirstSN  types.SequenceNumber
	LastSN   types.SequenceNumber
	Count    uint32
	Final    bool
}

func (h Heartbeat) Encode(order binary.ByteOrder) []byte {
	flags := endiannessFlag(order)
	if h.Final {
		flags |= HeartbeatFlagFinal
	}
	rid := h.ReaderId.Bytes()
	wid := h.WriterId.Bytes()
	body := make([]byte, 28)
	copy(body[0:4], rid[:])
	copy(body[4:8], wid[:])
	order.PutUint32(body[8:12], uint32(h.FirstSN.High()))
	order.PutUint32(body[12:16], h.FirstSN.Low())
	order.PutUint32(body[16:20], uint32(h.LastSN.High()))
	order.PutUint32(body[20:24], h.LastSN.Low())
	order.PutUint32(body[24:28], h.Count)
	return encodeSubmessage(KindHeartbeat, flags, body)
}

func DecodeHeartbeat(raw RawSubmessage) (Heartbeat, error) {
	order := raw.Order()
	buf := raw.Body
	if len(buf) < 28 {
		return Heartbeat{}, &MalformedSubmessage{Kind: KindHeartbeat, Err: fmt.Errorf("short body (%d bytes)", len(buf))}
	}
	var rid, wid [4]byte
	copy(rid[:], buf[0:4])
	copy(wid[:], buf[4:8])
	firstHigh := int32(order.Uint32(buf[8:12]))
	firstLow := order.Uint32(buf[12:16])
	lastHigh := int32(order.Uint32(buf[16:20]))
	lastLow := order.Uint32(buf[20:24])
	count := order.Uint32(buf[24:28])
	return Heartbeat{
		ReaderId: types.EntityIdFromBytes(rid),
		WriterId: types.EntityIdFromBytes(wid),
		FirstSN:  types.SequenceNumberFromParts(firstHigh, firstLow),
		LastSN:   types.SequenceNumberFromParts(lastHigh, lastLow),
		Count:    count,
		Final:    raw.Flags&HeartbeatFlagFinal != 0,
	}, nil
}

// AckNack is a reader's acknowledgement/request for a writer's changes (§4.3.3).
type AckNack struct {
	ReaderId      types.EntityId
	WriterId      types.EntityId
	ReaderSNState types.SequenceNumberSet
	Count         uint32
	Final         bool
}

func (a AckNack) Encode(order binary.ByteOrder) ([]byte, error) {
	flags := endiannessFlag(order)
	if a.Final {
		flags |= AckNackFlagFinal
	}
	rid := a.ReaderId.Bytes()
	wid := a.WriterId.Bytes()
	body := make([]byte, 8)
	copy(body[0:4], rid[:])
	copy(body[4:8], wid[:])
	set, err := EncodeSequenceNumberSet(a.ReaderSNState, order)
	if err != nil {
		return nil, err
	}
	body = append(body, set...)
	countBuf := make([]byte, 4)
	order.PutUint32(countBuf, a.Count)
	body = append(body, countBuf...)
	return encodeSubmessage(KindAckNack, flags, body), nil
}

func DecodeAckNack(raw RawSubmessage) (AckNack, error) {
	order := raw.Order()
	buf := raw.Body
	if len(buf) < 8 {
		return AckNack{}, &MalformedSubmessage{Kind: KindAckNack, Err: fmt.Errorf("short body (%d bytes)", len(buf))}
	}
	var rid, wid [4]byte
	copy(rid[:], buf[0:4])
	copy(wid[:], buf[4:8])
	set, err := DecodeSequenceNumberSet(buf[8:], order)
	if err != nil {
		return AckNack{}, &MalformedSubmessage{Kind: KindAckNack, Err: err}
	}
	numBits := int(order.Uint32(buf[8+8 : 8+12]))
	consumed := 8 + EncodedSequenceNumberSetLength(numBits)
	if consumed+4 > len(buf) {
		return AckNack{}, &MalformedSubmessage{Kind: KindAckNack, Err: fmt.Errorf("missing count field")}
	}
	count := order.Uint32(buf[consumed : consumed+4])
	return AckNack{
		ReaderId:      types.EntityIdFromBytes(rid),
		WriterId:      types.EntityIdFromBytes(wid),
		ReaderSNState: set,
		Count:         count,
		Final:         raw.Flags&AckNackFlagFinal != 0,
	}, nil
}

// InfoTS carries (or invalidates) the timestamp for subsequent submessages (§4.4).
type InfoTS struct {
	Timestamp  types.Time
	Invalidate bool
}

func (i InfoTS) Encode(order binary.ByteOrder) []byte {
	flags := endiannessFlag(order)
	if i.Invalidate {
		flags |= InfoTSFlagInvalidate
		return encodeSubmessage(KindInfoTS, flags, nil)
	}
	body := make([]byte, 8)
	order.PutUint32(body[0:4], i.Timestamp.Seconds)
	order.PutUint32(body[4:8], i.Timestamp.Fraction)
	return encodeSubmessage(KindInfoTS, flags, body)
}

func DecodeInfoTS(raw RawSubmessage) (InfoTS, error) {
	if raw.Flags&InfoTSFlagInvalidate != 0 {
		return InfoTS{Invalidate: true}, nil
	}
	order := raw.Order()
	if len(raw.Body) < 8 {
		return InfoTS{}, &MalformedSubmessage{Kind: KindInfoTS, Err: fmt.Errorf("short body (%d bytes)", len(raw.Body))}
	}
	return InfoTS{Timestamp: types.Time{
		Seconds:  order.Uint32(raw.Body[0:4]),
		Fraction: order.Uint32(raw.Body[4:8]),
	}}, nil
}

// InfoDst overrides the destination guid prefix for subsequent submessages (§4.4).
type InfoDst struct {
	GuidPrefix types.GuidPrefix
}

func (i InfoDst) Encode(order binary.ByteOrder) []byte {
	flags := endiannessFlag(order)
	return encodeSubmessage(KindInfoDst, flags, i.GuidPrefix[:])
}

func DecodeInfoDst(raw RawSubmessage) (InfoDst, error) {
	if len(raw.Body) < types.GuidPrefixLength {
		return InfoDst{}, &MalformedSubmessage{Kind: KindInfoDst, Err: fmt.Errorf("short body (%d bytes)", len(raw.Body))}
	}
	var p types.GuidPrefix
	copy(p[:], raw.Body[:types.GuidPrefixLength])
	return InfoDst{GuidPrefix: p}, nil
}

// InfoSrc overrides the source version/vendor/prefix for subsequent submessages (§4.4).
type InfoSrc struct {
	Version    ProtocolVersion
	VendorId   VendorId
	GuidPrefix types.GuidPrefix
}

func (i InfoSrc) Encode(order binary.ByteOrder) []byte {
	flags := endiannessFlag(order)
	body := make([]byte, 4+2+2+types.GuidPrefixLength)
	// first 4 bytes reserved/unused
	body[4] = i.Version.Major
	body[5] = i.Version.Minor
	body[6] = i.VendorId[0]
	body[7] = i.VendorId[1]
	copy(body[8:], i.GuidPrefix[:])
	return encodeSubmessage(KindInfoSrc, flags, body)
}

func DecodeInfoSrc(raw RawSubmessage) (InfoSrc, error) {
	if len(raw.Body) < 8+types.GuidPrefixLength {
		return InfoSrc{}, &MalformedSubmessage{Kind: KindInfoSrc, Err: fmt.Errorf("short body (%d bytes)", len(raw.Body))}
	}
	var p types.GuidPrefix
	copy(p[:], raw.Body[8:8+types.GuidPrefixLength])
	return InfoSrc{
		Version:    ProtocolVersion{Major: raw.Body[4], Minor: raw.Body[5]},
		VendorId:   VendorId{raw.Body[6], raw.Body[7]},
		GuidPrefix: p,
	}, nil
}

// LocatorEncodedLength is the fixed wire size of one Locator (§3).
const LocatorEncodedLength = 24

func encodeLocator(l types.Locator, order binary.ByteOrder) []byte {
	buf := make([]byte, LocatorEncodedLength)
	order.PutUint32(buf[0:4], uint32(l.Kind))
	order.PutUint32(buf[4:8], l.Port)
	copy(buf[8:24], l.Address[:])
	return buf
}

func decodeLocator(buf []byte, order binary.ByteOrder) (types.Locator, error) {
	if len(buf) < LocatorEncodedLength {
		return types.Locator{}, fmt.Errorf("short locator (%d bytes)", len(buf))
	}
	var addr [16]byte
	copy(addr[:], buf[8:24])
	return types.Locator{
		Kind:    types.LocatorKind(int32(order.Uint32(buf[0:4]))),
		Port:    order.Uint32(buf[4:8]),
		Address: addr,
	}, nil
}

func encodeLocatorList(locs []types.Locator, order binary.ByteOrder) []byte {
	buf := make([]byte, 4)
	order.PutUint32(buf, uint32(len(locs)))
	for _, l := range locs {
		buf = append(buf, encodeLocator(l, order)...)
	}
	return buf
}

func decodeLocatorList(buf []byte, order binary.ByteOrder) ([]types.Locator, int, error) {
	if len(buf) < 4 {
		return nil, 0, fmt.Errorf("short locator list count (%d bytes)", len(buf))
	}
	count := int(order.Uint32(buf[0:4]))
	consumed := 4
	locs := make([]types.Locator, 0, count)
	for i := 0; i < count; i++ {
		l, err := decodeLocator(buf[consumed:], order)
		if err != nil {
			return nil, 0, err
		}
		locs = append(locs, l)
		consumed += LocatorEncodedLength
	}
	return locs, consumed, nil
}

// InfoReply overrides the reply locators for subsequent submessages (§4.4).
type InfoReply struct {
	UnicastLocatorList   []types.Locator
	MulticastLocatorList []types.Locator // present only if HasMulticast
	HasMulticast         bool
}

func (i InfoReply) Encode(order binary.ByteOrder) []byte {
	flags := endiannessFlag(order)
	if i.HasMulticast {
		flags |= InfoReplyFlagMulticast
	}
	body := encodeLocatorList(i.UnicastLocatorList, order)
	if i.HasMulticast {
		body = append(body, encodeLocatorList(i.MulticastLocatorList, order)...)
	}
	return encodeSubmessage(KindInfoReply, flags, body)
}

func DecodeInfoReply(raw RawSubmessage) (InfoReply, error) {
	order := raw.Order()
	ucast, consumed, err := decodeLocatorList(raw.Body, order)
	if err != nil {
		return InfoReply{}, &MalformedSubmessage{Kind: KindInfoReply, Err: err}
	}
	out := InfoReply{UnicastLocatorList: ucast}
	if raw.Flags&InfoReplyFlagMulticast != 0 {
		mcast, _, err := decodeLocatorList(raw.Body[consumed:], order)
		if err != nil {
			return InfoReply{}, &MalformedSubmessage{Kind: KindInfoReply, Err: err}
		}
		out.MulticastLocatorList = mcast
		out.HasMulticast = true
	}
	return out, nil
}

// HeartbeatFrag tells a reader how many fragments of a DATA_FRAG sample
// have been sent so far (§3).
type HeartbeatFrag struct {
	ReaderId           types.EntityId
	WriterId           types.EntityId
	WriterSN           types.SequenceNumber
	LastFragmentNumber uint32
	Count              uint32
}

func (h HeartbeatFrag) Encode(order binary.ByteOrder) []byte {
	flags := endiannessFlag(order)
	rid := h.ReaderId.Bytes()
	wid := h.WriterId.Bytes()
	body := make([]byte, 24)
	copy(body[0:4], rid[:])
	copy(body[4:8], wid[:])
	order.PutUint32(body[8:12], uint32(h.WriterSN.High()))
	order.PutUint32(body[12:16], h.WriterSN.Low())
	order.PutUint32(body[16:20], h.LastFragmentNumber)
	order.PutUint32(body[20:24], h.Count)
	return encodeSubmessage(KindHeartbeatFrag, flags, body)
}

func DecodeHeartbeatFrag(raw RawSubmessage) (HeartbeatFrag, error) {
	order := raw.Order()
	buf := raw.Body
	if len(buf) < 24 {
		return HeartbeatFrag{}, &MalformedSubmessage{Kind: KindHeartbeatFrag, Err: fmt.Errorf("short body (%d bytes)", len(buf))}
	}
	var rid, wid [4]byte
	copy(rid[:], buf[0:4])
	copy(wid[:], buf[4:8])
	high := int32(order.Uint32(buf[8:12]))
	low := order.Uint32(buf[12:16])
	return HeartbeatFrag{
		ReaderId:           types.EntityIdFromBytes(rid),
		WriterId:           types.EntityIdFromBytes(wid),
		WriterSN:           types.SequenceNumberFromParts(high, low),
		LastFragmentNumber: order.Uint32(buf[16:20]),
		Count:              order.Uint32(buf[20:24]),
	}, nil
}

// NackFrag requests retransmission of specific fragments of one sample (§3).
type NackFrag struct {
	ReaderId            types.EntityId
	WriterId            types.EntityId
	WriterSN            types.SequenceNumber
	FragmentNumberState types.SequenceNumberSet // base/members reused to index fragment numbers
	Count               uint32
}

func (n NackFrag) Encode(order binary.ByteOrder) ([]byte, error) {
	flags := endiannessFlag(order)
	rid := n.ReaderId.Bytes()
	wid := n.WriterId.Bytes()
	body := make([]byte, 16)
	copy(body[0:4], rid[:])
	copy(body[4:8], wid[:])
	order.PutUint32(body[8:12], uint32(n.WriterSN.High()))
	order.PutUint32(body[12:16], n.WriterSN.Low())
	set, err := EncodeSequenceNumberSet(n.FragmentNumberState, order)
	if err != nil {
		return nil, err
	}
	body = append(body, set...)
	countBuf := make([]byte, 4)
	order.PutUint32(countBuf, n.Count)
	body = append(body, countBuf...)
	return encodeSubmessage(KindNackFrag, flags, body), nil
}

func DecodeNackFrag(raw RawSubmessage) (NackFrag, error) {
	order := raw.Order()
	buf := raw.Body
	if len(buf) < 16 {
		return NackFrag{}, &MalformedSubmessage{Kind: KindNackFrag, Err: fmt.Errorf("short body (%d bytes)", len(buf))}
	}
	var rid, wid [4]byte
	copy(rid[:], buf[0:4])
	copy(wid[:], buf[4:8])
	high := int32(order.Uint32(buf[8:12]))
	low := order.Uint32(buf[12:16])
	set, err := DecodeSequenceNumberSet(buf[16:], order)
	if err != nil {
		return NackFrag{}, &MalformedSubmessage{Kind: KindNackFrag, Err: err}
	}
	numBits := int(order.Uint32(buf[16+8 : 16+12]))
	consumed := 16 + EncodedSequenceNumberSetLength(numBits)
	if consumed+4 > len(buf) {
		return NackFrag{}, &MalformedSubmessage{Kind: KindNackFrag, Err: fmt.Errorf("missing count field")}
	}
	count := order.Uint32(buf[consumed : consumed+4])
	return NackFrag{
		ReaderId:            types.EntityIdFromBytes(rid),
		WriterId:            types.EntityIdFromBytes(wid),
		WriterSN:            types.SequenceNumberFromParts(high, low),
		FragmentNumberState: set,
		Count:               count,
	}, nil
}

// DataFrag is one fragment of a serialized payload too large for a single
// DATA submessage (§3). Fragmentation reassembly itself is out of scope
// per spec.md §1; this type exists so the codec can round-trip it.
type DataFrag struct {
	ReaderId              types.EntityId
	WriterId              types.EntityId
	WriterSN              types.SequenceNumber
	FragmentStartingNum   uint32
	FragmentsInSubmessage uint16
	FragmentSize          uint16
	SampleSize            uint32
	InlineQos             *ParameterList
	FragmentData          []byte
}

func (d DataFrag) Encode(order binary.ByteOrder) []byte {
	flags := endiannessFlag(order)
	if d.InlineQos != nil {
		flags |= DataFlagInlineQos
	}
	head := make([]byte, 28)
	order.PutUint16(head[0:2], 0) // extraFlags
	rid := d.ReaderId.Bytes()
	wid := d.WriterId.Bytes()
	copy(head[4:8], rid[:])
	copy(head[8:12], wid[:])
	order.PutUint32(head[12:16], uint32(d.WriterSN.High()))
	order.PutUint32(head[16:20], d.WriterSN.Low())
	order.PutUint32(head[20:24], d.FragmentStartingNum)
	order.PutUint16(head[24:26], d.FragmentsInSubmessage)
	order.PutUint16(head[26:28], d.FragmentSize)
	order.PutUint16(head[2:4], uint16(28)) // octetsToInlineQos from after that field

	body := append([]byte{}, head...)
	sampleSizeBuf := make([]byte, 4)
	order.PutUint32(sampleSizeBuf, d.SampleSize)
	body = append(body, sampleSizeBuf...)
	if d.InlineQos != nil {
		body = append(body, d.InlineQos.Encode(order)...)
	}
	body = append(body, d.FragmentData...)
	return encodeSubmessage(KindDataFrag, flags, body)
}

func DecodeDataFrag(raw RawSubmessage) (DataFrag, error) {
	order := raw.Order()
	buf := raw.Body
	if len(buf) < 32 {
		return DataFrag{}, &MalformedSubmessage{Kind: KindDataFrag, Err: fmt.Errorf("short body (%d bytes)", len(buf))}
	}
	var rid, wid [4]byte
	copy(rid[:], buf[4:8])
	copy(wid[:], buf[8:12])
	high := int32(order.Uint32(buf[12:16]))
	low := order.Uint32(buf[16:20])
	d := DataFrag{
		ReaderId:              types.EntityIdFromBytes(rid),
		WriterId:              types.EntityIdFromBytes(wid),
		WriterSN:              types.SequenceNumberFromParts(high, low),
		FragmentStartingNum:   order.Uint32(buf[20:24]),
		FragmentsInSubmessage: order.Uint16(buf[24:26]),
		FragmentSize:          order.Uint16(buf[26:28]),
		SampleSize:            order.Uint32(buf[28:32]),
	}
	rest := buf[32:]
	if raw.Flags&DataFlagInlineQos != 0 {
		pl, err := DecodeParameterList(rest, order)
		if err != nil {
			return DataFrag{}, &MalformedSubmessage{Kind: KindDataFrag, Err: err}
		}
		d.InlineQos = &pl
		consumed := len(pl.Encode(order))
		if consumed > len(rest) {
			consumed = len(rest)
		}
		rest = rest[consumed:]
	}
	d.FragmentData = append([]byte{}, rest...)
	return d, nil
}

// Pad is a no-op submessage used for alignment; its body is opaque padding.
type Pad struct {
	Padding []byte
}

func (p Pad) Encode(order binary.ByteOrder) []byte {
	return encodeSubmessage(KindPad, endiannessFlag(order), p.Padding)
}

func DecodePad(raw RawSubmessage) Pad {
	return Pad{Padding: append([]byte{}, raw.Body...)}
}
