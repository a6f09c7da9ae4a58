package wire

import (
	"encoding/binary"
	"fmt"
)

// SubmessageKind identifies the type of a submessage (§3).
type SubmessageKind uint8

const (
	KindPad           SubmessageKind = 0x01
	KindAckNack       SubmessageKind = 0x06
	KindHeartbeat     SubmessageKind = 0x07
	KindGap           SubmessageKind = 0x08
	KindInfoTS        SubmessageKind = 0x09
	KindInfoSrc       SubmessageKind = 0x0c
	KindInfoDst       SubmessageKind = 0x0e
	KindInfoReply     SubmessageKind = 0x0f
	KindNackFrag      SubmessageKind = 0x12
	KindHeartbeatFrag SubmessageKind = 0x13
	KindData          SubmessageKind = 0x15
	KindDataFrag      SubmessageKind = 0x16
)

func (k SubmessageKind) String() string {
	switch k {
	case KindPad:
		return "PAD"
	case KindAckNack:
		return "ACKNACK"
	case KindHeartbeat:
		return "HEARTBEAT"
	case KindGap:
		return "GAP"
	case KindInfoTS:
		return "INFO_TS"
	case KindInfoSrc:
		return "INFO_SRC"
	case KindInfoDst:
		return "INFO_DST"
	case KindInfoReply:
		return "INFO_REPLY"
	case KindNackFrag:
		return "NACK_FRAG"
	case KindHeartbeatFrag:
		return "HEARTBEAT_FRAG"
	case KindData:
		return "DATA"
	case KindDataFrag:
		return "DATA_FRAG"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(k))
	}
}

// FlagEndianness is bit 0 of a submessage's flags byte: set means the
// submessage body is little-endian.
const FlagEndianness byte = 0x01

// submsgHeaderLength is the fixed 4-byte submessage header.
const submsgHeaderLength = 4

func byteOrder(flags byte) binary.ByteOrder {
	if flags&FlagEndianness != 0 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func endiannessFlag(order binary.ByteOrder) byte {
	if order == binary.LittleEndian {
		return FlagEndianness
	}
	return 0
}

// MalformedSubmessage is returned when a submessage body cannot be parsed
// within its declared octets_to_next_header. Per §4.1 this aborts only the
// current submessage.
type MalformedSubmessage struct {
	Kind SubmessageKind
	Err  error
}

func (e *MalformedSubmessage) Error() string {
	return fmt.Sprintf("wire: malformed %s submessage: %v", e.Kind, e.Err)
}

func (e *MalformedSubmessage) Unwrap() error { return e.Err }

// RawSubmessage is a decoded-but-not-yet-interpreted submessage: its kind,
// flags and body bytes (exactly octets_to_next_header long, or the rest of
// the datagram if that field was zero). Unknown kinds stop here.
type RawSubmessage struct {
	Kind  SubmessageKind
	Flags byte
	Body  []byte
}

func (r RawSubmessage) Order() binary.ByteOrder { return byteOrder(r.Flags) }

func (r RawSubmessage) LittleEndian() bool { return r.Flags&FlagEndianness != 0 }

// encodeSubmessage prepends the 4-byte submessage header to body and
// returns the full bytes for this submessage, including any padding body
// already applied by the caller.
func encodeSubmessage(kind SubmessageKind, flags byte, body []byte) []byte {
	out := make([]byte, submsgHeaderLength+len(body))
	out[0] = byte(kind)
	out[1] = flags
	order := byteOrder(flags)
	order.PutUint16(out[2:4], uint16(len(body)))
	copy(out[4:], body)
	return out
}
