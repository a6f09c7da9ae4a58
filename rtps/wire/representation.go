package wire

import (
	"encoding/binary"
	"fmt"
)

// RepresentationId is the 2-byte serialized-payload representation
// identifier (§4.1, §6).
type RepresentationId uint16

const (
	ReprCDR_BE    RepresentationId = 0x0000
	ReprCDR_LE    RepresentationId = 0x0001
	ReprPLCDR_BE  RepresentationId = 0x0002
	ReprPLCDR_LE  RepresentationId = 0x0003
	ReprXCDR2_BE  RepresentationId = 0x0006
	ReprXCDR2_LE  RepresentationId = 0x0007
	ReprDXCDR2_BE RepresentationId = 0x0008
	ReprDXCDR2_LE RepresentationId = 0x0009
)

// SerializedPayloadHeaderLength is the 4-byte header (2-byte id, 2-byte
// options) prefixing a serialized payload.
const SerializedPayloadHeaderLength = 4

// EncodePayloadHeader builds the 4-byte representation header; options is
// usually zero.
func EncodePayloadHeader(repr RepresentationId, options uint16) []byte {
	buf := make([]byte, SerializedPayloadHeaderLength)
	binary.BigEndian.PutUint16(buf[0:2], uint16(repr))
	binary.BigEndian.PutUint16(buf[2:4], options)
	return buf
}

// DecodePayloadHeader parses the 4-byte representation header.
func DecodePayloadHeader(buf []byte) (RepresentationId, uint16, error) {
	if len(buf) < SerializedPayloadHeaderLength {
		return 0, 0, fmt.Errorf("wire: serialized payload header truncated (%d bytes)", len(buf))
	}
	repr := RepresentationId(binary.BigEndian.Uint16(buf[0:2]))
	options := binary.BigEndian.Uint16(buf[2:4])
	return repr, options, nil
}

// ByteOrder returns the byte order implied by a representation id's
// _LE/_BE suffix.
func (r RepresentationId) ByteOrder() binary.ByteOrder {
	switch r {
	case ReprCDR_LE, ReprPLCDR_LE, ReprXCDR2_LE, ReprDXCDR2_LE:
		return binary.LittleEndian
	default:
		return binary.BigEndian
	}
}

// IsParameterList reports whether the representation is one of the
// PL_CDR variants used for inline QoS and discovery data.
func (r RepresentationId) IsParameterList() bool {
	return r == ReprPLCDR_BE || r == ReprPLCDR_LE
}
