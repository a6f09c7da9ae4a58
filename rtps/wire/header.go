// Package wire implements bit-exact encode/decode of RTPS messages and
// submessages (§4.1). Every function here is pure: no I/O, no locking —
// the receiver/sender packages own transport concerns.
package wire

import (
	"fmt"

	"github.com/opendds-go/rtps/rtps/types"
)

// ProtocolId is the fixed 4-byte magic "RTPS" that opens every message.
var ProtocolId = [4]byte{'R', 'T', 'P', 'S'}

// ProtocolVersion is the (major, minor) RTPS protocol version this codec speaks.
type ProtocolVersion struct {
	Major uint8
	Minor uint8
}

// ProtocolVersion24 is DDSI-RTPS 2.4, the version this engine targets.
var ProtocolVersion24 = ProtocolVersion{Major: 2, Minor: 4}

// VendorId identifies the implementation that produced a message.
type VendorId [2]byte

// VendorIdThis is the vendor id allocated for this implementation (§6).
var VendorIdThis = VendorId{0x01, 0x14}

// HeaderLength is the fixed size in bytes of the RTPS message header (§3).
const HeaderLength = 20

// MessageHeader is the 20-byte header prefixing every RTPS datagram.
type MessageHeader struct {
	Version    ProtocolVersion
	VendorId   VendorId
	GuidPrefix types.GuidPrefix
}

// Encode writes the fixed 20-byte header. The magic, version, vendor id and
// guid prefix are byte arrays and therefore endianness-neutral, matching
// §4.1's note that the header's numeric fields are "little-endian-native
// by convention" only in the sense that there are no multi-byte integers
// to reorder.
func (h MessageHeader) Encode() []byte {
	buf := make([]byte, HeaderLength)
	copy(buf[0:4], ProtocolId[:])
	buf[4] = h.Version.Major
	buf[5] = h.Version.Minor
	buf[6] = h.VendorId[0]
	buf[7] = h.VendorId[1]
	copy(buf[8:20], h.GuidPrefix[:])
	return buf
}

// DecodeHeader parses the fixed 20-byte header from the front of buf.
func DecodeHeader(buf []byte) (MessageHeader, error) {
	if len(buf) < HeaderLength {
		return MessageHeader{}, fmt.Errorf("wire: short buffer for message header: %d bytes", len(buf))
	}
	if buf[0] != ProtocolId[0] || buf[1] != ProtocolId[1] || buf[2] != ProtocolId[2] || buf[3] != ProtocolId[3] {
		return MessageHeader{}, fmt.Errorf("wire: bad protocol id %q", buf[0:4])
	}
	var h MessageHeader
	h.Version = ProtocolVersion{Major: buf[4], Minor: buf[5]}
	h.VendorId = VendorId{buf[6], buf[7]}
	copy(h.GuidPrefix[:], buf[8:20])
	return h, nil
}
