package wire

import (
	"encoding/binary"
	"fmt"
)

// ParameterId identifies a tagged value in a ParameterList (§3, §6).
type ParameterId uint16

// Parameter ids used by discovery data and inline QoS (§6 subset).
const (
	PIDPad                         ParameterId = 0x0000
	PIDSentinel                    ParameterId = 0x0001
	PIDParticipantLeaseDuration    ParameterId = 0x0002
	PIDTopicName                   ParameterId = 0x0005
	PIDTypeName                    ParameterId = 0x0007
	PIDProtocolVersion             ParameterId = 0x0015
	PIDVendorId                    ParameterId = 0x0016
	PIDReliability                 ParameterId = 0x001a
	PIDLiveliness                  ParameterId = 0x001b
	PIDDurability                  ParameterId = 0x001d
	PIDDeadline                    ParameterId = 0x0023
	PIDUnicastLocator              ParameterId = 0x002f
	PIDMulticastLocator            ParameterId = 0x0030
	PIDDefaultUnicastLocator       ParameterId = 0x0031
	PIDMetatrafficUnicastLocator   ParameterId = 0x0032
	PIDMetatrafficMulticastLocator ParameterId = 0x0033
	PIDParticipantGuid             ParameterId = 0x0050
	PIDEndpointGuid                ParameterId = 0x005a
	PIDBuiltinEndpointSet          ParameterId = 0x0058
	PIDStatusInfo                  ParameterId = 0x0071
	PIDKeyHash                     ParameterId = 0x0070
)

// Parameter is one tagged, length-prefixed entry of a ParameterList.
type Parameter struct {
	Id    ParameterId
	Value []byte
}

// ParameterList is a self-describing sequence of Parameters terminated by
// PID_SENTINEL (§3, §4.1).
type ParameterList struct {
	Parameters []Parameter
}

func (pl *ParameterList) Get(id ParameterId) (Parameter, bool) {
	for _, p := range pl.Parameters {
		if p.Id == id {
			return p, true
		}
	}
	return Parameter{}, false
}

func (pl *ParameterList) Add(id ParameterId, value []byte) {
	pl.Parameters = append(pl.Parameters, Parameter{Id: id, Value: value})
}

func pad4(n int) int {
	rem := n % 4
	if rem == 0 {
		return n
	}
	return n + (4 - rem)
}

// Encode serializes the list in the given byte order. Every parameter
// value is padded to a 4-byte boundary with zero bytes; the length field
// records the padded length, per §4.1.
func (pl ParameterList) Encode(order binary.ByteOrder) []byte {
	var buf []byte
	for _, p := range pl.Parameters {
		padded := pad4(len(p.Value))
		entry := make([]byte, 4+padded)
		order.PutUint16(entry[0:2], uint16(p.Id))
		order.PutUint16(entry[2:4], uint16(padded))
		copy(entry[4:], p.Value)
		buf = append(buf, entry...)
	}
	sentinel := make([]byte, 4)
	order.PutUint16(sentinel[0:2], uint16(PIDSentinel))
	buf = append(buf, sentinel...)
	return buf
}

// DecodeParameterList parses a ParameterList from buf, stopping at the
// PID_SENTINEL entry. Padding bytes are tolerated (not validated as zero)
// since the wire format only requires writers to zero them.
func DecodeParameterList(buf []byte, order binary.ByteOrder) (ParameterList, error) {
	var pl ParameterList
	for {
		if len(buf) < 4 {
			return pl, fmt.Errorf("wire: parameter list truncated before sentinel (%d bytes left)", len(buf))
		}
		id := ParameterId(order.Uint16(buf[0:2]))
		length := int(order.Uint16(buf[2:4]))
		buf = buf[4:]
		if id == PIDSentinel {
			return pl, nil
		}
		if length > len(buf) {
			return pl, fmt.Errorf("wire: parameter 0x%04x length %d exceeds remaining %d bytes", id, length, len(buf))
		}
		value := make([]byte, length)
		copy(value, buf[:length])
		pl.Parameters = append(pl.Parameters, Parameter{Id: id, Value: value})
		buf = buf[length:]
	}
}
