// Package endpoint implements the stateless and stateful writer/reader
// behavior state machines of §4.3: turning HistoryCache changes into
// outbound submessages and inbound submessages into HistoryCache/proxy
// updates.
package endpoint

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/opendds-go/rtps/rtps/history"
	"github.com/opendds-go/rtps/rtps/qos"
	"github.com/opendds-go/rtps/rtps/types"
)

// byteOrder is the wire representation this implementation writes;
// native host endianness plays no part in RTPS (§4.1 endianness flag).
var byteOrder = binary.LittleEndian

// statusInfoKind decodes the 4-byte PID_STATUS_INFO value into a
// ChangeKind per the DDS-RTPS wire convention: bit 0 set means disposed,
// bit 1 set means unregistered (§6 SUPPLEMENTED FEATURES).
func statusInfoKind(flags []byte) history.ChangeKind {
	b := flags[3]
	switch {
	case b&0x1 != 0:
		return history.NotAliveDisposed
	case b&0x2 != 0:
		return history.NotAliveUnregistered
	default:
		return history.Alive
	}
}

// Identity is the set of fields every endpoint (reader or writer) carries
// regardless of behavior class.
type Identity struct {
	Guid      types.GUID
	TopicName string
	TypeName  string
	Qos       qos.Policies
}

// counter is a monotonically increasing HEARTBEAT/ACKNACK Count field
// (§8: both must strictly increase across a session).
type counter struct {
	v uint32
}

func (c *counter) next() uint32 {
	return atomic.AddUint32(&c.v, 1)
}
