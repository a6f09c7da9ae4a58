// Package receiver implements the MessageReceiver described in §4.4: it
// demultiplexes one inbound RTPS Message into a stream of (source GUID,
// submessage) events, maintaining the INFO_SRC/INFO_TS/INFO_DST session
// state those submessages may override (§4.1, §4.4).
package receiver

import (
	"github.com/charmbracelet/log"

	"github.com/opendds-go/rtps/rtps/types"
	"github.com/opendds-go/rtps/rtps/wire"
)

// Session is the mutable state a MessageReceiver carries across the
// submessages of a single Message (§4.4): the effective source GuidPrefix
// (overridable by INFO_SRC), destination GuidPrefix (overridable by
// INFO_DST), current protocol version/vendor, source timestamp (set by
// INFO_TS, cleared by an invalidating INFO_TS), and unicast/multicast
// reply locators (overridable by INFO_REPLY).
type Session struct {
	SourceVersion    wire.ProtocolVersion
	SourceVendor     wire.VendorId
	SourceGuidPrefix types.GuidPrefix
	DestGuidPrefix   types.GuidPrefix
	Timestamp        *types.Time
	UnicastReply     []types.Locator
	MulticastReply   []types.Locator
}

// Event is one demultiplexed submessage, annotated with the session
// state in effect when it was parsed.
type Event struct {
	Session Session
	Raw     wire.RawSubmessage
}

// MessageReceiver decodes one datagram into a sequence of Events.
type MessageReceiver struct {
	locatorUnicast   types.Locator
	locatorMulticast types.Locator
	log              *log.Logger
}

// New creates a MessageReceiver bound to the locators it was received on,
// used to seed a Session's reply locators before any INFO_REPLY arrives.
func New(unicast, multicast types.Locator, logger *log.Logger) *MessageReceiver {
	return &MessageReceiver{locatorUnicast: unicast, locatorMulticast: multicast, log: logger}
}

// Process decodes buf and returns one Event per submessage in order,
// folding INFO_SRC/INFO_DST/INFO_TS/INFO_REPLY into the Session state
// carried to every following submessage in the same datagram (§4.4).
func (r *MessageReceiver) Process(buf []byte) ([]Event, error) {
	header, subs, err := wire.DecodeMessage(buf)
	if err != nil {
		if r.log != nil {
			r.log.Warn("dropping malformed submessage", "error", err)
		}
	}

	sess := Session{
		SourceVersion:    header.Version,
		SourceVendor:     header.VendorId,
		SourceGuidPrefix: header.GuidPrefix,
		UnicastReply:     []types.Locator{r.locatorUnicast},
		MulticastReply:   []types.Locator{r.locatorMulticast},
	}

	var events []Event
	for _, raw := range subs {
		switch raw.Kind {
		case wire.KindInfoSrc:
			is, decErr := wire.DecodeInfoSrc(raw)
			if decErr != nil {
				continue
			}
			sess.SourceVersion = is.Version
			sess.SourceVendor = is.VendorId
			sess.SourceGuidPrefix = is.GuidPrefix
			continue
		case wire.KindInfoDst:
			id, decErr := wire.DecodeInfoDst(raw)
			if decErr != nil {
				continue
			}
			sess.DestGuidPrefix = id.GuidPrefix
			continue
		case wire.KindInfoTS:
			ts, decErr := wire.DecodeInfoTS(raw)
			if decErr != nil {
				continue
			}
			if ts.Invalidate {
				sess.Timestamp = nil
			} else {
				t := ts.Timestamp
				sess.Timestamp = &t
			}
			continue
		case wire.KindInfoReply:
			ir, decErr := wire.DecodeInfoReply(raw)
			if decErr != nil {
				continue
			}
			sess.UnicastReply = ir.UnicastLocatorList
			if ir.HasMulticast {
				sess.MulticastReply = ir.MulticastLocatorList
			}
			continue
		case wire.KindPad:
			continue
		}
		events = append(events, Event{Session: sess, Raw: raw})
	}
	return events, err
}

// SourceGuid combines the session's current SourceGuidPrefix with an
// entity id carried by a data-bearing submessage (DATA/HEARTBEAT/...).
func SourceGuid(sess Session, entityId types.EntityId) types.GUID {
	return types.NewGUID(sess.SourceGuidPrefix, entityId)
}

// DestGuid combines the session's current DestGuidPrefix with an entity
// id, used to address the local endpoint a submessage targets.
func DestGuid(sess Session, entityId types.EntityId) types.GUID {
	return types.NewGUID(sess.DestGuidPrefix, entityId)
}
