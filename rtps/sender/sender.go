// Package sender implements the MessageSender described in §4.5: it
// batches a sequence of already-encoded submessages destined for one
// locator into as few RTPS Messages as will fit a configured datagram
// budget, prefixing each with the right INFO_DST bookkeeping.
package sender

import (
	"encoding/binary"

	"github.com/opendds-go/rtps/rtps/types"
	"github.com/opendds-go/rtps/rtps/wire"
)

// DefaultMaxMessageSize is the UDP payload budget used when a transport
// doesn't specify one; comfortably under the common 1500-byte Ethernet
// MTU once IP/UDP headers are subtracted.
const DefaultMaxMessageSize = 1460

// Destination is one outbound (locator, submessage) unit queued by a
// writer or reader behavior engine.
type Destination struct {
	Locator        types.Locator
	DestGuidPrefix types.GuidPrefix
	Submessage     []byte
}

// Batch is one complete RTPS Message ready for transmission.
type Batch struct {
	Locator types.Locator
	Payload []byte
}

// MessageSender accumulates Destinations per locator and flushes them as
// Batches, inserting an INFO_DST submessage whenever the destination
// GuidPrefix changes within a locator's queue (§4.1, §4.5).
type MessageSender struct {
	sourcePrefix types.GuidPrefix
	version      wire.ProtocolVersion
	vendor       wire.VendorId
	maxSize      int
	queues       map[types.Locator][]Destination
}

// New creates a sender stamping every Message with sourcePrefix as its
// GuidPrefix (the local participant's), the standard protocol version and
// vendor id, and batching up to maxSize bytes per Message. maxSize <= 0
// falls back to DefaultMaxMessageSize.
func New(sourcePrefix types.GuidPrefix, maxSize int) *MessageSender {
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &MessageSender{
		sourcePrefix: sourcePrefix,
		version:      wire.ProtocolVersion24,
		vendor:       wire.VendorIdThis,
		maxSize:      maxSize,
		queues:       make(map[types.Locator][]Destination),
	}
}

// Enqueue queues one submessage for eventual transmission to dst.
func (s *MessageSender) Enqueue(dst Destination) {
	s.queues[dst.Locator] = append(s.queues[dst.Locator], dst)
}

// Flush drains every queued Destination into Batches, grouping
// consecutive submessages to the same locator and destination prefix
// into one Message and splitting across Messages once maxSize would be
// exceeded. The queues are empty after Flush returns.
func (s *MessageSender) Flush() []Batch {
	var batches []Batch
	for locator, dsts := range s.queues {
		batches = append(batches, s.flushLocator(locator, dsts)...)
		delete(s.queues, locator)
	}
	return batches
}

func (s *MessageSender) flushLocator(locator types.Locator, dsts []Destination) []Batch {
	var out []Batch
	header := wire.MessageHeader{Version: s.version, VendorId: s.vendor, GuidPrefix: s.sourcePrefix}

	var current [][]byte
	var currentDest types.GuidPrefix
	size := wire.HeaderLength

	flush := func() {
		if len(current) == 0 {
			return
		}
		out = append(out, Batch{Locator: locator, Payload: wire.EncodeMessage(header, current)})
		current = nil
		size = wire.HeaderLength
	}

	for i, d := range dsts {
		var infoDst []byte
		if i == 0 || d.DestGuidPrefix != currentDest {
			infoDst = (wire.InfoDst{GuidPrefix: d.DestGuidPrefix}).Encode(binary.LittleEndian)
			currentDest = d.DestGuidPrefix
		}
		add := len(infoDst) + len(d.Submessage)
		if size+add > s.maxSize && len(current) > 0 {
			flush()
			infoDst = (wire.InfoDst{GuidPrefix: d.DestGuidPrefix}).Encode(binary.LittleEndian)
			add = len(infoDst) + len(d.Submessage)
		}
		if len(infoDst) > 0 {
			current = append(current, infoDst)
			size += len(infoDst)
		}
		current = append(current, d.Submessage)
		size += len(d.Submessage)
	}
	flush()
	return out
}
