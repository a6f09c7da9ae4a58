// Package types holds the RTPS wire-level value types shared by every
// other package: GUID, EntityId, SequenceNumber, Locator, Time, Duration
// and the instance-handle representation (§3 of the spec).
package types

import (
	"encoding/hex"
	"fmt"
)

// GuidPrefixLength is the length in bytes of a GuidPrefix (§3 GUID).
const GuidPrefixLength = 12

// EntityIdLength is the length in bytes of an EntityId.
const EntityIdLength = 4

// GuidPrefix is the 12-byte participant-scoped prefix of a GUID.
type GuidPrefix [GuidPrefixLength]byte

// UnknownGuidPrefix is the all-zero prefix used when the source of a
// message is not yet known.
var UnknownGuidPrefix = GuidPrefix{}

func (p GuidPrefix) String() string { return hex.EncodeToString(p[:]) }

// EntityKind is the 1-byte kind octet of an EntityId.
type EntityKind byte

// Entity kinds from the DDSI-RTPS specification relevant to this engine.
const (
	EntityKindUnknown            EntityKind = 0x00
	EntityKindWriterWithKey      EntityKind = 0x02
	EntityKindWriterNoKey        EntityKind = 0x03
	EntityKindReaderNoKey        EntityKind = 0x04
	EntityKindReaderWithKey      EntityKind = 0x07
	EntityKindWriterGroup        EntityKind = 0x08
	EntityKindReaderGroup        EntityKind = 0x09
	EntityKindBuiltinParticipant EntityKind = 0xc1
	EntityKindBuiltinWriterKey   EntityKind = 0xc2
	EntityKindBuiltinWriterNoKey EntityKind = 0xc3
	EntityKindBuiltinReaderKey   EntityKind = 0xc7
	EntityKindBuiltinReaderNoKey EntityKind = 0xc4
)

// EntityId identifies an entity (participant, group or endpoint) within a
// participant: a 3-byte key plus a 1-byte kind.
type EntityId struct {
	Key  [3]byte
	Kind EntityKind
}

// EntityIdUnknown matches "any entity" in DATA/GAP submessages.
var EntityIdUnknown = EntityId{}

// EntityIdParticipant is the reserved id of the participant itself.
var EntityIdParticipant = EntityId{Key: [3]byte{0x00, 0x00, 0x01}, Kind: EntityKindBuiltinParticipant}

// Reserved built-in endpoint ids (§6 of the spec).
var (
	EntityIdSPDPBuiltinParticipantWriter = EntityId{Key: [3]byte{0x00, 0x01, 0x00}, Kind: EntityKindBuiltinWriterKey}
	EntityIdSPDPBuiltinParticipantReader = EntityId{Key: [3]byte{0x00, 0x01, 0x00}, Kind: EntityKindBuiltinReaderKey}

	EntityIdSEDPBuiltinPublicationsWriter  = EntityId{Key: [3]byte{0x00, 0x00, 0x03}, Kind: EntityKindBuiltinWriterKey}
	EntityIdSEDPBuiltinPublicationsReader  = EntityId{Key: [3]byte{0x00, 0x00, 0x03}, Kind: EntityKindBuiltinReaderKey}
	EntityIdSEDPBuiltinSubscriptionsWriter = EntityId{Key: [3]byte{0x00, 0x00, 0x04}, Kind: EntityKindBuiltinWriterKey}
	EntityIdSEDPBuiltinSubscriptionsReader = EntityId{Key: [3]byte{0x00, 0x00, 0x04}, Kind: EntityKindBuiltinReaderKey}
	EntityIdSEDPBuiltinTopicsWriter        = EntityId{Key: [3]byte{0x00, 0x00, 0x02}, Kind: EntityKindBuiltinWriterKey}
	EntityIdSEDPBuiltinTopicsReader        = EntityId{Key: [3]byte{0x00, 0x00, 0x02}, Kind: EntityKindBuiltinReaderKey}
)

func (e EntityId) Bytes() [4]byte {
	return [4]byte{e.Key[0], e.Key[1], e.Key[2], byte(e.Kind)}
}

func EntityIdFromBytes(b [4]byte) EntityId {
	return EntityId{Key: [3]byte{b[0], b[1], b[2]}, Kind: EntityKind(b[3])}
}

func (e EntityId) IsWriter() bool {
	switch e.Kind {
	case EntityKindWriterWithKey, EntityKindWriterNoKey, EntityKindWriterGroup,
		EntityKindBuiltinWriterKey, EntityKindBuiltinWriterNoKey:
		return true
	}
	return false
}

func (e EntityId) IsReader() bool {
	switch e.Kind {
	case EntityKindReaderWithKey, EntityKindReaderNoKey, EntityKindReaderGroup,
		EntityKindBuiltinReaderKey, EntityKindBuiltinReaderNoKey:
		return true
	}
	return false
}

func (e EntityId) String() string {
	return fmt.Sprintf("%02x.%02x.%02x.%02x", e.Key[0], e.Key[1], e.Key[2], byte(e.Kind))
}

// GUID globally identifies a participant, group or endpoint: prefix + entity id.
type GUID struct {
	Prefix   GuidPrefix
	EntityId EntityId
}

func (g GUID) String() string {
	return fmt.Sprintf("%s:%s", g.Prefix, g.EntityId)
}

// Unknown reports whether this is the zero-value "no GUID" sentinel.
func (g GUID) Unknown() bool {
	return g.Prefix == UnknownGuidPrefix && g.EntityId == EntityIdUnknown
}

func NewGUID(prefix GuidPrefix, entityId EntityId) GUID {
	return GUID{Prefix: prefix, EntityId: entityId}
}
