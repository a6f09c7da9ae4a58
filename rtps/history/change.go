// Package history implements the writer-side and reader-side
// HistoryCache described in §3/§4.2: ordered sets of CacheChange keyed by
// (writer GUID, sequence number), with per-instance retention policy.
package history

import (
	"github.com/opendds-go/rtps/rtps/types"
	"github.com/opendds-go/rtps/rtps/wire"
)

// ChangeKind is the lifecycle kind of a sample (§3).
type ChangeKind int

const (
	Alive ChangeKind = iota
	NotAliveDisposed
	NotAliveUnregistered
)

// CacheChange is one published sample plus its metadata (§3).
type CacheChange struct {
	Kind            ChangeKind
	WriterGuid      types.GUID
	SequenceNumber  types.SequenceNumber
	InstanceHandle  types.InstanceHandle
	Payload         []byte
	InlineQos       *wire.ParameterList
	SourceTimestamp *types.Time
}

// Key uniquely identifies a change for deduplication on the reader side.
type Key struct {
	Writer types.GUID
	SN     types.SequenceNumber
}

func (c *CacheChange) Key() Key {
	return Key{Writer: c.WriterGuid, SN: c.SequenceNumber}
}
