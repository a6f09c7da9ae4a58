package types

import "encoding/binary"

// InstanceHandle is the 16-byte opaque handle DDS uses to identify
// entities and keyed-instance identities (§4.7).
type InstanceHandle [16]byte

// InstanceHandleNil is the zero handle, meaning "no handle assigned".
var InstanceHandleNil = InstanceHandle{}

// disjointSubspaceBit (byte 15) distinguishes GUID-derived entity handles
// from process-wide user-instance counter handles, resolving the Open
// Question in spec.md §9: the two subspaces must never collide, so a flag
// bit partitions them rather than relying on incidental non-overlap.
const disjointSubspaceBit = 0x80

// NewEntityHandle builds a GUID-derived handle from the owning indices,
// laid out per §4.7: participant/subscriber/publisher/topic/endpoint
// indices, a suffix distinguishing reader vs writer, then zero padding.
func NewEntityHandle(participantIdx, subscriberIdx, publisherIdx, topicIdx, endpointIdx uint8, isReader bool) InstanceHandle {
	var h InstanceHandle
	h[0] = participantIdx
	h[1] = subscriberIdx
	h[2] = publisherIdx
	h[3] = topicIdx
	h[4] = endpointIdx
	if isReader {
		h[5] = 1
	} else {
		h[5] = 0
	}
	// bytes 6..14 stay zero; byte 15 is left clear to mark the entity subspace.
	return h
}

// UserInstanceCounter is a process-wide 128-bit counter for user-instance
// handles, little-endian (low, high), per §4.7.
type UserInstanceCounter struct {
	low  uint64
	high uint64
}

// Next returns the next InstanceHandle and advances the counter. The high
// bit of the last byte is set to keep user-instance handles in a subspace
// disjoint from GUID-derived entity handles (see disjointSubspaceBit).
func (c *UserInstanceCounter) Next() InstanceHandle {
	var h InstanceHandle
	binary.LittleEndian.PutUint64(h[0:8], c.low)
	binary.LittleEndian.PutUint64(h[8:16], c.high)
	h[15] |= disjointSubspaceBit
	c.low++
	if c.low == 0 {
		c.high++
	}
	return h
}

// IsUserInstance reports whether h was produced by a UserInstanceCounter
// rather than NewEntityHandle.
func (h InstanceHandle) IsUserInstance() bool {
	return h[15]&disjointSubspaceBit != 0
}
