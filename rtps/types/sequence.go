package types

import "math"

// SequenceNumber is a signed 64-bit monotonic per-writer counter (§3).
type SequenceNumber int64

// SequenceNumberUnknown is the wire sentinel for "no sequence number".
const SequenceNumberUnknown SequenceNumber = math.MinInt64

// SequenceNumberZero is the value below the first legal sequence number (1).
const SequenceNumberZero SequenceNumber = 0

// High returns the high 32 bits as written on the wire.
func (s SequenceNumber) High() int32 {
	return int32(int64(s) >> 32)
}

// Low returns the low 32 bits as written on the wire.
func (s SequenceNumber) Low() uint32 {
	return uint32(int64(s) & 0xffffffff)
}

// SequenceNumberFromParts reconstructs a SequenceNumber from its wire parts.
func SequenceNumberFromParts(high int32, low uint32) SequenceNumber {
	return SequenceNumber((int64(high) << 32) | int64(low))
}

// SequenceNumberSet is the set of pending/requested sequence numbers
// carried by ACKNACK/GAP submessages: a base plus up to 256 relative bits.
type SequenceNumberSet struct {
	Base    SequenceNumber
	Members map[SequenceNumber]struct{}
}

// NewSequenceNumberSet builds an empty set based at base.
func NewSequenceNumberSet(base SequenceNumber) SequenceNumberSet {
	return SequenceNumberSet{Base: base, Members: make(map[SequenceNumber]struct{})}
}

// Add inserts n into the set. n must be >= Base for the set to encode
// legally, but Add does not itself reject illegal members.
func (s SequenceNumberSet) Add(n SequenceNumber) {
	s.Members[n] = struct{}{}
}

func (s SequenceNumberSet) Has(n SequenceNumber) bool {
	_, ok := s.Members[n]
	return ok
}

// Empty reports whether the set has no members.
func (s SequenceNumberSet) Empty() bool {
	return len(s.Members) == 0
}

// Max returns the largest member and true, or (0, false) if empty.
func (s SequenceNumberSet) Max() (SequenceNumber, bool) {
	if len(s.Members) == 0 {
		return 0, false
	}
	max := s.Base
	first := true
	for n := range s.Members {
		if first || n > max {
			max = n
			first = false
		}
	}
	return max, true
}

// Sorted returns the set's members in increasing order.
func (s SequenceNumberSet) Sorted() []SequenceNumber {
	out := make([]SequenceNumber, 0, len(s.Members))
	for n := range s.Members {
		out = append(out, n)
	}
	// insertion sort: sets here are bounded to 256 members (wire limit)
	for i := 1; i < len(out); i++ {
		v := out[i]
		j := i - 1
		for j >= 0 && out[j] > v {
			out[j+1] = out[j]
			j--
		}
		out[j+1] = v
	}
	return out
}
