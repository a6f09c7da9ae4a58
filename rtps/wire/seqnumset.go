package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/opendds-go/rtps/rtps/types"
)

// maxSeqNumSetBits is the wire limit: up to 8 bitmap words of 32 bits.
const maxSeqNumSetBits = 256

// EncodeSequenceNumberSet implements the §4.1 algorithm: given base b and
// set S, num_bits = max(S) - b + 1 (0 if empty), then ceil(num_bits/32)
// bitmap words where bit (31 - (n-b) mod 32) of word (n-b)/32 is set iff
// n is a member.
func EncodeSequenceNumberSet(s types.SequenceNumberSet, order binary.ByteOrder) ([]byte, error) {
	numBits := 0
	if max, ok := s.Max(); ok {
		if max < s.Base {
			return nil, fmt.Errorf("wire: sequence number set member %d precedes base %d", max, s.Base)
		}
		numBits = int(max-s.Base) + 1
		if numBits > maxSeqNumSetBits {
			return nil, fmt.Errorf("wire: sequence number set spans %d bits, exceeds max %d", numBits, maxSeqNumSetBits)
		}
	}
	numWords := (numBits + 31) / 32
	out := make([]byte, 12+4*numWords)
	order.PutUint32(out[0:4], uint32(s.Base.High()))
	order.PutUint32(out[4:8], s.Base.Low())
	order.PutUint32(out[8:12], uint32(numBits))
	for n := range s.Members {
		offset := int(n - s.Base)
		word := offset / 32
		bit := 31 - (offset % 32)
		wordOff := 12 + 4*word
		v := order.Uint32(out[wordOff : wordOff+4])
		v |= 1 << uint(bit)
		order.PutUint32(out[wordOff:wordOff+4], v)
	}
	return out, nil
}

// DecodeSequenceNumberSet parses the wire layout produced by
// EncodeSequenceNumberSet.
func DecodeSequenceNumberSet(buf []byte, order binary.ByteOrder) (types.SequenceNumberSet, error) {
	if len(buf) < 12 {
		return types.SequenceNumberSet{}, fmt.Errorf("wire: sequence number set truncated (%d bytes)", len(buf))
	}
	high := int32(order.Uint32(buf[0:4]))
	low := order.Uint32(buf[4:8])
	base := types.SequenceNumberFromParts(high, low)
	numBits := int(order.Uint32(buf[8:12]))
	if numBits > maxSeqNumSetBits {
		return types.SequenceNumberSet{}, fmt.Errorf("wire: sequence number set declares %d bits, exceeds max %d", numBits, maxSeqNumSetBits)
	}
	numWords := (numBits + 31) / 32
	if len(buf) < 12+4*numWords {
		return types.SequenceNumberSet{}, fmt.Errorf("wire: sequence number set bitmap truncated")
	}
	s := types.NewSequenceNumberSet(base)
	for i := 0; i < numBits; i++ {
		word := i / 32
		bit := 31 - (i % 32)
		wordOff := 12 + 4*word
		v := order.Uint32(buf[wordOff : wordOff+4])
		if v&(1<<uint(bit)) != 0 {
			s.Add(base + types.SequenceNumber(i))
		}
	}
	return s, nil
}

// EncodedSequenceNumberSetLength returns the byte length EncodeSequenceNumberSet
// would produce for a set spanning numBits (used by fixed-size submessage
// length computations before the bitmap bits are finalized).
func EncodedSequenceNumberSetLength(numBits int) int {
	numWords := (numBits + 31) / 32
	return 12 + 4*numWords
}
