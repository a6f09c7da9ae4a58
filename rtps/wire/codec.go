package wire

import "fmt"

// EncodeMessage produces a datagram: the 20-byte header followed by each
// already-encoded submessage. Submessages are produced by the Encode
// method of the concrete submessage types in submessages.go, which each
// call encodeSubmessage to prepend their own header.
func EncodeMessage(header MessageHeader, submessages [][]byte) []byte {
	total := HeaderLength
	for _, s := range submessages {
		total += len(s)
	}
	buf := make([]byte, 0, total)
	buf = append(buf, header.Encode()...)
	for _, s := range submessages {
		buf = append(buf, s...)
	}
	return buf
}

// DecodeMessage parses the header and returns the header plus the list of
// RawSubmessage found in the datagram. A submessage whose declared
// octets_to_next_header runs past the end of the buffer is reported as a
// *MalformedSubmessage error, aborting only the remaining iteration from
// that point forward — submessages already returned remain valid, per
// §4.1's "aborts the current submessage only" failure semantics.
func DecodeMessage(buf []byte) (MessageHeader, []RawSubmessage, error) {
	header, err := DecodeHeader(buf)
	if err != nil {
		return MessageHeader{}, nil, err
	}
	subs, err := decodeSubmessages(buf[HeaderLength:])
	return header, subs, err
}

func decodeSubmessages(buf []byte) ([]RawSubmessage, error) {
	var out []RawSubmessage
	for len(buf) > 0 {
		if len(buf) < submsgHeaderLength {
			return out, &MalformedSubmessage{Err: fmt.Errorf("truncated submessage header (%d bytes left)", len(buf))}
		}
		kind := SubmessageKind(buf[0])
		flags := buf[1]
		order := byteOrder(flags)
		octets := int(order.Uint16(buf[2:4]))

		var body []byte
		var rest []byte
		if octets == 0 {
			// "consume the rest of the datagram" per §4.1.
			body = buf[submsgHeaderLength:]
			rest = nil
		} else {
			end := submsgHeaderLength + octets
			if end > len(buf) {
				return out, &MalformedSubmessage{Kind: kind, Err: fmt.Errorf("octets_to_next_header %d exceeds remaining %d bytes", octets, len(buf)-submsgHeaderLength)}
			}
			body = buf[submsgHeaderLength:end]
			rest = buf[end:]
		}
		out = append(out, RawSubmessage{Kind: kind, Flags: flags, Body: body})
		buf = rest
	}
	return out, nil
}
