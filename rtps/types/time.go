package types

import "time"

// Time is the RTPS wire time representation: seconds plus a fraction in
// 2^-32 second units (§3).
type Time struct {
	Seconds  uint32
	Fraction uint32
}

// TimeInvalid is the all-ones wire sentinel for "no timestamp".
var TimeInvalid = Time{Seconds: 0xffffffff, Fraction: 0xffffffff}

// TimeInfinite represents "never" on the wire.
var TimeInfinite = Time{Seconds: 0xffffffff, Fraction: 0xfffffffe}

// FromStdTime converts a time.Time to the RTPS wire representation.
func FromStdTime(t time.Time) Time {
	sec := t.Unix()
	nsec := t.Nanosecond()
	frac := uint32((uint64(nsec) << 32) / 1e9)
	return Time{Seconds: uint32(sec), Fraction: frac}
}

// StdTime converts back to a time.Time (UTC).
func (t Time) StdTime() time.Time {
	nsec := (uint64(t.Fraction) * 1e9) >> 32
	return time.Unix(int64(t.Seconds), int64(nsec)).UTC()
}

func (t Time) Valid() bool {
	return t != TimeInvalid
}

// Duration is the same two-field layout as Time, used for periods.
type Duration struct {
	Seconds  int32
	Fraction uint32
}

// DurationZero is the zero duration.
var DurationZero = Duration{}

// DurationInfinite represents an unbounded duration.
var DurationInfinite = Duration{Seconds: 0x7fffffff, Fraction: 0xffffffff}

// FromStdDuration converts a time.Duration to the wire Duration representation.
func FromStdDuration(d time.Duration) Duration {
	sec := int32(d / time.Second)
	rem := d % time.Second
	frac := uint32((uint64(rem) << 32) / 1e9)
	return Duration{Seconds: sec, Fraction: frac}
}

// StdDuration converts back to a time.Duration.
func (d Duration) StdDuration() time.Duration {
	if d == DurationInfinite {
		return time.Duration(1<<63 - 1)
	}
	frac := (uint64(d.Fraction) * 1e9) >> 32
	return time.Duration(d.Seconds)*time.Second + time.Duration(frac)
}
