package codec

import "fmt"

// ValueOverflowError is returned when a value does not fit the declared
// bitwidth (spec §4.1, §7).
type ValueOverflowError struct {
	Value    string // decimal or hex rendering of the offending value
	Bitwidth int
}

func (e *ValueOverflowError) Error() string {
	return fmt.Sprintf("value %s overflows bitwidth %d", e.Value, e.Bitwidth)
}

// InvalidMaskError is returned by encode_lpm/encode_ternary when the
// value has bits set outside the mask/prefix, or the prefix/mask itself
// is out of range.
type InvalidMaskError struct {
	Reason string
}

func (e *InvalidMaskError) Error() string { return "invalid mask: " + e.Reason }

// InvalidRangeError is returned by encode_range when low > high.
type InvalidRangeError struct {
	Low, High string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: low %s > high %s", e.Low, e.High)
}
