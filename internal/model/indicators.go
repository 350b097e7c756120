package model

// Value is an indicator reading that may not be available yet.
// A zero Value is absent; absent values never satisfy a comparison.
type Value struct {
	V  float64
	OK bool
}

// Present returns a present Value.
func Present(v float64) Value { return Value{V: v, OK: true} }

// Absent is the "not yet available" reading.
var Absent = Value{}

// Above reports whether the reading is present and strictly greater than x.
func (v Value) Above(x float64) bool { return v.OK && v.V > x }

// Below reports whether the reading is present and strictly less than x.
func (v Value) Below(x float64) bool { return v.OK && v.V < x }

// IndicatorSet holds per-bar derived values aligned with a PriceSeries.
type IndicatorSet struct {
	MovingAverage []Value
	RSI           []Value
}

// LatestPresent returns the index and reading of the last present value.
func LatestPresent(values []Value) (int, Value) {
	for i := len(values) - 1; i >= 0; i-- {
		if values[i].OK {
			return i, values[i]
		}
	}
	return -1, Absent
}
