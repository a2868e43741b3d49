package progress

import "math"

// Func receives normalized progress values in [0, 1]. The final value on a
// successful run is always 1.0.
type Func func(value float64)

// Discard ignores progress updates.
func Discard(float64) {}

// Monotonic wraps fn so downstream consumers only ever observe clamped,
// non-decreasing values. Duplicate values are suppressed. The returned Func
// is not safe for concurrent callers; the supervisor delivers engine output
// from a single goroutine.
func Monotonic(fn Func) Func {
	if fn == nil {
		return Discard
	}
	last := math.Inf(-1)
	return func(value float64) {
		if math.IsNaN(value) {
			return
		}
		if value < 0 {
			value = 0
		}
		if value > 1 {
			value = 1
		}
		if value <= last {
			return
		}
		last = value
		fn(value)
	}
}
