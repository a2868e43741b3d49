package progress

import (
	"math"
	"testing"
)

func TestMonotonicClampsAndSuppresses(t *testing.T) {
	var seen []float64
	fn := Monotonic(func(v float64) { seen = append(seen, v) })

	for _, v := range []float64{-0.5, 0.1, 0.05, 0.1, 0.5, 2.0, 0.9} {
		fn(v)
	}

	want := []float64{0, 0.1, 0.5, 1.0}
	if len(seen) != len(want) {
		t.Fatalf("got %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("value %d = %f, want %f (all: %v)", i, seen[i], want[i], seen)
		}
	}
}

func TestMonotonicIgnoresNaN(t *testing.T) {
	calls := 0
	fn := Monotonic(func(float64) { calls++ })
	fn(math.NaN())
	if calls != 0 {
		t.Fatalf("NaN should be dropped, got %d calls", calls)
	}
}

func TestMonotonicNilCallback(t *testing.T) {
	fn := Monotonic(nil)
	fn(0.5) // must not panic
}
