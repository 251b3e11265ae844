package timeline

import "math"

// Epsilon is the tolerance used when comparing two points in time.
const Epsilon = 1e-6

// EQ reports whether a and b are the same point in time.
func EQ(a, b Seconds) bool {
	return math.Abs(a-b) < Epsilon
}

// GT reports whether a is strictly after b.
func GT(a, b Seconds) bool {
	return a > b && !EQ(a, b)
}

// GTE reports whether a is at or after b.
func GTE(a, b Seconds) bool {
	return GT(a, b) || EQ(a, b)
}

// LT reports whether a is strictly before b.
func LT(a, b Seconds) bool {
	return a < b && !EQ(a, b)
}
