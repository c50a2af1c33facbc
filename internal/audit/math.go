package audit

import "math"

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// ratio returns a/b rounded to two decimals, or nil when b is zero. Callers
// render nil as insufficient data, never as zero or infinity.
func ratio(a, b float64) *float64 {
	if b == 0 {
		return nil
	}
	v := round2(a / b)
	return &v
}
