package ml

import "strconv"

// Classification is the stability verdict for a factor of safety.
type Classification string

const (
	Safe        Classification = "Safe"
	NeedsReview Classification = "NeedsReview"
	Dangerous   Classification = "Dangerous"
)

const (
	SafeThreshold   = 1.5
	ReviewThreshold = 1.0
)

// Classify maps a factor of safety to a Classification. NaN is Dangerous.
func Classify(fs float64) Classification {
	switch {
	case fs >= SafeThreshold:
		return Safe
	case fs >= ReviewThreshold:
		return NeedsReview
	default:
		return Dangerous
	}
}

// Classifications lists every label in descending order of safety.
func Classifications() []Classification {
	return []Classification{Safe, NeedsReview, Dangerous}
}

// RoundFS rounds the exact binary value of fs to three decimals, the same
// digits %.3f prints. Negative zero is returned as 0.
func RoundFS(fs float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(fs, 'f', 3, 64), 64)
	if err != nil || r == 0 {
		return 0
	}
	return r
}
