package ml

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyThresholds(t *testing.T) {
	tests := []struct {
		fs   float64
		want Classification
	}{
		{fs: 3.2, want: Safe},
		{fs: 1.5, want: Safe},
		{fs: 1.4999, want: NeedsReview},
		{fs: 1.0, want: NeedsReview},
		{fs: 0.9999, want: Dangerous},
		{fs: 0, want: Dangerous},
		{fs: -2, want: Dangerous},
		{fs: math.NaN(), want: Dangerous},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.fs), "Classify(%v)", tt.fs)
	}
}

func TestRoundFS(t *testing.T) {
	assert.Equal(t, 1.235, RoundFS(1.2345678))
	assert.Equal(t, 0.999, RoundFS(0.99949))
	assert.Equal(t, 2.0, RoundFS(1.99951))
	assert.Equal(t, -0.125, RoundFS(-0.12501))
	assert.Equal(t, 1.5, RoundFS(1.5))

	// Both literals sit just below the half in binary.
	assert.Equal(t, 1.234, RoundFS(1.2345))
	assert.Equal(t, 1.0, RoundFS(1.0005))
	assert.Equal(t, fmt.Sprintf("%.3f", 2.0005), fmt.Sprintf("%.3f", RoundFS(2.0005)))
}

func TestRoundFSNegativeZero(t *testing.T) {
	for _, fs := range []float64{-0.0001, math.Copysign(0, -1)} {
		got := RoundFS(fs)
		assert.Equal(t, 0.0, got)
		assert.False(t, math.Signbit(got), "RoundFS(%v) kept the sign", fs)
	}
}
