package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
)

// Scaler applies a previously fitted transform to a feature vector.
// Implementations must only use their stored parameters.
type Scaler interface {
	Transform(fv FeatureVector) ([]float64, error)
}

const (
	ScalerStandard = "standard"
	ScalerMinMax   = "minmax"
)

// scalerFile is the exported form of a fitted scaler.
type scalerFile struct {
	Kind     string    `json:"kind"`
	Features []string  `json:"features,omitempty"`
	Mean     []float64 `json:"mean,omitempty"`
	Scale    []float64 `json:"scale,omitempty"`
	Min      []float64 `json:"min,omitempty"`
	Max      []float64 `json:"max,omitempty"`
}

// StandardScaler computes (x - mean) / scale per feature.
type StandardScaler struct {
	mean  []float64
	scale []float64
}

func NewStandardScaler(mean, scale []float64) (*StandardScaler, error) {
	if len(mean) != FeatureCount || len(scale) != FeatureCount {
		return nil, fmt.Errorf("standard scaler needs %d means and scales, got %d/%d", FeatureCount, len(mean), len(scale))
	}
	s := &StandardScaler{
		mean:  append([]float64(nil), mean...),
		scale: make([]float64, FeatureCount),
	}
	for i, v := range scale {
		// A constant column was fitted with zero variance; it passes through unscaled.
		if v == 0 {
			v = 1
		}
		s.scale[i] = v
	}
	return s, nil
}

func (s *StandardScaler) Transform(fv FeatureVector) ([]float64, error) {
	if len(s.mean) != FeatureCount || len(s.scale) != FeatureCount {
		return nil, errors.New("scaler parameters do not match feature width")
	}
	out := make([]float64, FeatureCount)
	for i, v := range fv {
		out[i] = Standardize(v, s.mean[i], s.scale[i])
	}
	return checkFinite(out)
}

// MinMaxScaler maps each feature onto [0, 1] using the fitted bounds.
type MinMaxScaler struct {
	mins []float64
	maxs []float64
}

func NewMinMaxScaler(mins, maxs []float64) (*MinMaxScaler, error) {
	if len(mins) != FeatureCount || len(maxs) != FeatureCount {
		return nil, fmt.Errorf("minmax scaler needs %d mins and maxs, got %d/%d", FeatureCount, len(mins), len(maxs))
	}
	return &MinMaxScaler{
		mins: append([]float64(nil), mins...),
		maxs: append([]float64(nil), maxs...),
	}, nil
}

func (s *MinMaxScaler) Transform(fv FeatureVector) ([]float64, error) {
	out, err := NormalizeVector(fv[:], s.mins, s.maxs)
	if err != nil {
		return nil, err
	}
	return checkFinite(out)
}

// LoadScaler reads a fitted scaler exported as JSON.
func LoadScaler(path string) (Scaler, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file scalerFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return nil, fmt.Errorf("decode scaler %s: %w", path, err)
	}
	if len(file.Features) > 0 && !slices.Equal(file.Features, FeatureNames()) {
		return nil, fmt.Errorf("scaler was fitted on features %v, want %v", file.Features, FeatureNames())
	}

	switch file.Kind {
	case ScalerStandard, "":
		return NewStandardScaler(file.Mean, file.Scale)
	case ScalerMinMax:
		return NewMinMaxScaler(file.Min, file.Max)
	default:
		return nil, fmt.Errorf("unsupported scaler kind %q", file.Kind)
	}
}

func checkFinite(values []float64) ([]float64, error) {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("scaled feature %q is not finite", FeatureNames()[i])
		}
	}
	return values, nil
}
