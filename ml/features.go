package ml

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FeatureCount is the width of every feature vector the model accepts.
const FeatureCount = 7

// FeatureVector holds the soil and slope parameters in model order:
// c, l, gamma, h, u, phi, beta.
type FeatureVector [FeatureCount]float64

// Field describes one input parameter.
type Field struct {
	Name        string
	Description string
	Unit        string
}

var fields = [FeatureCount]Field{
	{Name: "c", Description: "cohesion", Unit: "kN/m²"},
	{Name: "l", Description: "slip surface length", Unit: "m"},
	{Name: "gamma", Description: "unit weight", Unit: "kN/m³"},
	{Name: "h", Description: "slide height", Unit: "m"},
	{Name: "u", Description: "pore water pressure", Unit: "kN/m²"},
	{Name: "phi", Description: "effective friction angle", Unit: "°"},
	{Name: "beta", Description: "slip surface angle", Unit: "°"},
}

// Fields returns the input parameters in model order.
func Fields() []Field {
	out := make([]Field, FeatureCount)
	copy(out, fields[:])
	return out
}

func FeatureNames() []string {
	names := make([]string, FeatureCount)
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func featureList() string {
	return strings.Join(FeatureNames(), ", ")
}

// NewFeatureVector validates already-typed values.
func NewFeatureVector(values []float64) (FeatureVector, error) {
	var fv FeatureVector
	if values == nil {
		return fv, &InputError{Reason: ReasonMissing, Index: -1}
	}
	if len(values) != FeatureCount {
		return fv, &InputError{Reason: ReasonWrongLength, Index: -1, Got: len(values)}
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fv, &InputError{Reason: ReasonNonFinite, Index: i, Value: v}
		}
		fv[i] = v
	}
	return fv, nil
}

// ParseFeatures validates an untyped payload, such as a decoded JSON array.
// Elements may be numbers or numeric strings.
func ParseFeatures(values []any) (FeatureVector, error) {
	var fv FeatureVector
	if values == nil {
		return fv, &InputError{Reason: ReasonMissing, Index: -1}
	}
	if len(values) != FeatureCount {
		return fv, &InputError{Reason: ReasonWrongLength, Index: -1, Got: len(values)}
	}
	for i, raw := range values {
		v, ok := toFloat(raw)
		if !ok {
			return fv, &InputError{Reason: ReasonNonNumeric, Index: i, Value: raw}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fv, &InputError{Reason: ReasonNonFinite, Index: i, Value: raw}
		}
		fv[i] = v
	}
	return fv, nil
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case json.Number:
		return parseNumber(string(v))
	case string:
		return parseNumber(v)
	default:
		return 0, false
	}
}

// parseNumber accepts overflowing literals as ±Inf so they are reported as
// non-finite rather than non-numeric.
func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f, true
		}
		return 0, false
	}
	return f, true
}

// Slice returns a fresh copy of the values.
func (fv FeatureVector) Slice() []float64 {
	out := make([]float64, FeatureCount)
	copy(out, fv[:])
	return out
}

// Named maps field names to values.
func (fv FeatureVector) Named() map[string]float64 {
	named := make(map[string]float64, FeatureCount)
	for i, f := range fields {
		named[f.Name] = fv[i]
	}
	return named
}
