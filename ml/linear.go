package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// LinearModel predicts intercept + Σ coefficient·feature.
type LinearModel struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

func (m *LinearModel) Predict(features []float64) (float64, error) {
	if len(m.Coefficients) == 0 {
		return 0, errors.New("model not loaded")
	}
	if len(features) != len(m.Coefficients) {
		return 0, fmt.Errorf("expected %d inputs, got %d", len(m.Coefficients), len(features))
	}
	sum := m.Intercept
	for i, x := range features {
		sum += m.Coefficients[i] * x
	}
	return sum, nil
}

func (m *LinearModel) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded LinearModel
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return fmt.Errorf("decode model %s: %w", path, err)
	}
	if len(loaded.Coefficients) != FeatureCount {
		return fmt.Errorf("linear model has %d coefficients, want %d", len(loaded.Coefficients), FeatureCount)
	}
	*m = loaded
	return nil
}

func (m *LinearModel) Describe() ModelInfo {
	return ModelInfo{Type: ModelLinear, Inputs: len(m.Coefficients)}
}
