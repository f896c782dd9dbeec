package ml

// Regressor is a trained model producing one value per feature vector.
// Implementations are read-only after loading and safe for concurrent use.
type Regressor interface {
	Predict(features []float64) (float64, error)
}

// ModelInfo describes a loaded model for health reporting.
type ModelInfo struct {
	Type   string `json:"type"`
	Inputs int    `json:"inputs"`
	Detail string `json:"detail,omitempty"`
}

// Describer is implemented by regressors that can report their shape.
type Describer interface {
	Describe() ModelInfo
}
