package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
)

// DenseLayer is one fully connected layer. Weights has one row per input
// and one column per output unit, the same layout as a Keras kernel.
type DenseLayer struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`
}

// DenseNetwork is a sequential stack of dense layers ending in a single unit.
type DenseNetwork struct {
	layers []DenseLayer
	acts   []activation
}

type activation func(float64) float64

var activations = map[string]activation{
	"":         func(x float64) float64 { return x },
	"linear":   func(x float64) float64 { return x },
	"relu":     func(x float64) float64 { return math.Max(0, x) },
	"sigmoid":  func(x float64) float64 { return 1 / (1 + math.Exp(-x)) },
	"tanh":     math.Tanh,
	"softplus": func(x float64) float64 { return math.Log1p(math.Exp(x)) },
	"elu": func(x float64) float64 {
		if x > 0 {
			return x
		}
		return math.Expm1(x)
	},
}

type denseFile struct {
	Layers []DenseLayer `json:"layers"`
}

// NewDenseNetwork checks the layer shapes and returns a ready network.
func NewDenseNetwork(layers []DenseLayer) (*DenseNetwork, error) {
	n := &DenseNetwork{}
	if err := n.setLayers(layers); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *DenseNetwork) setLayers(layers []DenseLayer) error {
	if len(layers) == 0 {
		return errors.New("network has no layers")
	}
	width := FeatureCount
	acts := make([]activation, len(layers))
	for i, layer := range layers {
		if len(layer.Weights) != width {
			return fmt.Errorf("layer %d expects %d inputs, got %d weight rows", i, width, len(layer.Weights))
		}
		units := len(layer.Bias)
		if units == 0 {
			return fmt.Errorf("layer %d has no units", i)
		}
		for r, row := range layer.Weights {
			if len(row) != units {
				return fmt.Errorf("layer %d weight row %d has %d columns, want %d", i, r, len(row), units)
			}
		}
		act, ok := activations[strings.ToLower(layer.Activation)]
		if !ok {
			return fmt.Errorf("layer %d: unsupported activation %q", i, layer.Activation)
		}
		acts[i] = act
		width = units
	}
	if width != 1 {
		return fmt.Errorf("network must end in a single unit, got %d", width)
	}
	n.layers = layers
	n.acts = acts
	return nil
}

func (n *DenseNetwork) Predict(features []float64) (float64, error) {
	if len(n.layers) == 0 {
		return 0, errors.New("model not loaded")
	}
	if len(features) != FeatureCount {
		return 0, fmt.Errorf("expected %d inputs, got %d", FeatureCount, len(features))
	}
	current := features
	for i, layer := range n.layers {
		next := make([]float64, len(layer.Bias))
		copy(next, layer.Bias)
		for in, x := range current {
			for out, w := range layer.Weights[in] {
				next[out] += x * w
			}
		}
		for j := range next {
			next[j] = n.acts[i](next[j])
		}
		current = next
	}
	return current[0], nil
}

func (n *DenseNetwork) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file denseFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return fmt.Errorf("decode model %s: %w", path, err)
	}
	return n.setLayers(file.Layers)
}

func (n *DenseNetwork) Describe() ModelInfo {
	units := make([]string, len(n.layers))
	for i, layer := range n.layers {
		act := layer.Activation
		if act == "" {
			act = "linear"
		}
		units[i] = fmt.Sprintf("%d/%s", len(layer.Bias), act)
	}
	return ModelInfo{Type: ModelDense, Inputs: FeatureCount, Detail: strings.Join(units, " -> ")}
}
