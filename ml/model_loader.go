package ml

import (
	"fmt"
)

const (
	ModelDense        = "dense"
	ModelLinear       = "linear"
	ModelDecisionTree = "decision_tree"
)

func LoadModel(modelType, path string) (Regressor, error) {
	switch modelType {
	case ModelDense, "":
		model := &DenseNetwork{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	case ModelLinear:
		model := &LinearModel{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	case ModelDecisionTree:
		model := &DecisionTree{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}
