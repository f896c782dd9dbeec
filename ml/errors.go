package ml

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a pipeline failure.
type ErrorKind string

const (
	KindInvalidInput       ErrorKind = "InvalidInput"
	KindModelUnavailable   ErrorKind = "ModelUnavailable"
	KindScalingUnavailable ErrorKind = "ScalingUnavailable"
	KindScalingError       ErrorKind = "ScalingError"
	KindPredictionError    ErrorKind = "PredictionError"
	KindUnknownError       ErrorKind = "UnknownError"
)

// Stage names the pipeline step that failed.
type Stage string

const (
	StageValidate Stage = "validate"
	StageScale    Stage = "scale"
	StagePredict  Stage = "predict"
)

var (
	ErrModelUnavailable  = errors.New("model is not loaded")
	ErrScalerUnavailable = errors.New("scaler is not loaded")
)

// InputReason tells apart the ways a feature payload can be rejected.
type InputReason string

const (
	ReasonMissing     InputReason = "missing"
	ReasonWrongLength InputReason = "wrong_length"
	ReasonNonNumeric  InputReason = "non_numeric"
	ReasonNonFinite   InputReason = "non_finite"
)

// InputError describes a rejected feature payload.
type InputError struct {
	Reason InputReason
	// Index of the offending element, -1 when the whole payload is at fault.
	Index int
	Got   int
	Value any
}

func (e *InputError) Error() string {
	switch e.Reason {
	case ReasonMissing:
		return "features are required"
	case ReasonWrongLength:
		return fmt.Sprintf("expected %d features (%s), got %d", FeatureCount, featureList(), e.Got)
	case ReasonNonNumeric:
		return fmt.Sprintf("feature %q at position %d is not a number: %v", FeatureNames()[e.Index], e.Index, e.Value)
	case ReasonNonFinite:
		return fmt.Sprintf("feature %q at position %d is not a finite number: %v", FeatureNames()[e.Index], e.Index, e.Value)
	default:
		return "invalid features"
	}
}

// PipelineError is returned by Predictor for every failed evaluation.
type PipelineError struct {
	Stage Stage
	Kind  ErrorKind
	Err   error
}

func (e *PipelineError) Error() string {
	switch e.Kind {
	case KindInvalidInput:
		return fmt.Sprintf("invalid input: %v", e.Err)
	case KindScalingUnavailable, KindModelUnavailable:
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	case KindScalingError:
		return fmt.Sprintf("scaling failed: %v", e.Err)
	case KindPredictionError:
		return fmt.Sprintf("prediction failed: %v", e.Err)
	default:
		return fmt.Sprintf("unexpected error: %v", e.Err)
	}
}

func (e *PipelineError) Unwrap() error { return e.Err }

// KindOf reports the ErrorKind carried by err, or KindUnknownError.
func KindOf(err error) ErrorKind {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	var ierr *InputError
	if errors.As(err, &ierr) {
		return KindInvalidInput
	}
	return KindUnknownError
}

// StageOf reports the failing stage, or "" when err is not a PipelineError.
func StageOf(err error) Stage {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.Stage
	}
	return ""
}

func fail(stage Stage, kind ErrorKind, err error) *PipelineError {
	return &PipelineError{Stage: stage, Kind: kind, Err: err}
}
