package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoModel            = errors.New("no model")
	ErrNoFeatureCols      = errors.New("no feature columns")
	ErrDuplicateFeature   = errors.New("duplicate feature column")
	ErrFeatureLenMismatch = errors.New("number of features does not match number of model coefficients")
	ErrNonFiniteOutput    = errors.New("model produced a non-finite value")
	ErrNonFiniteParameter = errors.New("model parameter is not finite")
	ErrUnknownFeatureType = errors.New("unknown feature type")
	ErrUnknownModelType   = errors.New("unknown model type")
	ErrInvalidTree        = errors.New("invalid regression tree")
)

// FeatureContractError is returned when the columns a model was fit on do not line up with
// the columns it is asked to predict with. Expected carries the fit order when both sides
// hold the same columns in a different order.
type FeatureContractError struct {
	Model    string
	Missing  []string
	Extra    []string
	Expected []string
}

func (e *FeatureContractError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ","))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Extra, ","))
	}
	if len(e.Expected) > 0 {
		parts = append(parts, "expected order "+strings.Join(e.Expected, ","))
	}
	return fmt.Sprintf("feature contract violated for %s model: %s", e.Model, strings.Join(parts, "; "))
}

// ModelInferenceError wraps any failure of a model while predicting
type ModelInferenceError struct {
	Model string
	Err   error
}

func (e *ModelInferenceError) Error() string {
	return fmt.Sprintf("%s model inference failed, %v", e.Model, e.Err)
}

func (e *ModelInferenceError) Unwrap() error {
	return e.Err
}
