package models

import (
	"fmt"
	"math"
	"slices"

	"github.com/aouyang1/go-watercast/feature"
)

// Bound pairs a predictor with the ordered columns it consumes
type Bound struct {
	name string
	p    Predictor
	cols []string
}

// Bind attaches the contract columns to a predictor. Predictors that report their own fit
// columns must agree with the contract in both set and order.
func Bind(name string, p Predictor, cols []string) (*Bound, error) {
	if p == nil {
		return nil, fmt.Errorf("unable to bind %s model, %w", name, ErrNoModel)
	}
	if err := validateCols(cols); err != nil {
		return nil, fmt.Errorf("unable to bind %s model, %w", name, err)
	}

	if f, ok := p.(Featured); ok {
		fit := f.FeatureNames()
		missing, extra := diffCols(fit, cols)
		if len(missing) > 0 || len(extra) > 0 {
			return nil, &FeatureContractError{
				Model:   name,
				Missing: missing,
				Extra:   extra,
			}
		}
		if !slices.Equal(fit, cols) {
			return nil, &FeatureContractError{
				Model:    name,
				Expected: slices.Clone(fit),
			}
		}
	}

	return &Bound{
		name: name,
		p:    p,
		cols: slices.Clone(cols),
	}, nil
}

// diffCols returns the expected columns absent from got and the got columns that were not
// expected
func diffCols(expected, got []string) ([]string, []string) {
	var missing, extra []string
	for _, col := range expected {
		if !slices.Contains(got, col) {
			missing = append(missing, col)
		}
	}
	for _, col := range got {
		if !slices.Contains(expected, col) {
			extra = append(extra, col)
		}
	}
	return missing, extra
}

// Name returns the model name used in errors
func (b *Bound) Name() string {
	if b == nil {
		return ""
	}
	return b.name
}

// Columns returns the ordered columns sliced from each row
func (b *Bound) Columns() []string {
	if b == nil {
		return nil
	}
	return slices.Clone(b.cols)
}

// PredictRow slices the bound columns out of the row and runs the predictor. Rows lacking
// a bound column fail with a FeatureContractError. Predictor failures and non-finite
// outputs fail with a ModelInferenceError.
func (b *Bound) PredictRow(row feature.Row) (float64, error) {
	if b == nil {
		return 0, ErrNoModel
	}
	x, missing := row.Slice(b.cols)
	if len(missing) > 0 {
		return 0, &FeatureContractError{
			Model:   b.name,
			Missing: missing,
		}
	}
	return b.Predict(x)
}

// Predict runs the predictor on an already ordered vector
func (b *Bound) Predict(x []float64) (float64, error) {
	if b == nil {
		return 0, ErrNoModel
	}
	if len(x) != len(b.cols) {
		return 0, &ModelInferenceError{
			Model: b.name,
			Err:   fmt.Errorf("got %d features, but expected %d, %w", len(x), len(b.cols), ErrFeatureLenMismatch),
		}
	}
	y, err := b.p.Predict(x)
	if err != nil {
		return 0, &ModelInferenceError{Model: b.name, Err: err}
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, &ModelInferenceError{
			Model: b.name,
			Err:   fmt.Errorf("got %v, %w", y, ErrNonFiniteOutput),
		}
	}
	return y, nil
}
