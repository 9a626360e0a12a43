// Package models holds the pre-fit predictors used by the hybrid forecaster along with the
// named feature contract binding each of them to the engineered columns.
package models

import (
	"fmt"
	"slices"
)

const (
	NameBase     = "base"
	NameResidual = "residual"
)

// Predictor maps a single feature vector to a value. The order of x is fixed at training
// time.
type Predictor interface {
	Predict(x []float64) (float64, error)
}

// Featured is implemented by predictors that know the columns they were fit on
type Featured interface {
	FeatureNames() []string
}

// PredictorFunc adapts a plain function into a Predictor
type PredictorFunc func(x []float64) (float64, error)

func (f PredictorFunc) Predict(x []float64) (float64, error) {
	return f(x)
}

// Contract lists the ordered columns each model expects
type Contract struct {
	FeatureCols         []string `json:"feature_cols"`
	ResidualFeatureCols []string `json:"residual_feature_cols"`
}

// Columns returns every distinct column referenced by the contract
func (c Contract) Columns() []string {
	cols := make([]string, 0, len(c.FeatureCols)+len(c.ResidualFeatureCols))
	for _, col := range slices.Concat(c.FeatureCols, c.ResidualFeatureCols) {
		if !slices.Contains(cols, col) {
			cols = append(cols, col)
		}
	}
	return cols
}

// Validate checks that both column lists are non-empty and free of duplicates
func (c Contract) Validate() error {
	if err := validateCols(c.FeatureCols); err != nil {
		return fmt.Errorf("invalid %s feature columns, %w", NameBase, err)
	}
	if err := validateCols(c.ResidualFeatureCols); err != nil {
		return fmt.Errorf("invalid %s feature columns, %w", NameResidual, err)
	}
	return nil
}

func validateCols(cols []string) error {
	if len(cols) == 0 {
		return ErrNoFeatureCols
	}
	seen := make(map[string]struct{}, len(cols))
	for _, col := range cols {
		if _, exists := seen[col]; exists {
			return fmt.Errorf("%q, %w", col, ErrDuplicateFeature)
		}
		seen[col] = struct{}{}
	}
	return nil
}
