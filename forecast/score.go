package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

var ErrResLenMismatch = errors.New("predicted and actual have different lengths")

// Scores tracks how closely a forecast matched the held out history
type Scores struct {
	MSE  float64 `json:"mean_squared_error"`
	MAPE float64 `json:"mean_average_percent_error"`
	R2   float64 `json:"r_squared"`
}

// NewScores calculates the scores given the predicted and actual values. Pairs where either
// side is not finite are skipped.
func NewScores(predicted, actual []float64) (*Scores, error) {
	mse, err := MSE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean squared error, %w", err)
	}
	mape, err := MAPE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean average percent error, %w", err)
	}
	rs, err := RSquared(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute r-squared, %w", err)
	}

	return &Scores{
		MSE:  mse,
		MAPE: mape,
		R2:   rs,
	}, nil
}

func finitePairs(predicted, actual []float64) ([]float64, []float64, error) {
	if len(predicted) != len(actual) {
		return nil, nil, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	p := make([]float64, 0, len(predicted))
	a := make([]float64, 0, len(actual))
	for i := range actual {
		if !isFinite(actual[i]) || !isFinite(predicted[i]) {
			continue
		}
		p = append(p, predicted[i])
		a = append(a, actual[i])
	}
	return p, a, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// MSE computes the mean squared error, mean((y-yhat)^2). A score of 0 means a perfect match.
func MSE(predicted, actual []float64) (float64, error) {
	p, a, err := finitePairs(predicted, actual)
	if err != nil {
		return 0, err
	}
	if len(a) == 0 {
		return 0, nil
	}

	mse := 0.0
	for i := range a {
		mse += math.Pow(a[i]-p[i], 2.0)
	}
	return mse / float64(len(a)), nil
}

// MAPE calculates the mean average percent error, mean(abs((y-yhat)/y)). Days with no
// actual usage are skipped.
func MAPE(predicted, actual []float64) (float64, error) {
	p, a, err := finitePairs(predicted, actual)
	if err != nil {
		return 0, err
	}

	mape := 0.0
	var cnt int
	for i := range a {
		if a[i] == 0 {
			continue
		}
		mape += math.Abs((a[i] - p[i]) / a[i])
		cnt++
	}
	if cnt == 0 {
		return 0, nil
	}
	return mape / float64(cnt), nil
}

// RSquared computes the r squared value between the predicted and actual where 1.0 means
// a perfect fit. A constant actual series matched exactly scores 1.0.
func RSquared(predicted, actual []float64) (float64, error) {
	p, a, err := finitePairs(predicted, actual)
	if err != nil {
		return 0, err
	}
	if len(a) == 0 {
		return 1.0, nil
	}
	r2 := stat.RSquaredFrom(p, a, nil)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		// zero variance in the actuals
		mse, _ := MSE(p, a)
		if mse == 0 {
			return 1.0, nil
		}
		return 0, nil
	}
	return r2, nil
}
