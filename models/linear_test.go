package models

import (
	"bytes"
	"math"
	"testing"

	"github.com/aouyang1/go-watercast/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testLinear(t *testing.T) *Linear {
	l, err := NewLinear(
		50,
		[]feature.Feature{
			feature.NewLag("tanker", "tanker_litres", 1),
			feature.NewLag("tanker", "tanker_litres", 7),
			feature.NewCalendar("is_weekend"),
			feature.NewRaw("bwssb_litres"),
		},
		[]float64{0.5, 0.25, 100, -0.1},
	)
	require.Nil(t, err)
	return l
}

func TestLinearPredict(t *testing.T) {
	l := testLinear(t)
	assert.Equal(t, []string{"tanker_lag_1", "tanker_lag_7", "is_weekend", "bwssb_litres"}, l.FeatureNames())

	testData := map[string]struct {
		x        []float64
		expected float64
		err      error
	}{
		"zeros":    {[]float64{0, 0, 0, 0}, 50, nil},
		"weekday":  {[]float64{1000, 2000, 0, 100}, 50 + 500 + 500 - 10, nil},
		"weekend":  {[]float64{1000, 2000, 1, 100}, 50 + 500 + 500 + 100 - 10, nil},
		"too few":  {[]float64{1, 2}, 0, ErrFeatureLenMismatch},
		"too many": {[]float64{1, 2, 3, 4, 5}, 0, ErrFeatureLenMismatch},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			y, err := l.Predict(td.x)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.InDelta(t, td.expected, y, 1e-9)
		})
	}
}

func TestLinearPredictMatrix(t *testing.T) {
	l := testLinear(t)
	x := mat.NewDense(2, 4, []float64{
		0, 0, 0, 0,
		1000, 2000, 1, 100,
	})
	res, err := l.PredictMatrix(x)
	require.Nil(t, err)
	assert.InDeltaSlice(t, []float64{50, 1140}, res, 1e-9)

	_, err = l.PredictMatrix(mat.NewDense(1, 2, nil))
	assert.ErrorIs(t, err, ErrFeatureLenMismatch)
}

func TestLinearValidate(t *testing.T) {
	testData := map[string]struct {
		l   *Linear
		err error
	}{
		"nil": {nil, ErrNoModel},
		"non-finite intercept": {
			&Linear{Intercept: math.NaN()},
			ErrNonFiniteParameter,
		},
		"non-finite weight": {
			&Linear{Weights: []FeatureWeight{NewFeatureWeight(feature.NewRaw("a"), math.Inf(1))}},
			ErrNonFiniteParameter,
		},
		"unknown type": {
			&Linear{Weights: []FeatureWeight{{Type: "fourier", Labels: map[string]string{"name": "a"}}}},
			ErrUnknownFeatureType,
		},
		"duplicate weight": {
			&Linear{Weights: []FeatureWeight{
				NewFeatureWeight(feature.NewRaw("a"), 1),
				NewFeatureWeight(feature.NewRaw("a"), 2),
			}},
			ErrDuplicateFeature,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, td.l.Validate(), td.err)
		})
	}

	_, err := NewLinear(0, []feature.Feature{feature.NewRaw("a")}, nil)
	assert.ErrorIs(t, err, ErrFeatureLenMismatch)
}

func TestFeatureWeightToFeature(t *testing.T) {
	testData := map[string]feature.Feature{
		"raw":      feature.NewRaw("bwssb_litres"),
		"lag":      feature.NewLag("tanker", "tanker_litres", 14),
		"calendar": feature.NewCalendar("is_weekend"),
	}

	for name, feat := range testData {
		t.Run(name, func(t *testing.T) {
			fw := NewFeatureWeight(feat, 1.5)
			res, err := fw.ToFeature()
			require.Nil(t, err)
			assert.Equal(t, feat, res)
		})
	}
}

func TestLinearTablePrint(t *testing.T) {
	l := testLinear(t)
	var b bytes.Buffer
	require.Nil(t, l.TablePrint(&b, "", "  ", 0))
	out := b.String()
	assert.Contains(t, out, "Intercept: 50.000")
	assert.Contains(t, out, "tanker_litres")
	assert.Contains(t, out, "-0.100")
}
