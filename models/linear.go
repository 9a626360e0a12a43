package models

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/aouyang1/go-watercast/feature"
	"github.com/aouyang1/go-watercast/util"
	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Linear is a pre-fit linear model over named features. It is the one step ahead
// forecast of a seasonal autoregressive model with exogenous regressors, reduced to its
// intercept and coefficients.
type Linear struct {
	Intercept float64         `json:"intercept"`
	Weights   []FeatureWeight `json:"weights"`
}

// NewLinear builds a linear model from a mapping of features to coefficients in the given
// order
func NewLinear(intercept float64, feats []feature.Feature, coef []float64) (*Linear, error) {
	if len(feats) != len(coef) {
		return nil, fmt.Errorf("got %d features and %d coefficients, %w", len(feats), len(coef), ErrFeatureLenMismatch)
	}
	weights := make([]FeatureWeight, len(feats))
	for i, f := range feats {
		weights[i] = NewFeatureWeight(f, coef[i])
	}
	l := &Linear{
		Intercept: intercept,
		Weights:   weights,
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Validate ensures every parameter is finite and every weight maps to a known and unique
// feature
func (l *Linear) Validate() error {
	if l == nil {
		return ErrNoModel
	}
	if math.IsNaN(l.Intercept) || math.IsInf(l.Intercept, 0) {
		return fmt.Errorf("intercept, %w", ErrNonFiniteParameter)
	}
	names := make([]string, 0, len(l.Weights))
	for _, fw := range l.Weights {
		feat, err := fw.ToFeature()
		if err != nil {
			return err
		}
		if math.IsNaN(fw.Value) || math.IsInf(fw.Value, 0) {
			return fmt.Errorf("weight of %s, %w", feat, ErrNonFiniteParameter)
		}
		names = append(names, feat.String())
	}
	return validateCols(names)
}

// FeatureNames returns the column names in coefficient order
func (l *Linear) FeatureNames() []string {
	if l == nil {
		return nil
	}
	names := make([]string, 0, len(l.Weights))
	for _, fw := range l.Weights {
		feat, err := fw.ToFeature()
		if err != nil {
			continue
		}
		names = append(names, feat.String())
	}
	return names
}

// Coefficients returns a slice copy of the coefficients ignoring the intercept
func (l *Linear) Coefficients() []float64 {
	if l == nil {
		return nil
	}
	coef := make([]float64, 0, len(l.Weights))
	for _, fw := range l.Weights {
		coef = append(coef, fw.Value)
	}
	return coef
}

// Predict returns the intercept plus the dot product of the coefficients with x
func (l *Linear) Predict(x []float64) (float64, error) {
	if l == nil {
		return 0, ErrNoModel
	}
	if len(x) != len(l.Weights) {
		return 0, fmt.Errorf("got %d features, but expected %d, %w", len(x), len(l.Weights), ErrFeatureLenMismatch)
	}
	return l.Intercept + floats.Dot(l.Coefficients(), x), nil
}

// PredictMatrix runs inference over every row of the design matrix x
func (l *Linear) PredictMatrix(x mat.Matrix) ([]float64, error) {
	if l == nil {
		return nil, ErrNoModel
	}
	_, n := x.Dims()
	if n != len(l.Weights) {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", n, len(l.Weights), ErrFeatureLenMismatch)
	}
	coefMx := mat.NewDense(n, 1, l.Coefficients())

	var res mat.Dense
	res.Mul(x, coefMx)

	out := mat.Col(nil, 0, &res)
	floats.AddConst(l.Intercept, out)
	return out, nil
}

// TablePrint writes the intercept and coefficients in a human readable table
func (l *Linear) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	if _, err := fmt.Fprintf(w, "%s%sLinear:\n", prefix, util.IndentExpand(indent, indentGrowth)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sIntercept: %.3f\n", prefix, util.IndentExpand(indent, indentGrowth+1), l.Intercept); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sType\tLabels\tValue\t\n", prefix, util.IndentExpand(indent, indentGrowth+1)); err != nil {
		return err
	}
	for _, fw := range l.Weights {
		labelOut, err := json.Marshal(fw.Labels)
		if err != nil {
			return err
		}
		val := fmt.Sprintf("%.3f", fw.Value)
		if fw.Value == 0 {
			val = "..."
		}
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t%s\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			fw.Type, string(labelOut), val); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// FeatureWeight represents a feature described with a type e.g. lag, labels and the value
type FeatureWeight struct {
	Labels map[string]string   `json:"labels"`
	Type   feature.FeatureType `json:"type"`
	Value  float64             `json:"value"`
}

func NewFeatureWeight(f feature.Feature, val float64) FeatureWeight {
	return FeatureWeight{
		Labels: f.Decode(),
		Type:   f.Type(),
		Value:  val,
	}
}

// ToFeature transforms the Type and Labels into a feature type
func (fw *FeatureWeight) ToFeature() (feature.Feature, error) {
	if fw == nil {
		return nil, ErrUnknownFeatureType
	}

	var feat feature.Feature
	switch fw.Type {
	case feature.FeatureTypeRaw:
		feat = new(feature.Raw)
	case feature.FeatureTypeLag:
		feat = new(feature.Lag)
	case feature.FeatureTypeCalendar:
		feat = new(feature.Calendar)
	default:
		return nil, fmt.Errorf("%q, %w", fw.Type, ErrUnknownFeatureType)
	}

	// lag is carried as a string label so it is converted back before decoding
	labels := make(map[string]any, len(fw.Labels))
	for k, v := range fw.Labels {
		labels[k] = v
	}
	if lag, exists := fw.Labels["lag"]; exists && fw.Type == feature.FeatureTypeLag {
		labels["lag"] = json.Number(lag)
	}

	bytes, err := json.Marshal(labels)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(bytes, feat); err != nil {
		return nil, fmt.Errorf("unable to decode %s feature labels, %w", fw.Type, err)
	}
	return feat, nil
}
