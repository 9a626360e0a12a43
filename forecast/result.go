package forecast

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-watercast/feature"
	"github.com/aouyang1/go-watercast/util"
)

// Step is one forecasted day. PredictedLitres is always Base plus Residual.
type Step struct {
	Date            time.Time `json:"date"`
	PredictedLitres float64   `json:"predicted_litres"`
	Base            float64   `json:"base"`
	Residual        float64   `json:"residual"`
}

// Result is the ordered forecast for a single horizon
type Result struct {
	Horizon  int                                  `json:"horizon"`
	Steps    []Step                               `json:"steps"`
	Warnings []feature.NumericSanitizationWarning `json:"warnings,omitempty"`
}

// Len returns the number of steps
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Steps)
}

// Dates returns the date of each step
func (r *Result) Dates() []time.Time {
	if r == nil {
		return nil
	}
	t := make([]time.Time, len(r.Steps))
	for i, s := range r.Steps {
		t[i] = s.Date
	}
	return t
}

// Values returns the predicted litres of each step
func (r *Result) Values() []float64 {
	if r == nil {
		return nil
	}
	y := make([]float64, len(r.Steps))
	for i, s := range r.Steps {
		y[i] = s.PredictedLitres
	}
	return y
}

// Prefix returns a copy of the first n steps as a result for horizon n. Since every step
// only depends on the steps before it, this equals running the shorter horizon.
func (r *Result) Prefix(n int) *Result {
	if r == nil {
		return nil
	}
	n = min(max(n, 0), len(r.Steps))

	var warnings []feature.NumericSanitizationWarning
	var last time.Time
	if n > 0 {
		last = r.Steps[n-1].Date
	}
	for _, w := range r.Warnings {
		// warnings dated after the last kept step come from later synthetic rows
		if n > 0 && w.Date.Before(last) {
			warnings = append(warnings, w)
		}
	}
	return &Result{
		Horizon:  n,
		Steps:    slices.Clone(r.Steps[:n]),
		Warnings: warnings,
	}
}

// TablePrint writes the forecast in a human readable table with values rounded for display
func (r *Result) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%s%sForecast (%d days):\n", prefix, util.IndentExpand(indent, 0), r.Len()); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sDate\tPredicted Litres\tBase\tResidual\t\n", prefix, util.IndentExpand(indent, 1)); err != nil {
		return err
	}
	for _, s := range r.Steps {
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%.0f\t%.1f\t%.1f\t\n",
			prefix, util.IndentExpand(indent, 1),
			s.Date.Format(time.DateOnly), s.PredictedLitres, s.Base, s.Residual); err != nil {
			return err
		}
	}
	if err := tbl.Flush(); err != nil {
		return err
	}
	if len(r.Warnings) > 0 {
		if _, err := fmt.Fprintf(w, "%s%sSanitized values: %d\n", prefix, util.IndentExpand(indent, 1), len(r.Warnings)); err != nil {
			return err
		}
	}
	return nil
}
