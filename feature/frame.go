package feature

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// Reasons a value was forced to 0
const (
	ReasonNaN            = "nan"
	ReasonPosInf         = "+inf"
	ReasonNegInf         = "-inf"
	ReasonMissingHistory = "missing history"
)

// NumericSanitizationWarning records a value that was forced to 0 during cleaning. It
// never blocks execution and exists so data quality can be monitored.
type NumericSanitizationWarning struct {
	Column string    `json:"column"`
	Date   time.Time `json:"date"`
	Reason string    `json:"reason"`
}

func (w NumericSanitizationWarning) String() string {
	return fmt.Sprintf("%s on %s forced to 0 (%s)", w.Column, w.Date.Format(time.DateOnly), w.Reason)
}

// Sanitize returns the value if finite, otherwise 0 along with the reason it was
// replaced.
func Sanitize(val float64) (float64, string) {
	switch {
	case math.IsNaN(val):
		return 0, ReasonNaN
	case math.IsInf(val, 1):
		return 0, ReasonPosInf
	case math.IsInf(val, -1):
		return 0, ReasonNegInf
	}
	return val, ""
}

// CountByColumn tallies warnings per column
func CountByColumn(warnings []NumericSanitizationWarning) map[string]int {
	counts := make(map[string]int)
	for _, w := range warnings {
		counts[w.Column]++
	}
	return counts
}

// Frame is the engineered table produced from a history. Each column is fully
// populated with finite values and rows are in ascending date order.
type Frame struct {
	t        []time.Time
	set      *Set
	labels   *Labels
	warnings []NumericSanitizationWarning
}

// Len returns the number of rows
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.t)
}

// T returns the dates of each row
func (f *Frame) T() []time.Time {
	if f == nil {
		return nil
	}
	return slices.Clone(f.t)
}

// Labels returns the ordered column labels
func (f *Frame) Labels() *Labels {
	if f == nil {
		return nil
	}
	return f.labels
}

// Columns returns the ordered column names
func (f *Frame) Columns() []string {
	return f.Labels().Strings()
}

// Column returns a copy of the named column
func (f *Frame) Column(name string) ([]float64, bool) {
	if f == nil {
		return nil, false
	}
	vals, exists := f.set.GetByName(name)
	if !exists {
		return nil, false
	}
	return slices.Clone(vals), true
}

// Warnings returns every value forced to 0 while building the frame
func (f *Frame) Warnings() []NumericSanitizationWarning {
	if f == nil {
		return nil
	}
	return slices.Clone(f.warnings)
}

// Row returns the i-th row of the frame
func (f *Frame) Row(i int) Row {
	values := make([]float64, f.labels.Len())
	for j, name := range f.labels.Strings() {
		vals, _ := f.set.GetByName(name)
		values[j] = vals[i]
	}
	return Row{
		Date:   f.t[i],
		labels: f.labels,
		values: values,
	}
}

// Last returns the most recent row of the frame
func (f *Frame) Last() Row {
	return f.Row(f.Len() - 1)
}

// Row is a single feature vector of the frame. Columns follow the frame label order.
type Row struct {
	Date time.Time

	labels *Labels
	values []float64
}

// NewRow builds a row from parallel column names and values
func NewRow(date time.Time, columns []string, values []float64) Row {
	labels := make([]Feature, len(columns))
	for i, col := range columns {
		labels[i] = Parse(col)
	}
	return Row{
		Date:   date,
		labels: NewLabels(labels),
		values: slices.Clone(values),
	}
}

// Columns returns the ordered column names of the row
func (r Row) Columns() []string {
	return r.labels.Strings()
}

// Values returns a copy of the row values
func (r Row) Values() []float64 {
	return slices.Clone(r.values)
}

// Get returns the value of the named column
func (r Row) Get(col string) (float64, bool) {
	idx, exists := r.labels.IndexOf(col)
	if !exists || idx >= len(r.values) {
		return 0, false
	}
	return r.values[idx], true
}

// Slice returns the values for the requested columns in the requested order along with
// any columns the row does not have.
func (r Row) Slice(cols []string) ([]float64, []string) {
	x := make([]float64, 0, len(cols))
	var missing []string
	for _, col := range cols {
		val, exists := r.Get(col)
		if !exists {
			missing = append(missing, col)
			continue
		}
		x = append(x, val)
	}
	return x, missing
}

// Sanitize returns a copy of the row where every non-finite value is replaced by 0
// along with a warning per replaced value.
func (r Row) Sanitize() (Row, []NumericSanitizationWarning) {
	var warnings []NumericSanitizationWarning
	values := make([]float64, len(r.values))
	names := r.labels.Strings()
	for i, val := range r.values {
		clean, reason := Sanitize(val)
		if reason != "" {
			warnings = append(warnings, NumericSanitizationWarning{
				Column: names[i],
				Date:   r.Date,
				Reason: reason,
			})
		}
		values[i] = clean
	}
	return Row{
		Date:   r.Date,
		labels: r.labels,
		values: values,
	}, warnings
}
