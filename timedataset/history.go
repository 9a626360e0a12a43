// Package timedataset holds the daily water usage history that feeds the forecast along
// with helpers to build it from tabular input or to simulate it for tests.
package timedataset

import (
	"maps"
	"math"
	"slices"
	"time"
)

const (
	ColDate             = "date"
	ColTankerLitres     = "tanker_litres"
	ColBorewellLitres   = "borewell_litres"
	ColBWSSBLitres      = "bwssb_litres"
	ColBWSSBSupplyIndex = "bwssb_supply_index"

	// ColTarget is the forecasted column
	ColTarget = ColTankerLitres

	// RecentWindow is the number of trailing days summarized for recent usage
	RecentWindow = 7
)

// DefaultColumns is the raw schema of a complete water usage history excluding the
// date column.
var DefaultColumns = []string{
	ColTankerLitres,
	ColBorewellLitres,
	ColBWSSBLitres,
	ColBWSSBSupplyIndex,
}

// Record is one calendar day of water usage. Extra holds any other numeric columns
// present in the raw schema.
type Record struct {
	Date             time.Time          `json:"date"`
	TankerLitres     float64            `json:"tanker_litres"`
	BorewellLitres   float64            `json:"borewell_litres"`
	BWSSBLitres      float64            `json:"bwssb_litres"`
	BWSSBSupplyIndex float64            `json:"bwssb_supply_index"`
	Extra            map[string]float64 `json:"extra,omitempty"`
}

// Value returns the value stored for the column. Unknown columns return false.
func (r Record) Value(col string) (float64, bool) {
	switch col {
	case ColTankerLitres:
		return r.TankerLitres, true
	case ColBorewellLitres:
		return r.BorewellLitres, true
	case ColBWSSBLitres:
		return r.BWSSBLitres, true
	case ColBWSSBSupplyIndex:
		return r.BWSSBSupplyIndex, true
	}
	val, exists := r.Extra[col]
	return val, exists
}

// SetValue stores the value for the column, placing unknown columns in Extra.
func (r *Record) SetValue(col string, val float64) {
	switch col {
	case ColTankerLitres:
		r.TankerLitres = val
	case ColBorewellLitres:
		r.BorewellLitres = val
	case ColBWSSBLitres:
		r.BWSSBLitres = val
	case ColBWSSBSupplyIndex:
		r.BWSSBSupplyIndex = val
	default:
		if r.Extra == nil {
			r.Extra = make(map[string]float64)
		}
		r.Extra[col] = val
	}
}

// Copy returns a deep copy of the record
func (r Record) Copy() Record {
	c := r
	if r.Extra != nil {
		c.Extra = maps.Clone(r.Extra)
	}
	return c
}

// Day truncates a time to the calendar day it falls on in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// History is an ordered set of daily records along with the raw columns that were
// present when the history was built. Exactly one record exists per date and dates are
// strictly increasing.
type History struct {
	columns []string
	records []Record
}

// NewHistory validates and copies the records into a History. The columns list the raw
// non-date columns available in the records and must include the target column.
func NewHistory(columns []string, records []Record) (*History, error) {
	if len(records) == 0 {
		return nil, ErrNoHistory
	}

	cols := make([]string, 0, len(columns))
	seen := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		if col == ColDate {
			continue
		}
		if _, exists := seen[col]; exists {
			return nil, &SchemaError{Column: col, Row: -1, Err: ErrDuplicateColumn}
		}
		seen[col] = struct{}{}
		cols = append(cols, col)
	}
	if _, exists := seen[ColTarget]; !exists {
		return nil, NewMissingColumnError(ColTarget)
	}

	recs := make([]Record, len(records))
	var lastDate time.Time
	for i, rec := range records {
		rec = rec.Copy()
		rec.Date = Day(rec.Date)
		if i > 0 && !rec.Date.After(lastDate) {
			return nil, &SchemaError{Column: ColDate, Row: i, Value: rec.Date.Format(time.DateOnly), Err: ErrNonMonotonic}
		}
		lastDate = rec.Date
		recs[i] = rec
	}

	return &History{
		columns: cols,
		records: recs,
	}, nil
}

// Len returns the number of records
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.records)
}

// Columns returns the raw non-date columns of the history
func (h *History) Columns() []string {
	if h == nil {
		return nil
	}
	return slices.Clone(h.columns)
}

// HasColumn reports whether the column is part of the raw schema. The date column is
// always present.
func (h *History) HasColumn(col string) bool {
	if h == nil {
		return false
	}
	if col == ColDate {
		return true
	}
	return slices.Contains(h.columns, col)
}

// Record returns a copy of the i-th record
func (h *History) Record(i int) Record {
	return h.records[i].Copy()
}

// Records returns a copy of all records in ascending date order
func (h *History) Records() []Record {
	if h == nil {
		return nil
	}
	recs := make([]Record, len(h.records))
	for i, rec := range h.records {
		recs[i] = rec.Copy()
	}
	return recs
}

// Dates returns the dates of all records
func (h *History) Dates() TimeSlice {
	if h == nil {
		return nil
	}
	t := make(TimeSlice, len(h.records))
	for i, rec := range h.records {
		t[i] = rec.Date
	}
	return t
}

// Values returns the column values in date order. Columns outside of the schema return
// false.
func (h *History) Values(col string) ([]float64, bool) {
	if h == nil || col == ColDate || !h.HasColumn(col) {
		return nil, false
	}
	vals := make([]float64, len(h.records))
	for i, rec := range h.records {
		val, exists := rec.Value(col)
		if !exists {
			val = math.NaN()
		}
		vals[i] = val
	}
	return vals, true
}

// LastDate returns the maximum date in the history
func (h *History) LastDate() time.Time {
	if h.Len() == 0 {
		return time.Time{}
	}
	return h.records[len(h.records)-1].Date
}

// Copy returns a deep copy of the history
func (h *History) Copy() *History {
	if h == nil {
		return nil
	}
	return &History{
		columns: slices.Clone(h.columns),
		records: h.Records(),
	}
}

// Tail returns a copy of the last n records. If n is not positive or is larger than the
// history the full history is copied.
func (h *History) Tail(n int) *History {
	if h == nil {
		return nil
	}
	if n <= 0 || n >= len(h.records) {
		return h.Copy()
	}
	recs := make([]Record, n)
	for i, rec := range h.records[len(h.records)-n:] {
		recs[i] = rec.Copy()
	}
	return &History{
		columns: slices.Clone(h.columns),
		records: recs,
	}
}

// Append adds a record after the last date of the history
func (h *History) Append(rec Record) error {
	rec = rec.Copy()
	rec.Date = Day(rec.Date)
	if h.Len() > 0 && !rec.Date.After(h.LastDate()) {
		return &SchemaError{Column: ColDate, Row: len(h.records), Value: rec.Date.Format(time.DateOnly), Err: ErrAppendBeforeLast}
	}
	h.records = append(h.records, rec)
	return nil
}

// Summary describes the most recent state of the history
type Summary struct {
	FirstDate          time.Time `json:"first_date"`
	LastDate           time.Time `json:"last_date"`
	Days               int       `json:"days"`
	RecentTankerLitres float64   `json:"recent_tanker_litres"`
}

// Summary returns the date range and the mean tanker litres over the trailing
// RecentWindow days, skipping non-finite values.
func (h *History) Summary() Summary {
	if h.Len() == 0 {
		return Summary{}
	}
	dates := h.Dates()
	s := Summary{
		FirstDate: dates.StartTime(),
		LastDate:  dates.EndTime(),
		Days:      h.Len(),
	}

	var sum float64
	var cnt int
	for _, rec := range h.records[max(0, len(h.records)-RecentWindow):] {
		if math.IsNaN(rec.TankerLitres) || math.IsInf(rec.TankerLitres, 0) {
			continue
		}
		sum += rec.TankerLitres
		cnt++
	}
	if cnt > 0 {
		s.RecentTankerLitres = sum / float64(cnt)
	}
	return s
}
