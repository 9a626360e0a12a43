package timedataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	time.DateTime,
	"2006-01-02T15:04:05",
	"2006/01/02",
}

// ParseDate parses an ISO-8601 date or date time and truncates it to the day
func ParseDate(val string) (time.Time, error) {
	val = strings.TrimSpace(val)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, val)
		if err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, ErrMalformedDate
}

// parseNumeric mirrors a lenient numeric coercion where anything that is not a number
// becomes NaN and is cleaned up by feature engineering.
func parseNumeric(val string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// FromTable builds a History from a header and string rows. The header must contain
// the date and target columns. Dates must parse, every other cell is coerced to a
// number with unparseable cells stored as NaN. Rows are sorted by date before
// validation so duplicated dates are rejected.
func FromTable(header []string, rows [][]string) (*History, error) {
	if len(rows) == 0 {
		return nil, ErrNoHistory
	}

	cols := make([]string, len(header))
	for i, col := range header {
		cols[i] = strings.ToLower(strings.TrimSpace(col))
	}

	dateIdx := slices.Index(cols, ColDate)
	if dateIdx < 0 {
		return nil, NewMissingColumnError(ColDate)
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		if len(row) != len(cols) {
			return nil, &SchemaError{
				Column: ColDate,
				Row:    i,
				Err:    fmt.Errorf("got %d cells for %d columns, %w", len(row), len(cols), ErrRowLenMismatch),
			}
		}

		date, err := ParseDate(row[dateIdx])
		if err != nil {
			return nil, &SchemaError{Column: ColDate, Row: i, Value: row[dateIdx], Err: err}
		}
		rec := Record{Date: date}
		for j, col := range cols {
			if j == dateIdx {
				continue
			}
			rec.SetValue(col, parseNumeric(row[j]))
		}
		records = append(records, rec)
	}

	slices.SortStableFunc(records, func(a, b Record) int {
		return a.Date.Compare(b.Date)
	})

	return NewHistory(cols, records)
}

// ReadCSV reads a history from comma separated input with a header row
func ReadCSV(r io.Reader) (*History, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	all, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to read csv history, %w", err)
	}
	if len(all) == 0 {
		return nil, ErrNoHistory
	}
	return FromTable(all[0], all[1:])
}
