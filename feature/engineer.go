package feature

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aouyang1/go-watercast/timedataset"
)

const (
	// LabelWeekend flags saturdays and sundays
	LabelWeekend = "is_weekend"

	// LagName prefixes the lag columns of the target e.g. tanker_lag_7
	LagName = "tanker"
)

// ErrNoHistory is returned when engineering features from an empty history
var ErrNoHistory = errors.New("no history to engineer features from")

// Lags are the fixed offsets in days of the target lag features
var Lags = []int{1, 2, 3, 7, 14, 21}

// MaxLag returns the largest configured lag
func MaxLag() int {
	return slices.Max(Lags)
}

// LagColumns returns the names of the lag columns of the target
func LagColumns() []string {
	cols := make([]string, len(Lags))
	for i, lag := range Lags {
		cols[i] = NewLag(LagName, timedataset.ColTarget, lag).String()
	}
	return cols
}

// EngineeredColumns returns the columns derived by Engineer in addition to the raw
// history columns.
func EngineeredColumns() []string {
	return append([]string{LabelWeekend}, LagColumns()...)
}

// Parse resolves a column name into the feature that would produce it
func Parse(col string) Feature {
	if col == LabelWeekend {
		return NewCalendar(col)
	}
	prefix := LagName + "_lag_"
	if strings.HasPrefix(col, prefix) {
		if lag, err := strconv.Atoi(strings.TrimPrefix(col, prefix)); err == nil && slices.Contains(Lags, lag) {
			return NewLag(LagName, timedataset.ColTarget, lag)
		}
	}
	return NewRaw(col)
}

// IsEngineered reports whether Engineer derives the column rather than reading it from
// the history.
func IsEngineered(col string) bool {
	return Parse(col).Type() != FeatureTypeRaw
}

// Engineer derives the lag, weekend and cleaned raw columns of every row in the
// history. Raw values that are not finite are replaced with 0. Lag entries without
// enough history are back-filled from the nearest later value, or 0 when the history is
// shorter than the lag. The input history is not modified.
func Engineer(h *timedataset.History) (*Frame, error) {
	if h.Len() == 0 {
		return nil, ErrNoHistory
	}

	t := []time.Time(h.Dates())
	n := len(t)

	set := NewSet()
	var warnings []NumericSanitizationWarning

	for _, col := range h.Columns() {
		vals, exists := h.Values(col)
		if !exists {
			return nil, fmt.Errorf("unable to read column %q, %w", col, timedataset.NewMissingColumnError(col))
		}
		for i, val := range vals {
			clean, reason := Sanitize(val)
			if reason != "" {
				warnings = append(warnings, NumericSanitizationWarning{
					Column: col,
					Date:   t[i],
					Reason: reason,
				})
			}
			vals[i] = clean
		}
		set.Set(NewRaw(col), vals)
	}

	target, _ := set.GetByName(timedataset.ColTarget)
	for _, lag := range Lags {
		feat := NewLag(LagName, timedataset.ColTarget, lag)
		vals := make([]float64, n)
		if lag >= n {
			for i := range vals {
				warnings = append(warnings, NumericSanitizationWarning{
					Column: feat.String(),
					Date:   t[i],
					Reason: ReasonMissingHistory,
				})
			}
			set.Set(feat, vals)
			continue
		}
		for i := lag; i < n; i++ {
			vals[i] = target[i-lag]
		}
		// back-fill the leading rows with the first defined lag value
		for i := 0; i < lag; i++ {
			vals[i] = vals[lag]
		}
		set.Set(feat, vals)
	}

	weekend := make([]float64, n)
	for i, tPnt := range t {
		switch tPnt.Weekday() {
		case time.Saturday, time.Sunday:
			weekend[i] = 1.0
		}
	}
	set.Set(NewCalendar(LabelWeekend), weekend)

	return &Frame{
		t:        t,
		set:      set,
		labels:   set.Labels(),
		warnings: warnings,
	}, nil
}
