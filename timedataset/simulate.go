package timedataset

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// GenerateDays returns n consecutive calendar days ending the day before the day
// returned by nowFunc.
func GenerateDays(n int, nowFunc func() time.Time) []time.Time {
	t := make([]time.Time, 0, n)
	ct := Day(nowFunc()).AddDate(0, 0, -n)
	for i := 0; i < n; i++ {
		t = append(t, ct.AddDate(0, 0, i))
	}
	return t
}

type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

func (s Series) MaskWithWeekend(t []time.Time) Series {
	n := len(s)
	for i := 0; i < n; i++ {
		switch t[i].Weekday() {
		case time.Saturday, time.Sunday:
			continue
		default:
			s[i] = 0.0
		}
	}
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

// GenerateWeeklyY generates a wave with a period of one week evaluated on each day
func GenerateWeeklyY(t []time.Time, amp, phaseDays float64) Series {
	n := len(t)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		days := float64(t[i].Unix())/86400.0 + phaseDays
		y = append(y, amp*math.Sin(2.0*math.Pi/7.0*days))
	}
	return Series(y)
}

// GenerateHistory builds a complete history over the days with the tanker series and
// constant values for the remaining supply columns.
func GenerateHistory(t []time.Time, tanker Series, borewell, bwssb, supplyIndex float64) (*History, error) {
	records := make([]Record, len(t))
	for i := range t {
		var y float64
		if i < len(tanker) {
			y = tanker[i]
		}
		records[i] = Record{
			Date:             t[i],
			TankerLitres:     y,
			BorewellLitres:   borewell,
			BWSSBLitres:      bwssb,
			BWSSBSupplyIndex: supplyIndex,
		}
	}
	return NewHistory(DefaultColumns, records)
}
