package stats

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-watercast/timedataset"
	"github.com/aouyang1/go-watercast/util"
	"gonum.org/v1/gonum/floats"
)

// TankerDependencyThreshold is the tanker share in percent above which a window is flagged
// as tanker dependent
const TankerDependencyThreshold = 30.0

// DefaultSplitDays are the trailing windows reported by SourceSplits
var DefaultSplitDays = []int{7, 30, 90}

// SourceSplit is the share of water drawn from each source over a trailing window
type SourceSplit struct {
	Days            int     `json:"days"`
	Records         int     `json:"records"`
	BorewellPercent float64 `json:"borewell_pct"`
	BWSSBPercent    float64 `json:"bwssb_pct"`
	TankerPercent   float64 `json:"tanker_pct"`
	TotalLitres     float64 `json:"total_litres"`
}

// TankerDependent reports whether tankers supplied more than TankerDependencyThreshold
// percent of the water
func (s SourceSplit) TankerDependent() bool {
	return s.TankerPercent > TankerDependencyThreshold
}

var splitColumns = []string{
	timedataset.ColBorewellLitres,
	timedataset.ColBWSSBLitres,
	timedataset.ColTankerLitres,
}

// SourceSplits computes the split over records dated within each number of days up to and
// including the last date of the history. Non-finite litres are skipped and a window
// without any water reports zero percentages.
func SourceSplits(h *timedataset.History, days []int) ([]SourceSplit, error) {
	for _, col := range splitColumns {
		if !h.HasColumn(col) {
			return nil, timedataset.NewMissingColumnError(col)
		}
	}

	recs := h.Records()
	last := h.LastDate()
	splits := make([]SourceSplit, 0, len(days))
	for _, d := range days {
		cutoff := last.AddDate(0, 0, -d)

		var borewell, bwssb, tanker []float64
		for _, rec := range recs {
			if !rec.Date.After(cutoff) {
				continue
			}
			borewell = append(borewell, rec.BorewellLitres)
			bwssb = append(bwssb, rec.BWSSBLitres)
			tanker = append(tanker, rec.TankerLitres)
		}

		s := SourceSplit{
			Days:    d,
			Records: len(tanker),
		}
		b := floats.Sum(Finite(borewell))
		w := floats.Sum(Finite(bwssb))
		t := floats.Sum(Finite(tanker))
		s.TotalLitres = b + w + t
		if s.TotalLitres > 0 {
			s.BorewellPercent = percent(b, s.TotalLitres)
			s.BWSSBPercent = percent(w, s.TotalLitres)
			s.TankerPercent = percent(t, s.TotalLitres)
		}
		splits = append(splits, s)
	}
	return splits, nil
}

func percent(part, total float64) float64 {
	return math.Round(part/total*10000) / 100
}

// TablePrintSplits writes one line per window
func TablePrintSplits(w io.Writer, prefix, indent string, splits []SourceSplit, last time.Time) error {
	if _, err := fmt.Fprintf(w, "%s%sSource Split (as of %s):\n", prefix, util.IndentExpand(indent, 0), last.Format(time.DateOnly)); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sWindow\tBorewell %%\tBWSSB %%\tTanker %%\tTotal Litres\t\t\n",
		prefix, util.IndentExpand(indent, 1)); err != nil {
		return err
	}
	for _, s := range splits {
		flag := ""
		if s.TankerDependent() {
			flag = "tanker dependent"
		}
		if _, err := fmt.Fprintf(tbl, "%s%s%d days\t%.2f\t%.2f\t%.2f\t%.0f\t%s\t\n",
			prefix, util.IndentExpand(indent, 1),
			s.Days, s.BorewellPercent, s.BWSSBPercent, s.TankerPercent, s.TotalLitres, flag,
		); err != nil {
			return err
		}
	}
	return tbl.Flush()
}
