package pricing

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-watercast/util"
	"github.com/shopspring/decimal"
)

// DefaultTopSavings is the number of days highlighted in a budget report
const DefaultTopSavings = 5

// Budget is the cost projection of a forecast
type Budget struct {
	Rows   []Row  `json:"rows"`
	Supply Supply `json:"supply"`
}

// Summary totals a budget
type Summary struct {
	Days        int             `json:"days"`
	Litres      float64         `json:"forecast_litres"`
	Tankers     int             `json:"tankers_needed"`
	MarketCost  decimal.Decimal `json:"market_cost_rs"`
	PrebookCost decimal.Decimal `json:"prebook_cost_rs"`
	Savings     decimal.Decimal `json:"savings_rs"`
}

// Summary sums litres, tankers and costs over every row
func (b *Budget) Summary() Summary {
	var s Summary
	if b == nil {
		return s
	}
	s.Days = len(b.Rows)
	for _, r := range b.Rows {
		if r.PredictedLitres > 0 {
			s.Litres += r.PredictedLitres
		}
		s.Tankers += r.TankersNeeded
		s.MarketCost = s.MarketCost.Add(r.MarketCost)
		s.PrebookCost = s.PrebookCost.Add(r.PrebookCost)
		s.Savings = s.Savings.Add(r.Savings)
	}
	return s
}

// TopSavings returns up to n rows with the largest savings, earlier days first on ties
func (b *Budget) TopSavings(n int) []Row {
	if b == nil || n <= 0 {
		return nil
	}
	rows := slices.Clone(b.Rows)
	slices.SortStableFunc(rows, func(a, c Row) int {
		if d := c.Savings.Cmp(a.Savings); d != 0 {
			return d
		}
		return cmp.Compare(a.Date.Unix(), c.Date.Unix())
	})
	return rows[:min(n, len(rows))]
}

// TablePrint writes the cost table, totals and top savings days rounded for display
func (b *Budget) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%s%sBudget (%d days):\n", prefix, util.IndentExpand(indent, 0), len(b.Rows)); err != nil {
		return err
	}
	shortage := "no"
	if b.Supply.Shortage {
		shortage = "yes"
	}
	if _, err := fmt.Fprintf(w, "%s%sSupply Index Median: %.3f    Shortage: %s\n",
		prefix, util.IndentExpand(indent, 1), b.Supply.Median, shortage); err != nil {
		return err
	}

	if err := tablePrintRows(w, prefix, indent, b.Rows); err != nil {
		return err
	}

	s := b.Summary()
	if _, err := fmt.Fprintf(w, "%s%sTotals:\n", prefix, util.IndentExpand(indent, 0)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sLitres: %.0f    Tankers: %d    Market: %s    Prebook: %s    Savings: %s\n",
		prefix, util.IndentExpand(indent, 1),
		s.Litres, s.Tankers,
		s.MarketCost.StringFixed(2), s.PrebookCost.StringFixed(2), s.Savings.StringFixed(2)); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "%s%sTop Savings:\n", prefix, util.IndentExpand(indent, 0)); err != nil {
		return err
	}
	return tablePrintRows(w, prefix, indent, b.TopSavings(DefaultTopSavings))
}

func tablePrintRows(w io.Writer, prefix, indent string, rows []Row) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sDate\tLitres\tTankers\tPrice/L\tMarket\tPrebook\tSavings\tWeekend\t\n",
		prefix, util.IndentExpand(indent, 1)); err != nil {
		return err
	}
	for _, r := range rows {
		weekend := ""
		if r.Weekend {
			weekend = "yes"
		}
		if r.Holiday != "" {
			weekend = r.Holiday
		}
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%.0f\t%d\t%s\t%s\t%s\t%s\t%s\t\n",
			prefix, util.IndentExpand(indent, 1),
			r.Date.Format(time.DateOnly),
			r.PredictedLitres,
			r.TankersNeeded,
			r.MarketPricePerLitre.StringFixed(4),
			r.MarketCost.StringFixed(2),
			r.PrebookCost.StringFixed(2),
			r.Savings.StringFixed(2),
			weekend,
		); err != nil {
			return err
		}
	}
	return tbl.Flush()
}
