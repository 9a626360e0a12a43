package forecast

import (
	"context"
	"fmt"
	"io"

	"github.com/aouyang1/go-watercast/timedataset"
	"github.com/aouyang1/go-watercast/util"
)

// Backtest is a forecast of held out history alongside the actual values
type Backtest struct {
	Result *Result   `json:"result"`
	Actual []float64 `json:"actual"`
	Scores *Scores   `json:"scores"`
}

// Backtest holds out the last horizon records of the history, forecasts them from the
// records before and scores the forecast against the held out target values.
func (e *Engine) Backtest(ctx context.Context, h *timedataset.History, horizon int) (*Backtest, error) {
	if h.Len() <= horizon {
		return nil, fmt.Errorf("history of %d records with holdout of %d, %w", h.Len(), horizon, ErrHoldoutTooLong)
	}
	recs := h.Records()
	split := len(recs) - horizon

	train, err := timedataset.NewHistory(h.Columns(), recs[:split])
	if err != nil {
		return nil, fmt.Errorf("unable to build training history, %w", err)
	}

	res, err := e.Run(ctx, train, horizon)
	if err != nil {
		return nil, err
	}

	actual := make([]float64, 0, horizon)
	for _, rec := range recs[split:] {
		actual = append(actual, rec.TankerLitres)
	}

	scores, err := NewScores(res.Values(), actual)
	if err != nil {
		return nil, fmt.Errorf("unable to score backtest, %w", err)
	}
	return &Backtest{
		Result: res,
		Actual: actual,
		Scores: scores,
	}, nil
}

// TablePrint writes the backtest scores
func (b *Backtest) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%s%sBacktest (%d days):\n", prefix, util.IndentExpand(indent, 0), b.Result.Len()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s%sMAPE: %.3f    MSE: %.3f    R2: %.3f\n",
		prefix, util.IndentExpand(indent, 1),
		b.Scores.MAPE,
		b.Scores.MSE,
		b.Scores.R2,
	)
	return err
}
