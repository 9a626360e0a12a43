// Package watercast plans tanker water purchases. It forecasts daily tanker litres with a
// rolling hybrid model and projects the forecast into tanker counts and the savings of
// pre-booking against market prices.
package watercast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aouyang1/go-watercast/config"
	"github.com/aouyang1/go-watercast/forecast"
	"github.com/aouyang1/go-watercast/metrics"
	"github.com/aouyang1/go-watercast/models"
	"github.com/aouyang1/go-watercast/pricing"
	"github.com/aouyang1/go-watercast/stats"
	"github.com/aouyang1/go-watercast/timedataset"
	"github.com/aouyang1/go-watercast/util"
)

var (
	ErrNoPlanner        = errors.New("no planner or uninitialized")
	ErrInvalidSplitDays = errors.New("source split window must be positive")
)

// Planner forecasts tanker demand and prices it. A planner holds the pre-fit models and
// no per request state so it is safe for concurrent use.
type Planner struct {
	opt     *Options
	engine  *forecast.Engine
	metrics *metrics.Metrics
}

// New creates a planner from a base and residual predictor bound to the contract. If no
// options are provided a default is used.
func New(base, residual models.Predictor, contract models.Contract, opt *Options) (*Planner, error) {
	opt, err := prepareOptions(opt)
	if err != nil {
		return nil, err
	}
	engine, err := forecast.New(base, residual, contract, opt.Forecast)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize forecast engine, %w", err)
	}
	return &Planner{opt: opt, engine: engine}, nil
}

// NewFromArtifact creates a planner from a decoded model artifact
func NewFromArtifact(a *models.Artifact, opt *Options) (*Planner, error) {
	opt, err := prepareOptions(opt)
	if err != nil {
		return nil, err
	}
	engine, err := forecast.NewFromArtifact(a, opt.Forecast)
	if err != nil {
		return nil, fmt.Errorf("unable to load from model artifact, %w", err)
	}
	return &Planner{opt: opt, engine: engine}, nil
}

// NewFromConfig loads the configured model artifact through the loader and creates a
// planner with the configured options. A nil loader reads the artifact from disk.
func NewFromConfig(c *config.Config, loader *models.Loader) (*Planner, error) {
	var a *models.Artifact
	var err error
	if loader != nil {
		a, err = loader.Load(c.ModelPath)
	} else {
		a, err = models.ReadArtifact(c.ModelPath)
	}
	if err != nil {
		return nil, err
	}
	return NewFromArtifact(a, &Options{
		Forecast:        c.Forecast,
		Pricing:         c.Pricing,
		SourceSplitDays: c.SourceSplitDays,
	})
}

func prepareOptions(opt *Options) (*Options, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	opt = opt.Copy()
	opt.setDefaults()
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	return opt, nil
}

// WithMetrics records forecast and cost projection metrics on m
func (p *Planner) WithMetrics(m *metrics.Metrics) *Planner {
	p.metrics = m
	p.engine.WithMetrics(m)
	return p
}

// Options returns a copy of the planner options
func (p *Planner) Options() *Options {
	return p.opt.Copy()
}

// Contract returns the feature contract of the loaded models
func (p *Planner) Contract() models.Contract {
	return p.engine.Contract()
}

// Forecast returns the next horizon days of tanker litres after the last day of history
func (p *Planner) Forecast(ctx context.Context, h *timedataset.History, horizon int) (*forecast.Result, error) {
	if p == nil || p.engine == nil {
		return nil, ErrNoPlanner
	}
	return p.engine.Run(ctx, h, horizon)
}

// Forecasts returns every configured horizon from a single run of the longest one
func (p *Planner) Forecasts(ctx context.Context, h *timedataset.History) (map[int]*forecast.Result, error) {
	if p == nil || p.engine == nil {
		return nil, ErrNoPlanner
	}
	return p.engine.RunHorizons(ctx, h)
}

// Backtest forecasts the last horizon days of history from the days before and scores it
func (p *Planner) Backtest(ctx context.Context, h *timedataset.History, horizon int) (*forecast.Backtest, error) {
	if p == nil || p.engine == nil {
		return nil, ErrNoPlanner
	}
	return p.engine.Backtest(ctx, h, horizon)
}

// SourceSplits reports the share of water from each source over the configured windows
func (p *Planner) SourceSplits(h *timedataset.History) ([]stats.SourceSplit, error) {
	if p == nil {
		return nil, ErrNoPlanner
	}
	return stats.SourceSplits(h, p.opt.SourceSplitDays)
}

// Report is a forecast along with its cost projection
type Report struct {
	History  timedataset.Summary `json:"history"`
	Forecast *forecast.Result    `json:"forecast"`
	Budget   *pricing.Budget     `json:"budget"`
}

// Budget forecasts horizon days and prices every forecasted day. Either stage failing
// returns no report.
func (p *Planner) Budget(ctx context.Context, h *timedataset.History, horizon int) (*Report, error) {
	res, err := p.Forecast(ctx, h, horizon)
	if err != nil {
		return nil, err
	}
	b, err := pricing.Project(res, h, p.opt.Pricing)
	if err != nil {
		if p.metrics != nil {
			p.metrics.FailuresByKind.WithLabelValues(forecast.FailureKind(err)).Inc()
		}
		return nil, fmt.Errorf("unable to project costs, %w", err)
	}
	if p.metrics != nil {
		p.metrics.Projections.Inc()
		if b.Supply.Shortage {
			p.metrics.ShortageDays.Add(float64(len(b.Rows)))
		}
	}
	return &Report{
		History:  h.Summary(),
		Forecast: res,
		Budget:   b,
	}, nil
}

// TablePrint writes the history summary, forecast and budget
func (r *Report) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%s%sHistory: %s to %s (%d days), recent tanker litres %.0f/day\n",
		prefix, util.IndentExpand(indent, 0),
		r.History.FirstDate.Format(time.DateOnly), r.History.LastDate.Format(time.DateOnly),
		r.History.Days, r.History.RecentTankerLitres); err != nil {
		return err
	}
	if err := r.Forecast.TablePrint(w, prefix, indent); err != nil {
		return err
	}
	return r.Budget.TablePrint(w, prefix, indent)
}

// ReadHistory reads a csv history file with a date header column
func ReadHistory(path string) (*timedataset.History, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open history %s, %w", path, err)
	}
	defer f.Close()

	h, err := timedataset.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("unable to read history %s, %w", path, err)
	}
	return h, nil
}
