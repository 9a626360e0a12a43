// Package forecast runs the rolling hybrid forecast: each step engineers features over the
// working history, sums the base model forecast with the residual correction and feeds
// the prediction back as the next day of history.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/aouyang1/go-watercast/feature"
	"github.com/aouyang1/go-watercast/metrics"
	"github.com/aouyang1/go-watercast/models"
	"github.com/aouyang1/go-watercast/timedataset"
	"golang.org/x/sync/errgroup"
)

// Engine produces multi-step forecasts from a pair of pre-fit models. An engine holds no
// per run state and is safe for concurrent use.
type Engine struct {
	models   *models.Models
	contract models.Contract
	opt      *Options
	metrics  *metrics.Metrics
}

// New binds the base and residual predictors to the contract and validates the options.
// Nil options use NewDefaultOptions.
func New(base, residual models.Predictor, contract models.Contract, opt *Options) (*Engine, error) {
	if err := contract.Validate(); err != nil {
		return nil, fmt.Errorf("unable to validate feature contract, %w", err)
	}
	m, err := models.BindModels(base, residual, contract)
	if err != nil {
		return nil, fmt.Errorf("unable to bind models, %w", err)
	}
	return newEngine(m, contract, opt)
}

// NewFromArtifact builds an engine from a decoded model artifact
func NewFromArtifact(a *models.Artifact, opt *Options) (*Engine, error) {
	if a == nil {
		return nil, ErrNoModels
	}
	if err := a.Contract.Validate(); err != nil {
		return nil, fmt.Errorf("unable to validate feature contract, %w", err)
	}
	m, err := a.Bind()
	if err != nil {
		return nil, fmt.Errorf("unable to bind models, %w", err)
	}
	return newEngine(m, a.Contract, opt)
}

func newEngine(m *models.Models, contract models.Contract, opt *Options) (*Engine, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	opt = opt.Copy()
	if err := opt.Validate(); err != nil {
		return nil, fmt.Errorf("unable to validate forecast options, %w", err)
	}
	return &Engine{
		models: m,
		contract: models.Contract{
			FeatureCols:         slices.Clone(contract.FeatureCols),
			ResidualFeatureCols: slices.Clone(contract.ResidualFeatureCols),
		},
		opt: opt,
	}, nil
}

// WithMetrics records run, step, failure and sanitization counts on m
func (e *Engine) WithMetrics(m *metrics.Metrics) *Engine {
	e.metrics = m
	return e
}

// Options returns a copy of the engine options
func (e *Engine) Options() *Options {
	return e.opt.Copy()
}

// Contract returns the feature contract of the bound models
func (e *Engine) Contract() models.Contract {
	return models.Contract{
		FeatureCols:         slices.Clone(e.contract.FeatureCols),
		ResidualFeatureCols: slices.Clone(e.contract.ResidualFeatureCols),
	}
}

// Validate checks the history can serve every contract column before any model is called.
// Engineered columns are always available. Any other column must be part of the history
// schema.
func (e *Engine) Validate(h *timedataset.History) error {
	if h.Len() == 0 {
		return &timedataset.SchemaError{Column: timedataset.ColDate, Row: -1, Err: timedataset.ErrNoHistory}
	}
	for _, col := range e.contract.Columns() {
		if feature.IsEngineered(col) {
			continue
		}
		if !h.HasColumn(col) {
			return timedataset.NewMissingColumnError(col)
		}
	}
	return nil
}

// Run forecasts the next horizon days after the last date of the history. The history is
// never modified. Any failure aborts the run without a partial result.
func (e *Engine) Run(ctx context.Context, h *timedataset.History, horizon int) (*Result, error) {
	start := time.Now()
	res, err := e.run(ctx, h, horizon)
	if e.metrics != nil {
		e.metrics.Runs.WithLabelValues(strconv.Itoa(horizon)).Inc()
		e.metrics.RunDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			e.metrics.FailuresByKind.WithLabelValues(FailureKind(err)).Inc()
		}
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RunHorizons runs the longest configured horizon once and slices every configured horizon
// out of it
func (e *Engine) RunHorizons(ctx context.Context, h *timedataset.History) (map[int]*Result, error) {
	longest := e.opt.LongestHorizon()
	res, err := e.Run(ctx, h, longest)
	if err != nil {
		return nil, err
	}
	horizons := e.opt.Horizons
	if len(horizons) == 0 {
		horizons = []int{longest}
	}
	out := make(map[int]*Result, len(horizons))
	for _, n := range horizons {
		out[n] = res.Prefix(n)
	}
	return out, nil
}

func (e *Engine) run(ctx context.Context, h *timedataset.History, horizon int) (*Result, error) {
	if e == nil || e.models == nil {
		return nil, ErrNoModels
	}
	if err := e.opt.AllowHorizon(horizon); err != nil {
		return nil, err
	}
	if err := e.Validate(h); err != nil {
		return nil, err
	}

	working := h.Copy()
	res := &Result{
		Horizon: horizon,
		Steps:   make([]Step, 0, horizon),
	}

	for step := 0; step < horizon; step++ {
		date := working.Dates().NextDay()
		if step >= MaxSteps {
			return nil, &StepError{Step: step, Date: date, Err: ErrMaxStepsReached}
		}
		if err := ctx.Err(); err != nil {
			return nil, &StepError{Step: step, Date: date, Err: err}
		}

		s, warnings, err := e.step(ctx, working, step)
		if err != nil {
			return nil, &StepError{Step: step, Date: date, Err: err}
		}
		res.Warnings = append(res.Warnings, warnings...)
		s.Date = date

		rec, err := syntheticRecord(working.Columns(), s)
		if err != nil {
			return nil, &StepError{Step: step, Date: date, Err: err}
		}
		if err := working.Append(rec); err != nil {
			return nil, &StepError{Step: step, Date: date, Err: err}
		}
		res.Steps = append(res.Steps, s.Step)

		slog.Debug("forecast step",
			"step", step,
			"date", date.Format(time.DateOnly),
			"predicted_litres", s.PredictedLitres,
			"base", s.Base,
			"residual", s.Residual,
		)
		if e.metrics != nil {
			e.metrics.Steps.Inc()
		}
	}

	e.reportWarnings(res.Warnings)
	return res, nil
}

// stepResult carries the cleaned feature row alongside the step so the synthetic record
// can copy its raw fields
type stepResult struct {
	Step
	row feature.Row
}

func (e *Engine) step(ctx context.Context, working *timedataset.History, step int) (stepResult, []feature.NumericSanitizationWarning, error) {
	view := working
	if e.opt.Window > 0 {
		view = working.Tail(e.opt.Window)
	}

	frame, err := feature.Engineer(view)
	if err != nil {
		return stepResult{}, nil, fmt.Errorf("unable to engineer features, %w", err)
	}

	// history level warnings are reported once while later steps only report the row
	// they forecast from
	var warnings []feature.NumericSanitizationWarning
	last := frame.Last()
	for _, w := range frame.Warnings() {
		if step == 0 || w.Date.Equal(last.Date) {
			warnings = append(warnings, w)
		}
	}

	row, rowWarnings := last.Sanitize()
	warnings = append(warnings, rowWarnings...)

	base, residual, err := e.predict(ctx, row)
	if err != nil {
		return stepResult{}, nil, err
	}

	pred := base + residual
	if math.IsNaN(pred) || math.IsInf(pred, 0) {
		return stepResult{}, nil, ErrNonFiniteSum
	}

	return stepResult{
		Step: Step{
			PredictedLitres: pred,
			Base:            base,
			Residual:        residual,
		},
		row: row,
	}, warnings, nil
}

func (e *Engine) predict(ctx context.Context, row feature.Row) (float64, float64, error) {
	if !e.opt.ParallelModels {
		base, err := e.models.Base.PredictRow(row)
		if err != nil {
			return 0, 0, err
		}
		residual, err := e.models.Residual.PredictRow(row)
		if err != nil {
			return 0, 0, err
		}
		return base, residual, nil
	}

	var base, residual float64
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		base, err = e.models.Base.PredictRow(row)
		return err
	})
	g.Go(func() error {
		var err error
		residual, err = e.models.Residual.PredictRow(row)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	return base, residual, nil
}

// syntheticRecord builds the next history record from the cleaned raw fields of the row the
// step forecast from, with the target replaced by the prediction
func syntheticRecord(columns []string, s stepResult) (timedataset.Record, error) {
	rec := timedataset.Record{Date: s.Date}
	for _, col := range columns {
		val, exists := s.row.Get(col)
		if !exists {
			return timedataset.Record{}, timedataset.NewMissingColumnError(col)
		}
		rec.SetValue(col, val)
	}
	rec.SetValue(timedataset.ColTarget, s.PredictedLitres)
	return rec, nil
}

func (e *Engine) reportWarnings(warnings []feature.NumericSanitizationWarning) {
	if len(warnings) == 0 {
		return
	}
	counts := feature.CountByColumn(warnings)
	cols := make([]string, 0, len(counts))
	for col := range counts {
		cols = append(cols, col)
	}
	slices.Sort(cols)
	for _, col := range cols {
		slog.Warn("forced values to 0", "column", col, "count", counts[col])
		if e.metrics != nil {
			e.metrics.SanitizedValues.WithLabelValues(col).Add(float64(counts[col]))
		}
	}
}

// FailureKind classifies a run failure for metrics and API responses
func FailureKind(err error) string {
	var schemaErr *timedataset.SchemaError
	var contractErr *models.FeatureContractError
	var inferenceErr *models.ModelInferenceError
	switch {
	case errors.As(err, &schemaErr):
		return metrics.KindSchema
	case errors.As(err, &contractErr):
		return metrics.KindContract
	case errors.As(err, &inferenceErr), errors.Is(err, ErrNonFiniteSum):
		return metrics.KindInference
	}
	return metrics.KindOther
}
