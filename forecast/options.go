package forecast

import (
	"errors"
	"fmt"
	"slices"

	"github.com/aouyang1/go-watercast/feature"
)

const (
	// MaxSteps is the hard ceiling on forecast steps enforced inside the rolling loop
	MaxSteps = 365

	// DefaultMaxHorizon bounds any horizon when no horizon set is configured
	DefaultMaxHorizon = MaxSteps
)

// DefaultHorizons are the forecast lengths in days served by default
var DefaultHorizons = []int{7, 30}

var (
	ErrInvalidHorizon    = errors.New("horizon not allowed")
	ErrInvalidMaxHorizon = errors.New("max horizon must be between 1 and the maximum number of steps")
	ErrInvalidWindow     = errors.New("window must exceed the largest lag")
)

// Options configures the rolling forecast
type Options struct {
	// Horizons lists the allowed horizons. Empty allows any horizon up to MaxHorizon.
	Horizons   []int `json:"horizons"`
	MaxHorizon int   `json:"max_horizon"`

	// Window limits feature engineering to the trailing number of records of the working
	// history. 0 uses the full history.
	Window int `json:"window"`

	// ParallelModels calls the base and residual model concurrently within a step
	ParallelModels bool `json:"parallel_models"`
}

// NewDefaultOptions returns the {7, 30} day horizons over the full history
func NewDefaultOptions() *Options {
	return &Options{
		Horizons:   slices.Clone(DefaultHorizons),
		MaxHorizon: DefaultMaxHorizon,
	}
}

// Copy returns a deep copy of the options
func (o *Options) Copy() *Options {
	if o == nil {
		return nil
	}
	c := *o
	c.Horizons = slices.Clone(o.Horizons)
	return &c
}

// Validate checks the max horizon, every listed horizon and the window
func (o *Options) Validate() error {
	if o.MaxHorizon < 1 || o.MaxHorizon > MaxSteps {
		return fmt.Errorf("got %d, %w", o.MaxHorizon, ErrInvalidMaxHorizon)
	}
	for _, h := range o.Horizons {
		if h < 1 || h > o.MaxHorizon {
			return fmt.Errorf("horizon %d outside of 1 to %d, %w", h, o.MaxHorizon, ErrInvalidHorizon)
		}
	}
	if o.Window != 0 && o.Window <= feature.MaxLag() {
		return fmt.Errorf("got %d with largest lag %d, %w", o.Window, feature.MaxLag(), ErrInvalidWindow)
	}
	return nil
}

// AllowHorizon returns an error if the horizon cannot be served
func (o *Options) AllowHorizon(horizon int) error {
	if horizon < 1 || horizon > o.MaxHorizon {
		return fmt.Errorf("horizon %d outside of 1 to %d, %w", horizon, o.MaxHorizon, ErrInvalidHorizon)
	}
	if len(o.Horizons) > 0 && !slices.Contains(o.Horizons, horizon) {
		return fmt.Errorf("horizon %d not in %v, %w", horizon, o.Horizons, ErrInvalidHorizon)
	}
	return nil
}

// LongestHorizon returns the largest allowed horizon
func (o *Options) LongestHorizon() int {
	if len(o.Horizons) == 0 {
		return o.MaxHorizon
	}
	return slices.Max(o.Horizons)
}
