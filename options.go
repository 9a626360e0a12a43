package watercast

import (
	"fmt"
	"slices"

	"github.com/aouyang1/go-watercast/forecast"
	"github.com/aouyang1/go-watercast/pricing"
	"github.com/aouyang1/go-watercast/stats"
)

// Options configures the forecast, the cost projection and the source split report
type Options struct {
	Forecast *forecast.Options `json:"forecast"`
	Pricing  *pricing.Options  `json:"pricing"`

	SourceSplitDays []int `json:"source_split_days"`
}

// NewDefaultOptions returns the default options of every stage
func NewDefaultOptions() *Options {
	return &Options{
		Forecast:        forecast.NewDefaultOptions(),
		Pricing:         pricing.NewDefaultOptions(),
		SourceSplitDays: slices.Clone(stats.DefaultSplitDays),
	}
}

// Copy returns a deep copy of the options
func (o *Options) Copy() *Options {
	if o == nil {
		return nil
	}
	return &Options{
		Forecast:        o.Forecast.Copy(),
		Pricing:         o.Pricing.Copy(),
		SourceSplitDays: slices.Clone(o.SourceSplitDays),
	}
}

// setDefaults fills in any unset stage with its defaults
func (o *Options) setDefaults() {
	if o.Forecast == nil {
		o.Forecast = forecast.NewDefaultOptions()
	}
	if o.Pricing == nil {
		o.Pricing = pricing.NewDefaultOptions()
	}
	if len(o.SourceSplitDays) == 0 {
		o.SourceSplitDays = slices.Clone(stats.DefaultSplitDays)
	}
}

func (o *Options) Validate() error {
	if err := o.Forecast.Validate(); err != nil {
		return fmt.Errorf("unable to validate forecast options, %w", err)
	}
	if err := o.Pricing.Validate(); err != nil {
		return fmt.Errorf("unable to validate pricing options, %w", err)
	}
	for _, days := range o.SourceSplitDays {
		if days <= 0 {
			return fmt.Errorf("source split window of %d days, %w", days, ErrInvalidSplitDays)
		}
	}
	return nil
}
