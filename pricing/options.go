// Package pricing converts forecasted tanker litres into tanker counts, market and
// pre-booked costs and the savings of pre-booking.
package pricing

import (
	"errors"
	"fmt"
	"slices"

	"github.com/aouyang1/go-watercast/event"
)

const (
	DefaultBasePrice          = 0.14
	DefaultWeekendMultiplier  = 1.06
	DefaultShortageMultiplier = 1.10
	DefaultShortageThreshold  = 1.0
	DefaultReferencePrice     = 0.14
	DefaultTankerCapacity     = 12000.0
	DefaultSupplyWindow       = 7
)

var (
	ErrNonPositivePrice    = errors.New("price must be positive")
	ErrInvalidMultiplier   = errors.New("multiplier must be at least 1")
	ErrNonPositiveCapacity = errors.New("tanker capacity must be positive")
	ErrInvalidSupplyWindow = errors.New("supply window must be positive")
	ErrNoForecast          = errors.New("no forecast to project")
)

// Options configures the market price model. Prices are per litre.
type Options struct {
	BasePrice          float64 `json:"base_price"`
	WeekendMultiplier  float64 `json:"weekend_multiplier"`
	ShortageMultiplier float64 `json:"shortage_multiplier"`

	// ShortageThreshold is compared against the median supply index of the trailing
	// SupplyWindow history rows
	ShortageThreshold float64 `json:"shortage_threshold"`
	SupplyWindow      int     `json:"supply_window"`

	ReferencePrice float64 `json:"reference_price"`
	TankerCapacity float64 `json:"tanker_capacity"`

	// Holidays are priced like weekends, see event.HolidayNames
	Holidays []string `json:"holidays"`
}

func NewDefaultOptions() *Options {
	return &Options{
		BasePrice:          DefaultBasePrice,
		WeekendMultiplier:  DefaultWeekendMultiplier,
		ShortageMultiplier: DefaultShortageMultiplier,
		ShortageThreshold:  DefaultShortageThreshold,
		SupplyWindow:       DefaultSupplyWindow,
		ReferencePrice:     DefaultReferencePrice,
		TankerCapacity:     DefaultTankerCapacity,
	}
}

// Copy returns a deep copy of the options
func (o *Options) Copy() *Options {
	if o == nil {
		return nil
	}
	c := *o
	c.Holidays = slices.Clone(o.Holidays)
	return &c
}

func (o *Options) Validate() error {
	if o.BasePrice <= 0 {
		return fmt.Errorf("base price %v, %w", o.BasePrice, ErrNonPositivePrice)
	}
	if o.ReferencePrice <= 0 {
		return fmt.Errorf("reference price %v, %w", o.ReferencePrice, ErrNonPositivePrice)
	}
	if o.WeekendMultiplier < 1 {
		return fmt.Errorf("weekend multiplier %v, %w", o.WeekendMultiplier, ErrInvalidMultiplier)
	}
	if o.ShortageMultiplier < 1 {
		return fmt.Errorf("shortage multiplier %v, %w", o.ShortageMultiplier, ErrInvalidMultiplier)
	}
	if o.TankerCapacity <= 0 {
		return fmt.Errorf("got %v, %w", o.TankerCapacity, ErrNonPositiveCapacity)
	}
	if o.SupplyWindow <= 0 {
		return fmt.Errorf("got %d, %w", o.SupplyWindow, ErrInvalidSupplyWindow)
	}
	if _, err := event.Lookup(o.Holidays); err != nil {
		return err
	}
	return nil
}

// calendar resolves the configured holidays. Options must be valid.
func (o *Options) calendar() *event.Calendar {
	hols, _ := event.Lookup(o.Holidays)
	return event.NewCalendar(hols...)
}
