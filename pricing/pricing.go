package pricing

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aouyang1/go-watercast/event"
	"github.com/aouyang1/go-watercast/forecast"
	"github.com/aouyang1/go-watercast/stats"
	"github.com/aouyang1/go-watercast/timedataset"
	"github.com/shopspring/decimal"
)

// TankersNeeded returns the number of whole tankers needed to deliver the litres. Zero,
// negative and non-finite litres need no tankers.
func TankersNeeded(litres, capacity float64) int {
	if !(litres > 0) || math.IsInf(litres, 1) || capacity <= 0 {
		return 0
	}
	return int(math.Ceil(litres / capacity))
}

// Supply describes the recent municipal supply used to decide shortage pricing
type Supply struct {
	// Median is the median of the Samples finite supply index values in the window. No
	// samples never signals a shortage.
	Median   float64 `json:"median"`
	Samples  int     `json:"samples"`
	Window   int     `json:"window"`
	Shortage bool    `json:"shortage"`
}

// RecentSupply computes the median supply index over the trailing window of history rows.
// A history without a supply index column is a schema error.
func RecentSupply(h *timedataset.History, window int, threshold float64) (Supply, error) {
	vals, exists := h.Values(timedataset.ColBWSSBSupplyIndex)
	if !exists {
		return Supply{}, timedataset.NewMissingColumnError(timedataset.ColBWSSBSupplyIndex)
	}
	recent := stats.Tail(vals, window)
	s := Supply{
		Window:  len(recent),
		Samples: len(stats.Finite(recent)),
	}
	median, err := stats.Median(recent)
	if err != nil {
		if errors.Is(err, stats.ErrNoFiniteValues) {
			return s, nil
		}
		return Supply{}, err
	}
	s.Median = median
	s.Shortage = median < threshold
	return s, nil
}

// IsWeekend reports whether the day is a saturday or sunday
func IsWeekend(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return false
}

// Pricer computes the per litre market price of a day
type Pricer struct {
	opt      *Options
	calendar *event.Calendar
	shortage bool
}

// NewPricer validates the options. Shortage applies the shortage multiplier to every day.
func NewPricer(opt *Options, shortage bool) (*Pricer, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if err := opt.Validate(); err != nil {
		return nil, fmt.Errorf("unable to validate pricing options, %w", err)
	}
	opt = opt.Copy()
	return &Pricer{
		opt:      opt,
		calendar: opt.calendar(),
		shortage: shortage,
	}, nil
}

// PricePerLitre returns the market price of the day along with the holiday name if the day
// is a configured holiday. Weekends and holidays take the weekend multiplier.
func (p *Pricer) PricePerLitre(t time.Time) (decimal.Decimal, string) {
	price := decimal.NewFromFloat(p.opt.BasePrice)
	holiday, isHoliday := p.calendar.IsHoliday(t)
	if IsWeekend(t) || isHoliday {
		price = price.Mul(decimal.NewFromFloat(p.opt.WeekendMultiplier))
	}
	if p.shortage {
		price = price.Mul(decimal.NewFromFloat(p.opt.ShortageMultiplier))
	}
	return price, holiday
}

// Row is the projected cost of a single forecasted day. Money is carried unrounded.
type Row struct {
	Date                time.Time       `json:"date"`
	PredictedLitres     float64         `json:"forecast_litres"`
	TankersNeeded       int             `json:"tankers_needed"`
	MarketPricePerLitre decimal.Decimal `json:"market_price_per_l"`
	MarketCost          decimal.Decimal `json:"market_cost_rs"`
	PrebookCost         decimal.Decimal `json:"prebook_cost_rs"`
	Savings             decimal.Decimal `json:"savings_rs"`
	Weekend             bool            `json:"weekend"`
	Holiday             string          `json:"holiday,omitempty"`
}

// Project prices every step of the forecast. The shortage multiplier is decided once from
// the trailing supply index of the history.
func Project(res *forecast.Result, h *timedataset.History, opt *Options) (*Budget, error) {
	if res.Len() == 0 {
		return nil, ErrNoForecast
	}
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if err := opt.Validate(); err != nil {
		return nil, fmt.Errorf("unable to validate pricing options, %w", err)
	}

	supply, err := RecentSupply(h, opt.SupplyWindow, opt.ShortageThreshold)
	if err != nil {
		return nil, err
	}
	pricer, err := NewPricer(opt, supply.Shortage)
	if err != nil {
		return nil, err
	}

	reference := decimal.NewFromFloat(opt.ReferencePrice)
	rows := make([]Row, 0, res.Len())
	for _, s := range res.Steps {
		price, holiday := pricer.PricePerLitre(s.Date)

		// a non-positive forecast is bought as nothing
		var litres decimal.Decimal
		if s.PredictedLitres > 0 && !math.IsInf(s.PredictedLitres, 1) {
			litres = decimal.NewFromFloat(s.PredictedLitres)
		}
		market := litres.Mul(price)
		prebook := litres.Mul(reference)

		rows = append(rows, Row{
			Date:                s.Date,
			PredictedLitres:     s.PredictedLitres,
			TankersNeeded:       TankersNeeded(s.PredictedLitres, opt.TankerCapacity),
			MarketPricePerLitre: price,
			MarketCost:          market,
			PrebookCost:         prebook,
			Savings:             market.Sub(prebook),
			Weekend:             IsWeekend(s.Date),
			Holiday:             holiday,
		})
	}

	return &Budget{
		Rows:   rows,
		Supply: supply,
	}, nil
}
