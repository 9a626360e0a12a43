// Package event resolves named public holidays into the calendar days they fall on so they
// can be priced as peak demand days.
package event

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/aa"
)

var ErrUnknownHoliday = errors.New("unknown holiday")

// National and state holidays observed in Bengaluru with a fixed calendar date
var (
	RepublicDay = &cal.Holiday{
		Name:  "Republic Day",
		Type:  cal.ObservancePublic,
		Month: time.January,
		Day:   26,
		Func:  cal.CalcDayOfMonth,
	}
	IndependenceDay = &cal.Holiday{
		Name:  "Independence Day",
		Type:  cal.ObservancePublic,
		Month: time.August,
		Day:   15,
		Func:  cal.CalcDayOfMonth,
	}
	GandhiJayanti = &cal.Holiday{
		Name:  "Gandhi Jayanti",
		Type:  cal.ObservancePublic,
		Month: time.October,
		Day:   2,
		Func:  cal.CalcDayOfMonth,
	}
	KannadaRajyotsava = &cal.Holiday{
		Name:  "Kannada Rajyotsava",
		Type:  cal.ObservancePublic,
		Month: time.November,
		Day:   1,
		Func:  cal.CalcDayOfMonth,
	}
)

// Holidays maps the configuration names to their holiday definitions
var Holidays = map[string]*cal.Holiday{
	"new_year":           aa.NewYear,
	"republic_day":       RepublicDay,
	"independence_day":   IndependenceDay,
	"gandhi_jayanti":     GandhiJayanti,
	"kannada_rajyotsava": KannadaRajyotsava,
	"christmas":          aa.ChristmasDay,
}

// HolidayNames returns the sorted names accepted by Lookup
func HolidayNames() []string {
	names := make([]string, 0, len(Holidays))
	for name := range Holidays {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup resolves each holiday name
func Lookup(names []string) ([]*cal.Holiday, error) {
	hols := make([]*cal.Holiday, 0, len(names))
	for _, name := range names {
		hol, exists := Holidays[name]
		if !exists {
			return nil, fmt.Errorf("%q, %w", name, ErrUnknownHoliday)
		}
		hols = append(hols, hol)
	}
	return hols, nil
}

// Event represents a span of days to treat separately
type Event struct {
	Name  string
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within [Start, End)
func (e Event) Contains(t time.Time) bool {
	return !t.Before(e.Start) && t.Before(e.End)
}

// Holiday returns a one day event in UTC for every observance of the holiday between start
// and end inclusive
func Holiday(hol *cal.Holiday, start, end time.Time) []Event {
	start = utcDay(start)
	end = utcDay(end)

	events := []Event{}
	for i := start.Year(); i <= end.Year(); i++ {
		_, observed := hol.Calc(i)
		if observed.IsZero() {
			continue
		}
		day := utcDay(observed)
		if day.Before(start) || day.After(end) {
			continue
		}
		events = append(events, Event{
			Name:  strings.ReplaceAll(fmt.Sprintf("%s_%d", hol.Name, i), " ", "_"),
			Start: day,
			End:   day.AddDate(0, 0, 1),
		})
	}
	return events
}

// Calendar answers whether a day is one of a set of holidays
type Calendar struct {
	hols []*cal.Holiday
}

func NewCalendar(hols ...*cal.Holiday) *Calendar {
	return &Calendar{hols: hols}
}

// Events returns every holiday between start and end inclusive ordered by date
func (c *Calendar) Events(start, end time.Time) []Event {
	if c == nil {
		return nil
	}
	var events []Event
	for _, hol := range c.hols {
		events = append(events, Holiday(hol, start, end)...)
	}
	slices.SortFunc(events, func(a, b Event) int {
		return a.Start.Compare(b.Start)
	})
	return events
}

// IsHoliday returns the name of the holiday falling on the day of t if any
func (c *Calendar) IsHoliday(t time.Time) (string, bool) {
	if c == nil {
		return "", false
	}
	day := utcDay(t)
	for _, e := range c.Events(day, day) {
		if e.Contains(day) {
			return e.Name, true
		}
	}
	return "", false
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
