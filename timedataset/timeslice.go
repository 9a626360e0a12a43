package timedataset

import "time"

// TimeSlice is the ordered dates of a history
type TimeSlice []time.Time

// StartTime returns the first date or the zero time when empty
func (t TimeSlice) StartTime() time.Time {
	if len(t) == 0 {
		return time.Time{}
	}
	return t[0]
}

// EndTime returns the last date or the zero time when empty
func (t TimeSlice) EndTime() time.Time {
	if len(t) == 0 {
		return time.Time{}
	}
	return t[len(t)-1]
}

// NextDay returns the calendar day after the last time in the slice
func (t TimeSlice) NextDay() time.Time {
	return Day(t.EndTime()).AddDate(0, 0, 1)
}
