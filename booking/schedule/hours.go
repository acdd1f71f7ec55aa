package schedule

import "time"

// HourRange is a half-open daily interval [Open, Close) expressed in
// fractional hours, so 9.5 means 09:30.
type HourRange struct {
	Open  float64
	Close float64
}

// WeeklyHours maps each weekday to its operating interval. A missing
// day means closed for the whole day.
type WeeklyHours map[time.Weekday]HourRange

// DefaultWeeklyHours returns the workshop schedule: Monday to Friday
// 9:00-17:00, Saturday 9:00-12:00, Sunday closed.
func DefaultWeeklyHours() WeeklyHours {
	return WeeklyHours{
		time.Monday:    {Open: 9, Close: 17},
		time.Tuesday:   {Open: 9, Close: 17},
		time.Wednesday: {Open: 9, Close: 17},
		time.Thursday:  {Open: 9, Close: 17},
		time.Friday:    {Open: 9, Close: 17},
		time.Saturday:  {Open: 9, Close: 12},
	}
}

// IsOpen reports whether the instant falls inside the operating hours
// of its weekday. The close hour is exclusive: with a 9-17 range,
// 16:59 is open and 17:00 is not.
func (w WeeklyHours) IsOpen(t time.Time) bool {
	rng, ok := w[t.Weekday()]
	if !ok {
		return false
	}
	decimal := float64(t.Hour()) + float64(t.Minute())/60
	return decimal >= rng.Open && decimal < rng.Close
}
