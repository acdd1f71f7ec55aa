// Package schedule holds the time-related booking rules: parsing the
// date/time format users type in chat, the weekly business-hours policy,
// and the slot availability check against already booked appointments.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseError reports that a user-typed date/time did not match the
// expected "DD/MM HH:MM" shape. It is an expected, recoverable failure:
// conversations answer it with a re-prompt, never with a system error.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Input, e.Reason)
}

// ParseDateTime parses "DD/MM HH:MM" (e.g. "15/01 10:30") into an
// instant in the local timezone. The year is always taken from now;
// a January date typed in December resolves to the current year, not
// the next one.
func ParseDateTime(input string, now time.Time) (time.Time, error) {
	fields := strings.Fields(strings.TrimSpace(input))
	if len(fields) != 2 {
		return time.Time{}, &ParseError{Input: input, Reason: "expected date and time separated by space"}
	}

	dayRaw, monthRaw, ok := strings.Cut(fields[0], "/")
	if !ok {
		return time.Time{}, &ParseError{Input: input, Reason: "date must be DD/MM"}
	}
	hourRaw, minuteRaw, ok := strings.Cut(fields[1], ":")
	if !ok {
		return time.Time{}, &ParseError{Input: input, Reason: "time must be HH:MM"}
	}

	day, err := parseComponent(dayRaw, 1, 31)
	if err != nil {
		return time.Time{}, &ParseError{Input: input, Reason: "invalid day"}
	}
	month, err := parseComponent(monthRaw, 1, 12)
	if err != nil {
		return time.Time{}, &ParseError{Input: input, Reason: "invalid month"}
	}
	hour, err := parseComponent(hourRaw, 0, 23)
	if err != nil {
		return time.Time{}, &ParseError{Input: input, Reason: "invalid hour"}
	}
	minute, err := parseComponent(minuteRaw, 0, 59)
	if err != nil {
		return time.Time{}, &ParseError{Input: input, Reason: "invalid minute"}
	}

	t := time.Date(now.Year(), time.Month(month), day, hour, minute, 0, 0, now.Location())
	// time.Date normalizes overflow (31/02 becomes 02/03 or 03/03); a
	// normalized result means the calendar date did not exist.
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, &ParseError{Input: input, Reason: "no such calendar date"}
	}
	return t, nil
}

func parseComponent(raw string, min, max int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if v < min || v > max {
		return 0, fmt.Errorf("value %d out of range [%d, %d]", v, min, max)
	}
	return v, nil
}
