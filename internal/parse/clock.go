package parse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Clock strings come as "HH.MM" from the back office; "HH:MM" and a trailing
// seconds field are tolerated.
var clockRe = regexp.MustCompile(`^\s*(\d{1,2})[.:](\d{2})(?:[.:]\d{2})?\s*$`)

const dateLayout = "2006-01-02"

var (
	// ErrInvalidClock marks a time of day that cannot be read.
	ErrInvalidClock = errors.New("invalid clock")
	// ErrInvalidDate marks a calendar date that cannot be read.
	ErrInvalidDate = errors.New("invalid date")
)

// ParseClock extracts the hour and minute from a time-of-day string.
func ParseClock(raw string) (hour, minute int, err error) {
	m := clockRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q out of range", ErrInvalidClock, raw)
	}
	return hour, minute, nil
}

// ParseDateClock combines a calendar date ("2006-01-02") and a clock string
// into an absolute time in loc.
func ParseDateClock(date, clock string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), nil
}

// FormatDate renders t as a calendar date in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}
