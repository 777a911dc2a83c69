// Package timeutil converts between the 12-hour display time stored on
// records, the 24-hour clock and calendar dates.
package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

const (
	DateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

var ErrFormat = errors.New("timeutil: malformed date or time")

// To24Hour converts "H:MM AM/PM" into "HH:MM".
func To24Hour(display string) (string, error) {
	hour, minute, err := parseDisplay(display)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// From24Hour converts "HH:MM" into "H:MM AM/PM".
func From24Hour(clock string) (string, error) {
	hour, minute, err := parseClock(clock)
	if err != nil {
		return "", err
	}
	return formatDisplay(hour, minute), nil
}

func FormatDisplayTime(t time.Time) string {
	return formatDisplay(t.Hour(), t.Minute())
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses "YYYY-MM-DD" as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrFormat, s)
	}
	return t, nil
}

// CombineDateTime places the "HH:MM" clock on the calendar day of date, in
// date's location.
func CombineDateTime(date time.Time, clock string) (time.Time, error) {
	hour, minute, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, date.Location()), nil
}

// Deadline combines a "YYYY-MM-DD" date and a "H:MM AM/PM" display time.
func Deadline(date, display string, loc *time.Location) (time.Time, error) {
	day, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := To24Hour(display)
	if err != nil {
		return time.Time{}, err
	}
	return CombineDateTime(day, clock)
}

func StartOfDay(t time.Time) time.Time {
	return now.With(t).BeginningOfDay()
}

func parseDisplay(display string) (int, int, error) {
	clock, modifier, ok := strings.Cut(strings.TrimSpace(display), " ")
	if !ok || (modifier != "AM" && modifier != "PM") {
		return 0, 0, fmt.Errorf("%w: time %q, expected H:MM AM/PM", ErrFormat, display)
	}
	hs, ms, ok := strings.Cut(clock, ":")
	if !ok || len(hs) == 0 || len(hs) > 2 || hs[0] == '0' || len(ms) != 2 {
		return 0, 0, fmt.Errorf("%w: time %q, expected H:MM AM/PM", ErrFormat, display)
	}
	hour, err := strconv.Atoi(hs)
	if err != nil || hour < 1 || hour > 12 {
		return 0, 0, fmt.Errorf("%w: hour in %q", ErrFormat, display)
	}
	minute, err := strconv.Atoi(ms)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute in %q", ErrFormat, display)
	}
	if hour == 12 {
		hour = 0
	}
	if modifier == "PM" {
		hour += 12
	}
	return hour, minute, nil
}

func parseClock(clock string) (int, int, error) {
	t, err := time.Parse(clockLayout, strings.TrimSpace(clock))
	if err != nil || len(strings.TrimSpace(clock)) != len(clockLayout) {
		return 0, 0, fmt.Errorf("%w: clock %q, expected HH:MM", ErrFormat, clock)
	}
	return t.Hour(), t.Minute(), nil
}

func formatDisplay(hour, minute int) string {
	modifier := "AM"
	if hour >= 12 {
		modifier = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, minute, modifier)
}
