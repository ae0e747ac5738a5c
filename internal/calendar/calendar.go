// Package calendar provides the date and time-of-day values used by the booking
// engine. All instants are expressed in a single implicit calendar (UTC).
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"

	minutesPerDay = 24 * 60
)

var (
	// ErrInvalidDate indicates a value that is not a YYYY-MM-DD calendar date.
	ErrInvalidDate = errors.New("calendar: invalid date")
	// ErrInvalidTime indicates a value that is not an HH:MM time of day.
	ErrInvalidTime = errors.New("calendar: invalid time of day")
)

// Date is a civil calendar day without a time-of-day component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the normalized date for the given components.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of t as observed in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(value string) (Date, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return DateOf(t), nil
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns midnight of d in UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// At combines d with a time of day into an absolute instant.
func (d Date) At(tod TimeOfDay) time.Time {
	return d.Time().Add(tod.Duration())
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after other.
func (d Date) Compare(other Date) int {
	return d.Time().Compare(other.Time())
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.Compare(other) < 0
}

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool {
	return d.Compare(other) > 0
}

// String formats d as YYYY-MM-DD.
func (d Date) String() string {
	return d.Time().Format(dateLayout)
}

// NextWeekday returns the first date on or after d that falls on weekday.
func (d Date) NextWeekday(weekday time.Weekday) Date {
	offset := (int(weekday) - int(d.Weekday()) + 7) % 7
	return d.AddDays(offset)
}

// TimeOfDay is a wall-clock time expressed in minutes since midnight.
// The value 24:00 is accepted so that a slot may end at the end of the day.
type TimeOfDay int

// NewTimeOfDay returns the time of day for hour and minute.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || minute < 0 || minute > 59 || hour > 24 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("%w: %02d:%02d", ErrInvalidTime, hour, minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// MustTimeOfDay is like NewTimeOfDay but panics on invalid input. Intended for
// constants and tests.
func MustTimeOfDay(hour, minute int) TimeOfDay {
	tod, err := NewTimeOfDay(hour, minute)
	if err != nil {
		panic(err)
	}
	return tod
}

// ParseTimeOfDay parses an HH:MM string.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) != 5 || trimmed[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	hour, herr := strconv.Atoi(trimmed[:2])
	minute, merr := strconv.Atoi(trimmed[3:])
	if herr != nil || merr != nil || !isDigits(trimmed[:2]) || !isDigits(trimmed[3:]) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	return NewTimeOfDay(hour, minute)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Valid reports whether t lies within 00:00 and 24:00 inclusive.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t <= minutesPerDay
}

// Hour returns the hour component of t.
func (t TimeOfDay) Hour() int {
	return int(t) / 60
}

// Minute returns the minute component of t.
func (t TimeOfDay) Minute() int {
	return int(t) % 60
}

// Duration returns the offset of t from midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Minute
}

// Add returns t shifted by d truncated to whole minutes. The result may fall
// outside the valid range; callers check Valid.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return t + TimeOfDay(d/time.Minute)
}

// Sub returns the duration between t and earlier.
func (t TimeOfDay) Sub(earlier TimeOfDay) time.Duration {
	return time.Duration(t-earlier) * time.Minute
}

// String formats t as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// EndOfDay is the 24:00 time of day.
const EndOfDay = TimeOfDay(minutesPerDay)

// ErrInvalidWeekday indicates a value that names no day of the week.
var ErrInvalidWeekday = errors.New("calendar: invalid weekday")

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday, "su": time.Sunday,
	"monday": time.Monday, "mon": time.Monday, "mo": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tu": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday, "we": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "th": time.Thursday,
	"friday": time.Friday, "fri": time.Friday, "fr": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday, "sa": time.Saturday,
}

// ParseWeekday accepts English weekday names, their three letter forms and
// the two letter RFC 5545 codes, case-insensitively.
func ParseWeekday(value string) (time.Weekday, error) {
	if day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(value))]; ok {
		return day, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, value)
}
