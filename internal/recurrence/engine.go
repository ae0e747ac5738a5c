package recurrence

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/example/room-scheduler/internal/calendar"
)

// Rule describes a weekly recurrence: one weekday, every Period weeks, inside
// the inclusive [From, Until] date interval. Exactly one of End or Duration
// determines the end of each occurrence.
type Rule struct {
	Weekday  time.Weekday
	Period   int
	Start    calendar.TimeOfDay
	End      calendar.TimeOfDay
	Duration time.Duration
	From     calendar.Date
	Until    calendar.Date
}

// Occurrence represents a generated instance of a recurrence rule.
type Occurrence struct {
	Date  calendar.Date
	Start calendar.TimeOfDay
	End   calendar.TimeOfDay
}

// Engine expands recurrence rules into occurrences.
type Engine struct{}

// NewEngine constructs an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

var (
	// ErrInvalidPeriod indicates a recurrence period shorter than one week.
	ErrInvalidPeriod = errors.New("recurrence: period must be at least one week")
	// ErrInvalidWeekday indicates a weekday outside Sunday..Saturday.
	ErrInvalidWeekday = errors.New("recurrence: invalid weekday")
	// ErrInvalidDuration indicates an occurrence that does not end after it starts.
	ErrInvalidDuration = errors.New("recurrence: occurrence must end after it starts")
	// ErrAmbiguousEnd indicates both or neither of End and Duration were supplied.
	ErrAmbiguousEnd = errors.New("recurrence: exactly one of end time or duration is required")
	// ErrInvalidWindow indicates a missing or inverted date interval.
	ErrInvalidWindow = errors.New("recurrence: date interval requires from <= until")
)

// EndTime resolves the end of each occurrence from either End or Duration.
func (r Rule) EndTime() calendar.TimeOfDay {
	if r.End != 0 {
		return r.End
	}
	return r.Start.Add(r.Duration)
}

// Validate reports every problem with the rule joined into one error. Each
// problem matches one of the package sentinels under errors.Is.
func (r Rule) Validate() error {
	var problems []error

	if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
		problems = append(problems, fmt.Errorf("%w: %d", ErrInvalidWeekday, r.Weekday))
	}
	if r.Period < 1 {
		problems = append(problems, fmt.Errorf("%w: got %d", ErrInvalidPeriod, r.Period))
	}

	switch {
	case r.End != 0 && r.Duration != 0, r.End == 0 && r.Duration == 0:
		problems = append(problems, ErrAmbiguousEnd)
	default:
		end := r.EndTime()
		if !r.Start.Valid() || !end.Valid() || end <= r.Start {
			problems = append(problems, fmt.Errorf("%w: %s-%s", ErrInvalidDuration, r.Start, end))
		}
	}

	if r.From.IsZero() || r.Until.IsZero() || r.Until.Before(r.From) {
		problems = append(problems, fmt.Errorf("%w: %s..%s", ErrInvalidWindow, r.From, r.Until))
	}

	return errors.Join(problems...)
}

// Expand returns the occurrences of rule in ascending date order.
//
// The first occurrence is the earliest date on or after From that falls on
// the rule's weekday; subsequent ones follow every Period weeks while the date
// stays on or before Until. The sequence is lazy and may be ranged over any
// number of times. An interval without a matching weekday yields an empty
// sequence rather than an error.
func (e *Engine) Expand(rule Rule) (iter.Seq[Occurrence], error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	first := rule.From.NextWeekday(rule.Weekday)
	if first.After(rule.Until) {
		return func(func(Occurrence) bool) {}, nil
	}

	rr, err := newRRule(rule, first)
	if err != nil {
		return nil, err
	}

	end := rule.EndTime()
	return func(yield func(Occurrence) bool) {
		next := rr.Iterator()
		for {
			at, ok := next()
			if !ok {
				return
			}
			if !yield(Occurrence{Date: calendar.DateOf(at), Start: rule.Start, End: end}) {
				return
			}
		}
	}, nil
}

// RRule renders the rule in RFC 5545 form for display and export.
func (e *Engine) RRule(rule Rule) (string, error) {
	if err := rule.Validate(); err != nil {
		return "", err
	}
	rr, err := newRRule(rule, rule.From.NextWeekday(rule.Weekday))
	if err != nil {
		return "", err
	}
	return rr.String(), nil
}

// newRRule anchors DTSTART on the first matching date so that the week
// numbering used by INTERVAL starts from that occurrence rather than from the
// week containing From.
func newRRule(rule Rule, first calendar.Date) (*rrule.RRule, error) {
	rr, err := rrule.NewRRule(rrule.ROption{
		Freq:     rrule.WEEKLY,
		Interval: rule.Period,
		Dtstart:  first.At(rule.Start),
		Until:    rule.Until.At(calendar.EndOfDay).Add(-time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("recurrence: build rule: %w", err)
	}
	return rr, nil
}
