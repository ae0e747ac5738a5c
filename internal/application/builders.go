package application

import (
	"strconv"
	"strings"
	"time"

	"github.com/example/room-scheduler/internal/calendar"
)

// SlotBuilder assembles a SlotInput from typed values or raw strings. Parse
// problems are recorded rather than returned so that Build can report every
// invalid field at once.
type SlotBuilder struct {
	input    SlotInput
	problems ValidationError
}

// NewSlotBuilder returns an empty builder.
func NewSlotBuilder() *SlotBuilder {
	return &SlotBuilder{}
}

func (b *SlotBuilder) Date(date calendar.Date) *SlotBuilder {
	b.input.Date = date
	return b
}

func (b *SlotBuilder) DateString(value string) *SlotBuilder {
	b.input.Date = parseDateField(&b.problems, "date", value)
	return b
}

func (b *SlotBuilder) Start(tod calendar.TimeOfDay) *SlotBuilder {
	b.input.Start = tod
	return b
}

func (b *SlotBuilder) StartString(value string) *SlotBuilder {
	b.input.Start = parseTimeField(&b.problems, "start", value)
	return b
}

func (b *SlotBuilder) End(tod calendar.TimeOfDay) *SlotBuilder {
	b.input.End = tod
	return b
}

func (b *SlotBuilder) EndString(value string) *SlotBuilder {
	b.input.End = parseTimeField(&b.problems, "end", value)
	return b
}

func (b *SlotBuilder) Duration(d time.Duration) *SlotBuilder {
	b.input.Duration = d
	return b
}

// DurationMinutes sets the duration from a whole number of minutes.
func (b *SlotBuilder) DurationMinutes(value string) *SlotBuilder {
	b.input.Duration = parseMinutesField(&b.problems, "duration", value)
	return b
}

func (b *SlotBuilder) Room(name string) *SlotBuilder {
	b.input.RoomName = strings.TrimSpace(name)
	return b
}

// Build validates the accumulated fields.
func (b *SlotBuilder) Build() (SlotInput, error) {
	vErr := &ValidationError{}
	vErr.merge(&b.problems)
	vErr.merge(validateSlotInput(b.input))
	if err := vErr.errOrNil(); err != nil {
		return SlotInput{}, err
	}
	return b.input, nil
}

// RecurrenceBuilder assembles a RecurrenceInput the same way SlotBuilder does.
type RecurrenceBuilder struct {
	input      RecurrenceInput
	weekdaySet bool
	problems   ValidationError
}

// NewRecurrenceBuilder returns an empty builder.
func NewRecurrenceBuilder() *RecurrenceBuilder {
	return &RecurrenceBuilder{}
}

func (b *RecurrenceBuilder) Weekday(day time.Weekday) *RecurrenceBuilder {
	b.input.Weekday = day
	b.weekdaySet = true
	return b
}

func (b *RecurrenceBuilder) WeekdayString(value string) *RecurrenceBuilder {
	day, err := calendar.ParseWeekday(value)
	if err != nil {
		b.problems.add("weekday", "weekday must name a day of the week")
		return b
	}
	return b.Weekday(day)
}

func (b *RecurrenceBuilder) Period(weeks int) *RecurrenceBuilder {
	b.input.Period = weeks
	return b
}

func (b *RecurrenceBuilder) PeriodString(value string) *RecurrenceBuilder {
	weeks, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		b.problems.add("period", "period must be a whole number of weeks")
		return b
	}
	b.input.Period = weeks
	return b
}

func (b *RecurrenceBuilder) Start(tod calendar.TimeOfDay) *RecurrenceBuilder {
	b.input.Start = tod
	return b
}

func (b *RecurrenceBuilder) StartString(value string) *RecurrenceBuilder {
	b.input.Start = parseTimeField(&b.problems, "start", value)
	return b
}

func (b *RecurrenceBuilder) End(tod calendar.TimeOfDay) *RecurrenceBuilder {
	b.input.End = tod
	return b
}

func (b *RecurrenceBuilder) EndString(value string) *RecurrenceBuilder {
	b.input.End = parseTimeField(&b.problems, "end", value)
	return b
}

func (b *RecurrenceBuilder) Duration(d time.Duration) *RecurrenceBuilder {
	b.input.Duration = d
	return b
}

func (b *RecurrenceBuilder) DurationMinutes(value string) *RecurrenceBuilder {
	b.input.Duration = parseMinutesField(&b.problems, "duration", value)
	return b
}

func (b *RecurrenceBuilder) From(date calendar.Date) *RecurrenceBuilder {
	b.input.From = date
	return b
}

func (b *RecurrenceBuilder) FromString(value string) *RecurrenceBuilder {
	b.input.From = parseDateField(&b.problems, "from", value)
	return b
}

func (b *RecurrenceBuilder) Until(date calendar.Date) *RecurrenceBuilder {
	b.input.Until = date
	return b
}

func (b *RecurrenceBuilder) UntilString(value string) *RecurrenceBuilder {
	b.input.Until = parseDateField(&b.problems, "until", value)
	return b
}

func (b *RecurrenceBuilder) Room(name string) *RecurrenceBuilder {
	b.input.RoomName = strings.TrimSpace(name)
	return b
}

// Build validates the accumulated fields.
func (b *RecurrenceBuilder) Build() (RecurrenceInput, error) {
	vErr := &ValidationError{}
	vErr.merge(&b.problems)
	if !b.weekdaySet {
		vErr.add("weekday", "weekday is required")
	}
	vErr.merge(validateRecurrenceInput(b.input))
	if err := vErr.errOrNil(); err != nil {
		return RecurrenceInput{}, err
	}
	return b.input, nil
}

func validateSlotInput(in SlotInput) *ValidationError {
	vErr := &ValidationError{}
	if in.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	if in.RoomName == "" {
		vErr.add("room", "room is required")
	}
	validateWindow(vErr, in.Start, in.End, in.Duration)
	return vErr
}

func validateRecurrenceInput(in RecurrenceInput) *ValidationError {
	vErr := &ValidationError{}
	if in.Weekday < time.Sunday || in.Weekday > time.Saturday {
		vErr.add("weekday", "weekday must name a day of the week")
	}
	if in.Period < 1 {
		vErr.add("period", "period must be at least one week")
	}
	if in.From.IsZero() {
		vErr.add("from", "from date is required")
	}
	if in.Until.IsZero() {
		vErr.add("until", "until date is required")
	}
	if !in.From.IsZero() && !in.Until.IsZero() && in.Until.Before(in.From) {
		vErr.add("until", "until must not be before from")
	}
	if in.RoomName == "" {
		vErr.add("room", "room is required")
	}
	validateWindow(vErr, in.Start, in.End, in.Duration)
	return vErr
}

// validateWindow checks the time window shared by slots and recurrences. End
// and duration may both be given only when they agree.
func validateWindow(vErr *ValidationError, start, end calendar.TimeOfDay, duration time.Duration) {
	if !start.Valid() || start == calendar.EndOfDay {
		vErr.add("start", "start must be between 00:00 and 23:59")
		return
	}
	switch {
	case end == 0 && duration == 0:
		vErr.add("end", "end time or duration is required")
		return
	case end != 0 && duration != 0 && start.Add(duration) != end:
		vErr.add("duration", "duration contradicts end time")
		return
	case end == 0 && duration < 0:
		vErr.add("duration", "duration must be positive")
		return
	}

	resolved := end
	if resolved == 0 {
		resolved = start.Add(duration)
	}
	if !resolved.Valid() {
		vErr.add("end", "slot must end by 24:00")
		return
	}
	if resolved <= start {
		vErr.add("end", "end must be after start")
	}
}

func parseDateField(problems *ValidationError, field, value string) calendar.Date {
	date, err := calendar.ParseDate(value)
	if err != nil {
		problems.add(field, field+" must be formatted YYYY-MM-DD")
		return calendar.Date{}
	}
	return date
}

func parseTimeField(problems *ValidationError, field, value string) calendar.TimeOfDay {
	tod, err := calendar.ParseTimeOfDay(value)
	if err != nil {
		problems.add(field, field+" must be formatted HH:MM")
		return 0
	}
	return tod
}

func parseMinutesField(problems *ValidationError, field, value string) time.Duration {
	minutes, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || minutes <= 0 {
		problems.add(field, field+" must be a positive number of minutes")
		return 0
	}
	return time.Duration(minutes) * time.Minute
}
