package recurrence

import (
	"errors"
	"iter"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/example/room-scheduler/internal/calendar"
)

func dates(seq iter.Seq[Occurrence]) []calendar.Date {
	var out []calendar.Date
	for occ := range seq {
		out = append(out, occ.Date)
	}
	return out
}

func TestEngine_Expand(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	nine := calendar.MustTimeOfDay(9, 0)
	ten := calendar.MustTimeOfDay(10, 0)

	t.Run("weekly mondays inside inclusive interval", func(t *testing.T) {
		t.Parallel()

		seq, err := engine.Expand(Rule{
			Weekday: time.Monday,
			Period:  1,
			Start:   nine,
			End:     ten,
			From:    calendar.NewDate(2024, time.January, 1),
			Until:   calendar.NewDate(2024, time.January, 22),
		})
		if err != nil {
			t.Fatalf("expected rule to expand, got %v", err)
		}

		want := []calendar.Date{
			calendar.NewDate(2024, time.January, 1),
			calendar.NewDate(2024, time.January, 8),
			calendar.NewDate(2024, time.January, 15),
			calendar.NewDate(2024, time.January, 22),
		}
		if got := dates(seq); !slices.Equal(got, want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for occ := range seq {
			if occ.Start != nine || occ.End != ten {
				t.Fatalf("expected fixed 09:00-10:00 window, got %s-%s", occ.Start, occ.End)
			}
		}
	})

	t.Run("period counts from first matching date", func(t *testing.T) {
		t.Parallel()

		// 2024-01-03 is a Wednesday; the first Monday is 2024-01-08.
		seq, err := engine.Expand(Rule{
			Weekday:  time.Monday,
			Period:   2,
			Start:    nine,
			Duration: 90 * time.Minute,
			From:     calendar.NewDate(2024, time.January, 3),
			Until:    calendar.NewDate(2024, time.February, 5),
		})
		if err != nil {
			t.Fatalf("expected rule to expand, got %v", err)
		}

		want := []calendar.Date{
			calendar.NewDate(2024, time.January, 8),
			calendar.NewDate(2024, time.January, 22),
			calendar.NewDate(2024, time.February, 5),
		}
		if got := dates(seq); !slices.Equal(got, want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for occ := range seq {
			if occ.End != calendar.MustTimeOfDay(10, 30) {
				t.Fatalf("expected duration to derive 10:30 end, got %s", occ.End)
			}
		}
	})

	t.Run("interval without matching weekday is empty", func(t *testing.T) {
		t.Parallel()

		seq, err := engine.Expand(Rule{
			Weekday: time.Sunday,
			Period:  1,
			Start:   nine,
			End:     ten,
			From:    calendar.NewDate(2024, time.January, 1),
			Until:   calendar.NewDate(2024, time.January, 5),
		})
		if err != nil {
			t.Fatalf("expected empty expansion without error, got %v", err)
		}
		if got := dates(seq); len(got) != 0 {
			t.Fatalf("expected no occurrences, got %v", got)
		}
	})

	t.Run("sequence is restartable", func(t *testing.T) {
		t.Parallel()

		seq, err := engine.Expand(Rule{
			Weekday: time.Friday,
			Period:  1,
			Start:   nine,
			End:     ten,
			From:    calendar.NewDate(2024, time.March, 1),
			Until:   calendar.NewDate(2024, time.March, 31),
		})
		if err != nil {
			t.Fatalf("expected rule to expand, got %v", err)
		}

		for range seq {
			break
		}
		if got := dates(seq); len(got) != 5 {
			t.Fatalf("expected five Fridays on a fresh iteration, got %v", got)
		}
	})
}

func TestRule_Validate(t *testing.T) {
	t.Parallel()

	err := Rule{
		Weekday:  time.Monday,
		Period:   0,
		Start:    calendar.MustTimeOfDay(10, 0),
		End:      calendar.MustTimeOfDay(9, 0),
		Duration: time.Hour,
		From:     calendar.NewDate(2024, time.February, 1),
		Until:    calendar.NewDate(2024, time.January, 1),
	}.Validate()

	for _, sentinel := range []error{ErrInvalidPeriod, ErrAmbiguousEnd, ErrInvalidWindow} {
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected %v to be reported, got %v", sentinel, err)
		}
	}

	err = Rule{
		Weekday: time.Monday,
		Period:  1,
		Start:   calendar.MustTimeOfDay(10, 0),
		End:     calendar.MustTimeOfDay(9, 0),
		From:    calendar.NewDate(2024, time.January, 1),
		Until:   calendar.NewDate(2024, time.January, 1),
	}.Validate()
	if !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
}

func TestEngine_RRule(t *testing.T) {
	t.Parallel()

	got, err := NewEngine().RRule(Rule{
		Weekday: time.Tuesday,
		Period:  3,
		Start:   calendar.MustTimeOfDay(14, 0),
		End:     calendar.MustTimeOfDay(15, 0),
		From:    calendar.NewDate(2024, time.January, 1),
		Until:   calendar.NewDate(2024, time.June, 30),
	})
	if err != nil {
		t.Fatalf("expected rule to render, got %v", err)
	}
	for _, part := range []string{"FREQ=WEEKLY", "INTERVAL=3"} {
		if !strings.Contains(got, part) {
			t.Fatalf("expected %q in %q", part, got)
		}
	}
}
