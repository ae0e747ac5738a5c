package calendar

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	t.Parallel()

	got, err := ParseDate(" 2024-01-08 ")
	if err != nil {
		t.Fatalf("expected date to parse, got %v", err)
	}
	if want := NewDate(2024, time.January, 8); got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got.Weekday() != time.Monday {
		t.Fatalf("expected Monday, got %v", got.Weekday())
	}

	for _, value := range []string{"", "2024-13-01", "08.01.2024", "2024-02-30"} {
		if _, err := ParseDate(value); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("expected ErrInvalidDate for %q, got %v", value, err)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	cases := map[string]TimeOfDay{
		"00:00": 0,
		"09:30": 9*60 + 30,
		"24:00": EndOfDay,
	}
	for value, want := range cases {
		got, err := ParseTimeOfDay(value)
		if err != nil {
			t.Fatalf("expected %q to parse, got %v", value, err)
		}
		if got != want {
			t.Fatalf("expected %d for %q, got %d", want, value, got)
		}
		if got.String() != value {
			t.Fatalf("expected %q to round trip, got %q", value, got.String())
		}
	}

	for _, value := range []string{"9:00", "24:30", "12:60", "ab:cd", "+9:00", "-1:00"} {
		if _, err := ParseTimeOfDay(value); !errors.Is(err, ErrInvalidTime) {
			t.Fatalf("expected ErrInvalidTime for %q, got %v", value, err)
		}
	}
}

func TestDate_At(t *testing.T) {
	t.Parallel()

	d := NewDate(2024, time.January, 1)
	got := d.At(MustTimeOfDay(9, 15))
	want := time.Date(2024, time.January, 1, 9, 15, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestDate_NextWeekday(t *testing.T) {
	t.Parallel()

	monday := NewDate(2024, time.January, 1)
	if got := monday.NextWeekday(time.Monday); got != monday {
		t.Fatalf("expected same day when weekday already matches, got %v", got)
	}
	if got := monday.NextWeekday(time.Sunday); got != NewDate(2024, time.January, 7) {
		t.Fatalf("expected following Sunday, got %v", got)
	}
	if got := NewDate(2024, time.February, 28).AddDays(1); got != NewDate(2024, time.February, 29) {
		t.Fatalf("expected leap day, got %v", got)
	}
}

func TestTimeOfDay_Arithmetic(t *testing.T) {
	t.Parallel()

	start := MustTimeOfDay(9, 0)
	end := start.Add(90 * time.Minute)
	if end != MustTimeOfDay(10, 30) {
		t.Fatalf("expected 10:30, got %v", end)
	}
	if end.Sub(start) != 90*time.Minute {
		t.Fatalf("expected 90m difference, got %v", end.Sub(start))
	}
	if start.Add(16 * time.Hour).Valid() {
		t.Fatalf("expected time past midnight to be invalid")
	}
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]time.Weekday{
		"Monday": time.Monday,
		"wed":    time.Wednesday,
		"SU":     time.Sunday,
		" sat ":  time.Saturday,
	} {
		got, err := ParseWeekday(input)
		if err != nil {
			t.Fatalf("ParseWeekday(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseWeekday(%q): expected %v, got %v", input, want, got)
		}
	}

	if _, err := ParseWeekday("someday"); !errors.Is(err, ErrInvalidWeekday) {
		t.Fatalf("expected ErrInvalidWeekday, got %v", err)
	}
}
