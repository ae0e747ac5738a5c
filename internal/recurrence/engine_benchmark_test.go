package recurrence

import (
	"testing"
	"time"

	"github.com/example/room-scheduler/internal/calendar"
)

func BenchmarkEngineExpand(b *testing.B) {
	engine := NewEngine()
	rule := Rule{
		Weekday:  time.Wednesday,
		Period:   1,
		Start:    calendar.MustTimeOfDay(9, 0),
		Duration: 90 * time.Minute,
		From:     calendar.NewDate(2024, time.January, 1),
		Until:    calendar.NewDate(2026, time.December, 31),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		seq, err := engine.Expand(rule)
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		count := 0
		for range seq {
			count++
		}
		if count == 0 {
			b.Fatal("expected occurrences to be generated")
		}
	}
}
