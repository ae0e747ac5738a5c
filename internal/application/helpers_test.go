package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/example/room-scheduler/internal/calendar"
	"github.com/example/room-scheduler/internal/scheduler"
)

func day(t *testing.T, value string) calendar.Date {
	t.Helper()
	date, err := calendar.ParseDate(value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return date
}

func clock(t *testing.T, value string) calendar.TimeOfDay {
	t.Helper()
	tod, err := calendar.ParseTimeOfDay(value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return tod
}

func slotInput(t *testing.T, date, start, end, room string) SlotInput {
	t.Helper()
	return SlotInput{Date: day(t, date), Start: clock(t, start), End: clock(t, end), RoomName: room}
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newTestManager(t *testing.T, policy scheduler.Policy, opts ...Option) *ScheduleManager {
	t.Helper()
	rooms := NewRoomRegistry()
	rooms.newKey = sequentialIDs("room")
	slots := NewSlotStore(rooms, policy)
	opts = append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithGroupIDGenerator(sequentialIDs("group")),
	}, opts...)
	return NewScheduleManager(rooms, slots, opts...)
}

func seedRooms(t *testing.T, m *ScheduleManager, rooms ...Room) {
	t.Helper()
	for _, room := range rooms {
		if err := m.AddRoom(context.Background(), room); err != nil {
			t.Fatalf("add room %q: %v", room.Name, err)
		}
	}
}

func slotDates(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, slot := range slots {
		out[i] = slot.Date.String()
	}
	return out
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
