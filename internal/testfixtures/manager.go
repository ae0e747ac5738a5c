// Package testfixtures builds schedule managers and inputs for tests outside
// the application package.
package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/calendar"
	"github.com/example/room-scheduler/internal/scheduler"
)

// DiscardLogger drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewManager returns an empty same-room manager with a silent logger and
// group ids "group-1", "group-2", ... Extra options are applied last.
func NewManager(opts ...application.Option) *application.ScheduleManager {
	rooms := application.NewRoomRegistry()
	slots := application.NewSlotStore(rooms, scheduler.PolicySameRoom)
	base := []application.Option{
		application.WithLogger(DiscardLogger()),
		application.WithGroupIDGenerator(NewIDGenerator("group").Func()),
	}
	return application.NewScheduleManager(rooms, slots, append(base, opts...)...)
}

// Room builds a room without equipment. A negative capacity means unknown.
func Room(name string, capacity int) application.Room {
	if capacity < 0 {
		capacity = application.CapacityUnspecified
	}
	return application.Room{Name: name, Capacity: capacity}
}

// SeedRooms registers rooms and fails the test on the first error.
func SeedRooms(tb testing.TB, m *application.ScheduleManager, rooms ...application.Room) {
	tb.Helper()
	for _, room := range rooms {
		if err := m.AddRoom(context.Background(), room); err != nil {
			tb.Fatalf("add room %q: %v", room.Name, err)
		}
	}
}

// Slot parses a slot input from its textual fields.
func Slot(tb testing.TB, date, start, end, room string) application.SlotInput {
	tb.Helper()
	in, err := application.NewSlotBuilder().DateString(date).StartString(start).EndString(end).Room(room).Build()
	if err != nil {
		tb.Fatalf("build slot %s %s-%s %s: %v", date, start, end, room, err)
	}
	return in
}

// Book books a slot and fails the test when it is rejected.
func Book(tb testing.TB, m *application.ScheduleManager, date, start, end, room string) application.Slot {
	tb.Helper()
	slot, err := m.Book(context.Background(), Slot(tb, date, start, end, room))
	if err != nil {
		tb.Fatalf("book %s %s-%s %s: %v", date, start, end, room, err)
	}
	return slot
}

// Date parses YYYY-MM-DD and fails the test on error.
func Date(tb testing.TB, value string) calendar.Date {
	tb.Helper()
	d, err := calendar.ParseDate(value)
	if err != nil {
		tb.Fatalf("parse date %q: %v", value, err)
	}
	return d
}
