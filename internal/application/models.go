package application

import (
	"maps"
	"time"

	"github.com/example/room-scheduler/internal/calendar"
)

// CapacityUnspecified marks a room whose capacity is unknown. Such rooms are
// never rejected by capacity filters.
const CapacityUnspecified = -1

// Room represents a bookable physical location identified by its unique name.
type Room struct {
	Name         string
	Capacity     int
	HasComputers bool
	HasProjector bool
	Attributes   map[string]string
}

// Clone returns a deep copy of r.
func (r Room) Clone() Room {
	r.Attributes = maps.Clone(r.Attributes)
	return r
}

// CapacityKnown reports whether the room declares a capacity.
func (r Room) CapacityKnown() bool {
	return r.Capacity != CapacityUnspecified
}

// Slot represents one booked occupation of a room.
type Slot struct {
	Date    calendar.Date
	Start   calendar.TimeOfDay
	End     calendar.TimeOfDay
	Room    Room
	GroupID string
}

// StartsAt returns the absolute start instant used for ordering.
func (s Slot) StartsAt() time.Time {
	return s.Date.At(s.Start)
}

// EndsAt returns the absolute end instant.
func (s Slot) EndsAt() time.Time {
	return s.Date.At(s.End)
}

// Duration returns End minus Start.
func (s Slot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Key returns the identity used to address the slot for deletion.
func (s Slot) Key() SlotKey {
	return SlotKey{Date: s.Date, Start: s.Start, End: s.End, RoomName: s.Room.Name}
}

// SlotKey identifies a booked slot by date, time window and room name.
type SlotKey struct {
	Date     calendar.Date
	Start    calendar.TimeOfDay
	End      calendar.TimeOfDay
	RoomName string
}

// SlotInput captures caller provided slot fields. Exactly one of End or
// Duration is required; both may be supplied when they agree.
type SlotInput struct {
	Date     calendar.Date
	Start    calendar.TimeOfDay
	End      calendar.TimeOfDay
	Duration time.Duration
	RoomName string
}

// EndTime resolves the end of the slot from End or Duration.
func (in SlotInput) EndTime() calendar.TimeOfDay {
	if in.End != 0 {
		return in.End
	}
	return in.Start.Add(in.Duration)
}

// RecurrenceInput captures caller provided recurrence fields.
type RecurrenceInput struct {
	Weekday  time.Weekday
	Period   int
	Start    calendar.TimeOfDay
	End      calendar.TimeOfDay
	Duration time.Duration
	From     calendar.Date
	Until    calendar.Date
	RoomName string
}

// RecurrenceGroup describes a family of slots produced from one recurrence.
type RecurrenceGroup struct {
	ID       string
	RoomName string
	Weekday  time.Weekday
	Period   int
	Start    calendar.TimeOfDay
	End      calendar.TimeOfDay
	From     calendar.Date
	Until    calendar.Date
	RRule    string
	Members  []SlotKey
}

// RoomQuery narrows room lookups. Nil or empty fields mean "don't care".
type RoomQuery struct {
	NameContains string
	MinCapacity  *int
	HasComputers *bool
	HasProjector *bool
	Attributes   map[string]string
}

// SortOrder selects the direction of chronological ordering.
type SortOrder int

const (
	// Ascending orders earliest slots first.
	Ascending SortOrder = iota
	// Descending orders latest slots first.
	Descending
)

// ParseSortOrder maps "asc"/"desc" to a SortOrder. Empty means Ascending.
func ParseSortOrder(value string) (SortOrder, bool) {
	switch value {
	case "", "asc":
		return Ascending, true
	case "desc":
		return Descending, true
	default:
		return Ascending, false
	}
}

// FreeSlotQuery requests unbooked windows per room and day.
type FreeSlotQuery struct {
	From        calendar.Date
	Until       calendar.Date
	Rooms       RoomQuery
	MinDuration time.Duration
}

// FreeSlot is an unbooked window in a room on one day.
type FreeSlot struct {
	Room  Room
	Date  calendar.Date
	Start calendar.TimeOfDay
	End   calendar.TimeOfDay
}

// Snapshot is a point-in-time copy of the registry and the store.
type Snapshot struct {
	Rooms    []Room
	Slots    []Slot
	Groups   []RecurrenceGroup
	Revision uint64
}
