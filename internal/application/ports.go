package application

import "context"

// RoomSource yields rooms to import, for example from a CSV file or an archive.
type RoomSource interface {
	Rooms(ctx context.Context) ([]Room, error)
}

// SlotSource yields slots to import. known maps every registered room name to
// its room so that sources can reject rows referencing unknown rooms. Only the
// Room.Name of returned slots is used.
type SlotSource interface {
	Slots(ctx context.Context, known map[string]Room) ([]Slot, error)
}

// GroupSource is implemented by slot sources that also carry recurrence
// groups. Imported slots tagged with a group id are reattached to it.
type GroupSource interface {
	Groups(ctx context.Context) ([]RecurrenceGroup, error)
}

// SlotEncoder renders slots. fields optionally restricts the emitted columns.
type SlotEncoder interface {
	EncodeSlots(slots []Slot, fields []string) ([]byte, error)
}

// RoomEncoder renders rooms. fields optionally restricts the emitted columns.
type RoomEncoder interface {
	EncodeRooms(rooms []Room, fields []string) ([]byte, error)
}

// FileWriter persists rendered data.
type FileWriter interface {
	WriteAll(path string, data []byte, append bool) error
}
