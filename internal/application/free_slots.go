package application

import (
	"context"
	"slices"
	"strings"

	"github.com/example/room-scheduler/internal/calendar"
	"github.com/example/room-scheduler/internal/scheduler"
)

// maxFreeSlotDays bounds the number of days a single FreeSlots query may span.
const maxFreeSlotDays = 366

// FreeSlots returns, for every room matching q.Rooms and every day in the
// inclusive [q.From, q.Until] range, the unbooked windows between the
// configured working hours that last at least q.MinDuration. Results are in
// chronological order with ties broken by room name.
func (m *ScheduleManager) FreeSlots(ctx context.Context, q FreeSlotQuery) ([]FreeSlot, error) {
	vErr := &ValidationError{}
	if q.From.IsZero() {
		vErr.add("from", "from date is required")
	}
	if q.Until.IsZero() {
		vErr.add("until", "until date is required")
	}
	if !q.From.IsZero() && !q.Until.IsZero() {
		switch {
		case q.Until.Before(q.From):
			vErr.add("until", "until must not be before from")
		case q.Until.Time().Sub(q.From.Time()).Hours()/24 >= maxFreeSlotDays:
			vErr.add("until", "range must not exceed one year")
		}
	}
	if q.MinDuration < 0 {
		vErr.add("min_duration", "minimum duration must not be negative")
	}
	if err := vErr.errOrNil(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms := m.rooms.Lookup(q.Rooms)
	anyRoom := m.slots.Policy() == scheduler.PolicyAnyRoom
	busy := make(map[string]map[calendar.Date][]slotRecord, len(rooms))
	for _, rec := range m.slots.records() {
		if rec.Date.Before(q.From) || rec.Date.After(q.Until) {
			continue
		}
		// Under the any-room policy every booking blocks every room.
		key := rec.RoomKey
		if anyRoom {
			key = ""
		}
		if busy[key] == nil {
			busy[key] = make(map[calendar.Date][]slotRecord)
		}
		busy[key][rec.Date] = append(busy[key][rec.Date], rec)
	}

	var free []FreeSlot
	for day := q.From; !day.After(q.Until); day = day.AddDays(1) {
		for _, room := range rooms {
			key, _ := m.rooms.keyOf(room.Name)
			if anyRoom {
				key = ""
			}
			free = append(free, m.gaps(room, day, busy[key][day], q)...)
		}
	}

	slices.SortStableFunc(free, func(a, b FreeSlot) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		if a.Start != b.Start {
			return int(a.Start - b.Start)
		}
		return strings.Compare(a.Room.Name, b.Room.Name)
	})
	return free, nil
}

// gaps walks the bookings of one room on one day and emits the holes between
// them inside working hours.
func (m *ScheduleManager) gaps(room Room, day calendar.Date, booked []slotRecord, q FreeSlotQuery) []FreeSlot {
	booked = slices.Clone(booked)
	slices.SortFunc(booked, func(a, b slotRecord) int { return int(a.Start - b.Start) })

	var out []FreeSlot
	emit := func(start, end calendar.TimeOfDay) {
		if end <= start || end.Sub(start) < q.MinDuration {
			return
		}
		out = append(out, FreeSlot{Room: room, Date: day, Start: start, End: end})
	}

	cursor := m.dayStart
	for _, rec := range booked {
		if rec.End <= cursor {
			continue
		}
		if rec.Start >= m.dayEnd {
			break
		}
		emit(cursor, min(rec.Start, m.dayEnd))
		cursor = max(cursor, rec.End)
	}
	if cursor < m.dayEnd {
		emit(cursor, m.dayEnd)
	}
	return out
}
