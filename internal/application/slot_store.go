package application

import (
	"fmt"
	"slices"
	"time"

	"github.com/example/room-scheduler/internal/calendar"
	"github.com/example/room-scheduler/internal/scheduler"
)

// slotRecord is the stored form of a booking. Rooms are referenced by their
// registry key so renames do not detach slots.
type slotRecord struct {
	Date    calendar.Date
	Start   calendar.TimeOfDay
	End     calendar.TimeOfDay
	RoomKey string
	GroupID string
}

func (r slotRecord) identity() slotRecord {
	r.GroupID = ""
	return r
}

func (r slotRecord) view() scheduler.Slot {
	return scheduler.Slot{RoomKey: r.RoomKey, Date: r.Date, Start: r.Start, End: r.End}
}

type groupRecord struct {
	ID      string
	RoomKey string
	Weekday time.Weekday
	Period  int
	Start   calendar.TimeOfDay
	End     calendar.TimeOfDay
	From    calendar.Date
	Until   calendar.Date
	RRule   string
	members []slotRecord
}

// SlotStore owns the booked slots. Slots are kept in booking order and indexed
// by date so collision checks only look at bookings on the same day.
//
// A SlotStore is not safe for concurrent use; ScheduleManager serializes access.
type SlotStore struct {
	rooms  *RoomRegistry
	policy scheduler.Policy

	order  []slotRecord
	byDate map[calendar.Date][]slotRecord
	groups map[string]*groupRecord
}

// NewSlotStore constructs an empty store resolving room references through rooms.
func NewSlotStore(rooms *RoomRegistry, policy scheduler.Policy) *SlotStore {
	return &SlotStore{
		rooms:  rooms,
		policy: policy,
		byDate: make(map[calendar.Date][]slotRecord),
		groups: make(map[string]*groupRecord),
	}
}

// Policy returns the collision policy applied by the store.
func (s *SlotStore) Policy() scheduler.Policy {
	return s.policy
}

// Len returns the number of booked slots.
func (s *SlotStore) Len() int {
	return len(s.order)
}

func (s *SlotStore) book(rec slotRecord) error {
	if conflicts := s.collisions(rec); len(conflicts) > 0 {
		return s.conflictError(conflicts[0], rec)
	}
	s.insert(rec)
	return nil
}

// bookMany validates every candidate against the store and against each other
// before inserting any of them.
func (s *SlotStore) bookMany(recs []slotRecord, group *groupRecord) error {
	for _, rec := range recs {
		if conflicts := s.collisions(rec); len(conflicts) > 0 {
			return s.conflictError(conflicts[0], rec)
		}
	}

	views := make([]scheduler.Slot, len(recs))
	for i, rec := range recs {
		views[i] = rec.view()
	}
	if pair, ok := scheduler.FirstPairwiseConflict(views, s.policy); ok {
		return s.conflictError(recordOf(pair.Existing, ""), recordOf(pair.Candidate, ""))
	}

	for _, rec := range recs {
		s.insert(rec)
	}
	if group != nil {
		s.addGroup(group, recs)
	}
	return nil
}

// addGroup registers group with the members of recs tagged with its id. A
// group without members is not kept.
func (s *SlotStore) addGroup(group *groupRecord, recs []slotRecord) {
	group.members = nil
	for _, rec := range recs {
		if rec.GroupID == group.ID {
			group.members = append(group.members, rec.identity())
		}
	}
	if len(group.members) == 0 {
		return
	}
	s.groups[group.ID] = group
}

func (s *SlotStore) insert(rec slotRecord) {
	s.order = append(s.order, rec)
	s.byDate[rec.Date] = append(s.byDate[rec.Date], rec)
}

// delete removes the slot matching the identity of rec and detaches it from
// its recurrence group.
func (s *SlotStore) delete(rec slotRecord) (slotRecord, error) {
	id := rec.identity()
	idx := slices.IndexFunc(s.order, func(existing slotRecord) bool {
		return existing.identity() == id
	})
	if idx < 0 {
		return slotRecord{}, fmt.Errorf("slot %s %s-%s: %w", rec.Date, rec.Start, rec.End, ErrNotFound)
	}

	removed := s.order[idx]
	s.order = slices.Delete(s.order, idx, idx+1)
	s.unindex(removed)
	s.detach(removed)
	return removed, nil
}

func (s *SlotStore) unindex(rec slotRecord) {
	id := rec.identity()
	day := slices.DeleteFunc(s.byDate[rec.Date], func(existing slotRecord) bool {
		return existing.identity() == id
	})
	if len(day) == 0 {
		delete(s.byDate, rec.Date)
		return
	}
	s.byDate[rec.Date] = day
}

func (s *SlotStore) detach(rec slotRecord) {
	if rec.GroupID == "" {
		return
	}
	group, ok := s.groups[rec.GroupID]
	if !ok {
		return
	}
	id := rec.identity()
	group.members = slices.DeleteFunc(group.members, func(member slotRecord) bool {
		return member == id
	})
	if len(group.members) == 0 {
		delete(s.groups, group.ID)
	}
}

// collisions returns the stored slots that collide with rec under the policy.
func (s *SlotStore) collisions(rec slotRecord) []slotRecord {
	candidate := rec.view()
	var hits []slotRecord
	for _, existing := range s.byDate[rec.Date] {
		if scheduler.Collides(existing.view(), candidate, s.policy) {
			hits = append(hits, existing)
		}
	}
	return hits
}

// removeRoom drops every slot referencing roomKey and returns how many were removed.
func (s *SlotStore) removeRoom(roomKey string) int {
	return s.removeWhere(func(rec slotRecord) bool { return rec.RoomKey == roomKey })
}

// removeGroup drops every remaining member of the recurrence group.
func (s *SlotStore) removeGroup(groupID string) (int, error) {
	if _, ok := s.groups[groupID]; !ok {
		return 0, fmt.Errorf("recurrence %q: %w", groupID, ErrNotFound)
	}
	removed := s.removeWhere(func(rec slotRecord) bool { return rec.GroupID == groupID })
	delete(s.groups, groupID)
	return removed, nil
}

func (s *SlotStore) removeWhere(match func(slotRecord) bool) int {
	before := len(s.order)
	var victims []slotRecord
	s.order = slices.DeleteFunc(s.order, func(rec slotRecord) bool {
		if match(rec) {
			victims = append(victims, rec)
			return true
		}
		return false
	})
	for _, rec := range victims {
		s.unindex(rec)
		s.detach(rec)
	}
	return before - len(s.order)
}

func (s *SlotStore) group(id string) (*groupRecord, bool) {
	group, ok := s.groups[id]
	return group, ok
}

// records returns a copy of the stored slots in booking order.
func (s *SlotStore) records() []slotRecord {
	return slices.Clone(s.order)
}

func (s *SlotStore) groupRecords() []*groupRecord {
	groups := make([]*groupRecord, 0, len(s.groups))
	for _, group := range s.groups {
		groups = append(groups, group)
	}
	slices.SortFunc(groups, func(a, b *groupRecord) int {
		if c := a.From.Compare(b.From); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return groups
}

// materialize resolves the room reference of rec into a Slot.
func (s *SlotStore) materialize(rec slotRecord) Slot {
	room, _ := s.rooms.byKey(rec.RoomKey)
	return Slot{Date: rec.Date, Start: rec.Start, End: rec.End, Room: room, GroupID: rec.GroupID}
}

func (s *SlotStore) materializeAll(recs []slotRecord) []Slot {
	slots := make([]Slot, len(recs))
	for i, rec := range recs {
		slots[i] = s.materialize(rec)
	}
	return slots
}

func (s *SlotStore) materializeGroup(group *groupRecord) RecurrenceGroup {
	room, _ := s.rooms.byKey(group.RoomKey)
	members := make([]SlotKey, len(group.members))
	for i, member := range group.members {
		members[i] = SlotKey{Date: member.Date, Start: member.Start, End: member.End, RoomName: room.Name}
	}
	return RecurrenceGroup{
		ID:       group.ID,
		RoomName: room.Name,
		Weekday:  group.Weekday,
		Period:   group.Period,
		Start:    group.Start,
		End:      group.End,
		From:     group.From,
		Until:    group.Until,
		RRule:    group.RRule,
		Members:  members,
	}
}

func (s *SlotStore) conflictError(existing, candidate slotRecord) *ConflictError {
	return &ConflictError{
		Existing:  s.materialize(existing),
		Candidate: s.materialize(candidate),
	}
}

func recordOf(view scheduler.Slot, groupID string) slotRecord {
	return slotRecord{Date: view.Date, Start: view.Start, End: view.End, RoomKey: view.RoomKey, GroupID: groupID}
}
