package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/example/room-scheduler/internal/calendar"
	"github.com/example/room-scheduler/internal/recurrence"
	"github.com/example/room-scheduler/internal/scheduler"
)

const managerName = "ScheduleManager"

// ScheduleManager is the booking API. It owns a RoomRegistry and a SlotStore
// and serializes access to both: reads share a lock, mutations hold it
// exclusively for their whole validate-then-apply sequence. A rejected
// operation leaves the state unchanged, with the exception documented on
// MoveSlot.
type ScheduleManager struct {
	mu       sync.RWMutex
	rooms    *RoomRegistry
	slots    *SlotStore
	revision uint64

	engine     *recurrence.Engine
	newGroupID func() string
	window     struct{ from, until calendar.Date }
	dayStart   calendar.TimeOfDay
	dayEnd     calendar.TimeOfDay
	logger     *slog.Logger
}

// Option customizes a ScheduleManager.
type Option func(*ScheduleManager)

// WithLogger sets the base logger used when the context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(m *ScheduleManager) { m.logger = defaultLogger(logger) }
}

// WithGroupIDGenerator replaces the recurrence group id generator.
func WithGroupIDGenerator(gen func() string) Option {
	return func(m *ScheduleManager) {
		if gen != nil {
			m.newGroupID = gen
		}
	}
}

// WithWindow restricts bookings to dates within [from, until]. A zero bound
// leaves that side open.
func WithWindow(from, until calendar.Date) Option {
	return func(m *ScheduleManager) {
		m.window.from = from
		m.window.until = until
	}
}

// WithWorkingHours sets the daily range searched by FreeSlots.
func WithWorkingHours(start, end calendar.TimeOfDay) Option {
	return func(m *ScheduleManager) {
		if start.Valid() && end.Valid() && start < end {
			m.dayStart, m.dayEnd = start, end
		}
	}
}

// NewScheduleManager wires a manager around rooms and slots. slots must
// resolve room references through rooms. Nil arguments are replaced with
// empty state using the same-room collision policy.
func NewScheduleManager(rooms *RoomRegistry, slots *SlotStore, opts ...Option) *ScheduleManager {
	if rooms == nil {
		rooms = NewRoomRegistry()
	}
	if slots == nil {
		slots = NewSlotStore(rooms, scheduler.PolicySameRoom)
	}
	m := &ScheduleManager{
		rooms:      rooms,
		slots:      slots,
		engine:     recurrence.NewEngine(),
		newGroupID: uuid.NewString,
		dayStart:   calendar.MustTimeOfDay(8, 0),
		dayEnd:     calendar.MustTimeOfDay(20, 0),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *ScheduleManager) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, m.logger, managerName, operation, attrs...)
}

// Revision increases on every successful mutation.
func (m *ScheduleManager) Revision() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.revision
}

// Policy returns the collision policy of the underlying store.
func (m *ScheduleManager) Policy() scheduler.Policy {
	return m.slots.Policy()
}

// AddRoom registers a new room.
func (m *ScheduleManager) AddRoom(ctx context.Context, room Room) (err error) {
	logger := m.loggerWith(ctx, "AddRoom", "room", room.Name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room added")
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	if err = m.rooms.Add(room); err != nil {
		return err
	}
	m.revision++
	return nil
}

// UpdateRoom replaces the properties of the room called name. Slots booked
// in the room follow a rename.
func (m *ScheduleManager) UpdateRoom(ctx context.Context, name string, room Room) (err error) {
	logger := m.loggerWith(ctx, "UpdateRoom", "room", name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("new_name", room.Name).InfoContext(ctx, "room updated")
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	if err = m.rooms.Update(name, room); err != nil {
		return err
	}
	m.revision++
	return nil
}

// DeleteRoom removes the room and every slot booked in it. It returns the
// number of removed slots.
func (m *ScheduleManager) DeleteRoom(ctx context.Context, name string) (removed int, err error) {
	logger := m.loggerWith(ctx, "DeleteRoom", "room", name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("removed_slots", removed).InfoContext(ctx, "room deleted")
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	key, err := m.rooms.Delete(name)
	if err != nil {
		return 0, err
	}
	removed = m.slots.removeRoom(key)
	m.revision++
	return removed, nil
}

// GetRoom returns the room called name.
func (m *ScheduleManager) GetRoom(ctx context.Context, name string) (Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms.Get(name)
	if !ok {
		return Room{}, fmt.Errorf("room %q: %w", name, ErrNotFound)
	}
	return room, nil
}

// HasRoom reports whether a room called name is registered.
func (m *ScheduleManager) HasRoom(ctx context.Context, name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms.Has(name)
}

// LookupRooms returns the rooms matching every supplied filter.
func (m *ScheduleManager) LookupRooms(ctx context.Context, query RoomQuery) []Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms.Lookup(query)
}

// ListRooms returns every registered room ordered by name.
func (m *ScheduleManager) ListRooms(ctx context.Context) []Room {
	return m.LookupRooms(ctx, RoomQuery{})
}

// Book reserves a single slot.
func (m *ScheduleManager) Book(ctx context.Context, in SlotInput) (slot Slot, err error) {
	logger := m.loggerWith(ctx, "Book", "room", in.RoomName, "date", in.Date)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to book slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "slot booked", "start", slot.Start, "end", slot.End)
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.recordFor(in)
	if err != nil {
		return Slot{}, err
	}
	if err = m.slots.book(rec); err != nil {
		return Slot{}, err
	}
	m.revision++
	return m.slots.materialize(rec), nil
}

// BookRecurring expands the recurrence and books every occurrence as one
// batch. Either all occurrences are booked or none are. An interval without a
// matching weekday books nothing and returns a group without id.
func (m *ScheduleManager) BookRecurring(ctx context.Context, in RecurrenceInput) (group RecurrenceGroup, booked []Slot, err error) {
	logger := m.loggerWith(ctx, "BookRecurring", "room", in.RoomName, "weekday", in.Weekday, "period", in.Period)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to book recurrence", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "recurrence booked", "group_id", group.ID, "slots", len(booked))
	}()

	if vErr := validateRecurrenceInput(in); vErr.HasErrors() {
		return RecurrenceGroup{}, nil, vErr
	}

	end := SlotInput{Start: in.Start, End: in.End, Duration: in.Duration}.EndTime()
	rule := recurrence.Rule{
		Weekday: in.Weekday,
		Period:  in.Period,
		Start:   in.Start,
		End:     end,
		From:    in.From,
		Until:   in.Until,
	}
	occurrences, err := m.engine.Expand(rule)
	if err != nil {
		return RecurrenceGroup{}, nil, invalidField("recurrence", err.Error())
	}
	rrule, err := m.engine.RRule(rule)
	if err != nil {
		return RecurrenceGroup{}, nil, invalidField("recurrence", err.Error())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.rooms.keyOf(in.RoomName)
	if !ok {
		return RecurrenceGroup{}, nil, fmt.Errorf("room %q: %w", in.RoomName, ErrNotFound)
	}

	record := &groupRecord{
		ID:      m.newGroupID(),
		RoomKey: key,
		Weekday: in.Weekday,
		Period:  in.Period,
		Start:   in.Start,
		End:     end,
		From:    in.From,
		Until:   in.Until,
		RRule:   rrule,
	}

	var recs []slotRecord
	vErr := &ValidationError{}
	for occ := range occurrences {
		m.checkWindow(vErr, "until", occ.Date)
		recs = append(recs, slotRecord{Date: occ.Date, Start: occ.Start, End: occ.End, RoomKey: key, GroupID: record.ID})
	}
	if err = vErr.errOrNil(); err != nil {
		return RecurrenceGroup{}, nil, err
	}
	if len(recs) == 0 {
		return RecurrenceGroup{RoomName: in.RoomName, Weekday: in.Weekday, Period: in.Period,
			Start: in.Start, End: end, From: in.From, Until: in.Until, RRule: rrule}, nil, nil
	}

	if err = m.slots.bookMany(recs, record); err != nil {
		return RecurrenceGroup{}, nil, err
	}
	m.revision++
	return m.slots.materializeGroup(record), m.slots.materializeAll(recs), nil
}

// DeleteSlot removes the slot identified by date, time window and room.
func (m *ScheduleManager) DeleteSlot(ctx context.Context, in SlotInput) (err error) {
	logger := m.loggerWith(ctx, "DeleteSlot", "room", in.RoomName, "date", in.Date)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "slot deleted")
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.identify(in)
	if err != nil {
		return err
	}
	if _, err = m.slots.delete(rec); err != nil {
		return err
	}
	m.revision++
	return nil
}

// MoveSlot deletes from and books to. Both inputs are validated and both
// rooms resolved before anything changes, but when booking to fails the
// deleted slot is not restored. Callers needing atomicity check Availability
// first.
func (m *ScheduleManager) MoveSlot(ctx context.Context, from, to SlotInput) (slot Slot, err error) {
	logger := m.loggerWith(ctx, "MoveSlot", "room", from.RoomName, "date", from.Date)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to move slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "slot moved", "new_room", slot.Room.Name, "new_date", slot.Date)
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	oldRec, err := m.identify(from)
	if err != nil {
		return Slot{}, err
	}
	newRec, err := m.recordFor(to)
	if err != nil {
		return Slot{}, err
	}

	if _, err = m.slots.delete(oldRec); err != nil {
		return Slot{}, err
	}
	m.revision++
	if err = m.slots.book(newRec); err != nil {
		return Slot{}, fmt.Errorf("slot removed but not rebooked: %w", err)
	}
	return m.slots.materialize(newRec), nil
}

// CancelRecurrence removes every remaining slot of the recurrence group and
// returns how many were removed.
func (m *ScheduleManager) CancelRecurrence(ctx context.Context, groupID string) (removed int, err error) {
	logger := m.loggerWith(ctx, "CancelRecurrence", "group_id", groupID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel recurrence", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "recurrence cancelled", "removed_slots", removed)
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed, err = m.slots.removeGroup(groupID)
	if err != nil {
		return 0, err
	}
	m.revision++
	return removed, nil
}

// Group returns the recurrence group with the given id.
func (m *ScheduleManager) Group(ctx context.Context, groupID string) (RecurrenceGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	group, ok := m.slots.group(groupID)
	if !ok {
		return RecurrenceGroup{}, fmt.Errorf("recurrence %q: %w", groupID, ErrNotFound)
	}
	return m.slots.materializeGroup(group), nil
}

// Groups returns every live recurrence group.
func (m *ScheduleManager) Groups(ctx context.Context) []RecurrenceGroup {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.slots.groupRecords()
	groups := make([]RecurrenceGroup, len(records))
	for i, record := range records {
		groups[i] = m.slots.materializeGroup(record)
	}
	return groups
}

// Availability returns the booked slots colliding with the candidate. An
// empty result means the candidate can be booked.
func (m *ScheduleManager) Availability(ctx context.Context, in SlotInput) ([]Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, err := m.identify(in)
	if err != nil {
		return nil, err
	}
	return m.slots.materializeAll(m.slots.collisions(rec)), nil
}

// AvailabilityByFields parses the raw fields and delegates to Availability.
func (m *ScheduleManager) AvailabilityByFields(ctx context.Context, date, start, end, roomName string) ([]Slot, error) {
	in, err := NewSlotBuilder().
		DateString(date).
		StartString(start).
		EndString(end).
		Room(roomName).
		Build()
	if err != nil {
		return nil, err
	}
	return m.Availability(ctx, in)
}

// Search returns the slots matching criteria in chronological order.
func (m *ScheduleManager) Search(ctx context.Context, criteria SearchCriteria, order SortOrder) []Slot {
	m.mu.RLock()
	slots := m.slots.materializeAll(m.slots.records())
	m.mu.RUnlock()

	return SortSlots(Filter(slots, criteria.SlotPredicate()), order)
}

// Schedule returns the slots starting within [from, to) in ascending order.
func (m *ScheduleManager) Schedule(ctx context.Context, from, to calendar.Date) ([]Slot, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, invalidField("to", "to must not be before from")
	}
	builder := NewCriteriaBuilder()
	if !from.IsZero() {
		builder.From(from)
	}
	if !to.IsZero() {
		builder.Until(to)
	}
	return m.Search(ctx, builder.Build(), Ascending), nil
}

// WholeSchedule returns every booked slot in ascending order.
func (m *ScheduleManager) WholeSchedule(ctx context.Context) []Slot {
	return m.Search(ctx, SearchCriteria{}, Ascending)
}

// Snapshot copies the current rooms, slots and groups. Slots keep booking order.
func (m *ScheduleManager) Snapshot(ctx context.Context) Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	groups := m.slots.groupRecords()
	snapshot := Snapshot{
		Rooms:    m.rooms.Lookup(RoomQuery{}),
		Slots:    m.slots.materializeAll(m.slots.records()),
		Groups:   make([]RecurrenceGroup, len(groups)),
		Revision: m.revision,
	}
	for i, group := range groups {
		snapshot.Groups[i] = m.slots.materializeGroup(group)
	}
	return snapshot
}

// recordFor validates in and converts it to a storable record. Callers hold the lock.
func (m *ScheduleManager) recordFor(in SlotInput) (slotRecord, error) {
	vErr := validateSlotInput(in)
	m.checkWindow(vErr, "date", in.Date)
	if err := vErr.errOrNil(); err != nil {
		return slotRecord{}, err
	}
	key, ok := m.rooms.keyOf(in.RoomName)
	if !ok {
		return slotRecord{}, fmt.Errorf("room %q: %w", in.RoomName, ErrNotFound)
	}
	return slotRecord{Date: in.Date, Start: in.Start, End: in.EndTime(), RoomKey: key}, nil
}

// identify is recordFor without the window check, for addressing existing slots.
func (m *ScheduleManager) identify(in SlotInput) (slotRecord, error) {
	if err := validateSlotInput(in).errOrNil(); err != nil {
		return slotRecord{}, err
	}
	key, ok := m.rooms.keyOf(in.RoomName)
	if !ok {
		return slotRecord{}, fmt.Errorf("room %q: %w", in.RoomName, ErrNotFound)
	}
	return slotRecord{Date: in.Date, Start: in.Start, End: in.EndTime(), RoomKey: key}, nil
}

func (m *ScheduleManager) checkWindow(vErr *ValidationError, field string, date calendar.Date) {
	if date.IsZero() {
		return
	}
	if !m.window.from.IsZero() && date.Before(m.window.from) {
		vErr.add(field, fmt.Sprintf("date %s is before the schedule window starting %s", date, m.window.from))
	}
	if !m.window.until.IsZero() && date.After(m.window.until) {
		vErr.add(field, fmt.Sprintf("date %s is after the schedule window ending %s", date, m.window.until))
	}
}

func roomsByName(rooms []Room) map[string]Room {
	known := make(map[string]Room, len(rooms))
	for _, room := range rooms {
		known[room.Name] = room
	}
	return known
}

func containsRoom(rooms []Room, name string) bool {
	return slices.ContainsFunc(rooms, func(room Room) bool { return room.Name == name })
}
