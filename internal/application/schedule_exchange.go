package application

import (
	"context"
	"fmt"
)

// ImportRooms registers every room produced by src. The batch is rejected as
// a whole when any room is invalid or its name is already taken.
func (m *ScheduleManager) ImportRooms(ctx context.Context, src RoomSource) (imported int, err error) {
	logger := m.loggerWith(ctx, "ImportRooms")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to import rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "rooms imported", "rooms", imported)
	}()

	rooms, err := src.Rooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("read rooms: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	accepted := make([]Room, 0, len(rooms))
	for i, room := range rooms {
		normalized, vErr := normalizeRoom(room)
		if vErr.HasErrors() {
			return 0, fmt.Errorf("room #%d: %w", i+1, vErr)
		}
		if m.rooms.Has(normalized.Name) || containsRoom(accepted, normalized.Name) {
			return 0, fmt.Errorf("room %q: %w", normalized.Name, ErrAlreadyExists)
		}
		accepted = append(accepted, normalized)
	}

	for _, room := range accepted {
		if err = m.rooms.Add(room); err != nil {
			return 0, err
		}
	}
	if len(accepted) > 0 {
		m.revision++
	}
	return len(accepted), nil
}

// ImportSlots books every slot produced by src as one batch. Rooms must be
// registered first. When src also implements GroupSource, slots tagged with a
// known group id are reattached to their recurrence group.
func (m *ScheduleManager) ImportSlots(ctx context.Context, src SlotSource) (imported int, err error) {
	logger := m.loggerWith(ctx, "ImportSlots")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to import slots", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "slots imported", "slots", imported)
	}()

	m.mu.RLock()
	known := roomsByName(m.rooms.Lookup(RoomQuery{}))
	m.mu.RUnlock()
	if len(known) == 0 {
		return 0, invalidField("rooms", "rooms must be imported before slots")
	}

	slots, err := src.Slots(ctx, known)
	if err != nil {
		return 0, fmt.Errorf("read slots: %w", err)
	}
	var groups []RecurrenceGroup
	if gs, ok := src.(GroupSource); ok {
		if groups, err = gs.Groups(ctx); err != nil {
			return 0, fmt.Errorf("read recurrence groups: %w", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]slotRecord, 0, len(slots))
	for i, slot := range slots {
		rec, recErr := m.recordFor(SlotInput{Date: slot.Date, Start: slot.Start, End: slot.End, RoomName: slot.Room.Name})
		if recErr != nil {
			return 0, fmt.Errorf("slot #%d: %w", i+1, recErr)
		}
		rec.GroupID = slot.GroupID
		records = append(records, rec)
	}

	groupRecords, err := m.importedGroups(groups)
	if err != nil {
		return 0, err
	}
	for i := range records {
		if _, ok := groupRecords[records[i].GroupID]; !ok {
			records[i].GroupID = ""
		}
	}

	if err = m.slots.bookMany(records, nil); err != nil {
		return 0, err
	}
	for _, group := range groupRecords {
		m.slots.addGroup(group, records)
	}
	if len(records) > 0 {
		m.revision++
	}
	return len(records), nil
}

func (m *ScheduleManager) importedGroups(groups []RecurrenceGroup) (map[string]*groupRecord, error) {
	out := make(map[string]*groupRecord, len(groups))
	for _, group := range groups {
		if group.ID == "" {
			continue
		}
		if _, exists := m.slots.group(group.ID); exists {
			return nil, fmt.Errorf("recurrence %q: %w", group.ID, ErrAlreadyExists)
		}
		key, ok := m.rooms.keyOf(group.RoomName)
		if !ok {
			return nil, fmt.Errorf("recurrence %q room %q: %w", group.ID, group.RoomName, ErrNotFound)
		}
		out[group.ID] = &groupRecord{
			ID:      group.ID,
			RoomKey: key,
			Weekday: group.Weekday,
			Period:  group.Period,
			Start:   group.Start,
			End:     group.End,
			From:    group.From,
			Until:   group.Until,
			RRule:   group.RRule,
		}
	}
	return out, nil
}

// Export renders the slots matching criteria with enc.
func (m *ScheduleManager) Export(ctx context.Context, enc SlotEncoder, criteria SearchCriteria, order SortOrder, fields []string) ([]byte, error) {
	slots := m.Search(ctx, criteria, order)
	data, err := enc.EncodeSlots(slots, fields)
	if err != nil {
		m.loggerWith(ctx, "Export").ErrorContext(ctx, "failed to encode slots", "error", err)
		return nil, fmt.Errorf("encode slots: %w", err)
	}
	return data, nil
}

// ExportRooms renders the rooms matching query with enc.
func (m *ScheduleManager) ExportRooms(ctx context.Context, enc RoomEncoder, query RoomQuery, fields []string) ([]byte, error) {
	data, err := enc.EncodeRooms(m.LookupRooms(ctx, query), fields)
	if err != nil {
		m.loggerWith(ctx, "ExportRooms").ErrorContext(ctx, "failed to encode rooms", "error", err)
		return nil, fmt.Errorf("encode rooms: %w", err)
	}
	return data, nil
}

// ExportToFile renders the matching slots and writes them to path, appending
// when appendMode is set.
func (m *ScheduleManager) ExportToFile(ctx context.Context, w FileWriter, path string, appendMode bool, enc SlotEncoder, criteria SearchCriteria, order SortOrder, fields []string) (err error) {
	logger := m.loggerWith(ctx, "ExportToFile", "path", path, "append", appendMode)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to export schedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "schedule exported")
	}()

	if path == "" {
		return invalidField("path", "path is required")
	}
	data, err := m.Export(ctx, enc, criteria, order, fields)
	if err != nil {
		return err
	}
	if err = w.WriteAll(path, data, appendMode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
