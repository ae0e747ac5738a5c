package exchange

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/calendar"
)

// Column names shared by the CSV and JSON formats.
const (
	fieldDate      = "date"
	fieldStart     = "start"
	fieldEnd       = "end"
	fieldDuration  = "duration"
	fieldRoom      = "room"
	fieldGroupID   = "group_id"
	fieldName      = "name"
	fieldCapacity  = "capacity"
	fieldComputers = "computers"
	fieldProjector = "projector"
)

var (
	slotFields = []string{fieldDate, fieldStart, fieldEnd, fieldDuration, fieldRoom, fieldGroupID}
	roomFields = []string{fieldName, fieldCapacity, fieldComputers, fieldProjector}
)

// slotRow is the textual form of a slot.
type slotRow struct {
	Date     string `csv:"date" json:"date"`
	Start    string `csv:"start" json:"start"`
	End      string `csv:"end" json:"end"`
	Duration string `csv:"duration" json:"duration"`
	Room     string `csv:"room" json:"room"`
	GroupID  string `csv:"group_id" json:"group_id,omitempty"`
}

func newSlotRow(slot application.Slot) slotRow {
	return slotRow{
		Date:     slot.Date.String(),
		Start:    slot.Start.String(),
		End:      slot.End.String(),
		Duration: strconv.Itoa(int(slot.Duration() / time.Minute)),
		Room:     slot.Room.Name,
		GroupID:  slot.GroupID,
	}
}

func (r slotRow) get(field string) string {
	switch field {
	case fieldDate:
		return r.Date
	case fieldStart:
		return r.Start
	case fieldEnd:
		return r.End
	case fieldDuration:
		return r.Duration
	case fieldRoom:
		return r.Room
	case fieldGroupID:
		return r.GroupID
	default:
		return ""
	}
}

// toSlot converts a row into a slot referencing a known room. The end comes
// from the end column, from start plus duration minutes, or from both when
// they agree.
func (r slotRow) toSlot(row int, known map[string]application.Room) (application.Slot, error) {
	date, err := calendar.ParseDate(r.Date)
	if err != nil {
		return application.Slot{}, &ImportError{Row: row, Reason: "invalid date " + strconv.Quote(r.Date), Err: err}
	}
	start, err := calendar.ParseTimeOfDay(r.Start)
	if err != nil {
		return application.Slot{}, &ImportError{Row: row, Reason: "invalid start " + strconv.Quote(r.Start), Err: err}
	}

	hasEnd := strings.TrimSpace(r.End) != ""
	hasDuration := strings.TrimSpace(r.Duration) != ""
	if !hasEnd && !hasDuration {
		return application.Slot{}, &ImportError{Row: row, Reason: "end or duration is required"}
	}

	var end calendar.TimeOfDay
	if hasEnd {
		if end, err = calendar.ParseTimeOfDay(r.End); err != nil {
			return application.Slot{}, &ImportError{Row: row, Reason: "invalid end " + strconv.Quote(r.End), Err: err}
		}
	}
	if hasDuration {
		minutes, convErr := strconv.Atoi(strings.TrimSpace(r.Duration))
		if convErr != nil || minutes <= 0 {
			return application.Slot{}, &ImportError{Row: row, Reason: "invalid duration " + strconv.Quote(r.Duration), Err: convErr}
		}
		derived := start.Add(time.Duration(minutes) * time.Minute)
		if hasEnd && derived != end {
			return application.Slot{}, &ImportError{Row: row, Reason: "duration contradicts end time"}
		}
		end = derived
	}
	if !end.Valid() || end <= start {
		return application.Slot{}, &ImportError{Row: row, Reason: "end must be after start and not later than 24:00"}
	}

	name := strings.TrimSpace(r.Room)
	room, ok := known[name]
	if !ok {
		return application.Slot{}, &ImportError{Row: row, Reason: "unknown room " + strconv.Quote(name)}
	}

	return application.Slot{
		Date:    date,
		Start:   start,
		End:     end,
		Room:    room,
		GroupID: strings.TrimSpace(r.GroupID),
	}, nil
}

// roomColumns returns the fixed room columns followed by the sorted union of
// attribute names.
func roomColumns(rooms []application.Room) []string {
	columns := slices.Clone(roomFields)
	var extra []string
	for _, room := range rooms {
		for name := range room.Attributes {
			if !slices.Contains(extra, name) && !slices.Contains(roomFields, name) {
				extra = append(extra, name)
			}
		}
	}
	slices.Sort(extra)
	return append(columns, extra...)
}

func roomValue(room application.Room, column string) string {
	switch column {
	case fieldName:
		return room.Name
	case fieldCapacity:
		if !room.CapacityKnown() {
			return ""
		}
		return strconv.Itoa(room.Capacity)
	case fieldComputers:
		return strconv.FormatBool(room.HasComputers)
	case fieldProjector:
		return strconv.FormatBool(room.HasProjector)
	default:
		return room.Attributes[column]
	}
}

// roomFromValues builds a room from a column map. Unknown columns become
// attributes; empty attribute cells are skipped.
func roomFromValues(row int, values map[string]string) (application.Room, error) {
	room := application.Room{Capacity: application.CapacityUnspecified}
	for column, raw := range values {
		value := strings.TrimSpace(raw)
		switch strings.ToLower(strings.TrimSpace(column)) {
		case fieldName:
			room.Name = value
		case fieldCapacity:
			if value == "" {
				continue
			}
			capacity, err := strconv.Atoi(value)
			if err != nil || capacity < application.CapacityUnspecified {
				return application.Room{}, &ImportError{Row: row, Reason: "invalid capacity " + strconv.Quote(value), Err: err}
			}
			room.Capacity = capacity
		case fieldComputers:
			flag, err := parseFlag(value)
			if err != nil {
				return application.Room{}, &ImportError{Row: row, Reason: "invalid computers flag " + strconv.Quote(value), Err: err}
			}
			room.HasComputers = flag
		case fieldProjector:
			flag, err := parseFlag(value)
			if err != nil {
				return application.Room{}, &ImportError{Row: row, Reason: "invalid projector flag " + strconv.Quote(value), Err: err}
			}
			room.HasProjector = flag
		default:
			if value == "" {
				continue
			}
			if room.Attributes == nil {
				room.Attributes = make(map[string]string)
			}
			room.Attributes[strings.TrimSpace(column)] = value
		}
	}
	if room.Name == "" {
		return application.Room{}, &ImportError{Row: row, Reason: "room name is required"}
	}
	return room, nil
}

func parseFlag(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "", "no", "n":
		return false, nil
	case "yes", "y":
		return true, nil
	default:
		return strconv.ParseBool(value)
	}
}

// checkFields rejects export projections naming a column the output lacks.
func checkFields(fields, allowed []string) error {
	for _, field := range fields {
		if !slices.Contains(allowed, field) {
			return &application.ValidationError{
				FieldErrors: map[string]string{"fields": "unknown field " + strconv.Quote(field)},
			}
		}
	}
	return nil
}
