package exchange

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/example/room-scheduler/internal/application"
)

// JSONCodec reads and writes rooms and slots as JSON arrays.
type JSONCodec struct {
	// Indent pretty-prints output when set.
	Indent bool
}

type roomDoc struct {
	Name       string            `json:"name"`
	Capacity   *int              `json:"capacity,omitempty"`
	Computers  bool              `json:"computers"`
	Projector  bool              `json:"projector"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func newRoomDoc(room application.Room) roomDoc {
	doc := roomDoc{
		Name:       room.Name,
		Computers:  room.HasComputers,
		Projector:  room.HasProjector,
		Attributes: room.Attributes,
	}
	if room.CapacityKnown() {
		capacity := room.Capacity
		doc.Capacity = &capacity
	}
	return doc
}

// EncodeSlots renders slots as an array of objects. A non-empty fields list
// keeps only the named keys.
func (c JSONCodec) EncodeSlots(slots []application.Slot, fields []string) ([]byte, error) {
	if err := checkFields(fields, slotFields); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		rows := make([]slotRow, len(slots))
		for i, slot := range slots {
			rows[i] = newSlotRow(slot)
		}
		return c.marshal(rows)
	}

	docs := make([]map[string]string, len(slots))
	for i, slot := range slots {
		row := newSlotRow(slot)
		doc := make(map[string]string, len(fields))
		for _, field := range fields {
			doc[field] = row.get(field)
		}
		docs[i] = doc
	}
	return c.marshal(docs)
}

// DecodeSlots parses an array of slot objects. Rows naming a room outside
// known are rejected.
func (JSONCodec) DecodeSlots(data []byte, known map[string]application.Room) ([]application.Slot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var rows []slotRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &ImportError{Reason: "malformed json", Err: err}
	}
	slots := make([]application.Slot, 0, len(rows))
	for i, row := range rows {
		slot, err := row.toSlot(i+1, known)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// EncodeRooms renders rooms as an array of objects. Field selection accepts
// the fixed keys and attribute names; selected attributes are emitted at the
// top level.
func (c JSONCodec) EncodeRooms(rooms []application.Room, fields []string) ([]byte, error) {
	if len(fields) == 0 {
		docs := make([]roomDoc, len(rooms))
		for i, room := range rooms {
			docs[i] = newRoomDoc(room)
		}
		return c.marshal(docs)
	}
	if err := checkFields(fields, roomColumns(rooms)); err != nil {
		return nil, err
	}

	docs := make([]map[string]any, len(rooms))
	for i, room := range rooms {
		doc := make(map[string]any, len(fields))
		for _, field := range fields {
			switch field {
			case fieldCapacity:
				if room.CapacityKnown() {
					doc[field] = room.Capacity
				} else {
					doc[field] = nil
				}
			case fieldComputers:
				doc[field] = room.HasComputers
			case fieldProjector:
				doc[field] = room.HasProjector
			default:
				doc[field] = roomValue(room, field)
			}
		}
		docs[i] = doc
	}
	return c.marshal(docs)
}

// DecodeRooms parses an array of room objects. A missing capacity leaves it
// unspecified.
func (JSONCodec) DecodeRooms(data []byte) ([]application.Room, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var docs []roomDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, &ImportError{Reason: "malformed json", Err: err}
	}
	rooms := make([]application.Room, 0, len(docs))
	for i, doc := range docs {
		if doc.Name == "" {
			return nil, &ImportError{Row: i + 1, Reason: "room name is required"}
		}
		room := application.Room{
			Name:         doc.Name,
			Capacity:     application.CapacityUnspecified,
			HasComputers: doc.Computers,
			HasProjector: doc.Projector,
			Attributes:   doc.Attributes,
		}
		if doc.Capacity != nil {
			if *doc.Capacity < application.CapacityUnspecified {
				return nil, &ImportError{Row: i + 1, Reason: fmt.Sprintf("invalid capacity %d", *doc.Capacity)}
			}
			room.Capacity = *doc.Capacity
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (c JSONCodec) marshal(v any) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if c.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return append(data, '\n'), nil
}
