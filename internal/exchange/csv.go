package exchange

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"slices"

	"github.com/gocarina/gocsv"

	"github.com/example/room-scheduler/internal/application"
)

// CSVCodec reads and writes rooms and slots as comma separated values with a
// header line.
type CSVCodec struct{}

// EncodeSlots renders slots with the columns date, start, end, duration, room
// and group_id. A non-empty fields list keeps only the named columns in the
// given order.
func (CSVCodec) EncodeSlots(slots []application.Slot, fields []string) ([]byte, error) {
	if err := checkFields(fields, slotFields); err != nil {
		return nil, err
	}
	rows := make([]slotRow, len(slots))
	for i, slot := range slots {
		rows[i] = newSlotRow(slot)
	}
	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("encode slots: %w", err)
	}
	if len(fields) == 0 {
		return data, nil
	}
	return project(data, fields)
}

// DecodeSlots parses slot rows. Rows naming a room outside known are rejected.
func (CSVCodec) DecodeSlots(data []byte, known map[string]application.Room) ([]application.Slot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var rows []slotRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, &ImportError{Reason: "malformed csv", Err: err}
	}
	slots := make([]application.Slot, 0, len(rows))
	for i, row := range rows {
		slot, err := row.toSlot(i+2, known)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// EncodeRooms renders rooms with the fixed columns name, capacity, computers
// and projector followed by one column per attribute name.
func (CSVCodec) EncodeRooms(rooms []application.Room, fields []string) ([]byte, error) {
	columns := roomColumns(rooms)
	if len(fields) > 0 {
		if err := checkFields(fields, columns); err != nil {
			return nil, err
		}
		columns = fields
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("encode rooms: %w", err)
	}
	record := make([]string, len(columns))
	for _, room := range rooms {
		for i, column := range columns {
			record[i] = roomValue(room, column)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("encode rooms: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode rooms: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeRooms parses room rows. Columns other than the fixed ones become room
// attributes. An empty capacity cell leaves the capacity unspecified.
func (CSVCodec) DecodeRooms(data []byte) ([]application.Room, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	records, err := gocsv.CSVToMaps(bytes.NewReader(data))
	if err != nil {
		return nil, &ImportError{Reason: "malformed csv", Err: err}
	}
	rooms := make([]application.Room, 0, len(records))
	for i, values := range records {
		room, err := roomFromValues(i+2, values)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// project keeps the named columns of a CSV document.
func project(data []byte, fields []string) ([]byte, error) {
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("project columns: %w", err)
	}
	if len(records) == 0 {
		return data, nil
	}
	header := records[0]
	index := make([]int, len(fields))
	for i, field := range fields {
		index[i] = slices.Index(header, field)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	out := make([]string, len(fields))
	for _, record := range records {
		for i, col := range index {
			out[i] = ""
			if col >= 0 && col < len(record) {
				out[i] = record[col]
			}
		}
		if err := w.Write(out); err != nil {
			return nil, fmt.Errorf("project columns: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("project columns: %w", err)
	}
	return buf.Bytes(), nil
}
