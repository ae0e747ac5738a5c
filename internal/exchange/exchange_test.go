package exchange

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/calendar"
)

func sampleSlot(t *testing.T, date, start, end, room string) application.Slot {
	t.Helper()
	d, err := calendar.ParseDate(date)
	require.NoError(t, err)
	s, err := calendar.ParseTimeOfDay(start)
	require.NoError(t, err)
	e, err := calendar.ParseTimeOfDay(end)
	require.NoError(t, err)
	return application.Slot{Date: d, Start: s, End: e, Room: application.Room{Name: room}}
}

func knownRooms(names ...string) map[string]application.Room {
	known := make(map[string]application.Room, len(names))
	for _, name := range names {
		known[name] = application.Room{Name: name, Capacity: application.CapacityUnspecified}
	}
	return known
}

func TestCSVCodec_Slots(t *testing.T) {
	t.Parallel()

	codec := CSVCodec{}
	slot := sampleSlot(t, "2024-01-08", "09:00", "10:30", "A")
	slot.GroupID = "g1"

	data, err := codec.EncodeSlots([]application.Slot{slot}, nil)
	require.NoError(t, err)
	assert.Equal(t, "date,start,end,duration,room,group_id\n2024-01-08,09:00,10:30,90,A,g1\n", string(data))

	projected, err := codec.EncodeSlots([]application.Slot{slot}, []string{"room", "date"})
	require.NoError(t, err)
	assert.Equal(t, "room,date\nA,2024-01-08\n", string(projected))

	_, err = codec.EncodeSlots([]application.Slot{slot}, []string{"colour"})
	var vErr *application.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, `unknown field "colour"`, vErr.FieldErrors["fields"])
	assert.Equal(t, "validation", application.ErrorKind(err))

	decoded, err := codec.DecodeSlots(data, knownRooms("A"))
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, slot.Key(), decoded[0].Key())
	assert.Equal(t, "g1", decoded[0].GroupID)
}

func TestCSVCodec_DecodeSlotsDuration(t *testing.T) {
	t.Parallel()

	input := "date,start,duration,room\n2024-01-08,09:00,45,A\n"
	slots, err := CSVCodec{}.DecodeSlots([]byte(input), knownRooms("A"))
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 45*time.Minute, slots[0].Duration())
}

func TestCSVCodec_DecodeSlotsRejectsRows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		row    int
		reason string
	}{
		{
			name:   "unknown room",
			input:  "date,start,end,room\n2024-01-08,09:00,10:00,A\n2024-01-08,09:00,10:00,Z\n",
			row:    3,
			reason: `unknown room "Z"`,
		},
		{
			name:   "bad date",
			input:  "date,start,end,room\n2024-02-30,09:00,10:00,A\n",
			row:    2,
			reason: `invalid date "2024-02-30"`,
		},
		{
			name:   "end before start",
			input:  "date,start,end,room\n2024-01-08,11:00,10:00,A\n",
			row:    2,
			reason: "end must be after start and not later than 24:00",
		},
		{
			name:   "duration contradicts end",
			input:  "date,start,end,duration,room\n2024-01-08,09:00,10:00,240,A\n",
			row:    2,
			reason: "duration contradicts end time",
		},
		{
			name:   "missing end and duration",
			input:  "date,start,room\n2024-01-08,11:00,A\n",
			row:    2,
			reason: "end or duration is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := CSVCodec{}.DecodeSlots([]byte(tt.input), knownRooms("A"))
			var importErr *ImportError
			require.ErrorAs(t, err, &importErr)
			assert.Equal(t, tt.row, importErr.Row)
			assert.Equal(t, tt.reason, importErr.Reason)
		})
	}
}

func TestCSVCodec_Rooms(t *testing.T) {
	t.Parallel()

	codec := CSVCodec{}
	rooms := []application.Room{
		{Name: "A", Capacity: 10, HasComputers: true, Attributes: map[string]string{"floor": "2"}},
		{Name: "B", Capacity: application.CapacityUnspecified},
	}

	data, err := codec.EncodeRooms(rooms, nil)
	require.NoError(t, err)
	assert.Equal(t, "name,capacity,computers,projector,floor\nA,10,true,false,2\nB,,false,false,\n", string(data))

	decoded, err := codec.DecodeRooms(data)
	require.NoError(t, err)
	assert.Equal(t, rooms, decoded)

	named, err := codec.EncodeRooms(rooms, []string{"name"})
	require.NoError(t, err)
	assert.Equal(t, "name\nA\nB\n", string(named))
}

func TestCSVCodec_DecodeRoomsFlags(t *testing.T) {
	t.Parallel()

	input := "name,capacity,computers,projector\nLab,24,yes,no\nHall,-1,,Y\n"
	rooms, err := CSVCodec{}.DecodeRooms([]byte(input))
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.True(t, rooms[0].HasComputers)
	assert.False(t, rooms[0].HasProjector)
	assert.Equal(t, 24, rooms[0].Capacity)
	assert.False(t, rooms[1].CapacityKnown())
	assert.True(t, rooms[1].HasProjector)

	_, err = CSVCodec{}.DecodeRooms([]byte("name,capacity\nLab,many\n"))
	var importErr *ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, 2, importErr.Row)

	empty, err := CSVCodec{}.DecodeRooms(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestJSONCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := JSONCodec{}
	rooms := []application.Room{
		{Name: "A", Capacity: 10, HasProjector: true},
		{Name: "B", Capacity: application.CapacityUnspecified, Attributes: map[string]string{"wing": "east"}},
	}
	data, err := codec.EncodeRooms(rooms, nil)
	require.NoError(t, err)
	decoded, err := codec.DecodeRooms(data)
	require.NoError(t, err)
	assert.Equal(t, rooms, decoded)

	slot := sampleSlot(t, "2024-01-08", "09:00", "10:00", "A")
	slotData, err := codec.EncodeSlots([]application.Slot{slot}, []string{"date", "room"})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"date":"2024-01-08","room":"A"}]`, string(slotData))

	full, err := codec.EncodeSlots([]application.Slot{slot}, nil)
	require.NoError(t, err)
	slots, err := codec.DecodeSlots(full, knownRooms("A"))
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, slot.Key(), slots[0].Key())

	_, err = codec.DecodeSlots(full, knownRooms("B"))
	var importErr *ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, 1, importErr.Row)
}

func TestJSONCodec_DecodeSlotsEndAndDuration(t *testing.T) {
	t.Parallel()

	agreeing := `[{"date":"2024-01-08","start":"09:00","end":"10:30","duration":"90","room":"A"}]`
	slots, err := JSONCodec{}.DecodeSlots([]byte(agreeing), knownRooms("A"))
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 90*time.Minute, slots[0].Duration())

	contradicting := `[{"date":"2024-01-08","start":"09:00","end":"10:00","duration":"240","room":"A"}]`
	_, err = JSONCodec{}.DecodeSlots([]byte(contradicting), knownRooms("A"))
	var importErr *ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, 1, importErr.Row)
	assert.Equal(t, "duration contradicts end time", importErr.Reason)
}

func TestFormatFor(t *testing.T) {
	t.Parallel()

	codec, err := FormatFor("rooms.CSV")
	require.NoError(t, err)
	assert.IsType(t, CSVCodec{}, codec)

	codec, err = FormatFor("/tmp/slots.json")
	require.NoError(t, err)
	assert.IsType(t, JSONCodec{}, codec)

	_, err = FormatFor("slots.xml")
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestFileSourceAndWriter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	w := FileWriter{}
	require.NoError(t, w.WriteAll(path, []byte("name\nA\n"), false))
	require.NoError(t, w.WriteAll(path, []byte("B\n"), true))

	src, err := NewFileSource(path)
	require.NoError(t, err)
	rooms, err := src.Rooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "B", rooms[1].Name)

	require.NoError(t, w.WriteAll(path, []byte("name\nC\n"), false))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "name\nC\n", string(content))

	missing := &FileSource{Path: filepath.Join(dir, "missing.csv"), Codec: CSVCodec{}}
	_, err = missing.Slots(ctx, knownRooms("A"))
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "read", ioErr.Op)

	err = w.WriteAll(filepath.Join(dir, "no", "such", "dir.csv"), []byte("x"), false)
	require.ErrorAs(t, err, &ioErr)
}
