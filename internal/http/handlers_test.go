package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/testfixtures"
)

type testServer struct {
	manager *application.ScheduleManager
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	m := testfixtures.NewManager()
	logger := testfixtures.DiscardLogger()
	router := NewRouter(RouterConfig{
		Rooms:       NewRoomHandler(m, logger),
		Slots:       NewSlotHandler(m, logger),
		Recurrences: NewRecurrenceHandler(m, logger),
		Exports:     NewExportHandler(m, logger),
		Middleware:  []func(http.Handler) http.Handler{RequestLogger(logger)},
	})
	return &testServer{manager: m, handler: router}
}

func (s *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		data, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRoomHandlers(t *testing.T) {
	t.Parallel()

	t.Run("create and fetch a room", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)

		rec := s.do(t, http.MethodPost, "/rooms", map[string]any{
			"name": " Lab ", "capacity": 24, "computers": true,
			"attributes": map[string]string{"floor": "3"},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		created := decode[roomResponse](t, rec)
		assert.Equal(t, "Lab", created.Room.Name)
		require.NotNil(t, created.Room.Capacity)
		assert.Equal(t, 24, *created.Room.Capacity)

		rec = s.do(t, http.MethodGet, "/rooms/Lab", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "3", decode[roomResponse](t, rec).Room.Attributes["floor"])
	})

	t.Run("unknown capacity is reported as null", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)

		rec := s.do(t, http.MethodPost, "/rooms", map[string]any{"name": "Hall"})
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"capacity":null`)
	})

	t.Run("duplicate names conflict", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		testfixtures.SeedRooms(t, s.manager, testfixtures.Room("Lab", 10))

		rec := s.do(t, http.MethodPost, "/rooms", map[string]any{"name": "Lab"})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "ALREADY_EXISTS", decode[errorResponse](t, rec).ErrorCode)
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)

		rec := s.do(t, http.MethodPost, "/rooms", "{")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errBadRequestBody.Error(), decode[errorResponse](t, rec).Message)
	})

	t.Run("missing room returns 404", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)

		rec := s.do(t, http.MethodGet, "/rooms/Nowhere", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("update keeps the path name when the body omits it", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		testfixtures.SeedRooms(t, s.manager, testfixtures.Room("Lab", 10))

		rec := s.do(t, http.MethodPut, "/rooms/Lab", map[string]any{"capacity": 30, "projector": true})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := decode[roomResponse](t, rec)
		assert.Equal(t, "Lab", updated.Room.Name)
		assert.True(t, updated.Room.Projector)
	})

	t.Run("delete reports removed slots", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		testfixtures.SeedRooms(t, s.manager, testfixtures.Room("Lab", 10))
		testfixtures.Book(t, s.manager, "2024-01-08", "09:00", "10:00", "Lab")
		testfixtures.Book(t, s.manager, "2024-01-09", "09:00", "10:00", "Lab")

		rec := s.do(t, http.MethodDelete, "/rooms/Lab", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 2, decode[removedResponse](t, rec).RemovedSlots)
		assert.Empty(t, s.manager.WholeSchedule(t.Context()))
	})

	t.Run("list filters by capacity and equipment", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		testfixtures.SeedRooms(t, s.manager,
			application.Room{Name: "Small", Capacity: 4},
			application.Room{Name: "Big", Capacity: 40, HasProjector: true},
		)

		rec := s.do(t, http.MethodGet, "/rooms?min_capacity=10&projector=true", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		rooms := decode[listRoomsResponse](t, rec).Rooms
		require.Len(t, rooms, 1)
		assert.Equal(t, "Big", rooms[0].Name)

		rec = s.do(t, http.MethodGet, "/rooms?min_capacity=many", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("unsupported methods answer 405", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)

		rec := s.do(t, http.MethodPatch, "/rooms", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, "GET, POST", rec.Header().Get("Allow"))
	})
}

func TestSlotHandlers(t *testing.T) {
	t.Parallel()

	t.Run("book with duration", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		testfixtures.SeedRooms(t, s.manager, testfixtures.Room("A", 6))

		rec := s.do(t, http.MethodPost, "/slots", slotRequest{Date: "2024-01-08", Start: "09:00", DurationMinutes: "90", Room: "A"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		slot := decode[slotResponse](t, rec).Slot
		assert.Equal(t, "10:30", slot.End)
		assert.Equal(t, 90, slot.DurationMinutes)
	})

	t.Run("conflicting booking returns the existing slot", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		testfixtures.SeedRooms(t, s.manager, testfixtures.Room("A", 6))
		testfixtures.Book(t, s.manager, "2024-01-08", "09:00", "10:00", "A")

		rec := s.do(t, http.MethodPost, "/slots", slotRequest{Date: "2024-01-08", Start: "09:30", End: "11:00", Room: "A"})
		require.Equal(t, http.StatusConflict, rec.Code)
		resp := decode[errorResponse](t, rec)
		assert.Equal(t, "SLOT_CONFLICT", resp.ErrorCode)
		require.NotNil(t, resp.Conflict)
		assert.Equal(t, "09:00", resp.Conflict.Start)
	})

	t.Run("validation errors are localized", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		testfixtures.SeedRooms(t, s.manager, testfixtures.Room("A", 6))

		rec := s.do(t, http.MethodPost, "/slots", slotRequest{Date: "2024-01-08", Start: "10:00", End: "09:00", Room: "A"})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "終了時刻は開始時刻より後である必要があります。", decode[errorResponse](t, rec).Errors["end"])
	})

	t.Run("unknown room returns 404", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)

		rec := s.do(t, http.MethodPost, "/slots", slotRequest{Date: "2024-01-08", Start: "09:00", End: "10:00", Room: "Z"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete and move", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		testfixtures.SeedRooms(t, s.manager, testfixtures.Room("A", 6), testfixtures.Room("B", 6))
		testfixtures.Book(t, s.manager, "2024-01-08", "09:00", "10:00", "A")
		testfixtures.Book(t, s.manager, "2024-01-09", "09:00", "10:00", "A")

		rec := s.do(t, http.MethodPost, "/slots/move", moveRequest{
			From: slotRequest{Date: "2024-01-08", Start: "09:00", End: "10:00", Room: "A"},
			To:   slotRequest{Date: "2024-01-08", Start: "13:00", End: "14:00", Room: "B"},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "B", decode[slotResponse](t, rec).Slot.Room)

		rec = s.do(t, http.MethodDelete, "/slots", slotRequest{Date: "2024-01-09", Start: "09:00", End: "10:00", Room: "A"})
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = s.do(t, http.MethodDelete, "/slots", slotRequest{Date: "2024-01-09", Start: "09:00", End: "10:00", Room: "A"})
		assert.Equal(t, http.StatusNotFound, rec.Code)

		slots := s.manager.WholeSchedule(t.Context())
		require.Len(t, slots, 1)
		assert.Equal(t, "B", slots[0].Room.Name)
	})

	t.Run("availability lists conflicts", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		testfixtures.SeedRooms(t, s.manager, testfixtures.Room("A", 6))
		testfixtures.Book(t, s.manager, "2024-01-08", "09:00", "10:00", "A")

		rec := s.do(t, http.MethodGet, "/availability?date=2024-01-08&start=09:30&duration=60&room=A", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[availabilityResponse](t, rec)
		assert.False(t, resp.Available)
		assert.Len(t, resp.Conflicts, 1)

		rec = s.do(t, http.MethodGet, "/availability?date=2024-01-08&start=10:00&end=11:00&room=A", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode[availabilityResponse](t, rec).Available)
	})

	t.Run("search orders and filters", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		testfixtures.SeedRooms(t, s.manager, testfixtures.Room("A", 6), testfixtures.Room("B", 20))
		testfixtures.Book(t, s.manager, "2024-01-08", "09:00", "10:00", "A")
		testfixtures.Book(t, s.manager, "2024-01-09", "09:00", "10:00", "B")
		testfixtures.Book(t, s.manager, "2024-01-10", "09:00", "10:00", "B")

		rec := s.do(t, http.MethodGet, "/slots?min_capacity=10&order=desc", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		slots := decode[listSlotsResponse](t, rec).Slots
		require.Len(t, slots, 2)
		assert.Equal(t, "2024-01-10", slots[0].Date)
		assert.Equal(t, "2024-01-09", slots[1].Date)

		rec = s.do(t, http.MethodGet, "/slots?order=sideways", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("schedule range and whole schedule", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		testfixtures.SeedRooms(t, s.manager, testfixtures.Room("A", 6))
		testfixtures.Book(t, s.manager, "2024-01-08", "09:00", "10:00", "A")
		testfixtures.Book(t, s.manager, "2024-01-09", "09:00", "10:00", "A")

		rec := s.do(t, http.MethodGet, "/schedule?from=2024-01-08&to=2024-01-09", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[listSlotsResponse](t, rec).Slots, 1)

		rec = s.do(t, http.MethodGet, "/schedule", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[listSlotsResponse](t, rec).Slots, 2)

		rec = s.do(t, http.MethodGet, "/schedule?from=2024-01-08", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("free slots honour the minimum duration", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		testfixtures.SeedRooms(t, s.manager, testfixtures.Room("A", 6))
		testfixtures.Book(t, s.manager, "2024-01-08", "08:30", "19:30", "A")

		rec := s.do(t, http.MethodGet, "/free-slots?from=2024-01-08&until=2024-01-08", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		free := decode[freeSlotsResponse](t, rec).FreeSlots
		require.Len(t, free, 2)
		assert.Equal(t, 30, free[0].Minutes)

		rec = s.do(t, http.MethodGet, "/free-slots?from=2024-01-08&until=2024-01-08&min_duration=45", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode[freeSlotsResponse](t, rec).FreeSlots)
	})
}

func TestRecurrenceHandlers(t *testing.T) {
	t.Parallel()

	t.Run("book, fetch and cancel a recurrence", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		testfixtures.SeedRooms(t, s.manager, testfixtures.Room("A", 6))

		rec := s.do(t, http.MethodPost, "/recurrences", recurrenceRequest{
			Weekday: "tuesday", Period: 1, Start: "14:00", End: "15:00",
			From: "2024-01-01", Until: "2024-01-31", Room: "A",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		created := decode[recurrenceResponse](t, rec)
		require.NotNil(t, created.Group)
		assert.Equal(t, "group-1", created.Group.ID)
		assert.Len(t, created.Slots, 5)
		assert.Len(t, created.Group.Members, 5)

		rec = s.do(t, http.MethodGet, "/recurrences/group-1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Tuesday", decode[groupResponse](t, rec).Group.Weekday)

		rec = s.do(t, http.MethodGet, "/recurrences", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[listGroupsResponse](t, rec).Groups, 1)

		rec = s.do(t, http.MethodDelete, "/recurrences/group-1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 5, decode[removedResponse](t, rec).RemovedSlots)

		rec = s.do(t, http.MethodGet, "/recurrences/group-1", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("a colliding occurrence books nothing", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		testfixtures.SeedRooms(t, s.manager, testfixtures.Room("A", 6))
		testfixtures.Book(t, s.manager, "2024-01-16", "14:30", "15:30", "A")

		rec := s.do(t, http.MethodPost, "/recurrences", recurrenceRequest{
			Weekday: "tuesday", Period: 1, Start: "14:00", DurationMinutes: "60",
			From: "2024-01-01", Until: "2024-01-31", Room: "A",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Len(t, s.manager.WholeSchedule(t.Context()), 1)
	})

	t.Run("range without the weekday yields no group", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		testfixtures.SeedRooms(t, s.manager, testfixtures.Room("A", 6))

		rec := s.do(t, http.MethodPost, "/recurrences", recurrenceRequest{
			Weekday: "sunday", Period: 1, Start: "14:00", End: "15:00",
			From: "2024-01-01", Until: "2024-01-05", Room: "A",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		created := decode[recurrenceResponse](t, rec)
		assert.Nil(t, created.Group)
		assert.Empty(t, created.Slots)
	})

	t.Run("invalid weekday is a validation error", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)

		rec := s.do(t, http.MethodPost, "/recurrences", recurrenceRequest{
			Weekday: "someday", Period: 1, Start: "14:00", End: "15:00",
			From: "2024-01-01", Until: "2024-01-05", Room: "A",
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decode[errorResponse](t, rec).Errors, "weekday")
	})
}

func TestExportHandlers(t *testing.T) {
	t.Parallel()

	t.Run("csv schedule with field projection", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		testfixtures.SeedRooms(t, s.manager, testfixtures.Room("A", 6))
		testfixtures.Book(t, s.manager, "2024-01-08", "09:00", "10:30", "A")

		rec := s.do(t, http.MethodGet, "/export/slots?fields=date,room", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, "date,room\n2024-01-08,A\n", rec.Body.String())
	})

	t.Run("json rooms", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)
		testfixtures.SeedRooms(t, s.manager, testfixtures.Room("A", 6))

		rec := s.do(t, http.MethodGet, "/export/rooms?format=json", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "rooms.json")
		assert.True(t, strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "["))
	})

	t.Run("unknown format and unknown field", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t)

		rec := s.do(t, http.MethodGet, "/export/slots?format=xml", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = s.do(t, http.MethodGet, "/export/slots?fields=colour", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decode[errorResponse](t, rec).Errors, "fields")
	})
}
