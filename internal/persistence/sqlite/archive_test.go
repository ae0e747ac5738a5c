package sqlite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/calendar"
	"github.com/example/room-scheduler/internal/exchange"
	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/scheduler"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestArchive(t *testing.T) *Archive {
	t.Helper()

	path := filepath.Join(t.TempDir(), "archive", "scheduler.db")
	fixed := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	archive, err := Open(context.Background(), TempFileConfig(path), WithLogger(discard), WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = archive.Close() })
	return archive
}

func newManager() *application.ScheduleManager {
	rooms := application.NewRoomRegistry()
	n := 0
	return application.NewScheduleManager(rooms, application.NewSlotStore(rooms, scheduler.PolicySameRoom),
		application.WithLogger(discard),
		application.WithGroupIDGenerator(func() string {
			n++
			return "group-" + strconv.Itoa(n)
		}),
	)
}

func TestArchive_EmptyUntilSaved(t *testing.T) {
	ctx := context.Background()
	archive := newTestArchive(t)

	empty, err := archive.Empty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	_, _, err = archive.LastSaved(ctx)
	assert.True(t, errors.Is(err, persistence.ErrNotFound))

	rooms, err := archive.Rooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestArchive_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	archive := newTestArchive(t)

	source := newManager()
	require.NoError(t, source.AddRoom(ctx, application.Room{Name: "Lab", Capacity: 24, HasComputers: true, Attributes: map[string]string{"floor": "3"}}))
	require.NoError(t, source.AddRoom(ctx, application.Room{Name: "Hall", Capacity: application.CapacityUnspecified, HasProjector: true}))

	monday := calendar.NewDate(2024, time.January, 1)
	_, err := source.Book(ctx, application.SlotInput{
		Date: monday, Start: calendar.MustTimeOfDay(9, 0), End: calendar.MustTimeOfDay(10, 0), RoomName: "Hall",
	})
	require.NoError(t, err)
	group, booked, err := source.BookRecurring(ctx, application.RecurrenceInput{
		Weekday:  time.Tuesday,
		Period:   1,
		Start:    calendar.MustTimeOfDay(14, 0),
		End:      calendar.MustTimeOfDay(15, 30),
		From:     monday,
		Until:    monday.AddDays(20),
		RoomName: "Lab",
	})
	require.NoError(t, err)
	require.Len(t, booked, 3)

	snap := source.Snapshot(ctx)
	require.NoError(t, archive.SaveSnapshot(ctx, snap))

	revision, savedAt, err := archive.LastSaved(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Revision, revision)
	assert.Equal(t, 2024, savedAt.Year())

	restored := newManager()
	n, err := restored.ImportRooms(ctx, archive)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = restored.ImportSlots(ctx, archive)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	lab, err := restored.GetRoom(ctx, "Lab")
	require.NoError(t, err)
	assert.Equal(t, "3", lab.Attributes["floor"])
	assert.True(t, lab.HasComputers)
	hall, err := restored.GetRoom(ctx, "Hall")
	require.NoError(t, err)
	assert.False(t, hall.CapacityKnown())

	assert.Equal(t, source.WholeSchedule(ctx), restored.WholeSchedule(ctx))

	restoredGroup, err := restored.Group(ctx, group.ID)
	require.NoError(t, err)
	assert.Len(t, restoredGroup.Members, 3)
	assert.Equal(t, group.RRule, restoredGroup.RRule)
}

func TestArchive_SaveReplacesPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	archive := newTestArchive(t)

	first := application.Snapshot{
		Rooms:    []application.Room{{Name: "A", Capacity: 4}, {Name: "B", Capacity: 8}},
		Revision: 1,
	}
	require.NoError(t, archive.SaveSnapshot(ctx, first))

	second := application.Snapshot{
		Rooms:    []application.Room{{Name: "C", Capacity: 2}},
		Revision: 7,
	}
	require.NoError(t, archive.SaveSnapshot(ctx, second))

	rooms, err := archive.Rooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "C", rooms[0].Name)

	revision, _, err := archive.LastSaved(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), revision)
}

func TestArchive_RejectsInconsistentSnapshot(t *testing.T) {
	ctx := context.Background()
	archive := newTestArchive(t)

	good := application.Snapshot{Rooms: []application.Room{{Name: "A", Capacity: 4}}, Revision: 1}
	require.NoError(t, archive.SaveSnapshot(ctx, good))

	bad := application.Snapshot{
		Slots: []application.Slot{{
			Date:  calendar.NewDate(2024, time.January, 1),
			Start: calendar.MustTimeOfDay(9, 0),
			End:   calendar.MustTimeOfDay(10, 0),
			Room:  application.Room{Name: "missing"},
		}},
		Revision: 2,
	}
	err := archive.SaveSnapshot(ctx, bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, persistence.ErrConstraintViolation))

	rooms, err := archive.Rooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 1, "failed save must keep the previous snapshot")
}

func TestArchive_SlotsRequireKnownRooms(t *testing.T) {
	ctx := context.Background()
	archive := newTestArchive(t)

	snap := application.Snapshot{
		Rooms: []application.Room{{Name: "A", Capacity: 4}},
		Slots: []application.Slot{{
			Date:  calendar.NewDate(2024, time.January, 1),
			Start: calendar.MustTimeOfDay(9, 0),
			End:   calendar.MustTimeOfDay(10, 0),
			Room:  application.Room{Name: "A"},
		}},
	}
	require.NoError(t, archive.SaveSnapshot(ctx, snap))

	_, err := archive.Slots(ctx, map[string]application.Room{})
	var importErr *exchange.ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, 1, importErr.Row)
	assert.Equal(t, `unknown room "A"`, importErr.Reason)
	assert.Equal(t, "import", application.ErrorKind(err))
}

func TestErrorMapper(t *testing.T) {
	var mapper ErrorMapper
	assert.Nil(t, mapper.MapError(nil))
	assert.True(t, errors.Is(mapper.MapError(errors.New("UNIQUE constraint failed: rooms.name")), persistence.ErrDuplicate))
	assert.True(t, errors.Is(mapper.MapError(errors.New("database is locked (5) (SQLITE_BUSY)")), persistence.ErrLocked))
	other := errors.New("boom")
	assert.Equal(t, other, mapper.MapError(other))
}

func TestRetryHelper(t *testing.T) {
	helper := NewRetryHelper(RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2})

	calls := 0
	err := helper.WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = helper.WithRetry(context.Background(), func() error {
		calls++
		return errors.New("UNIQUE constraint failed")
	})
	assert.True(t, errors.Is(err, persistence.ErrDuplicate))
	assert.Equal(t, 1, calls)
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, Config{}.validate())
	assert.Error(t, Config{DSN: "x.db", JournalMode: "bogus"}.validate())
	assert.NoError(t, DefaultConfig("x.db").validate())

	assert.Equal(t, "", Config{DSN: ":memory:"}.filePath())
	assert.Equal(t, "data/a.db", Config{DSN: "file:data/a.db?cache=shared"}.filePath())
	assert.Equal(t, "a.db?_pragma=busy_timeout(0)&_pragma=foreign_keys(1)", Config{DSN: "a.db", EnableForeignKeys: true}.dataSourceName())
}
