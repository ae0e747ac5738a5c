package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/calendar"
	"github.com/example/room-scheduler/internal/exchange"
	"github.com/example/room-scheduler/internal/persistence"
)

// Archive stores schedule snapshots in SQLite. Saving replaces the previous
// snapshot; the read methods make the archive usable as an import source for
// rooms, slots and recurrence groups.
type Archive struct {
	pool   *ConnectionPool
	retry  *RetryHelper
	mapper ErrorMapper
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the archive logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock overrides the time source used for bookkeeping columns.
func WithClock(now func() time.Time) Option {
	return func(a *Archive) {
		if now != nil {
			a.now = now
		}
	}
}

// WithRetryConfig overrides the retry policy for locked databases.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(a *Archive) {
		a.retry = NewRetryHelper(cfg)
	}
}

// Open connects to the database described by cfg and applies pending
// migrations.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Archive, error) {
	pool, err := NewConnectionPool(cfg)
	if err != nil {
		return nil, err
	}

	a := &Archive{
		pool:   pool,
		retry:  NewRetryHelper(DefaultRetryConfig()),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "archive")

	if err := a.migrate(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return a, nil
}

// Close releases the underlying connections.
func (a *Archive) Close() error {
	return a.pool.Close()
}

// SaveSnapshot replaces the stored snapshot with snap in one transaction.
func (a *Archive) SaveSnapshot(ctx context.Context, snap application.Snapshot) error {
	err := a.retry.WithRetry(ctx, func() error {
		return a.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			return a.replace(ctx, tx, snap)
		})
	})
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to save snapshot", "error", err)
		return fmt.Errorf("save snapshot: %w", err)
	}
	a.logger.InfoContext(ctx, "snapshot saved",
		"rooms", len(snap.Rooms), "slots", len(snap.Slots), "groups", len(snap.Groups), "revision", snap.Revision)
	return nil
}

func (a *Archive) replace(ctx context.Context, tx *sql.Tx, snap application.Snapshot) error {
	for _, stmt := range []string{
		`DELETE FROM slots`,
		`DELETE FROM recurrence_groups`,
		`DELETE FROM room_attributes`,
		`DELETE FROM rooms`,
		`DELETE FROM archive_meta`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	for i, room := range snap.Rooms {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rooms (name, capacity, has_computers, has_projector, position) VALUES (?, ?, ?, ?, ?)`,
			room.Name, room.Capacity, room.HasComputers, room.HasProjector, i,
		); err != nil {
			return fmt.Errorf("room %q: %w", room.Name, err)
		}
		for name, value := range room.Attributes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO room_attributes (room_name, name, value) VALUES (?, ?, ?)`,
				room.Name, name, value,
			); err != nil {
				return fmt.Errorf("room %q attribute %q: %w", room.Name, name, err)
			}
		}
	}

	for _, group := range snap.Groups {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recurrence_groups (id, room_name, weekday, period, start_minute, end_minute, from_date, until_date, rrule)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			group.ID, group.RoomName, int(group.Weekday), group.Period, int(group.Start), int(group.End),
			group.From.String(), group.Until.String(), group.RRule,
		); err != nil {
			return fmt.Errorf("recurrence %q: %w", group.ID, err)
		}
	}

	for i, slot := range snap.Slots {
		var groupID sql.NullString
		if slot.GroupID != "" {
			groupID = sql.NullString{String: slot.GroupID, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO slots (position, date, start_minute, end_minute, room_name, group_id) VALUES (?, ?, ?, ?, ?, ?)`,
			i, slot.Date.String(), int(slot.Start), int(slot.End), slot.Room.Name, groupID,
		); err != nil {
			return fmt.Errorf("slot %s %s-%s %q: %w", slot.Date, slot.Start, slot.End, slot.Room.Name, err)
		}
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO archive_meta (id, revision, saved_at) VALUES (1, ?, ?)`,
		int64(snap.Revision), a.now().UTC().Format(time.RFC3339))
	return err
}

// LastSaved reports the revision and time of the stored snapshot. It returns
// persistence.ErrNotFound when nothing has been saved yet.
func (a *Archive) LastSaved(ctx context.Context) (uint64, time.Time, error) {
	var (
		revision int64
		savedAt  string
	)
	err := a.pool.DB().QueryRowContext(ctx, `SELECT revision, saved_at FROM archive_meta WHERE id = 1`).Scan(&revision, &savedAt)
	if err != nil {
		return 0, time.Time{}, a.mapper.MapError(err)
	}
	at, err := time.Parse(time.RFC3339, savedAt)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("parse saved_at %q: %w", savedAt, err)
	}
	return uint64(revision), at, nil
}

// Rooms implements application.RoomSource.
func (a *Archive) Rooms(ctx context.Context) ([]application.Room, error) {
	var rooms []application.Room
	err := a.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT name, capacity, has_computers, has_projector FROM rooms ORDER BY position`)
		if err != nil {
			return err
		}
		defer rows.Close()

		index := make(map[string]int)
		for rows.Next() {
			var room application.Room
			if err := rows.Scan(&room.Name, &room.Capacity, &room.HasComputers, &room.HasProjector); err != nil {
				return err
			}
			index[room.Name] = len(rooms)
			rooms = append(rooms, room)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		attrs, err := tx.QueryContext(ctx, `SELECT room_name, name, value FROM room_attributes`)
		if err != nil {
			return err
		}
		defer attrs.Close()
		for attrs.Next() {
			var roomName, name, value string
			if err := attrs.Scan(&roomName, &name, &value); err != nil {
				return err
			}
			i, ok := index[roomName]
			if !ok {
				continue
			}
			if rooms[i].Attributes == nil {
				rooms[i].Attributes = make(map[string]string)
			}
			rooms[i].Attributes[name] = value
		}
		return attrs.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", a.mapper.MapError(err))
	}
	return rooms, nil
}

// Slots implements application.SlotSource. Rows naming a room outside known
// fail with an *exchange.ImportError, as file imports do.
func (a *Archive) Slots(ctx context.Context, known map[string]application.Room) ([]application.Slot, error) {
	rows, err := a.pool.DB().QueryContext(ctx,
		`SELECT date, start_minute, end_minute, room_name, group_id FROM slots ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", a.mapper.MapError(err))
	}
	defer rows.Close()

	var slots []application.Slot
	row := 0
	for rows.Next() {
		row++
		var (
			date, roomName string
			start, end     int
			groupID        sql.NullString
		)
		if err := rows.Scan(&date, &start, &end, &roomName, &groupID); err != nil {
			return nil, fmt.Errorf("load slots: %w", err)
		}
		d, err := calendar.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("load slots: %w", err)
		}
		room, ok := known[roomName]
		if !ok {
			return nil, &exchange.ImportError{Row: row, Reason: "unknown room " + strconv.Quote(roomName)}
		}
		slots = append(slots, application.Slot{
			Date:    d,
			Start:   calendar.TimeOfDay(start),
			End:     calendar.TimeOfDay(end),
			Room:    room,
			GroupID: groupID.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	return slots, nil
}

// Groups implements application.GroupSource.
func (a *Archive) Groups(ctx context.Context) ([]application.RecurrenceGroup, error) {
	rows, err := a.pool.DB().QueryContext(ctx,
		`SELECT id, room_name, weekday, period, start_minute, end_minute, from_date, until_date, rrule
		 FROM recurrence_groups ORDER BY from_date, id`)
	if err != nil {
		return nil, fmt.Errorf("load recurrence groups: %w", a.mapper.MapError(err))
	}
	defer rows.Close()

	var groups []application.RecurrenceGroup
	for rows.Next() {
		var (
			group               application.RecurrenceGroup
			weekday, start, end int
			from, until         string
		)
		if err := rows.Scan(&group.ID, &group.RoomName, &weekday, &group.Period, &start, &end, &from, &until, &group.RRule); err != nil {
			return nil, fmt.Errorf("load recurrence groups: %w", err)
		}
		group.Weekday = time.Weekday(weekday)
		group.Start = calendar.TimeOfDay(start)
		group.End = calendar.TimeOfDay(end)
		if group.From, err = calendar.ParseDate(from); err != nil {
			return nil, fmt.Errorf("recurrence %q: %w", group.ID, err)
		}
		if group.Until, err = calendar.ParseDate(until); err != nil {
			return nil, fmt.Errorf("recurrence %q: %w", group.ID, err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load recurrence groups: %w", err)
	}
	return groups, nil
}

// Empty reports whether no snapshot has been saved yet.
func (a *Archive) Empty(ctx context.Context) (bool, error) {
	_, _, err := a.LastSaved(ctx)
	if errors.Is(err, persistence.ErrNotFound) {
		return true, nil
	}
	return false, err
}
