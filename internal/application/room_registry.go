package application

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// RoomRegistry owns the set of rooms. Every room carries an internal key that
// survives renames so slots keep referencing the same room identity.
//
// A RoomRegistry is not safe for concurrent use; ScheduleManager serializes access.
type RoomRegistry struct {
	keys   map[string]string // name -> key
	rooms  map[string]Room   // key -> room
	newKey func() string
}

// NewRoomRegistry constructs an empty registry.
func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		keys:   make(map[string]string),
		rooms:  make(map[string]Room),
		newKey: uuid.NewString,
	}
}

// Add registers a new room.
func (r *RoomRegistry) Add(room Room) error {
	room, vErr := normalizeRoom(room)
	if vErr.HasErrors() {
		return vErr
	}
	if _, exists := r.keys[room.Name]; exists {
		return fmt.Errorf("room %q: %w", room.Name, ErrAlreadyExists)
	}

	key := r.newKey()
	r.keys[room.Name] = key
	r.rooms[key] = room.Clone()
	return nil
}

// Update replaces the properties of the room called name. A rename must not
// collide with another registered room.
func (r *RoomRegistry) Update(name string, room Room) error {
	key, ok := r.keys[name]
	if !ok {
		return fmt.Errorf("room %q: %w", name, ErrNotFound)
	}
	room, vErr := normalizeRoom(room)
	if vErr.HasErrors() {
		return vErr
	}
	if room.Name != name {
		if _, taken := r.keys[room.Name]; taken {
			return fmt.Errorf("cannot rename room %q to %q: %w", name, room.Name, ErrAlreadyExists)
		}
		delete(r.keys, name)
		r.keys[room.Name] = key
	}
	r.rooms[key] = room.Clone()
	return nil
}

// Delete removes the room called name and returns its internal key so that
// the caller can cascade into the slot store.
func (r *RoomRegistry) Delete(name string) (string, error) {
	key, ok := r.keys[name]
	if !ok {
		return "", fmt.Errorf("room %q: %w", name, ErrNotFound)
	}
	delete(r.keys, name)
	delete(r.rooms, key)
	return key, nil
}

// Get returns a copy of the room called name.
func (r *RoomRegistry) Get(name string) (Room, bool) {
	key, ok := r.keys[name]
	if !ok {
		return Room{}, false
	}
	return r.rooms[key].Clone(), true
}

// Has reports whether a room called name is registered.
func (r *RoomRegistry) Has(name string) bool {
	_, ok := r.keys[name]
	return ok
}

// Len returns the number of registered rooms.
func (r *RoomRegistry) Len() int {
	return len(r.rooms)
}

// Lookup returns every room matching all supplied filters, ordered by name.
func (r *RoomRegistry) Lookup(query RoomQuery) []Room {
	match := roomMatcher(query)
	rooms := make([]Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		if match(room) {
			rooms = append(rooms, room.Clone())
		}
	}
	sortRoomsByName(rooms)
	return rooms
}

func (r *RoomRegistry) keyOf(name string) (string, bool) {
	key, ok := r.keys[name]
	return key, ok
}

func (r *RoomRegistry) byKey(key string) (Room, bool) {
	room, ok := r.rooms[key]
	if !ok {
		return Room{}, false
	}
	return room.Clone(), true
}

// roomMatcher compiles a RoomQuery into a predicate. Attribute filters reject
// only rooms that carry the attribute with a different value; a missing
// attribute is unknown rather than false. Unspecified capacities pass the
// capacity filter for the same reason.
func roomMatcher(query RoomQuery) Predicate[Room] {
	var preds []Predicate[Room]

	if needle := strings.ToLower(strings.TrimSpace(query.NameContains)); needle != "" {
		preds = append(preds, func(room Room) bool {
			return strings.Contains(strings.ToLower(room.Name), needle)
		})
	}
	if query.MinCapacity != nil {
		preds = append(preds, minCapacity(*query.MinCapacity))
	}
	if query.HasComputers != nil {
		want := *query.HasComputers
		preds = append(preds, func(room Room) bool { return room.HasComputers == want })
	}
	if query.HasProjector != nil {
		want := *query.HasProjector
		preds = append(preds, func(room Room) bool { return room.HasProjector == want })
	}
	if len(query.Attributes) > 0 {
		preds = append(preds, attributesCompatible(query.Attributes))
	}

	return And(preds...)
}

func minCapacity(min int) Predicate[Room] {
	return func(room Room) bool {
		return !room.CapacityKnown() || room.Capacity >= min
	}
}

func attributesCompatible(want map[string]string) Predicate[Room] {
	return func(room Room) bool {
		for name, value := range want {
			if got, ok := room.Attributes[name]; ok && got != value {
				return false
			}
		}
		return true
	}
}

func normalizeRoom(room Room) (Room, *ValidationError) {
	vErr := &ValidationError{}

	room.Name = strings.TrimSpace(room.Name)
	if room.Name == "" {
		vErr.add("name", "name is required")
	}
	if room.Capacity < CapacityUnspecified {
		vErr.add("capacity", "capacity must be non-negative or -1 when unspecified")
	}
	for name := range room.Attributes {
		if strings.TrimSpace(name) == "" {
			vErr.add("attributes", "attribute names must not be blank")
			break
		}
	}

	return room, vErr
}

func sortRoomsByName(rooms []Room) {
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].Name < rooms[j].Name
	})
}
