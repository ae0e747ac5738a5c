package application

import (
	"maps"
	"slices"

	"github.com/example/room-scheduler/internal/calendar"
)

// Predicate reports whether an item satisfies a condition.
type Predicate[T any] func(T) bool

// And combines predicates with logical AND. An empty list accepts everything.
func And[T any](preds ...Predicate[T]) Predicate[T] {
	return func(item T) bool {
		for _, pred := range preds {
			if !pred(item) {
				return false
			}
		}
		return true
	}
}

// Filter returns the items satisfying pred in their original relative order.
// The input slice is never modified.
func Filter[T any](items []T, pred Predicate[T]) []T {
	out := make([]T, 0, len(items))
	for _, item := range slices.Clone(items) {
		if pred(item) {
			out = append(out, item)
		}
	}
	return out
}

// CriterionKey enumerates the supported search criteria.
type CriterionKey int

const (
	// LowerBoundDate keeps slots starting on or after midnight of the date.
	LowerBoundDate CriterionKey = iota
	// UpperBoundDate keeps slots starting strictly before midnight of the date.
	UpperBoundDate
	// RoomName keeps slots booked in exactly the named room.
	RoomName
	// MinCapacity keeps rooms with at least the given capacity.
	MinCapacity
	// HasComputers matches the room's computer equipment flag.
	HasComputers
	// HasProjector matches the room's projector flag.
	HasProjector
	// AttributeEquals rejects rooms carrying a listed attribute with another value.
	AttributeEquals
)

var criterionNames = map[CriterionKey]string{
	LowerBoundDate:  "from",
	UpperBoundDate:  "to",
	RoomName:        "room",
	MinCapacity:     "min_capacity",
	HasComputers:    "computers",
	HasProjector:    "projector",
	AttributeEquals: "attributes",
}

// String returns the query parameter spelling of the key.
func (k CriterionKey) String() string {
	if name, ok := criterionNames[k]; ok {
		return name
	}
	return "unknown"
}

// Criterion is a single key/value pair of a SearchCriteria. Value holds a
// calendar.Date, string, int, bool or map[string]string depending on Key.
type Criterion struct {
	Key   CriterionKey
	Value any
}

// SearchCriteria is an immutable, ordered set of criteria combined with AND.
type SearchCriteria struct {
	entries []Criterion
}

// Criteria returns the criteria in insertion order.
func (c SearchCriteria) Criteria() []Criterion {
	out := make([]Criterion, len(c.entries))
	for i, entry := range c.entries {
		out[i] = entry
		if attrs, ok := entry.Value.(map[string]string); ok {
			out[i].Value = maps.Clone(attrs)
		}
	}
	return out
}

// Len returns the number of present criteria.
func (c SearchCriteria) Len() int {
	return len(c.entries)
}

// Lookup returns the value stored for key.
func (c SearchCriteria) Lookup(key CriterionKey) (any, bool) {
	for _, entry := range c.entries {
		if entry.Key == key {
			return entry.Value, true
		}
	}
	return nil, false
}

// SlotPredicate compiles the criteria into a slot predicate.
func (c SearchCriteria) SlotPredicate() Predicate[Slot] {
	var preds []Predicate[Slot]
	for _, entry := range c.entries {
		switch entry.Key {
		case LowerBoundDate:
			lower := entry.Value.(calendar.Date).Time()
			preds = append(preds, func(slot Slot) bool { return !slot.StartsAt().Before(lower) })
		case UpperBoundDate:
			upper := entry.Value.(calendar.Date).Time()
			preds = append(preds, func(slot Slot) bool { return slot.StartsAt().Before(upper) })
		default:
			if pred := roomCriterion(entry); pred != nil {
				preds = append(preds, func(slot Slot) bool { return pred(slot.Room) })
			}
		}
	}
	return And(preds...)
}

// RoomPredicate compiles the room-level criteria into a room predicate. Date
// bounds are ignored.
func (c SearchCriteria) RoomPredicate() Predicate[Room] {
	var preds []Predicate[Room]
	for _, entry := range c.entries {
		if pred := roomCriterion(entry); pred != nil {
			preds = append(preds, pred)
		}
	}
	return And(preds...)
}

func roomCriterion(entry Criterion) Predicate[Room] {
	switch entry.Key {
	case RoomName:
		name := entry.Value.(string)
		return func(room Room) bool { return room.Name == name }
	case MinCapacity:
		return minCapacity(entry.Value.(int))
	case HasComputers:
		want := entry.Value.(bool)
		return func(room Room) bool { return room.HasComputers == want }
	case HasProjector:
		want := entry.Value.(bool)
		return func(room Room) bool { return room.HasProjector == want }
	case AttributeEquals:
		return attributesCompatible(entry.Value.(map[string]string))
	default:
		return nil
	}
}

// CriteriaBuilder accumulates criteria. Setting a key twice replaces its value
// while keeping the position of the first call.
type CriteriaBuilder struct {
	entries []Criterion
}

// NewCriteriaBuilder returns an empty builder.
func NewCriteriaBuilder() *CriteriaBuilder {
	return &CriteriaBuilder{}
}

// From sets the inclusive lower date bound.
func (b *CriteriaBuilder) From(date calendar.Date) *CriteriaBuilder {
	return b.set(LowerBoundDate, date)
}

// Until sets the exclusive upper date bound.
func (b *CriteriaBuilder) Until(date calendar.Date) *CriteriaBuilder {
	return b.set(UpperBoundDate, date)
}

// Room restricts results to the named room.
func (b *CriteriaBuilder) Room(name string) *CriteriaBuilder {
	return b.set(RoomName, name)
}

// MinCapacity restricts results to rooms holding at least n people.
func (b *CriteriaBuilder) MinCapacity(n int) *CriteriaBuilder {
	return b.set(MinCapacity, n)
}

// Computers restricts results by computer equipment.
func (b *CriteriaBuilder) Computers(want bool) *CriteriaBuilder {
	return b.set(HasComputers, want)
}

// Projector restricts results by projector equipment.
func (b *CriteriaBuilder) Projector(want bool) *CriteriaBuilder {
	return b.set(HasProjector, want)
}

// Attribute adds an attribute filter. Multiple calls accumulate into a single
// AttributeEquals criterion.
func (b *CriteriaBuilder) Attribute(name, value string) *CriteriaBuilder {
	attrs := map[string]string{}
	for _, entry := range b.entries {
		if entry.Key == AttributeEquals {
			attrs = maps.Clone(entry.Value.(map[string]string))
		}
	}
	attrs[name] = value
	return b.set(AttributeEquals, attrs)
}

// Build returns the immutable criteria.
func (b *CriteriaBuilder) Build() SearchCriteria {
	return SearchCriteria{entries: slices.Clone(b.entries)}
}

func (b *CriteriaBuilder) set(key CriterionKey, value any) *CriteriaBuilder {
	for i := range b.entries {
		if b.entries[i].Key == key {
			b.entries[i].Value = value
			return b
		}
	}
	b.entries = append(b.entries, Criterion{Key: key, Value: value})
	return b
}
