package scheduler

import "github.com/example/room-scheduler/internal/calendar"

// Slot is the minimal view of a booking needed to reason about overlaps.
type Slot struct {
	RoomKey  string
	RoomName string
	Date     calendar.Date
	Start    calendar.TimeOfDay
	End      calendar.TimeOfDay
}

// Policy selects which overlapping bookings count as conflicts.
type Policy int

const (
	// PolicySameRoom reports a conflict only when two bookings overlap in time
	// within the same room. Overlaps across different rooms are legal.
	PolicySameRoom Policy = iota
	// PolicyAnyRoom reports a conflict for any temporal overlap regardless of room.
	PolicyAnyRoom
)

// ParsePolicy maps a configuration value to a Policy.
func ParsePolicy(value string) (Policy, bool) {
	switch value {
	case "", "same-room":
		return PolicySameRoom, true
	case "any-room":
		return PolicyAnyRoom, true
	default:
		return PolicySameRoom, false
	}
}

// String returns the configuration spelling of p.
func (p Policy) String() string {
	if p == PolicyAnyRoom {
		return "any-room"
	}
	return "same-room"
}

// Conflict details an overlapping booking relation that callers can present to users.
type Conflict struct {
	Existing  Slot
	Candidate Slot
}

// Overlaps reports whether a and b share a calendar date and their half-open
// [start, end) windows intersect.
func Overlaps(a, b Slot) bool {
	if a.Date != b.Date {
		return false
	}
	return a.Start < b.End && b.Start < a.End
}

// Collides applies the policy on top of Overlaps.
func Collides(a, b Slot, policy Policy) bool {
	if !Overlaps(a, b) {
		return false
	}
	if policy == PolicyAnyRoom {
		return true
	}
	return a.RoomKey == b.RoomKey
}

// DetectConflicts identifies every existing slot that collides with the candidate.
func DetectConflicts(existing []Slot, candidate Slot, policy Policy) []Conflict {
	var conflicts []Conflict
	for _, slot := range existing {
		if Collides(slot, candidate, policy) {
			conflicts = append(conflicts, Conflict{Existing: slot, Candidate: candidate})
		}
	}
	return conflicts
}

// FirstPairwiseConflict returns the first colliding pair within candidates,
// scanning in order. ok is false when the batch is internally consistent.
// Only slots sharing a date are compared.
func FirstPairwiseConflict(candidates []Slot, policy Policy) (conflict Conflict, ok bool) {
	byDate := make(map[calendar.Date][]int)
	for i, slot := range candidates {
		byDate[slot.Date] = append(byDate[slot.Date], i)
	}
	for i, slot := range candidates {
		for _, j := range byDate[slot.Date] {
			if j <= i {
				continue
			}
			if Collides(slot, candidates[j], policy) {
				return Conflict{Existing: slot, Candidate: candidates[j]}, true
			}
		}
	}
	return Conflict{}, false
}
