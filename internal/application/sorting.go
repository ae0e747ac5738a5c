package application

import (
	"slices"
	"strings"
)

// SortSlots returns a copy of slots ordered by absolute start instant. Ties
// are broken by room name ascending regardless of order, and the sort is stable.
func SortSlots(slots []Slot, order SortOrder) []Slot {
	sorted := slices.Clone(slots)
	slices.SortStableFunc(sorted, func(a, b Slot) int {
		c := a.StartsAt().Compare(b.StartsAt())
		if order == Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.Room.Name, b.Room.Name)
	})
	return sorted
}
