package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when the requested room, slot or recurrence does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a room name is already registered.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrSlotConflict is returned when a booking overlaps an existing one.
	ErrSlotConflict = errors.New("application: slot conflict")
	// ErrInvalidImport is matched by errors describing an unusable import row,
	// whatever source produced it.
	ErrInvalidImport = errors.New("application: invalid import")
)

// ConflictError describes the booking that blocked a candidate slot.
type ConflictError struct {
	Existing  Slot
	Candidate Slot
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("room %s is already booked between %s and %s on %s",
		e.Existing.Room.Name, e.Existing.Start, e.Existing.End, e.Existing.Date)
}

// Is makes ConflictError match ErrSlotConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrSlotConflict
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(v.Fields(), ", ")
}

// Fields returns the names of the invalid fields in sorted order.
func (v *ValidationError) Fields() []string {
	if v == nil {
		return nil
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// errOrNil returns v as an error only when it carries field errors, avoiding
// the typed-nil interface trap.
func (v *ValidationError) errOrNil() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

func invalidField(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}
