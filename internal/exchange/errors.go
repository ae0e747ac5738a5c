package exchange

import (
	"errors"
	"fmt"

	"github.com/example/room-scheduler/internal/application"
)

// ErrUnknownFormat is returned when no codec matches a file extension.
var ErrUnknownFormat = errors.New("exchange: unknown file format")

// ImportError reports a malformed or unresolvable input row. Row is 1-based
// and counts the header line for CSV input; JSON input uses the element index
// plus one.
type ImportError struct {
	Row    int
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ImportError) Error() string {
	if e == nil {
		return ""
	}
	if e.Row > 0 {
		return fmt.Sprintf("import: row %d: %s", e.Row, e.Reason)
	}
	return "import: " + e.Reason
}

// Is makes ImportError match application.ErrInvalidImport.
func (e *ImportError) Is(target error) bool {
	return target == application.ErrInvalidImport
}

// Unwrap exposes the underlying parse error, if any.
func (e *ImportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IOError reports a filesystem failure while reading or writing exchange files.
type IOError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("exchange: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes the underlying os error.
func (e *IOError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
