package exchange

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/room-scheduler/internal/application"
)

// Codec converts rooms and slots to and from one file format.
type Codec interface {
	application.SlotEncoder
	application.RoomEncoder
	DecodeSlots(data []byte, known map[string]application.Room) ([]application.Slot, error)
	DecodeRooms(data []byte) ([]application.Room, error)
}

// FormatFor picks a codec from the file extension (.csv or .json).
func FormatFor(path string) (Codec, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// ParseFormat returns the codec registered under name ("csv" or "json").
func ParseFormat(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		return CSVCodec{}, nil
	case "json":
		return JSONCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FileSource reads rooms or slots from a file on disk.
type FileSource struct {
	Path  string
	Codec Codec
}

// NewFileSource returns a source whose codec follows the file extension.
func NewFileSource(path string) (*FileSource, error) {
	codec, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{Path: path, Codec: codec}, nil
}

// Rooms implements application.RoomSource.
func (s *FileSource) Rooms(ctx context.Context) ([]application.Room, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return s.Codec.DecodeRooms(data)
}

// Slots implements application.SlotSource.
func (s *FileSource) Slots(ctx context.Context, known map[string]application.Room) ([]application.Slot, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return s.Codec.DecodeSlots(data, known)
}

func (s *FileSource) read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: s.Path, Err: err}
	}
	return data, nil
}

// FileWriter writes export output to disk.
type FileWriter struct {
	// Perm is used when a file is created. Zero means 0o644.
	Perm os.FileMode
}

// WriteAll implements application.FileWriter. In append mode data is added
// to the end of an existing file; otherwise the file is truncated.
func (w FileWriter) WriteAll(path string, data []byte, appendMode bool) error {
	perm := w.Perm
	if perm == 0 {
		perm = 0o644
	}
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, perm)
	if err != nil {
		return &IOError{Op: "open", Path: path, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &IOError{Op: "close", Path: path, Err: err}
	}
	return nil
}
