// Package storage persists the device table. Every backend reads and
// rewrites the whole table at once.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yanniedog/blueberry/internal/models"
)

const (
	BACKEND_CSV    = "csv"
	BACKEND_SQLITE = "sqlite"
)

type Store interface {
	// Load returns the persisted table. A missing table is not an error.
	Load(ctx context.Context) ([]models.DeviceRecord, error)
	// Save replaces the persisted table with records.
	Save(ctx context.Context, records []models.DeviceRecord) error
	// Clear removes every record.
	Clear(ctx context.Context) error
	Close() error
}

// ErrMalformed marks a persisted table that could not be parsed. Callers
// treat it as "no prior data".
var ErrMalformed = errors.New("malformed device table")

// WriteError is returned when the table cannot be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write device table %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Open returns the store for backend at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BACKEND_CSV:
		return NewCSVStore(path), nil
	case BACKEND_SQLITE:
		return OpenSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
