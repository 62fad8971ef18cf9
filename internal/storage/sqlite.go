package storage

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/yanniedog/blueberry/internal/database"
	"github.com/yanniedog/blueberry/internal/models"
)

const saveBatchSize = 200

// SQLiteStore keeps the table in a sqlite database through gorm. Row order
// is insertion order.
type SQLiteStore struct {
	db        *gorm.DB
	path      string
	recovered string
}

// OpenSQLiteStore opens the database at path. A file sqlite cannot read is
// moved aside to path+".malformed" and a fresh database takes its place; the
// first Load then reports ErrMalformed so callers treat it like a damaged CSV
// table.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := database.Open(path)
	if err == nil {
		return &SQLiteStore{db: db, path: path}, nil
	}
	if !database.IsCorrupt(err) {
		return nil, err
	}

	backup := path + ".malformed"
	if err := os.Rename(path, backup); err != nil {
		return nil, fmt.Errorf("failed to move aside damaged database: %w", err)
	}

	db, err = database.Open(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteStore{db: db, path: path, recovered: backup}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) ([]models.DeviceRecord, error) {
	if s.recovered != "" {
		backup := s.recovered
		s.recovered = ""
		return nil, fmt.Errorf("%w: %s: moved to %s", ErrMalformed, s.path, backup)
	}

	var records []models.DeviceRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load device records: %w", err)
	}

	return records, nil
}

func (s *SQLiteStore) Save(ctx context.Context, records []models.DeviceRecord) error {
	rows := make([]models.DeviceRecord, len(records))
	for i, record := range records {
		record.ID = 0
		rows[i] = record
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteAll(tx); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(&rows, saveBatchSize).Error
	})
	if err != nil {
		return &WriteError{Path: s.path, Err: err}
	}

	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if err := deleteAll(s.db.WithContext(ctx)); err != nil {
		return &WriteError{Path: s.path, Err: err}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return database.Close(s.db)
}

func deleteAll(tx *gorm.DB) error {
	return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.DeviceRecord{}).Error
}
