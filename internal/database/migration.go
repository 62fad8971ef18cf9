package database

import (
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"

	"gorm.io/gorm"
)

//go:embed migrations/*/up.sql migrations/*/down.sql
var migrationsFS embed.FS

var migrationVersionRegex = regexp.MustCompile(`^(\d+)`)

type SchemaVersion uint64

type SchemaMigration struct {
	Version SchemaVersion `gorm:"primaryKey"`
}

func CurrentSchemaVersion(db *gorm.DB) (SchemaVersion, error) {
	var schemaMigration SchemaMigration

	err := db.
		Model(&SchemaMigration{}).
		Select("version").
		Order("version desc").
		Limit(1).
		Scan(&schemaMigration).Error

	return schemaMigration.Version, err
}

type Migration struct {
	Version SchemaVersion
	Name    string
}

func (migration Migration) Up(db *gorm.DB) error {
	return migration.exec(db, "up.sql")
}

func (migration Migration) Down(db *gorm.DB) error {
	return migration.exec(db, "down.sql")
}

func (migration Migration) exec(db *gorm.DB, file string) error {
	sql, err := fs.ReadFile(migrationsFS, fmt.Sprintf("migrations/%s/%s", migration.Name, file))
	if err != nil {
		return fmt.Errorf("failed to read %s for migration %s: %w", file, migration.Name, err)
	}

	return db.Exec(string(sql)).Error
}

// Migrate applies, each in its own transaction, every migration newer than
// the recorded schema version.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return err
	}

	currentVersion, err := CurrentSchemaVersion(db)
	if err != nil {
		return err
	}

	migrations, err := MigrationsNewerThan(currentVersion)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{Version: migration.Version}).Error
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// MigrationsNewerThan lists embedded migrations above minVersion in
// ascending order.
func MigrationsNewerThan(minVersion SchemaVersion) ([]Migration, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}

	var migrations []Migration
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		match := migrationVersionRegex.FindStringSubmatch(entry.Name())
		if len(match) != 2 {
			return nil, fmt.Errorf("invalid migration directory name: %s", entry.Name())
		}

		versionInt, err := strconv.ParseUint(match[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid migration version: %s - %w", match[1], err)
		}

		version := SchemaVersion(versionInt)
		if version <= minVersion {
			continue
		}

		migrations = append(migrations, Migration{Version: version, Name: entry.Name()})
	}

	return migrations, nil
}
