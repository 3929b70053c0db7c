package postgres

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrationsDir is where migrate-create writes new files, relative to the repo root.
const MigrationsDir = "internal/postgres/migrations"

const versionTimeFormat = "20060102150405"

//go:embed migrations/*.sql
var migrationFS embed.FS

func newMigrate(dsn string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, err
	}
	return migrate.NewWithSourceInstance("iofs", src, migrateURL(dsn))
}

// migrateURL points a libpq style URL at the pgx/v5 migrate driver.
func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// MigrateUp applies every pending migration. It reports false when there was nothing to do.
func MigrateUp(dsn string) (bool, error) {
	m, err := newMigrate(dsn)
	if err != nil {
		return false, err
	}
	defer m.Close()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	return err == nil, err
}

// MigrateDown rolls back steps migrations, or all of them when steps <= 0.
func MigrateDown(dsn string, steps int) (bool, error) {
	m, err := newMigrate(dsn)
	if err != nil {
		return false, err
	}
	defer m.Close()

	if steps > 0 {
		err = m.Steps(-steps)
	} else {
		err = m.Down()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	return err == nil, err
}

// CreateMigration writes an empty up/down pair named after now into dir.
func CreateMigration(dir, name string, now time.Time) (up, down string, err error) {
	if strings.TrimSpace(name) == "" {
		return "", "", fmt.Errorf("migration name required")
	}
	version := now.UTC().Format(versionTimeFormat)
	up = filepath.Join(dir, fmt.Sprintf("%s_%s.up.sql", version, name))
	down = filepath.Join(dir, fmt.Sprintf("%s_%s.down.sql", version, name))

	if err := os.WriteFile(up, []byte{}, 0o644); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(down, []byte{}, 0o644); err != nil {
		return "", "", err
	}
	return up, down, nil
}
