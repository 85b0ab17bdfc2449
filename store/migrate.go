package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

//go:embed migrations
var migrationFiles embed.FS

var (
	// migrationDriver tells Go migrations which placeholder style the running migration uses.
	migrationDriver string
	migrateMu       sync.Mutex
)

var errNilDB = errors.New("store: db is nil")

func newMigrator(db *DB) (*goose.Provider, error) {
	if db == nil || db.DB == nil {
		return nil, errNilDB
	}
	dialect, dir := database.DialectSQLite3, "migrations/sqlite"
	if db.Driver == DriverPostgres {
		dialect, dir = database.DialectPostgres, "migrations/postgres"
	}
	files, err := fs.Sub(migrationFiles, dir)
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(dialect, db.DB.DB, files)
}

// Migrate brings the schema up to date. Runs are serialized within the process.
func Migrate(ctx context.Context, db *DB) error {
	p, err := newMigrator(db)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	migrateMu.Lock()
	defer migrateMu.Unlock()
	migrationDriver = db.Driver
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// MigrationVersion reports the newest applied migration.
func MigrationVersion(ctx context.Context, db *DB) (int64, error) {
	p, err := newMigrator(db)
	if err != nil {
		return 0, err
	}
	return p.GetDBVersion(ctx)
}
