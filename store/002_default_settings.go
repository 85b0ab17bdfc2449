package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/adonese/folio/cms_fields"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

// Seeds the settings table with cms_fields.DefaultSettings. Existing keys are left alone so
// values edited from the dashboard survive a re-run.
func init() {
	goose.AddMigrationContext(seedSettings, unseedSettings)
}

const (
	seedSettingSQL   = "INSERT INTO settings(key, value, is_public, updated_at) VALUES(?, ?, ?, ?) ON CONFLICT(key) DO NOTHING"
	unseedSettingSQL = "DELETE FROM settings WHERE key = ?"
)

// migrationQuery rebinds q for the driver of the migration in flight.
func migrationQuery(q string) (string, string) {
	driver := migrationDriver
	if driver == "" {
		driver = DriverSQLite
	}
	return sqlx.Rebind(sqlx.BindType(driver), q), driver
}

func seedSettings(ctx context.Context, tx *sql.Tx) error {
	stmt, driver := migrationQuery(seedSettingSQL)
	if ok, err := hasTable(ctx, tx, driver, "settings"); !ok {
		return err
	}
	now := time.Now().UTC()
	for _, s := range cms_fields.DefaultSettings {
		if _, err := tx.ExecContext(ctx, stmt, s.Key, s.Value, s.IsPublic, now); err != nil {
			return err
		}
	}
	return nil
}

func unseedSettings(ctx context.Context, tx *sql.Tx) error {
	stmt, _ := migrationQuery(unseedSettingSQL)
	for _, s := range cms_fields.DefaultSettings {
		if _, err := tx.ExecContext(ctx, stmt, s.Key); err != nil {
			return err
		}
	}
	return nil
}

func hasTable(ctx context.Context, tx *sql.Tx, driver, table string) (bool, error) {
	var n int
	q := `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	if driver == DriverPostgres {
		q = `SELECT count(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`
	}
	err := tx.QueryRowContext(ctx, q, table).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return n > 0, err
}
