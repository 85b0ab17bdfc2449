package store

import (
	"context"

	"github.com/adonese/folio/cms_fields"
)

func (s *Store) ListSettings(ctx context.Context) ([]cms_fields.Setting, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	settings := []cms_fields.Setting{}
	if err := db.SelectContext(ctx, &settings, "SELECT * FROM settings ORDER BY key ASC"); err != nil {
		return nil, err
	}
	return settings, nil
}

// AllSettings returns every setting as a map.
func (s *Store) AllSettings(ctx context.Context) (cms_fields.Settings, error) {
	return s.settingsMap(ctx, false)
}

// PublicSettings returns only the settings flagged public.
func (s *Store) PublicSettings(ctx context.Context) (cms_fields.Settings, error) {
	return s.settingsMap(ctx, true)
}

func (s *Store) settingsMap(ctx context.Context, publicOnly bool) (cms_fields.Settings, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	q := "SELECT key, value FROM settings"
	var args []any
	if publicOnly {
		q += " WHERE is_public = ?"
		args = append(args, true)
	}
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := db.SelectContext(ctx, &rows, s.DB.Rebind(q), args...); err != nil {
		return nil, err
	}
	out := make(cms_fields.Settings, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	db, err := s.ensureDB()
	if err != nil {
		return "", err
	}
	var value string
	err = db.GetContext(ctx, &value, s.DB.Rebind("SELECT value FROM settings WHERE key = ?"), key)
	return value, err
}

// UpsertSettings writes all values in one transaction. New keys take their public flag
// from the known defaults; existing rows keep theirs.
func (s *Store) UpsertSettings(ctx context.Context, values map[string]string) error {
	if _, err := s.ensureDB(); err != nil {
		return err
	}
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	now := s.Now()
	stmt := s.DB.Rebind(`INSERT INTO settings(key, value, is_public, updated_at) VALUES(?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	for key, value := range values {
		if _, err := tx.ExecContext(ctx, stmt, key, value, cms_fields.IsPublicSetting(key), now); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
