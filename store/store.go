package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store provides manual-SQL data access.
type Store struct {
	DB  *DB
	box *secretBox
	now func() time.Time
}

func New(db *DB, opts ...Option) *Store {
	cfg := storeConfig{clock: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.clock == nil {
		cfg.clock = time.Now
	}
	s := &Store{DB: db, now: cfg.clock}
	if box, err := newSecretBox(cfg.dataKey); err == nil {
		s.box = box
	}
	return s
}

func (s *Store) ensureDB() (*sqlx.DB, error) {
	if s == nil || s.DB == nil || s.DB.DB == nil {
		return nil, fmt.Errorf("nil db")
	}
	return s.DB.DB, nil
}

func (s *Store) Now() time.Time {
	return s.now().UTC()
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// HashIP returns the stored form of a client address.
func (s *Store) HashIP(ip string) string {
	return s.box.Digest("ip:" + ip)
}

// VisitorHash identifies a visitor for one UTC day without keeping the address or agent.
func (s *Store) VisitorHash(ip, userAgent string, day time.Time) string {
	return s.box.Digest(strings.Join([]string{ip, userAgent, day.UTC().Format("2006-01-02")}, "|"))
}

// likePattern escapes LIKE wildcards in user input.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(q)) + "%"
}

// nextSlug returns base, or base-2, base-3... whichever is free in table.
func (s *Store) nextSlug(ctx context.Context, q sqlx.QueryerContext, table, base string, excludeID int64) (string, error) {
	stmt := s.DB.Rebind(fmt.Sprintf("SELECT slug FROM %s WHERE (slug = ? OR slug LIKE ?) AND id <> ?", table))
	var taken []string
	if err := sqlx.SelectContext(ctx, q, &taken, stmt, base, base+"-%", excludeID); err != nil {
		return "", err
	}
	used := make(map[string]struct{}, len(taken))
	for _, t := range taken {
		used[t] = struct{}{}
	}
	if _, ok := used[base]; !ok {
		return base, nil
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if _, ok := used[candidate]; !ok {
			return candidate, nil
		}
	}
}

const slugAttempts = 3

// insertWithFreeSlug runs insert in a transaction with the first free slug derived from base.
// When a concurrent writer claims the same slug between lookup and insert, the loser retries
// with a fresh lookup.
func (s *Store) insertWithFreeSlug(ctx context.Context, table, base string, insert func(tx *sqlx.Tx, slug string) error) error {
	var err error
	for attempt := 0; attempt < slugAttempts; attempt++ {
		err = s.slugTx(ctx, table, base, insert)
		if !IsUniqueViolation(err) {
			return err
		}
	}
	return err
}

func (s *Store) slugTx(ctx context.Context, table, base string, insert func(tx *sqlx.Tx, slug string) error) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	slug, err := s.nextSlug(ctx, tx, table, base, 0)
	if err != nil {
		return err
	}
	if err := insert(tx, slug); err != nil {
		return err
	}
	return tx.Commit()
}

// affected turns an exec that touched no rows into sql.ErrNoRows.
func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
