package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"

	defaultSQLitePath = "folio.db"
	pingTimeout       = 10 * time.Second
	pgUniqueViolation = "23505"
)

// _txlock=immediate takes the write lock at BEGIN, so read-then-write transactions queue on
// the busy timeout instead of failing on a stale snapshot.
const sqliteParams = "_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"

// DB is an sqlx handle that remembers which driver it speaks.
type DB struct {
	*sqlx.DB
	Driver string
}

func init() {
	sqlx.NameMapper = toSnake
}

// OpenFromConfig opens a database based on the provided url/path. A postgres url wins over
// the sqlite path unless driverOverride says otherwise.
func OpenFromConfig(dbURL, sqlitePath, driverOverride string) (*DB, error) {
	driver, dsn, err := resolveDriver(dbURL, sqlitePath, driverOverride)
	if err != nil {
		return nil, err
	}
	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return &DB{DB: conn, Driver: driver}, nil
}

func resolveDriver(dbURL, sqlitePath, override string) (driver, dsn string, err error) {
	name := strings.ToLower(strings.TrimSpace(override))
	if name == "" || name == "default" {
		name = "sqlite"
		if dbURL != "" {
			name = "postgres"
		}
	}
	switch name {
	case "postgres", "pgx":
		if dbURL == "" {
			return "", "", fmt.Errorf("db_url required for %s driver", name)
		}
		return DriverPostgres, dbURL, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, sqliteDSN(sqlitePath), nil
	}
	return "", "", fmt.Errorf("unsupported db driver %q", override)
}

func sqliteDSN(path string) string {
	if path == "" {
		path = defaultSQLitePath
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + sqliteParams
}

// toSnake maps struct fields without a db tag: PublishedAt becomes published_at.
func toSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

// ErrNotFound reports whether err means the row does not exist.
func ErrNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// IsUniqueViolation reports whether err is a unique or primary key violation on either driver.
func IsUniqueViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return true
		}
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
