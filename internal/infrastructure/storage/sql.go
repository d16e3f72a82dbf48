// Package storage persists comparison events in PostgreSQL or SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported driver names, as registered by lib/pq and modernc.org/sqlite
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// sqliteTimeLayout sorts lexically in UTC
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Dialect captures the differences between the supported databases
type Dialect struct {
	Driver string
}

// DialectFor returns the dialect of a supported driver
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
		return Dialect{Driver: driver}, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Rebind rewrites ? placeholders into $N for PostgreSQL
func (d Dialect) Rebind(query string) string {
	if d.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// BindTime converts t into the driver's parameter representation
func (d Dialect) BindTime(t time.Time) interface{} {
	if d.Driver == DriverSQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

func (d Dialect) timestampType() string {
	if d.Driver == DriverPostgres {
		return "TIMESTAMPTZ"
	}
	return "TEXT"
}

// Open connects to the database and verifies the connection
func Open(ctx context.Context, driver, dsn string) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, Dialect{}, err
	}
	if dsn == "" {
		return nil, Dialect{}, fmt.Errorf("database dsn is required for driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// In-memory SQLite databases are private to a connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, Dialect{}, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, dialect, nil
}

// Migrate creates the comparison event schema if it does not exist
func Migrate(ctx context.Context, db DB, dialect Dialect) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS comparison_events (
			id TEXT PRIMARY KEY,
			collection_id TEXT NOT NULL DEFAULT '',
			original_product_id TEXT NOT NULL,
			original_short_id TEXT NOT NULL,
			compared_products TEXT NOT NULL,
			session_id TEXT NOT NULL DEFAULT '',
			created_at ` + dialect.timestampType() + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_comparison_events_original
			ON comparison_events (original_short_id, created_at)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// timeValue scans timestamps stored natively or as text
type timeValue struct {
	Time time.Time
}

var textTimeLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
}

// Scan implements sql.Scanner
func (v *timeValue) Scan(src interface{}) error {
	switch t := src.(type) {
	case time.Time:
		v.Time = t.UTC()
		return nil
	case string:
		return v.parse(t)
	case []byte:
		return v.parse(string(t))
	case nil:
		v.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (v *timeValue) parse(s string) error {
	for _, layout := range textTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			v.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}
