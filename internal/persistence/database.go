package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// SQLDB implements Database over database/sql for Postgres and SQLite.
// Statements are built with squirrel so placeholders follow the driver.
type SQLDB struct {
	db        *sql.DB
	driver    string
	sb        sq.StatementBuilderType
	posts     PostRepository
	schedules ScheduleRepository
	leads     LeadRepository
	leadForms LeadFormRepository
	contacts  ContactRepository
}

// Open connects to the database and verifies the connection
func Open(ctx context.Context, driver, connectionString string) (*SQLDB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	if connectionString == "" {
		return nil, fmt.Errorf("database connection string is required")
	}

	db, err := sql.Open(driver, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// One connection keeps in-memory databases shared and serializes writers
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newSQLDB(db, driver), nil
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(connectionString string) (*SQLDB, error) {
	return Open(context.Background(), DriverPostgres, connectionString)
}

// NewSQLiteDB creates a new SQLite database connection, e.g. "file::memory:?cache=shared"
func NewSQLiteDB(connectionString string) (*SQLDB, error) {
	return Open(context.Background(), DriverSQLite, connectionString)
}

func newSQLDB(db *sql.DB, driver string) *SQLDB {
	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		placeholder = sq.Dollar
	}
	sb := sq.StatementBuilder.PlaceholderFormat(placeholder)

	s := &SQLDB{db: db, driver: driver, sb: sb}
	s.posts = &postRepo{db: db, sb: sb}
	s.schedules = &scheduleRepo{db: db, sb: sb}
	s.leads = &leadRepo{db: db, sb: sb}
	s.leadForms = &leadFormRepo{db: db, sb: sb}
	s.contacts = &contactRepo{db: db, sb: sb}
	return s
}

func (s *SQLDB) Posts() PostRepository          { return s.posts }
func (s *SQLDB) Schedules() ScheduleRepository  { return s.schedules }
func (s *SQLDB) Leads() LeadRepository          { return s.leads }
func (s *SQLDB) LeadForms() LeadFormRepository  { return s.leadForms }
func (s *SQLDB) Contacts() ContactRepository    { return s.contacts }
func (s *SQLDB) Driver() string                 { return s.driver }
func (s *SQLDB) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *SQLDB) Close() error                   { return s.db.Close() }

// nowUTC is truncated to microseconds so values round-trip through both drivers unchanged
func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// nullString maps "" to NULL
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
