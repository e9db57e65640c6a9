// Package sqlite provides a SQLite-backed implementation of the repository contract.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-registration/internal/model"
	"github.com/Shivanand-hulikatti/event-registration/internal/repository"
	"github.com/Shivanand-hulikatti/event-registration/internal/repository/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists events, users and registrations in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite has a single writer; one connection keeps writes serialized.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateEvent inserts one event.
func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO events (id, title, date_time, location, capacity, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, toMillis(e.DateTime), e.Location, e.Capacity, toMillis(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// GetEvent returns one event by id.
func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, title, date_time, location, capacity, created_at FROM events WHERE id = ?`,
		id,
	)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// ListEventsAfter returns events starting strictly after t ordered by start then location.
func (s *Store) ListEventsAfter(ctx context.Context, t time.Time) ([]model.Event, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, title, date_time, location, capacity, created_at
		 FROM events
		 WHERE date_time > ?
		 ORDER BY date_time ASC, location ASC, id ASC`,
		toMillis(t),
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// CountRegistrations returns how many registrations an event holds.
func (s *Store) CountRegistrations(ctx context.Context, eventID string) (int, error) {
	var n int
	if err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = ?`, eventID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

// CreateUser inserts one user.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (id, name, email, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, toMillis(u.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// ListUsers returns all users, oldest first.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, name, email, created_at FROM users ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

// FindRegistration returns the registration for an (event, user) pair.
func (s *Store) FindRegistration(ctx context.Context, eventID, userID string) (*model.Registration, error) {
	var (
		reg       model.Registration
		createdAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, event_id, user_id, created_at
		 FROM registrations WHERE event_id = ? AND user_id = ?`,
		eventID, userID,
	).Scan(&reg.ID, &reg.EventID, &reg.UserID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	reg.CreatedAt = fromMillis(createdAt)
	return &reg, nil
}

// CreateRegistration inserts reg only while the event has a free seat. The
// capacity check and the insert are one statement, so no second writer can
// slip in between them.
func (s *Store) CreateRegistration(ctx context.Context, reg *model.Registration) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO registrations (id, event_id, user_id, created_at)
		 SELECT ?, e.id, ?, ?
		 FROM events e
		 WHERE e.id = ?
		   AND (SELECT COUNT(*) FROM registrations r WHERE r.event_id = e.id) < e.capacity`,
		reg.ID, reg.UserID, toMillis(reg.CreatedAt), reg.EventID,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return repository.ErrAlreadyRegistered
		case isForeignKeyViolation(err):
			return repository.ErrUserNotFound
		}
		return fmt.Errorf("create registration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	// Nothing inserted: the event is either missing or full.
	if _, err := s.GetEvent(ctx, reg.EventID); err != nil {
		return err
	}
	return repository.ErrEventFull
}

// DeleteRegistration removes a registration by id.
func (s *Store) DeleteRegistration(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM registrations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListRegisteredUsers returns the users registered for an event in registration order.
func (s *Store) ListRegisteredUsers(ctx context.Context, eventID string) ([]model.User, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT u.id, u.name, u.email, u.created_at
		 FROM registrations r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.event_id = ?
		 ORDER BY r.created_at ASC, u.id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registered users: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var (
		e                   model.Event
		dateTime, createdAt int64
	)
	if err := row.Scan(&e.ID, &e.Title, &dateTime, &e.Location, &e.Capacity, &createdAt); err != nil {
		return nil, err
	}
	e.DateTime = fromMillis(dateTime)
	e.CreatedAt = fromMillis(createdAt)
	return &e, nil
}

func scanUsers(rows *sql.Rows) ([]model.User, error) {
	var users []model.User
	for rows.Next() {
		var (
			u         model.User
			createdAt int64
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &createdAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.CreatedAt = fromMillis(createdAt)
		users = append(users, u)
	}
	return users, rows.Err()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

var _ repository.Store = (*Store)(nil)
