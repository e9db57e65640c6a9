// Package repository declares the storage contract the service layer needs.
// Implementations live in the postgres, sqlite and memory subpackages.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/event-registration/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrEventFull is returned when an event has no remaining capacity.
var ErrEventFull = errors.New("event is fully booked")

// ErrAlreadyRegistered is returned when the same user registers twice for an event.
var ErrAlreadyRegistered = errors.New("user already registered for this event")

// ErrEmailTaken is returned when a user is created with an email that already exists.
var ErrEmailTaken = errors.New("email already exists")

// ErrUserNotFound is returned when a registration references a user the store does not know.
var ErrUserNotFound = errors.New("user not found")

// EventStore persists events.
type EventStore interface {
	CreateEvent(ctx context.Context, event *model.Event) error
	// GetEvent returns ErrNotFound when no event has the id.
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	// ListEventsAfter returns events with date_time strictly after t,
	// ordered by date_time then location, both ascending.
	ListEventsAfter(ctx context.Context, t time.Time) ([]model.Event, error)
	CountRegistrations(ctx context.Context, eventID string) (int, error)
}

// UserStore persists users.
type UserStore interface {
	// CreateUser returns ErrEmailTaken on a duplicate email.
	CreateUser(ctx context.Context, user *model.User) error
	// ListUsers returns users ordered by creation time then id.
	ListUsers(ctx context.Context) ([]model.User, error)
}

// RegistrationStore persists registrations.
type RegistrationStore interface {
	// FindRegistration returns ErrNotFound when the pair is not registered.
	FindRegistration(ctx context.Context, eventID, userID string) (*model.Registration, error)
	// CreateRegistration inserts reg atomically with respect to the event's
	// capacity and the (user, event) uniqueness constraint. It returns
	// ErrNotFound, ErrUserNotFound, ErrAlreadyRegistered or ErrEventFull.
	CreateRegistration(ctx context.Context, reg *model.Registration) error
	// DeleteRegistration returns ErrNotFound when nothing was deleted.
	DeleteRegistration(ctx context.Context, id string) error
	// ListRegisteredUsers returns the users registered for an event ordered
	// by registration time then user id.
	ListRegisteredUsers(ctx context.Context, eventID string) ([]model.User, error)
}

// Store is a complete storage backend.
type Store interface {
	EventStore
	UserStore
	RegistrationStore
	Close() error
}
