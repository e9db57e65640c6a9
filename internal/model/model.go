// Package model defines the core domain types for the event registration system.
package model

import "time"

// Capacity bounds accepted when an event is created.
const (
	MinCapacity = 1
	MaxCapacity = 1000
)

// Event is a scheduled activity with a fixed number of seats.
type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	DateTime  time.Time `json:"dateTime"`
	Location  string    `json:"location"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"-"`
}

// IsUpcoming reports whether the event starts strictly after now.
func (e *Event) IsUpcoming(now time.Time) bool {
	return e.DateTime.After(now)
}

// User is a person who can hold registrations.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"-"`
}

// Registration links one user to one event.
type Registration struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// EventDetails is an event together with its registered users.
type EventDetails struct {
	Event
	Users []User `json:"users"`
}

// EventStats summarises how full an event is.
type EventStats struct {
	TotalRegistrations int     `json:"totalRegistrations"`
	RemainingCapacity  int     `json:"remainingCapacity"`
	PercentageUsed     float64 `json:"percentageUsed"`
}

// CreatedEvent is returned by the create call; it carries the identifier only.
type CreatedEvent struct {
	ID string `json:"id"`
}

// Success is the acknowledgement returned by register and cancel.
type Success struct {
	Success bool `json:"success"`
}

// CreateEventRequest is the payload for creating a new event.
// Capacity is a pointer so a missing field can be told apart from zero.
type CreateEventRequest struct {
	Title    string `json:"title" validate:"required"`
	DateTime string `json:"dateTime" validate:"required"`
	Location string `json:"location" validate:"required"`
	Capacity *int   `json:"capacity" validate:"required"`
}

// RegistrationRequest is the payload for registering or cancelling.
type RegistrationRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// CreateUserRequest is the payload for creating a user.
type CreateUserRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
