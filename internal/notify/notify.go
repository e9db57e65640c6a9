// Package notify publishes registration changes to interested consumers.
package notify

import (
	"context"
	"time"
)

// Routing keys used for registration messages.
const (
	RegistrationCreated   = "registration.created"
	RegistrationCancelled = "registration.cancelled"
)

// Publisher delivers a payload under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// RegistrationMessage is the payload sent for registration changes.
type RegistrationMessage struct {
	EventID    string    `json:"eventId"`
	UserID     string    `json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Nop discards every message.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, string, any) error { return nil }
