// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-registration/internal/apperr"
	"github.com/Shivanand-hulikatti/event-registration/internal/model"
	"github.com/Shivanand-hulikatti/event-registration/internal/notify"
	"github.com/Shivanand-hulikatti/event-registration/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Messages reported to callers.
const (
	msgEventNotFound     = "Event not found"
	msgUserNotFound      = "User not found"
	msgInvalidDateTime   = "Invalid dateTime. Must be ISO string"
	msgInvalidCapacity   = "Capacity must be between 1 and 1000"
	msgTitleRequired     = "Title is required"
	msgLocationRequired  = "Location is required"
	msgPastEvent         = "Cannot register for past events"
	msgAlreadyRegistered = "User already registered for this event"
	msgEventFull         = "Event is full"
	msgNotRegistered     = "User is not registered for this event"
)

// Sentinel errors callers can match with errors.Is.
var (
	ErrEventNotFound     = apperr.NotFound(msgEventNotFound)
	ErrUserNotFound      = apperr.NotFound(msgUserNotFound)
	ErrPastEvent         = apperr.InvalidArgument(msgPastEvent)
	ErrAlreadyRegistered = apperr.Conflict(msgAlreadyRegistered)
	ErrEventFull         = apperr.Conflict(msgEventFull)
	ErrNotRegistered     = apperr.InvalidArgument(msgNotRegistered)
)

// Option configures an EventService or UserService.
type Option func(*options)

type options struct {
	now       func() time.Time
	publisher notify.Publisher
	logger    zerolog.Logger
}

func buildOptions(opts []Option) options {
	o := options{
		now:       time.Now,
		publisher: notify.Nop{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock sets the time source used for registration windows and listings.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithPublisher sets where registration changes are published.
func WithPublisher(p notify.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// CreateEventInput carries the raw fields of a new event.
type CreateEventInput struct {
	Title    string
	DateTime string
	Location string
	Capacity int
}

// EventService orchestrates event-related business operations.
type EventService struct {
	events        repository.EventStore
	registrations repository.RegistrationStore
	opts          options
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(
	events repository.EventStore,
	registrations repository.RegistrationStore,
	opts ...Option,
) *EventService {
	return &EventService{events: events, registrations: registrations, opts: buildOptions(opts)}
}

// CreateEvent validates the input and stores a new event, returning its id.
func (s *EventService) CreateEvent(ctx context.Context, in CreateEventInput) (model.CreatedEvent, error) {
	title := strings.TrimSpace(in.Title)
	location := strings.TrimSpace(in.Location)
	if title == "" {
		return model.CreatedEvent{}, apperr.InvalidArgument(msgTitleRequired)
	}
	if location == "" {
		return model.CreatedEvent{}, apperr.InvalidArgument(msgLocationRequired)
	}
	at, err := ParseDateTime(in.DateTime)
	if err != nil {
		return model.CreatedEvent{}, apperr.InvalidArgument(msgInvalidDateTime)
	}
	if in.Capacity < model.MinCapacity || in.Capacity > model.MaxCapacity {
		return model.CreatedEvent{}, apperr.InvalidArgument(msgInvalidCapacity)
	}

	event := &model.Event{
		ID:        uuid.New().String(),
		Title:     title,
		DateTime:  at.UTC(),
		Location:  location,
		Capacity:  in.Capacity,
		CreatedAt: s.opts.now().UTC(),
	}
	if err := s.events.CreateEvent(ctx, event); err != nil {
		return model.CreatedEvent{}, fmt.Errorf("create event: %w", err)
	}
	s.opts.logger.Info().Str("event_id", event.ID).Int("capacity", event.Capacity).Msg("event created")
	return model.CreatedEvent{ID: event.ID}, nil
}

// GetEventDetails returns an event with its registered users.
func (s *EventService) GetEventDetails(ctx context.Context, eventID string) (*model.EventDetails, error) {
	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	users, err := s.registrations.ListRegisteredUsers(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registered users: %w", err)
	}
	if users == nil {
		users = []model.User{}
	}
	return &model.EventDetails{Event: *event, Users: users}, nil
}

// RegisterForEvent registers a user for an event.
//
// Checks run in a fixed order so the reported error is predictable: the
// event must exist, must not have started, the user must not already hold a
// seat, and a seat must be free. The store repeats the last two checks
// atomically with the insert.
func (s *EventService) RegisterForEvent(ctx context.Context, eventID, userID string) (model.Success, error) {
	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return model.Success{}, err
	}

	now := s.opts.now()
	if !event.IsUpcoming(now) {
		return model.Success{}, ErrPastEvent
	}

	_, err = s.registrations.FindRegistration(ctx, eventID, userID)
	switch {
	case err == nil:
		return model.Success{}, ErrAlreadyRegistered
	case !errors.Is(err, repository.ErrNotFound):
		return model.Success{}, fmt.Errorf("find registration: %w", err)
	}

	count, err := s.events.CountRegistrations(ctx, eventID)
	if err != nil {
		return model.Success{}, fmt.Errorf("count registrations: %w", err)
	}
	if count >= event.Capacity {
		return model.Success{}, ErrEventFull
	}

	reg := &model.Registration{
		ID:        uuid.New().String(),
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: now.UTC(),
	}
	if err := s.registrations.CreateRegistration(ctx, reg); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyRegistered):
			return model.Success{}, ErrAlreadyRegistered
		case errors.Is(err, repository.ErrEventFull):
			return model.Success{}, ErrEventFull
		case errors.Is(err, repository.ErrUserNotFound):
			return model.Success{}, ErrUserNotFound
		case errors.Is(err, repository.ErrNotFound):
			return model.Success{}, ErrEventNotFound
		}
		return model.Success{}, fmt.Errorf("register for event: %w", err)
	}

	s.publish(ctx, notify.RegistrationCreated, eventID, userID, now)
	return model.Success{Success: true}, nil
}

// CancelRegistration removes a user's registration for an event.
func (s *EventService) CancelRegistration(ctx context.Context, eventID, userID string) (model.Success, error) {
	reg, err := s.registrations.FindRegistration(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Success{}, ErrNotRegistered
		}
		return model.Success{}, fmt.Errorf("find registration: %w", err)
	}

	if err := s.registrations.DeleteRegistration(ctx, reg.ID); err != nil {
		// A concurrent cancel won the race.
		if errors.Is(err, repository.ErrNotFound) {
			return model.Success{}, ErrNotRegistered
		}
		return model.Success{}, fmt.Errorf("delete registration: %w", err)
	}

	s.publish(ctx, notify.RegistrationCancelled, eventID, userID, s.opts.now())
	return model.Success{Success: true}, nil
}

// ListUpcomingEvents returns events that start after now, soonest first and
// then by location.
func (s *EventService) ListUpcomingEvents(ctx context.Context) ([]model.Event, error) {
	events, err := s.events.ListEventsAfter(ctx, s.opts.now())
	if err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

// GetEventStats reports how full an event is.
func (s *EventService) GetEventStats(ctx context.Context, eventID string) (model.EventStats, error) {
	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return model.EventStats{}, err
	}
	total, err := s.events.CountRegistrations(ctx, eventID)
	if err != nil {
		return model.EventStats{}, fmt.Errorf("count registrations: %w", err)
	}
	return computeStats(event.Capacity, total), nil
}

func computeStats(capacity, total int) model.EventStats {
	stats := model.EventStats{
		TotalRegistrations: total,
		RemainingCapacity:  capacity - total,
	}
	if capacity > 0 {
		stats.PercentageUsed = math.Round(float64(total)/float64(capacity)*100*100) / 100
	}
	return stats
}

func (s *EventService) getEvent(ctx context.Context, eventID string) (*model.Event, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *EventService) publish(ctx context.Context, key, eventID, userID string, at time.Time) {
	msg := notify.RegistrationMessage{EventID: eventID, UserID: userID, OccurredAt: at.UTC()}
	if err := s.opts.publisher.Publish(ctx, key, msg); err != nil {
		s.opts.logger.Warn().Err(err).
			Str("routing_key", key).
			Str("event_id", eventID).
			Str("user_id", userID).
			Msg("publish registration change")
	}
}
