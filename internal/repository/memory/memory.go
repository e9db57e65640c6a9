// Package memory is an in-process implementation of the repository contract.
// It backs the memory storage driver and the service and handler tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-registration/internal/model"
	"github.com/Shivanand-hulikatti/event-registration/internal/repository"
)

type pairKey struct {
	eventID string
	userID  string
}

// Store keeps every entity in maps guarded by one mutex.
type Store struct {
	mu            sync.RWMutex
	events        map[string]model.Event
	users         map[string]model.User
	emails        map[string]string
	registrations map[string]model.Registration
	byPair        map[pairKey]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		events:        make(map[string]model.Event),
		users:         make(map[string]model.User),
		emails:        make(map[string]string),
		registrations: make(map[string]model.Registration),
		byPair:        make(map[pairKey]string),
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = *e
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (s *Store) ListEventsAfter(ctx context.Context, t time.Time) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []model.Event
	for _, e := range s.events {
		if e.DateTime.After(t) {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].DateTime.Equal(events[j].DateTime) {
			return events[i].DateTime.Before(events[j].DateTime)
		}
		if events[i].Location != events[j].Location {
			return events[i].Location < events[j].Location
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

func (s *Store) CountRegistrations(ctx context.Context, eventID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(eventID), nil
}

func (s *Store) countLocked(eventID string) int {
	n := 0
	for _, r := range s.registrations {
		if r.EventID == eventID {
			n++
		}
	}
	return n
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.emails[u.Email]; taken {
		return repository.ErrEmailTaken
	}
	s.users[u.ID] = *u
	s.emails[u.Email] = u.ID
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sortUsers(users)
	return users, nil
}

func (s *Store) FindRegistration(ctx context.Context, eventID, userID string) (*model.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPair[pairKey{eventID: eventID, userID: userID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	reg := s.registrations[id]
	return &reg, nil
}

// CreateRegistration enforces the same constraints as the SQL stores: event
// and user must exist, the pair must be new and the event must have a seat.
func (s *Store) CreateRegistration(ctx context.Context, reg *model.Registration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[reg.EventID]
	if !ok {
		return repository.ErrNotFound
	}
	if s.countLocked(reg.EventID) >= e.Capacity {
		return repository.ErrEventFull
	}
	key := pairKey{eventID: reg.EventID, userID: reg.UserID}
	if _, dup := s.byPair[key]; dup {
		return repository.ErrAlreadyRegistered
	}
	if _, ok := s.users[reg.UserID]; !ok {
		return repository.ErrUserNotFound
	}
	s.registrations[reg.ID] = *reg
	s.byPair[key] = reg.ID
	return nil
}

func (s *Store) DeleteRegistration(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.registrations[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(s.registrations, id)
	delete(s.byPair, pairKey{eventID: reg.EventID, userID: reg.UserID})
	return nil
}

func (s *Store) ListRegisteredUsers(ctx context.Context, eventID string) ([]model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var regs []model.Registration
	for _, r := range s.registrations {
		if r.EventID == eventID {
			regs = append(regs, r)
		}
	}
	sort.Slice(regs, func(i, j int) bool {
		if !regs[i].CreatedAt.Equal(regs[j].CreatedAt) {
			return regs[i].CreatedAt.Before(regs[j].CreatedAt)
		}
		return regs[i].UserID < regs[j].UserID
	})

	users := make([]model.User, 0, len(regs))
	for _, r := range regs {
		// Registrations are only created for known users.
		users = append(users, s.users[r.UserID])
	}
	return users, nil
}

func sortUsers(users []model.User) {
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
}

var _ repository.Store = (*Store)(nil)
