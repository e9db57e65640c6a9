// Package repositorytest holds contract tests every repository.Store must pass.
package repositorytest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-registration/internal/model"
	"github.com/Shivanand-hulikatti/event-registration/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Base is the reference instant used by the contract tests. Times are whole
// milliseconds so every backend round-trips them exactly.
var Base = time.Date(2030, time.March, 14, 9, 30, 0, 0, time.UTC)

// Run executes the contract suite. newStore must return an empty or
// isolated store; the suite uses random ids and emails so a shared database
// also works.
func Run(t *testing.T, newStore func(t *testing.T) repository.Store) {
	t.Helper()

	t.Run("EventRoundTrip", func(t *testing.T) { testEventRoundTrip(t, newStore(t)) })
	t.Run("GetEventNotFound", func(t *testing.T) { testGetEventNotFound(t, newStore(t)) })
	t.Run("ListEventsAfterOrdering", func(t *testing.T) { testListEventsAfter(t, newStore(t)) })
	t.Run("UserEmailUnique", func(t *testing.T) { testUserEmailUnique(t, newStore(t)) })
	t.Run("ListUsersOrdering", func(t *testing.T) { testListUsers(t, newStore(t)) })
	t.Run("RegistrationLifecycle", func(t *testing.T) { testRegistrationLifecycle(t, newStore(t)) })
	t.Run("RegistrationCapacity", func(t *testing.T) { testRegistrationCapacity(t, newStore(t)) })
	t.Run("RegistrationUnknownRefs", func(t *testing.T) { testRegistrationUnknownRefs(t, newStore(t)) })
	t.Run("ConcurrentRegistrations", func(t *testing.T) { testConcurrentRegistrations(t, newStore(t)) })
}

// NewEvent returns an event with a fresh id.
func NewEvent(title, location string, at time.Time, capacity int) *model.Event {
	return &model.Event{
		ID:        uuid.NewString(),
		Title:     title,
		DateTime:  at,
		Location:  location,
		Capacity:  capacity,
		CreatedAt: Base,
	}
}

// NewUser returns a user with a fresh id and a unique email.
func NewUser(name string, createdAt time.Time) *model.User {
	id := uuid.NewString()
	return &model.User{
		ID:        id,
		Name:      name,
		Email:     id + "@example.com",
		CreatedAt: createdAt,
	}
}

func newRegistration(eventID, userID string, at time.Time) *model.Registration {
	return &model.Registration{
		ID:        uuid.NewString(),
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: at,
	}
}

func mustCreateEvent(t *testing.T, s repository.Store, e *model.Event) *model.Event {
	t.Helper()
	require.NoError(t, s.CreateEvent(context.Background(), e))
	return e
}

func mustCreateUser(t *testing.T, s repository.Store, u *model.User) *model.User {
	t.Helper()
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func testEventRoundTrip(t *testing.T, s repository.Store) {
	ctx := context.Background()
	want := mustCreateEvent(t, s, NewEvent("Launch", "HQ", Base.Add(36*time.Hour+250*time.Millisecond), 40))

	got, err := s.GetEvent(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Location, got.Location)
	assert.Equal(t, want.Capacity, got.Capacity)
	assert.True(t, want.DateTime.Equal(got.DateTime), "dateTime = %v, want %v", got.DateTime, want.DateTime)
}

func testGetEventNotFound(t *testing.T, s repository.Store) {
	_, err := s.GetEvent(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testListEventsAfter(t *testing.T, s repository.Store) {
	ctx := context.Background()
	now := Base

	past := mustCreateEvent(t, s, NewEvent("Past", "A", now.Add(-time.Hour), 10))
	atNow := mustCreateEvent(t, s, NewEvent("Now", "A", now, 10))
	laterB := mustCreateEvent(t, s, NewEvent("Later B", "Berlin", now.Add(2*time.Hour), 10))
	soon := mustCreateEvent(t, s, NewEvent("Soon", "Zurich", now.Add(time.Hour), 10))
	laterA := mustCreateEvent(t, s, NewEvent("Later A", "Amsterdam", now.Add(2*time.Hour), 10))

	events, err := s.ListEventsAfter(ctx, now)
	require.NoError(t, err)

	known := map[string]bool{past.ID: true, atNow.ID: true, laterB.ID: true, soon.ID: true, laterA.ID: true}
	var ids []string
	for _, e := range events {
		if known[e.ID] {
			ids = append(ids, e.ID)
		}
	}
	assert.Equal(t, []string{soon.ID, laterA.ID, laterB.ID}, ids)
}

func testUserEmailUnique(t *testing.T, s repository.Store) {
	ctx := context.Background()
	first := mustCreateUser(t, s, NewUser("Ada", Base))

	dup := NewUser("Grace", Base)
	dup.Email = first.Email
	assert.ErrorIs(t, s.CreateUser(ctx, dup), repository.ErrEmailTaken)

	other := NewUser("Grace", Base)
	assert.NoError(t, s.CreateUser(ctx, other))
}

func testListUsers(t *testing.T, s repository.Store) {
	ctx := context.Background()
	second := mustCreateUser(t, s, NewUser("Second", Base.Add(time.Minute)))
	first := mustCreateUser(t, s, NewUser("First", Base))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)

	var ids []string
	for _, u := range users {
		if u.ID == first.ID || u.ID == second.ID {
			ids = append(ids, u.ID)
		}
	}
	assert.Equal(t, []string{first.ID, second.ID}, ids)
}

func testRegistrationLifecycle(t *testing.T, s repository.Store) {
	ctx := context.Background()
	event := mustCreateEvent(t, s, NewEvent("Meetup", "Lisbon", Base.Add(time.Hour), 5))
	alice := mustCreateUser(t, s, NewUser("Alice", Base))
	bob := mustCreateUser(t, s, NewUser("Bob", Base))

	regBob := newRegistration(event.ID, bob.ID, Base.Add(time.Second))
	require.NoError(t, s.CreateRegistration(ctx, regBob))
	require.NoError(t, s.CreateRegistration(ctx, newRegistration(event.ID, alice.ID, Base.Add(2*time.Second))))

	dup := newRegistration(event.ID, alice.ID, Base.Add(3*time.Second))
	assert.ErrorIs(t, s.CreateRegistration(ctx, dup), repository.ErrAlreadyRegistered)

	n, err := s.CountRegistrations(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	users, err := s.ListRegisteredUsers(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, bob.ID, users[0].ID)
	assert.Equal(t, bob.Email, users[0].Email)
	assert.Equal(t, alice.ID, users[1].ID)

	found, err := s.FindRegistration(ctx, event.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, regBob.ID, found.ID)

	require.NoError(t, s.DeleteRegistration(ctx, found.ID))
	_, err = s.FindRegistration(ctx, event.ID, bob.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, s.DeleteRegistration(ctx, found.ID), repository.ErrNotFound)

	n, err = s.CountRegistrations(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testRegistrationCapacity(t *testing.T, s repository.Store) {
	ctx := context.Background()
	event := mustCreateEvent(t, s, NewEvent("Tiny", "Oslo", Base.Add(time.Hour), 1))
	a := mustCreateUser(t, s, NewUser("A", Base))
	b := mustCreateUser(t, s, NewUser("B", Base))

	require.NoError(t, s.CreateRegistration(ctx, newRegistration(event.ID, a.ID, Base)))
	assert.ErrorIs(t, s.CreateRegistration(ctx, newRegistration(event.ID, b.ID, Base)), repository.ErrEventFull)

	n, err := s.CountRegistrations(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testRegistrationUnknownRefs(t *testing.T, s repository.Store) {
	ctx := context.Background()
	event := mustCreateEvent(t, s, NewEvent("Refs", "Rome", Base.Add(time.Hour), 3))
	user := mustCreateUser(t, s, NewUser("Known", Base))

	err := s.CreateRegistration(ctx, newRegistration(uuid.NewString(), user.ID, Base))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = s.CreateRegistration(ctx, newRegistration(event.ID, uuid.NewString(), Base))
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func testConcurrentRegistrations(t *testing.T, s repository.Store) {
	ctx := context.Background()
	const capacity, attempts = 5, 20

	event := mustCreateEvent(t, s, NewEvent("Rush", "Tokyo", Base.Add(time.Hour), capacity))
	users := make([]*model.User, attempts)
	for i := range users {
		users[i] = mustCreateUser(t, s, NewUser("rush", Base))
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		booked  int
		full    int
		unknown []error
	)
	for _, u := range users {
		wg.Add(1)
		go func(u *model.User) {
			defer wg.Done()
			err := s.CreateRegistration(ctx, newRegistration(event.ID, u.ID, Base))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				booked++
			case errors.Is(err, repository.ErrEventFull):
				full++
			default:
				unknown = append(unknown, err)
			}
		}(u)
	}
	wg.Wait()

	require.Empty(t, unknown)
	assert.Equal(t, capacity, booked)
	assert.Equal(t, attempts-capacity, full)

	n, err := s.CountRegistrations(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, capacity, n)
}
