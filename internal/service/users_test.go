package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-registration/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, CreateUserInput{Name: "  Ada ", Email: " ada@example.com "})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "ada@example.com", user.Email)

	_, err = f.users.CreateUser(ctx, CreateUserInput{Name: "Other Ada", Email: "ada@example.com"})
	assertKind(t, err, apperr.KindConflict)
	assert.True(t, errors.Is(err, ErrEmailTaken))
}

func TestCreateUserRequiresNameAndEmail(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		in   CreateUserInput
	}{
		{"missing name", CreateUserInput{Email: "x@example.com"}},
		{"missing email", CreateUserInput{Name: "X"}},
		{"blank name", CreateUserInput{Name: "   ", Email: "x@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.users.CreateUser(context.Background(), tt.in)
			assertKind(t, err, apperr.KindInvalidArgument)
			assert.True(t, errors.Is(err, ErrNameEmailRequired))
		})
	}
}

func TestListUsersOldestFirst(t *testing.T) {
	f := newFixture(t)

	users, err := f.users.ListUsers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)

	first := f.createUser(t, "first")
	f.clock.Advance(time.Minute)
	second := f.createUser(t, "second")

	users, err = f.users.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, first, users[0].ID)
	assert.Equal(t, second, users[1].ID)
}
