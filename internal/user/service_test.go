package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/hotel-booking-backend/internal/auth"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*User)
	return u, args.Error(1)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*User)
	return u, args.Error(1)
}

func (m *mockRepo) Create(ctx context.Context, u *User) error {
	args := m.Called(ctx, u)
	if args.Error(0) == nil {
		u.ID = "user-1"
		u.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *mockRepo) UpdateLastLogin(ctx context.Context, id string, t time.Time) error {
	return m.Called(ctx, id, t).Error(0)
}

func newTestService(repo Repository) Service {
	return NewService(repo, auth.NewBcryptPasswordHasherWithCost(4))
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("GetByEmail", ctx, "guest@example.com").Return(nil, ErrNotFound)
		repo.On("Create", ctx, mock.AnythingOfType("*user.User")).Return(nil)

		u, err := newTestService(repo).Register(ctx, "  Guest@Example.com ", "password123", " Ann ")
		require.NoError(t, err)
		assert.Equal(t, "user-1", u.ID)
		assert.Equal(t, "guest@example.com", u.Email)
		require.NotNil(t, u.DisplayName)
		assert.Equal(t, "Ann", *u.DisplayName)
		assert.NotEqual(t, "password123", u.PasswordHash)
		repo.AssertExpectations(t)
	})

	t.Run("EmailTaken", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("GetByEmail", ctx, "guest@example.com").Return(&User{ID: "x"}, nil)

		_, err := newTestService(repo).Register(ctx, "guest@example.com", "password123", "")
		assert.ErrorIs(t, err, ErrEmailAlreadyUsed)
	})

	t.Run("ShortPassword", func(t *testing.T) {
		_, err := newTestService(new(mockRepo)).Register(ctx, "guest@example.com", "short", "")
		assert.ErrorIs(t, err, ErrPasswordTooShort)
	})

	t.Run("MissingEmail", func(t *testing.T) {
		_, err := newTestService(new(mockRepo)).Register(ctx, "   ", "password123", "")
		assert.ErrorIs(t, err, ErrEmailRequired)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	hash, err := auth.NewBcryptPasswordHasherWithCost(4).Hash("password123")
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("GetByEmail", ctx, "guest@example.com").
			Return(&User{ID: "user-1", Email: "guest@example.com", PasswordHash: hash, IsActive: true}, nil)
		repo.On("UpdateLastLogin", ctx, "user-1", mock.Anything).Return(nil)

		u, err := newTestService(repo).Login(ctx, "guest@example.com", "password123")
		require.NoError(t, err)
		assert.NotNil(t, u.LastLoginAt)
	})

	t.Run("LastLoginFailureIgnored", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("GetByEmail", ctx, "guest@example.com").
			Return(&User{ID: "user-1", PasswordHash: hash, IsActive: true}, nil)
		repo.On("UpdateLastLogin", ctx, "user-1", mock.Anything).Return(errors.New("db down"))

		_, err := newTestService(repo).Login(ctx, "guest@example.com", "password123")
		assert.NoError(t, err)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("GetByEmail", ctx, "guest@example.com").
			Return(&User{ID: "user-1", PasswordHash: hash, IsActive: true}, nil)

		_, err := newTestService(repo).Login(ctx, "guest@example.com", "nope-nope")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, ErrNotFound)

		_, err := newTestService(repo).Login(ctx, "ghost@example.com", "password123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Inactive", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("GetByEmail", ctx, "guest@example.com").
			Return(&User{ID: "user-1", PasswordHash: hash, IsActive: false}, nil)

		_, err := newTestService(repo).Login(ctx, "guest@example.com", "password123")
		assert.ErrorIs(t, err, ErrInactiveUser)
	})
}
