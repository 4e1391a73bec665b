package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/samosalabs/licenseserver/modules/auth"
)

func newTestService(t *testing.T, opts ...auth.Option) *auth.Service {
	t.Helper()
	opts = append([]auth.Option{auth.WithBcryptCost(bcrypt.MinCost)}, opts...)
	return auth.NewService(auth.NewMemoryStorage(), opts...)
}

func TestService_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates user and issues token", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)

		user, token, err := svc.Register(context.Background(), "Alice@Example.com", "password123", "Alice", "Smith")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, "Alice", user.FirstName)
		assert.False(t, user.IsAdmin)
		assert.NotEmpty(t, token)

		principal, err := svc.Identify(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, principal.UserID)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)

		_, _, err := svc.Register(context.Background(), "dup@example.com", "password123", "", "")
		require.NoError(t, err)

		_, _, err = svc.Register(context.Background(), "DUP@example.com", "otherpassword", "", "")
		assert.ErrorIs(t, err, auth.ErrEmailAlreadyTaken)
	})

	t.Run("rejects empty email", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)

		_, _, err := svc.Register(context.Background(), "   ", "password123", "", "")
		assert.ErrorIs(t, err, auth.ErrEmailRequired)
	})

	t.Run("rejects short password", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)

		_, _, err := svc.Register(context.Background(), "short@example.com", "1234567", "", "")
		assert.ErrorIs(t, err, auth.ErrPasswordTooShort)
	})

	t.Run("runs after-register hook", func(t *testing.T) {
		t.Parallel()
		var hooked *auth.User
		svc := newTestService(t, auth.WithAfterRegister(func(_ context.Context, u *auth.User) error {
			hooked = u
			return nil
		}))

		user, _, err := svc.Register(context.Background(), "hook@example.com", "password123", "", "")
		require.NoError(t, err)
		require.NotNil(t, hooked)
		assert.Equal(t, user.ID, hooked.ID)
	})

	t.Run("hook failure does not fail registration", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t, auth.WithAfterRegister(func(context.Context, *auth.User) error {
			return errors.New("boom")
		}))

		_, token, err := svc.Register(context.Background(), "hookfail@example.com", "password123", "", "")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})
}

func TestService_Login(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	_, _, err := svc.Register(context.Background(), "login@example.com", "password123", "", "")
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		user, token, err := svc.Login(context.Background(), "login@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, "login@example.com", user.Email)
		assert.NotEmpty(t, token)
	})

	t.Run("normalizes email", func(t *testing.T) {
		t.Parallel()
		_, _, err := svc.Login(context.Background(), "  LOGIN@example.com ", "password123")
		require.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		_, _, err := svc.Login(context.Background(), "login@example.com", "wrongpassword")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email yields same error as wrong password", func(t *testing.T) {
		t.Parallel()
		_, _, err := svc.Login(context.Background(), "nobody@example.com", "password123")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestService_Logout(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	_, token, err := svc.Register(context.Background(), "logout@example.com", "password123", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), token))

	_, err = svc.Identify(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	// Logging out an already-deleted token is a no-op.
	assert.NoError(t, svc.Logout(context.Background(), token))
}

func TestService_Identify(t *testing.T) {
	t.Parallel()

	t.Run("empty token", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)
		_, err := svc.Identify(context.Background(), "")
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("unknown token", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t)
		_, err := svc.Identify(context.Background(), "deadbeef")
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("expired token is rejected and deleted", func(t *testing.T) {
		t.Parallel()
		storage := auth.NewMemoryStorage()
		svc := auth.NewService(storage, auth.WithBcryptCost(bcrypt.MinCost), auth.WithTokenTTL(-time.Minute))

		_, token, err := svc.Register(context.Background(), "expired@example.com", "password123", "", "")
		require.NoError(t, err)

		_, err = svc.Identify(context.Background(), token)
		assert.ErrorIs(t, err, auth.ErrUnauthorized)

		_, err = storage.GetToken(context.Background(), token)
		assert.ErrorIs(t, err, auth.ErrTokenNotFound)
	})
}
