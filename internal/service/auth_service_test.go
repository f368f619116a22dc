package service

import (
	"context"
	"testing"
	"time"

	"github.com/sentinelstack/apigateway/internal/config"
	"github.com/sentinelstack/apigateway/internal/domain/user"
	"github.com/sentinelstack/apigateway/internal/ierr"
	"github.com/sentinelstack/apigateway/internal/storage/memstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(t *testing.T, secret string) (*AuthService, *user.User) {
	t.Helper()

	users := memstorage.NewUserRepositoryMock()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	u := users.Seed(&user.User{
		Username:     "alice",
		PasswordHash: string(hash),
		Role:         "user",
	})

	svc, err := NewAuthService(users, &config.AuthConfig{
		JWTSecret: secret,
		TokenTTL:  time.Hour,
		Issuer:    "apigateway-test",
	}, zap.NewNop())
	require.NoError(t, err)

	return svc, u
}

func TestAuthService_RequiresSecret(t *testing.T) {
	_, err := NewAuthService(memstorage.NewUserRepositoryMock(), &config.AuthConfig{}, zap.NewNop())
	assert.Error(t, err)
}

func TestLoginAndVerify(t *testing.T) {
	svc, u := newTestAuthService(t, "test-signing-secret")

	token, err := svc.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	callerID, err := svc.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, callerID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := newTestAuthService(t, "test-signing-secret")

	_, err := svc.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ierr.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody", "s3cret")
	assert.ErrorIs(t, err, ierr.ErrInvalidCredentials)
}

func TestVerify_RejectsGarbageAndForeignTokens(t *testing.T) {
	svc, _ := newTestAuthService(t, "test-signing-secret")

	_, err := svc.Verify(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ierr.ErrInvalidToken)

	other, _ := newTestAuthService(t, "a-different-secret")
	foreign, err := other.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), foreign)
	assert.ErrorIs(t, err, ierr.ErrInvalidToken)
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	svc, _ := newTestAuthService(t, "test-signing-secret")

	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := svc.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ierr.ErrInvalidToken)
}
