package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sentinelstack/apigateway/internal/config"
	"github.com/sentinelstack/apigateway/internal/domain/user"
	"github.com/sentinelstack/apigateway/internal/ierr"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AccessClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService is the identity provider: it exchanges credentials for
// bearer tokens and resolves bearer tokens back to caller ids.
type AuthService struct {
	users  user.Repository
	secret []byte
	ttl    time.Duration
	issuer string
	logger *zap.Logger
	now    func() time.Time
}

func NewAuthService(users user.Repository, cfg *config.AuthConfig, logger *zap.Logger) (*AuthService, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("auth JWT secret is required")
	}

	return &AuthService{
		users:  users,
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
		issuer: cfg.Issuer,
		logger: logger.Named("AuthService"),
		now:    time.Now,
	}, nil
}

// Login verifies the password and issues a signed bearer token whose
// subject is the caller id.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ierr.ErrUserNotFound) {
			return "", ierr.ErrInvalidCredentials
		}
		s.logger.Error("Failed to load user for login", zap.String("username", username), zap.Error(err))
		return "", fmt.Errorf("repository error loading user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", ierr.ErrInvalidCredentials
	}

	now := s.now().UTC()
	claims := AccessClaims{
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		s.logger.Error("Failed to sign access token", zap.String("username", username), zap.Error(err))
		return "", fmt.Errorf("%w: failed signing token: %v", ierr.ErrInternalServer, err)
	}

	s.logger.Info("Issued access token", zap.String("username", username), zap.Int64("user_id", u.ID))
	return token, nil
}

// Verify parses and validates a bearer token and returns the caller id it
// was issued to.
func (s *AuthService) Verify(ctx context.Context, rawToken string) (int64, error) {
	token, err := jwt.ParseWithClaims(rawToken, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ierr.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return 0, ierr.ErrTokenInvalidClaims
	}

	callerID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: non-numeric subject", ierr.ErrTokenInvalidClaims)
	}

	return callerID, nil
}
