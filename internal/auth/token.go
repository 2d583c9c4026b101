package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lcsmdq/MyPlan/internal/models"
)

// DefaultTokenTTL is the access token lifetime when none is configured.
const DefaultTokenTTL = 10080 * time.Minute

// TokenService issues and verifies HS256 bearer tokens.
type TokenService struct {
	secret  []byte
	ttl     time.Duration
	nowFunc func() time.Time
}

// TokenServiceArgs are the required arguments for creating a TokenService.
type TokenServiceArgs struct {
	Secret string
	TTL    time.Duration
}

// TokenServiceOptArgs are the optional arguments for creating a TokenService.
type TokenServiceOptArgs = func(*TokenService)

// WithNowFunc sets the clock used for iat/exp. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) TokenServiceOptArgs {
	return func(s *TokenService) {
		s.nowFunc = nowFunc
	}
}

// NewTokenService creates a new TokenService.
func NewTokenService(args TokenServiceArgs, optArgs ...TokenServiceOptArgs) (*TokenService, error) {
	if args.Secret == "" {
		return nil, errors.New("token secret is empty")
	}
	ttl := args.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	s := &TokenService{
		secret:  []byte(args.Secret),
		ttl:     ttl,
		nowFunc: time.Now,
	}
	for _, opt := range optArgs {
		opt(s)
	}
	return s, nil
}

// Issue signs a token whose subject is userID.
func (s *TokenService) Issue(userID uuid.UUID) (string, time.Time, error) {
	now := s.nowFunc()
	expiresAt := now.Add(s.ttl)

	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and expiry and returns the subject.
func (s *TokenService) Verify(tokenString string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.nowFunc),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token: %w", models.ErrUnauthorized)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token subject: %w", models.ErrUnauthorized)
	}
	return userID, nil
}
