// Package auth is the authentication core: credential verification against
// the user store, issuance of signed session tokens, and verification of
// presented tokens back to a live user identity.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Kvnbbg/cfa/internal/store"
)

const (
	defaultIssuer   = "cfa"
	defaultTokenTTL = 24 * time.Hour
)

// Claims is the signed payload of a session token. The role claim is carried
// for observability only; authorization reads the role re-resolved from the
// store at verification time.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Service issues and verifies session tokens and checks login credentials.
// It is stateless apart from the injected signing key; methods are safe for
// concurrent use.
type Service struct {
	users  store.UserStore
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithIssuer overrides the issuer claim.
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithClock overrides the time source (useful for expiry tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the authentication service. The signing key lives
// for the process lifetime; an empty key is a configuration error.
func NewService(users store.UserStore, key []byte, opts ...Option) (*Service, error) {
	if len(key) == 0 {
		return nil, errors.New("auth: signing key is required")
	}
	if users == nil {
		return nil, errors.New("auth: user store is required")
	}
	s := &Service{
		users:  users,
		key:    key,
		issuer: defaultIssuer,
		ttl:    defaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the configured token lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue signs a session token for the user. The signature covers the whole
// claim set; flipping any payload or signature bit fails verification.
func (s *Service) Issue(u *store.User) (string, time.Time, error) {
	if u == nil || u.ID == "" {
		return "", time.Time{}, errors.New("auth: user is required")
	}
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify validates the token signature, then expiry, then re-resolves the
// subject through the user store. The returned user, not the embedded claims,
// is ground truth for role and existence: a deleted user invalidates every
// outstanding token immediately.
func (s *Service) Verify(ctx context.Context, token string) (*store.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenMalformed
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenMalformed
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.issuer))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignatureInvalid
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrInvalidToken
		}
	}
	if !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.users.Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserGone
		}
		return nil, err
	}
	return user, nil
}

// Login checks credentials and issues a token. Unknown email and wrong
// password both return ErrInvalidCredentials; only store or signing failures
// surface as anything else.
func (s *Service) Login(ctx context.Context, email, password string) (string, time.Time, *store.User, error) {
	email = store.NormalizeEmail(email)
	if email == "" || password == "" {
		return "", time.Time{}, nil, ErrInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", time.Time{}, nil, ErrInvalidCredentials
		}
		return "", time.Time{}, nil, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return "", time.Time{}, nil, ErrInvalidCredentials
	}
	token, expiresAt, err := s.Issue(user)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	return token, expiresAt, user, nil
}

// NewEphemeralKey generates a random signing key for non-production runs.
// Tokens signed with it do not survive a process restart.
func NewEphemeralKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}
