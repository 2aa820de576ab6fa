package devbackend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/GadCoder/BikeRoutes/internal/domain"
)

const accessTokenType = "access"

type user struct {
	id     string
	email  string
	hash   []byte
	active bool
}

func (u *user) out() domain.User {
	return domain.User{ID: u.id, Email: u.email}
}

type refreshToken struct {
	userID    string
	expiresAt time.Time
	revoked   bool
	rotated   bool
}

// Session is the body returned by register, login, and refresh.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	User         domain.User `json:"user"`
}

// Credentials is the register and login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accessClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// Register creates an account and signs it in. Emails are trimmed and
// lowercased before the uniqueness check.
func (b *Backend) Register(ctx context.Context, in Credentials) (Session, error) {
	email := normalizeEmail(in.Email)
	if n := len(email); n < 3 || n > 320 {
		return Session{}, fmt.Errorf("devbackend.Backend.Register: %w", reject(domain.ErrValidation, "email must be 3 to 320 characters"))
	}
	if n := len(in.Password); n < 8 || n > 128 {
		return Session{}, fmt.Errorf("devbackend.Backend.Register: %w", reject(domain.ErrValidation, "password must be 8 to 128 characters"))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), b.cost)
	if err != nil {
		return Session{}, fmt.Errorf("devbackend.Backend.Register: hash password: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.byEmail[email]; taken {
		return Session{}, fmt.Errorf("devbackend.Backend.Register: %w", reject(domain.ErrConflict, "email_already_registered"))
	}
	u := &user{id: uuid.NewString(), email: email, hash: hash, active: true}
	b.users[u.id] = u
	b.byEmail[email] = u.id
	b.logger.InfoContext(ctx, "user registered", "user_id", u.id)

	s, err := b.issue(u)
	if err != nil {
		return Session{}, fmt.Errorf("devbackend.Backend.Register: %w", err)
	}
	return s, nil
}

// Login verifies the password and issues a new session.
func (b *Backend) Login(ctx context.Context, in Credentials) (Session, error) {
	email := normalizeEmail(in.Email)

	b.mu.RLock()
	u := b.users[b.byEmail[email]]
	b.mu.RUnlock()
	if u == nil || bcrypt.CompareHashAndPassword(u.hash, []byte(in.Password)) != nil {
		return Session{}, fmt.Errorf("devbackend.Backend.Login: %w", reject(domain.ErrUnauthorized, "invalid_credentials"))
	}
	if !u.active {
		return Session{}, fmt.Errorf("devbackend.Backend.Login: %w", reject(domain.ErrForbidden, "inactive_user"))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	s, err := b.issue(u)
	if err != nil {
		return Session{}, fmt.Errorf("devbackend.Backend.Login: %w", err)
	}
	return s, nil
}

// Refresh exchanges a refresh token for a new session. The presented token
// is revoked and replaced. Presenting a token that was already rotated or
// revoked revokes every live token of its owner.
func (b *Backend) Refresh(ctx context.Context, plain string) (Session, error) {
	if len(plain) < 10 {
		return Session{}, fmt.Errorf("devbackend.Backend.Refresh: %w", reject(domain.ErrValidation, "refresh_token is too short"))
	}
	key := hashToken(plain)

	b.mu.Lock()
	defer b.mu.Unlock()
	rt := b.tokens[key]
	if rt == nil {
		return Session{}, fmt.Errorf("devbackend.Backend.Refresh: %w", reject(domain.ErrUnauthorized, "invalid_refresh_token"))
	}
	if rt.revoked || rt.rotated {
		n := 0
		for _, other := range b.tokens {
			if other.userID == rt.userID && !other.revoked {
				other.revoked = true
				n++
			}
		}
		b.logger.WarnContext(ctx, "refresh token reuse detected", "user_id", rt.userID, "revoked", n)
		return Session{}, fmt.Errorf("devbackend.Backend.Refresh: %w", reject(domain.ErrUnauthorized, "refresh_reuse_detected"))
	}
	if !b.timestamp().Before(rt.expiresAt) {
		return Session{}, fmt.Errorf("devbackend.Backend.Refresh: %w", reject(domain.ErrUnauthorized, "refresh_expired"))
	}
	u := b.users[rt.userID]
	if u == nil || !u.active {
		return Session{}, fmt.Errorf("devbackend.Backend.Refresh: %w", reject(domain.ErrUnauthorized, "user_not_found"))
	}

	s, err := b.issue(u)
	if err != nil {
		return Session{}, fmt.Errorf("devbackend.Backend.Refresh: %w", err)
	}
	rt.revoked, rt.rotated = true, true
	return s, nil
}

// Me returns the account behind userID.
func (b *Backend) Me(_ context.Context, userID string) (domain.User, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	u := b.users[userID]
	if u == nil || !u.active {
		return domain.User{}, fmt.Errorf("devbackend.Backend.Me: %w", reject(domain.ErrUnauthorized, "user_not_found"))
	}
	return u.out(), nil
}

// VerifyAccessToken checks the signature, expiry, and type of an access
// token and returns its subject. It matches middleware.TokenVerifier.
func (b *Backend) VerifyAccessToken(token string) (string, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return b.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(b.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("devbackend.Backend.VerifyAccessToken: %w", reject(domain.ErrUnauthorized, "invalid_token"))
	}
	if claims.Type != accessTokenType || claims.Subject == "" {
		return "", fmt.Errorf("devbackend.Backend.VerifyAccessToken: %w", reject(domain.ErrUnauthorized, "invalid_token"))
	}

	b.mu.RLock()
	u := b.users[claims.Subject]
	b.mu.RUnlock()
	if u == nil || !u.active {
		return "", fmt.Errorf("devbackend.Backend.VerifyAccessToken: %w", reject(domain.ErrUnauthorized, "user_not_found"))
	}
	return claims.Subject, nil
}

// Deactivate disables an account. Existing tokens stop working immediately.
func (b *Backend) Deactivate(userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.users[userID]
	if u == nil {
		return fmt.Errorf("devbackend.Backend.Deactivate: %w", domain.ErrNotFound)
	}
	u.active = false
	return nil
}

// issue signs a new access token and stores a new refresh token for u.
// Callers hold b.mu for writing.
func (b *Backend) issue(u *user) (Session, error) {
	now := b.timestamp()
	claims := accessClaims{
		Type: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.id,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(b.accessTTL)),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign access token: %w", err)
	}

	plain, err := randomToken(48)
	if err != nil {
		return Session{}, fmt.Errorf("generate refresh token: %w", err)
	}
	b.tokens[hashToken(plain)] = &refreshToken{userID: u.id, expiresAt: now.Add(b.refreshTTL)}

	return Session{
		AccessToken:  access,
		RefreshToken: plain,
		TokenType:    "bearer",
		User:         u.out(),
	}, nil
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

