package devbackend_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GadCoder/BikeRoutes/internal/devbackend"
	"github.com/GadCoder/BikeRoutes/internal/domain"
)

// ---- Register ----

func TestRegister_IssuesSession(t *testing.T) {
	b, _ := newBackend(t)

	s, err := b.Register(context.Background(), devbackend.Credentials{Email: "  Rider@Example.COM ", Password: "correct horse"})

	require.NoError(t, err)
	assert.Equal(t, "bearer", s.TokenType)
	assert.Equal(t, "rider@example.com", s.User.Email)
	assert.NotEmpty(t, s.User.ID)
	assert.NotEmpty(t, s.RefreshToken)

	sub, err := b.VerifyAccessToken(s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, sub)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	b, _ := newBackend(t)
	register(t, b, "rider@example.com")

	_, err := b.Register(context.Background(), devbackend.Credentials{Email: "RIDER@example.com", Password: "another pass"})

	assertRejected(t, err, domain.ErrConflict, "email_already_registered")
}

func TestRegister_Validation(t *testing.T) {
	b, _ := newBackend(t)

	tests := []struct {
		name string
		in   devbackend.Credentials
	}{
		{"short password", devbackend.Credentials{Email: "rider@example.com", Password: "short"}},
		{"short email", devbackend.Credentials{Email: " a ", Password: "correct horse"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Register(context.Background(), tt.in)

			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

// ---- Login ----

func TestLogin_Succeeds(t *testing.T) {
	b, _ := newBackend(t)
	id := register(t, b, "rider@example.com")

	s, err := b.Login(context.Background(), devbackend.Credentials{Email: "Rider@example.com", Password: "correct horse"})

	require.NoError(t, err)
	assert.Equal(t, id, s.User.ID)
}

func TestLogin_BadCredentials(t *testing.T) {
	b, _ := newBackend(t)
	register(t, b, "rider@example.com")

	_, err := b.Login(context.Background(), devbackend.Credentials{Email: "rider@example.com", Password: "wrong password"})
	assertRejected(t, err, domain.ErrUnauthorized, "invalid_credentials")

	_, err = b.Login(context.Background(), devbackend.Credentials{Email: "nobody@example.com", Password: "correct horse"})
	assertRejected(t, err, domain.ErrUnauthorized, "invalid_credentials")
}

func TestLogin_InactiveUser(t *testing.T) {
	b, _ := newBackend(t)
	id := register(t, b, "rider@example.com")
	require.NoError(t, b.Deactivate(id))

	_, err := b.Login(context.Background(), devbackend.Credentials{Email: "rider@example.com", Password: "correct horse"})

	assertRejected(t, err, domain.ErrForbidden, "inactive_user")
}

// ---- Refresh ----

func TestRefresh_RotatesToken(t *testing.T) {
	b, _ := newBackend(t)
	first, err := b.Register(context.Background(), devbackend.Credentials{Email: "rider@example.com", Password: "correct horse"})
	require.NoError(t, err)

	second, err := b.Refresh(context.Background(), first.RefreshToken)

	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.Equal(t, first.User, second.User)
}

func TestRefresh_ReuseRevokesFamily(t *testing.T) {
	b, _ := newBackend(t)
	first, err := b.Register(context.Background(), devbackend.Credentials{Email: "rider@example.com", Password: "correct horse"})
	require.NoError(t, err)
	second, err := b.Refresh(context.Background(), first.RefreshToken)
	require.NoError(t, err)

	_, err = b.Refresh(context.Background(), first.RefreshToken)
	assertRejected(t, err, domain.ErrUnauthorized, "refresh_reuse_detected")

	// The legitimate successor was revoked along with it.
	_, err = b.Refresh(context.Background(), second.RefreshToken)
	assertRejected(t, err, domain.ErrUnauthorized, "refresh_reuse_detected")
}

func TestRefresh_Expired(t *testing.T) {
	b, clk := newBackend(t)
	s, err := b.Register(context.Background(), devbackend.Credentials{Email: "rider@example.com", Password: "correct horse"})
	require.NoError(t, err)

	clk.Advance(25 * time.Hour)
	_, err = b.Refresh(context.Background(), s.RefreshToken)

	assertRejected(t, err, domain.ErrUnauthorized, "refresh_expired")
}

func TestRefresh_UnknownToken(t *testing.T) {
	b, _ := newBackend(t)

	_, err := b.Refresh(context.Background(), "not-a-real-refresh-token")

	assertRejected(t, err, domain.ErrUnauthorized, "invalid_refresh_token")
}

// ---- VerifyAccessToken ----

func TestVerifyAccessToken_Expired(t *testing.T) {
	b, clk := newBackend(t)
	s, err := b.Register(context.Background(), devbackend.Credentials{Email: "rider@example.com", Password: "correct horse"})
	require.NoError(t, err)

	clk.Advance(16 * time.Minute)
	_, err = b.VerifyAccessToken(s.AccessToken)

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerifyAccessToken_ForeignSecret(t *testing.T) {
	other, _ := newBackend(t)
	s, err := other.Register(context.Background(), devbackend.Credentials{Email: "rider@example.com", Password: "correct horse"})
	require.NoError(t, err)

	b, err := devbackend.New(devbackend.Options{JWTSecret: "different", BcryptCost: 4})
	require.NoError(t, err)
	_, err = b.VerifyAccessToken(s.AccessToken)

	assertRejected(t, err, domain.ErrUnauthorized, "invalid_token")
}

func TestVerifyAccessToken_RejectsNonAccessType(t *testing.T) {
	b, clk := newBackend(t)
	id := register(t, b, "rider@example.com")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": id,
		"typ": "refresh",
		"exp": clk.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = b.VerifyAccessToken(token)

	assertRejected(t, err, domain.ErrUnauthorized, "invalid_token")
}

func TestVerifyAccessToken_DeactivatedUser(t *testing.T) {
	b, _ := newBackend(t)
	s, err := b.Register(context.Background(), devbackend.Credentials{Email: "rider@example.com", Password: "correct horse"})
	require.NoError(t, err)
	require.NoError(t, b.Deactivate(s.User.ID))

	_, err = b.VerifyAccessToken(s.AccessToken)

	assertRejected(t, err, domain.ErrUnauthorized, "user_not_found")
}

// ---- Me ----

func TestMe(t *testing.T) {
	b, _ := newBackend(t)
	id := register(t, b, "rider@example.com")

	u, err := b.Me(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, domain.User{ID: id, Email: "rider@example.com"}, u)

	_, err = b.Me(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
