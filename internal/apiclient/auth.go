package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/GadCoder/BikeRoutes/internal/domain"
)

// SessionOut is the token response of register, login, and refresh.
type SessionOut struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	User         domain.User `json:"user"`
}

// Session converts the response into a domain.Session.
func (s SessionOut) Session() domain.Session {
	return domain.Session{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken, User: s.User}
}

type credentialsIn struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshIn struct {
	RefreshToken string `json:"refresh_token"`
}

// Register creates an account and returns its first session.
func (c *Client) Register(ctx context.Context, email, password string) (domain.Session, error) {
	var out SessionOut
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, "", credentialsIn{Email: email, Password: password}, &out); err != nil {
		return domain.Session{}, fmt.Errorf("apiclient.Client.Register: %w", err)
	}
	return out.Session(), nil
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (domain.Session, error) {
	var out SessionOut
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, "", credentialsIn{Email: email, Password: password}, &out); err != nil {
		return domain.Session{}, fmt.Errorf("apiclient.Client.Login: %w", err)
	}
	return out.Session(), nil
}

// Refresh exchanges a refresh token for a new session. The server rotates
// the refresh token; the old one stops working.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (domain.Session, error) {
	var out SessionOut
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, "", refreshIn{RefreshToken: refreshToken}, &out); err != nil {
		return domain.Session{}, fmt.Errorf("apiclient.Client.Refresh: %w", err)
	}
	return out.Session(), nil
}

// Me returns the user the access token belongs to.
func (c *Client) Me(ctx context.Context, accessToken string) (domain.User, error) {
	var out domain.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, accessToken, nil, &out); err != nil {
		return domain.User{}, fmt.Errorf("apiclient.Client.Me: %w", err)
	}
	return out, nil
}
