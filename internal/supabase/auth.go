package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// AuthError indicates that authentication has failed or a session has
// expired. It is returned when the backend answers 401 or rejects a
// credential grant.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s", e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Session holds the tokens and identity of a signed-in user.
type Session struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	Email        string
	ExpiresAt    time.Time
}

// Expired reports whether the access token has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// tokenResponse is the GoTrue token endpoint response shape.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// toSession converts a token response into a Session.
func (r *tokenResponse) toSession(now time.Time) *Session {
	s := &Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		UserID:       r.User.ID,
		Email:        r.User.Email,
	}
	if r.ExpiresIn > 0 {
		s.ExpiresAt = now.Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return s
}

// SignIn exchanges an email/password pair for a session via the
// password grant and installs the session on the client.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var resp tokenResponse
	body := map[string]string{"email": email, "password": password}

	_, err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", nil, body, &resp)
	if err != nil {
		return nil, fmt.Errorf("signing in: %w", err)
	}
	if resp.AccessToken == "" || resp.User.ID == "" {
		return nil, &AuthError{Message: "sign-in response missing token or user"}
	}

	session := resp.toSession(time.Now())
	c.SetSession(session)
	return session, nil
}

// RefreshSession exchanges a refresh token for a fresh session and
// installs it on the client. Used to restore a persisted session at
// startup without prompting for credentials.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	var resp tokenResponse
	body := map[string]string{"refresh_token": refreshToken}

	_, err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", nil, body, &resp)
	if err != nil {
		return nil, fmt.Errorf("refreshing session: %w", err)
	}
	if resp.AccessToken == "" || resp.User.ID == "" {
		return nil, &AuthError{Message: "refresh response missing token or user"}
	}

	session := resp.toSession(time.Now())
	c.SetSession(session)
	return session, nil
}

// SignOut revokes the current session server-side and clears it from
// the client. A revocation failure is returned but the local session
// is cleared regardless.
func (c *Client) SignOut(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, nil)
	c.SetSession(nil)
	if err != nil {
		return fmt.Errorf("signing out: %w", err)
	}
	return nil
}
