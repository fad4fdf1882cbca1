package api

import (
	"context"
	"net/mail"
	"strings"

	"github.com/grovetools/fleetview/errors"
	"github.com/grovetools/fleetview/pkg/models"
	"github.com/grovetools/fleetview/pkg/session"
)

// MinPasswordLength is the shortest password the login form accepts.
const MinPasswordLength = 8

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// ValidateCredentials applies the login form rules before any request is made.
func ValidateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.InvalidInput("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return errors.InvalidInput("invalid email address").WithDetail("email", email)
	}
	if password == "" {
		return errors.InvalidInput("password is required")
	}
	if len(password) < MinPasswordLength {
		return errors.InvalidInput("password must be at least 8 characters")
	}
	return nil
}

// Login exchanges credentials for a session. It is not retried; a rejection
// surfaces the backend's message as AUTH_FAILED.
func (c *Client) Login(ctx context.Context, email, password string) (*session.Session, error) {
	if err := ValidateCredentials(email, password); err != nil {
		return nil, err
	}

	var resp loginResponse
	err := c.WithSession(nil).postJSON(ctx, "/api/auth/login", loginRequest{
		Email:    strings.TrimSpace(email),
		Password: password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, errors.AuthFailed("backend returned no token")
	}

	c.logger.WithField("user", resp.User.Email).Info("Logged in")
	return &session.Session{
		Token:    resp.Token,
		User:     resp.User,
		Server:   c.baseURL,
		IssuedAt: c.clock.Now(),
	}, nil
}
