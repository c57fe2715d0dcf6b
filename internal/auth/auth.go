// Package auth forwards login credentials to the backend and interprets the
// answer. It keeps no session of its own.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "github.com/RedaDC/Trade-SENS-AI/internal/platform/http"
	"github.com/RedaDC/Trade-SENS-AI/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLoginFailed        = errors.New("login failed")
	ErrMissingCredentials = errors.New("email and password are required")
)

// Text shown to the user for a failed login
const (
	InvalidCredentialsMessage = "Invalid credentials"
	LoginFailedMessage        = "Login failed. Please try again."
)

// Message returns the text a login form shows for err
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return InvalidCredentialsMessage
	case errors.Is(err, ErrMissingCredentials):
		return "Email and password are required"
	default:
		return LoginFailedMessage
	}
}

// Authenticator logs users in
type Authenticator struct {
	client models.LoginClient
	logger zerolog.Logger
}

// New creates an Authenticator on top of a login client
func New(client models.LoginClient) *Authenticator {
	return &Authenticator{
		client: client,
		logger: log.With().Str("component", "auth").Logger(),
	}
}

// Login returns the token for email/password. A rejected login or a reply
// without a token is ErrInvalidCredentials; transport trouble is
// ErrLoginFailed wrapping the cause.
func (a *Authenticator) Login(ctx context.Context, email, password string) (models.LoginResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.LoginResponse{}, ErrMissingCredentials
	}

	resp, err := a.client.Login(ctx, email, password)
	if err != nil {
		var statusErr *httpClient.HTTPStatusError
		if errors.As(err, &statusErr) && rejected(statusErr.StatusCode) {
			a.logger.Info().Str("email", email).Int("status", statusErr.StatusCode).Msg("Login rejected")
			return models.LoginResponse{}, ErrInvalidCredentials
		}
		a.logger.Error().Err(err).Str("email", email).Msg("Login request failed")
		return models.LoginResponse{}, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	if resp.Token == "" {
		return models.LoginResponse{}, ErrInvalidCredentials
	}

	a.logger.Info().Str("email", email).Int64("user_id", resp.UserID).Msg("Login succeeded")
	return resp, nil
}

func rejected(status int) bool {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	default:
		return false
	}
}
