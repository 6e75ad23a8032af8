package oauthflow

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is returned when the user denied the authorization request.
	ErrCancelled = errors.New("authorization cancelled by user")

	// ErrStateMismatch is returned when the redirect carries an unexpected state value.
	ErrStateMismatch = errors.New("authorization state mismatch")

	// ErrNoRefreshToken is returned by Refresh when there is nothing to refresh with.
	ErrNoRefreshToken = errors.New("no refresh token")
)

// AuthorizationError is an error response from the authorization endpoint.
type AuthorizationError struct {
	Code        string
	Description string
}

func (e *AuthorizationError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization failed: %s: %s", e.Code, e.Description)
	}
	return "authorization failed: " + e.Code
}
