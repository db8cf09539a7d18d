package api

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned when no valid session is available or the
// backend rejected the bearer token
var ErrUnauthenticated = errors.New("not logged in")

// NetworkError is returned when a request never completed
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// AuthError is returned when the backend answers 401 or 403
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("authentication failed (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("authentication failed (%d)", e.Status)
}

// Is makes errors.Is(err, ErrUnauthenticated) hold for backend rejections
func (e *AuthError) Is(target error) bool {
	return target == ErrUnauthenticated
}

// BusinessError is a request the backend processed and refused: a non-zero
// response code, or a non-2xx HTTP status (Code is then -1)
type BusinessError struct {
	Code    int
	Status  int
	Message string
}

func (e *BusinessError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code == -1 {
		return fmt.Sprintf("server returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("server returned code %d", e.Code)
}

// MessageOf returns the text to show a user for err: the server message for
// business errors, a login hint for authentication errors, fallback otherwise
func MessageOf(err error, fallback string) string {
	var be *BusinessError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	if errors.Is(err, ErrUnauthenticated) {
		return "please log in first"
	}
	return fallback
}
