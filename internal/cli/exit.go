package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/sdejongh/greenbox/pkg/manager"
	"github.com/sdejongh/greenbox/pkg/models"
)

// ExitError carries a process exit code. Silent errors were already shown
// to the user as a notice.
type ExitError struct {
	Code   int
	Err    error
	Silent bool
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error returned by a command to the process exit code
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, manager.ErrCancelled) {
		return models.StatusCancelled.ExitCode()
	}
	return models.StatusFailed.ExitCode()
}

// Reportable tells whether main should still print err
func Reportable(err error) bool {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return !exitErr.Silent && exitErr.Err != nil
	}
	return true
}

// notified wraps an error the manager already reported as a notice
func notified(err error) error {
	if err == nil {
		return nil
	}
	code := models.StatusFailed.ExitCode()
	if errors.Is(err, manager.ErrCancelled) || errors.Is(err, context.Canceled) {
		code = models.StatusCancelled.ExitCode()
	}
	return &ExitError{Code: code, Err: err, Silent: true}
}

// statusError turns a report status into an exit error, nil on success
func statusError(status models.Status) error {
	if code := status.ExitCode(); code != 0 {
		return &ExitError{Code: code, Silent: true}
	}
	return nil
}
