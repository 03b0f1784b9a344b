// internal/service/errors.go
package service

import (
	"errors"
	"fmt"

	"leave-status-bot/internal/models"
)

// ErrSourceUnavailable marks a failure to read ground truth from the HR
// system or the account directory. A pass that hits it aborts.
var ErrSourceUnavailable = errors.New("source unavailable")

// ErrPermissionDegraded marks a status read refused for lack of capability.
// The sweep skips such accounts without counting an error.
var ErrPermissionDegraded = errors.New("permission degraded")

func sourceUnavailable(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, what, err)
}

// AccountMutationError is a failed set or clear call for one account.
type AccountMutationError struct {
	AccountID string
	Action    models.Action
	Err       error
}

func (e *AccountMutationError) Error() string {
	return fmt.Sprintf("%s status for %s: %v", e.Action, e.AccountID, e.Err)
}

func (e *AccountMutationError) Unwrap() error {
	return e.Err
}

// ValidationError is invalid form input. Field names the offending input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RemoteRejectedError is the HR system refusing a leave request.
type RemoteRejectedError struct {
	Message string
}

func (e *RemoteRejectedError) Error() string {
	return e.Message
}
