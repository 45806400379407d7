package team

import (
	"errors"
	"fmt"
)

// Business errors returned by the Service. All of them are expected and
// recoverable; the HTTP layer maps each one to a status code.
var (
	ErrNotFound             = errors.New("team not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrForbidden            = errors.New("only the team owner can do this")
	ErrTeamFull             = errors.New("team is full")
	ErrAlreadyMember        = errors.New("user is already a member of this team")
	ErrAlreadyRequested     = errors.New("user has already requested to join this team")
	ErrNoPendingRequest     = errors.New("no pending join request for this user")
	ErrNotAMember           = errors.New("user is not a member of this team")
	ErrNotAcceptingRequests = errors.New("team is not accepting join requests")
	ErrOwnerCannotLeave     = errors.New("the team owner cannot leave the team")
	ErrCannotRemoveOwner    = errors.New("the team owner cannot be removed")

	// ErrConflict is returned when concurrent writers kept winning the race
	// for the same team. The caller may retry.
	ErrConflict = errors.New("team was modified concurrently, please retry")
)

// ErrVersionConflict is returned by a Store when the stored version no longer
// matches the version the caller read.
var ErrVersionConflict = errors.New("team version conflict")

// ErrInvariantViolation marks a mutation that would leave the team in an
// invalid state. It indicates a bug, never a user error.
var ErrInvariantViolation = errors.New("team invariant violated")

// ValidationError reports a missing or malformed attribute.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// Code returns a stable, machine-readable code for err. Unknown errors map to
// "internal".
func Code(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ve):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrTeamFull):
		return "team_full"
	case errors.Is(err, ErrAlreadyMember):
		return "already_member"
	case errors.Is(err, ErrAlreadyRequested):
		return "already_requested"
	case errors.Is(err, ErrNoPendingRequest):
		return "no_pending_request"
	case errors.Is(err, ErrNotAMember):
		return "not_a_member"
	case errors.Is(err, ErrNotAcceptingRequests):
		return "not_accepting_requests"
	case errors.Is(err, ErrOwnerCannotLeave):
		return "owner_cannot_leave"
	case errors.Is(err, ErrCannotRemoveOwner):
		return "cannot_remove_owner"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}
