// services/errors.go - Service error taxonomy
package services

import "errors"

// Validation errors: caller mistakes, mapped to 400.
var (
	ErrNotInTeam           = errors.New("you are not in a team")
	ErrTeamNotActive       = errors.New("challenge has not started yet")
	ErrWrongHabitType      = errors.New("operation does not match the team's habit type")
	ErrProofRequired       = errors.New("this team requires proof for check-ins")
	ErrAnonymousNotAllowed = errors.New("anonymous reporting is not allowed in this team")
)

// Not-found errors, mapped to 404.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrTeamNotFound    = errors.New("team not found")
	ErrAttemptNotFound = errors.New("attempt not found")
)

// ErrNoOngoingAttempt signals a data-integrity bug: an active team must
// always have exactly one ongoing attempt. Mapped to 500, never to a
// user-facing validation message.
var ErrNoOngoingAttempt = errors.New("no ongoing attempt found for active team")
