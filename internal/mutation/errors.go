package mutation

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get/Apply/Decline when id doesn't exist for
// the requesting user — never returns a proposal belonging to someone
// else (§4.4 "never returns a proposal for a different user").
var ErrNotFound = errors.New("mutation: proposal not found")

// ErrWrongStatus is returned when apply/decline is attempted on a
// proposal whose status no longer permits the transition.
type ErrWrongStatus struct {
	Status Status
}

func (e *ErrWrongStatus) Error() string {
	return fmt.Sprintf("mutation: proposal has status %q, cannot transition", e.Status)
}

// ErrExpired carries the expiry timestamp so callers can surface a
// user-visible reason (§4.4 "fails with a user-visible reason
// that includes the expiry timestamp").
type ErrExpired struct {
	ExpiresAt time.Time
}

func (e *ErrExpired) Error() string {
	return fmt.Sprintf("mutation: proposal expired at %s", e.ExpiresAt.Format(time.RFC3339))
}
