package behaviorrule

import "errors"

// ErrNotFound is returned by a Get/Observe/Delete that finds no row for
// the given (userID, id).
var ErrNotFound = errors.New("behaviorrule: not found")
