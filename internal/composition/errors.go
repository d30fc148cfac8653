package composition

import "errors"

// ErrNotFound is returned by a Get/Update/Delete that finds no row for
// the given (userID, id).
var ErrNotFound = errors.New("composition: not found")

// ErrInvalidReference is returned when a cross-entity invariant
// (§3 "cross-entity invariants") is violated: a
// BridgeCoreMember.officerRefId with no matching reference officer, or
// a LoadoutVariant.baseLoadoutId that doesn't belong to the caller.
type ErrInvalidReference struct {
	Reason string
}

func (e *ErrInvalidReference) Error() string {
	return "composition: invalid reference: " + e.Reason
}
