package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/fleetintel/core/internal/apierr"
	"github.com/fleetintel/core/internal/authn"
	"github.com/fleetintel/core/internal/behaviorrule"
	"github.com/fleetintel/core/internal/catalog"
	"github.com/fleetintel/core/internal/composition"
	"github.com/fleetintel/core/internal/mutation"
	"github.com/fleetintel/core/internal/toolruntime"
	"github.com/fleetintel/core/internal/translator"
	"github.com/fleetintel/core/internal/trustpolicy"
)

// writeErr maps a store/domain error to the stable error-code taxonomy
// §7 names, falling back to a logged 500 for anything it
// doesn't recognise — every handler in this package routes its error
// return through here instead of inlining its own status mapping.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, composition.ErrNotFound),
		errors.Is(err, mutation.ErrNotFound),
		errors.Is(err, behaviorrule.ErrNotFound),
		errors.Is(err, authn.ErrTokenConsumed),
		errors.Is(err, authn.ErrInvalidToken),
		errors.Is(err, authn.ErrNotFound),
		errors.Is(err, trustpolicy.ErrNotFound):
		apierr.WriteErrorCode(w, r, apierr.NotFound, "the requested resource was not found", nil)
		return
	}

	var invalidRef *composition.ErrInvalidReference
	if errors.As(err, &invalidRef) {
		apierr.WriteErrorCode(w, r, apierr.InvalidParam, invalidRef.Error(), nil)
		return
	}

	var invalidPayload *translator.ErrInvalidPayload
	if errors.As(err, &invalidPayload) {
		apierr.WriteErrorCode(w, r, apierr.InvalidParam, invalidPayload.Error(), nil)
		return
	}

	var wrongStatus *mutation.ErrWrongStatus
	if errors.As(err, &wrongStatus) {
		apierr.WriteErrorCode(w, r, apierr.Conflict, wrongStatus.Error(), map[string]string{"status": string(wrongStatus.Status)})
		return
	}

	var expired *mutation.ErrExpired
	if errors.As(err, &expired) {
		apierr.WriteErrorCode(w, r, apierr.Conflict, expired.Error(),
			map[string]string{"expiresAt": expired.ExpiresAt.UTC().Format(time.RFC3339)})
		return
	}

	var unknownTool *toolruntime.ErrUnknownTool
	if errors.As(err, &unknownTool) {
		apierr.WriteErrorCode(w, r, apierr.NotFound, unknownTool.Error(), nil)
		return
	}

	var blocked *toolruntime.ErrBlocked
	if errors.As(err, &blocked) {
		apierr.WriteErrorCode(w, r, apierr.Forbidden, blocked.Error(), nil, blocked.Hint())
		return
	}

	apierr.WriteInternal(w, r, err)
}
