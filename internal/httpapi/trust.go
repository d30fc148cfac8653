package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fleetintel/core/internal/apierr"
	"github.com/fleetintel/core/internal/trustpolicy"
)

// getTrustSettings reports the caller's raw fleet.trust override, or an
// empty object when none has ever been set — the engine itself falls
// back to DefaultSystemTiers in that case (§4.6).
func (d *Dependencies) getTrustSettings(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	value, provenance, err := d.TrustSettings.Get(r.Context(), p.UserID, trustpolicy.SettingKey)
	if err != nil {
		if errors.Is(err, trustpolicy.ErrNotFound) {
			apierr.WriteOK(w, r, map[string]any{"overrides": map[string]string{}, "provenance": nil})
			return
		}
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"overrides": json.RawMessage(value), "provenance": provenance})
}

type setTrustSettingsRequest struct {
	Overrides map[string]trustpolicy.Tier `json:"overrides"`
}

// setTrustSettings validates every override tier against the closed
// vocabulary before persisting — an unrecognised tier string stored in
// user_settings would otherwise silently fail closed later at resolve
// time instead of being rejected here where the caller can fix it.
func (d *Dependencies) setTrustSettings(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var req setTrustSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	for tool, tier := range req.Overrides {
		switch tier {
		case trustpolicy.TierAuto, trustpolicy.TierApprove, trustpolicy.TierBlock:
		default:
			apierr.WriteErrorCode(w, r, apierr.InvalidParam, fmt.Sprintf("invalid trust tier %q for %q", tier, tool), nil)
			return
		}
	}
	valueJSON, err := json.Marshal(req.Overrides)
	if err != nil {
		apierr.WriteInternal(w, r, err)
		return
	}
	if err := d.TrustSettings.Set(r.Context(), p.UserID, trustpolicy.SettingKey, valueJSON); err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"saved": true})
}
