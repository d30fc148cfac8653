package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/fleetintel/core/internal/apierr"
	"github.com/fleetintel/core/internal/canon"
)

// decodeJSON decodes the request body into v, reporting decode failures
// as apierr.InvalidParam rather than panicking or leaking a raw Go
// error to the caller.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		apierr.WriteErrorCode(w, r, apierr.MissingParam, "request body is required", nil)
		return false
	}
	defer func() { _ = r.Body.Close() }()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		apierr.WriteErrorCode(w, r, apierr.InvalidParam, "request body is not valid JSON: "+err.Error(), nil)
		return false
	}
	return true
}

// writeCacheable writes a 200 success envelope carrying a weak ETag of
// data's canonical JSON (§6), honouring If-None-Match with a
// 304 when the caller already has the current representation.
func writeCacheable(w http.ResponseWriter, r *http.Request, data any) {
	etag, err := canon.WeakETag(data)
	if err != nil {
		apierr.WriteOK(w, r, data)
		return
	}
	w.Header().Set("ETag", etag)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	apierr.WriteOK(w, r, data)
}

// readAllBody drains the request body, writing an INVALID_PARAM
// response itself on failure.
func readAllBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Body == nil {
		return []byte("{}"), true
	}
	defer func() { _ = r.Body.Close() }()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		apierr.WriteErrorCode(w, r, apierr.InvalidParam, "failed to read request body: "+err.Error(), nil)
		return nil, false
	}
	if len(body) == 0 {
		return []byte("{}"), true
	}
	return body, true
}

// rawPatchBody reads a PATCH body and folds a path-derived identifier
// into it under refId, the shape every overlay tool's Apply handler
// expects (internal/tools/register.go: popString(raw, "refId") before
// the rest of the object is treated as a catalog.Patch).
func rawPatchBody(w http.ResponseWriter, r *http.Request, refID string) ([]byte, bool) {
	body, ok := readAllBody(w, r)
	if !ok {
		return nil, false
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		apierr.WriteErrorCode(w, r, apierr.InvalidParam, "request body is not valid JSON: "+err.Error(), nil)
		return nil, false
	}
	idJSON, err := json.Marshal(refID)
	if err != nil {
		apierr.WriteInternal(w, r, err)
		return nil, false
	}
	fields["refId"] = idJSON
	out, err := json.Marshal(fields)
	if err != nil {
		apierr.WriteInternal(w, r, err)
		return nil, false
	}
	return out, true
}
