// Package apierr implements the response envelope and error taxonomy from
// §6/§7. It replaces core/pkg/api/apierror.go's RFC 7807 ProblemDetail
// body with the {ok, data|error, meta} shape the design mandates, keeping
// its Write*-helper-per-status-code idiom.
package apierr

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fleetintel/core/internal/obs"
)

// Code is a stable, machine-readable error code (§6).
type Code string

const (
	Unauthorized         Code = "UNAUTHORIZED"
	Forbidden            Code = "FORBIDDEN"
	EmailNotVerified     Code = "EMAIL_NOT_VERIFIED"
	AccountLocked        Code = "ACCOUNT_LOCKED"
	InsufficientRank     Code = "INSUFFICIENT_RANK"
	RateLimited          Code = "RATE_LIMITED"
	MissingParam         Code = "MISSING_PARAM"
	InvalidParam         Code = "INVALID_PARAM"
	NotFound             Code = "NOT_FOUND"
	Conflict             Code = "CONFLICT"
	PayloadTooLarge      Code = "PAYLOAD_TOO_LARGE"
	RequestTimeout       Code = "REQUEST_TIMEOUT"
	StoreNotAvailable    Code = "STORE_NOT_AVAILABLE" // suffixed per-store, e.g. CATALOG_STORE_NOT_AVAILABLE
	InternalError        Code = "INTERNAL_ERROR"
)

// statusForCode mirrors §7's taxonomy table.
var statusForCode = map[Code]int{
	Unauthorized:      http.StatusUnauthorized,
	Forbidden:         http.StatusForbidden,
	EmailNotVerified:  http.StatusForbidden,
	AccountLocked:     http.StatusForbidden,
	InsufficientRank:  http.StatusForbidden,
	RateLimited:       http.StatusTooManyRequests,
	MissingParam:      http.StatusBadRequest,
	InvalidParam:      http.StatusBadRequest,
	NotFound:          http.StatusNotFound,
	Conflict:          http.StatusConflict,
	PayloadTooLarge:   http.StatusRequestEntityTooLarge,
	RequestTimeout:    http.StatusGatewayTimeout,
	StoreNotAvailable: http.StatusServiceUnavailable,
	InternalError:     http.StatusInternalServerError,
}

// Error is the error half of the envelope.
type Error struct {
	Code    Code     `json:"code"`
	Message string   `json:"message"`
	Detail  any      `json:"detail,omitempty"`
	Hints   []string `json:"hints,omitempty"`
}

// Meta accompanies every response, success or failure.
type Meta struct {
	RequestID  string `json:"requestId"`
	Timestamp  string `json:"timestamp"`
	DurationMs int64  `json:"durationMs"`
}

// Envelope is the top-level response shape (§6).
type Envelope struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
	Meta  Meta   `json:"meta"`
}

func buildMeta(r *http.Request) Meta {
	return Meta{
		RequestID:  RequestIDFromRequest(r),
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		DurationMs: DurationMsFromRequest(r),
	}
}

// WriteOK writes a 200 success envelope.
func WriteOK(w http.ResponseWriter, r *http.Request, data any) {
	writeEnvelope(w, r, http.StatusOK, Envelope{OK: true, Data: data, Meta: buildMeta(r)})
}

// WriteCreated writes a 201 success envelope.
func WriteCreated(w http.ResponseWriter, r *http.Request, data any) {
	writeEnvelope(w, r, http.StatusCreated, Envelope{OK: true, Data: data, Meta: buildMeta(r)})
}

// WriteErrorCode writes a failure envelope for the given stable code.
// For 5xx codes, message is replaced with a generic string and the real
// message is logged with the request id (§6/§7).
func WriteErrorCode(w http.ResponseWriter, r *http.Request, code Code, message string, detail any, hints ...string) {
	status, ok := statusForCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	visibleMessage := message
	if status >= 500 {
		obs.FromContext(r.Context()).Error("internal error",
			"code", code, "message", message, "request_id", RequestIDFromRequest(r))
		visibleMessage = "Internal server error"
		detail = nil
	}

	writeEnvelope(w, r, status, Envelope{
		OK: false,
		Error: &Error{
			Code:    code,
			Message: visibleMessage,
			Detail:  detail,
			Hints:   hints,
		},
		Meta: buildMeta(r),
	})
}

// WriteStoreUnavailable writes a `<STORE>_STORE_NOT_AVAILABLE` 503, one
// per substore as enumerated in §6.
func WriteStoreUnavailable(w http.ResponseWriter, r *http.Request, store string) {
	status := http.StatusServiceUnavailable
	writeEnvelope(w, r, status, Envelope{
		OK: false,
		Error: &Error{
			Code:    Code(store + "_STORE_NOT_AVAILABLE"),
			Message: store + " is not currently available",
		},
		Meta: buildMeta(r),
	})
}

// WriteInternal logs err with the request id and returns a generic 500.
func WriteInternal(w http.ResponseWriter, r *http.Request, err error) {
	obs.FromContext(r.Context()).Error("internal server error", "error", err, "request_id", RequestIDFromRequest(r))
	writeEnvelope(w, r, http.StatusInternalServerError, Envelope{
		OK: false,
		Error: &Error{
			Code:    InternalError,
			Message: "An unexpected error occurred. Please try again later.",
		},
		Meta: buildMeta(r),
	})
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", env.Meta.RequestID)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
