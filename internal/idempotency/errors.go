package idempotency

import (
	"encoding/json"
	"errors"
	"net/http"

	"idempotent-api/internal/cache"
)

var (
	ErrMissingHeader        = errors.New("idempotency key header is missing")
	ErrEmptyHeaderValue     = errors.New("idempotency key header has no value")
	ErrMultipleHeaderValues = errors.New("idempotency key header has more than one value")
	ErrFingerprintMismatch  = errors.New("idempotency key was already used for a different request")
	ErrRequestInProgress    = errors.New("a request with this idempotency key is already in progress")
	ErrCorruptEntry         = errors.New("corrupt idempotency cache entry")
	ErrUnsupportedResult    = errors.New("unsupported result type")
	ErrBackendUnavailable   = cache.ErrBackendUnavailable
)

type classification struct {
	target error
	status int
	code   string
}

// Order matters: the first match wins.
var classifications = []classification{
	{ErrMissingHeader, http.StatusBadRequest, "idempotency_key_missing"},
	{ErrEmptyHeaderValue, http.StatusBadRequest, "idempotency_key_empty"},
	{ErrMultipleHeaderValues, http.StatusBadRequest, "idempotency_key_multiple"},
	{ErrFingerprintMismatch, http.StatusBadRequest, "idempotency_key_reused"},
	{ErrRequestInProgress, http.StatusConflict, "idempotency_request_in_progress"},
	{ErrUnsupportedResult, http.StatusInternalServerError, "idempotency_unsupported_result"},
	{ErrBackendUnavailable, http.StatusInternalServerError, "idempotency_backend_unavailable"},
}

// Classify maps err to an HTTP status and a machine-readable code. Anything
// not in the taxonomy is an internal server error.
func Classify(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, "request_body_too_large"
	}
	for _, c := range classifications {
		if errors.Is(err, c.target) {
			return c.status, c.code
		}
	}
	return http.StatusInternalServerError, "internal_server_error"
}

// IsClientError reports whether err is one the client can correct by
// changing its request.
func IsClientError(err error) bool {
	status, _ := Classify(err)
	return status >= 400 && status < 500
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError renders err as {"error": code, "message": text}. Server faults
// carry a generic message so internals do not leak.
func WriteError(w http.ResponseWriter, err error) {
	status, code := Classify(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = http.StatusText(status)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: code, Message: msg})
}
