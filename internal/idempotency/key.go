package idempotency

import (
	"fmt"
	"net/http"
	"net/textproto"
	"strings"
)

// DefaultHeaderName is the request header carrying the idempotency key.
const DefaultHeaderName = "IdempotencyKey"

// ExtractKey returns the single, non-empty value of header name.
func ExtractKey(h http.Header, name string) (string, error) {
	values, ok := h[textproto.CanonicalMIMEHeaderKey(name)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingHeader, name)
	}
	if len(values) > 1 {
		return "", fmt.Errorf("%w: %s", ErrMultipleHeaderValues, name)
	}
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyHeaderValue, name)
	}
	return values[0], nil
}
