package idempotency

import (
	"encoding/json"
	"fmt"
	"net/http"

	"idempotent-api/internal/result"
)

// Describe maps a handler result onto the closed Descriptor set. Any other
// shape, including result.Stream, fails with ErrUnsupportedResult.
func Describe(res result.Result) (Descriptor, error) {
	switch r := res.(type) {
	case result.CreatedAtRoute:
		return describeCreated(r)
	case *result.CreatedAtRoute:
		if r == nil {
			break
		}
		return describeCreated(*r)
	case result.Object:
		return describeObject(r)
	case *result.Object:
		if r == nil {
			break
		}
		return describeObject(*r)
	case result.Status:
		return StatusOnly{}, nil
	case *result.Status:
		if r == nil {
			break
		}
		return StatusOnly{}, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedResult, res)
}

func describeCreated(r result.CreatedAtRoute) (Descriptor, error) {
	if r.RouteName == "" {
		return nil, fmt.Errorf("%w: created-at-route result without a route name", ErrUnsupportedResult)
	}
	value, err := rawValue(r.Value)
	if err != nil {
		return nil, err
	}
	var values map[string]string
	if r.RouteValues != nil {
		values = make(map[string]string, len(r.RouteValues))
		for k, v := range r.RouteValues {
			values[k] = v
		}
	}
	return CreatedAtRoute{RouteName: r.RouteName, RouteValues: values, Value: value}, nil
}

func describeObject(r result.Object) (Descriptor, error) {
	value, err := rawValue(r.Value)
	if err != nil {
		return nil, err
	}
	return ObjectResult{Value: value, DeclaredType: r.Type}, nil
}

// rawValue renders v in the same compact form the response writer uses.
func rawValue(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: value is not JSON-encodable: %v", ErrUnsupportedResult, err)
	}
	return json.RawMessage(b), nil
}

// Headers that belong to a single transmission and are not replayed.
var transientHeaders = map[string]bool{
	"Date":              true,
	"Content-Length":    true,
	"Content-Type":      true,
	"Connection":        true,
	"Transfer-Encoding": true,
	"Keep-Alive":        true,
	ReplayedHeader:      true,
}

// captureHeaders copies h without transient headers. Content-Type is kept
// on the entry separately.
func captureHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		if transientHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	return out
}
