package idempotency

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const codecVersion = 1

type wireEntry struct {
	Version     int         `json:"v"`
	Fingerprint string      `json:"fingerprint"`
	StatusCode  int         `json:"status"`
	ContentType string      `json:"content_type"`
	Headers     http.Header `json:"headers"`
	Result      wireResult  `json:"result"`
}

// wireResult carries exactly one payload, selected by Kind.
type wireResult struct {
	Kind           Kind                `json:"kind"`
	CreatedAtRoute *wireCreatedAtRoute `json:"created_at_route,omitempty"`
	Object         *wireObject         `json:"object,omitempty"`
	Status         *struct{}           `json:"status,omitempty"`
}

type wireCreatedAtRoute struct {
	RouteName   string            `json:"route_name"`
	RouteValues map[string]string `json:"route_values"`
	Value       json.RawMessage   `json:"value,omitempty"`
}

type wireObject struct {
	Value        json.RawMessage `json:"value,omitempty"`
	DeclaredType string          `json:"declared_type"`
}

// Encode serializes e. A nil or foreign Descriptor fails with
// ErrUnsupportedResult.
func Encode(e Entry) ([]byte, error) {
	w := wireEntry{
		Version:     codecVersion,
		Fingerprint: e.Fingerprint,
		StatusCode:  e.StatusCode,
		ContentType: e.ContentType,
		Headers:     e.Headers,
	}

	switch d := e.Result.(type) {
	case CreatedAtRoute:
		w.Result = wireResult{Kind: KindCreatedAtRoute, CreatedAtRoute: &wireCreatedAtRoute{
			RouteName:   d.RouteName,
			RouteValues: d.RouteValues,
			Value:       d.Value,
		}}
	case ObjectResult:
		w.Result = wireResult{Kind: KindObject, Object: &wireObject{
			Value:        d.Value,
			DeclaredType: d.DeclaredType,
		}}
	case StatusOnly:
		w.Result = wireResult{Kind: KindStatus, Status: &struct{}{}}
	default:
		return nil, fmt.Errorf("%w: descriptor %T", ErrUnsupportedResult, e.Result)
	}

	b, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedResult, err)
	}
	return b, nil
}

// Decode parses bytes written by Encode. Anything else fails with
// ErrCorruptEntry.
func Decode(b []byte) (Entry, error) {
	var w wireEntry
	if err := json.Unmarshal(b, &w); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	if w.Version != codecVersion {
		return Entry{}, fmt.Errorf("%w: version %d", ErrCorruptEntry, w.Version)
	}
	if w.StatusCode < 100 || w.StatusCode > 999 {
		return Entry{}, fmt.Errorf("%w: status %d", ErrCorruptEntry, w.StatusCode)
	}
	if w.Fingerprint == "" {
		return Entry{}, fmt.Errorf("%w: missing fingerprint", ErrCorruptEntry)
	}

	e := Entry{
		Fingerprint: w.Fingerprint,
		StatusCode:  w.StatusCode,
		ContentType: w.ContentType,
		Headers:     w.Headers,
	}

	switch w.Result.Kind {
	case KindCreatedAtRoute:
		p := w.Result.CreatedAtRoute
		if p == nil || p.RouteName == "" {
			return Entry{}, fmt.Errorf("%w: created_at_route without payload", ErrCorruptEntry)
		}
		e.Result = CreatedAtRoute{RouteName: p.RouteName, RouteValues: p.RouteValues, Value: p.Value}
	case KindObject:
		p := w.Result.Object
		if p == nil {
			return Entry{}, fmt.Errorf("%w: object without payload", ErrCorruptEntry)
		}
		e.Result = ObjectResult{Value: p.Value, DeclaredType: p.DeclaredType}
	case KindStatus:
		e.Result = StatusOnly{}
	default:
		return Entry{}, fmt.Errorf("%w: unknown result kind %q", ErrCorruptEntry, w.Result.Kind)
	}

	return e, nil
}
