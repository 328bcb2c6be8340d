// Package result models what a handler produces, independent of how it is
// written to the wire. The idempotency layer depends on the closed set of
// shapes defined here to capture and later rebuild a response.
package result

import (
	"encoding/json"
	"io"
	"net/http"
)

// Result is a handler response that knows its status and how to render itself.
type Result interface {
	StatusCode() int
	Write(w http.ResponseWriter, r *http.Request) error
}

// Declared object shapes.
const (
	TypeOK       = "ok"
	TypeAccepted = "accepted"
	TypeObject   = "object"
)

const contentTypeJSON = "application/json; charset=utf-8"

// CreatedAtRoute is a 201 response whose Location points at a named route.
type CreatedAtRoute struct {
	RouteName   string
	RouteValues map[string]string
	Value       any
	// Routes resolves RouteName. Nil means no Location header.
	Routes *Routes
}

func (CreatedAtRoute) StatusCode() int { return http.StatusCreated }

func (c CreatedAtRoute) Write(w http.ResponseWriter, _ *http.Request) error {
	if loc, ok := c.Routes.URL(c.RouteName, c.RouteValues); ok {
		w.Header().Set("Location", loc)
	}
	return writeJSON(w, http.StatusCreated, c.Value)
}

// Object is a JSON payload with an explicit status. Type names the declared
// shape so that a rebuilt response can use the same constructor.
type Object struct {
	Status int
	Value  any
	Type   string
}

// OK returns a 200 object result.
func OK(v any) Object { return Object{Status: http.StatusOK, Value: v, Type: TypeOK} }

// Accepted returns a 202 object result.
func Accepted(v any) Object { return Object{Status: http.StatusAccepted, Value: v, Type: TypeAccepted} }

// NewObject returns a generic object result with the given status.
func NewObject(status int, v any) Object {
	return Object{Status: status, Value: v, Type: TypeObject}
}

// StatusCode defaults to 200 when Status is unset.
func (o Object) StatusCode() int {
	if o.Status == 0 {
		return http.StatusOK
	}
	return o.Status
}

func (o Object) Write(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, o.StatusCode(), o.Value)
}

// Constructor returns the single-value constructor for a declared shape.
func Constructor(typ string) (func(v any) Object, bool) {
	switch typ {
	case TypeOK:
		return OK, true
	case TypeAccepted:
		return Accepted, true
	default:
		return nil, false
	}
}

// Status is a response without a body.
type Status struct {
	Code int
}

func NoContent() Status { return Status{Code: http.StatusNoContent} }

func (s Status) StatusCode() int {
	if s.Code == 0 {
		return http.StatusOK
	}
	return s.Code
}

func (s Status) Write(w http.ResponseWriter, _ *http.Request) error {
	w.WriteHeader(s.StatusCode())
	return nil
}

// Stream copies Body to the client. It cannot be captured for replay.
type Stream struct {
	Status      int
	ContentType string
	Body        io.Reader
}

func (s Stream) StatusCode() int {
	if s.Status == 0 {
		return http.StatusOK
	}
	return s.Status
}

func (s Stream) Write(w http.ResponseWriter, _ *http.Request) error {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.WriteHeader(s.StatusCode())
	if s.Body == nil {
		return nil
	}
	_, err := io.Copy(w, s.Body)
	return err
}

// writeJSON writes v as JSON. A json.RawMessage is written verbatim so that
// replayed payloads are byte-identical to the originals.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	var body []byte
	switch val := v.(type) {
	case json.RawMessage:
		body = val
	case nil:
		body = []byte("null")
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		body = b
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		return err
	}
	_, err := w.Write([]byte{'\n'})
	return err
}
