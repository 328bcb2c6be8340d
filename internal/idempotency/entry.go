package idempotency

import (
	"encoding/json"
	"net/http"
)

// Kind tags a Descriptor variant on the wire.
type Kind string

const (
	KindCreatedAtRoute Kind = "created_at_route"
	KindObject         Kind = "object"
	KindStatus         Kind = "status"
)

// Descriptor is a closed set of handler result shapes that can be stored
// and rebuilt: CreatedAtRoute, ObjectResult and StatusOnly.
type Descriptor interface {
	Kind() Kind
	descriptor()
}

// CreatedAtRoute describes a 201 response pointing at a named route.
type CreatedAtRoute struct {
	RouteName   string
	RouteValues map[string]string
	Value       json.RawMessage
}

// ObjectResult describes a payload response. DeclaredType names the shape
// the handler used (see result.Constructor).
type ObjectResult struct {
	Value        json.RawMessage
	DeclaredType string
}

// StatusOnly describes a response whose status code is the whole answer.
type StatusOnly struct{}

func (CreatedAtRoute) Kind() Kind { return KindCreatedAtRoute }
func (ObjectResult) Kind() Kind   { return KindObject }
func (StatusOnly) Kind() Kind     { return KindStatus }

func (CreatedAtRoute) descriptor() {}
func (ObjectResult) descriptor()   {}
func (StatusOnly) descriptor()     {}

// Entry is the record persisted for one idempotency key.
type Entry struct {
	Fingerprint string
	StatusCode  int
	ContentType string
	Headers     http.Header
	Result      Descriptor
}
