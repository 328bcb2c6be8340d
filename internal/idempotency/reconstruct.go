package idempotency

import (
	"fmt"
	"net/http"

	"idempotent-api/internal/result"
)

// ReplayedHeader marks responses served from the cache.
const ReplayedHeader = "Idempotent-Replayed"

// Reconstruct rebuilds a result equivalent to the one captured in e. Every
// branch answers with e.StatusCode.
func Reconstruct(e Entry, routes *result.Routes) (result.Result, error) {
	var inner result.Result

	switch d := e.Result.(type) {
	case CreatedAtRoute:
		if e.StatusCode == http.StatusCreated {
			inner = result.CreatedAtRoute{
				RouteName:   d.RouteName,
				RouteValues: d.RouteValues,
				Value:       d.Value,
				Routes:      routes,
			}
		} else {
			inner = result.NewObject(e.StatusCode, d.Value)
		}
	case ObjectResult:
		inner = result.NewObject(e.StatusCode, d.Value)
		if ctor, ok := result.Constructor(d.DeclaredType); ok {
			if typed := ctor(d.Value); typed.StatusCode() == e.StatusCode {
				inner = typed
			}
		}
	case StatusOnly:
		inner = result.Status{Code: e.StatusCode}
	default:
		return nil, fmt.Errorf("%w: descriptor %T", ErrCorruptEntry, e.Result)
	}

	return Replayed{Result: inner, Headers: e.Headers, ContentType: e.ContentType}, nil
}

// Replayed is a reconstructed result. It restores the captured headers and
// marks the response as replayed before delegating to Result.
type Replayed struct {
	Result      result.Result
	Headers     http.Header
	ContentType string
}

func (r Replayed) StatusCode() int { return r.Result.StatusCode() }

func (r Replayed) Write(w http.ResponseWriter, req *http.Request) error {
	dst := w.Header()
	for k, v := range r.Headers {
		dst[k] = append([]string(nil), v...)
	}
	if r.ContentType != "" {
		dst.Set("Content-Type", r.ContentType)
	}
	dst.Set(ReplayedHeader, "true")
	return r.Result.Write(w, req)
}
