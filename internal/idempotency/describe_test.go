package idempotency

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idempotent-api/internal/result"
)

func TestDescribe(t *testing.T) {
	created := result.CreatedAtRoute{
		RouteName:   "GetOrder",
		RouteValues: map[string]string{"id": "1"},
		Value:       map[string]any{"id": 1, "item": "X"},
	}

	tests := []struct {
		name string
		res  result.Result
		want Descriptor
	}{
		{
			name: "created at route",
			res:  created,
			want: CreatedAtRoute{
				RouteName:   "GetOrder",
				RouteValues: map[string]string{"id": "1"},
				Value:       json.RawMessage(`{"id":1,"item":"X"}`),
			},
		},
		{
			name: "created at route pointer",
			res:  &created,
			want: CreatedAtRoute{
				RouteName:   "GetOrder",
				RouteValues: map[string]string{"id": "1"},
				Value:       json.RawMessage(`{"id":1,"item":"X"}`),
			},
		},
		{
			name: "ok object",
			res:  result.OK([]int{1, 2}),
			want: ObjectResult{Value: json.RawMessage(`[1,2]`), DeclaredType: result.TypeOK},
		},
		{
			name: "raw object is compacted",
			res:  result.NewObject(http.StatusTeapot, json.RawMessage(`{ "a" : 1 }`)),
			want: ObjectResult{Value: json.RawMessage(`{"a":1}`), DeclaredType: result.TypeObject},
		},
		{
			name: "status",
			res:  result.NoContent(),
			want: StatusOnly{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Describe(tc.res)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

type customResult struct{}

func (customResult) StatusCode() int                                { return http.StatusOK }
func (customResult) Write(http.ResponseWriter, *http.Request) error { return nil }

func TestDescribeUnsupported(t *testing.T) {
	tests := map[string]result.Result{
		"nil":                nil,
		"stream":             result.Stream{Status: http.StatusOK, Body: strings.NewReader("x")},
		"custom":             customResult{},
		"unencodable value":  result.OK(make(chan int)),
		"missing route name": result.CreatedAtRoute{Value: 1},
		"nil object pointer": (*result.Object)(nil),
	}

	for name, res := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Describe(res)
			assert.ErrorIs(t, err, ErrUnsupportedResult)
		})
	}
}

func TestCaptureHeadersDropsTransient(t *testing.T) {
	h := http.Header{
		"Date":           {"now"},
		"Content-Length": {"10"},
		"Content-Type":   {"application/json"},
		ReplayedHeader:   {"true"},
		"Location":       {"/orders/1"},
		"X-Custom":       {"a", "b"},
	}

	got := captureHeaders(h)

	assert.Equal(t, http.Header{
		"Location": {"/orders/1"},
		"X-Custom": {"a", "b"},
	}, got)

	got["X-Custom"][0] = "changed"
	assert.Equal(t, "a", h["X-Custom"][0], "captured headers must not alias the response")
}
