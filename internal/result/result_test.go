package result

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatedAtRouteWrite(t *testing.T) {
	routes := NewRoutes()
	routes.Name("GetOrder", "/orders/{id}")

	res := CreatedAtRoute{
		RouteName:   "GetOrder",
		RouteValues: map[string]string{"id": "1"},
		Value:       map[string]any{"id": 1},
		Routes:      routes,
	}

	rr := httptest.NewRecorder()
	require.NoError(t, res.Write(rr, httptest.NewRequest(http.MethodPost, "/orders", nil)))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "/orders/1", rr.Header().Get("Location"))
	assert.JSONEq(t, `{"id":1}`, rr.Body.String())
}

func TestCreatedAtRouteUnknownRoute(t *testing.T) {
	res := CreatedAtRoute{RouteName: "Nope", Value: "x"}

	rr := httptest.NewRecorder()
	require.NoError(t, res.Write(rr, httptest.NewRequest(http.MethodPost, "/", nil)))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Empty(t, rr.Header().Get("Location"))
}

func TestObjectWriteRawMessageVerbatim(t *testing.T) {
	raw := json.RawMessage(`{"b":2,"a":1}`)

	rr := httptest.NewRecorder()
	require.NoError(t, NewObject(http.StatusTeapot, raw).Write(rr, nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, `{"b":2,"a":1}`, strings.TrimSpace(rr.Body.String()))
	assert.Equal(t, contentTypeJSON, rr.Header().Get("Content-Type"))
}

func TestConstructor(t *testing.T) {
	ctor, ok := Constructor(TypeAccepted)
	require.True(t, ok)
	assert.Equal(t, http.StatusAccepted, ctor("v").StatusCode())

	_, ok = Constructor(TypeObject)
	assert.False(t, ok)
}

func TestStatusWrite(t *testing.T) {
	rr := httptest.NewRecorder()
	require.NoError(t, NoContent().Write(rr, nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Zero(t, rr.Body.Len())
}

func TestStreamWrite(t *testing.T) {
	rr := httptest.NewRecorder()
	res := Stream{Status: http.StatusOK, ContentType: "text/csv", Body: strings.NewReader("a,b\n")}
	require.NoError(t, res.Write(rr, nil))

	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Equal(t, "a,b\n", rr.Body.String())
}

func TestRoutesURL(t *testing.T) {
	routes := NewRoutes()
	routes.Name("Item", "/orders/{id:[0-9]+}/items/{item}")

	got, ok := routes.URL("Item", map[string]string{"id": "7", "item": "a b"})
	require.True(t, ok)
	assert.Equal(t, "/orders/7/items/a%20b", got)

	_, ok = routes.URL("Item", map[string]string{"id": "7"})
	assert.False(t, ok)

	var nilRoutes *Routes
	_, ok = nilRoutes.URL("Item", nil)
	assert.False(t, ok)
}
