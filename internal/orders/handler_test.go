package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"idempotent-api/internal/cache"
	"idempotent-api/internal/idempotency"
	"idempotent-api/internal/result"
)

func newTestServer(t *testing.T) (http.Handler, *MemoryRepository) {
	t.Helper()

	store := cache.NewMemoryStore(time.Minute)
	t.Cleanup(func() { store.Close() })

	routes := result.NewRoutes()
	repo := NewMemoryRepository()
	coord := idempotency.New(store, idempotency.Config{}, idempotency.WithRoutes(routes))

	r := chi.NewRouter()
	NewHandler(repo, routes).Mount(r, coord)
	return r, repo
}

func send(h http.Handler, method, target, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(idempotency.DefaultHeaderName, key)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func orderCount(t *testing.T, repo *MemoryRepository) int {
	t.Helper()
	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("count orders: %v", err)
	}
	return n
}

func TestCreateOrderIsIdempotent(t *testing.T) {
	h, repo := newTestServer(t)

	first := send(h, http.MethodPost, "/orders", "abc123", `{"item":"X","qty":2}`)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", first.Code, first.Body.String())
	}
	if loc := first.Header().Get("Location"); loc != "/orders/1" {
		t.Fatalf("expected Location /orders/1, got %q", loc)
	}

	var order Order
	if err := json.Unmarshal(first.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if order.ID != 1 || order.Item != "X" || order.Qty != 2 {
		t.Fatalf("unexpected order: %#v", order)
	}

	replay := send(h, http.MethodPost, "/orders", "abc123", `{"item":"X","qty":2}`)
	if replay.Code != http.StatusCreated {
		t.Fatalf("expected replayed status 201, got %d", replay.Code)
	}
	if replay.Body.String() != first.Body.String() {
		t.Fatalf("replayed body differs:\nfirst:  %s\nreplay: %s", first.Body.String(), replay.Body.String())
	}
	if replay.Header().Get(idempotency.ReplayedHeader) != "true" {
		t.Fatalf("expected %s header on replay", idempotency.ReplayedHeader)
	}

	reused := send(h, http.MethodPost, "/orders", "abc123", `{"item":"X","qty":3}`)
	if reused.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for reused key, got %d", reused.Code)
	}
	if !strings.Contains(reused.Body.String(), "different request") {
		t.Fatalf("expected reuse message, got %s", reused.Body.String())
	}

	if n := orderCount(t, repo); n != 1 {
		t.Fatalf("expected 1 order, got %d", n)
	}
}

func TestValidationFailureIsReplayed(t *testing.T) {
	h, repo := newTestServer(t)

	first := send(h, http.MethodPost, "/orders", "bad-1", `{"item":"","qty":0}`)
	if first.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", first.Code)
	}

	var body problemBody
	if err := json.Unmarshal(first.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error != "validation_failed" || body.Fields["item"] != "required" || body.Fields["qty"] != "gt" {
		t.Fatalf("unexpected problem: %#v", body)
	}

	replay := send(h, http.MethodPost, "/orders", "bad-1", `{"item":"","qty":0}`)
	if replay.Code != http.StatusBadRequest || replay.Header().Get(idempotency.ReplayedHeader) != "true" {
		t.Fatalf("expected replayed 400, got %d", replay.Code)
	}
	if n := orderCount(t, repo); n != 0 {
		t.Fatalf("expected no orders, got %d", n)
	}
}

func TestGetOrder(t *testing.T) {
	h, _ := newTestServer(t)
	send(h, http.MethodPost, "/orders", "k1", `{"item":"X","qty":2}`)

	rr := send(h, http.MethodGet, "/orders/1", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if rr.Header().Get(idempotency.ReplayedHeader) != "" {
		t.Fatalf("GET must not be replayed")
	}

	missing := send(h, http.MethodGet, "/orders/42", "", "")
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", missing.Code)
	}

	invalid := send(h, http.MethodGet, "/orders/abc", "", "")
	if invalid.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", invalid.Code)
	}
}

func TestUpdateAndCancelOrder(t *testing.T) {
	h, repo := newTestServer(t)
	send(h, http.MethodPost, "/orders", "k1", `{"item":"X","qty":2}`)

	patched := send(h, http.MethodPatch, "/orders/1", "p1", `{"qty":7}`)
	if patched.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", patched.Code, patched.Body.String())
	}

	var order Order
	if err := json.Unmarshal(patched.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if order.Qty != 7 {
		t.Fatalf("expected qty 7, got %d", order.Qty)
	}

	for i := 0; i < 2; i++ {
		rr := send(h, http.MethodPost, "/orders/1/cancel", "c1", "")
		if rr.Code != http.StatusNoContent {
			t.Fatalf("cancel #%d: expected status 204, got %d", i+1, rr.Code)
		}
	}

	afterCancel := send(h, http.MethodPatch, "/orders/1", "p2", `{"qty":8}`)
	if afterCancel.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", afterCancel.Code)
	}

	// Same key as the first PATCH replays the stored 200.
	replayed := send(h, http.MethodPatch, "/orders/1", "p1", `{"qty":7}`)
	if replayed.Code != http.StatusOK || replayed.Header().Get(idempotency.ReplayedHeader) != "true" {
		t.Fatalf("expected replayed 200, got %d", replayed.Code)
	}

	got, err := repo.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != StatusCancelled || got.Qty != 7 {
		t.Fatalf("unexpected stored order: %#v", got)
	}
}

func TestMutationsRequireKey(t *testing.T) {
	h, repo := newTestServer(t)

	rr := send(h, http.MethodPost, "/orders", "", `{"item":"X","qty":2}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if n := orderCount(t, repo); n != 0 {
		t.Fatalf("expected no orders, got %d", n)
	}
}

func TestInvalidJSON(t *testing.T) {
	h, _ := newTestServer(t)

	rr := send(h, http.MethodPost, "/orders", "j1", `{"item":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "invalid_json") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}
