package orders

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"idempotent-api/internal/idempotency"
	"idempotent-api/internal/result"
	"idempotent-api/pkg/logging/logging"
)

// RouteGetOrder names GET /orders/{id}; created orders point at it.
const RouteGetOrder = "GetOrder"

// Handler serves the orders API as result handlers.
type Handler struct {
	repo     Repository
	routes   *result.Routes
	validate *validator.Validate
}

func NewHandler(repo Repository, routes *result.Routes) *Handler {
	if routes == nil {
		routes = result.NewRoutes()
	}
	return &Handler{
		repo:     repo,
		routes:   routes,
		validate: newValidator(),
	}
}

// Mount registers the order routes on r, each run through c.
func (h *Handler) Mount(r chi.Router, c *idempotency.Coordinator) {
	r.Method(http.MethodPost, "/orders", c.Handle(h.Create))
	r.Method(http.MethodGet, h.routes.Name(RouteGetOrder, "/orders/{id}"), c.Handle(h.Get))
	r.Method(http.MethodPatch, "/orders/{id}", c.Handle(h.Update))
	r.Method(http.MethodPost, "/orders/{id}/cancel", c.Handle(h.Cancel))
}

// Create handles POST /orders.
func (h *Handler) Create(r *http.Request) (result.Result, error) {
	var req CreateOrderRequest
	if res, err := h.decode(r, &req); res != nil || err != nil {
		return res, err
	}

	order, err := h.repo.Create(r.Context(), req.Item, req.Qty)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	key, _ := idempotency.FromContext(r.Context())
	logging.L(r.Context()).Info("order_created",
		zap.Int64("order_id", order.ID),
		zap.String("idempotency_key", key),
	)

	return result.CreatedAtRoute{
		RouteName:   RouteGetOrder,
		RouteValues: map[string]string{"id": strconv.FormatInt(order.ID, 10)},
		Value:       order,
		Routes:      h.routes,
	}, nil
}

// Get handles GET /orders/{id}.
func (h *Handler) Get(r *http.Request) (result.Result, error) {
	id, res := orderID(r)
	if res != nil {
		return res, nil
	}

	order, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		return notFound(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return result.OK(order), nil
}

// Update handles PATCH /orders/{id}.
func (h *Handler) Update(r *http.Request) (result.Result, error) {
	id, res := orderID(r)
	if res != nil {
		return res, nil
	}

	var req UpdateOrderRequest
	if res, err := h.decode(r, &req); res != nil || err != nil {
		return res, err
	}

	order, err := h.repo.UpdateQty(r.Context(), id, req.Qty)
	switch {
	case errors.Is(err, ErrNotFound):
		return notFound(id), nil
	case errors.Is(err, ErrCancelled):
		return problem(http.StatusConflict, "order_cancelled", err.Error(), nil), nil
	case err != nil:
		return nil, fmt.Errorf("update order: %w", err)
	}

	logging.L(r.Context()).Info("order_updated",
		zap.Int64("order_id", order.ID),
		zap.Int("qty", order.Qty),
	)
	return result.OK(order), nil
}

// Cancel handles POST /orders/{id}/cancel.
func (h *Handler) Cancel(r *http.Request) (result.Result, error) {
	id, res := orderID(r)
	if res != nil {
		return res, nil
	}

	if _, err := h.repo.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound(id), nil
		}
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	logging.L(r.Context()).Info("order_cancelled", zap.Int64("order_id", id))
	return result.NoContent(), nil
}

// decode reads the JSON body into dst and validates it. A non-nil result is
// a client error to respond with.
func (h *Handler) decode(r *http.Request, dst any) (result.Result, error) {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return problem(http.StatusBadRequest, "invalid_json", "request body is not valid JSON", nil), nil
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("validate request: %w", err)
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return problem(http.StatusBadRequest, "validation_failed", "request failed validation", fields), nil
	}
	return nil, nil
}

func orderID(r *http.Request) (int64, result.Result) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, problem(http.StatusBadRequest, "invalid_order_id", fmt.Sprintf("invalid order id %q", raw), nil)
	}
	return id, nil
}

type problemBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func problem(status int, code, msg string, fields map[string]string) result.Result {
	return result.NewObject(status, problemBody{Error: code, Message: msg, Fields: fields})
}

func notFound(id int64) result.Result {
	return problem(http.StatusNotFound, "order_not_found", fmt.Sprintf("order %d not found", id), nil)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
