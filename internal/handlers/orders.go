package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/orderdesk/apiserver/internal/logging"
	"github.com/orderdesk/apiserver/internal/services"
)

// OrderHandler provides HTTP handlers for orders.
type OrderHandler struct {
	orderService *services.OrderService
	logger       logging.Logger
}

func NewOrderHandler(orderService *services.OrderService, logger logging.Logger) *OrderHandler {
	return &OrderHandler{orderService: orderService, logger: logger}
}

// OrderRouter registers order routes. All of them require a bearer token.
func OrderRouter(r chi.Router, handler *OrderHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.Post("/", handler.Create)
	r.Get("/", handler.List)
	r.Get("/me", handler.ListMine)
	r.Route("/{orderID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Put("/", handler.Update)
		r.Delete("/", handler.Delete)
		r.Get("/receipt", handler.Receipt)
	})
}

// OrderRequest uses pointers so a missing field is told apart from zero.
// Quantity is bounded by the INTEGER column it is stored in.
type OrderRequest struct {
	Item     *string  `json:"item" validate:"required,max=100"`
	Quantity *int     `json:"quantity" validate:"required,min=0,max=2147483647"`
	Price    *float64 `json:"price" validate:"required,gte=0"`
}

func (req OrderRequest) input() services.OrderInput {
	return services.OrderInput{Item: *req.Item, Quantity: *req.Quantity, Price: *req.Price}
}

func (h *OrderHandler) decode(r *http.Request) (services.OrderInput, error) {
	var req OrderRequest
	if err := decodeJSON(r, &req, false); err != nil {
		return services.OrderInput{}, err
	}
	return req.input(), nil
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := UserFromContext(r.Context())
	in, err := h.decode(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	order, err := h.orderService.Create(r.Context(), actor, in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := UserFromContext(r.Context())
	limit, offset, err := parsePagination(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	page, err := h.orderService.List(r.Context(), actor, offset, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, _ := UserFromContext(r.Context())
	limit, offset, err := parsePagination(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	page, err := h.orderService.ListMine(r.Context(), actor, offset, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := UserFromContext(r.Context())
	id, err := parseIDParam(r, "orderID")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	order, err := h.orderService.Get(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := UserFromContext(r.Context())
	id, err := parseIDParam(r, "orderID")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	in, err := h.decode(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	order, err := h.orderService.Update(r.Context(), actor, id, in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := UserFromContext(r.Context())
	id, err := parseIDParam(r, "orderID")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if err := h.orderService.Delete(r.Context(), actor, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Receipt streams the archived JSON snapshot of an order.
func (h *OrderHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	actor, _ := UserFromContext(r.Context())
	id, err := parseIDParam(r, "orderID")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	rc, err := h.orderService.Receipt(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn(r.Context(), "stream receipt failed", "order_id", id, "error", err)
	}
}
