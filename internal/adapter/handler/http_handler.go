package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rl1809/stockcart/internal/core/service"
)

const userHeader = "X-User-ID"

type HTTPHandler struct {
	carts    *service.CartService
	checkout *service.CheckoutService
	logger   *zap.Logger
}

type AddItemHTTPRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type UpdateItemHTTPRequest struct {
	Quantity int `json:"quantity"`
}

type HTTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type CheckoutHTTPResponse struct {
	Total string `json:"total"`
}

func NewHTTPHandler(carts *service.CartService, checkout *service.CheckoutService, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		carts:    carts,
		checkout: checkout,
		logger:   logger,
	}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("POST /api/cart/items", h.AddToCart)
	mux.HandleFunc("PATCH /api/cart/items/{id}", h.UpdateQuantity)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.RemoveItem)
	mux.HandleFunc("DELETE /api/cart", h.ClearCart)

	mux.HandleFunc("POST /api/checkout", h.Checkout)
	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.CancelOrder)
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	view, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HTTPResponse{Success: true, Data: toCartDTO(view)})
}

func (h *HTTPHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req AddItemHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, HTTPResponse{Message: "invalid request body"})
		return
	}
	if req.ProductID <= 0 {
		writeJSON(w, http.StatusBadRequest, HTTPResponse{Message: "missing required fields"})
		return
	}

	item, err := h.carts.AddToCart(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HTTPResponse{Success: true, Data: toCartItemDTO(item)})
}

func (h *HTTPHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateItemHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, HTTPResponse{Message: "invalid request body"})
		return
	}

	item, err := h.carts.UpdateQuantity(r.Context(), itemID, req.Quantity, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HTTPResponse{Success: true, Data: toCartItemDTO(item)})
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.carts.RemoveItem(r.Context(), itemID, userID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HTTPResponse{Success: true, Message: "item removed"})
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.carts.ClearCart(r.Context(), userID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HTTPResponse{Success: true, Message: "cart cleared"})
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	total, err := h.checkout.ProcessCheckout(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HTTPResponse{
		Success: true,
		Message: "order placed successfully",
		Data:    CheckoutHTTPResponse{Total: total.StringFixed(2)},
	})
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	sales, err := h.checkout.GetUserOrders(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HTTPResponse{Success: true, Data: toSaleDTOs(sales)})
}

func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	saleID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.checkout.CancelOrder(r.Context(), saleID, userID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HTTPResponse{Success: true, Message: "order cancelled"})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status, message := httpStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, HTTPResponse{Message: message})
}

func httpStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "invalid quantity"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrInsufficientStock):
		return http.StatusConflict, "insufficient stock"
	case errors.Is(err, service.ErrProductUnavailable):
		return http.StatusConflict, "product unavailable"
	case errors.Is(err, service.ErrEmptyCart):
		return http.StatusUnprocessableEntity, "cart is empty"
	case errors.Is(err, service.ErrExpired):
		return http.StatusGone, "cancellation window expired"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// requireUser reads the caller identity resolved by the upstream auth layer.
func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(r.Header.Get(userHeader), 10, 64)
	if err != nil || userID <= 0 {
		writeJSON(w, http.StatusUnauthorized, HTTPResponse{Message: "missing user"})
		return 0, false
	}
	return userID, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, HTTPResponse{Message: "invalid id"})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
