package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/stockcart/internal/core/service"
)

type httpClient struct {
	t      *testing.T
	server *httptest.Server
}

func newHTTPClient(t *testing.T, f *fixture) *httpClient {
	mux := http.NewServeMux()
	NewHTTPHandler(f.carts, f.checkout, zap.NewNop()).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &httpClient{t: t, server: server}
}

func (c *httpClient) do(method, path string, userID int64, body string) (int, map[string]any) {
	c.t.Helper()
	req, err := http.NewRequest(method, c.server.URL+path, strings.NewReader(body))
	require.NoError(c.t, err)
	if userID > 0 {
		req.Header.Set(userHeader, fmt.Sprint(userID))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHTTP_CartFlow(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "50.00", 5)
	b := f.product(t, "25.00", 5)
	c := newHTTPClient(t, f)

	status, body := c.do(http.MethodPost, "/api/cart/items", 1, fmt.Sprintf(`{"product_id":%d,"quantity":2}`, a.ID))
	require.Equal(t, http.StatusOK, status)
	item := body["data"].(map[string]any)
	itemID := int64(item["id"].(float64))
	assert.Equal(t, float64(2), item["quantity"])

	status, _ = c.do(http.MethodPost, "/api/cart/items", 1, fmt.Sprintf(`{"product_id":%d,"quantity":1}`, b.ID))
	require.Equal(t, http.StatusOK, status)

	status, body = c.do(http.MethodPatch, fmt.Sprintf("/api/cart/items/%d", itemID), 1, `{"quantity":2}`)
	require.Equal(t, http.StatusOK, status)

	status, body = c.do(http.MethodGet, "/api/cart", 1, "")
	require.Equal(t, http.StatusOK, status)
	cart := body["data"].(map[string]any)
	assert.Equal(t, "125.00", cart["subtotal"])
	assert.Len(t, cart["lines"], 2)

	status, body = c.do(http.MethodPost, "/api/checkout", 1, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "125.00", body["data"].(map[string]any)["total"])

	status, body = c.do(http.MethodGet, "/api/orders", 1, "")
	require.Equal(t, http.StatusOK, status)
	orders := body["data"].([]any)
	require.Len(t, orders, 2)

	saleID := int64(orders[0].(map[string]any)["id"].(float64))
	status, _ = c.do(http.MethodPost, fmt.Sprintf("/api/orders/%d/cancel", saleID), 1, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestHTTP_RemoveAndClear(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "10.00", 5)
	c := newHTTPClient(t, f)

	_, body := c.do(http.MethodPost, "/api/cart/items", 1, fmt.Sprintf(`{"product_id":%d,"quantity":2}`, p.ID))
	itemID := int64(body["data"].(map[string]any)["id"].(float64))

	status, _ := c.do(http.MethodDelete, fmt.Sprintf("/api/cart/items/%d", itemID), 1, "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = c.do(http.MethodDelete, "/api/cart", 1, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestHTTP_ErrorMapping(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "10.00", 1)
	c := newHTTPClient(t, f)

	_, body := c.do(http.MethodPost, "/api/cart/items", 1, fmt.Sprintf(`{"product_id":%d,"quantity":1}`, p.ID))
	itemID := int64(body["data"].(map[string]any)["id"].(float64))

	tests := []struct {
		name   string
		method string
		path   string
		user   int64
		body   string
		want   int
	}{
		{"missing user", http.MethodGet, "/api/cart", 0, "", http.StatusUnauthorized},
		{"bad body", http.MethodPost, "/api/cart/items", 2, "{", http.StatusBadRequest},
		{"zero quantity", http.MethodPost, "/api/cart/items", 2, fmt.Sprintf(`{"product_id":%d,"quantity":0}`, p.ID), http.StatusBadRequest},
		{"sold out", http.MethodPost, "/api/cart/items", 2, fmt.Sprintf(`{"product_id":%d,"quantity":1}`, p.ID), http.StatusConflict},
		{"unknown product", http.MethodPost, "/api/cart/items", 2, `{"product_id":999,"quantity":1}`, http.StatusNotFound},
		{"other user's item", http.MethodPatch, fmt.Sprintf("/api/cart/items/%d", itemID), 2, `{"quantity":1}`, http.StatusForbidden},
		{"bad id", http.MethodDelete, "/api/cart/items/abc", 1, "", http.StatusBadRequest},
		{"missing item", http.MethodDelete, "/api/cart/items/999", 1, "", http.StatusNotFound},
		{"empty cart", http.MethodPost, "/api/checkout", 2, "", http.StatusUnprocessableEntity},
		{"missing sale", http.MethodPost, "/api/orders/999/cancel", 1, "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := c.do(tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, false, body["success"])
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		service.ErrInvalidInput:       http.StatusBadRequest,
		service.ErrUnauthorized:       http.StatusForbidden,
		service.ErrNotFound:           http.StatusNotFound,
		service.ErrInsufficientStock:  http.StatusConflict,
		service.ErrProductUnavailable: http.StatusConflict,
		service.ErrEmptyCart:          http.StatusUnprocessableEntity,
		service.ErrExpired:            http.StatusGone,
		errors.New("db down"):         http.StatusInternalServerError,
	}
	for err, want := range cases {
		status, _ := httpStatus(fmt.Errorf("wrapped: %w", err))
		assert.Equal(t, want, status, err.Error())
	}
}

func TestHTTP_Health(t *testing.T) {
	c := newHTTPClient(t, newFixture(t))

	status, body := c.do(http.MethodGet, "/health", 0, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}
