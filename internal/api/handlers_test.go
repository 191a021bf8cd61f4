package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/order-engine/internal/command"
	"github.com/example/order-engine/internal/domain/cart"
	"github.com/example/order-engine/internal/domain/catalog"
	"github.com/example/order-engine/internal/domain/inventory"
	"github.com/example/order-engine/internal/domain/option"
	"github.com/example/order-engine/internal/domain/order"
	"github.com/example/order-engine/internal/domain/payment"
	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/example/order-engine/internal/projection"
	"github.com/example/order-engine/internal/query"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger, _ := logtest.NewNullLogger()

	readStore := store.NewReadStore()
	eventStore := store.NewEventStore(projection.NewProjector(readStore, logger))

	catalogSvc := catalog.NewService(eventStore, logger)
	stockSvc := inventory.NewService(eventStore, logger)
	cmdHandler := command.NewHandler(
		catalogSvc,
		cart.NewService(eventStore, logger),
		order.NewService(eventStore, logger),
		stockSvc,
		payment.NewService(eventStore, logger),
		command.NewLiveCatalog(catalogSvc, stockSvc),
		inventory.AutoConfirm,
		logger,
	)
	handlers := NewHandlers(cmdHandler, query.NewHandler(readStore, logger), logger)

	srv := httptest.NewServer(NewRouter(handlers, logger))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp.StatusCode, out
}

func createFries(t *testing.T, srv *httptest.Server, stock int) string {
	t.Helper()
	status, body := do(t, srv, http.MethodPost, "/products", map[string]any{
		"name":          "Fries",
		"price":         "3.50",
		"inventory":     map[string]any{"track_quantity": true},
		"initial_stock": stock,
	})
	require.Equal(t, http.StatusCreated, status)
	return body["id"].(string)
}

func onHand(t *testing.T, srv *httptest.Server, productID string) int {
	t.Helper()
	status, body := do(t, srv, http.MethodGet, "/inventory/"+productID, nil)
	require.Equal(t, http.StatusOK, status)
	return int(body["on_hand"].(float64))
}

func placeOrder(t *testing.T, srv *httptest.Server, productID string, qty int, confirm ...string) map[string]any {
	t.Helper()
	status, c := do(t, srv, http.MethodPost, "/carts/items", map[string]any{"product_id": productID, "quantity": qty})
	require.Equal(t, http.StatusOK, status)

	status, res := do(t, srv, http.MethodPost, "/orders", map[string]any{"cart_id": c["id"], "confirm": confirm})
	require.Equal(t, http.StatusCreated, status)
	return res
}

func orderID(res map[string]any) string {
	return res["order"].(map[string]any)["id"].(string)
}

func effects(res map[string]any) []any {
	return res["effects"].([]any)
}

// ============================================
// Product Tests
// ============================================

func TestAPI_CreateAndGetProduct(t *testing.T) {
	srv := newTestServer(t)
	id := createFries(t, srv, 5)

	status, body := do(t, srv, http.MethodGet, "/products/"+id, nil)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Fries", body["name"])
	assert.Equal(t, float64(5), body["stock"])
}

func TestAPI_ListProducts(t *testing.T) {
	srv := newTestServer(t)
	createFries(t, srv, 1)

	resp, err := http.Get(srv.URL + "/products")
	require.NoError(t, err)
	defer resp.Body.Close()

	var products []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	assert.Len(t, products, 1)
}

func TestAPI_GetProduct_NotFound(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, http.MethodGet, "/products/missing", nil)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body["error"], "not found")
}

func TestAPI_CreateProduct_Invalid(t *testing.T) {
	srv := newTestServer(t)

	status, _ := do(t, srv, http.MethodPost, "/products", map[string]any{"name": "", "price": "1.00"})

	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestAPI_BadJSON(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, http.MethodPost, "/products", "{not json")

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "invalid request body")
}

func TestAPI_AddStock(t *testing.T) {
	srv := newTestServer(t)
	id := createFries(t, srv, 1)

	status, _ := do(t, srv, http.MethodPost, "/products/"+id+"/stock", map[string]any{"quantity": 4})

	assert.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, 5, onHand(t, srv, id))
}

// ============================================
// Selection Tests
// ============================================

func TestAPI_ValidateSelection(t *testing.T) {
	srv := newTestServer(t)
	status, product := do(t, srv, http.MethodPost, "/products", map[string]any{
		"name":  "Coffee",
		"price": "2.00",
		"options": []map[string]any{{
			"name": "Size", "type": "selection", "required": true,
			"choices": []map[string]any{{"id": "large", "name": "Large", "amount": "1.00"}},
		}},
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := do(t, srv, http.MethodPost, "/selections/validate", map[string]any{
		"product_id": product["id"], "quantity": 1,
	})

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["valid"])

	status, body = do(t, srv, http.MethodPost, "/selections/price", map[string]any{
		"product_id": product["id"], "quantity": 2,
		"choices": []map[string]any{{"option": "Size", "choice_id": "large"}},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "3", body["unit_price"])
	assert.Equal(t, "6", body["line_total"])
}

func TestAPI_AddToCart_InsufficientStock(t *testing.T) {
	srv := newTestServer(t)
	id := createFries(t, srv, 1)

	status, _ := do(t, srv, http.MethodPost, "/carts/items", map[string]any{"product_id": id, "quantity": 3})

	assert.Equal(t, http.StatusConflict, status)
}

// ============================================
// Order Tests
// ============================================

func TestAPI_PlaceOrder_ConfirmedDeduct(t *testing.T) {
	srv := newTestServer(t)
	id := createFries(t, srv, 5)

	res := placeOrder(t, srv, id, 2, "deduct")

	require.Len(t, effects(res), 1)
	assert.Equal(t, "executed", effects(res)[0].(map[string]any)["outcome"])
	assert.Equal(t, 3, onHand(t, srv, id))

	status, o := do(t, srv, http.MethodGet, "/orders/"+orderID(res), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "7.00", o["summary"].(map[string]any)["final_total"])
}

func TestAPI_PlaceOrder_WithoutApprovalDeclines(t *testing.T) {
	srv := newTestServer(t)
	id := createFries(t, srv, 5)

	res := placeOrder(t, srv, id, 2)

	assert.Equal(t, "declined", effects(res)[0].(map[string]any)["outcome"])
	assert.Equal(t, 5, onHand(t, srv, id))
}

func TestAPI_ChangeStatus_CancelRestocks(t *testing.T) {
	srv := newTestServer(t)
	id := createFries(t, srv, 5)
	res := placeOrder(t, srv, id, 2, "deduct")

	status, body := do(t, srv, http.MethodPost, "/orders/"+orderID(res)+"/status", map[string]any{
		"dimension": "order_status", "to": "cancelled", "confirm": []string{"restock"},
	})

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["changed"])
	assert.Equal(t, "pending", body["from"])
	assert.Equal(t, 5, onHand(t, srv, id))
}

func TestAPI_ChangeStatus_InvalidTarget(t *testing.T) {
	srv := newTestServer(t)
	id := createFries(t, srv, 5)
	res := placeOrder(t, srv, id, 1, "deduct")

	status, _ := do(t, srv, http.MethodPost, "/orders/"+orderID(res)+"/status", map[string]any{
		"dimension": "order_status", "to": "shipped",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestAPI_ChangeStatus_UnknownOrder(t *testing.T) {
	srv := newTestServer(t)

	status, _ := do(t, srv, http.MethodPost, "/orders/missing/status", map[string]any{
		"dimension": "order_status", "to": "cancelled",
	})

	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_StatusPlan(t *testing.T) {
	srv := newTestServer(t)
	id := createFries(t, srv, 5)
	res := placeOrder(t, srv, id, 1, "deduct")

	status, plan := do(t, srv, http.MethodGet, "/orders/"+orderID(res)+"/status-plan?to=cancelled", nil)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, plan["should_restock"])
	assert.Equal(t, false, plan["should_deduct"])
}

func TestAPI_DiffAndEditOrder(t *testing.T) {
	srv := newTestServer(t)
	id := createFries(t, srv, 10)
	res := placeOrder(t, srv, id, 2, "deduct")
	oid := orderID(res)

	_, o := do(t, srv, http.MethodGet, "/orders/"+oid, nil)
	items := o["items"].([]any)
	items[0].(map[string]any)["quantity"] = 5

	status, preview := do(t, srv, http.MethodPost, "/orders/"+oid+"/diff", map[string]any{"items": items})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, preview["plan"].(map[string]any)["should_deduct"])
	assert.Equal(t, 8, onHand(t, srv, id))

	status, edited := do(t, srv, http.MethodPut, "/orders/"+oid+"/items", map[string]any{
		"expected_version": o["version"], "items": items, "confirm": []string{"deduct"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, edited["warnings"])
	assert.Equal(t, 5, onHand(t, srv, id))
}

func TestAPI_EditOrder_StaleVersion(t *testing.T) {
	srv := newTestServer(t)
	id := createFries(t, srv, 10)
	res := placeOrder(t, srv, id, 2, "deduct")
	oid := orderID(res)
	_, o := do(t, srv, http.MethodGet, "/orders/"+oid, nil)

	status, _ := do(t, srv, http.MethodPut, "/orders/"+oid+"/items", map[string]any{
		"expected_version": 1, "items": o["items"],
	})

	assert.Equal(t, http.StatusConflict, status)
}

func TestAPI_ListOrders_PendingFilter(t *testing.T) {
	srv := newTestServer(t)
	id := createFries(t, srv, 5)
	placeOrder(t, srv, id, 1, "deduct")

	resp, err := http.Get(srv.URL + "/orders?pending=true")
	require.NoError(t, err)
	defer resp.Body.Close()

	var orders []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&orders))
	assert.Empty(t, orders)
}

// ============================================
// Side Effect Retry Tests
// ============================================

func TestAPI_RetrySideEffect_NothingToRetry(t *testing.T) {
	srv := newTestServer(t)
	id := createFries(t, srv, 5)
	res := placeOrder(t, srv, id, 1, "deduct")

	status, _ := do(t, srv, http.MethodPost, "/orders/"+orderID(res)+"/side-effects/deduct/retry", nil)

	assert.Equal(t, http.StatusConflict, status)
}

func TestAPI_RetrySideEffect_UnknownAction(t *testing.T) {
	srv := newTestServer(t)
	id := createFries(t, srv, 5)
	res := placeOrder(t, srv, id, 1, "deduct")

	status, _ := do(t, srv, http.MethodPost, "/orders/"+orderID(res)+"/side-effects/teleport/retry", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

// ============================================
// Error Mapping Tests
// ============================================

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&store.PersistenceError{Op: "append", Err: errors.New("down")}, http.StatusServiceUnavailable},
		{&order.ConcurrencyError{OrderID: "o", Expected: 1, Actual: 2}, http.StatusConflict},
		{&cart.InventoryConflictError{ProductID: "p", Reason: cart.ConflictInsufficientStock}, http.StatusConflict},
		{fmt.Errorf("wrapped: %w", store.ErrVersionConflict), http.StatusConflict},
		{order.ErrOrderNotFound, http.StatusNotFound},
		{&option.ValidationError{}, http.StatusUnprocessableEntity},
		{cart.ErrUnknownChoice, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestApproval(t *testing.T) {
	a := approval{Confirm: []inventory.Action{inventory.ActionDeduct}}

	ok, err := a.confirmer().Confirm(t.Context(), inventory.Prompt{Action: inventory.ActionDeduct})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.confirmer().Confirm(t.Context(), inventory.Prompt{Action: inventory.ActionRestock})
	require.NoError(t, err)
	assert.False(t, ok)
}

