package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/example/order-engine/internal/command"
	"github.com/example/order-engine/internal/domain/cart"
	"github.com/example/order-engine/internal/domain/catalog"
	"github.com/example/order-engine/internal/domain/inventory"
	"github.com/example/order-engine/internal/domain/order"
	"github.com/example/order-engine/internal/domain/pricing"
	"github.com/example/order-engine/internal/query"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	log          logrus.FieldLogger
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, log logrus.FieldLogger) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		log:          log.WithField("component", "api"),
	}
}

// approval lists the side effects a caller approves up front. Anything not
// listed is declined and recorded as such.
type approval struct {
	Confirm []inventory.Action `json:"confirm"`
}

func (a approval) confirmer() inventory.Confirmer {
	return inventory.Approve(a.Confirm...)
}

// Product Handlers

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateProduct
	if !decode(w, r, &cmd) {
		return
	}

	product, err := h.cmdHandler.CreateProduct(r.Context(), cmd)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.queryHandler.ListProducts()
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.queryHandler.ProductView(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateProduct
	if !decode(w, r, &cmd) {
		return
	}
	cmd.ID = chi.URLParam(r, "id")

	if err := h.cmdHandler.UpdateProduct(r.Context(), cmd); err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Product updated"})
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	cmd := command.DeleteProduct{ProductID: chi.URLParam(r, "id")}
	if err := h.cmdHandler.DeleteProduct(r.Context(), cmd); err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}

func (h *Handlers) SetInventoryPolicy(w http.ResponseWriter, r *http.Request) {
	var policy catalog.InventoryPolicy
	if !decode(w, r, &policy) {
		return
	}

	cmd := command.SetInventoryPolicy{ProductID: chi.URLParam(r, "id"), Policy: policy}
	if err := h.cmdHandler.SetInventoryPolicy(r.Context(), cmd); err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Inventory policy updated"})
}

func (h *Handlers) AddStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !decode(w, r, &req) {
		return
	}

	cmd := command.AddStock{ProductID: chi.URLParam(r, "id"), Quantity: req.Quantity}
	if err := h.cmdHandler.AddStock(r.Context(), cmd); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetInventory(w http.ResponseWriter, r *http.Request) {
	inv, err := h.queryHandler.GetInventory(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

// Selection Handlers

func (h *Handlers) ValidateSelection(w http.ResponseWriter, r *http.Request) {
	var req cart.Request
	if !decode(w, r, &req) {
		return
	}

	check, err := h.cmdHandler.ValidateSelection(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, check)
}

func (h *Handlers) PriceSelection(w http.ResponseWriter, r *http.Request) {
	var req cart.Request
	if !decode(w, r, &req) {
		return
	}

	priced, err := h.cmdHandler.PriceSelection(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, priced)
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.cmdHandler.GetCart(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddToCart
	if !decode(w, r, &cmd) {
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		cmd.CartID = id
	}

	c, err := h.cmdHandler.AddToCart(r.Context(), cmd)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) AddManualItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string          `json:"name"`
		UnitPrice decimal.Decimal `json:"unit_price"`
		Quantity  int             `json:"quantity"`
	}
	if !decode(w, r, &req) {
		return
	}

	cmd := command.AddManualItem{
		CartID:    chi.URLParam(r, "id"),
		Name:      req.Name,
		UnitPrice: req.UnitPrice,
		Quantity:  req.Quantity,
	}
	c, err := h.cmdHandler.AddManualItem(r.Context(), cmd)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	cmd := command.RemoveFromCart{
		CartID: chi.URLParam(r, "id"),
		LineID: chi.URLParam(r, "lineID"),
	}
	c, err := h.cmdHandler.RemoveFromCart(r.Context(), cmd)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// Order Handlers

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		command.PlaceOrder
		approval
	}
	if !decode(w, r, &req) {
		return
	}

	res, err := h.cmdHandler.PlaceOrder(r.Context(), req.PlaceOrder, req.confirmer())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := query.OrderFilter{
		OrderStatus:       order.OrderStatus(q.Get("order_status")),
		PaymentStatus:     order.PaymentStatus(q.Get("payment_status")),
		FulfillmentStatus: order.FulfillmentStatus(q.Get("fulfillment_status")),
		PendingOnly:       q.Get("pending") == "true",
	}

	orders, err := h.queryHandler.ListOrders(filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.queryHandler.GetOrder(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) DiffOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []cart.Selection `json:"items"`
	}
	if !decode(w, r, &req) {
		return
	}

	preview, err := h.cmdHandler.ComputeOrderDiff(r.Context(), chi.URLParam(r, "id"), req.Items)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, preview)
}

func (h *Handlers) EditOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExpectedVersion int                  `json:"expected_version"`
		Items           []cart.Selection     `json:"items"`
		Adjustments     []pricing.Adjustment `json:"adjustments,omitempty"`
		Charges         *pricing.Charges     `json:"charges,omitempty"`
		approval
	}
	if !decode(w, r, &req) {
		return
	}

	cmd := command.EditOrder{
		OrderID:         chi.URLParam(r, "id"),
		ExpectedVersion: req.ExpectedVersion,
		Items:           req.Items,
		Adjustments:     req.Adjustments,
		Charges:         req.Charges,
	}
	res, err := h.cmdHandler.EditOrder(r.Context(), cmd, req.confirmer())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *Handlers) PlanStatusChange(w http.ResponseWriter, r *http.Request) {
	to := order.OrderStatus(r.URL.Query().Get("to"))
	plan, err := h.cmdHandler.PlanInventoryActionsForStatusChange(r.Context(), chi.URLParam(r, "id"), to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

func (h *Handlers) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		order.Transition
		approval
	}
	if !decode(w, r, &req) {
		return
	}

	cmd := command.ChangeStatus{OrderID: chi.URLParam(r, "id"), Transition: req.Transition}
	res, err := h.cmdHandler.ApplyStatusTransition(r.Context(), cmd, req.confirmer())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *Handlers) RetrySideEffect(w http.ResponseWriter, r *http.Request) {
	// the body is optional; without it nothing is approved
	var req approval
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}

	cmd := command.RetrySideEffect{
		OrderID: chi.URLParam(r, "id"),
		Action:  inventory.Action(chi.URLParam(r, "action")),
	}
	res, err := h.cmdHandler.RetrySideEffect(r.Context(), cmd, req.confirmer())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Helper functions

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

type errorBody struct {
	Error  string `json:"error"`
	Fields any    `json:"fields,omitempty"`
}

func (h *Handlers) respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	if v, ok := asValidation(err); ok {
		body.Fields = v.Fields
	}
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("status", status).Error("request failed")
		if status == http.StatusInternalServerError {
			body.Error = "internal server error"
		}
	}
	respondJSON(w, status, body)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Warn("failed to write response")
	}
}
