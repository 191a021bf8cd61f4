package query

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/example/order-engine/internal/domain/catalog"
	"github.com/example/order-engine/internal/domain/order"
	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/sirupsen/logrus"
)

var ErrInventoryNotFound = errors.New("inventory not found")

type Handler struct {
	readStore store.ReadStoreInterface
	log       logrus.FieldLogger
}

func NewHandler(readStore store.ReadStoreInterface, log logrus.FieldLogger) *Handler {
	return &Handler{readStore: readStore, log: log.WithField("component", "query")}
}

func (h *Handler) get(collection, id string, notFound error) (any, error) {
	data, ok, err := h.readStore.Get(collection, id)
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"collection": collection, "id": id}).Error("read failed")
		return nil, fmt.Errorf("read %s %s: %w", collection, id, err)
	}
	if !ok {
		return nil, notFound
	}
	return data, nil
}

// Products
func (h *Handler) ProductView(id string) (*ProductReadModel, error) {
	data, err := h.get(store.CollectionProducts, id, catalog.ErrProductNotFound)
	if err != nil {
		return nil, err
	}
	return data.(*ProductReadModel), nil
}

// GetProduct serves the catalog from the read side. Stock may lag behind
// the stock stream by the projection delay.
func (h *Handler) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	view, err := h.ProductView(id)
	if err != nil {
		return nil, err
	}
	return view.Product(), nil
}

func (h *Handler) ListProducts() ([]*ProductReadModel, error) {
	items, err := h.readStore.GetAll(store.CollectionProducts)
	if err != nil {
		h.log.WithError(err).Error("listing products failed")
		return nil, err
	}
	products := make([]*ProductReadModel, 0, len(items))
	for _, item := range items {
		products = append(products, item.(*ProductReadModel))
	}
	sort.SliceStable(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

// Orders
func (h *Handler) GetOrder(id string) (*OrderReadModel, error) {
	data, err := h.get(store.CollectionOrders, id, order.ErrOrderNotFound)
	if err != nil {
		return nil, err
	}
	o := data.(*OrderReadModel)
	if o.Version == 0 {
		// only payment events so far
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

// OrderFilter narrows ListOrders. Empty fields match everything.
type OrderFilter struct {
	OrderStatus       order.OrderStatus
	PaymentStatus     order.PaymentStatus
	FulfillmentStatus order.FulfillmentStatus
	PendingOnly       bool
}

func (f OrderFilter) matches(o *OrderReadModel) bool {
	switch {
	case o.Version == 0:
		return false
	case f.OrderStatus != "" && o.Statuses.Order != f.OrderStatus:
		return false
	case f.PaymentStatus != "" && o.Statuses.Payment != f.PaymentStatus:
		return false
	case f.FulfillmentStatus != "" && o.Statuses.Fulfillment != f.FulfillmentStatus:
		return false
	case f.PendingOnly && o.PendingSideEffects == 0:
		return false
	}
	return true
}

// ListOrders returns matching orders, newest first
func (h *Handler) ListOrders(filter OrderFilter) ([]*OrderReadModel, error) {
	items, err := h.readStore.GetAll(store.CollectionOrders)
	if err != nil {
		h.log.WithError(err).Error("listing orders failed")
		return nil, err
	}
	orders := make([]*OrderReadModel, 0, len(items))
	for _, item := range items {
		if o := item.(*OrderReadModel); filter.matches(o) {
			orders = append(orders, o)
		}
	}
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

// Inventory
func (h *Handler) GetInventory(productID string) (*InventoryReadModel, error) {
	data, err := h.get(store.CollectionInventory, productID, ErrInventoryNotFound)
	if err != nil {
		return nil, err
	}
	return data.(*InventoryReadModel), nil
}
