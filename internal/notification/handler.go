// Package notification alerts staff when a side effect of an order change
// fails and has to be retried by hand.
package notification

import (
	"context"
	"encoding/json"

	"github.com/example/order-engine/internal/domain/order"
	"github.com/example/order-engine/internal/email"
	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/example/order-engine/internal/readmodel"
	"github.com/sirupsen/logrus"
)

// Mailer sends staff alerts
type Mailer interface {
	SendSideEffectFailure(to string, alert email.SideEffectAlert) error
}

// Handler processes events for sending notifications
type Handler struct {
	mailer     Mailer
	readStore  store.ReadStoreInterface
	staffEmail string
	log        logrus.FieldLogger
}

// NewHandler creates a new notification handler
func NewHandler(mailer Mailer, readStore store.ReadStoreInterface, staffEmail string, log logrus.FieldLogger) *Handler {
	return &Handler{
		mailer:     mailer,
		readStore:  readStore,
		staffEmail: staffEmail,
		log:        log.WithField("component", "notifier"),
	}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		h.log.WithError(err).Error("failed to unmarshal event")
		return err
	}
	return h.Notify(ctx, event)
}

// Notify reacts to a single event. Only failed side effects are reported.
func (h *Handler) Notify(ctx context.Context, event store.Event) error {
	if event.EventType != order.EventOrderSideEffectRecorded {
		return nil
	}

	var e order.OrderSideEffectRecorded
	if err := json.Unmarshal(event.Data, &e); err != nil {
		h.log.WithError(err).Error("failed to unmarshal side effect record")
		return err
	}
	if e.Outcome != order.OutcomeFailed {
		return nil
	}

	log := h.log.WithFields(logrus.Fields{
		"order_id": e.OrderID,
		"action":   e.Action,
		"trigger":  e.Trigger,
	})
	if h.staffEmail == "" {
		log.Warn("side effect failed, no staff address configured")
		return nil
	}

	alert := email.SideEffectAlert{
		OrderID: e.OrderID,
		Action:  e.Action,
		Trigger: e.Trigger,
		Error:   e.Error,
		Lines:   make([]email.AlertLine, 0, len(e.Lines)),
	}
	if data, ok, err := h.readStore.Get(store.CollectionOrders, e.OrderID); err != nil {
		log.WithError(err).Warn("failed to load order for alert")
	} else if ok {
		if o, ok := data.(*readmodel.OrderReadModel); ok && o.Version > 0 {
			alert.OrderTotal = o.Summary.FinalTotal
		}
	}
	for _, line := range e.Lines {
		alert.Lines = append(alert.Lines, email.AlertLine{
			ProductID: line.ProductID,
			Name:      h.productName(line.ProductID),
			Quantity:  line.Quantity,
		})
	}

	if err := h.mailer.SendSideEffectFailure(h.staffEmail, alert); err != nil {
		log.WithError(err).Error("failed to send side effect alert")
		return err
	}
	log.Info("side effect alert sent")
	return nil
}

func (h *Handler) productName(productID string) string {
	data, ok, err := h.readStore.Get(store.CollectionProducts, productID)
	if err != nil || !ok {
		return productID
	}
	if p, ok := data.(*readmodel.ProductReadModel); ok {
		return p.Name
	}
	return productID
}
