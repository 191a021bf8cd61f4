// Package lifecycle applies status transitions to orders and runs the side
// effects each transition implies.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/order-engine/internal/domain/inventory"
	"github.com/example/order-engine/internal/domain/order"
	"github.com/sirupsen/logrus"
)

// SideEffectsFor lists the actions a transition implies. Payment moving to
// paid captures; paid to refunded refunds; order status moves defer to the
// stock plan. Fulfillment moves are status-only.
func SideEffectsFor(t order.Transition, from string, policy inventory.Policy) []inventory.Action {
	if from == t.To {
		return nil
	}

	switch t.Dimension {
	case order.DimensionPayment:
		switch {
		case t.To == string(order.PaymentPaid):
			return []inventory.Action{inventory.ActionPay}
		case from == string(order.PaymentPaid) && t.To == string(order.PaymentRefunded):
			return []inventory.Action{inventory.ActionRefund}
		}
	case order.DimensionOrder:
		plan := inventory.PlanForStatusChange(from, t.To, policy)
		var actions []inventory.Action
		if plan.ShouldRestock {
			actions = append(actions, inventory.ActionRestock)
		}
		if plan.ShouldDeduct {
			actions = append(actions, inventory.ActionDeduct)
		}
		return actions
	}
	return nil
}

// OrderStore is the part of the order service the machine needs
type OrderStore interface {
	ChangeStatus(ctx context.Context, orderID string, t order.Transition) (*order.StatusChange, error)
	RecordSideEffect(ctx context.Context, record order.OrderSideEffectRecorded) (*order.OrderSideEffectRecorded, error)
}

// Effect is what happened to one side effect of a transition
type Effect struct {
	Action   inventory.Action        `json:"action"`
	Outcome  order.SideEffectOutcome `json:"outcome"`
	Error    string                  `json:"error,omitempty"`
	RecordID string                  `json:"record_id,omitempty"`
}

// Result carries the committed order and the side effect outcomes. Warnings
// are user-facing notes about side effects that did not complete.
type Result struct {
	Order    *order.Order `json:"order"`
	From     string       `json:"from"`
	Changed  bool         `json:"changed"`
	Effects  []Effect     `json:"effects"`
	Warnings []string     `json:"warnings"`
}

type Machine struct {
	orders     OrderStore
	reconciler *inventory.Reconciler
	log        logrus.FieldLogger
}

func NewMachine(orders OrderStore, reconciler *inventory.Reconciler, log logrus.FieldLogger) *Machine {
	return &Machine{
		orders:     orders,
		reconciler: reconciler,
		log:        log.WithField("component", "lifecycle"),
	}
}

// Apply writes the status first, then runs each implied side effect behind
// confirmation. Side effect failures become warnings and records on the
// order; they never revert the status write. When confirmer is nil the
// reconciler's own confirmer is used.
func (m *Machine) Apply(ctx context.Context, orderID string, t order.Transition, confirmer inventory.Confirmer) (*Result, error) {
	change, err := m.orders.ChangeStatus(ctx, orderID, t)
	if err != nil {
		return nil, err
	}

	res := &Result{Order: change.Order, From: change.From, Changed: change.Changed, Effects: []Effect{}, Warnings: []string{}}
	if !change.Changed {
		return res, nil
	}

	steps := make([]Step, 0, 2)
	for _, action := range SideEffectsFor(t, change.From, inventory.PolicyFor(change.Order.Items)) {
		step := Step{Action: action, Message: promptFor(action, change.Order, t)}
		if action == inventory.ActionDeduct || action == inventory.ActionRestock {
			step.Lines = inventory.LinesFor(change.Order.Items)
		}
		steps = append(steps, step)
	}

	trigger := fmt.Sprintf("%s:%s->%s", t.Dimension, change.From, t.To)
	res.Effects, res.Warnings = m.Run(ctx, change.Order, trigger, steps, confirmer)
	return res, nil
}

// Step is one side effect to run for an order
type Step struct {
	Action  inventory.Action
	Lines   []inventory.Line
	Message string
	// Retries is the id of the failed record this step retries
	Retries string
}

// Run executes steps in order behind confirmation and records every outcome
// on the order. A confirmer error stops the run; the step it interrupted
// and every later one are recorded as failed so they stay retryable.
func (m *Machine) Run(ctx context.Context, o *order.Order, trigger string, steps []Step, confirmer inventory.Confirmer) ([]Effect, []string) {
	reconciler := m.reconciler
	if confirmer != nil {
		reconciler = reconciler.WithConfirmer(confirmer)
	}

	effects := []Effect{}
	warnings := []string{}
	for i, step := range steps {
		message := step.Message
		if message == "" {
			message = defaultPrompt(step.Action, o)
		}

		outcome, execErr := reconciler.Execute(ctx, step.Action, inventory.Mutation{Order: o, Lines: step.Lines}, message)
		if execErr != nil && outcome == "" {
			abortErr := fmt.Errorf("confirmation aborted: %w", execErr)
			for _, rest := range steps[i:] {
				effects = append(effects, m.record(ctx, &warnings, o.ID, rest, trigger, order.OutcomeFailed, abortErr))
			}
			break
		}
		effects = append(effects, m.record(ctx, &warnings, o.ID, step, trigger, outcome, execErr))
	}
	return effects, warnings
}

func (m *Machine) record(ctx context.Context, warnings *[]string, orderID string, step Step, trigger string,
	outcome order.SideEffectOutcome, execErr error) Effect {
	effect := Effect{Action: step.Action, Outcome: outcome}
	rec := order.OrderSideEffectRecorded{
		OrderID: orderID,
		Action:  string(step.Action),
		Trigger: trigger,
		Outcome: outcome,
		Lines:   step.Lines,
		Retries: step.Retries,
	}
	if execErr != nil {
		effect.Error = execErr.Error()
		rec.Error = execErr.Error()
		*warnings = append(*warnings, Warning(step.Action))

		// lines that were already moved must not move again on retry
		var partial *inventory.PartialError
		if errors.As(execErr, &partial) {
			rec.Lines = partial.Remaining
		}
	}

	stored, err := m.orders.RecordSideEffect(context.WithoutCancel(ctx), rec)
	if err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{"order_id": orderID, "action": step.Action}).
			Error("failed to record side effect")
		*warnings = append(*warnings, fmt.Sprintf("could not record the %s outcome", step.Action))
		return effect
	}
	effect.RecordID = stored.ID
	return effect
}

// Warning is the user-facing note for a side effect that did not complete
// after its triggering write was committed.
func Warning(action inventory.Action) string {
	switch action {
	case inventory.ActionPay, inventory.ActionRefund:
		return fmt.Sprintf("status updated, but %s action failed, please retry the payment action manually", action)
	}
	return fmt.Sprintf("status updated, but inventory action (%s) failed, please retry the inventory action manually", action)
}

func promptFor(action inventory.Action, o *order.Order, t order.Transition) string {
	switch action {
	case inventory.ActionPay:
		return fmt.Sprintf("Order %s is marked paid. Capture %s now?", o.ID, o.Pricing.FinalTotal.StringFixed(2))
	case inventory.ActionRefund:
		return fmt.Sprintf("Order %s is marked refunded. Refund the captured payment?", o.ID)
	case inventory.ActionRestock:
		return fmt.Sprintf("Order %s moved to %s. Return its items to stock?", o.ID, t.To)
	}
	return fmt.Sprintf("Order %s moved to %s. Deduct its items from stock?", o.ID, t.To)
}

func defaultPrompt(action inventory.Action, o *order.Order) string {
	switch action {
	case inventory.ActionDeduct:
		return fmt.Sprintf("Deduct stock for order %s?", o.ID)
	case inventory.ActionRestock:
		return fmt.Sprintf("Return stock for order %s?", o.ID)
	}
	return fmt.Sprintf("Run %s for order %s (%s)?", action, o.ID, o.Pricing.FinalTotal.StringFixed(2))
}
