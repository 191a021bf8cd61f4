package inventory

import (
	"context"
	"fmt"

	"github.com/example/order-engine/internal/domain/order"
	"github.com/sirupsen/logrus"
)

// Action is a side effect the engine may run against collaborators
type Action string

const (
	ActionDeduct  Action = "deduct"
	ActionRestock Action = "restock"
	ActionPay     Action = "pay"
	ActionRefund  Action = "refund"
)

func (a Action) Valid() bool {
	switch a {
	case ActionDeduct, ActionRestock, ActionPay, ActionRefund:
		return true
	}
	return false
}

// Mutation is the input of one side effect: the order and, for stock
// actions, the lines to move.
type Mutation struct {
	Order *order.Order
	Lines []Line
}

// Mutator performs side effects. Calls are made at most once per
// confirmation; nothing is retried automatically.
type Mutator interface {
	Deduct(ctx context.Context, m Mutation) error
	Restock(ctx context.Context, m Mutation) error
	Pay(ctx context.Context, m Mutation) error
	Refund(ctx context.Context, m Mutation) error
}

// Prompt is what a Confirmer is asked to approve
type Prompt struct {
	Action  Action
	OrderID string
	Message string
}

// Confirmer is the yes/no gate in front of every side effect. Returning an
// error aborts the pipeline before anything runs.
type Confirmer interface {
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, p Prompt) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, p Prompt) (bool, error) {
	return f(ctx, p)
}

// AutoConfirm approves everything
var AutoConfirm Confirmer = ConfirmFunc(func(ctx context.Context, p Prompt) (bool, error) {
	return true, ctx.Err()
})

// ApprovedActions approves exactly the listed actions. It backs callers
// that collect approval up front, such as an HTTP request body.
type ApprovedActions map[Action]bool

func Approve(actions ...Action) ApprovedActions {
	a := make(ApprovedActions, len(actions))
	for _, action := range actions {
		a[action] = true
	}
	return a
}

func (a ApprovedActions) Confirm(ctx context.Context, p Prompt) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return a[p.Action], nil
}

// MutationError reports a side effect that was confirmed but failed. The
// write that triggered it stays committed.
type MutationError struct {
	Action  Action
	OrderID string
	Err     error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s for order %s failed: %v", e.Action, e.OrderID, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// Reconciler runs side effects behind the confirmation gate
type Reconciler struct {
	mutator   Mutator
	confirmer Confirmer
	log       logrus.FieldLogger
}

func NewReconciler(mutator Mutator, confirmer Confirmer, log logrus.FieldLogger) *Reconciler {
	return &Reconciler{
		mutator:   mutator,
		confirmer: confirmer,
		log:       log.WithField("component", "reconciler"),
	}
}

// WithConfirmer returns a reconciler sharing the mutator but asking c
func (r *Reconciler) WithConfirmer(c Confirmer) *Reconciler {
	return &Reconciler{mutator: r.mutator, confirmer: c, log: r.log}
}

// Execute asks for confirmation and, when granted, runs the action once.
// A declined action reports OutcomeDeclined with no error. A confirmer
// error aborts with no side effect. A failed mutation reports
// OutcomeFailed with a *MutationError.
func (r *Reconciler) Execute(ctx context.Context, action Action, m Mutation, message string) (order.SideEffectOutcome, error) {
	entry := r.log.WithFields(logrus.Fields{"action": action, "order_id": m.Order.ID})

	ok, err := r.confirmer.Confirm(ctx, Prompt{Action: action, OrderID: m.Order.ID, Message: message})
	if err != nil {
		return "", err
	}
	if !ok {
		entry.Debug("side effect declined")
		return order.OutcomeDeclined, nil
	}

	if err := r.run(ctx, action, m); err != nil {
		entry.WithError(err).Warn("side effect failed")
		return order.OutcomeFailed, &MutationError{Action: action, OrderID: m.Order.ID, Err: err}
	}
	entry.Info("side effect executed")
	return order.OutcomeExecuted, nil
}

func (r *Reconciler) run(ctx context.Context, action Action, m Mutation) error {
	switch action {
	case ActionDeduct:
		return r.mutator.Deduct(ctx, m)
	case ActionRestock:
		return r.mutator.Restock(ctx, m)
	case ActionPay:
		return r.mutator.Pay(ctx, m)
	case ActionRefund:
		return r.mutator.Refund(ctx, m)
	}
	return fmt.Errorf("unknown action %q", action)
}
