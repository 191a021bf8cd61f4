package api

import (
	"errors"
	"net/http"

	"github.com/example/order-engine/internal/command"
	"github.com/example/order-engine/internal/domain/cart"
	"github.com/example/order-engine/internal/domain/catalog"
	"github.com/example/order-engine/internal/domain/inventory"
	"github.com/example/order-engine/internal/domain/option"
	"github.com/example/order-engine/internal/domain/order"
	"github.com/example/order-engine/internal/domain/payment"
	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/example/order-engine/internal/query"
)

var notFound = []error{
	catalog.ErrProductNotFound,
	order.ErrOrderNotFound,
	cart.ErrLineNotFound,
	query.ErrInventoryNotFound,
}

var invalid = []error{
	catalog.ErrInvalidPrice,
	catalog.ErrInvalidName,
	catalog.ErrInvalidOption,
	catalog.ErrInvalidVariant,
	catalog.ErrInvalidPolicy,
	cart.ErrInvalidQuantity,
	cart.ErrInvalidProduct,
	cart.ErrVariantRequired,
	cart.ErrUnknownVariant,
	cart.ErrUnknownOption,
	cart.ErrUnknownChoice,
	cart.ErrMultipleSelections,
	order.ErrInvalidStatus,
	order.ErrInvalidDimension,
	order.ErrEmptyOrder,
	inventory.ErrInvalidQuantity,
	payment.ErrInvalidAmount,
	command.ErrUnknownAction,
}

var conflicts = []error{
	store.ErrVersionConflict,
	inventory.ErrInsufficientStock,
	payment.ErrAlreadyCaptured,
	payment.ErrNotCaptured,
	order.ErrNothingToDo,
}

// statusFor maps engine errors to HTTP statuses
func statusFor(err error) int {
	var (
		concurrency *order.ConcurrencyError
		stock       *cart.InventoryConflictError
	)
	switch {
	case store.IsPersistence(err):
		return http.StatusServiceUnavailable
	case errors.As(err, &concurrency), errors.As(err, &stock), isAny(err, conflicts):
		return http.StatusConflict
	case isAny(err, notFound):
		return http.StatusNotFound
	case isAny(err, invalid):
		return http.StatusUnprocessableEntity
	}
	if _, ok := asValidation(err); ok {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func asValidation(err error) (*option.ValidationError, bool) {
	var v *option.ValidationError
	ok := errors.As(err, &v)
	return v, ok
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
