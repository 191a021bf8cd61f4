package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTarget(t *testing.T) {
	for _, dim := range Dimensions() {
		values := Values(dim)
		assert.NotEmpty(t, values)
		for _, v := range values {
			assert.True(t, ValidTarget(dim, v), "%s %s", dim, v)
		}
		assert.False(t, ValidTarget(dim, "shipped"))
	}
	assert.False(t, ValidTarget(DimensionPayment, string(OrderCancelled)))
}

func TestStatuses_GetWith(t *testing.T) {
	s := InitialStatuses()
	assert.Equal(t, "pending", s.Get(DimensionOrder))
	assert.Equal(t, "unpaid", s.Get(DimensionPayment))
	assert.Equal(t, "unfulfilled", s.Get(DimensionFulfillment))

	moved := s.With(DimensionPayment, string(PaymentPaid))
	assert.Equal(t, PaymentPaid, moved.Payment)
	assert.Equal(t, OrderPending, moved.Order)
	assert.Equal(t, PaymentUnpaid, s.Payment)
}

func TestTransition_Validate(t *testing.T) {
	assert.NoError(t, Transition{Dimension: DimensionFulfillment, To: "out_for_delivery"}.Validate())
	assert.ErrorIs(t, Transition{Dimension: DimensionOrder, To: "shipped"}.Validate(), ErrInvalidStatus)
	assert.ErrorIs(t, Transition{Dimension: "priority", To: "high"}.Validate(), ErrInvalidDimension)
}
