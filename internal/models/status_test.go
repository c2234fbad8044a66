package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGatewayStatus_ToTransactionStatus(t *testing.T) {
	cases := map[string]TransactionStatus{
		"VALID":               TransactionSuccess,
		"validated":           TransactionSuccess,
		"FAILED":              TransactionFailed,
		"CANCELLED":           TransactionCanceled,
		"UNATTEMPTED":         TransactionPending,
		"EXPIRED":             TransactionPending,
		"INVALID_TRANSACTION": TransactionPending,
		"":                    TransactionPending,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseGatewayStatus(raw).ToTransactionStatus(), raw)
	}
}

func TestTransactionStatus_IsTerminal(t *testing.T) {
	assert.False(t, TransactionPending.IsTerminal())
	assert.True(t, TransactionSuccess.IsTerminal())
	assert.True(t, TransactionFailed.IsTerminal())
	assert.True(t, TransactionCanceled.IsTerminal())
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, OrderProcessing.CanTransitionTo(OrderShipped))
	assert.True(t, OrderProcessing.CanTransitionTo(OrderCancelled))
	assert.True(t, OrderShipped.CanTransitionTo(OrderDelivered))
	assert.False(t, OrderShipped.CanTransitionTo(OrderCancelled))
	assert.False(t, OrderDelivered.CanTransitionTo(OrderProcessing))
	assert.False(t, OrderCancelled.CanTransitionTo(OrderShipped))
}

func TestParseOrderStatus(t *testing.T) {
	st, ok := ParseOrderStatus(" shipped ")
	assert.True(t, ok)
	assert.Equal(t, OrderShipped, st)

	_, ok = ParseOrderStatus("lost")
	assert.False(t, ok)
}

func TestErrorWrapping(t *testing.T) {
	gwErr := &GatewayError{Reason: "timeout", Err: errors.New("deadline exceeded")}
	assert.ErrorIs(t, gwErr, ErrGatewayRejected)

	var target *GatewayError
	assert.True(t, errors.As(error(gwErr), &target))
	assert.Equal(t, "timeout", target.Reason)

	assert.ErrorIs(t, Storage("insert", errors.New("boom")), ErrStorage)
	assert.Equal(t, ErrNotFound, Storage("select", ErrNotFound))
	assert.NoError(t, Storage("select", nil))
}

func TestShippingDetails_Validate(t *testing.T) {
	assert.NoError(t, ShippingDetails{Address: "12 rue Haute", Phone: "0102"}.Validate())
	assert.ErrorIs(t, ShippingDetails{Address: "12 rue Haute"}.Validate(), ErrInvalidShipping)
	assert.ErrorIs(t, ShippingDetails{Phone: "0102"}.Validate(), ErrInvalidShipping)
	assert.Equal(t, "BE", ShippingDetails{}.CountryOrDefault("BE"))
}
