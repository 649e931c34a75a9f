package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartBeforeCreateAssignsRandomID(t *testing.T) {
	first := &Cart{}
	second := &Cart{}
	require.NoError(t, first.BeforeCreate(nil))
	require.NoError(t, second.BeforeCreate(nil))

	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, uuid.Version(4), first.ID.Version())
}

func TestCartBeforeCreateKeepsSuppliedID(t *testing.T) {
	id := uuid.New()
	cart := &Cart{ID: id}
	require.NoError(t, cart.BeforeCreate(nil))
	assert.Equal(t, id, cart.ID)
}

func TestOrderTotal(t *testing.T) {
	order := Order{Items: []OrderItem{
		{Quantity: 2, UnitPrice: decimal.RequireFromString("10.50")},
		{Quantity: 1, UnitPrice: decimal.RequireFromString("4.25")},
	}}
	assert.True(t, order.Total().Equal(decimal.RequireFromString("25.25")))
}

func TestCustomerFullName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", Customer{FirstName: "Ada", LastName: "Lovelace"}.FullName())
	assert.Equal(t, "Ada", Customer{FirstName: "Ada"}.FullName())
}
