package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidDiningMode(t *testing.T) {
	assert.True(t, IsValidDiningMode("TakeAway"))
	assert.True(t, IsValidDiningMode("DineIn"))
	assert.False(t, IsValidDiningMode("Delivery"))
	assert.False(t, IsValidDiningMode("dinein"))
	assert.False(t, IsValidDiningMode(""))
}

func TestDiningModeRequiresTable(t *testing.T) {
	assert.True(t, DiningModeDineIn.RequiresTable())
	assert.False(t, DiningModeTakeAway.RequiresTable())
}

func TestOrderTotalPriceDerivedFromLines(t *testing.T) {
	order := &Order{Items: []OrderItem{
		{UnitPrice: 12.5, Quantity: 2},
		{UnitPrice: 8.0, Quantity: 1},
	}}
	assert.Equal(t, 33.0, order.TotalPrice())

	empty := &Order{}
	assert.Equal(t, 0.0, empty.TotalPrice())
}

func TestOrderLineLookups(t *testing.T) {
	mvID := int64(100)
	order := &Order{Items: []OrderItem{
		{ID: 1, ProductID: 7, Quantity: 2},
		{ID: 2, ProductID: 7, Quantity: 1, IsVoucher: true, MemberVoucherID: &mvID},
	}}

	plain := order.NonVoucherItem(7)
	require.NotNil(t, plain)
	assert.Equal(t, int64(1), plain.ID)

	voucher := order.VoucherItem(7, 100)
	require.NotNil(t, voucher)
	assert.Equal(t, int64(2), voucher.ID)

	assert.Nil(t, order.NonVoucherItem(8))
	assert.Nil(t, order.VoucherItem(7, 999))
}

func TestOrderLineLookupReturnsMutableReference(t *testing.T) {
	order := &Order{Items: []OrderItem{{ID: 1, ProductID: 7, Quantity: 2}}}

	order.NonVoucherItem(7).Quantity = 5
	assert.Equal(t, 5, order.Items[0].Quantity)
}

func TestIdentityValid(t *testing.T) {
	assert.True(t, MemberIdentity(1).Valid())
	assert.True(t, GuestIdentity("g-1").Valid())
	assert.False(t, Identity{}.Valid())

	memberID := int64(1)
	guestID := "g-1"
	assert.False(t, Identity{MemberID: &memberID, GuestID: &guestID}.Valid())

	empty := ""
	assert.False(t, Identity{GuestID: &empty}.Valid())
}
