package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemberVoucherUsableAt(t *testing.T) {
	now := time.Now()
	mv := &MemberVoucher{ExpiryDate: now.Add(time.Hour)}

	assert.True(t, mv.UsableAt(now))
	assert.False(t, mv.UsableAt(now.Add(2*time.Hour)))

	mv.IsUsed = true
	assert.False(t, mv.UsableAt(now))
}

func TestMemberVoucherCoversProduct(t *testing.T) {
	productID := int64(7)
	mv := &MemberVoucher{Voucher: &Voucher{ProductID: &productID}}

	assert.True(t, mv.CoversProduct(7))
	assert.False(t, mv.CoversProduct(8))

	assert.False(t, (&MemberVoucher{}).CoversProduct(7))
	assert.False(t, (&MemberVoucher{Voucher: &Voucher{}}).CoversProduct(7))
}

func TestMemberVoucherBelongsTo(t *testing.T) {
	mv := &MemberVoucher{MemberID: 1}
	assert.True(t, mv.BelongsTo(1))
	assert.False(t, mv.BelongsTo(2))
}

func TestCartTotal(t *testing.T) {
	cart := []CartItem{
		{UnitPrice: 12.5, Quantity: 2},
		{UnitPrice: 8.0, Quantity: 1},
	}
	assert.Equal(t, 33.0, CartTotal(cart))
	assert.Equal(t, 0.0, CartTotal(nil))
}
