package models

import "time"

// Voucher is a catalog-level discount definition: redeeming one costs
// PointCost loyalty points and yields a MemberVoucher that buys the linked
// product at DiscountedPrice. RedeemedCount never exceeds TotalLimit.
type Voucher struct {
	ID              int64     `json:"id" db:"id"`
	Name            string    `json:"name" db:"name" binding:"required"`
	Detail          *string   `json:"detail,omitempty" db:"detail"`
	ValidDays       int       `json:"valid_days" db:"valid_days"`
	PointCost       int       `json:"point_cost" db:"point_cost"`
	TotalLimit      int       `json:"total_limit" db:"total_limit"`
	ProductID       *int64    `json:"product_id,omitempty" db:"product_id"`
	DiscountedPrice float64   `json:"discounted_price" db:"discounted_price"`
	RedeemedCount   int       `json:"redeemed_count" db:"redeemed_count"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`

	Product *Product `json:"product,omitempty"`
}

// MemberVoucher is one member's redeemed, consumable instance of a Voucher.
type MemberVoucher struct {
	ID           int64     `json:"id" db:"id"`
	MemberID     int64     `json:"member_id" db:"member_id"`
	VoucherID    int64     `json:"voucher_id" db:"voucher_id"`
	RedeemedDate time.Time `json:"redeemed_date" db:"redeemed_date"`
	ExpiryDate   time.Time `json:"expiry_date" db:"expiry_date"`
	IsUsed       bool      `json:"is_used" db:"is_used"`

	Voucher *Voucher `json:"voucher,omitempty"`
}

// UsableAt reports whether the voucher instance can still be consumed:
// not yet folded into an order and not expired.
func (mv *MemberVoucher) UsableAt(now time.Time) bool {
	return !mv.IsUsed && mv.ExpiryDate.After(now)
}

// CoversProduct reports whether the voucher definition is linked to the
// given product.
func (mv *MemberVoucher) CoversProduct(productID int64) bool {
	return mv.Voucher != nil && mv.Voucher.ProductID != nil && *mv.Voucher.ProductID == productID
}

// BelongsTo reports whether the voucher instance was redeemed by the member.
func (mv *MemberVoucher) BelongsTo(memberID int64) bool {
	return mv.MemberID == memberID
}
