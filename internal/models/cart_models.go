package models

// CartItem is one line of the session-scoped shopping cart. It carries a
// name/price/image snapshot taken when the line was created, so later
// catalog edits do not affect carts already in flight.
//
// A cart holds at most one non-voucher line per product and at most one
// voucher line per member voucher. Voucher lines are pinned to quantity 1.
type CartItem struct {
	ProductID        int64   `json:"product_id"`
	ProductName      string  `json:"product_name"`
	UnitPrice        float64 `json:"unit_price"`
	Quantity         int     `json:"quantity"`
	ImagePath        string  `json:"image_path"`
	IsVoucherApplied bool    `json:"is_voucher_applied"`
	MemberVoucherID  *int64  `json:"member_voucher_id,omitempty"`
	VoucherName      *string `json:"voucher_name,omitempty"`
}

// Total is the line subtotal.
func (c CartItem) Total() float64 {
	return c.UnitPrice * float64(c.Quantity)
}

// CartTotal sums line subtotals over the whole cart.
func CartTotal(cart []CartItem) float64 {
	var total float64
	for _, line := range cart {
		total += line.Total()
	}
	return total
}
