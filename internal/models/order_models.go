package models

import "time"

// DiningMode defines how an order is consumed.
type DiningMode string

const (
	DiningModeTakeAway DiningMode = "TakeAway"
	DiningModeDineIn   DiningMode = "DineIn"
)

// IsValidDiningMode checks if the provided mode string is a valid DiningMode.
func IsValidDiningMode(mode string) bool {
	switch DiningMode(mode) {
	case DiningModeTakeAway, DiningModeDineIn:
		return true
	default:
		return false
	}
}

// RequiresTable reports whether orders in this mode occupy a table.
func (m DiningMode) RequiresTable() bool {
	return m == DiningModeDineIn
}

// Order is the aggregate the consolidator maintains: the single unpaid
// order per identity and dining mode, repeatedly merged into by checkout
// until it is paid.
type Order struct {
	ID         int64      `json:"id" db:"id"`
	MemberID   *int64     `json:"member_id,omitempty" db:"member_id"`
	GuestID    *string    `json:"guest_id,omitempty" db:"guest_id"`
	TableID    *int64     `json:"table_id,omitempty" db:"table_id"`
	DiningMode DiningMode `json:"dining_mode" db:"dining_mode"`
	OrderDate  time.Time  `json:"order_date" db:"order_date"`
	IsPaid     bool       `json:"is_paid" db:"is_paid"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`

	Items []OrderItem `json:"items"`

	Member *Member `json:"member,omitempty"`
	Table  *Table  `json:"table,omitempty"`
}

// TotalPrice is derived from the lines and never stored.
func (o *Order) TotalPrice() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}

// NonVoucherItem returns the order's plain line for the product, or nil.
func (o *Order) NonVoucherItem(productID int64) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ProductID == productID && !o.Items[i].IsVoucher {
			return &o.Items[i]
		}
	}
	return nil
}

// VoucherItem returns the order's voucher line for the product and member
// voucher pair, or nil.
func (o *Order) VoucherItem(productID, memberVoucherID int64) *OrderItem {
	for i := range o.Items {
		it := &o.Items[i]
		if it.ProductID == productID && it.IsVoucher &&
			it.MemberVoucherID != nil && *it.MemberVoucherID == memberVoucherID {
			return it
		}
	}
	return nil
}

// OrderItem is one order line with the unit price snapshotted at the time
// the line was created. TotalPrice is kept equal to UnitPrice*Quantity.
type OrderItem struct {
	ID              int64     `json:"id" db:"id"`
	OrderID         int64     `json:"order_id" db:"order_id"`
	ProductID       int64     `json:"product_id" db:"product_id"`
	Quantity        int       `json:"quantity" db:"quantity"`
	UnitPrice       float64   `json:"unit_price" db:"unit_price"`
	TotalPrice      float64   `json:"total_price" db:"total_price"`
	IsVoucher       bool      `json:"is_voucher" db:"is_voucher"`
	MemberVoucherID *int64    `json:"member_voucher_id,omitempty" db:"member_voucher_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`

	Product       *Product       `json:"product,omitempty"`
	MemberVoucher *MemberVoucher `json:"member_voucher,omitempty"`
}

// OrderFilters defines the available filters for querying orders.
// This struct is used by both the service and repository layers.
type OrderFilters struct {
	MemberID *int64  `form:"member_id"`
	GuestID  *string `form:"guest_id"`
	TableID  *int64  `form:"table_id"`
	IsPaid   *bool   `form:"is_paid"`
	Date     *string `form:"date"` // Expected format YYYY-MM-DD
	Page     int     `form:"page"`
	PageSize int     `form:"page_size"`
}
