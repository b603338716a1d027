package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"resto_order_backend/internal/models"
	"resto_order_backend/internal/repositories"
	"resto_order_backend/pkg/utils"
)

// Custom Errors
var (
	ErrCartEmpty        = errors.New("cart is empty")
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderAlreadyPaid = errors.New("order is already paid")
)

// --- Data Transfer Objects (DTOs) ---

// CheckoutInput carries everything checkout needs from the session layer.
type CheckoutInput struct {
	Identity models.Identity
	Mode     models.DiningMode
	Capacity int
	Cart     []models.CartItem
}

// UpdateOrderItemRequest is one replacement line in an admin order edit.
type UpdateOrderItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

// UpdateOrderRequest replaces an order's plain lines with the given set, at
// current catalog prices. Voucher lines whose member voucher ID is absent
// from KeptMemberVoucherIDs are dropped and their vouchers released.
type UpdateOrderRequest struct {
	Items                []UpdateOrderItemRequest `json:"items" binding:"dive"`
	KeptMemberVoucherIDs []int64                  `json:"kept_member_voucher_ids"`
}

// --- End of DTOs ---

// --- OrderService Interface ---
type OrderService interface {
	Checkout(input CheckoutInput) (*models.Order, error)
	CurrentOrder(identity models.Identity, mode models.DiningMode) (*models.Order, error)
	HasPendingOrder(identity models.Identity, mode models.DiningMode) (bool, error)
	History(memberID int64, page, pageSize int) ([]models.Order, int, error)
	GetOrders(filters models.OrderFilters) ([]models.Order, int, error)
	GetOrderByID(orderID int64) (*models.Order, error)
	UpdateOrder(orderID int64, req UpdateOrderRequest) (*models.Order, error)
	DeleteOrder(orderID int64) error
}

// --- orderService Implementation ---
type orderService struct {
	orderRepo   repositories.OrderRepository
	catalogRepo repositories.CatalogRepository
	voucherRepo repositories.VoucherRepository
	tableRepo   repositories.TableRepository
	allocator   TableAllocator
	db          *sql.DB // For managing transactions
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(
	or repositories.OrderRepository,
	cr repositories.CatalogRepository,
	vr repositories.VoucherRepository,
	tr repositories.TableRepository,
	ta TableAllocator,
	db *sql.DB,
) OrderService {
	return &orderService{
		orderRepo:   or,
		catalogRepo: cr,
		voucherRepo: vr,
		tableRepo:   tr,
		allocator:   ta,
		db:          db,
	}
}

// --- Method Implementations ---

// Checkout folds the session cart into the single pending order for the
// identity and dining mode, creating the order (and allocating a table for
// dine-in) when none exists. The whole operation is one transaction; the
// caller clears the cart only after Checkout returns without error.
func (s *orderService) Checkout(input CheckoutInput) (*models.Order, error) {
	if !input.Identity.Valid() {
		return nil, fmt.Errorf("%w: exactly one of member ID or guest ID must be set", ErrValidation)
	}
	if !models.IsValidDiningMode(string(input.Mode)) {
		return nil, fmt.Errorf("%w: unknown dining mode %q", ErrValidation, input.Mode)
	}
	if len(input.Cart) == 0 {
		return nil, ErrCartEmpty
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := s.findOrCreatePending(tx, input)
	if err != nil {
		return nil, err
	}

	existingItems, err := s.orderRepo.GetOrderItemsByOrderID(tx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items for order %d: %w", order.ID, err)
	}
	order.Items = existingItems

	for _, line := range input.Cart {
		if err := s.mergeCartLine(tx, order, line, input.Identity); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit checkout transaction: %w", err)
	}
	return s.GetOrderByID(order.ID)
}

// findOrCreatePending finds the unpaid order for the identity and mode, or
// creates it. A unique violation on create means a concurrent checkout won
// the race, so the existing order is refetched and merged into instead.
func (s *orderService) findOrCreatePending(executor repositories.SQLExecutor, input CheckoutInput) (*models.Order, error) {
	order, err := s.orderRepo.FindPendingOrder(executor, input.Identity, input.Mode)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up pending order: %w", err)
	}

	order = &models.Order{
		MemberID:   input.Identity.MemberID,
		GuestID:    input.Identity.GuestID,
		DiningMode: input.Mode,
		OrderDate:  time.Now(),
	}

	var allocatedTableID *int64
	if input.Mode.RequiresTable() {
		table, err := s.allocator.Allocate(executor, input.Capacity)
		if err != nil {
			return nil, err
		}
		allocatedTableID = &table.ID
		order.TableID = allocatedTableID
	}

	_, err = s.orderRepo.CreateOrder(executor, order)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, repositories.ErrDuplicateKey) {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// Double-submit race: another request created the pending order between
	// our lookup and insert. Give back the table and merge into theirs.
	if allocatedTableID != nil {
		if relErr := s.allocator.Release(executor, *allocatedTableID); relErr != nil {
			return nil, fmt.Errorf("failed to release table after create conflict: %w", relErr)
		}
	}
	order, err = s.orderRepo.FindPendingOrder(executor, input.Identity, input.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to refetch pending order after create conflict: %w", err)
	}
	return order, nil
}

// mergeCartLine folds one cart line into the order, quantity-additive.
// Voucher lines are revalidated and consumed; a voucher that can no longer
// be used degrades to a plain line at the current catalog price.
func (s *orderService) mergeCartLine(executor repositories.SQLExecutor, order *models.Order, line models.CartItem, identity models.Identity) error {
	if line.IsVoucherApplied && line.MemberVoucherID != nil {
		consumed, unitPrice, err := s.consumeVoucher(executor, *line.MemberVoucherID, line.ProductID, identity)
		if err != nil {
			return err
		}
		if consumed {
			return s.mergeVoucherItem(executor, order, line.ProductID, *line.MemberVoucherID, unitPrice)
		}
		utils.LogInfo("voucher no longer usable at checkout, falling back to catalog price",
			map[string]interface{}{"member_voucher_id": *line.MemberVoucherID, "order_id": order.ID, "product_id": line.ProductID})
	}

	product, err := s.catalogRepo.GetProductByID(line.ProductID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.LogInfo("skipping cart line for missing product",
				map[string]interface{}{"product_id": line.ProductID, "order_id": order.ID})
			return nil
		}
		return fmt.Errorf("failed to fetch product %d: %w", line.ProductID, err)
	}

	quantity := line.Quantity
	if quantity < 1 {
		quantity = 1
	}
	return s.mergePlainItem(executor, order, product, quantity)
}

// consumeVoucher revalidates a member voucher and marks it used. Returns
// (false, 0, nil) when the voucher cannot be consumed, which callers treat
// as a fallback to catalog pricing rather than a failure.
func (s *orderService) consumeVoucher(executor repositories.SQLExecutor, memberVoucherID, productID int64, identity models.Identity) (bool, float64, error) {
	if !identity.IsMember() {
		return false, 0, nil
	}
	mv, err := s.voucherRepo.GetMemberVoucherByID(executor, memberVoucherID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("failed to fetch member voucher %d: %w", memberVoucherID, err)
	}
	if !mv.BelongsTo(*identity.MemberID) || !mv.UsableAt(time.Now()) || !mv.CoversProduct(productID) {
		return false, 0, nil
	}

	used, err := s.voucherRepo.MarkUsed(executor, memberVoucherID)
	if err != nil {
		return false, 0, fmt.Errorf("failed to mark member voucher %d used: %w", memberVoucherID, err)
	}
	if !used {
		return false, 0, nil
	}
	return true, mv.Voucher.DiscountedPrice, nil
}

func (s *orderService) mergeVoucherItem(executor repositories.SQLExecutor, order *models.Order, productID, memberVoucherID int64, unitPrice float64) error {
	if existing := order.VoucherItem(productID, memberVoucherID); existing != nil {
		newQty := existing.Quantity + 1
		if err := s.orderRepo.UpdateOrderItemQuantity(executor, existing.ID, newQty, existing.UnitPrice*float64(newQty)); err != nil {
			return fmt.Errorf("failed to update voucher order item %d: %w", existing.ID, err)
		}
		existing.Quantity = newQty
		existing.TotalPrice = existing.UnitPrice * float64(newQty)
		return nil
	}

	item := models.OrderItem{
		OrderID:         order.ID,
		ProductID:       productID,
		Quantity:        1,
		UnitPrice:       unitPrice,
		TotalPrice:      unitPrice,
		IsVoucher:       true,
		MemberVoucherID: &memberVoucherID,
	}
	if _, err := s.orderRepo.CreateOrderItem(executor, &item); err != nil {
		return fmt.Errorf("failed to create voucher order item: %w", err)
	}
	order.Items = append(order.Items, item)
	return nil
}

func (s *orderService) mergePlainItem(executor repositories.SQLExecutor, order *models.Order, product *models.Product, quantity int) error {
	if existing := order.NonVoucherItem(product.ID); existing != nil {
		newQty := existing.Quantity + quantity
		if err := s.orderRepo.UpdateOrderItemQuantity(executor, existing.ID, newQty, existing.UnitPrice*float64(newQty)); err != nil {
			return fmt.Errorf("failed to update order item %d: %w", existing.ID, err)
		}
		existing.Quantity = newQty
		existing.TotalPrice = existing.UnitPrice * float64(newQty)
		return nil
	}

	item := models.OrderItem{
		OrderID:    order.ID,
		ProductID:  product.ID,
		Quantity:   quantity,
		UnitPrice:  product.Price,
		TotalPrice: product.Price * float64(quantity),
	}
	if _, err := s.orderRepo.CreateOrderItem(executor, &item); err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}
	order.Items = append(order.Items, item)
	return nil
}

func (s *orderService) CurrentOrder(identity models.Identity, mode models.DiningMode) (*models.Order, error) {
	if !identity.Valid() {
		return nil, fmt.Errorf("%w: exactly one of member ID or guest ID must be set", ErrValidation)
	}
	order, err := s.orderRepo.FindPendingOrder(s.db, identity, mode)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to look up pending order: %w", err)
	}
	items, err := s.orderRepo.GetOrderItemsByOrderID(s.db, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items for order %d: %w", order.ID, err)
	}
	order.Items = items
	s.attachTable(order)
	return order, nil
}

// attachTable fills in the dine-in table details for detail views. A lookup
// failure leaves the order usable, so it is only logged.
func (s *orderService) attachTable(order *models.Order) {
	if order.TableID == nil {
		return
	}
	table, err := s.tableRepo.GetTableByID(*order.TableID)
	if err != nil {
		utils.LogInfo("could not load table for order", map[string]interface{}{
			"order_id": order.ID,
			"table_id": *order.TableID,
		})
		return
	}
	order.Table = table
}

func (s *orderService) HasPendingOrder(identity models.Identity, mode models.DiningMode) (bool, error) {
	_, err := s.orderRepo.FindPendingOrder(s.db, identity, mode)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up pending order: %w", err)
	}
	return true, nil
}

func (s *orderService) History(memberID int64, page, pageSize int) ([]models.Order, int, error) {
	filters := models.OrderFilters{
		MemberID: &memberID,
		Page:     page,
		PageSize: pageSize,
	}
	return s.GetOrders(filters)
}

func (s *orderService) GetOrders(filters models.OrderFilters) ([]models.Order, int, error) {
	orders, totalCount, err := s.orderRepo.GetOrders(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get orders: %w", err)
	}
	return orders, totalCount, nil
}

func (s *orderService) GetOrderByID(orderID int64) (*models.Order, error) {
	order, err := s.orderRepo.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order by ID from repository: %w", err)
	}
	items, err := s.orderRepo.GetOrderItemsByOrderID(s.db, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items for order %d: %w", orderID, err)
	}
	order.Items = items
	s.attachTable(order)
	return order, nil
}

// UpdateOrder is the admin edit: plain lines are replaced wholesale at
// current catalog prices, and voucher lines not listed as kept are removed
// with their member vouchers released for reuse.
func (s *orderService) UpdateOrder(orderID int64, req UpdateOrderRequest) (*models.Order, error) {
	order, err := s.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid {
		return nil, ErrOrderAlreadyPaid
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	kept := make(map[int64]bool, len(req.KeptMemberVoucherIDs))
	for _, id := range req.KeptMemberVoucherIDs {
		kept[id] = true
	}
	for _, item := range order.Items {
		if !item.IsVoucher || item.MemberVoucherID == nil || kept[*item.MemberVoucherID] {
			continue
		}
		if err := s.orderRepo.DeleteOrderItem(tx, item.ID); err != nil {
			return nil, fmt.Errorf("failed to remove voucher order item %d: %w", item.ID, err)
		}
		if err := s.voucherRepo.MarkUnused(tx, *item.MemberVoucherID); err != nil {
			return nil, fmt.Errorf("failed to release member voucher %d: %w", *item.MemberVoucherID, err)
		}
	}

	if _, err := s.orderRepo.DeleteNonVoucherItems(tx, orderID); err != nil {
		return nil, fmt.Errorf("failed to clear order items: %w", err)
	}

	quantities := make(map[int64]int, len(req.Items))
	ordered := make([]int64, 0, len(req.Items))
	for _, itemReq := range req.Items {
		if quantities[itemReq.ProductID] == 0 {
			ordered = append(ordered, itemReq.ProductID)
		}
		quantities[itemReq.ProductID] += itemReq.Quantity
	}
	for _, productID := range ordered {
		product, err := s.catalogRepo.GetProductByID(productID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: product ID %d", ErrProductNotFound, productID)
			}
			return nil, fmt.Errorf("failed to fetch product %d: %w", productID, err)
		}
		quantity := quantities[productID]
		item := models.OrderItem{
			OrderID:    orderID,
			ProductID:  productID,
			Quantity:   quantity,
			UnitPrice:  product.Price,
			TotalPrice: product.Price * float64(quantity),
		}
		if _, err := s.orderRepo.CreateOrderItem(tx, &item); err != nil {
			return nil, fmt.Errorf("failed to create order item for product %d: %w", productID, err)
		}
	}

	if err := s.orderRepo.UpdateOrderHeader(tx, order); err != nil {
		return nil, fmt.Errorf("failed to touch order header for order %d: %w", orderID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order update transaction: %w", err)
	}
	return s.GetOrderByID(orderID)
}

func (s *orderService) DeleteOrder(orderID int64) error {
	order, err := s.GetOrderByID(orderID)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if !order.IsPaid {
		if order.DiningMode.RequiresTable() && order.TableID != nil {
			if err := s.allocator.Release(tx, *order.TableID); err != nil {
				return fmt.Errorf("failed to release table %d: %w", *order.TableID, err)
			}
		}
		for _, item := range order.Items {
			if item.IsVoucher && item.MemberVoucherID != nil {
				if err := s.voucherRepo.MarkUnused(tx, *item.MemberVoucherID); err != nil {
					return fmt.Errorf("failed to release member voucher %d: %w", *item.MemberVoucherID, err)
				}
			}
		}
	}

	if _, err := s.orderRepo.DeleteOrderItemsByOrderID(tx, orderID); err != nil {
		return fmt.Errorf("failed to delete order items: %w", err)
	}
	if _, err := s.orderRepo.DeleteOrder(tx, orderID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return tx.Commit()
}
