package services

import (
	"sort"
	"testing"
	"time"

	"resto_order_backend/internal/models"
	"resto_order_backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderRepo struct {
	nextOrderID int64
	nextItemID  int64
	orders      map[int64]*models.Order
	items       map[int64]*models.OrderItem

	// conflictWith, when set, makes the next CreateOrder behave like a lost
	// double-submit race: the given order is committed as the winner and the
	// create reports a duplicate key.
	conflictWith *models.Order

	onMarkPaid func()
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: map[int64]*models.Order{},
		items:  map[int64]*models.OrderItem{},
	}
}

func (f *fakeOrderRepo) CreateOrder(_ repositories.SQLExecutor, order *models.Order) (int64, error) {
	if f.conflictWith != nil {
		winner := f.conflictWith
		f.conflictWith = nil
		f.nextOrderID++
		winner.ID = f.nextOrderID
		f.orders[winner.ID] = winner
		return 0, repositories.ErrDuplicateKey
	}
	f.nextOrderID++
	order.ID = f.nextOrderID
	cp := *order
	f.orders[order.ID] = &cp
	return order.ID, nil
}

func (f *fakeOrderRepo) FindPendingOrder(_ repositories.SQLExecutor, identity models.Identity, mode models.DiningMode) (*models.Order, error) {
	for _, o := range f.orders {
		if o.IsPaid || o.DiningMode != mode {
			continue
		}
		if identity.IsMember() {
			if o.MemberID != nil && *o.MemberID == *identity.MemberID {
				cp := *o
				return &cp, nil
			}
			continue
		}
		if o.GuestID != nil && identity.GuestID != nil && *o.GuestID == *identity.GuestID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeOrderRepo) GetOrderByID(orderID int64) (*models.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) GetOrders(models.OrderFilters) ([]models.Order, int, error) {
	return nil, 0, nil
}

func (f *fakeOrderRepo) UpdateOrderHeader(_ repositories.SQLExecutor, order *models.Order) error {
	if _, ok := f.orders[order.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) MarkPaid(_ repositories.SQLExecutor, orderID int64) (bool, error) {
	o, ok := f.orders[orderID]
	if !ok || o.IsPaid {
		return false, nil
	}
	o.IsPaid = true
	if f.onMarkPaid != nil {
		f.onMarkPaid()
	}
	return true, nil
}

func (f *fakeOrderRepo) DeleteOrder(_ repositories.SQLExecutor, orderID int64) (int64, error) {
	if _, ok := f.orders[orderID]; !ok {
		return 0, nil
	}
	delete(f.orders, orderID)
	return 1, nil
}

func (f *fakeOrderRepo) CreateOrderItem(_ repositories.SQLExecutor, item *models.OrderItem) (int64, error) {
	f.nextItemID++
	item.ID = f.nextItemID
	cp := *item
	f.items[item.ID] = &cp
	return item.ID, nil
}

func (f *fakeOrderRepo) GetOrderItemsByOrderID(_ repositories.SQLExecutor, orderID int64) ([]models.OrderItem, error) {
	var out []models.OrderItem
	for _, it := range f.items {
		if it.OrderID == orderID {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeOrderRepo) UpdateOrderItemQuantity(_ repositories.SQLExecutor, itemID int64, quantity int, totalPrice float64) error {
	it, ok := f.items[itemID]
	if !ok {
		return repositories.ErrNotFound
	}
	it.Quantity = quantity
	it.TotalPrice = totalPrice
	return nil
}

func (f *fakeOrderRepo) DeleteOrderItem(_ repositories.SQLExecutor, itemID int64) error {
	delete(f.items, itemID)
	return nil
}

func (f *fakeOrderRepo) DeleteNonVoucherItems(_ repositories.SQLExecutor, orderID int64) (int64, error) {
	var n int64
	for id, it := range f.items {
		if it.OrderID == orderID && !it.IsVoucher {
			delete(f.items, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeOrderRepo) DeleteOrderItemsByOrderID(_ repositories.SQLExecutor, orderID int64) (int64, error) {
	var n int64
	for id, it := range f.items {
		if it.OrderID == orderID {
			delete(f.items, id)
			n++
		}
	}
	return n, nil
}

func newOrderFixture() (*fakeOrderRepo, *fakeVoucherRepo, *fakeTableRepo, *orderService) {
	catalog, vouchers, _ := newCartFixture()
	orders := newFakeOrderRepo()
	tables := newTableFixture()
	svc := &orderService{
		orderRepo:   orders,
		catalogRepo: catalog,
		voucherRepo: vouchers,
		tableRepo:   tables,
		allocator:   &tableAllocator{tableRepo: tables, pick: func(int) int { return 0 }},
	}
	return orders, vouchers, tables, svc
}

// checkoutOnce replays the transactional body of Checkout against the fakes:
// find or create the pending order, load its lines and fold the cart in.
func checkoutOnce(t *testing.T, svc *orderService, orders *fakeOrderRepo, input CheckoutInput) *models.Order {
	t.Helper()
	order, err := svc.findOrCreatePending(nil, input)
	require.NoError(t, err)
	items, err := orders.GetOrderItemsByOrderID(nil, order.ID)
	require.NoError(t, err)
	order.Items = items
	for _, line := range input.Cart {
		require.NoError(t, svc.mergeCartLine(nil, order, line, input.Identity))
	}
	return order
}

func TestCheckoutTwiceMergesQuantities(t *testing.T) {
	orders, _, _, svc := newOrderFixture()
	input := CheckoutInput{
		Identity: models.MemberIdentity(1),
		Mode:     models.DiningModeTakeAway,
		Cart:     []models.CartItem{{ProductID: 7, Quantity: 99}},
	}

	first := checkoutOnce(t, svc, orders, input)
	second := checkoutOnce(t, svc, orders, input)

	assert.Equal(t, first.ID, second.ID)
	items, err := orders.GetOrderItemsByOrderID(nil, second.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 198, items[0].Quantity)
	assert.False(t, items[0].IsVoucher)
	assert.InDelta(t, 12.5*198, items[0].TotalPrice, 1e-9)
}

func TestCheckoutConsumesUsableVoucher(t *testing.T) {
	orders, vouchers, _, svc := newOrderFixture()
	mvID := int64(100)
	input := CheckoutInput{
		Identity: models.MemberIdentity(1),
		Mode:     models.DiningModeTakeAway,
		Cart: []models.CartItem{
			{ProductID: 7, Quantity: 1, IsVoucherApplied: true, MemberVoucherID: &mvID, UnitPrice: 8.0},
		},
	}

	order := checkoutOnce(t, svc, orders, input)

	items, err := orders.GetOrderItemsByOrderID(nil, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].IsVoucher)
	assert.InDelta(t, 8.0, items[0].UnitPrice, 1e-9)
	require.NotNil(t, items[0].MemberVoucherID)
	assert.Equal(t, mvID, *items[0].MemberVoucherID)
	assert.True(t, vouchers.memberVouchers[mvID].IsUsed)
}

func TestCheckoutExpiredVoucherFallsBackToCatalogPrice(t *testing.T) {
	orders, vouchers, _, svc := newOrderFixture()
	mvID := int64(101) // expired in the fixture
	input := CheckoutInput{
		Identity: models.MemberIdentity(1),
		Mode:     models.DiningModeTakeAway,
		Cart: []models.CartItem{
			{ProductID: 7, Quantity: 2, IsVoucherApplied: true, MemberVoucherID: &mvID, UnitPrice: 8.0},
		},
	}

	order := checkoutOnce(t, svc, orders, input)

	items, err := orders.GetOrderItemsByOrderID(nil, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].IsVoucher)
	assert.Equal(t, 2, items[0].Quantity)
	assert.InDelta(t, 12.5, items[0].UnitPrice, 1e-9)
	assert.False(t, vouchers.memberVouchers[mvID].IsUsed)
}

func TestCheckoutCreateConflictMergesIntoWinner(t *testing.T) {
	orders, _, tables, svc := newOrderFixture()
	memberID := int64(1)
	orders.conflictWith = &models.Order{
		MemberID:   &memberID,
		DiningMode: models.DiningModeDineIn,
		OrderDate:  time.Now(),
	}
	input := CheckoutInput{
		Identity: models.MemberIdentity(memberID),
		Mode:     models.DiningModeDineIn,
		Capacity: 2,
		Cart:     []models.CartItem{{ProductID: 8, Quantity: 1}},
	}

	order, err := svc.findOrCreatePending(nil, input)
	require.NoError(t, err)

	winner, err := orders.FindPendingOrder(nil, input.Identity, input.Mode)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, order.ID)

	// The table claimed for the losing insert was handed back.
	assert.True(t, tables.tables[1].IsAvailable)
	assert.True(t, tables.tables[2].IsAvailable)
	assert.False(t, tables.tables[3].IsAvailable)
}
