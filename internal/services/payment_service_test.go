package services

import (
	"testing"

	"resto_order_backend/internal/models"
	"resto_order_backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMemberRepo struct {
	members map[int64]*models.Member
}

func (f *fakeMemberRepo) GetMemberByID(memberID int64) (*models.Member, error) {
	m, ok := f.members[memberID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return m, nil
}

func (f *fakeMemberRepo) AddPoints(_ repositories.SQLExecutor, memberID int64, points int) error {
	if m, ok := f.members[memberID]; ok {
		m.Point += points
	}
	return nil
}

func (f *fakeMemberRepo) DeductPoints(_ repositories.SQLExecutor, memberID int64, points int) (bool, error) {
	m, ok := f.members[memberID]
	if !ok || m.Point < points {
		return false, nil
	}
	m.Point -= points
	return true, nil
}

func TestPointsForTotal(t *testing.T) {
	tests := []struct {
		name  string
		total float64
		want  int
	}{
		{"whole amount", 25.0, 25},
		{"fraction rounds down", 25.99, 25},
		{"just under one", 0.99, 0},
		{"zero", 0, 0},
		{"negative clamps to zero", -3.5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PointsForTotal(tt.total))
		})
	}
}

func TestBuildReceipt(t *testing.T) {
	memberID := int64(5)
	mvID := int64(100)
	order := &models.Order{
		ID:         42,
		MemberID:   &memberID,
		DiningMode: models.DiningModeDineIn,
		Items: []models.OrderItem{
			{
				ProductID:  7,
				Quantity:   2,
				UnitPrice:  12.5,
				TotalPrice: 25.0,
				Product:    &models.Product{ID: 7, Name: "Laksa"},
			},
			{
				ProductID:       7,
				Quantity:        1,
				UnitPrice:       8.0,
				TotalPrice:      8.0,
				IsVoucher:       true,
				MemberVoucherID: &mvID,
			},
		},
	}

	receipt := buildReceipt(order, 33)

	assert.Equal(t, int64(42), receipt.OrderID)
	require.NotNil(t, receipt.MemberID)
	assert.Equal(t, int64(5), *receipt.MemberID)
	assert.Equal(t, "DineIn", receipt.DiningMode)
	assert.Equal(t, 33.0, receipt.Total)
	assert.Equal(t, 33, receipt.PointsEarned)

	require.Len(t, receipt.Lines, 2)
	assert.Equal(t, "Laksa", receipt.Lines[0].ProductName)
	assert.False(t, receipt.Lines[0].IsVoucher)
	assert.True(t, receipt.Lines[1].IsVoucher)
	assert.Empty(t, receipt.Lines[1].ProductName)
}

func TestPayCreditsPointsFromLinesAtPaidTransition(t *testing.T) {
	memberID := int64(1)
	tableID := int64(2)
	orders := newFakeOrderRepo()
	members := &fakeMemberRepo{members: map[int64]*models.Member{
		1: {ID: 1, Username: "amin", Point: 10},
	}}
	tables := newTableFixture()
	tables.tables[tableID].IsAvailable = false

	order := &models.Order{MemberID: &memberID, TableID: &tableID, DiningMode: models.DiningModeDineIn}
	_, err := orders.CreateOrder(nil, order)
	require.NoError(t, err)
	_, err = orders.CreateOrderItem(nil, &models.OrderItem{OrderID: order.ID, ProductID: 7, Quantity: 2, UnitPrice: 12.5, TotalPrice: 25.0})
	require.NoError(t, err)

	// A concurrent checkout commits another line just before the paid
	// transition acquires the order row. Those 3.0 must be counted.
	orders.onMarkPaid = func() {
		_, err := orders.CreateOrderItem(nil, &models.OrderItem{OrderID: order.ID, ProductID: 8, Quantity: 1, UnitPrice: 3.0, TotalPrice: 3.0})
		require.NoError(t, err)
	}

	svc := &paymentService{
		orderRepo:  orders,
		memberRepo: members,
		allocator:  &tableAllocator{tableRepo: tables, pick: func(int) int { return 0 }},
	}

	transitioned, points, err := svc.payInTx(nil, order)
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, 28, points)
	assert.Equal(t, 10+28, members.members[memberID].Point)
	require.Len(t, order.Items, 2)
	assert.True(t, tables.tables[tableID].IsAvailable)
}

func TestPayAgainIsNoOp(t *testing.T) {
	memberID := int64(1)
	orders := newFakeOrderRepo()
	members := &fakeMemberRepo{members: map[int64]*models.Member{
		1: {ID: 1, Username: "amin", Point: 10},
	}}

	order := &models.Order{MemberID: &memberID, DiningMode: models.DiningModeTakeAway, IsPaid: true}
	_, err := orders.CreateOrder(nil, order)
	require.NoError(t, err)

	svc := &paymentService{orderRepo: orders, memberRepo: members}

	transitioned, points, err := svc.payInTx(nil, order)
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.Equal(t, 0, points)
	assert.Equal(t, 10, members.members[memberID].Point)
}
