package services

import (
	"testing"
	"time"

	"resto_order_backend/internal/models"
	"resto_order_backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalogRepo struct {
	products map[int64]*models.Product
}

func (f *fakeCatalogRepo) GetActiveProductByID(productID int64) (*models.Product, error) {
	p, ok := f.products[productID]
	if !ok || !p.IsActive {
		return nil, repositories.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalogRepo) GetProductByID(productID int64) (*models.Product, error) {
	p, ok := f.products[productID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return p, nil
}

type fakeVoucherRepo struct {
	memberVouchers map[int64]*models.MemberVoucher
}

func (f *fakeVoucherRepo) GetVoucherByID(int64) (*models.Voucher, error) { return nil, repositories.ErrNotFound }
func (f *fakeVoucherRepo) ListRedeemable() ([]models.Voucher, error)    { return nil, nil }
func (f *fakeVoucherRepo) IncrementRedeemedCount(repositories.SQLExecutor, int64) (bool, error) {
	return false, nil
}
func (f *fakeVoucherRepo) DeleteVoucher(repositories.SQLExecutor, int64) error { return nil }
func (f *fakeVoucherRepo) CreateMemberVoucher(_ repositories.SQLExecutor, mv *models.MemberVoucher) (int64, error) {
	return mv.ID, nil
}

func (f *fakeVoucherRepo) GetMemberVoucherByID(_ repositories.SQLExecutor, memberVoucherID int64) (*models.MemberVoucher, error) {
	mv, ok := f.memberVouchers[memberVoucherID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return mv, nil
}

func (f *fakeVoucherRepo) ListUsableByMember(int64, time.Time) ([]models.MemberVoucher, error) {
	return nil, nil
}
func (f *fakeVoucherRepo) ListUsableForProduct(int64, int64, time.Time) ([]models.MemberVoucher, error) {
	return nil, nil
}
func (f *fakeVoucherRepo) MarkUsed(_ repositories.SQLExecutor, memberVoucherID int64) (bool, error) {
	mv, ok := f.memberVouchers[memberVoucherID]
	if !ok || mv.IsUsed {
		return false, nil
	}
	mv.IsUsed = true
	return true, nil
}
func (f *fakeVoucherRepo) MarkUnused(_ repositories.SQLExecutor, memberVoucherID int64) error {
	if mv, ok := f.memberVouchers[memberVoucherID]; ok {
		mv.IsUsed = false
	}
	return nil
}
func (f *fakeVoucherRepo) ClearOrderItemReferences(repositories.SQLExecutor, int64) (int64, error) {
	return 0, nil
}
func (f *fakeVoucherRepo) DeleteByVoucher(repositories.SQLExecutor, int64) (int64, error) {
	return 0, nil
}

func imagePtr(s string) *string { return &s }

func newCartFixture() (*fakeCatalogRepo, *fakeVoucherRepo, CartService) {
	productID := int64(7)
	catalog := &fakeCatalogRepo{products: map[int64]*models.Product{
		7: {ID: 7, Name: "Laksa", Price: 12.5, IsActive: true, ImagePath: imagePtr("/img/laksa.png")},
		8: {ID: 8, Name: "Kopi", Price: 3.0, IsActive: true},
		9: {ID: 9, Name: "Retired Dish", Price: 9.0, IsActive: false},
	}}
	vouchers := &fakeVoucherRepo{memberVouchers: map[int64]*models.MemberVoucher{
		100: {
			ID:         100,
			MemberID:   1,
			VoucherID:  50,
			ExpiryDate: time.Now().Add(24 * time.Hour),
			Voucher: &models.Voucher{
				ID:              50,
				Name:            "Laksa Deal",
				ProductID:       &productID,
				DiscountedPrice: 8.0,
				Product:         &models.Product{ID: 7, Name: "Laksa"},
			},
		},
		101: {
			ID:         101,
			MemberID:   1,
			VoucherID:  50,
			ExpiryDate: time.Now().Add(-time.Hour),
			Voucher: &models.Voucher{
				ID:              50,
				Name:            "Laksa Deal",
				ProductID:       &productID,
				DiscountedPrice: 8.0,
			},
		},
	}}
	return catalog, vouchers, NewCartService(catalog, vouchers, nil)
}

func TestAddItemMergesQuantities(t *testing.T) {
	_, _, svc := newCartFixture()

	cart, err := svc.AddItem(nil, 7, 2)
	require.NoError(t, err)
	cart, err = svc.AddItem(cart, 7, 3)
	require.NoError(t, err)

	require.Len(t, cart, 1)
	assert.Equal(t, 5, cart[0].Quantity)
	assert.Equal(t, 12.5, cart[0].UnitPrice)
	assert.Equal(t, "Laksa", cart[0].ProductName)
	assert.Equal(t, "/img/laksa.png", cart[0].ImagePath)
}

func TestAddItemCoercesQuantityToOne(t *testing.T) {
	_, _, svc := newCartFixture()

	cart, err := svc.AddItem(nil, 8, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, cart[0].Quantity)
}

func TestAddItemRejectsInactiveProduct(t *testing.T) {
	_, _, svc := newCartFixture()

	_, err := svc.AddItem(nil, 9, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.AddItem(nil, 999, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestUpdateQuantityBounds(t *testing.T) {
	_, _, svc := newCartFixture()
	cart, err := svc.AddItem(nil, 7, 1)
	require.NoError(t, err)

	_, err = svc.UpdateQuantity(cart, 7, nil, 0)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.UpdateQuantity(cart, 7, nil, 100)
	assert.ErrorIs(t, err, ErrValidation)

	cart, err = svc.UpdateQuantity(cart, 7, nil, 99)
	require.NoError(t, err)
	assert.Equal(t, 99, cart[0].Quantity)
}

func TestUpdateQuantityMissingLine(t *testing.T) {
	_, _, svc := newCartFixture()

	_, err := svc.UpdateQuantity(nil, 7, nil, 2)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestUpdateQuantityVoucherLineImmutable(t *testing.T) {
	_, _, svc := newCartFixture()
	cart, err := svc.AddVoucherToCart(nil, 1, 100)
	require.NoError(t, err)

	mvID := int64(100)
	_, err = svc.UpdateQuantity(cart, 7, &mvID, 2)
	assert.ErrorIs(t, err, ErrVoucherQuantityFixed)
}

func TestRemoveItem(t *testing.T) {
	_, _, svc := newCartFixture()
	cart, err := svc.AddItem(nil, 7, 1)
	require.NoError(t, err)
	cart, err = svc.AddItem(cart, 8, 1)
	require.NoError(t, err)

	cart, err = svc.RemoveItem(cart, 7)
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Equal(t, int64(8), cart[0].ProductID)

	_, err = svc.RemoveItem(cart, 7)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestApplyVoucherSwapsOneUnit(t *testing.T) {
	_, _, svc := newCartFixture()
	cart, err := svc.AddItem(nil, 7, 3)
	require.NoError(t, err)

	cart, err = svc.ApplyVoucher(cart, 1, 7, 100)
	require.NoError(t, err)
	require.Len(t, cart, 2)

	plain := cart[0]
	voucher := cart[1]
	assert.Equal(t, 2, plain.Quantity)
	assert.False(t, plain.IsVoucherApplied)
	assert.True(t, voucher.IsVoucherApplied)
	assert.Equal(t, 1, voucher.Quantity)
	assert.Equal(t, 8.0, voucher.UnitPrice)
	require.NotNil(t, voucher.MemberVoucherID)
	assert.Equal(t, int64(100), *voucher.MemberVoucherID)
}

func TestApplyVoucherDropsEmptiedLine(t *testing.T) {
	_, _, svc := newCartFixture()
	cart, err := svc.AddItem(nil, 7, 1)
	require.NoError(t, err)

	cart, err = svc.ApplyVoucher(cart, 1, 7, 100)
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.True(t, cart[0].IsVoucherApplied)
}

func TestApplyVoucherWithoutPlainLine(t *testing.T) {
	_, _, svc := newCartFixture()

	cart, err := svc.ApplyVoucher(nil, 1, 7, 100)
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.True(t, cart[0].IsVoucherApplied)
	assert.Equal(t, 1, cart[0].Quantity)
}

func TestApplyVoucherRejectsDuplicate(t *testing.T) {
	_, _, svc := newCartFixture()
	cart, err := svc.ApplyVoucher(nil, 1, 7, 100)
	require.NoError(t, err)

	_, err = svc.ApplyVoucher(cart, 1, 7, 100)
	assert.ErrorIs(t, err, ErrVoucherAlreadyInCart)
}

func TestApplyVoucherWrongProduct(t *testing.T) {
	_, _, svc := newCartFixture()

	_, err := svc.ApplyVoucher(nil, 1, 8, 100)
	assert.ErrorIs(t, err, ErrVoucherWrongProduct)
}

func TestApplyVoucherExpired(t *testing.T) {
	_, _, svc := newCartFixture()

	_, err := svc.ApplyVoucher(nil, 1, 7, 101)
	assert.ErrorIs(t, err, ErrVoucherNotUsable)
}

func TestApplyVoucherNotOwned(t *testing.T) {
	_, _, svc := newCartFixture()

	_, err := svc.ApplyVoucher(nil, 2, 7, 100)
	assert.ErrorIs(t, err, ErrVoucherNotFound)
}

func TestApplyVoucherAlreadyUsed(t *testing.T) {
	_, vouchers, svc := newCartFixture()
	vouchers.memberVouchers[100].IsUsed = true

	_, err := svc.ApplyVoucher(nil, 1, 7, 100)
	assert.ErrorIs(t, err, ErrVoucherNotUsable)
}

func TestAddVoucherToCartFillsProductSnapshot(t *testing.T) {
	_, _, svc := newCartFixture()

	cart, err := svc.AddVoucherToCart(nil, 1, 100)
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Equal(t, "Laksa", cart[0].ProductName)
	assert.Equal(t, "/img/laksa.png", cart[0].ImagePath)
	assert.Equal(t, 8.0, cart[0].UnitPrice)
	require.NotNil(t, cart[0].VoucherName)
	assert.Equal(t, "Laksa Deal", *cart[0].VoucherName)
}

func TestRemoveVoucher(t *testing.T) {
	_, _, svc := newCartFixture()
	cart, err := svc.AddVoucherToCart(nil, 1, 100)
	require.NoError(t, err)

	cart, err = svc.RemoveVoucher(cart, 100)
	require.NoError(t, err)
	assert.Empty(t, cart)

	_, err = svc.RemoveVoucher(cart, 100)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}
