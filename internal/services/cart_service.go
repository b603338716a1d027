package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"resto_order_backend/internal/models"
	"resto_order_backend/internal/repositories"
)

// Custom Errors
var (
	ErrValidation           = errors.New("validation error")
	ErrProductNotFound      = errors.New("product not found or not available")
	ErrCartItemNotFound     = errors.New("item not found in cart")
	ErrVoucherQuantityFixed = errors.New("voucher line quantity cannot be changed")
	ErrVoucherNotFound      = errors.New("member voucher not found")
	ErrVoucherNotUsable     = errors.New("voucher is already used or expired")
	ErrVoucherWrongProduct  = errors.New("voucher does not apply to this product")
	ErrVoucherAlreadyInCart = errors.New("voucher is already in the cart")
)

const maxLineQuantity = 99

// --- CartService Interface ---

// CartService mutates a session cart. Operations take the current cart and
// return the updated one; the caller owns persistence.
type CartService interface {
	AddItem(cart []models.CartItem, productID int64, quantity int) ([]models.CartItem, error)
	UpdateQuantity(cart []models.CartItem, productID int64, memberVoucherID *int64, quantity int) ([]models.CartItem, error)
	RemoveItem(cart []models.CartItem, productID int64) ([]models.CartItem, error)
	RemoveVoucher(cart []models.CartItem, memberVoucherID int64) ([]models.CartItem, error)
	ApplyVoucher(cart []models.CartItem, memberID, productID, memberVoucherID int64) ([]models.CartItem, error)
	AddVoucherToCart(cart []models.CartItem, memberID, memberVoucherID int64) ([]models.CartItem, error)
}

// --- cartService Implementation ---
type cartService struct {
	catalogRepo repositories.CatalogRepository
	voucherRepo repositories.VoucherRepository
	db          *sql.DB
}

// NewCartService creates a new instance of CartService.
func NewCartService(
	cr repositories.CatalogRepository,
	vr repositories.VoucherRepository,
	db *sql.DB,
) CartService {
	return &cartService{
		catalogRepo: cr,
		voucherRepo: vr,
		db:          db,
	}
}

// --- Method Implementations ---

func (s *cartService) AddItem(cart []models.CartItem, productID int64, quantity int) ([]models.CartItem, error) {
	if quantity < 1 {
		quantity = 1
	}

	product, err := s.catalogRepo.GetActiveProductByID(productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: product ID %d", ErrProductNotFound, productID)
		}
		return nil, fmt.Errorf("failed to fetch product %d: %w", productID, err)
	}

	for i := range cart {
		if cart[i].ProductID == productID && !cart[i].IsVoucherApplied {
			cart[i].Quantity += quantity
			return cart, nil
		}
	}

	line := models.CartItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		UnitPrice:   product.Price,
		Quantity:    quantity,
	}
	if product.ImagePath != nil {
		line.ImagePath = *product.ImagePath
	}
	return append(cart, line), nil
}

func (s *cartService) UpdateQuantity(cart []models.CartItem, productID int64, memberVoucherID *int64, quantity int) ([]models.CartItem, error) {
	if quantity < 1 || quantity > maxLineQuantity {
		return nil, fmt.Errorf("%w: quantity must be between 1 and %d", ErrValidation, maxLineQuantity)
	}

	for i := range cart {
		if !cartLineMatches(&cart[i], productID, memberVoucherID) {
			continue
		}
		if cart[i].IsVoucherApplied {
			return nil, ErrVoucherQuantityFixed
		}
		cart[i].Quantity = quantity
		return cart, nil
	}
	return nil, fmt.Errorf("%w: product ID %d", ErrCartItemNotFound, productID)
}

func (s *cartService) RemoveItem(cart []models.CartItem, productID int64) ([]models.CartItem, error) {
	for i := range cart {
		if cart[i].ProductID == productID && !cart[i].IsVoucherApplied {
			return append(cart[:i], cart[i+1:]...), nil
		}
	}
	return nil, fmt.Errorf("%w: product ID %d", ErrCartItemNotFound, productID)
}

func (s *cartService) RemoveVoucher(cart []models.CartItem, memberVoucherID int64) ([]models.CartItem, error) {
	for i := range cart {
		if cart[i].IsVoucherApplied && cart[i].MemberVoucherID != nil && *cart[i].MemberVoucherID == memberVoucherID {
			return append(cart[:i], cart[i+1:]...), nil
		}
	}
	return nil, fmt.Errorf("%w: member voucher ID %d", ErrCartItemNotFound, memberVoucherID)
}

func (s *cartService) ApplyVoucher(cart []models.CartItem, memberID, productID, memberVoucherID int64) ([]models.CartItem, error) {
	mv, err := s.loadUsableVoucher(memberID, memberVoucherID)
	if err != nil {
		return nil, err
	}
	if !mv.CoversProduct(productID) {
		return nil, fmt.Errorf("%w: member voucher ID %d, product ID %d", ErrVoucherWrongProduct, memberVoucherID, productID)
	}
	if cartHasVoucher(cart, memberVoucherID) {
		return nil, fmt.Errorf("%w: member voucher ID %d", ErrVoucherAlreadyInCart, memberVoucherID)
	}

	// One unit moves from the full-price line to a discounted voucher line.
	// Without a full-price line the voucher line is simply added.
	for i := range cart {
		if cart[i].ProductID == productID && !cart[i].IsVoucherApplied {
			cart[i].Quantity--
			if cart[i].Quantity == 0 {
				cart = append(cart[:i], cart[i+1:]...)
			}
			break
		}
	}
	return append(cart, voucherCartLine(mv)), nil
}

func (s *cartService) AddVoucherToCart(cart []models.CartItem, memberID, memberVoucherID int64) ([]models.CartItem, error) {
	mv, err := s.loadUsableVoucher(memberID, memberVoucherID)
	if err != nil {
		return nil, err
	}
	if mv.Voucher == nil || mv.Voucher.ProductID == nil {
		return nil, fmt.Errorf("%w: member voucher ID %d has no linked product", ErrVoucherWrongProduct, memberVoucherID)
	}
	if cartHasVoucher(cart, memberVoucherID) {
		return nil, fmt.Errorf("%w: member voucher ID %d", ErrVoucherAlreadyInCart, memberVoucherID)
	}

	product, err := s.catalogRepo.GetProductByID(*mv.Voucher.ProductID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: product ID %d", ErrProductNotFound, *mv.Voucher.ProductID)
		}
		return nil, fmt.Errorf("failed to fetch product %d: %w", *mv.Voucher.ProductID, err)
	}

	line := voucherCartLine(mv)
	line.ProductName = product.Name
	if product.ImagePath != nil {
		line.ImagePath = *product.ImagePath
	}
	return append(cart, line), nil
}

// loadUsableVoucher fetches a member voucher and checks ownership and
// usability. Not-owned instances are reported as not found.
func (s *cartService) loadUsableVoucher(memberID, memberVoucherID int64) (*models.MemberVoucher, error) {
	mv, err := s.voucherRepo.GetMemberVoucherByID(s.db, memberVoucherID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrVoucherNotFound, memberVoucherID)
		}
		return nil, fmt.Errorf("failed to fetch member voucher %d: %w", memberVoucherID, err)
	}
	if !mv.BelongsTo(memberID) {
		return nil, fmt.Errorf("%w: ID %d", ErrVoucherNotFound, memberVoucherID)
	}
	if !mv.UsableAt(time.Now()) {
		return nil, fmt.Errorf("%w: ID %d", ErrVoucherNotUsable, memberVoucherID)
	}
	return mv, nil
}

func cartLineMatches(item *models.CartItem, productID int64, memberVoucherID *int64) bool {
	if item.ProductID != productID {
		return false
	}
	if memberVoucherID == nil {
		return !item.IsVoucherApplied
	}
	return item.IsVoucherApplied && item.MemberVoucherID != nil && *item.MemberVoucherID == *memberVoucherID
}

func cartHasVoucher(cart []models.CartItem, memberVoucherID int64) bool {
	for i := range cart {
		if cart[i].IsVoucherApplied && cart[i].MemberVoucherID != nil && *cart[i].MemberVoucherID == memberVoucherID {
			return true
		}
	}
	return false
}

func voucherCartLine(mv *models.MemberVoucher) models.CartItem {
	mvID := mv.ID
	voucherName := mv.Voucher.Name
	line := models.CartItem{
		UnitPrice:        mv.Voucher.DiscountedPrice,
		Quantity:         1,
		IsVoucherApplied: true,
		MemberVoucherID:  &mvID,
		VoucherName:      &voucherName,
	}
	if mv.Voucher.ProductID != nil {
		line.ProductID = *mv.Voucher.ProductID
	}
	if mv.Voucher.Product != nil {
		line.ProductName = mv.Voucher.Product.Name
		if mv.Voucher.Product.ImagePath != nil {
			line.ImagePath = *mv.Voucher.Product.ImagePath
		}
	}
	return line
}
