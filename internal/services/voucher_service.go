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
	ErrVoucherDefNotFound  = errors.New("voucher not found")
	ErrVoucherLimitReached = errors.New("voucher redemption limit reached")
	ErrInsufficientPoints  = errors.New("not enough points to redeem voucher")
	ErrMemberNotFound      = errors.New("member not found")
)

// --- VoucherService Interface ---

// VoucherService handles redemption of voucher definitions into member
// vouchers and their lifecycle until consumption.
type VoucherService interface {
	Redeem(memberID, voucherID int64) (*models.MemberVoucher, error)
	ListRedeemable() ([]models.Voucher, error)
	MyVouchers(memberID int64) ([]models.MemberVoucher, error)
	VouchersForProduct(memberID, productID int64) ([]models.MemberVoucher, error)
	IsUsed(memberVoucherID int64) (bool, error)
	DeleteVoucher(voucherID int64) error
}

// --- voucherService Implementation ---
type voucherService struct {
	voucherRepo repositories.VoucherRepository
	memberRepo  repositories.MemberRepository
	db          *sql.DB // For managing transactions
}

// NewVoucherService creates a new instance of VoucherService.
func NewVoucherService(
	vr repositories.VoucherRepository,
	mr repositories.MemberRepository,
	db *sql.DB,
) VoucherService {
	return &voucherService{
		voucherRepo: vr,
		memberRepo:  mr,
		db:          db,
	}
}

// --- Method Implementations ---

// Redeem exchanges loyalty points for a member voucher. Limit check plus
// counter increment and the point deduction are both single compare-and-set
// statements inside one transaction, so concurrent redemptions can never
// exceed the voucher limit or drive a balance negative.
func (s *voucherService) Redeem(memberID, voucherID int64) (*models.MemberVoucher, error) {
	voucher, err := s.voucherRepo.GetVoucherByID(voucherID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrVoucherDefNotFound, voucherID)
		}
		return nil, fmt.Errorf("failed to fetch voucher %d: %w", voucherID, err)
	}
	if _, err := s.memberRepo.GetMemberByID(memberID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrMemberNotFound, memberID)
		}
		return nil, fmt.Errorf("failed to fetch member %d: %w", memberID, err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	withinLimit, err := s.voucherRepo.IncrementRedeemedCount(tx, voucherID)
	if err != nil {
		return nil, fmt.Errorf("failed to increment redeemed count for voucher %d: %w", voucherID, err)
	}
	if !withinLimit {
		return nil, fmt.Errorf("%w: voucher ID %d", ErrVoucherLimitReached, voucherID)
	}

	deducted, err := s.memberRepo.DeductPoints(tx, memberID, voucher.PointCost)
	if err != nil {
		return nil, fmt.Errorf("failed to deduct points from member %d: %w", memberID, err)
	}
	if !deducted {
		return nil, fmt.Errorf("%w: voucher costs %d points", ErrInsufficientPoints, voucher.PointCost)
	}

	now := time.Now()
	mv := &models.MemberVoucher{
		MemberID:     memberID,
		VoucherID:    voucherID,
		RedeemedDate: now,
		ExpiryDate:   now.AddDate(0, 0, voucher.ValidDays),
	}
	if _, err := s.voucherRepo.CreateMemberVoucher(tx, mv); err != nil {
		return nil, fmt.Errorf("failed to create member voucher: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit redemption transaction: %w", err)
	}
	mv.Voucher = voucher
	return mv, nil
}

func (s *voucherService) ListRedeemable() ([]models.Voucher, error) {
	vouchers, err := s.voucherRepo.ListRedeemable()
	if err != nil {
		return nil, fmt.Errorf("failed to list redeemable vouchers: %w", err)
	}
	return vouchers, nil
}

func (s *voucherService) MyVouchers(memberID int64) ([]models.MemberVoucher, error) {
	vouchers, err := s.voucherRepo.ListUsableByMember(memberID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list member vouchers: %w", err)
	}
	return vouchers, nil
}

func (s *voucherService) VouchersForProduct(memberID, productID int64) ([]models.MemberVoucher, error) {
	vouchers, err := s.voucherRepo.ListUsableForProduct(memberID, productID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list member vouchers for product %d: %w", productID, err)
	}
	return vouchers, nil
}

func (s *voucherService) IsUsed(memberVoucherID int64) (bool, error) {
	mv, err := s.voucherRepo.GetMemberVoucherByID(s.db, memberVoucherID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, fmt.Errorf("%w: ID %d", ErrVoucherNotFound, memberVoucherID)
		}
		return false, fmt.Errorf("failed to fetch member voucher %d: %w", memberVoucherID, err)
	}
	return mv.IsUsed, nil
}

// DeleteVoucher removes a voucher definition and everything hanging off it:
// order lines keep their prices but lose the voucher reference, then the
// redeemed instances and the definition itself go.
func (s *voucherService) DeleteVoucher(voucherID int64) error {
	if _, err := s.voucherRepo.GetVoucherByID(voucherID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: ID %d", ErrVoucherDefNotFound, voucherID)
		}
		return fmt.Errorf("failed to fetch voucher %d: %w", voucherID, err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.voucherRepo.ClearOrderItemReferences(tx, voucherID); err != nil {
		return fmt.Errorf("failed to clear order item references for voucher %d: %w", voucherID, err)
	}
	if _, err := s.voucherRepo.DeleteByVoucher(tx, voucherID); err != nil {
		return fmt.Errorf("failed to delete member vouchers for voucher %d: %w", voucherID, err)
	}
	if err := s.voucherRepo.DeleteVoucher(tx, voucherID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: ID %d", ErrVoucherDefNotFound, voucherID)
		}
		return fmt.Errorf("failed to delete voucher %d: %w", voucherID, err)
	}
	return tx.Commit()
}
