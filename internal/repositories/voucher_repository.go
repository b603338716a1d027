package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"resto_order_backend/internal/models"
)

// VoucherRepository defines persistence for voucher definitions and
// redeemed member-voucher instances. The redemption-limit counter and the
// used flag are only ever moved by compare-and-set statements.
type VoucherRepository interface {
	// Voucher definition methods
	GetVoucherByID(voucherID int64) (*models.Voucher, error)
	ListRedeemable() ([]models.Voucher, error)
	// IncrementRedeemedCount bumps the counter only while it is below the
	// limit. Returns false when the voucher is exhausted.
	IncrementRedeemedCount(executor SQLExecutor, voucherID int64) (bool, error)
	DeleteVoucher(executor SQLExecutor, voucherID int64) error

	// MemberVoucher methods
	CreateMemberVoucher(executor SQLExecutor, mv *models.MemberVoucher) (int64, error)
	GetMemberVoucherByID(executor SQLExecutor, memberVoucherID int64) (*models.MemberVoucher, error)
	ListUsableByMember(memberID int64, now time.Time) ([]models.MemberVoucher, error)
	ListUsableForProduct(memberID, productID int64, now time.Time) ([]models.MemberVoucher, error)
	// MarkUsed consumes the instance. Returns false when it was already used.
	MarkUsed(executor SQLExecutor, memberVoucherID int64) (bool, error)
	// MarkUnused releases a previously consumed instance; idempotent.
	MarkUnused(executor SQLExecutor, memberVoucherID int64) error
	// ClearOrderItemReferences nulls order-line references to instances of
	// the voucher definition, ahead of a cascade delete.
	ClearOrderItemReferences(executor SQLExecutor, voucherID int64) (int64, error)
	DeleteByVoucher(executor SQLExecutor, voucherID int64) (int64, error)
}

type voucherRepository struct {
	db *sql.DB
}

// NewVoucherRepository creates a new instance of VoucherRepository.
func NewVoucherRepository(db *sql.DB) VoucherRepository {
	return &voucherRepository{db: db}
}

// --- Voucher definition methods ---

func (r *voucherRepository) GetVoucherByID(voucherID int64) (*models.Voucher, error) {
	v := &models.Voucher{}
	query := `SELECT id, name, detail, valid_days, point_cost, total_limit, product_id,
	                 discounted_price, redeemed_count, created_at, updated_at
	          FROM vouchers
	          WHERE id = $1`
	err := r.db.QueryRow(query, voucherID).Scan(
		&v.ID, &v.Name, &v.Detail, &v.ValidDays, &v.PointCost, &v.TotalLimit, &v.ProductID,
		&v.DiscountedPrice, &v.RedeemedCount, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting voucher by ID %d: %v", ErrDatabaseError, voucherID, err)
	}
	return v, nil
}

func (r *voucherRepository) ListRedeemable() ([]models.Voucher, error) {
	vouchers := []models.Voucher{}
	query := `SELECT v.id, v.name, v.detail, v.valid_days, v.point_cost, v.total_limit, v.product_id,
	                 v.discounted_price, v.redeemed_count, v.created_at, v.updated_at,
	                 p.name AS product_name
	          FROM vouchers v
	          LEFT JOIN products p ON v.product_id = p.id
	          WHERE v.redeemed_count < v.total_limit
	          ORDER BY v.id`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying redeemable vouchers: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var v models.Voucher
		var productName sql.NullString
		err := rows.Scan(
			&v.ID, &v.Name, &v.Detail, &v.ValidDays, &v.PointCost, &v.TotalLimit, &v.ProductID,
			&v.DiscountedPrice, &v.RedeemedCount, &v.CreatedAt, &v.UpdatedAt,
			&productName,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning voucher: %v", ErrDatabaseError, err)
		}
		if v.ProductID != nil && productName.Valid {
			v.Product = &models.Product{ID: *v.ProductID, Name: productName.String}
		}
		vouchers = append(vouchers, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating voucher rows: %v", ErrDatabaseError, err)
	}
	return vouchers, nil
}

func (r *voucherRepository) IncrementRedeemedCount(executor SQLExecutor, voucherID int64) (bool, error) {
	query := `UPDATE vouchers SET redeemed_count = redeemed_count + 1, updated_at = now()
	          WHERE id = $1 AND redeemed_count < total_limit`
	result, err := executor.Exec(query, voucherID)
	if err != nil {
		return false, fmt.Errorf("%w: incrementing redeemed count for voucher ID %d: %v", ErrDatabaseError, voucherID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: getting rows affected for voucher ID %d: %v", ErrDatabaseError, voucherID, err)
	}
	return rowsAffected > 0, nil
}

func (r *voucherRepository) DeleteVoucher(executor SQLExecutor, voucherID int64) error {
	result, err := executor.Exec(`DELETE FROM vouchers WHERE id = $1`, voucherID)
	if err != nil {
		return fmt.Errorf("%w: deleting voucher ID %d: %v", ErrDatabaseError, voucherID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for deleting voucher ID %d: %v", ErrDatabaseError, voucherID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- MemberVoucher methods ---

func (r *voucherRepository) CreateMemberVoucher(executor SQLExecutor, mv *models.MemberVoucher) (int64, error) {
	query := `INSERT INTO member_vouchers (member_id, voucher_id, redeemed_date, expiry_date, is_used)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`
	err := executor.QueryRow(query,
		mv.MemberID, mv.VoucherID, mv.RedeemedDate, mv.ExpiryDate, mv.IsUsed,
	).Scan(&mv.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating member voucher: %v", ErrDatabaseError, err)
	}
	return mv.ID, nil
}

const memberVoucherSelect = `
	SELECT mv.id, mv.member_id, mv.voucher_id, mv.redeemed_date, mv.expiry_date, mv.is_used,
	       v.id, v.name, v.detail, v.valid_days, v.point_cost, v.total_limit, v.product_id,
	       v.discounted_price, v.redeemed_count, v.created_at, v.updated_at
	FROM member_vouchers mv
	JOIN vouchers v ON mv.voucher_id = v.id`

func scanMemberVoucher(rows *sql.Rows) (*models.MemberVoucher, error) {
	mv := &models.MemberVoucher{}
	v := &models.Voucher{}
	err := rows.Scan(
		&mv.ID, &mv.MemberID, &mv.VoucherID, &mv.RedeemedDate, &mv.ExpiryDate, &mv.IsUsed,
		&v.ID, &v.Name, &v.Detail, &v.ValidDays, &v.PointCost, &v.TotalLimit, &v.ProductID,
		&v.DiscountedPrice, &v.RedeemedCount, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	mv.Voucher = v
	return mv, nil
}

func (r *voucherRepository) GetMemberVoucherByID(executor SQLExecutor, memberVoucherID int64) (*models.MemberVoucher, error) {
	rows, err := executor.Query(memberVoucherSelect+` WHERE mv.id = $1`, memberVoucherID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying member voucher ID %d: %v", ErrDatabaseError, memberVoucherID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("%w: reading member voucher ID %d: %v", ErrDatabaseError, memberVoucherID, err)
		}
		return nil, ErrNotFound
	}
	mv, err := scanMemberVoucher(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: scanning member voucher ID %d: %v", ErrDatabaseError, memberVoucherID, err)
	}
	return mv, nil
}

func (r *voucherRepository) listMemberVouchers(query string, args ...interface{}) ([]models.MemberVoucher, error) {
	vouchers := []models.MemberVoucher{}
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying member vouchers: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		mv, err := scanMemberVoucher(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning member voucher: %v", ErrDatabaseError, err)
		}
		vouchers = append(vouchers, *mv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating member voucher rows: %v", ErrDatabaseError, err)
	}
	return vouchers, nil
}

func (r *voucherRepository) ListUsableByMember(memberID int64, now time.Time) ([]models.MemberVoucher, error) {
	query := memberVoucherSelect + `
	WHERE mv.member_id = $1 AND NOT mv.is_used AND mv.expiry_date > $2
	ORDER BY mv.expiry_date`
	return r.listMemberVouchers(query, memberID, now)
}

func (r *voucherRepository) ListUsableForProduct(memberID, productID int64, now time.Time) ([]models.MemberVoucher, error) {
	query := memberVoucherSelect + `
	WHERE mv.member_id = $1 AND NOT mv.is_used AND mv.expiry_date > $2 AND v.product_id = $3
	ORDER BY mv.expiry_date`
	return r.listMemberVouchers(query, memberID, now, productID)
}

func (r *voucherRepository) MarkUsed(executor SQLExecutor, memberVoucherID int64) (bool, error) {
	query := `UPDATE member_vouchers SET is_used = TRUE WHERE id = $1 AND NOT is_used`
	result, err := executor.Exec(query, memberVoucherID)
	if err != nil {
		return false, fmt.Errorf("%w: marking member voucher ID %d used: %v", ErrDatabaseError, memberVoucherID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: getting rows affected for member voucher ID %d: %v", ErrDatabaseError, memberVoucherID, err)
	}
	return rowsAffected > 0, nil
}

func (r *voucherRepository) MarkUnused(executor SQLExecutor, memberVoucherID int64) error {
	query := `UPDATE member_vouchers SET is_used = FALSE WHERE id = $1`
	if _, err := executor.Exec(query, memberVoucherID); err != nil {
		return fmt.Errorf("%w: releasing member voucher ID %d: %v", ErrDatabaseError, memberVoucherID, err)
	}
	return nil
}

func (r *voucherRepository) ClearOrderItemReferences(executor SQLExecutor, voucherID int64) (int64, error) {
	query := `UPDATE order_items SET member_voucher_id = NULL, updated_at = now()
	          WHERE member_voucher_id IN (SELECT id FROM member_vouchers WHERE voucher_id = $1)`
	result, err := executor.Exec(query, voucherID)
	if err != nil {
		return 0, fmt.Errorf("%w: clearing order item references for voucher ID %d: %v", ErrDatabaseError, voucherID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for clearing references, voucher ID %d: %v", ErrDatabaseError, voucherID, err)
	}
	return rowsAffected, nil
}

func (r *voucherRepository) DeleteByVoucher(executor SQLExecutor, voucherID int64) (int64, error) {
	result, err := executor.Exec(`DELETE FROM member_vouchers WHERE voucher_id = $1`, voucherID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting member vouchers for voucher ID %d: %v", ErrDatabaseError, voucherID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for deleting member vouchers, voucher ID %d: %v", ErrDatabaseError, voucherID, err)
	}
	return rowsAffected, nil
}
