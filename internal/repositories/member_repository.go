package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"resto_order_backend/internal/models"
)

// MemberRepository exposes the member reads and point mutations the
// ordering core performs. Account management is out of scope.
type MemberRepository interface {
	GetMemberByID(memberID int64) (*models.Member, error)
	// AddPoints credits loyalty points to the member.
	AddPoints(executor SQLExecutor, memberID int64, points int) error
	// DeductPoints atomically debits points if the balance covers them.
	// Returns false (and no error) when the balance is insufficient.
	DeductPoints(executor SQLExecutor, memberID int64, points int) (bool, error)
}

type memberRepository struct {
	db *sql.DB
}

// NewMemberRepository creates a new instance of MemberRepository.
func NewMemberRepository(db *sql.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) GetMemberByID(memberID int64) (*models.Member, error) {
	member := &models.Member{}
	query := `SELECT id, username, email, point, created_at, updated_at
	          FROM members
	          WHERE id = $1`
	err := r.db.QueryRow(query, memberID).Scan(
		&member.ID, &member.Username, &member.Email, &member.Point,
		&member.CreatedAt, &member.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting member by ID %d: %v", ErrDatabaseError, memberID, err)
	}
	return member, nil
}

func (r *memberRepository) AddPoints(executor SQLExecutor, memberID int64, points int) error {
	query := `UPDATE members SET point = point + $1, updated_at = now() WHERE id = $2`
	result, err := executor.Exec(query, points, memberID)
	if err != nil {
		return fmt.Errorf("%w: adding points for member ID %d: %v", ErrDatabaseError, memberID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for point credit, member ID %d: %v", ErrDatabaseError, memberID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *memberRepository) DeductPoints(executor SQLExecutor, memberID int64, points int) (bool, error) {
	// The balance check and the debit must be a single statement so that
	// concurrent redemptions cannot drive the balance negative.
	query := `UPDATE members SET point = point - $1, updated_at = now()
	          WHERE id = $2 AND point >= $1`
	result, err := executor.Exec(query, points, memberID)
	if err != nil {
		return false, fmt.Errorf("%w: deducting points for member ID %d: %v", ErrDatabaseError, memberID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: getting rows affected for point debit, member ID %d: %v", ErrDatabaseError, memberID, err)
	}
	return rowsAffected > 0, nil
}
