package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"resto_order_backend/internal/models"
)

// TableRepository defines the interface for dining-table persistence.
// Availability transitions are compare-and-set so two concurrent dine-in
// checkouts can never claim the same table.
type TableRepository interface {
	GetTableByID(tableID int64) (*models.Table, error)
	// ListAvailableForCapacity returns available tables seating at least
	// minCapacity. Rows already claimed by a concurrent transaction are
	// skipped rather than waited on.
	ListAvailableForCapacity(executor SQLExecutor, minCapacity int) ([]models.Table, error)
	// MarkOccupied claims the table. Returns false when it was no longer
	// available.
	MarkOccupied(executor SQLExecutor, tableID int64) (bool, error)
	// Release marks the table available again. Releasing an already
	// available table is a no-op.
	Release(executor SQLExecutor, tableID int64) error
}

type tableRepository struct {
	db *sql.DB
}

// NewTableRepository creates a new instance of TableRepository.
func NewTableRepository(db *sql.DB) TableRepository {
	return &tableRepository{db: db}
}

func (r *tableRepository) GetTableByID(tableID int64) (*models.Table, error) {
	table := &models.Table{}
	query := `SELECT id, name, capacity, is_available, created_at, updated_at
	          FROM dining_tables
	          WHERE id = $1`
	err := r.db.QueryRow(query, tableID).Scan(
		&table.ID, &table.Name, &table.Capacity, &table.IsAvailable,
		&table.CreatedAt, &table.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting table by ID %d: %v", ErrDatabaseError, tableID, err)
	}
	return table, nil
}

func (r *tableRepository) ListAvailableForCapacity(executor SQLExecutor, minCapacity int) ([]models.Table, error) {
	tables := []models.Table{}
	query := `SELECT id, name, capacity, is_available, created_at, updated_at
	          FROM dining_tables
	          WHERE is_available AND capacity >= $1
	          FOR UPDATE SKIP LOCKED`
	rows, err := executor.Query(query, minCapacity)
	if err != nil {
		return nil, fmt.Errorf("%w: querying available tables for capacity %d: %v", ErrDatabaseError, minCapacity, err)
	}
	defer rows.Close()

	for rows.Next() {
		var t models.Table
		if err := rows.Scan(&t.ID, &t.Name, &t.Capacity, &t.IsAvailable, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning table: %v", ErrDatabaseError, err)
		}
		tables = append(tables, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating table rows: %v", ErrDatabaseError, err)
	}
	return tables, nil
}

func (r *tableRepository) MarkOccupied(executor SQLExecutor, tableID int64) (bool, error) {
	query := `UPDATE dining_tables SET is_available = FALSE, updated_at = now()
	          WHERE id = $1 AND is_available`
	result, err := executor.Exec(query, tableID)
	if err != nil {
		return false, fmt.Errorf("%w: occupying table ID %d: %v", ErrDatabaseError, tableID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: getting rows affected for occupying table ID %d: %v", ErrDatabaseError, tableID, err)
	}
	return rowsAffected > 0, nil
}

func (r *tableRepository) Release(executor SQLExecutor, tableID int64) error {
	query := `UPDATE dining_tables SET is_available = TRUE, updated_at = now() WHERE id = $1`
	if _, err := executor.Exec(query, tableID); err != nil {
		return fmt.Errorf("%w: releasing table ID %d: %v", ErrDatabaseError, tableID, err)
	}
	return nil
}
