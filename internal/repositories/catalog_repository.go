package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"resto_order_backend/internal/models"
)

// CatalogRepository defines the read-only product lookups the ordering core
// needs. Catalog maintenance is handled elsewhere.
type CatalogRepository interface {
	// GetActiveProductByID returns the product only if it is currently on sale.
	GetActiveProductByID(productID int64) (*models.Product, error)
	// GetProductByID returns the product regardless of its sale status.
	// Used when repricing order lines that already reference the product.
	GetProductByID(productID int64) (*models.Product, error)
}

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository creates a new instance of CatalogRepository.
func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

const productColumns = `id, name, price, image_path, is_active, created_at, updated_at`

func (r *catalogRepository) scanProduct(row *sql.Row) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.ImagePath, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning product: %v", ErrDatabaseError, err)
	}
	return p, nil
}

func (r *catalogRepository) GetActiveProductByID(productID int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND is_active`
	return r.scanProduct(r.db.QueryRow(query, productID))
}

func (r *catalogRepository) GetProductByID(productID int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return r.scanProduct(r.db.QueryRow(query, productID))
}
