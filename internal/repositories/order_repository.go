package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"resto_order_backend/internal/models"

	"github.com/lib/pq" // For pq.Error
)

// OrderRepository defines the interface for order-related database operations.
type OrderRepository interface {
	// Order methods
	CreateOrder(executor SQLExecutor, order *models.Order) (int64, error)
	// FindPendingOrder returns the single unpaid order for the identity and
	// dining mode, or ErrNotFound. When run inside a transaction the row is
	// locked for the remainder of the transaction.
	FindPendingOrder(executor SQLExecutor, identity models.Identity, mode models.DiningMode) (*models.Order, error)
	GetOrderByID(orderID int64) (*models.Order, error)
	GetOrders(filters models.OrderFilters) ([]models.Order, int, error)
	UpdateOrderHeader(executor SQLExecutor, order *models.Order) error
	// MarkPaid flips is_paid only if the order is still unpaid. Returns
	// false when the order was already paid.
	MarkPaid(executor SQLExecutor, orderID int64) (bool, error)
	DeleteOrder(executor SQLExecutor, orderID int64) (int64, error)

	// OrderItem methods
	CreateOrderItem(executor SQLExecutor, item *models.OrderItem) (int64, error)
	GetOrderItemsByOrderID(executor SQLExecutor, orderID int64) ([]models.OrderItem, error)
	UpdateOrderItemQuantity(executor SQLExecutor, itemID int64, quantity int, totalPrice float64) error
	DeleteOrderItem(executor SQLExecutor, itemID int64) error
	DeleteNonVoucherItems(executor SQLExecutor, orderID int64) (int64, error)
	DeleteOrderItemsByOrderID(executor SQLExecutor, orderID int64) (int64, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository.
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// --- Order methods ---

func (r *orderRepository) CreateOrder(executor SQLExecutor, order *models.Order) (int64, error) {
	// ON CONFLICT DO NOTHING instead of letting the pending-order unique
	// index raise 23505: an errored statement would abort the surrounding
	// transaction, and the caller still needs it to refetch and merge.
	query := `INSERT INTO orders
	            (member_id, guest_id, table_id, dining_mode, order_date, is_paid, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          ON CONFLICT DO NOTHING
	          RETURNING id`

	if order.OrderDate.IsZero() {
		order.OrderDate = time.Now()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = time.Now()
	}

	err := executor.QueryRow(query,
		order.MemberID, order.GuestID, order.TableID, order.DiningMode, order.OrderDate,
		order.IsPaid, order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The insert was suppressed: a concurrent checkout created the
			// pending order first.
			return 0, ErrDuplicateKey
		}
		return 0, fmt.Errorf("%w: creating order: %v", ErrDatabaseError, err)
	}
	return order.ID, nil
}

const orderColumns = `id, member_id, guest_id, table_id, dining_mode, order_date, is_paid, created_at, updated_at`

func scanOrder(row *sql.Row) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID, &order.MemberID, &order.GuestID, &order.TableID, &order.DiningMode,
		&order.OrderDate, &order.IsPaid, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning order: %v", ErrDatabaseError, err)
	}
	return order, nil
}

func (r *orderRepository) FindPendingOrder(executor SQLExecutor, identity models.Identity, mode models.DiningMode) (*models.Order, error) {
	var query string
	var arg interface{}
	if identity.IsMember() {
		query = `SELECT ` + orderColumns + ` FROM orders
		         WHERE member_id = $1 AND dining_mode = $2 AND NOT is_paid
		         FOR UPDATE`
		arg = *identity.MemberID
	} else {
		query = `SELECT ` + orderColumns + ` FROM orders
		         WHERE guest_id = $1 AND dining_mode = $2 AND NOT is_paid
		         FOR UPDATE`
		arg = *identity.GuestID
	}
	return scanOrder(executor.QueryRow(query, arg, mode))
}

func (r *orderRepository) GetOrderByID(orderID int64) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.db.QueryRow(query, orderID))
}

func (r *orderRepository) GetOrders(filters models.OrderFilters) ([]models.Order, int, error) {
	orders := []models.Order{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
        SELECT
            o.id, o.member_id, o.guest_id, o.table_id, o.dining_mode, o.order_date,
            o.is_paid, o.created_at, o.updated_at,
            m.username AS member_name,
            t.name AS table_name,
            COUNT(*) OVER() AS total_count
        FROM orders o
        LEFT JOIN members m ON o.member_id = m.id
        LEFT JOIN dining_tables t ON o.table_id = t.id
    `)

	var conditions []string
	var args []interface{}
	argCounter := 1

	if filters.MemberID != nil {
		conditions = append(conditions, fmt.Sprintf("o.member_id = $%d", argCounter))
		args = append(args, *filters.MemberID)
		argCounter++
	}
	if filters.GuestID != nil && *filters.GuestID != "" {
		conditions = append(conditions, fmt.Sprintf("o.guest_id = $%d", argCounter))
		args = append(args, *filters.GuestID)
		argCounter++
	}
	if filters.TableID != nil {
		conditions = append(conditions, fmt.Sprintf("o.table_id = $%d", argCounter))
		args = append(args, *filters.TableID)
		argCounter++
	}
	if filters.IsPaid != nil {
		conditions = append(conditions, fmt.Sprintf("o.is_paid = $%d", argCounter))
		args = append(args, *filters.IsPaid)
		argCounter++
	}
	if filters.Date != nil && *filters.Date != "" {
		parsedDate, err := time.Parse("2006-01-02", *filters.Date)
		if err == nil {
			startOfDay := time.Date(parsedDate.Year(), parsedDate.Month(), parsedDate.Day(), 0, 0, 0, 0, parsedDate.Location())
			endOfDay := startOfDay.AddDate(0, 0, 1).Add(-time.Nanosecond)
			conditions = append(conditions, fmt.Sprintf("o.order_date BETWEEN $%d AND $%d", argCounter, argCounter+1))
			args = append(args, startOfDay, endOfDay)
			argCounter += 2
		}
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY o.order_date DESC")

	if filters.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCounter))
		args = append(args, filters.PageSize)
		argCounter++
		if filters.Page > 0 {
			offset := (filters.Page - 1) * filters.PageSize
			queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argCounter))
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying orders: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var o models.Order
		var memberName, tableName sql.NullString

		err := rows.Scan(
			&o.ID, &o.MemberID, &o.GuestID, &o.TableID, &o.DiningMode, &o.OrderDate,
			&o.IsPaid, &o.CreatedAt, &o.UpdatedAt,
			&memberName, &tableName,
			&totalCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning order: %v", ErrDatabaseError, err)
		}

		if o.MemberID != nil && memberName.Valid {
			o.Member = &models.Member{ID: *o.MemberID, Username: memberName.String}
		}
		if o.TableID != nil && tableName.Valid {
			o.Table = &models.Table{ID: *o.TableID, Name: tableName.String}
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating order rows: %v", ErrDatabaseError, err)
	}
	return orders, totalCount, nil
}

func (r *orderRepository) UpdateOrderHeader(executor SQLExecutor, order *models.Order) error {
	query := `UPDATE orders
	          SET member_id = $1, guest_id = $2, table_id = $3, dining_mode = $4,
	              order_date = $5, is_paid = $6, updated_at = $7
	          WHERE id = $8`
	result, err := executor.Exec(query,
		order.MemberID, order.GuestID, order.TableID, order.DiningMode,
		order.OrderDate, order.IsPaid, time.Now(), order.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating order ID %d: %v", ErrDatabaseError, order.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for order update ID %d: %v", ErrDatabaseError, order.ID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) MarkPaid(executor SQLExecutor, orderID int64) (bool, error) {
	query := `UPDATE orders SET is_paid = TRUE, updated_at = now()
	          WHERE id = $1 AND NOT is_paid`
	result, err := executor.Exec(query, orderID)
	if err != nil {
		return false, fmt.Errorf("%w: marking order ID %d paid: %v", ErrDatabaseError, orderID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: getting rows affected for paying order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return rowsAffected > 0, nil
}

func (r *orderRepository) DeleteOrder(executor SQLExecutor, orderID int64) (int64, error) {
	result, err := executor.Exec(`DELETE FROM orders WHERE id = $1`, orderID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for deleting order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	if rowsAffected == 0 {
		return 0, ErrNotFound
	}
	return rowsAffected, nil
}

// --- OrderItem methods ---

func (r *orderRepository) CreateOrderItem(executor SQLExecutor, item *models.OrderItem) (int64, error) {
	query := `INSERT INTO order_items
	            (order_id, product_id, quantity, unit_price, total_price, is_voucher,
	             member_voucher_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING id`
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now()
	}

	err := executor.QueryRow(query,
		item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.TotalPrice,
		item.IsVoucher, item.MemberVoucherID, item.CreatedAt, item.UpdatedAt,
	).Scan(&item.ID)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return 0, fmt.Errorf("%w: creating order item (constraint: %s): %v", ErrDatabaseError, pqErr.Constraint, err)
		}
		return 0, fmt.Errorf("%w: creating order item: %v", ErrDatabaseError, err)
	}
	return item.ID, nil
}

func (r *orderRepository) GetOrderItemsByOrderID(executor SQLExecutor, orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	query := `
		SELECT
		    oi.id, oi.order_id, oi.product_id, oi.quantity, oi.unit_price,
		    oi.total_price, oi.is_voucher, oi.member_voucher_id, oi.created_at, oi.updated_at,
		    p.name AS product_name, p.image_path AS product_image
		FROM order_items oi
		JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = $1
		ORDER BY oi.id`

	rows, err := executor.Query(query, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying order items for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		var productName sql.NullString
		var productImage sql.NullString

		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice,
			&item.TotalPrice, &item.IsVoucher, &item.MemberVoucherID, &item.CreatedAt, &item.UpdatedAt,
			&productName, &productImage,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning order item for order ID %d: %v", ErrDatabaseError, orderID, err)
		}

		product := &models.Product{ID: item.ProductID}
		if productName.Valid {
			product.Name = productName.String
		}
		if productImage.Valid {
			image := productImage.String
			product.ImagePath = &image
		}
		item.Product = product

		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating order item rows for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return items, nil
}

func (r *orderRepository) UpdateOrderItemQuantity(executor SQLExecutor, itemID int64, quantity int, totalPrice float64) error {
	query := `UPDATE order_items SET quantity = $1, total_price = $2, updated_at = now() WHERE id = $3`
	result, err := executor.Exec(query, quantity, totalPrice, itemID)
	if err != nil {
		return fmt.Errorf("%w: updating order item ID %d: %v", ErrDatabaseError, itemID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for order item update ID %d: %v", ErrDatabaseError, itemID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) DeleteOrderItem(executor SQLExecutor, itemID int64) error {
	result, err := executor.Exec(`DELETE FROM order_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("%w: deleting order item ID %d: %v", ErrDatabaseError, itemID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for deleting order item ID %d: %v", ErrDatabaseError, itemID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) DeleteNonVoucherItems(executor SQLExecutor, orderID int64) (int64, error) {
	result, err := executor.Exec(`DELETE FROM order_items WHERE order_id = $1 AND NOT is_voucher`, orderID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting non-voucher items for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for deleting non-voucher items, order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return rowsAffected, nil
}

func (r *orderRepository) DeleteOrderItemsByOrderID(executor SQLExecutor, orderID int64) (int64, error) {
	result, err := executor.Exec(`DELETE FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting order items for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for deleting order items for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return rowsAffected, nil
}
