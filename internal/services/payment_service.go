package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"resto_order_backend/internal/models"
	"resto_order_backend/internal/notification"
	"resto_order_backend/internal/repositories"
	"resto_order_backend/pkg/utils"
)

// --- PaymentService Interface ---

// PaymentService settles pending orders: flips the paid flag, frees the
// table, credits loyalty points and emits the receipt event.
type PaymentService interface {
	Pay(ctx context.Context, orderID int64) (*models.Order, error)
}

// --- paymentService Implementation ---
type paymentService struct {
	orderRepo  repositories.OrderRepository
	memberRepo repositories.MemberRepository
	allocator  TableAllocator
	publisher  notification.ReceiptPublisher
	db         *sql.DB // For managing transactions
}

// NewPaymentService creates a new instance of PaymentService.
func NewPaymentService(
	or repositories.OrderRepository,
	mr repositories.MemberRepository,
	ta TableAllocator,
	pub notification.ReceiptPublisher,
	db *sql.DB,
) PaymentService {
	return &paymentService{
		orderRepo:  or,
		memberRepo: mr,
		allocator:  ta,
		publisher:  pub,
		db:         db,
	}
}

// Pay settles the order. Paying an already-paid order is a no-op success:
// the paid transition is a compare-and-set, so the table release and point
// credit run at most once no matter how often Pay is called.
func (s *paymentService) Pay(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.orderRepo.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to fetch order for payment: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	transitioned, points, err := s.payInTx(tx, order)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		order.IsPaid = true
		return order, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment transaction: %w", err)
	}
	order.IsPaid = true

	// Best-effort receipt. A delivery failure never unwinds the payment.
	if err := s.publisher.PublishReceipt(ctx, buildReceipt(order, points)); err != nil {
		utils.LogError(err, "failed to publish receipt event")
	}
	return order, nil
}

// payInTx runs the settlement inside the caller's transaction. The lines
// are loaded after the paid compare-and-set: MarkPaid blocks on the pending
// order's row lock, so lines committed by a concurrent checkout are visible
// and counted before points are credited.
func (s *paymentService) payInTx(executor repositories.SQLExecutor, order *models.Order) (bool, int, error) {
	transitioned, err := s.orderRepo.MarkPaid(executor, order.ID)
	if err != nil {
		return false, 0, fmt.Errorf("failed to mark order %d paid: %w", order.ID, err)
	}

	items, err := s.orderRepo.GetOrderItemsByOrderID(executor, order.ID)
	if err != nil {
		return false, 0, fmt.Errorf("failed to load order items for order %d: %w", order.ID, err)
	}
	order.Items = items

	if !transitioned {
		return false, 0, nil
	}

	if order.DiningMode.RequiresTable() && order.TableID != nil {
		if err := s.allocator.Release(executor, *order.TableID); err != nil {
			return false, 0, fmt.Errorf("failed to release table %d: %w", *order.TableID, err)
		}
	}

	points := 0
	if order.MemberID != nil {
		points = PointsForTotal(order.TotalPrice())
		if points > 0 {
			if err := s.memberRepo.AddPoints(executor, *order.MemberID, points); err != nil {
				return false, 0, fmt.Errorf("failed to credit points to member %d: %w", *order.MemberID, err)
			}
		}
	}
	return true, points, nil
}

// PointsForTotal converts an order total into loyalty points, rounding down.
func PointsForTotal(total float64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(total))
}

func buildReceipt(order *models.Order, points int) notification.Receipt {
	receipt := notification.Receipt{
		OrderID:      order.ID,
		MemberID:     order.MemberID,
		GuestID:      order.GuestID,
		DiningMode:   string(order.DiningMode),
		PaidAt:       time.Now(),
		Total:        order.TotalPrice(),
		PointsEarned: points,
		Lines:        make([]notification.ReceiptLine, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		line := notification.ReceiptLine{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
			IsVoucher:  item.IsVoucher,
		}
		if item.Product != nil {
			line.ProductName = item.Product.Name
		}
		receipt.Lines = append(receipt.Lines, line)
	}
	return receipt
}
