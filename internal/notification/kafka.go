package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// ReceiptLine is one order line in a published receipt.
type ReceiptLine struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
	IsVoucher   bool    `json:"is_voucher"`
}

// Receipt is the event emitted after an order is paid. The notifier service
// consuming the topic renders and delivers it to the customer.
type Receipt struct {
	OrderID      int64         `json:"order_id"`
	MemberID     *int64        `json:"member_id,omitempty"`
	GuestID      *string       `json:"guest_id,omitempty"`
	DiningMode   string        `json:"dining_mode"`
	PaidAt       time.Time     `json:"paid_at"`
	Total        float64       `json:"total"`
	PointsEarned int           `json:"points_earned"`
	Lines        []ReceiptLine `json:"lines"`
}

// ReceiptPublisher delivers receipts best-effort after payment.
type ReceiptPublisher interface {
	PublishReceipt(ctx context.Context, receipt Receipt) error
	Close() error
}

type kafkaReceiptPublisher struct {
	writer *kafka.Writer
}

// NewKafkaReceiptPublisher creates a publisher writing to the given topic.
// The writer dials lazily, so construction never fails.
func NewKafkaReceiptPublisher(brokers []string, topic string) ReceiptPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
	return &kafkaReceiptPublisher{writer: writer}
}

// PublishReceipt writes the receipt keyed by order ID, so receipts for the
// same order land on the same partition in order.
func (p *kafkaReceiptPublisher) PublishReceipt(ctx context.Context, receipt Receipt) error {
	payload, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("failed to marshal receipt for order %d: %w", receipt.OrderID, err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(receipt.OrderID, 10)),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish receipt for order %d: %w", receipt.OrderID, err)
	}
	return nil
}

func (p *kafkaReceiptPublisher) Close() error {
	return p.writer.Close()
}
