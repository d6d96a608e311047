package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/petfinder-app/petfinder-backend/pkg/enums"
)

// OrderCreatedEvent is emitted when checkout converts a cart into a pending order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID      `json:"order_id"`
	OrderNumber string         `json:"order_number"`
	UserID      *uuid.UUID     `json:"user_id,omitempty"`
	Email       string         `json:"email"`
	TotalCents  int64          `json:"total_cents"`
	Currency    enums.Currency `json:"currency"`
	ItemCount   int            `json:"item_count"`
	CouponCode  string         `json:"coupon_code,omitempty"`
}

// OrderPaidEvent is emitted once payment capture commits.
type OrderPaidEvent struct {
	OrderID     uuid.UUID      `json:"order_id"`
	OrderNumber string         `json:"order_number"`
	PaymentID   uuid.UUID      `json:"payment_id"`
	AmountCents int64          `json:"amount_cents"`
	Currency    enums.Currency `json:"currency"`
	PaidAt      time.Time      `json:"paid_at"`
}

// OrderStatusChangedEvent covers admin fulfilment transitions, cancellations and refunds.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	Restocked   bool              `json:"restocked"`
}

// OrderExpiredEvent is emitted by the cron job that cancels stale pending orders.
type OrderExpiredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CreatedAt   time.Time `json:"created_at"`
}

// StockLowEvent fires when a capture leaves a product at or below the low-stock threshold.
type StockLowEvent struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	SKU       string     `json:"sku"`
	Stock     int        `json:"stock"`
}

// PetReportedLostEvent fires when an owner flips a pet to lost.
type PetReportedLostEvent struct {
	PetID   uuid.UUID `json:"pet_id"`
	QRID    string    `json:"qr_id"`
	Name    string    `json:"name"`
	OwnerID uuid.UUID `json:"owner_id"`
}
