package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/enums"
)

// Address is a shipping or billing record captured at checkout.
type Address struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Kind      enums.AddressKind `gorm:"column:kind;type:text;not null"`
	Name      string            `gorm:"column:name;not null"`
	Email     string            `gorm:"column:email;not null"`
	Phone     string            `gorm:"column:phone;not null"`
	Line1     string            `gorm:"column:line1;not null"`
	City      string            `gorm:"column:city;not null"`
	Country   string            `gorm:"column:country;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (a *Address) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}

// Order is the price-snapshotted invoice produced by checkout.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string            `gorm:"column:order_number;not null;uniqueIndex"`
	UserID            *uuid.UUID        `gorm:"column:user_id;type:uuid"`
	Email             string            `gorm:"column:email;not null"`
	CustomerName      string            `gorm:"column:customer_name;not null"`
	Phone             string            `gorm:"column:phone;not null"`
	Status            enums.OrderStatus `gorm:"column:status;type:text;not null"`
	Currency          enums.Currency    `gorm:"column:currency;type:text;not null"`
	SubtotalCents     int64             `gorm:"column:subtotal_cents;not null"`
	DiscountCents     int64             `gorm:"column:discount_cents;not null"`
	ShippingCents     int64             `gorm:"column:shipping_cents;not null"`
	TaxCents          int64             `gorm:"column:tax_cents;not null"`
	TotalCents        int64             `gorm:"column:total_cents;not null"`
	CouponID          *uuid.UUID        `gorm:"column:coupon_id;type:uuid"`
	ShippingAddressID uuid.UUID         `gorm:"column:shipping_address_id;type:uuid;not null"`
	BillingAddressID  uuid.UUID         `gorm:"column:billing_address_id;type:uuid;not null"`
	PaidAt            *time.Time        `gorm:"column:paid_at"`
	Items             []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments          []Payment         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// OrderItem snapshots a product line at order time; it does not follow later
// product edits or deletions.
type OrderItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	ProductID      *uuid.UUID `gorm:"column:product_id;type:uuid"`
	VariantID      *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	ProductName    string     `gorm:"column:product_name;not null"`
	SKU            string     `gorm:"column:sku;not null"`
	UnitPriceCents int64      `gorm:"column:unit_price_cents;not null"`
	Quantity       int        `gorm:"column:quantity;not null"`
	LineTotalCents int64      `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// Payment is a single payment attempt against an order.
type Payment struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	Provider    string              `gorm:"column:provider;not null"`
	Status      enums.PaymentStatus `gorm:"column:status;type:text;not null"`
	AmountCents int64               `gorm:"column:amount_cents;not null"`
	Currency    enums.Currency      `gorm:"column:currency;type:text;not null"`
	ProviderRef *string             `gorm:"column:provider_ref"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
