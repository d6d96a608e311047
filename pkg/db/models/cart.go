package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/enums"
)

// Cart is the anonymous, session-scoped container resolved from the cart cookie.
type Cart struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	SessionToken string     `gorm:"column:session_token;not null;uniqueIndex"`
	UserID       *uuid.UUID `gorm:"column:user_id;type:uuid"`
	Items        []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// CartItem is one (product, variant) line with the price captured when it was
// last added or updated.
type CartItem struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	CartID         uuid.UUID      `gorm:"column:cart_id;type:uuid;not null"`
	ProductID      uuid.UUID      `gorm:"column:product_id;type:uuid;not null"`
	VariantID      *uuid.UUID     `gorm:"column:variant_id;type:uuid"`
	Quantity       int            `gorm:"column:quantity;not null"`
	UnitPriceCents int64          `gorm:"column:unit_price_cents;not null"`
	Currency       enums.Currency `gorm:"column:currency;type:text;not null"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
