package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/enums"
)

// Coupon is a discount rule with an applicability window and an optional usage cap.
type Coupon struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Code           string              `gorm:"column:code;not null;uniqueIndex"`
	Type           enums.CouponType    `gorm:"column:type;type:text;not null"`
	PercentOff     decimal.NullDecimal `gorm:"column:percent_off;type:numeric(5,2)"`
	AmountOffCents *int64              `gorm:"column:amount_off_cents"`
	Currency       *enums.Currency     `gorm:"column:currency;type:text"`
	StartsAt       *time.Time          `gorm:"column:starts_at"`
	EndsAt         *time.Time          `gorm:"column:ends_at"`
	MaxUses        *int                `gorm:"column:max_uses"`
	TimesUsed      int                 `gorm:"column:times_used;not null;default:0"`
	IsActive       bool                `gorm:"column:is_active;not null"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Coupon) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}
