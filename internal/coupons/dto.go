package coupons

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
)

type CouponDTO struct {
	ID             uuid.UUID        `json:"id"`
	Code           string           `json:"code"`
	Type           enums.CouponType `json:"type"`
	PercentOff     *decimal.Decimal `json:"percent_off,omitempty"`
	AmountOffCents *int64           `json:"amount_off_cents,omitempty"`
	Currency       *enums.Currency  `json:"currency,omitempty"`
	StartsAt       *time.Time       `json:"starts_at,omitempty"`
	EndsAt         *time.Time       `json:"ends_at,omitempty"`
	MaxUses        *int             `json:"max_uses,omitempty"`
	TimesUsed      int              `json:"times_used"`
	IsActive       bool             `json:"is_active"`
	CreatedAt      time.Time        `json:"created_at"`
}

type CreateCouponInput struct {
	Code           string           `json:"code" validate:"required,min=3,max=40"`
	Type           enums.CouponType `json:"type" validate:"required,oneof=percent fixed"`
	PercentOff     *decimal.Decimal `json:"percent_off"`
	AmountOffCents *int64           `json:"amount_off_cents" validate:"omitempty,gt=0"`
	Currency       *enums.Currency  `json:"currency" validate:"omitempty,oneof=COP USD EUR MXN"`
	StartsAt       *time.Time       `json:"starts_at"`
	EndsAt         *time.Time       `json:"ends_at"`
	MaxUses        *int             `json:"max_uses" validate:"omitempty,gt=0"`
}

// UpdateCouponInput patches only present fields. Type and code are immutable.
type UpdateCouponInput struct {
	PercentOff     *decimal.Decimal `json:"percent_off"`
	AmountOffCents *int64           `json:"amount_off_cents" validate:"omitempty,gt=0"`
	StartsAt       *time.Time       `json:"starts_at"`
	EndsAt         *time.Time       `json:"ends_at"`
	MaxUses        *int             `json:"max_uses" validate:"omitempty,gt=0"`
	IsActive       *bool            `json:"is_active"`
}

func FromModel(c *models.Coupon) CouponDTO {
	dto := CouponDTO{
		ID:             c.ID,
		Code:           c.Code,
		Type:           c.Type,
		AmountOffCents: c.AmountOffCents,
		Currency:       c.Currency,
		StartsAt:       c.StartsAt,
		EndsAt:         c.EndsAt,
		MaxUses:        c.MaxUses,
		TimesUsed:      c.TimesUsed,
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt,
	}
	if c.PercentOff.Valid {
		p := c.PercentOff.Decimal
		dto.PercentOff = &p
	}
	return dto
}
