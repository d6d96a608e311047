package coupons

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// NormalizeCode is the canonical stored form of a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks whether c may be applied to an order in currency at now.
func Validate(c *models.Coupon, currency enums.Currency, now time.Time) error {
	if c == nil {
		return invalid("coupon not found")
	}
	switch {
	case !c.IsActive:
		return invalid("coupon is inactive")
	case c.StartsAt != nil && now.Before(*c.StartsAt):
		return invalid("coupon is not active yet")
	case c.EndsAt != nil && now.After(*c.EndsAt):
		return invalid("coupon has expired")
	case c.MaxUses != nil && c.TimesUsed >= *c.MaxUses:
		return invalid("coupon usage limit reached")
	case c.Currency != nil && *c.Currency != currency:
		return invalid("coupon does not apply to this currency")
	}
	return nil
}

// Discount returns the amount c takes off subtotal. Percent coupons round
// down to whole minor units; fixed coupons never exceed the subtotal.
func Discount(c *models.Coupon, subtotalCents int64) int64 {
	if c == nil || subtotalCents <= 0 {
		return 0
	}
	var off int64
	switch c.Type {
	case enums.CouponTypePercent:
		if !c.PercentOff.Valid {
			return 0
		}
		off = decimal.NewFromInt(subtotalCents).
			Mul(c.PercentOff.Decimal).
			Div(hundred).
			Floor().
			IntPart()
	case enums.CouponTypeFixed:
		if c.AmountOffCents == nil {
			return 0
		}
		off = *c.AmountOffCents
	}
	if off < 0 {
		return 0
	}
	if off > subtotalCents {
		return subtotalCents
	}
	return off
}

func invalid(reason string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidCoupon, "invalid coupon").
		WithDetails(map[string]string{"reason": reason})
}
