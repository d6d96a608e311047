package coupons

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
)

func percentCoupon(p string) *models.Coupon {
	return &models.Coupon{
		Code:       "PCT",
		Type:       enums.CouponTypePercent,
		PercentOff: decimal.NewNullDecimal(decimal.RequireFromString(p)),
		IsActive:   true,
	}
}

func fixedCoupon(amount int64) *models.Coupon {
	return &models.Coupon{Code: "FIX", Type: enums.CouponTypeFixed, AmountOffCents: &amount, IsActive: true}
}

func TestDiscount(t *testing.T) {
	cases := []struct {
		name     string
		coupon   *models.Coupon
		subtotal int64
		want     int64
	}{
		{"ten percent of catalog order", percentCoupon("10"), 139000, 13900},
		{"percent floors fractional cents", percentCoupon("12.5"), 999, 124},
		{"full percent", percentCoupon("100"), 5000, 5000},
		{"fixed below subtotal", fixedCoupon(2000), 5000, 2000},
		{"fixed above subtotal is capped", fixedCoupon(1_000_000), 139000, 139000},
		{"nil coupon", nil, 5000, 0},
		{"empty subtotal", fixedCoupon(100), 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Discount(tc.coupon, tc.subtotal))
		})
	}
}

func TestValidate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	usd := enums.CurrencyUSD
	one := 1

	cases := []struct {
		name   string
		mutate func(*models.Coupon)
		ok     bool
	}{
		{"valid", func(*models.Coupon) {}, true},
		{"inactive", func(c *models.Coupon) { c.IsActive = false }, false},
		{"not started", func(c *models.Coupon) { c.StartsAt = &future }, false},
		{"expired", func(c *models.Coupon) { c.EndsAt = &past }, false},
		{"inside window", func(c *models.Coupon) { c.StartsAt = &past; c.EndsAt = &future }, true},
		{"usage cap reached", func(c *models.Coupon) { c.MaxUses = &one; c.TimesUsed = 1 }, false},
		{"usage cap free", func(c *models.Coupon) { c.MaxUses = &one }, true},
		{"currency mismatch", func(c *models.Coupon) { c.Currency = &usd }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := percentCoupon("10")
			tc.mutate(c)
			err := Validate(c, enums.CurrencyCOP, now)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.Equal(t, pkgerrors.CodeInvalidCoupon, pkgerrors.As(err).Code())
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	require.Equal(t, "WELCOME10", NormalizeCode("  welcome10 "))
}
