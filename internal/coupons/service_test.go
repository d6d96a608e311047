package coupons_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/petfinder-app/petfinder-backend/internal/coupons"
	"github.com/petfinder-app/petfinder-backend/internal/dbtest"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
)

func TestCouponAdminLifecycle(t *testing.T) {
	client := dbtest.Open(t)
	repo := coupons.NewRepository(client.DB())
	svc, err := coupons.NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	pct := decimal.RequireFromString("10")
	created, err := svc.Create(ctx, coupons.CreateCouponInput{Code: " welcome10 ", Type: enums.CouponTypePercent, PercentOff: &pct})
	require.NoError(t, err)
	require.Equal(t, "WELCOME10", created.Code)
	require.True(t, created.IsActive)

	_, err = svc.Create(ctx, coupons.CreateCouponInput{Code: "WELCOME10", Type: enums.CouponTypePercent, PercentOff: &pct})
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	found, err := repo.FindByCode(ctx, "Welcome10")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)
	require.True(t, found.PercentOff.Decimal.Equal(pct))

	maxUses := 3
	updated, err := svc.Update(ctx, created.ID, coupons.UpdateCouponInput{MaxUses: &maxUses})
	require.NoError(t, err)
	require.Equal(t, 3, *updated.MaxUses)

	amount := int64(500)
	_, err = svc.Update(ctx, created.ID, coupons.UpdateCouponInput{AmountOffCents: &amount})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	require.NoError(t, svc.Deactivate(ctx, created.ID))
	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Empty(t, active)
	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestCreateCouponValidation(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := coupons.NewService(coupons.NewRepository(client.DB()))
	require.NoError(t, err)
	ctx := context.Background()

	tooMuch := decimal.RequireFromString("100.5")
	_, err = svc.Create(ctx, coupons.CreateCouponInput{Code: "BAD", Type: enums.CouponTypePercent, PercentOff: &tooMuch})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Create(ctx, coupons.CreateCouponInput{Code: "NOAMT", Type: enums.CouponTypeFixed})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	now := time.Now().UTC()
	earlier := now.Add(-time.Hour)
	amount := int64(1000)
	_, err = svc.Create(ctx, coupons.CreateCouponInput{
		Code: "WINDOW", Type: enums.CouponTypeFixed, AmountOffCents: &amount, StartsAt: &now, EndsAt: &earlier,
	})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
