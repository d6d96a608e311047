package coupons

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/db"
	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
)

// Service is the admin surface for coupons. Checkout applies coupons through
// Validate and Discount directly.
type Service interface {
	Create(ctx context.Context, input CreateCouponInput) (*CouponDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCouponInput) (*CouponDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*CouponDTO, error)
	List(ctx context.Context, activeOnly bool) ([]CouponDTO, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateCouponInput) (*CouponDTO, error) {
	c := &models.Coupon{
		Code:     NormalizeCode(input.Code),
		Type:     input.Type,
		Currency: input.Currency,
		StartsAt: input.StartsAt,
		EndsAt:   input.EndsAt,
		MaxUses:  input.MaxUses,
		IsActive: true,
	}
	switch input.Type {
	case enums.CouponTypePercent:
		if err := validatePercent(input.PercentOff); err != nil {
			return nil, err
		}
		c.PercentOff = decimal.NewNullDecimal(*input.PercentOff)
	case enums.CouponTypeFixed:
		if input.AmountOffCents == nil || *input.AmountOffCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount_off_cents required for fixed coupons")
		}
		c.AmountOffCents = input.AmountOffCents
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "type must be percent or fixed")
	}
	if err := validateWindow(c.StartsAt, c.EndsAt); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if db.IsUniqueViolation(err, "ux_coupons_code", "coupons.code") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create coupon")
	}
	dto := FromModel(c)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateCouponInput) (*CouponDTO, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapErr(err, "load coupon")
	}
	cols := map[string]any{}
	if input.PercentOff != nil {
		if current.Type != enums.CouponTypePercent {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "percent_off only applies to percent coupons")
		}
		if err := validatePercent(input.PercentOff); err != nil {
			return nil, err
		}
		cols["percent_off"] = *input.PercentOff
	}
	if input.AmountOffCents != nil {
		if current.Type != enums.CouponTypeFixed {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount_off_cents only applies to fixed coupons")
		}
		cols["amount_off_cents"] = *input.AmountOffCents
	}
	startsAt, endsAt := current.StartsAt, current.EndsAt
	if input.StartsAt != nil {
		cols["starts_at"] = *input.StartsAt
		startsAt = input.StartsAt
	}
	if input.EndsAt != nil {
		cols["ends_at"] = *input.EndsAt
		endsAt = input.EndsAt
	}
	if err := validateWindow(startsAt, endsAt); err != nil {
		return nil, err
	}
	if input.MaxUses != nil {
		cols["max_uses"] = *input.MaxUses
	}
	if input.IsActive != nil {
		cols["is_active"] = *input.IsActive
	}
	if err := s.repo.Update(ctx, id, cols); err != nil {
		return nil, mapErr(err, "update coupon")
	}
	return s.Get(ctx, id)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CouponDTO, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapErr(err, "load coupon")
	}
	dto := FromModel(c)
	return &dto, nil
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]CouponDTO, error) {
	rows, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list coupons")
	}
	out := make([]CouponDTO, len(rows))
	for i := range rows {
		out[i] = FromModel(&rows[i])
	}
	return out, nil
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Update(ctx, id, map[string]any{"is_active": false}); err != nil {
		return mapErr(err, "deactivate coupon")
	}
	return nil
}

func validatePercent(p *decimal.Decimal) error {
	if p == nil || !p.IsPositive() || p.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percent_off must be in (0, 100]")
	}
	return nil
}

func validateWindow(startsAt, endsAt *time.Time) error {
	if startsAt != nil && endsAt != nil && !endsAt.After(*startsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "ends_at must be after starts_at")
	}
	return nil
}

func mapErr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
