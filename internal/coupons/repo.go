package coupons

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByCode matches the stored upper-case code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	if err := r.db.WithContext(ctx).Where("code = ?", NormalizeCode(code)).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var c models.Coupon
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) Create(ctx context.Context, c *models.Coupon) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Coupon{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context, activeOnly bool) ([]models.Coupon, error) {
	q := r.db.WithContext(ctx)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rows []models.Coupon
	err := q.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// IncrementUsage bumps times_used by one.
func (r *Repository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ?", id).
		UpdateColumn("times_used", gorm.Expr("times_used + 1")).Error
}
