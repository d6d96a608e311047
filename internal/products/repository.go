package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/pagination"
)

// Repository provides catalog persistence.
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

// ListQuery narrows the catalog listing.
type ListQuery struct {
	CategoryID      *uuid.UUID
	Search          string
	IncludeInactive bool
	Cursor          *pagination.Cursor
	Limit           int
}

func (r *Repository) List(ctx context.Context, q ListQuery) ([]models.Product, error) {
	tx := r.db.WithContext(ctx).Preload("Variants", "is_active = ?", true)
	if !q.IncludeInactive {
		tx = tx.Where("is_active = ?", true)
	}
	if q.CategoryID != nil {
		tx = tx.Where("category_id = ?", *q.CategoryID)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("(lower(name) LIKE ? OR lower(sku) LIKE ?)", like, like)
	}
	if q.Cursor != nil {
		tx = tx.Where("(created_at < ?) OR (created_at = ? AND id < ?)", q.Cursor.CreatedAt, q.Cursor.CreatedAt, q.Cursor.ID)
	}
	var rows []models.Product
	err := tx.Order("created_at DESC").
		Order("id DESC").
		Limit(q.Limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("slug = ?", slug).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByRef resolves a product by id when ref parses as a UUID, else by slug.
func (r *Repository) FindByRef(ctx context.Context, ref string) (*models.Product, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return r.FindByID(ctx, id)
	}
	return r.FindBySlug(ctx, ref)
}

func (r *Repository) FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var v models.ProductVariant
	if err := r.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *Repository) Create(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Omit("Variants").Create(p).Error
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return updateByID(r.db.WithContext(ctx), &models.Product{}, id, updates)
}

func (r *Repository) CreateVariant(ctx context.Context, v *models.ProductVariant) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *Repository) UpdateVariant(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return updateByID(r.db.WithContext(ctx), &models.ProductVariant{}, id, updates)
}

func (r *Repository) ListCategories(ctx context.Context) ([]models.ProductCategory, error) {
	var rows []models.ProductCategory
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindCategoryBySlug(ctx context.Context, slug string) (*models.ProductCategory, error) {
	var c models.ProductCategory
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c *models.ProductCategory) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func updateByID(db *gorm.DB, model any, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := db.Model(model).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
