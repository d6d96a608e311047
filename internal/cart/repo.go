package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
)

// Repository persists carts and their lines.
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

func (r *Repository) FindByToken(ctx context.Context, token string) (*models.Cart, error) {
	var c models.Cart
	if err := r.db.WithContext(ctx).Where("session_token = ?", token).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var c models.Cart
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) Create(ctx context.Context, c *models.Cart) error {
	return r.db.WithContext(ctx).Omit("Items").Create(c).Error
}

// AttachUser records the signed-in user on an anonymous cart.
func (r *Repository) AttachUser(ctx context.Context, cartID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND user_id IS NULL", cartID).
		Update("user_id", userID).Error
}

// Items returns the cart lines in insertion order.
func (r *Repository) Items(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// FindItem matches on (cart, product, variant) with NULL-safe variant comparison.
func (r *Repository) FindItem(ctx context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := lineScope(r.db.WithContext(ctx), cartID, productID, variantID).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *Repository) UpdateItem(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeleteItem removes a line; deleting a missing line is not an error.
func (r *Repository) DeleteItem(ctx context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID) error {
	return lineScope(r.db.WithContext(ctx), cartID, productID, variantID).Delete(&models.CartItem{}).Error
}

// Clear empties the cart; the cart row itself is kept.
func (r *Repository) Clear(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

func lineScope(db *gorm.DB, cartID, productID uuid.UUID, variantID *uuid.UUID) *gorm.DB {
	q := db.Where("cart_id = ? AND product_id = ?", cartID, productID)
	if variantID == nil {
		return q.Where("variant_id IS NULL")
	}
	return q.Where("variant_id = ?", *variantID)
}
