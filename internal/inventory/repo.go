package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
)

// StockRef points at the row that owns the stock counter: the variant when
// one is set, otherwise the product.
type StockRef struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
}

func (r StockRef) table() string {
	if r.VariantID != nil {
		return "product_variants"
	}
	return "products"
}

func (r StockRef) rowID() uuid.UUID {
	if r.VariantID != nil {
		return *r.VariantID
	}
	return r.ProductID
}

// Repository owns stock counters and the movement ledger.
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

// CompareAndDecrement subtracts qty only when at least qty is on hand and
// reports whether a row was updated.
func (r *Repository) CompareAndDecrement(ctx context.Context, ref StockRef, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Table(ref.table()).
		Where("id = ? AND stock >= ?", ref.rowID(), qty).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Increment adds qty to the counter and reports whether the row exists.
func (r *Repository) Increment(ctx context.Context, ref StockRef, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Table(ref.table()).
		Where("id = ?", ref.rowID()).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock + ?", qty),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Stock reads the current counter.
func (r *Repository) Stock(ctx context.Context, ref StockRef) (int, error) {
	var stock int
	res := r.db.WithContext(ctx).
		Table(ref.table()).
		Select("stock").
		Where("id = ?", ref.rowID()).
		Limit(1).
		Scan(&stock)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return stock, nil
}

func (r *Repository) InsertMovement(ctx context.Context, m *models.InventoryMovement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListMovements returns a product's movements oldest first, including its variants'.
func (r *Repository) ListMovements(ctx context.Context, productID uuid.UUID) ([]models.InventoryMovement, error) {
	var rows []models.InventoryMovement
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// SumMovements totals change_qty for exactly one stock counter.
func (r *Repository) SumMovements(ctx context.Context, ref StockRef) (int, error) {
	q := r.db.WithContext(ctx).
		Model(&models.InventoryMovement{}).
		Select("COALESCE(SUM(change_qty), 0)").
		Where("product_id = ?", ref.ProductID)
	if ref.VariantID != nil {
		q = q.Where("variant_id = ?", *ref.VariantID)
	} else {
		q = q.Where("variant_id IS NULL")
	}
	var total int
	err := q.Scan(&total).Error
	return total, err
}
