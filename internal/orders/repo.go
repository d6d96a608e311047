package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	"github.com/petfinder-app/petfinder-backend/pkg/pagination"
)

// Repository persists orders, their line items, payments and addresses.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListQuery filters the admin order listing.
type ListQuery struct {
	Status *enums.OrderStatus
	Cursor *pagination.Cursor
	Limit  int
}

func (r *Repository) CreateAddress(ctx context.Context, a *models.Address) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *Repository) FindAddress(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	var a models.Address
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateOrder inserts the order row only; items and payments are written separately.
func (r *Repository) CreateOrder(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Omit("Items", "Payments").Create(o).Error
}

func (r *Repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *Repository) CreatePayment(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// FindByID loads the order with its items and payments.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("order_number = ?", strings.ToUpper(strings.TrimSpace(orderNumber))).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// TransitionStatus moves the order from one status to another. It reports
// false when the row was no longer in from, which callers treat as a lost race.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, extra map[string]any) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdatePayments moves every payment of the order currently in one of from to status to.
func (r *Repository) UpdatePayments(ctx context.Context, orderID uuid.UUID, from []enums.PaymentStatus, to enums.PaymentStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status IN ?", orderID, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	return r.page(q, cursor, limit)
}

func (r *Repository) List(ctx context.Context, query ListQuery) ([]models.Order, error) {
	q := r.db.WithContext(ctx)
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	return r.page(q, query.Cursor, query.Limit)
}

func (r *Repository) page(q *gorm.DB, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Order
	err := q.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ListStalePending returns pending orders created before cutoff, oldest first.
func (r *Repository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
