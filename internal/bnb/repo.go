package bnb

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

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

type SitterQuery struct {
	City    string
	Species string
	Cursor  *pagination.Cursor
	Limit   int
}

func (r *Repository) FindSitterByUser(ctx context.Context, userID uuid.UUID) (*models.BnbSitter, error) {
	var s models.BnbSitter
	if err := r.db.WithContext(ctx).First(&s, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) FindSitter(ctx context.Context, id uuid.UUID) (*models.BnbSitter, error) {
	var s models.BnbSitter
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSitter inserts a new profile or overwrites an existing one.
func (r *Repository) SaveSitter(ctx context.Context, s *models.BnbSitter) error {
	return r.db.WithContext(ctx).Save(s).Error
}

// ListActiveSitters matches city case-insensitively. Species matches one
// entry of the comma-joined accepts_species list; an empty list accepts all.
func (r *Repository) ListActiveSitters(ctx context.Context, q SitterQuery) ([]models.BnbSitter, error) {
	query := r.db.WithContext(ctx).Where("is_active = ?", true)
	if q.City != "" {
		query = query.Where("LOWER(city) = ?", strings.ToLower(q.City))
	}
	if q.Species != "" {
		query = query.Where("(accepts_species = '' OR (',' || accepts_species || ',') LIKE ?)",
			"%,"+strings.ToLower(q.Species)+",%")
	}
	if q.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", q.Cursor.CreatedAt, q.Cursor.CreatedAt, q.Cursor.ID)
	}
	var rows []models.BnbSitter
	err := query.Order("created_at DESC").Order("id DESC").Limit(q.Limit).Find(&rows).Error
	return rows, err
}

type RatingSummary struct {
	SitterID uuid.UUID
	Average  float64
	Count    int
}

func (r *Repository) Ratings(ctx context.Context, sitterIDs []uuid.UUID) (map[uuid.UUID]RatingSummary, error) {
	out := make(map[uuid.UUID]RatingSummary, len(sitterIDs))
	if len(sitterIDs) == 0 {
		return out, nil
	}
	var rows []RatingSummary
	err := r.db.WithContext(ctx).Model(&models.BnbReview{}).
		Select("sitter_id, AVG(rating) AS average, COUNT(*) AS count").
		Where("sitter_id IN ?", sitterIDs).
		Group("sitter_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.SitterID] = row
	}
	return out, nil
}

func (r *Repository) CreateBooking(ctx context.Context, b *models.BnbBooking) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *Repository) FindBooking(ctx context.Context, id uuid.UUID) (*models.BnbBooking, error) {
	var b models.BnbBooking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// TransitionBooking moves the booking only while it is still in from.
func (r *Repository) TransitionBooking(ctx context.Context, id uuid.UUID, from, to enums.BookingStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.BnbBooking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	return res.RowsAffected == 1, res.Error
}

// CountOverlapping counts accepted bookings of the sitter sharing a night
// with [start, end), excluding one booking.
func (r *Repository) CountOverlapping(ctx context.Context, sitterID, exclude uuid.UUID, start, end time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.BnbBooking{}).
		Where("sitter_id = ? AND id <> ? AND status = ?", sitterID, exclude, enums.BookingStatusAccepted).
		Where("start_date < ? AND end_date > ?", end, start).
		Count(&n).Error
	return n, err
}

type BookingQuery struct {
	OwnerID  *uuid.UUID
	SitterID *uuid.UUID
	Cursor   *pagination.Cursor
	Limit    int
}

func (r *Repository) ListBookings(ctx context.Context, q BookingQuery) ([]models.BnbBooking, error) {
	query := r.db.WithContext(ctx)
	if q.OwnerID != nil {
		query = query.Where("owner_id = ?", *q.OwnerID)
	}
	if q.SitterID != nil {
		query = query.Where("sitter_id = ?", *q.SitterID)
	}
	if q.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", q.Cursor.CreatedAt, q.Cursor.CreatedAt, q.Cursor.ID)
	}
	var rows []models.BnbBooking
	err := query.Order("created_at DESC").Order("id DESC").Limit(q.Limit).Find(&rows).Error
	return rows, err
}

func (r *Repository) FindPet(ctx context.Context, id uuid.UUID) (*models.Pet, error) {
	var p models.Pet
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) CreateReview(ctx context.Context, review *models.BnbReview) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *Repository) ListReviews(ctx context.Context, sitterID uuid.UUID) ([]models.BnbReview, error) {
	var rows []models.BnbReview
	err := r.db.WithContext(ctx).
		Where("sitter_id = ?", sitterID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
