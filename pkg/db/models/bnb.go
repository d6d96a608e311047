package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/enums"
)

// BnbSitter is a user's public pet-sitting profile.
type BnbSitter struct {
	ID               uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID      `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Headline         string         `gorm:"column:headline;not null"`
	Bio              *string        `gorm:"column:bio"`
	City             string         `gorm:"column:city;not null"`
	NightlyRateCents int64          `gorm:"column:nightly_rate_cents;not null"`
	Currency         enums.Currency `gorm:"column:currency;type:text;not null"`
	AcceptsSpecies   string         `gorm:"column:accepts_species;not null;default:''"`
	IsActive         bool           `gorm:"column:is_active;not null"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *BnbSitter) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

type BnbBooking struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SitterID   uuid.UUID           `gorm:"column:sitter_id;type:uuid;not null"`
	OwnerID    uuid.UUID           `gorm:"column:owner_id;type:uuid;not null"`
	PetID      uuid.UUID           `gorm:"column:pet_id;type:uuid;not null"`
	StartDate  time.Time           `gorm:"column:start_date;type:date;not null"`
	EndDate    time.Time           `gorm:"column:end_date;type:date;not null"`
	Nights     int                 `gorm:"column:nights;not null"`
	TotalCents int64               `gorm:"column:total_cents;not null"`
	Currency   enums.Currency      `gorm:"column:currency;type:text;not null"`
	Status     enums.BookingStatus `gorm:"column:status;type:text;not null"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *BnbBooking) BeforeCreate(*gorm.DB) error {
	assignID(&b.ID)
	return nil
}

type BnbReview struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	BookingID uuid.UUID `gorm:"column:booking_id;type:uuid;not null;uniqueIndex"`
	SitterID  uuid.UUID `gorm:"column:sitter_id;type:uuid;not null"`
	AuthorID  uuid.UUID `gorm:"column:author_id;type:uuid;not null"`
	Rating    int       `gorm:"column:rating;not null"`
	Comment   *string   `gorm:"column:comment"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *BnbReview) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}
