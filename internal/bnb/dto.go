package bnb

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	"github.com/petfinder-app/petfinder-backend/pkg/pagination"
)

const dateLayout = "2006-01-02"

type SitterDTO struct {
	ID               uuid.UUID      `json:"id"`
	UserID           uuid.UUID      `json:"user_id"`
	Headline         string         `json:"headline"`
	Bio              *string        `json:"bio,omitempty"`
	City             string         `json:"city"`
	NightlyRateCents int64          `json:"nightly_rate_cents"`
	Currency         enums.Currency `json:"currency"`
	AcceptsSpecies   []string       `json:"accepts_species"`
	IsActive         bool           `json:"is_active"`
	AverageRating    float64        `json:"average_rating"`
	ReviewCount      int            `json:"review_count"`
	CreatedAt        time.Time      `json:"created_at"`
}

type BookingDTO struct {
	ID         uuid.UUID           `json:"id"`
	SitterID   uuid.UUID           `json:"sitter_id"`
	OwnerID    uuid.UUID           `json:"owner_id"`
	PetID      uuid.UUID           `json:"pet_id"`
	StartDate  string              `json:"start_date"`
	EndDate    string              `json:"end_date"`
	Nights     int                 `json:"nights"`
	TotalCents int64               `json:"total_cents"`
	Currency   enums.Currency      `json:"currency"`
	Status     enums.BookingStatus `json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
}

type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	BookingID uuid.UUID `json:"booking_id"`
	SitterID  uuid.UUID `json:"sitter_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type SitterInput struct {
	Headline         string         `json:"headline" validate:"required,max=160"`
	Bio              *string        `json:"bio" validate:"omitempty,max=4000"`
	City             string         `json:"city" validate:"required,max=120"`
	NightlyRateCents int64          `json:"nightly_rate_cents" validate:"gte=0"`
	Currency         enums.Currency `json:"currency" validate:"required,oneof=COP USD EUR MXN"`
	AcceptsSpecies   []string       `json:"accepts_species" validate:"max=10,dive,min=1,max=40"`
	IsActive         *bool          `json:"is_active"`
}

type SitterFilter struct {
	City    string
	Species string
	pagination.Params
}

type BookingInput struct {
	SitterID  uuid.UUID `json:"sitter_id" validate:"required"`
	PetID     uuid.UUID `json:"pet_id" validate:"required"`
	StartDate string    `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string    `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// BookingRole selects which side of the bookings a user is listing.
type BookingRole string

const (
	RoleOwner  BookingRole = "owner"
	RoleSitter BookingRole = "sitter"
)

type ReviewInput struct {
	BookingID uuid.UUID `json:"booking_id" validate:"required"`
	Rating    int       `json:"rating" validate:"min=1,max=5"`
	Comment   *string   `json:"comment" validate:"omitempty,max=2000"`
}

func sitterFromModel(s *models.BnbSitter, rating RatingSummary) SitterDTO {
	return SitterDTO{
		ID:               s.ID,
		UserID:           s.UserID,
		Headline:         s.Headline,
		Bio:              s.Bio,
		City:             s.City,
		NightlyRateCents: s.NightlyRateCents,
		Currency:         s.Currency,
		AcceptsSpecies:   splitSpecies(s.AcceptsSpecies),
		IsActive:         s.IsActive,
		AverageRating:    rating.Average,
		ReviewCount:      rating.Count,
		CreatedAt:        s.CreatedAt,
	}
}

func bookingFromModel(b *models.BnbBooking) BookingDTO {
	return BookingDTO{
		ID:         b.ID,
		SitterID:   b.SitterID,
		OwnerID:    b.OwnerID,
		PetID:      b.PetID,
		StartDate:  b.StartDate.Format(dateLayout),
		EndDate:    b.EndDate.Format(dateLayout),
		Nights:     b.Nights,
		TotalCents: b.TotalCents,
		Currency:   b.Currency,
		Status:     b.Status,
		CreatedAt:  b.CreatedAt,
	}
}

func reviewFromModel(r *models.BnbReview) ReviewDTO {
	return ReviewDTO{
		ID:        r.ID,
		BookingID: r.BookingID,
		SitterID:  r.SitterID,
		AuthorID:  r.AuthorID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

// joinSpecies lower-cases and de-duplicates species, keeping input order.
func joinSpecies(species []string) string {
	seen := map[string]bool{}
	var out []string
	for _, s := range species {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] || strings.Contains(s, ",") {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return strings.Join(out, ",")
}

func splitSpecies(joined string) []string {
	if joined == "" {
		return []string{}
	}
	return strings.Split(joined, ",")
}
