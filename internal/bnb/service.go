package bnb

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/db"
	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
	"github.com/petfinder-app/petfinder-backend/pkg/pagination"
)

const maxNights = 90

// Service runs the pet-sitting marketplace: sitter directory, bookings and
// reviews.
type Service interface {
	UpsertSitter(ctx context.Context, userID uuid.UUID, input SitterInput) (*SitterDTO, error)
	GetSitter(ctx context.Context, sitterID uuid.UUID) (*SitterDTO, error)
	ListSitters(ctx context.Context, filter SitterFilter) (*pagination.Page[SitterDTO], error)

	RequestBooking(ctx context.Context, ownerID uuid.UUID, input BookingInput) (*BookingDTO, error)
	AcceptBooking(ctx context.Context, userID, bookingID uuid.UUID) (*BookingDTO, error)
	DeclineBooking(ctx context.Context, userID, bookingID uuid.UUID) (*BookingDTO, error)
	CancelBooking(ctx context.Context, userID, bookingID uuid.UUID) (*BookingDTO, error)
	CompleteBooking(ctx context.Context, userID, bookingID uuid.UUID) (*BookingDTO, error)
	ListBookings(ctx context.Context, userID uuid.UUID, role BookingRole, params pagination.Params) (*pagination.Page[BookingDTO], error)

	CreateReview(ctx context.Context, authorID uuid.UUID, input ReviewInput) (*ReviewDTO, error)
	ListReviews(ctx context.Context, sitterID uuid.UUID) ([]ReviewDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo   *Repository
	Tx     txRunner
	Logger *logger.Logger
}

type service struct {
	repo *Repository
	tx   txRunner
	logg *logger.Logger
}

func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("bnb repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: p.Repo, tx: p.Tx, logg: p.Logger}, nil
}

func (s *service) UpsertSitter(ctx context.Context, userID uuid.UUID, input SitterInput) (*SitterDTO, error) {
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}
	if input.NightlyRateCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nightly rate must not be negative")
	}
	sitter, err := s.repo.FindSitterByUser(ctx, userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		sitter = &models.BnbSitter{UserID: userID, IsActive: true}
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load sitter")
	}
	sitter.Headline = strings.TrimSpace(input.Headline)
	sitter.Bio = input.Bio
	sitter.City = strings.TrimSpace(input.City)
	sitter.NightlyRateCents = input.NightlyRateCents
	sitter.Currency = input.Currency
	sitter.AcceptsSpecies = joinSpecies(input.AcceptsSpecies)
	if input.IsActive != nil {
		sitter.IsActive = *input.IsActive
	}
	if err := s.repo.SaveSitter(ctx, sitter); err != nil {
		if db.IsUniqueViolation(err, "bnb_sitters_user_id_key", "bnb_sitters.user_id") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sitter profile already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save sitter")
	}
	return s.GetSitter(ctx, sitter.ID)
}

func (s *service) GetSitter(ctx context.Context, sitterID uuid.UUID) (*SitterDTO, error) {
	sitter, err := s.repo.FindSitter(ctx, sitterID)
	if err != nil {
		return nil, mapErr(err, "sitter not found", "load sitter")
	}
	ratings, err := s.repo.Ratings(ctx, []uuid.UUID{sitter.ID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load ratings")
	}
	dto := sitterFromModel(sitter, ratings[sitter.ID])
	return &dto, nil
}

func (s *service) ListSitters(ctx context.Context, filter SitterFilter) (*pagination.Page[SitterDTO], error) {
	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListActiveSitters(ctx, SitterQuery{
		City:    strings.TrimSpace(filter.City),
		Species: strings.TrimSpace(filter.Species),
		Cursor:  cursor,
		Limit:   pagination.LimitWithBuffer(filter.Limit),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list sitters")
	}
	ids := make([]uuid.UUID, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	ratings, err := s.repo.Ratings(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load ratings")
	}
	dtos := make([]SitterDTO, len(rows))
	for i := range rows {
		dtos[i] = sitterFromModel(&rows[i], ratings[rows[i].ID])
	}
	page := pagination.BuildPage(dtos, filter.Limit, func(d SitterDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: d.CreatedAt, ID: d.ID}
	})
	return &page, nil
}

// RequestBooking prices the stay at nights × the sitter's nightly rate.
func (s *service) RequestBooking(ctx context.Context, ownerID uuid.UUID, input BookingInput) (*BookingDTO, error) {
	start, end, nights, err := parseStay(input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}
	sitter, err := s.repo.FindSitter(ctx, input.SitterID)
	if err != nil {
		return nil, mapErr(err, "sitter not found", "load sitter")
	}
	if !sitter.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sitter not found")
	}
	if sitter.UserID == ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "you cannot book yourself")
	}
	pet, err := s.repo.FindPet(ctx, input.PetID)
	if err != nil {
		return nil, mapErr(err, "pet not found", "load pet")
	}
	if pet.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "pet does not belong to you")
	}
	if accepted := splitSpecies(sitter.AcceptsSpecies); len(accepted) > 0 &&
		!slices.Contains(accepted, strings.ToLower(strings.TrimSpace(pet.Species))) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sitter does not accept this species").
			WithDetails(map[string]any{"accepts_species": accepted})
	}
	booking := &models.BnbBooking{
		SitterID:   sitter.ID,
		OwnerID:    ownerID,
		PetID:      pet.ID,
		StartDate:  start,
		EndDate:    end,
		Nights:     nights,
		TotalCents: int64(nights) * sitter.NightlyRateCents,
		Currency:   sitter.Currency,
		Status:     enums.BookingStatusRequested,
	}
	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create booking")
	}
	dto := bookingFromModel(booking)
	return &dto, nil
}

// AcceptBooking is the sitter's answer. Accepted stays of one sitter may not
// overlap.
func (s *service) AcceptBooking(ctx context.Context, userID, bookingID uuid.UUID) (*BookingDTO, error) {
	var out *models.BnbBooking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		booking, err := s.loadAsSitter(ctx, repo, userID, bookingID)
		if err != nil {
			return err
		}
		overlaps, err := repo.CountOverlapping(ctx, booking.SitterID, booking.ID, booking.StartDate, booking.EndDate)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check overlapping bookings")
		}
		if overlaps > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "sitter already has an accepted booking for these dates")
		}
		out, err = s.transition(ctx, repo, booking, enums.BookingStatusAccepted)
		return err
	})
	if err != nil {
		return nil, err
	}
	dto := bookingFromModel(out)
	return &dto, nil
}

func (s *service) DeclineBooking(ctx context.Context, userID, bookingID uuid.UUID) (*BookingDTO, error) {
	booking, err := s.loadAsSitter(ctx, s.repo, userID, bookingID)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, booking, enums.BookingStatusDeclined)
}

func (s *service) CompleteBooking(ctx context.Context, userID, bookingID uuid.UUID) (*BookingDTO, error) {
	booking, err := s.loadAsSitter(ctx, s.repo, userID, bookingID)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, booking, enums.BookingStatusCompleted)
}

func (s *service) CancelBooking(ctx context.Context, userID, bookingID uuid.UUID) (*BookingDTO, error) {
	booking, err := s.repo.FindBooking(ctx, bookingID)
	if err != nil {
		return nil, mapErr(err, "booking not found", "load booking")
	}
	if booking.OwnerID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the pet owner can cancel")
	}
	return s.finish(ctx, booking, enums.BookingStatusCancelled)
}

func (s *service) finish(ctx context.Context, booking *models.BnbBooking, next enums.BookingStatus) (*BookingDTO, error) {
	updated, err := s.transition(ctx, s.repo, booking, next)
	if err != nil {
		return nil, err
	}
	dto := bookingFromModel(updated)
	return &dto, nil
}

func (s *service) transition(ctx context.Context, repo *Repository, booking *models.BnbBooking, next enums.BookingStatus) (*models.BnbBooking, error) {
	if !booking.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booking cannot move to "+next.String()).
			WithDetails(map[string]any{"from": booking.Status, "to": next})
	}
	ok, err := repo.TransitionBooking(ctx, booking.ID, booking.Status, next)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update booking")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booking changed concurrently")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"booking_id": booking.ID,
			"from":       booking.Status,
			"to":         next,
		}), "booking status changed")
	}
	booking.Status = next
	return booking, nil
}

func (s *service) loadAsSitter(ctx context.Context, repo *Repository, userID, bookingID uuid.UUID) (*models.BnbBooking, error) {
	booking, err := repo.FindBooking(ctx, bookingID)
	if err != nil {
		return nil, mapErr(err, "booking not found", "load booking")
	}
	sitter, err := repo.FindSitter(ctx, booking.SitterID)
	if err != nil {
		return nil, mapErr(err, "sitter not found", "load sitter")
	}
	if sitter.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the sitter can answer this booking")
	}
	return booking, nil
}

func (s *service) ListBookings(ctx context.Context, userID uuid.UUID, role BookingRole, params pagination.Params) (*pagination.Page[BookingDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	q := BookingQuery{Cursor: cursor, Limit: pagination.LimitWithBuffer(params.Limit)}
	switch role {
	case RoleOwner, "":
		q.OwnerID = &userID
	case RoleSitter:
		sitter, err := s.repo.FindSitterByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				empty := pagination.BuildPage([]BookingDTO{}, params.Limit, nil)
				return &empty, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load sitter")
		}
		q.SitterID = &sitter.ID
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be owner or sitter")
	}
	rows, err := s.repo.ListBookings(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bookings")
	}
	dtos := make([]BookingDTO, len(rows))
	for i := range rows {
		dtos[i] = bookingFromModel(&rows[i])
	}
	page := pagination.BuildPage(dtos, params.Limit, func(b BookingDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: b.CreatedAt, ID: b.ID}
	})
	return &page, nil
}

// CreateReview lets the pet owner rate a completed booking once.
func (s *service) CreateReview(ctx context.Context, authorID uuid.UUID, input ReviewInput) (*ReviewDTO, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	booking, err := s.repo.FindBooking(ctx, input.BookingID)
	if err != nil {
		return nil, mapErr(err, "booking not found", "load booking")
	}
	if booking.OwnerID != authorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the pet owner can review this booking")
	}
	if booking.Status != enums.BookingStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booking is not completed")
	}
	review := &models.BnbReview{
		BookingID: booking.ID,
		SitterID:  booking.SitterID,
		AuthorID:  authorID,
		Rating:    input.Rating,
		Comment:   input.Comment,
	}
	if err := s.repo.CreateReview(ctx, review); err != nil {
		if db.IsUniqueViolation(err, "bnb_reviews_booking_id_key", "bnb_reviews.booking_id") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "booking already reviewed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create review")
	}
	dto := reviewFromModel(review)
	return &dto, nil
}

func (s *service) ListReviews(ctx context.Context, sitterID uuid.UUID) ([]ReviewDTO, error) {
	rows, err := s.repo.ListReviews(ctx, sitterID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviews")
	}
	out := make([]ReviewDTO, len(rows))
	for i := range rows {
		out[i] = reviewFromModel(&rows[i])
	}
	return out, nil
}

func parseStay(startRaw, endRaw string) (time.Time, time.Time, int, error) {
	start, err := time.Parse(dateLayout, strings.TrimSpace(startRaw))
	if err != nil {
		return time.Time{}, time.Time{}, 0, pkgerrors.New(pkgerrors.CodeValidation, "start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, strings.TrimSpace(endRaw))
	if err != nil {
		return time.Time{}, time.Time{}, 0, pkgerrors.New(pkgerrors.CodeValidation, "end_date must be YYYY-MM-DD")
	}
	nights := int(end.Sub(start).Hours() / 24)
	if nights < 1 {
		return time.Time{}, time.Time{}, 0, pkgerrors.New(pkgerrors.CodeValidation, "end_date must be after start_date")
	}
	if nights > maxNights {
		return time.Time{}, time.Time{}, 0, pkgerrors.New(pkgerrors.CodeValidation, "stays are limited to 90 nights")
	}
	return start, end, nights, nil
}

func mapErr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
