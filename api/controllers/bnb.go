package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/petfinder-app/petfinder-backend/api/responses"
	"github.com/petfinder-app/petfinder-backend/api/validators"
	"github.com/petfinder-app/petfinder-backend/internal/bnb"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
)

func ListSitters(svc bnb.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "bnb service")
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		page, err := svc.ListSitters(r.Context(), bnb.SitterFilter{
			City:    validators.QueryText(q, "city", 120),
			Species: validators.QueryText(q, "species", 60),
			Params:  params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetSitter(svc bnb.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "bnb service")
			return
		}
		sitterID, err := validators.ParseUUIDParam(r, "sitterId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sitter, err := svc.GetSitter(r.Context(), sitterID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sitter)
	}
}

// UpsertMySitterProfile creates or replaces the caller's sitter listing.
func UpsertMySitterProfile(svc bnb.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "bnb service")
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body bnb.SitterInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sitter, err := svc.UpsertSitter(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sitter)
	}
}

func ListSitterReviews(svc bnb.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "bnb service")
			return
		}
		sitterID, err := validators.ParseUUIDParam(r, "sitterId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reviews, err := svc.ListReviews(r.Context(), sitterID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reviews)
	}
}

func RequestBooking(svc bnb.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "bnb service")
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body bnb.BookingInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		booking, err := svc.RequestBooking(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, booking)
	}
}

// ListBookings lists the caller's bookings; ?role=sitter shows the stays
// they host instead of the ones they requested.
func ListBookings(svc bnb.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "bnb service")
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role := bnb.BookingRole(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("role"))))
		switch role {
		case "":
			role = bnb.RoleOwner
		case bnb.RoleOwner, bnb.RoleSitter:
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "role must be owner or sitter"))
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListBookings(r.Context(), userID, role, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

type bookingTransition func(ctx context.Context, userID, bookingID uuid.UUID) (*bnb.BookingDTO, error)

func AcceptBooking(svc bnb.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "bnb service")
	}
	return transitionBooking(svc.AcceptBooking, logg)
}

func DeclineBooking(svc bnb.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "bnb service")
	}
	return transitionBooking(svc.DeclineBooking, logg)
}

func CancelBooking(svc bnb.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "bnb service")
	}
	return transitionBooking(svc.CancelBooking, logg)
}

func CompleteBooking(svc bnb.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "bnb service")
	}
	return transitionBooking(svc.CompleteBooking, logg)
}

func transitionBooking(move bookingTransition, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingID, err := validators.ParseUUIDParam(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		booking, err := move(r.Context(), userID, bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

func CreateReview(svc bnb.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "bnb service")
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body bnb.ReviewInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		review, err := svc.CreateReview(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, review)
	}
}
