package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/petfinder-app/petfinder-backend/api/middleware"
	"github.com/petfinder-app/petfinder-backend/api/responses"
	"github.com/petfinder-app/petfinder-backend/api/validators"
	checkoutsvc "github.com/petfinder-app/petfinder-backend/internal/checkout"
	"github.com/petfinder-app/petfinder-backend/internal/orders"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
)

type checkoutRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	Email      string `json:"email" validate:"required,email,max=254"`
	Address    string `json:"address" validate:"required,max=255"`
	City       string `json:"city" validate:"required,max=120"`
	Phone      string `json:"phone" validate:"required,max=40"`
	Country    string `json:"country" validate:"omitempty,len=2"`
	CouponCode string `json:"coupon_code" validate:"omitempty,max=40"`
}

type checkoutResponse struct {
	OrderID     uuid.UUID      `json:"order_id"`
	OrderNumber string         `json:"order_number"`
	TotalCents  int64          `json:"total_cents"`
	Currency    enums.Currency `json:"currency"`
}

type paymentResponse struct {
	OK      bool              `json:"ok"`
	OrderID uuid.UUID         `json:"order_id"`
	Status  enums.OrderStatus `json:"status"`
}

// Checkout turns the session cart into a pending order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "checkout service")
			return
		}
		cartID, err := cartIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkoutsvc.CheckoutInput{
			CartID: cartID,
			Shipping: checkoutsvc.Shipping{
				Name:    payload.Name,
				Email:   payload.Email,
				Address: payload.Address,
				City:    payload.City,
				Phone:   payload.Phone,
				Country: payload.Country,
			},
			CouponCode: payload.CouponCode,
		}
		if userID, ok := middleware.UserUUIDFromContext(r.Context()); ok {
			input.UserID = &userID
		}

		order, err := svc.Checkout(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			TotalCents:  order.TotalCents,
			Currency:    order.Currency,
		})
	}
}

// CapturePayment settles a pending order. Payment is recorded manually
// until a provider is integrated, so the request carries no body.
func CapturePayment(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "order service")
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}
		order, err := svc.CapturePayment(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, paymentResponse{OK: true, OrderID: order.ID, Status: order.Status})
	}
}
