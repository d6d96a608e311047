package admin

import (
	"net/http"

	"github.com/petfinder-app/petfinder-backend/api/responses"
	"github.com/petfinder-app/petfinder-backend/api/validators"
	"github.com/petfinder-app/petfinder-backend/internal/coupons"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
)

// ListCoupons returns every coupon; ?active=true keeps only usable ones.
func ListCoupons(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "coupon service")
			return
		}
		activeOnly, err := validators.ParseQueryBool(r, "active", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), activeOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "coupon service")
			return
		}
		couponID, err := validators.ParseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		coupon, err := svc.Get(r.Context(), couponID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}

func CreateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "coupon service")
			return
		}
		var body coupons.CreateCouponInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		coupon, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, coupon)
	}
}

func UpdateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "coupon service")
			return
		}
		couponID, err := validators.ParseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body coupons.UpdateCouponInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		coupon, err := svc.Update(r.Context(), couponID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}

func DeactivateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "coupon service")
			return
		}
		couponID, err := validators.ParseUUIDParam(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Deactivate(r.Context(), couponID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
