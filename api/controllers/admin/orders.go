package admin

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/petfinder-app/petfinder-backend/api/responses"
	"github.com/petfinder-app/petfinder-backend/api/validators"
	"github.com/petfinder-app/petfinder-backend/internal/orders"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
)

type orderStatusRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
}

// ListOrders pages through all orders, newest first. ?status= filters.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "order service")
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := orders.AdminListInput{Params: params}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, validationErr("invalid status"))
				return
			}
			input.Status = &status
		}
		page, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// UpdateOrderStatus moves an order along the fulfilment chain.
func UpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "order service")
			return
		}
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body orderStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.UpdateStatus(orderContext(r, logg, orderID), actor, orderID, body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return func(w http.ResponseWriter, r *http.Request) { unavailable(w, r, logg, "order service") }
	}
	return orderAction(svc.Cancel, logg)
}

func RefundOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return func(w http.ResponseWriter, r *http.Request) { unavailable(w, r, logg, "order service") }
	}
	return orderAction(svc.Refund, logg)
}

func orderAction(action func(ctx context.Context, actorID, orderID uuid.UUID) (*orders.OrderDTO, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := action(orderContext(r, logg, orderID), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func actorAndOrder(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	actor, err := actorID(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	orderID, err := validators.ParseUUIDParam(r, "orderId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return actor, orderID, nil
}

func orderContext(r *http.Request, logg *logger.Logger, orderID uuid.UUID) context.Context {
	if logg == nil {
		return r.Context()
	}
	return logg.WithOrderID(r.Context(), orderID.String())
}
