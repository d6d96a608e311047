package admin

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petfinder-app/petfinder-backend/api/middleware"
	"github.com/petfinder-app/petfinder-backend/internal/orders"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
	"github.com/petfinder-app/petfinder-backend/pkg/pagination"
)

type stubOrders struct {
	orders.Service
	listInput orders.AdminListInput
	next      enums.OrderStatus
	refunded  uuid.UUID
}

func (s *stubOrders) List(ctx context.Context, input orders.AdminListInput) (*pagination.Page[orders.OrderDTO], error) {
	s.listInput = input
	return &pagination.Page[orders.OrderDTO]{Items: []orders.OrderDTO{}}, nil
}

func (s *stubOrders) UpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, next enums.OrderStatus) (*orders.OrderDTO, error) {
	if next == enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invalid transition")
	}
	s.next = next
	return &orders.OrderDTO{ID: orderID, Status: next}, nil
}

func (s *stubOrders) Refund(ctx context.Context, actorID, orderID uuid.UUID) (*orders.OrderDTO, error) {
	s.refunded = orderID
	return &orders.OrderDTO{ID: orderID, Status: enums.OrderStatusRefunded}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func adminRequest(method, target, body string, orderID uuid.UUID) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", orderID.String())
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = middleware.WithUserID(ctx, uuid.NewString())
	ctx = middleware.WithAdmin(ctx, true)
	return req.WithContext(ctx)
}

func TestListOrdersStatusFilter(t *testing.T) {
	svc := &stubOrders{}
	rec := httptest.NewRecorder()
	ListOrders(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/orders?status=paid&limit=10", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.listInput.Status)
	assert.Equal(t, enums.OrderStatusPaid, *svc.listInput.Status)
	assert.Equal(t, 10, svc.listInput.Limit)

	rec = httptest.NewRecorder()
	ListOrders(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/orders?status=lost", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateOrderStatus(t *testing.T) {
	svc := &stubOrders{}
	orderID := uuid.New()

	rec := httptest.NewRecorder()
	UpdateOrderStatus(svc, testLogger()).ServeHTTP(rec, adminRequest(http.MethodPut, "/", `{"status":"shipped"}`, orderID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, enums.OrderStatusShipped, svc.next)

	rec = httptest.NewRecorder()
	UpdateOrderStatus(svc, testLogger()).ServeHTTP(rec, adminRequest(http.MethodPut, "/", `{"status":"pending"}`, orderID))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRefundOrder(t *testing.T) {
	svc := &stubOrders{}
	orderID := uuid.New()

	rec := httptest.NewRecorder()
	RefundOrder(svc, testLogger()).ServeHTTP(rec, adminRequest(http.MethodPost, "/", "", orderID))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, orderID, svc.refunded)
}
