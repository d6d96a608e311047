package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/internal/coupons"
	"github.com/petfinder-app/petfinder-backend/internal/inventory"
	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
	"github.com/petfinder-app/petfinder-backend/pkg/metrics"
	"github.com/petfinder-app/petfinder-backend/pkg/outbox"
	"github.com/petfinder-app/petfinder-backend/pkg/outbox/payloads"
	"github.com/petfinder-app/petfinder-backend/pkg/pagination"
)

const (
	defaultLowStockThreshold = 5
	defaultExpiryBatch       = 100
	manualProvider           = "manual"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes order capture, lookups and lifecycle transitions.
type Service interface {
	CapturePayment(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	GetConfirmation(ctx context.Context, orderNumber, email string) (*OrderDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error)

	Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, input AdminListInput) (*pagination.Page[OrderDTO], error)
	UpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error)
	Cancel(ctx context.Context, actorID, orderID uuid.UUID) (*OrderDTO, error)
	Refund(ctx context.Context, actorID, orderID uuid.UUID) (*OrderDTO, error)

	ExpireStalePending(ctx context.Context, cutoff time.Time) (*ExpiryResult, error)
}

// ServiceParams wires the orders service.
type ServiceParams struct {
	Repo              *Repository
	Tx                txRunner
	Inventory         inventory.Service
	Coupons           *coupons.Repository
	Outbox            outbox.Emitter
	Metrics           *metrics.CheckoutMetrics
	Logger            *logger.Logger
	LowStockThreshold int
	ExpiryBatch       int
	Now               func() time.Time
}

type service struct {
	repo      *Repository
	tx        txRunner
	inventory inventory.Service
	coupons   *coupons.Repository
	outbox    outbox.Emitter
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
	lowStock  int
	batch     int
	now       func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if p.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if p.Coupons == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if p.LowStockThreshold <= 0 {
		p.LowStockThreshold = defaultLowStockThreshold
	}
	if p.ExpiryBatch <= 0 {
		p.ExpiryBatch = defaultExpiryBatch
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &service{
		repo:      p.Repo,
		tx:        p.Tx,
		inventory: p.Inventory,
		coupons:   p.Coupons,
		outbox:    p.Outbox,
		metrics:   p.Metrics,
		logg:      p.Logger,
		lowStock:  p.LowStockThreshold,
		batch:     p.ExpiryBatch,
		now:       p.Now,
	}, nil
}

// CapturePayment marks a pending order paid and takes its stock. Either
// every line is decremented and the order is paid, or nothing changes.
func (s *service) CapturePayment(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	var currency string
	var amount int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadPending(ctx, repo, orderID)
		if err != nil {
			return err
		}
		currency, amount = string(order.Currency), order.TotalCents

		// Claim the order row first so a concurrent capture of the same order
		// blocks here instead of racing on stock.
		paidAt := s.now().UTC()
		claimed, err := repo.TransitionStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusPaid, map[string]any{"paid_at": paidAt})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
		}
		if !claimed {
			return notPending(enums.OrderStatusPaid)
		}

		var low []payloads.StockLowEvent
		for _, item := range order.Items {
			ref, err := stockRef(item)
			if err != nil {
				return err
			}
			remaining, err := s.inventory.Decrement(ctx, tx, ref, item.Quantity, order.ID.String())
			if err != nil {
				return err
			}
			if remaining <= s.lowStock {
				low = append(low, payloads.StockLowEvent{
					ProductID: ref.ProductID,
					VariantID: ref.VariantID,
					SKU:       item.SKU,
					Stock:     remaining,
				})
			}
		}

		paymentID, err := s.settlePayment(ctx, repo, order)
		if err != nil {
			return err
		}

		if order.CouponID != nil {
			if err := s.coupons.WithTx(tx).IncrementUsage(ctx, *order.CouponID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "increment coupon usage")
			}
		}

		if err := s.emit(ctx, tx, order.ID, enums.EventOrderPaid, outbox.SystemActor(), payloads.OrderPaidEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			PaymentID:   paymentID,
			AmountCents: order.TotalCents,
			Currency:    order.Currency,
			PaidAt:      paidAt,
		}); err != nil {
			return err
		}
		for _, event := range low {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventStockLow,
				AggregateType: enums.AggregateProduct,
				AggregateID:   event.ProductID,
				Actor:         outbox.SystemActor(),
				Data:          event,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit stock low")
			}
		}
		return nil
	})
	s.metrics.ObserveCapture(codeOf(err), currency, amount)
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "payment captured")
	}
	return s.Get(ctx, orderID)
}

func (s *service) loadPending(ctx context.Context, repo *Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, notPending(order.Status)
	}
	return order, nil
}

// settlePayment marks the pending payment succeeded, recording one when the
// order has none left to settle.
func (s *service) settlePayment(ctx context.Context, repo *Repository, order *models.Order) (uuid.UUID, error) {
	var paymentID uuid.UUID
	for _, p := range order.Payments {
		if p.Status == enums.PaymentStatusPending {
			paymentID = p.ID
		}
	}
	if paymentID != uuid.Nil {
		if _, err := repo.UpdatePayments(ctx, order.ID, []enums.PaymentStatus{enums.PaymentStatusPending}, enums.PaymentStatusSucceeded); err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle payment")
		}
		return paymentID, nil
	}
	payment := &models.Payment{
		OrderID:     order.ID,
		Provider:    manualProvider,
		Status:      enums.PaymentStatusSucceeded,
		AmountCents: order.TotalCents,
		Currency:    order.Currency,
	}
	if err := repo.CreatePayment(ctx, payment); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment")
	}
	return payment.ID, nil
}

// GetConfirmation returns the order for orderNumber. When email is given it
// must match the order's email; a mismatch looks exactly like a missing order.
func (s *service) GetConfirmation(ctx context.Context, orderNumber, email string) (*OrderDTO, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if email = strings.TrimSpace(email); email != "" && !strings.EqualFold(email, order.Email) {
		return nil, pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
	}
	dto := FromModel(order)
	addr, err := s.repo.FindAddress(ctx, order.ShippingAddressID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shipping address")
	}
	dto.ShippingAddress = addressFromModel(addr)
	return &dto, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByUser(ctx, userID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return buildPage(rows, params.Limit), nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	dto := FromModel(order)
	addr, err := s.repo.FindAddress(ctx, order.ShippingAddressID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shipping address")
	}
	dto.ShippingAddress = addressFromModel(addr)
	return &dto, nil
}

func (s *service) List(ctx context.Context, input AdminListInput) (*pagination.Page[OrderDTO], error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, ListQuery{
		Status: input.Status,
		Cursor: cursor,
		Limit:  pagination.LimitWithBuffer(input.Limit),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return buildPage(rows, input.Limit), nil
}

// UpdateStatus applies an admin transition. Payment is only taken through
// CapturePayment; cancellations and refunds return stock.
func (s *service) UpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status").
			WithDetails(map[string]any{"status": next})
	}
	if next == enums.OrderStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "orders become paid through payment capture")
	}
	if err := s.transition(ctx, actorID, orderID, next); err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

func (s *service) Cancel(ctx context.Context, actorID, orderID uuid.UUID) (*OrderDTO, error) {
	return s.UpdateStatus(ctx, actorID, orderID, enums.OrderStatusCancelled)
}

func (s *service) Refund(ctx context.Context, actorID, orderID uuid.UUID) (*OrderDTO, error) {
	return s.UpdateStatus(ctx, actorID, orderID, enums.OrderStatusRefunded)
}

func (s *service) transition(ctx context.Context, actorID, orderID uuid.UUID, next enums.OrderStatus) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		from := order.Status
		if !from.CanTransitionTo(next) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
				WithDetails(map[string]any{"from": from, "to": next})
		}
		moved, err := repo.TransitionStatus(ctx, order.ID, from, next, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently").
				WithDetails(map[string]any{"from": from, "to": next})
		}

		restock := next.IsTerminal() && from.HoldsStock()
		if restock {
			for _, item := range order.Items {
				ref, err := stockRef(item)
				if err != nil {
					return err
				}
				if err := s.inventory.Increment(ctx, tx, ref, item.Quantity, enums.MovementReasonRefund, order.ID.String()); err != nil {
					return err
				}
			}
		}
		if next.IsTerminal() {
			if err := s.closePayments(ctx, repo, order.ID); err != nil {
				return err
			}
		}

		actorRef := outbox.UserActor(&actorID, true)
		return s.emit(ctx, tx, order.ID, enums.EventOrderStatusChanged, actorRef, payloads.OrderStatusChangedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			From:        from,
			To:          next,
			Restocked:   restock,
		})
	})
}

// closePayments settles payments of an order that reached a terminal state:
// money taken is marked refunded, attempts still open are marked failed.
func (s *service) closePayments(ctx context.Context, repo *Repository, orderID uuid.UUID) error {
	if _, err := repo.UpdatePayments(ctx, orderID, []enums.PaymentStatus{enums.PaymentStatusSucceeded}, enums.PaymentStatusRefunded); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refund payments")
	}
	if _, err := repo.UpdatePayments(ctx, orderID, []enums.PaymentStatus{enums.PaymentStatusPending}, enums.PaymentStatusFailed); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fail open payments")
	}
	return nil
}

// ExpireStalePending cancels pending orders created before cutoff. Each
// order is expired in its own transaction; failures are collected and the
// sweep continues.
func (s *service) ExpireStalePending(ctx context.Context, cutoff time.Time) (*ExpiryResult, error) {
	stale, err := s.repo.ListStalePending(ctx, cutoff, s.batch)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stale orders")
	}
	result := &ExpiryResult{Scanned: len(stale)}
	var errs error
	for _, order := range stale {
		expired, err := s.expire(ctx, order)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if expired {
			result.Expired = append(result.Expired, order.ID)
		}
	}
	return result, errs
}

func (s *service) expire(ctx context.Context, order models.Order) (bool, error) {
	expired := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		moved, err := repo.TransitionStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled, nil)
		if err != nil {
			return err
		}
		if !moved {
			// paid or cancelled since it was listed
			return nil
		}
		if _, err := repo.UpdatePayments(ctx, order.ID, []enums.PaymentStatus{enums.PaymentStatusPending}, enums.PaymentStatusFailed); err != nil {
			return err
		}
		expired = true
		return s.emit(ctx, tx, order.ID, enums.EventOrderExpired, outbox.SystemActor(), payloads.OrderExpiredEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			CreatedAt:   order.CreatedAt,
		})
	})
	if err != nil {
		return false, err
	}
	if expired && s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "pending order expired")
	}
	return expired, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, eventType enums.OutboxEventType, actor *outbox.ActorRef, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         actor,
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit "+string(eventType))
	}
	return nil
}

func stockRef(item models.OrderItem) (inventory.StockRef, error) {
	if item.ProductID == nil {
		return inventory.StockRef{}, pkgerrors.New(pkgerrors.CodeProductNotFound, "order line no longer references a product").
			WithDetails(map[string]any{"sku": item.SKU})
	}
	return inventory.StockRef{ProductID: *item.ProductID, VariantID: item.VariantID}, nil
}

func notPending(status enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeOrderNotPending, "order is not pending").
		WithDetails(map[string]any{"status": status})
}

func buildPage(rows []models.Order, limit int) *pagination.Page[OrderDTO] {
	dtos := make([]OrderDTO, len(rows))
	for i := range rows {
		dtos[i] = FromModel(&rows[i])
	}
	page := pagination.BuildPage(dtos, limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &page
}

func codeOf(err error) string {
	return string(pkgerrors.CodeOf(err))
}
