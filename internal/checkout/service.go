package checkout

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/internal/cart"
	"github.com/petfinder-app/petfinder-backend/internal/checkout/helpers"
	"github.com/petfinder-app/petfinder-backend/internal/coupons"
	"github.com/petfinder-app/petfinder-backend/internal/orders"
	"github.com/petfinder-app/petfinder-backend/internal/products"
	"github.com/petfinder-app/petfinder-backend/pkg/db"
	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
	"github.com/petfinder-app/petfinder-backend/pkg/metrics"
	"github.com/petfinder-app/petfinder-backend/pkg/outbox"
	"github.com/petfinder-app/petfinder-backend/pkg/outbox/payloads"
)

const (
	defaultOrderNumberAttempts = 5
	defaultCountry             = "CO"
	manualProvider             = "manual"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service converts a cart into a pending order.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*models.Order, error)
}

// Shipping is the contact and delivery data collected at checkout.
type Shipping struct {
	Name    string `validate:"required"`
	Email   string `validate:"required,email"`
	Address string `validate:"required"`
	City    string `validate:"required"`
	Phone   string `validate:"required"`
	Country string `validate:"len=2"`
}

// CheckoutInput identifies the cart and the buyer.
type CheckoutInput struct {
	CartID     uuid.UUID
	UserID     *uuid.UUID
	Shipping   Shipping
	CouponCode string
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	Tx       txRunner
	Carts    *cart.Repository
	Products *products.Repository
	Coupons  *coupons.Repository
	Orders   *orders.Repository
	Outbox   outbox.Emitter
	Pricing  PricingPolicy
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger

	OrderNumberAttempts int
	Now                 func() time.Time
	NewOrderNumber      func(now time.Time) (string, error)
}

type service struct {
	tx       txRunner
	carts    *cart.Repository
	products *products.Repository
	coupons  *coupons.Repository
	orders   *orders.Repository
	outbox   outbox.Emitter
	pricing  PricingPolicy
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger

	attempts       int
	now            func() time.Time
	newOrderNumber func(time.Time) (string, error)
}

// NewService builds the checkout service.
func NewService(p ServiceParams) (Service, error) {
	if p.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if p.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if p.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if p.Coupons == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if p.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if p.Pricing == nil {
		p.Pricing = ZeroPricing{}
	}
	if p.OrderNumberAttempts <= 0 {
		p.OrderNumberAttempts = defaultOrderNumberAttempts
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.NewOrderNumber == nil {
		p.NewOrderNumber = helpers.NewOrderNumber
	}
	return &service{
		tx:             p.Tx,
		carts:          p.Carts,
		products:       p.Products,
		coupons:        p.Coupons,
		orders:         p.Orders,
		outbox:         p.Outbox,
		pricing:        p.Pricing,
		metrics:        p.Metrics,
		logg:           p.Logger,
		attempts:       p.OrderNumberAttempts,
		now:            p.Now,
		newOrderNumber: p.NewOrderNumber,
	}, nil
}

// resolvedLine is a cart item re-priced from the live product and variant rows.
type resolvedLine struct {
	helpers.Line
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Name      string
	SKU       string
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*models.Order, error) {
	order, err := s.checkout(ctx, input)
	s.metrics.ObserveCheckout(codeOf(err))
	return order, err
}

func (s *service) checkout(ctx context.Context, input CheckoutInput) (*models.Order, error) {
	if input.CartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	}
	shipping, err := normalizeShipping(input.Shipping)
	if err != nil {
		return nil, err
	}

	items, err := s.carts.Items(ctx, input.CartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart items")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		// Re-read inside the transaction so the order reflects what gets cleared.
		items, err := cartRepo.Items(ctx, input.CartID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart items")
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		lines, err := s.resolveLines(ctx, s.products.WithTx(tx), items)
		if err != nil {
			return err
		}
		plain := make([]helpers.Line, len(lines))
		for i := range lines {
			plain[i] = lines[i].Line
		}
		currency, err := helpers.SingleCurrency(plain)
		if err != nil {
			return err
		}
		subtotal := helpers.Subtotal(plain)

		var coupon *models.Coupon
		var discount int64
		if code := coupons.NormalizeCode(input.CouponCode); code != "" {
			coupon, err = s.coupons.WithTx(tx).FindByCode(ctx, code)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
			}
			if err := coupons.Validate(coupon, currency, s.now()); err != nil {
				return err
			}
			discount = coupons.Discount(coupon, subtotal)
		}

		quote, err := s.pricing.Quote(ctx, QuoteInput{
			Currency:      currency,
			SubtotalCents: subtotal,
			DiscountCents: discount,
			Lines:         plain,
			Shipping:      shipping,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "quote shipping and tax")
		}
		totals := helpers.ComputeTotals(subtotal, discount, quote.ShippingCents, quote.TaxCents)

		shippingAddr := addressFrom(shipping, enums.AddressKindShipping)
		if err := ordersRepo.CreateAddress(ctx, shippingAddr); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save shipping address")
		}
		billingAddr := addressFrom(shipping, enums.AddressKindBilling)
		if err := ordersRepo.CreateAddress(ctx, billingAddr); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save billing address")
		}

		created := &models.Order{
			UserID:            input.UserID,
			Email:             shipping.Email,
			CustomerName:      shipping.Name,
			Phone:             shipping.Phone,
			Status:            enums.OrderStatusPending,
			Currency:          currency,
			SubtotalCents:     totals.SubtotalCents,
			DiscountCents:     totals.DiscountCents,
			ShippingCents:     totals.ShippingCents,
			TaxCents:          totals.TaxCents,
			TotalCents:        totals.TotalCents,
			ShippingAddressID: shippingAddr.ID,
			BillingAddressID:  billingAddr.ID,
		}
		if coupon != nil {
			created.CouponID = &coupon.ID
		}
		if err := s.insertWithOrderNumber(ctx, tx, created); err != nil {
			return err
		}

		orderItems := make([]models.OrderItem, len(lines))
		for i, line := range lines {
			productID := line.ProductID
			orderItems[i] = models.OrderItem{
				OrderID:        created.ID,
				ProductID:      &productID,
				VariantID:      line.VariantID,
				ProductName:    line.Name,
				SKU:            line.SKU,
				UnitPriceCents: line.UnitPriceCents,
				Quantity:       line.Quantity,
				LineTotalCents: line.LineTotal(),
			}
		}
		if err := ordersRepo.CreateItems(ctx, orderItems); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save order items")
		}

		payment := &models.Payment{
			OrderID:     created.ID,
			Provider:    manualProvider,
			Status:      enums.PaymentStatusPending,
			AmountCents: totals.TotalCents,
			Currency:    currency,
		}
		if err := ordersRepo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save payment")
		}

		if err := cartRepo.Clear(ctx, input.CartID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}

		event := payloads.OrderCreatedEvent{
			OrderID:     created.ID,
			OrderNumber: created.OrderNumber,
			UserID:      input.UserID,
			Email:       created.Email,
			TotalCents:  created.TotalCents,
			Currency:    currency,
			ItemCount:   len(orderItems),
		}
		if coupon != nil {
			event.CouponCode = coupon.Code
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   created.ID,
			Actor:         outbox.UserActor(input.UserID, false),
			Data:          event,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order created")
		}

		created.Items = orderItems
		created.Payments = []models.Payment{*payment}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"order_number": order.OrderNumber,
			"total_cents":  order.TotalCents,
			"currency":     order.Currency,
		})
		s.logg.Info(logCtx, "checkout completed")
	}
	return order, nil
}

// resolveLines re-prices every cart item from live rows; cached cart prices are ignored.
func (s *service) resolveLines(ctx context.Context, repo *products.Repository, items []models.CartItem) ([]resolvedLine, error) {
	cache := map[uuid.UUID]*models.Product{}
	lines := make([]resolvedLine, 0, len(items))
	for _, item := range items {
		product, ok := cache[item.ProductID]
		if !ok {
			loaded, err := repo.FindByID(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, pkgerrors.New(pkgerrors.CodeProductNotFound, "product not found").
						WithDetails(map[string]any{"product_id": item.ProductID})
				}
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
			}
			product = loaded
			cache[item.ProductID] = product
		}
		if !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeProductInactive, "product is not available").
				WithDetails(map[string]any{"product_id": product.ID, "slug": product.Slug})
		}

		line := resolvedLine{
			Line: helpers.Line{
				UnitPriceCents: product.PriceCents,
				Quantity:       item.Quantity,
				Currency:       product.Currency,
			},
			ProductID: product.ID,
			Name:      product.Name,
			SKU:       product.SKU,
		}
		if item.VariantID != nil {
			variant, err := repo.FindVariant(ctx, *item.VariantID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
			}
			if variant == nil || variant.ProductID != product.ID || !variant.IsActive {
				return nil, pkgerrors.New(pkgerrors.CodeInvalidVariant, "variant is not available").
					WithDetails(map[string]any{"product_id": product.ID, "variant_id": *item.VariantID})
			}
			line.VariantID = &variant.ID
			line.UnitPriceCents = variant.EffectivePrice(product)
			line.Name = product.Name + " - " + variant.Name
			line.SKU = variant.SKU
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// insertWithOrderNumber retries number allocation inside a savepoint so a
// collision does not abort the surrounding transaction.
func (s *service) insertWithOrderNumber(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	for attempt := 1; ; attempt++ {
		number, err := s.newOrderNumber(s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		order.ID = uuid.Nil
		order.OrderNumber = number
		err = tx.Transaction(func(sp *gorm.DB) error {
			return s.orders.WithTx(sp).CreateOrder(ctx, order)
		})
		if err == nil {
			return nil
		}
		if !db.IsUniqueViolation(err, "ux_orders_order_number", "orders.order_number") {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save order")
		}
		if attempt >= s.attempts {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not allocate a unique order number")
		}
	}
}

var shippingValidator = newShippingValidator()

func newShippingValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.ToLower(f.Name)
	})
	return v
}

func normalizeShipping(in Shipping) (Shipping, error) {
	out := Shipping{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Address: strings.TrimSpace(in.Address),
		City:    strings.TrimSpace(in.City),
		Phone:   strings.TrimSpace(in.Phone),
		Country: strings.ToUpper(strings.TrimSpace(in.Country)),
	}
	if out.Country == "" {
		out.Country = defaultCountry
	}
	err := shippingValidator.Struct(out)
	if err == nil {
		return out, nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Shipping{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping details")
	}
	missing := []string{}
	invalid := map[string]any{}
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		invalid[fe.Field()] = fe.Value()
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Shipping{}, pkgerrors.New(pkgerrors.CodeValidation, "shipping details incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	if _, ok := invalid["email"]; ok {
		return Shipping{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid email").WithDetails(invalid)
	}
	return Shipping{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping details").WithDetails(invalid)
}

func addressFrom(s Shipping, kind enums.AddressKind) *models.Address {
	return &models.Address{
		Kind:    kind,
		Name:    s.Name,
		Email:   s.Email,
		Phone:   s.Phone,
		Line1:   s.Address,
		City:    s.City,
		Country: s.Country,
	}
}

func codeOf(err error) string {
	return string(pkgerrors.CodeOf(err))
}
