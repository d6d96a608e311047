package checkout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/petfinder-app/petfinder-backend/internal/cart"
	"github.com/petfinder-app/petfinder-backend/internal/checkout"
	"github.com/petfinder-app/petfinder-backend/internal/coupons"
	"github.com/petfinder-app/petfinder-backend/internal/dbtest"
	"github.com/petfinder-app/petfinder-backend/internal/orders"
	"github.com/petfinder-app/petfinder-backend/internal/products"
	"github.com/petfinder-app/petfinder-backend/pkg/db"
	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
	"github.com/petfinder-app/petfinder-backend/pkg/outbox"
)

type fixture struct {
	client *db.Client
	svc    checkout.Service
	events *outbox.Repository
}

func newFixture(t *testing.T, mutate ...func(*checkout.ServiceParams)) fixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	events := outbox.NewRepository(conn)
	params := checkout.ServiceParams{
		Tx:       client,
		Carts:    cart.NewRepository(conn),
		Products: products.NewRepository(conn),
		Coupons:  coupons.NewRepository(conn),
		Orders:   orders.NewRepository(conn),
		Outbox:   outbox.NewService(events, nil),
	}
	for _, m := range mutate {
		m(&params)
	}
	svc, err := checkout.NewService(params)
	require.NoError(t, err)
	return fixture{client: client, svc: svc, events: events}
}

func shipping() checkout.Shipping {
	return checkout.Shipping{
		Name:    "Laura Gómez",
		Email:   "Laura@Example.com",
		Address: "Calle 10 # 43-12",
		City:    "Medellín",
		Phone:   "+57 300 000 0000",
	}
}

func codeOf(err error) pkgerrors.Code {
	return pkgerrors.As(err).Code()
}

func countRows(t *testing.T, client *db.Client, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, client.DB().Model(model).Count(&n).Error)
	return n
}

func TestCheckoutSnapshotsTotalsAndClearsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conn := f.client.DB()
	small := dbtest.Product(t, conn, "collar-qr-s", 45000, 10)
	medium := dbtest.Product(t, conn, "collar-qr-m", 49000, 10)
	c := dbtest.Cart(t, conn)
	dbtest.CartItem(t, conn, c, small, 2)
	dbtest.CartItem(t, conn, c, medium, 1)

	order, err := f.svc.Checkout(ctx, checkout.CheckoutInput{CartID: c.ID, Shipping: shipping()})
	require.NoError(t, err)

	require.Equal(t, enums.OrderStatusPending, order.Status)
	require.Equal(t, enums.CurrencyCOP, order.Currency)
	require.Equal(t, int64(139000), order.SubtotalCents)
	require.Zero(t, order.DiscountCents)
	require.Zero(t, order.ShippingCents)
	require.Zero(t, order.TaxCents)
	require.Equal(t, int64(139000), order.TotalCents)
	require.Equal(t, "laura@example.com", order.Email)
	require.Regexp(t, `^PF-\d{8}-[0-9A-Z]{6}$`, order.OrderNumber)

	stored, err := orders.NewRepository(conn).FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	totals := map[string]int64{}
	for _, item := range stored.Items {
		totals[item.SKU] = item.LineTotalCents
	}
	require.Equal(t, map[string]int64{"collar-qr-s": 90000, "collar-qr-m": 49000}, totals)

	require.Len(t, stored.Payments, 1)
	require.Equal(t, enums.PaymentStatusPending, stored.Payments[0].Status)
	require.Equal(t, "manual", stored.Payments[0].Provider)
	require.Equal(t, int64(139000), stored.Payments[0].AmountCents)

	shippingAddr, err := orders.NewRepository(conn).FindAddress(ctx, stored.ShippingAddressID)
	require.NoError(t, err)
	billingAddr, err := orders.NewRepository(conn).FindAddress(ctx, stored.BillingAddressID)
	require.NoError(t, err)
	require.Equal(t, enums.AddressKindShipping, shippingAddr.Kind)
	require.Equal(t, enums.AddressKindBilling, billingAddr.Kind)
	require.Equal(t, shippingAddr.Line1, billingAddr.Line1)
	require.Equal(t, "CO", billingAddr.Country)

	remaining, err := cart.NewRepository(conn).Items(ctx, c.ID)
	require.NoError(t, err)
	require.Empty(t, remaining)

	events, err := f.events.ListByAggregate(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, enums.EventOrderCreated, events[0].EventType)

	// checkout never touches stock
	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, "id = ?", small.ID).Error)
	require.Equal(t, 10, reloaded.Stock)
}

func TestCheckoutUsesLivePrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conn := f.client.DB()
	product := dbtest.Product(t, conn, "collar-qr-l", 52000, 5)
	variant := dbtest.Variant(t, conn, product, "collar-qr-l-red", 5, dbtest.Ptr(int64(55000)))
	c := dbtest.Cart(t, conn)
	dbtest.CartItem(t, conn, c, product, 1)
	require.NoError(t, conn.Create(&models.CartItem{
		CartID:         c.ID,
		ProductID:      product.ID,
		VariantID:      &variant.ID,
		Quantity:       2,
		UnitPriceCents: 1,
		Currency:       enums.CurrencyCOP,
	}).Error)
	require.NoError(t, conn.Model(product).Update("price_cents", 60000).Error)

	order, err := f.svc.Checkout(ctx, checkout.CheckoutInput{CartID: c.ID, Shipping: shipping()})
	require.NoError(t, err)
	require.Equal(t, int64(60000+2*55000), order.SubtotalCents)

	var variantLine *models.OrderItem
	for i := range order.Items {
		if order.Items[i].VariantID != nil {
			variantLine = &order.Items[i]
		}
	}
	require.NotNil(t, variantLine)
	require.Equal(t, "collar-qr-l-red", variantLine.SKU)
	require.Equal(t, int64(55000), variantLine.UnitPriceCents)
}

func TestCheckoutPercentCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conn := f.client.DB()
	small := dbtest.Product(t, conn, "collar-qr-s", 45000, 10)
	medium := dbtest.Product(t, conn, "collar-qr-m", 49000, 10)
	c := dbtest.Cart(t, conn)
	dbtest.CartItem(t, conn, c, small, 2)
	dbtest.CartItem(t, conn, c, medium, 1)
	coupon := &models.Coupon{
		Code:       "WELCOME10",
		Type:       enums.CouponTypePercent,
		PercentOff: decimal.NullDecimal{Decimal: decimal.NewFromInt(10), Valid: true},
		IsActive:   true,
	}
	require.NoError(t, conn.Create(coupon).Error)

	order, err := f.svc.Checkout(ctx, checkout.CheckoutInput{CartID: c.ID, Shipping: shipping(), CouponCode: " welcome10 "})
	require.NoError(t, err)
	require.Equal(t, int64(139000), order.SubtotalCents)
	require.Equal(t, int64(13900), order.DiscountCents)
	require.Equal(t, int64(125100), order.TotalCents)
	require.NotNil(t, order.CouponID)
	require.Equal(t, coupon.ID, *order.CouponID)

	// usage is only counted once the payment is captured
	var reloaded models.Coupon
	require.NoError(t, conn.First(&reloaded, "id = ?", coupon.ID).Error)
	require.Zero(t, reloaded.TimesUsed)
}

func TestCheckoutFixedCouponLargerThanSubtotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conn := f.client.DB()
	product := dbtest.Product(t, conn, "collar-qr-s", 45000, 10)
	c := dbtest.Cart(t, conn)
	dbtest.CartItem(t, conn, c, product, 1)
	require.NoError(t, conn.Create(&models.Coupon{
		Code:           "FREECOLLAR",
		Type:           enums.CouponTypeFixed,
		AmountOffCents: dbtest.Ptr(int64(100000)),
		IsActive:       true,
	}).Error)

	order, err := f.svc.Checkout(ctx, checkout.CheckoutInput{CartID: c.ID, Shipping: shipping(), CouponCode: "FREECOLLAR"})
	require.NoError(t, err)
	require.Equal(t, int64(45000), order.DiscountCents)
	require.Zero(t, order.TotalCents)
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	c := dbtest.Cart(t, f.client.DB())

	_, err := f.svc.Checkout(context.Background(), checkout.CheckoutInput{CartID: c.ID, Shipping: shipping()})
	require.Equal(t, pkgerrors.CodeEmptyCart, codeOf(err))
	require.Zero(t, countRows(t, f.client, &models.Order{}))
}

func TestCheckoutFailuresLeaveCartUntouched(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	cases := []struct {
		name   string
		setup  func(t *testing.T, f fixture, c *models.Cart)
		coupon string
		code   pkgerrors.Code
	}{
		{
			name: "mixed currency",
			setup: func(t *testing.T, f fixture, c *models.Cart) {
				usd := dbtest.Product(t, f.client.DB(), "tag-usd", 1500, 3, func(p *models.Product) {
					p.Currency = enums.CurrencyUSD
				})
				dbtest.CartItem(t, f.client.DB(), c, usd, 1)
			},
			code: pkgerrors.CodeMixedCurrency,
		},
		{
			name: "expired coupon",
			setup: func(t *testing.T, f fixture, c *models.Cart) {
				require.NoError(t, f.client.DB().Create(&models.Coupon{
					Code:           "OLD",
					Type:           enums.CouponTypeFixed,
					AmountOffCents: dbtest.Ptr(int64(1000)),
					EndsAt:         &past,
					IsActive:       true,
				}).Error)
			},
			coupon: "old",
			code:   pkgerrors.CodeInvalidCoupon,
		},
		{
			name:   "unknown coupon",
			setup:  func(*testing.T, fixture, *models.Cart) {},
			coupon: "NOPE",
			code:   pkgerrors.CodeInvalidCoupon,
		},
		{
			name: "exhausted coupon",
			setup: func(t *testing.T, f fixture, c *models.Cart) {
				require.NoError(t, f.client.DB().Create(&models.Coupon{
					Code:           "ONCE",
					Type:           enums.CouponTypeFixed,
					AmountOffCents: dbtest.Ptr(int64(1000)),
					MaxUses:        dbtest.Ptr(1),
					TimesUsed:      1,
					IsActive:       true,
				}).Error)
			},
			coupon: "ONCE",
			code:   pkgerrors.CodeInvalidCoupon,
		},
		{
			name: "deactivated product",
			setup: func(t *testing.T, f fixture, c *models.Cart) {
				gone := dbtest.Product(t, f.client.DB(), "retired", 1000, 3)
				dbtest.CartItem(t, f.client.DB(), c, gone, 1)
				require.NoError(t, f.client.DB().Model(gone).Update("is_active", false).Error)
			},
			code: pkgerrors.CodeProductInactive,
		},
		{
			name: "variant of another product",
			setup: func(t *testing.T, f fixture, c *models.Cart) {
				owner := dbtest.Product(t, f.client.DB(), "other", 1000, 3)
				variant := dbtest.Variant(t, f.client.DB(), owner, "other-blue", 3, nil)
				var first models.CartItem
				require.NoError(t, f.client.DB().Where("cart_id = ?", c.ID).First(&first).Error)
				require.NoError(t, f.client.DB().Create(&models.CartItem{
					CartID:         c.ID,
					ProductID:      first.ProductID,
					VariantID:      &variant.ID,
					Quantity:       1,
					UnitPriceCents: 1000,
					Currency:       enums.CurrencyCOP,
				}).Error)
			},
			code: pkgerrors.CodeInvalidVariant,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			conn := f.client.DB()
			product := dbtest.Product(t, conn, "collar-qr-s", 45000, 10)
			c := dbtest.Cart(t, conn)
			dbtest.CartItem(t, conn, c, product, 2)
			tc.setup(t, f, c)

			before, err := cart.NewRepository(conn).Items(context.Background(), c.ID)
			require.NoError(t, err)

			_, err = f.svc.Checkout(context.Background(), checkout.CheckoutInput{
				CartID:     c.ID,
				Shipping:   shipping(),
				CouponCode: tc.coupon,
			})
			require.Equal(t, tc.code, codeOf(err))

			after, err := cart.NewRepository(conn).Items(context.Background(), c.ID)
			require.NoError(t, err)
			require.Len(t, after, len(before))
			require.Zero(t, countRows(t, f.client, &models.Order{}))
			require.Zero(t, countRows(t, f.client, &models.Address{}))
			require.Zero(t, countRows(t, f.client, &models.OutboxEvent{}))
		})
	}
}

func TestCheckoutRetriesOrderNumberCollisions(t *testing.T) {
	numbers := []string{"PF-20250101-AAAAAA", "PF-20250101-AAAAAA", "PF-20250101-AAAAAA", "PF-20250101-BBBBBB"}
	next := 0
	f := newFixture(t, func(p *checkout.ServiceParams) {
		p.NewOrderNumber = func(time.Time) (string, error) {
			n := numbers[next]
			next++
			return n, nil
		}
	})
	ctx := context.Background()
	conn := f.client.DB()
	product := dbtest.Product(t, conn, "collar-qr-s", 45000, 10)

	first := dbtest.Cart(t, conn)
	dbtest.CartItem(t, conn, first, product, 1)
	order, err := f.svc.Checkout(ctx, checkout.CheckoutInput{CartID: first.ID, Shipping: shipping()})
	require.NoError(t, err)
	require.Equal(t, "PF-20250101-AAAAAA", order.OrderNumber)

	second := dbtest.Cart(t, conn)
	dbtest.CartItem(t, conn, second, product, 1)
	order, err = f.svc.Checkout(ctx, checkout.CheckoutInput{CartID: second.ID, Shipping: shipping()})
	require.NoError(t, err)
	require.Equal(t, "PF-20250101-BBBBBB", order.OrderNumber)
	require.Equal(t, 4, next)
	require.Equal(t, int64(2), countRows(t, f.client, &models.Order{}))
}

func TestCheckoutGivesUpAfterOrderNumberAttempts(t *testing.T) {
	f := newFixture(t, func(p *checkout.ServiceParams) {
		p.OrderNumberAttempts = 2
		p.NewOrderNumber = func(time.Time) (string, error) { return "PF-20250101-SAME00", nil }
	})
	ctx := context.Background()
	conn := f.client.DB()
	product := dbtest.Product(t, conn, "collar-qr-s", 45000, 10)

	first := dbtest.Cart(t, conn)
	dbtest.CartItem(t, conn, first, product, 1)
	_, err := f.svc.Checkout(ctx, checkout.CheckoutInput{CartID: first.ID, Shipping: shipping()})
	require.NoError(t, err)

	second := dbtest.Cart(t, conn)
	dbtest.CartItem(t, conn, second, product, 1)
	_, err = f.svc.Checkout(ctx, checkout.CheckoutInput{CartID: second.ID, Shipping: shipping()})
	require.Equal(t, pkgerrors.CodeInternal, codeOf(err))

	items, err := cart.NewRepository(conn).Items(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

type flatPricing struct {
	quote checkout.Quote
	err   error
}

func (p flatPricing) Quote(context.Context, checkout.QuoteInput) (checkout.Quote, error) {
	return p.quote, p.err
}

func TestCheckoutAddsPricingPolicyAmounts(t *testing.T) {
	f := newFixture(t, func(p *checkout.ServiceParams) {
		p.Pricing = flatPricing{quote: checkout.Quote{ShippingCents: 8000, TaxCents: 1900}}
	})
	conn := f.client.DB()
	product := dbtest.Product(t, conn, "collar-qr-s", 45000, 10)
	c := dbtest.Cart(t, conn)
	dbtest.CartItem(t, conn, c, product, 1)

	order, err := f.svc.Checkout(context.Background(), checkout.CheckoutInput{CartID: c.ID, Shipping: shipping()})
	require.NoError(t, err)
	require.Equal(t, int64(8000), order.ShippingCents)
	require.Equal(t, int64(1900), order.TaxCents)
	require.Equal(t, int64(45000+8000+1900), order.TotalCents)
}

func TestCheckoutPricingFailureRollsBack(t *testing.T) {
	f := newFixture(t, func(p *checkout.ServiceParams) {
		p.Pricing = flatPricing{err: errors.New("carrier down")}
	})
	conn := f.client.DB()
	product := dbtest.Product(t, conn, "collar-qr-s", 45000, 10)
	c := dbtest.Cart(t, conn)
	dbtest.CartItem(t, conn, c, product, 1)

	_, err := f.svc.Checkout(context.Background(), checkout.CheckoutInput{CartID: c.ID, Shipping: shipping()})
	require.Equal(t, pkgerrors.CodeDependency, codeOf(err))
	require.Zero(t, countRows(t, f.client, &models.Order{}))
}

func TestCheckoutValidatesShipping(t *testing.T) {
	f := newFixture(t)
	c := dbtest.Cart(t, f.client.DB())
	in := shipping()
	in.Phone = " "
	in.City = ""

	_, err := f.svc.Checkout(context.Background(), checkout.CheckoutInput{CartID: c.ID, Shipping: in})
	require.Equal(t, pkgerrors.CodeValidation, codeOf(err))
	require.Equal(t, map[string]any{"missing": []string{"city", "phone"}}, pkgerrors.As(err).Details())

	in = shipping()
	in.Email = "not-an-email"
	_, err = f.svc.Checkout(context.Background(), checkout.CheckoutInput{CartID: c.ID, Shipping: in})
	require.Equal(t, pkgerrors.CodeValidation, codeOf(err))
	require.Equal(t, map[string]any{"email": "not-an-email"}, pkgerrors.As(err).Details())

	in = shipping()
	in.Country = "COL"
	_, err = f.svc.Checkout(context.Background(), checkout.CheckoutInput{CartID: c.ID, Shipping: in})
	require.Equal(t, pkgerrors.CodeValidation, codeOf(err))
	require.Equal(t, map[string]any{"country": "COL"}, pkgerrors.As(err).Details())
}
