package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/petfinder-app/petfinder-backend/api/controllers"
	"github.com/petfinder-app/petfinder-backend/api/controllers/admin"
	"github.com/petfinder-app/petfinder-backend/api/middleware"
	"github.com/petfinder-app/petfinder-backend/internal/auth"
	"github.com/petfinder-app/petfinder-backend/internal/blog"
	"github.com/petfinder-app/petfinder-backend/internal/bnb"
	"github.com/petfinder-app/petfinder-backend/internal/cart"
	checkoutsvc "github.com/petfinder-app/petfinder-backend/internal/checkout"
	"github.com/petfinder-app/petfinder-backend/internal/coupons"
	"github.com/petfinder-app/petfinder-backend/internal/inventory"
	"github.com/petfinder-app/petfinder-backend/internal/orders"
	"github.com/petfinder-app/petfinder-backend/internal/pets"
	"github.com/petfinder-app/petfinder-backend/internal/products"
	"github.com/petfinder-app/petfinder-backend/internal/users"
	"github.com/petfinder-app/petfinder-backend/pkg/auth/session"
	"github.com/petfinder-app/petfinder-backend/pkg/config"
	"github.com/petfinder-app/petfinder-backend/pkg/db"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
	"github.com/petfinder-app/petfinder-backend/pkg/metrics"
	pkgredis "github.com/petfinder-app/petfinder-backend/pkg/redis"
)

// RedisStore is the slice of the Redis client the HTTP layer needs: health,
// auth rate limiting and idempotency replay.
type RedisStore interface {
	pkgredis.IdempotencyStore
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Ping(ctx context.Context) error
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Deps wires every service the API exposes.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    RedisStore
	Sessions session.AccessSessionChecker

	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler

	Auth      auth.Service
	Users     users.Service
	Pets      pets.Service
	Products  products.Service
	Inventory inventory.Service
	Cart      cart.Service
	Checkout  checkoutsvc.Service
	Orders    orders.Service
	Coupons   coupons.Service
	Blog      blog.Service
	Bnb       bnb.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.HTTPMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	readyDeps := map[string]controllers.Pinger{}
	if d.DB != nil {
		readyDeps["database"] = d.DB
	}
	if d.Redis != nil {
		readyDeps["redis"] = d.Redis
	}
	idem := middleware.Idempotency(d.Redis, middleware.ReplayWindow, logg)
	moneyWindow := cfg.Checkout.IdempotencyTTL
	if moneyWindow <= 0 {
		moneyWindow = middleware.ReplayWindowMoney
	}
	idemMoney := middleware.Idempotency(d.Redis, moneyWindow, logg)
	requireAuth := middleware.Auth(cfg.JWT, d.Sessions, logg)
	optionalAuth := middleware.OptionalAuth(cfg.JWT, d.Sessions, logg)

	loginThrottle := middleware.ThrottleAuth(middleware.LoginThrottle(cfg.AuthRateLimit), d.Redis, logg)
	registerThrottle := middleware.ThrottleAuth(middleware.RegisterThrottle(cfg.AuthRateLimit), d.Redis, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readyDeps, logg))
	})
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	r.Get("/n/{nfcId}", controllers.NFCRedirect(d.Pets, logg))

	r.Route("/api/auth", func(r chi.Router) {
		r.With(loginThrottle).Post("/login", controllers.AuthLogin(d.Auth, logg))
		r.With(registerThrottle, idem).Post("/register", controllers.AuthRegister(d.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
		r.With(requireAuth).Post("/logout", controllers.AuthLogout(d.Auth, logg))
	})

	r.Route("/api/me", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", controllers.GetMe(d.Users, logg))
		r.Patch("/", controllers.UpdateMe(d.Users, logg))
	})

	r.Route("/api/pets", func(r chi.Router) {
		r.Get("/public/{qrId}", controllers.PublicPet(d.Pets, logg))
		r.Get("/public/{qrId}/qr.png", controllers.PublicPetQR(d.Pets, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", controllers.ListMyPets(d.Pets, logg))
			r.Post("/", controllers.CreatePet(d.Pets, logg))
			r.Route("/{petId}", func(r chi.Router) {
				r.Get("/", controllers.GetPet(d.Pets, logg))
				r.Patch("/", controllers.UpdatePet(d.Pets, logg))
				r.Delete("/", controllers.DeletePet(d.Pets, logg))
				r.Put("/status", controllers.SetPetStatus(d.Pets, logg))
				r.Put("/nfc", controllers.AssignPetNFC(d.Pets, logg))
				r.Get("/vaccinations", controllers.ListVaccinations(d.Pets, logg))
				r.Post("/vaccinations", controllers.AddVaccination(d.Pets, logg))
				r.Delete("/vaccinations/{recordId}", controllers.DeleteVaccination(d.Pets, logg))
				r.Get("/dewormings", controllers.ListDewormings(d.Pets, logg))
				r.Post("/dewormings", controllers.AddDeworming(d.Pets, logg))
				r.Delete("/dewormings/{recordId}", controllers.DeleteDeworming(d.Pets, logg))
			})
		})
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(d.Products, logg))
		r.Get("/categories", controllers.ListProductCategories(d.Products, logg))
		r.Get("/{slug}", controllers.GetProduct(d.Products, logg))
	})

	// Shopping works for guests: the cart lives behind the session cookie and
	// a valid token only links the cart to the account.
	r.Group(func(r chi.Router) {
		r.Use(optionalAuth)
		if d.Cart != nil {
			r.Use(middleware.CartSession(d.Cart, cfg.Cart, logg))
		}
		r.Get("/api/cart", controllers.GetCart(d.Cart, logg))
		r.Post("/api/cart/items", controllers.AddCartItem(d.Cart, logg))
		r.Patch("/api/cart/items", controllers.UpdateCartItem(d.Cart, logg))
		r.Delete("/api/cart/items", controllers.RemoveCartItem(d.Cart, logg))
		r.With(idemMoney).Post("/api/checkout", controllers.Checkout(d.Checkout, logg))
	})
	// Payments are recorded by staff or by the provider callback; holding an
	// order id alone does not let a shopper mark it paid.
	r.With(optionalAuth, middleware.RequireCaptureAuthority(cfg.Checkout.CaptureSecret, logg), idemMoney).
		Post("/api/payment/{orderId}", controllers.CapturePayment(d.Orders, logg))

	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/confirmation/{orderNumber}", controllers.OrderConfirmation(d.Orders, logg))
		r.With(requireAuth).Get("/", controllers.MyOrders(d.Orders, logg))
	})

	r.Route("/api/blog", func(r chi.Router) {
		r.Get("/posts", controllers.ListPosts(d.Blog, logg))
		r.Get("/posts/{slug}", controllers.GetPost(d.Blog, logg))
		r.Get("/posts/{slug}/comments", controllers.ListComments(d.Blog, logg))
		r.Get("/categories", controllers.ListBlogCategories(d.Blog, logg))
		r.Get("/tags", controllers.ListBlogTags(d.Blog, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/posts/{slug}/comments", controllers.AddComment(d.Blog, logg))
			r.Put("/posts/{slug}/reactions", controllers.SetReaction(d.Blog, logg))
			r.Delete("/posts/{slug}/reactions", controllers.ClearReaction(d.Blog, logg))

			r.Route("/manage/posts", func(r chi.Router) {
				r.Get("/", controllers.ListMyPosts(d.Blog, logg))
				r.Post("/", controllers.CreatePost(d.Blog, logg))
				r.Patch("/{postId}", controllers.UpdatePost(d.Blog, logg))
				r.Delete("/{postId}", controllers.DeletePost(d.Blog, logg))
				r.Post("/{postId}/publish", controllers.PublishPost(d.Blog, logg))
			})
		})
	})

	r.Route("/api/bnb", func(r chi.Router) {
		r.Get("/sitters", controllers.ListSitters(d.Bnb, logg))
		r.Get("/sitters/{sitterId}", controllers.GetSitter(d.Bnb, logg))
		r.Get("/sitters/{sitterId}/reviews", controllers.ListSitterReviews(d.Bnb, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Put("/sitters/me", controllers.UpsertMySitterProfile(d.Bnb, logg))
			r.Get("/bookings", controllers.ListBookings(d.Bnb, logg))
			r.With(idem).Post("/bookings", controllers.RequestBooking(d.Bnb, logg))
			r.Post("/bookings/{bookingId}/accept", controllers.AcceptBooking(d.Bnb, logg))
			r.Post("/bookings/{bookingId}/decline", controllers.DeclineBooking(d.Bnb, logg))
			r.Post("/bookings/{bookingId}/cancel", controllers.CancelBooking(d.Bnb, logg))
			r.Post("/bookings/{bookingId}/complete", controllers.CompleteBooking(d.Bnb, logg))
			r.Post("/reviews", controllers.CreateReview(d.Bnb, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireAdmin(logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", admin.ListProducts(d.Products, logg))
			r.Post("/", admin.CreateProduct(d.Products, logg))
			r.Post("/categories", admin.CreateCategory(d.Products, logg))
			r.Route("/{productId}", func(r chi.Router) {
				r.Get("/", admin.GetProduct(d.Products, logg))
				r.Patch("/", admin.UpdateProduct(d.Products, logg))
				r.Delete("/", admin.DeactivateProduct(d.Products, logg))
				r.Post("/variants", admin.CreateVariant(d.Products, logg))
				r.Patch("/variants/{variantId}", admin.UpdateVariant(d.Products, logg))
				r.With(idem).Post("/restock", admin.Restock(d.Products, logg))
				r.Get("/movements", admin.ListMovements(d.Inventory, logg))
				r.Get("/reconcile", admin.ReconcileStock(d.Inventory, logg))
			})
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Get("/", admin.ListCoupons(d.Coupons, logg))
			r.Post("/", admin.CreateCoupon(d.Coupons, logg))
			r.Get("/{couponId}", admin.GetCoupon(d.Coupons, logg))
			r.Patch("/{couponId}", admin.UpdateCoupon(d.Coupons, logg))
			r.Delete("/{couponId}", admin.DeactivateCoupon(d.Coupons, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", admin.ListOrders(d.Orders, logg))
			r.Get("/{orderId}", admin.GetOrder(d.Orders, logg))
			r.Put("/{orderId}/status", admin.UpdateOrderStatus(d.Orders, logg))
			r.Post("/{orderId}/cancel", admin.CancelOrder(d.Orders, logg))
			r.With(idemMoney).Post("/{orderId}/refund", admin.RefundOrder(d.Orders, logg))
		})

		r.Route("/blog", func(r chi.Router) {
			r.Post("/categories", admin.CreateBlogCategory(d.Blog, logg))
			r.Get("/comments/pending", admin.PendingComments(d.Blog, logg))
			r.Put("/comments/{commentId}", admin.ModerateComment(d.Blog, logg))
		})
	})

	return r
}
