package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/petfinder-app/petfinder-backend/api/routes"
	"github.com/petfinder-app/petfinder-backend/internal/auth"
	"github.com/petfinder-app/petfinder-backend/internal/blog"
	"github.com/petfinder-app/petfinder-backend/internal/bnb"
	"github.com/petfinder-app/petfinder-backend/internal/cart"
	"github.com/petfinder-app/petfinder-backend/internal/checkout"
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
	"github.com/petfinder-app/petfinder-backend/pkg/migrate"
	"github.com/petfinder-app/petfinder-backend/pkg/outbox"
	"github.com/petfinder-app/petfinder-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.ForApp("api", cfg.App)

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps, err := buildServices(cfg, logg, dbClient, sessionManager, reg)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}
	deps.Config = cfg
	deps.Logger = logg
	deps.DB = dbClient
	deps.Redis = redisClient
	deps.Sessions = sessionManager
	deps.HTTPMetrics = metrics.NewHTTPMetrics(reg)
	deps.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shut down gracefully")
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sessions *session.Manager, reg prometheus.Registerer) (routes.Deps, error) {
	var d routes.Deps
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	checkoutMetrics := metrics.NewCheckoutMetrics(reg)

	userRepo := users.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	couponRepo := coupons.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)

	var err error
	if d.Auth, err = auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	}); err != nil {
		return d, err
	}
	if d.Users, err = users.NewService(userRepo); err != nil {
		return d, err
	}
	if d.Pets, err = pets.NewService(pets.ServiceParams{
		Repo:      pets.NewRepository(conn),
		Tx:        dbClient,
		Outbox:    emitter,
		PublicURL: cfg.App.PublicPetURL,
	}); err != nil {
		return d, err
	}
	if d.Inventory, err = inventory.NewService(inventory.NewRepository(conn), dbClient); err != nil {
		return d, err
	}
	if d.Products, err = products.NewService(productRepo, d.Inventory, dbClient); err != nil {
		return d, err
	}
	if d.Cart, err = cart.NewService(cartRepo, productRepo); err != nil {
		return d, err
	}
	if d.Coupons, err = coupons.NewService(couponRepo); err != nil {
		return d, err
	}
	if d.Checkout, err = checkout.NewService(checkout.ServiceParams{
		Tx:                  dbClient,
		Carts:               cartRepo,
		Products:            productRepo,
		Coupons:             couponRepo,
		Orders:              orderRepo,
		Outbox:              emitter,
		Pricing:             checkout.ZeroPricing{},
		Metrics:             checkoutMetrics,
		Logger:              logg,
		OrderNumberAttempts: cfg.Checkout.OrderNumberAttempts,
	}); err != nil {
		return d, err
	}
	if d.Orders, err = orders.NewService(orders.ServiceParams{
		Repo:              orderRepo,
		Tx:                dbClient,
		Inventory:         d.Inventory,
		Coupons:           couponRepo,
		Outbox:            emitter,
		Metrics:           checkoutMetrics,
		Logger:            logg,
		LowStockThreshold: cfg.Inventory.LowStockThreshold,
	}); err != nil {
		return d, err
	}
	if d.Blog, err = blog.NewService(blog.ServiceParams{
		Repo:   blog.NewRepository(conn),
		Tx:     dbClient,
		Logger: logg,
	}); err != nil {
		return d, err
	}
	if d.Bnb, err = bnb.NewService(bnb.ServiceParams{
		Repo:   bnb.NewRepository(conn),
		Tx:     dbClient,
		Logger: logg,
	}); err != nil {
		return d, err
	}
	return d, nil
}
