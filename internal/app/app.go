// Package app wires the store API server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/combo-store/internal/domain/cart"
	"github.com/xenking/combo-store/internal/domain/catalog"
	"github.com/xenking/combo-store/internal/domain/order"
	"github.com/xenking/combo-store/internal/domain/pos"
	"github.com/xenking/combo-store/internal/domain/staff"
	"github.com/xenking/combo-store/internal/handler"
	"github.com/xenking/combo-store/internal/storage/filestore"
	"github.com/xenking/combo-store/internal/storage/postgres"
	"github.com/xenking/combo-store/internal/storage/redisstore"
	"github.com/xenking/combo-store/pkg/health"
	"github.com/xenking/combo-store/pkg/httpmiddleware"
)

// imagesPath is where uploaded product images are served.
const imagesPath = "/images"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	rdb, err := redisstore.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return errors.Wrap(err, "connect redis")
	}
	defer func() { _ = rdb.Close() }()

	images, err := filestore.New(cfg.Images.Dir, imagesPath, cfg.Images.MaxBytes)
	if err != nil {
		return errors.Wrap(err, "create image store")
	}

	shipping, err := cfg.ShippingPolicy()
	if err != nil {
		return err
	}

	healthSvc := health.New()
	healthSvc.Add(health.Readiness, health.Check{Name: "postgres", Timeout: 5 * time.Second, Func: health.PingCheck(pool)})
	healthSvc.Add(health.Readiness, health.Check{Name: "redis", Timeout: 2 * time.Second, Func: health.RedisCheck(rdb)})
	healthSvc.Add(health.Liveness, health.Check{Name: "goroutines", Func: health.GoroutineCountCheck(10000)})
	healthSvc.Start(ctx, 10*time.Second)

	// Repositories and session stores.
	productRepo := postgres.NewProductRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	staffRepo := postgres.NewStaffRepository(pool)
	carts := redisstore.NewCartStore(rdb, cfg.Sessions.CartTTL)
	terminals := redisstore.NewPOSStore(rdb, cfg.Sessions.POSTTL)
	catalogCache := redisstore.NewCatalogCache(rdb, cfg.Sessions.CatalogTTL)

	// Domain services.
	lister := catalog.NewCachedLister(productRepo, catalogCache)
	orderSvc, err := order.NewService(orderRepo, order.NewAssembler(shipping), order.Config{
		ReserveStock:   cfg.Orders.ReserveStock,
		MeterProvider:  m.MeterProvider(),
		TracerProvider: m.TracerProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	h := handler.New(handler.Config{
		ImageBaseURL:   cfg.Images.BaseURL,
		MaxUploadBytes: cfg.Images.MaxBytes,
		Letterhead:     cfg.Letterhead(),
	}, handler.Services{
		Catalog:  lister,
		Stale:    lister,
		Products: catalog.NewService(productRepo, images),
		Carts:    cart.NewService(carts, lister),
		Orders:   orderSvc,
		Staff:    staff.NewService(staffRepo, []byte(cfg.APIKeyPepper)),
		POS:      pos.NewService(terminals, lister, orderSvc, lister),
	})

	// One router: probes, static images and the API.
	router := h.Router()
	router.HandleFunc("/livez", healthSvc.LiveEndpoint).Methods(http.MethodGet)
	router.HandleFunc("/readyz", healthSvc.ReadyEndpoint).Methods(http.MethodGet)
	router.PathPrefix(imagesPath + "/").Handler(
		http.StripPrefix(imagesPath+"/", http.FileServer(http.Dir(images.Dir()))),
	).Methods(http.MethodGet, http.MethodHead)
	routeFinder := httpmiddleware.MakeRouteFinder(router)

	var limiter httpmiddleware.Limiter
	if cfg.RateLimit.Backend == "memory" {
		mem := httpmiddleware.NewMemoryLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window)
		mem.StartSweeper(ctx)
		limiter = mem
	} else {
		limiter = redisstore.NewRateLimiter(rdb, cfg.RateLimit.Max, cfg.RateLimit.Window)
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", handler.APIKeyHeader, handler.SessionHeader},
				ExposeHeaders:    []string{handler.SessionHeader, httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{
				Max:     cfg.RateLimit.Max,
				Window:  cfg.RateLimit.Window,
				Limiter: limiter,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("store-api", routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}
	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
