package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/api"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/cache"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/logger"
	"github.com/safar/storefront/internal/service"
	"github.com/safar/storefront/internal/store"
)

const serviceName = "storefront"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(logger.Options{Service: serviceName, Env: cfg.AppEnv, Level: cfg.LogLevel, AddSource: !cfg.IsProduction()})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Error("connect to database", slog.Any("err", err))
		os.Exit(1)
	}
	defer db.Close()
	log.Info("connected to database")

	tracing := cfg.Tracing.OTLPEndpoint != ""
	if tracing {
		shutdownTracing, err := api.SetupTracing(ctx, cfg.Tracing.OTLPEndpoint, serviceName)
		if err != nil {
			log.Warn("tracing disabled", slog.Any("err", err))
			tracing = false
		} else {
			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					log.Warn("tracing shutdown", slog.Any("err", err))
				}
			}()
		}
	}

	users := store.NewUserRepo(db)
	products := store.NewProductRepo(db)
	carts := store.NewCartRepo(db)
	orders := store.NewOrderRepo(db)

	// Left nil when Redis is not configured or unreachable.
	var productCache service.ProductCache
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("product cache disabled", slog.String("addr", cfg.Redis.Addr), slog.Any("err", err))
		} else {
			defer rdb.Close()
			productCache = cache.NewProductCache(rdb, cfg.Redis.TTL, log)
			log.Info("product cache enabled", slog.String("addr", cfg.Redis.Addr))
		}
	}

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	handlers := api.NewHandlers(
		service.NewAuthService(users, carts, auth.NewPasswordHasher(cfg.Auth.BcryptCost), tokens, log),
		service.NewCatalogService(products, productCache, log),
		service.NewCartService(carts, products, log),
		service.NewOrderService(orders, carts, products, users, log),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.RouterConfig{
		Service:              serviceName,
		ExposeInternalErrors: !cfg.IsProduction(),
		CORSOrigins:          cfg.Server.CORSOrigins,
		Tracing:              tracing,
		Ready: func(ctx context.Context) error {
			return database.Ready(ctx, db, 2*time.Second)
		},
	}, handlers, tokens, log)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case err := <-serveErr:
		if err != nil {
			log.Error("server error", slog.Any("err", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", slog.Any("err", err))
	}
	log.Info("bye")
}
