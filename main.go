package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"checkout/internal/config"
	"checkout/internal/core/service"
	"checkout/internal/gateway"
	"checkout/internal/handlers"
	"checkout/internal/infra/circuitbreaker"
	"checkout/internal/infra/health"
	"checkout/internal/infra/storage"
	"checkout/internal/logger"
	"checkout/internal/metrics"
)

func main() {
	cfg := config.Load()

	log := logger.New("paypal-relay")
	defer log.Sync()

	if cfg.PayPalClientID == "" || cfg.PayPalClientSecret == "" {
		log.Fatal("PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET must be set")
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	registry, cleanup, err := newRegistry(cfg, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	defer cleanup()

	breaker := circuitbreaker.New(5, 30*time.Second, 2)
	paypal := gateway.NewPayPalGateway(cfg, breaker, m, log)
	checker := health.NewChecker(cfg.PayPalBaseURL)

	checkout := service.NewCheckoutService(paypal, registry, m, log, cfg.DefaultCurrency, cfg.OrderDescription)
	handler := handlers.NewPaymentHandler(checkout, checker, cfg, log)

	app := fiber.New(fiber.Config{
		JSONEncoder: sonic.Marshal,
		JSONDecoder: sonic.Unmarshal,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendOrigin,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Content-Type," + handlers.HeaderSessionID,
		ExposeHeaders:    handlers.HeaderSessionID,
		AllowCredentials: true,
	}))

	app.Post("/create-paypal-order", handler.CreateOrder)
	app.Post("/capture-paypal-order", handler.CaptureOrder)
	app.Get("/health", handler.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	go func() {
		log.Info("server running",
			zap.String("port", cfg.ServerPort),
			zap.String("paypal_env", cfg.PayPalEnvironment))
		if err := app.Listen(":" + cfg.ServerPort); err != nil {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}

func newRegistry(cfg *config.Settings, log *zap.Logger) (service.OrderRegistry, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info("no REDIS_ADDR configured, using in-memory order registry")
		return storage.NewMemoryRegistry(cfg.BindingTTL), func() {}, nil
	}

	registry, err := storage.NewRedisRegistry(cfg.RedisAddr, cfg.BindingTTL)
	if err != nil {
		return nil, nil, err
	}
	log.Info("order registry backed by redis", zap.String("addr", cfg.RedisAddr))
	return registry, func() { registry.Close() }, nil
}
