package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/campuseats/ordering/internal/account"
	"github.com/campuseats/ordering/internal/catalog"
	"github.com/campuseats/ordering/internal/config"
	"github.com/campuseats/ordering/internal/engine"
	"github.com/campuseats/ordering/internal/messaging"
	"github.com/campuseats/ordering/internal/notify"
	"github.com/campuseats/ordering/internal/order"
	"github.com/campuseats/ordering/internal/payment"
	"github.com/campuseats/ordering/internal/restaurant"
	"github.com/campuseats/ordering/internal/telemetry"
	"github.com/campuseats/ordering/internal/web"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "ordering", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("ordering", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	var producer *messaging.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = messaging.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() { _ = producer.Close() }()
	}

	restaurants := restaurant.NewDirectory(logger)
	if cfg.CatalogPath != "" {
		loaded, err := catalog.Load(cfg.CatalogPath, restaurants, logger)
		if err != nil {
			logger.Error("failed to load catalog", "error", err, "path", cfg.CatalogPath)
			os.Exit(1)
		}
		logger.Info("catalog loaded", "restaurants", loaded)
	}

	store := order.NewStore(nil)
	accounts := account.NewRegistry()
	payments := payment.NewProcessor(logger)
	notifier := notify.NewNotifier(logger)

	var publisher engine.EventPublisher
	if producer != nil {
		publisher = producer
	}
	eng, err := engine.New(store, restaurants, accounts, payments, notifier, publisher, logger)
	if err != nil {
		logger.Error("failed to build engine", "error", err)
		os.Exit(1)
	}

	// HTTP-triggered preparation must not block for a slot's duration.
	handler := web.NewHandler(eng, func(time.Duration) {}, logger)
	mux := handler.Routes()
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(mux, "ordering",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting ordering service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
