package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kirillkom/complaint-desk/internal/adapters/stubapi"
	"github.com/kirillkom/complaint-desk/internal/config"
	"github.com/kirillkom/complaint-desk/internal/observability/logging"
	"github.com/kirillkom/complaint-desk/internal/observability/metrics"
	"github.com/kirillkom/complaint-desk/internal/observability/tracing"
)

const serviceName = "complaint-stub-api"

func main() {
	_ = config.LoadDotEnv()
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := tracing.Setup(ctx, tracing.Config{
		ServiceName: serviceName,
		Endpoint:    cfg.OTELEndpoint,
		Insecure:    cfg.OTELInsecure,
	}, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	serverMetrics := metrics.NewHTTPServerMetrics(serviceName)
	router := stubapi.NewRouter(stubapi.NewStore(nil), stubapi.Options{
		Secret:        []byte(cfg.StubJWTSecret),
		MaxImages:     cfg.MaxImages,
		MaxImageBytes: cfg.MaxImageBytes,
		OnImagesUploaded: func(count int) {
			serverMetrics.RecordUploadedImages(serviceName, count)
		},
		Logger: logger,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", serverMetrics.Handler())
	mux.Handle("/", serverMetrics.Middleware(serviceName, otelhttp.NewHandler(router.Handler(), serviceName)))

	server := &http.Server{
		Addr:              ":" + cfg.StubAPIPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("stub_api_listening", "port", cfg.StubAPIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("stub_api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("stub_api_shutdown_failed", "error", err)
	}
}
