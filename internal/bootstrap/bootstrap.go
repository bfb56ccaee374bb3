package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/complaint-desk/internal/config"
	"github.com/kirillkom/complaint-desk/internal/core/ports"
	"github.com/kirillkom/complaint-desk/internal/core/usecase"
	"github.com/kirillkom/complaint-desk/internal/infrastructure/api"
	"github.com/kirillkom/complaint-desk/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/complaint-desk/internal/infrastructure/preview"
	"github.com/kirillkom/complaint-desk/internal/infrastructure/queue/nats"
	"github.com/kirillkom/complaint-desk/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/complaint-desk/internal/infrastructure/resilience"
	"github.com/kirillkom/complaint-desk/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/complaint-desk/internal/infrastructure/storage/redis"
	"github.com/kirillkom/complaint-desk/internal/localization"
	"github.com/kirillkom/complaint-desk/internal/observability/metrics"
	"github.com/kirillkom/complaint-desk/internal/observability/tracing"
)

const serviceName = "complaintctl"

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Catalog *localization.Catalog
	Metrics *metrics.ClientMetrics

	Complaints  *api.ComplaintGateway
	Evidence    *api.EvidenceGateway
	Credentials *usecase.CredentialStore
	Receipts    ports.ReceiptStore

	SubmissionUC *usecase.SubmissionUseCase
	DetailsUC    *usecase.DetailsUseCase
	ExportUC     *usecase.ExportUseCase

	previews *preview.Registry
	closeFns []func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	catalog, err := localization.New(cfg.Language)
	if err != nil {
		return nil, fmt.Errorf("load message catalog: %w", err)
	}
	app.Catalog = catalog

	shutdownTracing := tracing.Setup(ctx, tracing.Config{
		ServiceName: serviceName,
		Endpoint:    cfg.OTELEndpoint,
		Insecure:    cfg.OTELInsecure,
	}, logger)
	app.onClose(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	})

	app.Metrics = metrics.NewClientMetrics(serviceName)

	guardCfg := resilience.DefaultConfig()
	guardCfg.BreakerEnabled = cfg.BreakerEnabled
	guardCfg.RateLimit = rate.Limit(cfg.APIRateLimitRPS)
	guardCfg.RateBurst = cfg.APIRateLimitBurst
	guard := resilience.NewGuard(guardCfg, app.Metrics.ObserveBreakerState, logger)

	client := api.New(cfg.APIBaseURL, api.Options{
		Timeout:  time.Duration(cfg.HTTPTimeoutSeconds) * time.Second,
		Guard:    guard,
		Observer: app.Metrics,
		Logger:   logger,
	})

	sessionStorage, err := app.sessionStorage(ctx)
	if err != nil {
		return nil, err
	}
	app.Credentials = usecase.NewCredentialStore(api.NewAuthClient(client), sessionStorage)
	client.WithCredentials(app.Credentials)

	app.Complaints = api.NewComplaintGateway(client)
	app.Evidence = api.NewEvidenceGateway(client)

	receipts, err := app.receiptStore(ctx)
	if err != nil {
		return nil, err
	}
	app.Receipts = receipts

	var events ports.EventPublisher
	if cfg.NATSURL != "" {
		publisher, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{Guard: guard, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		app.onClose(publisher.Close)
		events = publisher
	}

	app.SubmissionUC = usecase.NewSubmissionUseCase(app.Complaints, app.Evidence, usecase.SubmissionOptions{
		Receipts:   receipts,
		Events:     events,
		Observer:   app.Metrics,
		ResetDelay: time.Duration(cfg.FormResetDelayMS) * time.Millisecond,
		Logger:     logger,
	})
	app.DetailsUC = usecase.NewDetailsUseCase(app.Complaints, app.Evidence)
	app.ExportUC = usecase.NewExportUseCase(app.Complaints, xlsx.NewExporter(), 0)

	ok = true
	return app, nil
}

func (a *App) sessionStorage(ctx context.Context) (ports.SessionStorage, error) {
	switch a.Config.SessionBackend {
	case "redis":
		store, err := redis.New(ctx, redis.Options{
			Addr:     a.Config.RedisAddr,
			Password: a.Config.RedisPassword,
			DB:       a.Config.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("init redis session storage: %w", err)
		}
		a.onClose(func() { _ = store.Close() })
		return store, nil
	case "", "file":
		store, err := localfs.New(a.Config.SessionPath)
		if err != nil {
			return nil, fmt.Errorf("init session storage: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", a.Config.SessionBackend)
	}
}

func (a *App) receiptStore(ctx context.Context) (ports.ReceiptStore, error) {
	if a.Config.ReceiptsPostgresDSN == "" {
		store, err := localfs.New(a.Config.SessionPath)
		if err != nil {
			return nil, fmt.Errorf("init receipt journal: %w", err)
		}
		return localfs.NewReceiptJournal(store), nil
	}

	db, err := postgres.OpenDB(a.Config.ReceiptsPostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	a.onClose(func() { _ = db.Close() })
	repo := postgres.NewReceiptRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, nil
}

// NewComplaintForm returns an empty form whose staging area follows the
// configured limits. The caller closes the form's staging area.
func (a *App) NewComplaintForm() (*usecase.ComplaintForm, error) {
	if a.previews == nil {
		previews, err := preview.New(a.Config.PreviewDir)
		if err != nil {
			return nil, fmt.Errorf("init previews: %w", err)
		}
		a.previews = previews
		a.onClose(func() { _ = previews.Close() })
	}
	staging := usecase.NewStagingArea(usecase.StagingConfig{
		MaxImages:    a.Config.MaxImages,
		MaxFileBytes: a.Config.MaxImageBytes,
	}, a.previews)
	return usecase.NewComplaintForm(staging), nil
}

func (a *App) NewDirectory(onChange func(usecase.DirectoryView)) *usecase.Directory {
	return usecase.NewDirectory(a.Complaints, usecase.DirectoryOptions{
		PageSize:        a.Config.PageSize,
		MinSearchLength: a.Config.SearchMinLength,
		SearchDebounce:  time.Duration(a.Config.SearchDebounceMS) * time.Millisecond,
		OnChange:        onChange,
		Logger:          a.Logger,
	})
}

// ServeMetrics exposes the client metrics on METRICS_ADDR until Close. It
// is a no-op when no address is configured.
func (a *App) ServeMetrics() {
	if a.Config.MetricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	server := &http.Server{
		Addr:              a.Config.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.Logger.Info("metrics_listening", "addr", a.Config.MetricsAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("metrics_server_failed", "error", err)
		}
	}()
	a.onClose(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})
}

func (a *App) onClose(fn func()) {
	a.closeFns = append(a.closeFns, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
