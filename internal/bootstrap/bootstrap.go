package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	hclog "github.com/hashicorp/go-hclog"

	lethalityinadapter "retort/internal/modules/lethality/adapter/in"
	lethalityoutadapter "retort/internal/modules/lethality/adapter/out"
	lethalitydomain "retort/internal/modules/lethality/domain"
	lethalityout "retort/internal/modules/lethality/port/out"
	lethalityservice "retort/internal/modules/lethality/service"
	lethalityusecase "retort/internal/modules/lethality/usecase"
	processinadapter "retort/internal/modules/process/adapter/in"
	processoutadapter "retort/internal/modules/process/adapter/out"
	processout "retort/internal/modules/process/port/out"
	processservice "retort/internal/modules/process/service"
	processusecase "retort/internal/modules/process/usecase"
	reportinadapter "retort/internal/modules/report/adapter/in"
	reportoutadapter "retort/internal/modules/report/adapter/out"
	reportout "retort/internal/modules/report/port/out"
	reportservice "retort/internal/modules/report/service"
	reportusecase "retort/internal/modules/report/usecase"
	"retort/internal/platform/clock"
	"retort/internal/platform/config"
	"retort/internal/platform/id"
	"retort/internal/platform/logging"
)

type App struct {
	SessionCLI   processinadapter.CLIHandler
	LethalityCLI lethalityinadapter.CLIHandler
	ReportCLI    reportinadapter.CLIHandler
	Inbox        *processinadapter.InboxWatcher
	Logger       hclog.Logger

	closers []func() error
}

// Close releases the store and cache connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := logging.New(cfg.LogLevel, os.Stderr)
	clk := clock.SystemClock{}
	ids := id.UUID{}
	app := &App{Logger: logger}

	store, err := newSessionStore(ctx, cfg, ids)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, store.Close)

	sessionSvc := processservice.NewSessionService(
		clk,
		store,
		processoutadapter.NewVaultRecordStore(cfg.VaultPath),
		[]processout.ReadingDecoder{processoutadapter.CSVDecoder{}, processoutadapter.JSONDecoder{}},
		processservice.Policy{Operators: cfg.Operators, MaxReadings: cfg.MaxReadings},
		logger.Named("process"),
	)
	sessionUC := processusecase.NewInteractor(sessionSvc)

	cache := newResultCache(ctx, cfg, logger)
	if closer, ok := cache.(interface{ Close() error }); ok {
		app.closers = append(app.closers, closer.Close)
	}
	lethalitySvc := lethalityservice.NewLethalityService(
		lethalitydomain.Parameters{
			ReferenceTemperature: cfg.Engine.ReferenceTemperature,
			ZValue:               cfg.Engine.ZValue,
			ActivationThreshold:  cfg.Engine.ActivationThreshold,
			IntervalMinutes:      cfg.Engine.IntervalMinutes,
		},
		lethalitydomain.HoldParameters{
			MinimumTemperature:     cfg.Hold.MinimumTemperature,
			MinimumDurationMinutes: cfg.Hold.MinimumDurationMinutes,
		},
		cache,
		logger.Named("lethality"),
	)
	lethalityUC := lethalityusecase.NewInteractor(lethalitySvc, sessionUC)

	sink, err := newSink(ctx, cfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	reportLogger := logger.Named("report")
	reportSvc := reportservice.NewReportService(reportservice.Options{
		Renderers: []reportout.Renderer{
			reportoutadapter.NewPDFRenderer(cfg.Facility),
			reportoutadapter.CSVRenderer{},
			reportoutadapter.PromRenderer{},
		},
		Manifests: reportoutadapter.NewFileManifestStore(cfg.VaultPath),
		Host:      reportoutadapter.NewGRPCHost(reportLogger.Named("plugin")),
		Sink:      sink,
		Inspector: reportoutadapter.PDFInspector{},
		KeyPrefix: cfg.Archive.S3Prefix,
		Logger:    reportLogger,
	})
	reportUC := reportusecase.NewInteractor(reportSvc, sessionUC, lethalityUC, clk)

	app.SessionCLI = processinadapter.NewCLIHandler(sessionUC)
	app.LethalityCLI = lethalityinadapter.NewCLIHandler(lethalityUC)
	app.ReportCLI = reportinadapter.NewCLIHandler(reportUC)
	app.Inbox = processinadapter.NewInboxWatcher(filepath.Join(cfg.VaultPath, "inbox"), sessionUC, logger.Named("watch"))
	return app, nil
}

func newSessionStore(ctx context.Context, cfg config.Config, ids id.Generator) (*processoutadapter.SQLSessionStore, error) {
	switch cfg.Store.Driver {
	case "postgres":
		store, err := processoutadapter.NewPostgresSessionStore(ctx, cfg.Store.DSN, ids)
		if err != nil {
			return nil, fmt.Errorf("new postgres session store: %w", err)
		}
		return store, nil
	default:
		store, err := processoutadapter.NewSQLiteSessionStore(cfg.Store.Path, ids)
		if err != nil {
			return nil, fmt.Errorf("new sqlite session store: %w", err)
		}
		return store, nil
	}
}

// newResultCache falls back to memory when Redis is configured but unreachable.
func newResultCache(ctx context.Context, cfg config.Config, logger hclog.Logger) lethalityout.ResultCache {
	if cfg.Cache.RedisAddr == "" {
		return lethalityoutadapter.NewMemoryResultCache()
	}
	cache := lethalityoutadapter.NewRedisResultCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	if err := cache.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, using in-process cache", "addr", cfg.Cache.RedisAddr, "error", err)
		_ = cache.Close()
		return lethalityoutadapter.NewMemoryResultCache()
	}
	return cache
}

func newSink(ctx context.Context, cfg config.Config) (reportout.Sink, error) {
	if cfg.Archive.S3Bucket == "" {
		return reportoutadapter.NewFileSink(cfg.VaultPath), nil
	}
	sink, err := reportoutadapter.NewS3Sink(ctx, reportoutadapter.S3SinkConfig{
		Bucket:   cfg.Archive.S3Bucket,
		Region:   cfg.Archive.S3Region,
		Endpoint: cfg.Archive.S3Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("new s3 sink: %w", err)
	}
	return sink, nil
}
