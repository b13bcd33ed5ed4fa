package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ankityadav/statusboard/internal/checker"
	"github.com/ankityadav/statusboard/internal/config"
	"github.com/ankityadav/statusboard/internal/dashboard"
	"github.com/ankityadav/statusboard/internal/health"
	"github.com/ankityadav/statusboard/internal/incident"
	"github.com/ankityadav/statusboard/internal/metrics"
	"github.com/ankityadav/statusboard/internal/registry"
	"github.com/ankityadav/statusboard/internal/storage"
	"github.com/ankityadav/statusboard/internal/tui"
	"github.com/ankityadav/statusboard/internal/uptime"
)

// app holds the wired components shared by every subcommand.
type app struct {
	cfg        *config.Config
	log        zerolog.Logger
	registry   registry.Registry
	metrics    *metrics.Metrics
	aggregator *health.Aggregator
	db         *storage.Database
	redis      *uptime.RedisBackend
	uptime     *uptime.Store
	incidents  *incident.Repository
	dashboard  *dashboard.Service
	checker    *checker.Checker
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger, onCycle ...func(health.SystemStatus)) (*app, error) {
	a := &app{
		cfg:      cfg,
		log:      log,
		registry: registry.Default(config.ServiceURL),
		metrics:  metrics.New(prometheus.NewRegistry()),
	}

	prober := health.NewProber(
		health.WithTimeout(cfg.Probe.Timeout),
		health.WithUserAgent(cfg.Probe.UserAgent),
		health.WithObserver(a.metrics),
	)
	a.aggregator = health.NewAggregator(prober)

	// Probe history is optional.
	if db, err := openDatabase(cfg.Uptime); err != nil {
		log.Warn().Err(err).Msg("sqlite unavailable, probe history disabled")
	} else {
		a.db = db
	}

	var backend uptime.Backend
	switch cfg.Uptime.Backend {
	case "sqlite":
		if a.db != nil {
			backend = a.db
		} else {
			log.Warn().Msg("uptime history runs in synthetic mode")
		}
	case "redis":
		rb, err := uptime.NewRedisBackend(ctx, uptime.RedisConfig{
			Addr:          cfg.Uptime.RedisAddr,
			Password:      cfg.Uptime.RedisPassword,
			DB:            cfg.Uptime.RedisDB,
			RetentionDays: cfg.Uptime.RetentionDays,
		})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, uptime history runs in synthetic mode")
		} else {
			a.redis = rb
			backend = rb
		}
	case "none":
	}
	a.uptime = uptime.NewStore(backend, log, uptime.WithRetentionDays(cfg.Uptime.RetentionDays))
	log.Info().
		Str("backend", cfg.Uptime.Backend).
		Bool("configured", a.uptime.Configured()).
		Msg("uptime store ready")

	source, err := newIncidentSource(ctx, cfg.Incidents)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.incidents = incident.NewRepository(source, log)

	a.dashboard = dashboard.New(a.registry, a.aggregator, a.uptime, a.incidents)

	opts := []checker.Option{
		checker.WithInterval(cfg.Checker.Interval),
		checker.WithMetrics(a.metrics),
	}
	if a.db != nil {
		opts = append(opts, checker.WithProbeLog(a.db))
	}
	for _, fn := range onCycle {
		opts = append(opts, checker.OnCycle(fn))
	}
	a.checker = checker.New(a.registry, a.aggregator, a.uptime, log, opts...)

	return a, nil
}

func openDatabase(cfg config.UptimeConfig) (*storage.Database, error) {
	path, err := cfg.SQLitePath()
	if err != nil {
		return nil, err
	}
	db, err := storage.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

func newIncidentSource(ctx context.Context, cfg config.IncidentsConfig) (incident.Source, error) {
	switch cfg.Source {
	case "s3":
		src, err := incident.NewS3Source(ctx, incident.S3Config{
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize incident source: %w", err)
		}
		return src, nil
	default:
		return incident.NewDirSource(cfg.Dir), nil
	}
}

// tuiSource exposes the app to the terminal views.
func (a *app) tuiSource() tui.Source {
	src := tui.Source{
		Status:    a.checker,
		Uptime:    a.uptime,
		Incidents: a.incidents,
		Days:      config.DefaultHistoryDays,
	}
	if a.db != nil {
		src.Probes = a.db
	}
	return src
}

func (a *app) Close() error {
	var errs []error
	if a.checker != nil {
		a.checker.Stop()
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
