package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apkrank/apk/config"
	"github.com/apkrank/apk/internal/domain"
	"github.com/apkrank/apk/internal/infrastructure/cache"
	"github.com/apkrank/apk/internal/infrastructure/catalogfile"
	"github.com/apkrank/apk/internal/infrastructure/systembolaget"
	"github.com/apkrank/apk/internal/usecase"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	log := newLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rank(ctx, cfg, afero.NewOsFs(), os.Stdout, log); err != nil {
		log.WithError(err).Error("apk failed")
		return 1
	}
	return 0
}

// rank acquires the catalog, computes every metric and writes the report to out
func rank(ctx context.Context, cfg *config.Config, fsys afero.Fs, out io.Writer, log logrus.FieldLogger) error {
	loc, err := cfg.Catalog.TimeLocation()
	if err != nil {
		return err
	}

	store := catalogfile.NewStore(fsys, cfg.Catalog.TimestampLayout, loc)
	client := systembolaget.NewClient(systembolaget.Config{
		URL:               cfg.Catalog.URL,
		UserAgent:         cfg.Fetch.UserAgent,
		Timeout:           cfg.Fetch.Timeout,
		MaxAttempts:       cfg.Fetch.MaxAttempts,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		Burst:             cfg.Fetch.Burst,
	}, log)

	provider := usecase.NewCatalogProvider(
		client,
		store,
		cache.NewMemoryCache(),
		usecase.ProviderConfig{
			MaxAge:     cfg.Catalog.MaxAge,
			AllowStale: cfg.Catalog.AllowStale,
		},
		log,
	)

	snapshot, err := provider.Acquire(ctx, cfg.Catalog.Path)
	if err != nil {
		return err
	}

	computation, err := usecase.NewMetricCalculator(log, nil).Compute(snapshot)
	if err != nil {
		logValidation(log, err)
	}

	if !computation.Reused {
		if err := provider.Save(ctx, cfg.Catalog.Path, snapshot); err != nil {
			log.WithError(err).WithField("path", cfg.Catalog.Path).Warn("failed to save annotated catalog")
		}
	}

	reporter := usecase.NewReporter(usecase.ReporterConfig{
		Precision:      cfg.Report.Precision,
		ProductURLBase: cfg.Report.ProductURLBase,
	})
	return reporter.Write(out, usecase.Rank(computation.Entries, cfg.Report.Count))
}

// logValidation logs one warning per rejected record
func logValidation(log logrus.FieldLogger, err error) {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}

	for _, e := range errs {
		var verr *domain.ValidationError
		if errors.As(e, &verr) {
			log.WithFields(logrus.Fields{
				"record": verr.RecordID,
				"field":  verr.Field,
				"value":  verr.Value,
			}).Warn(verr.Reason)
			continue
		}
		log.WithError(e).Warn("record rejected")
	}
}

func newLogger(cfg config.LogConfig, out io.Writer) *logrus.Logger {
	log := logrus.New()
	if cfg.Format == "json" {
		log.Formatter = &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "severity",
				logrus.FieldKeyMsg:   "message",
			},
			TimestampFormat: time.RFC3339Nano,
		}
	} else {
		log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	}
	log.Out = out

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
