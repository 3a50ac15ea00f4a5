package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"bookclub/internal/blob"
	"bookclub/internal/config"
	"bookclub/internal/core"
	"bookclub/internal/export"
	"bookclub/internal/metrics"
)

// App holds the wired service for a single command invocation.
type App struct {
	Service  *core.Service
	Exporter *export.Exporter
	Blobs    blob.Store
	Metrics  *metrics.Recorder
	Logger   *slog.Logger

	store    core.PersistentStore
	sinks    []io.Closer
	textfile string
}

// OpenApp builds the storage, blob store, metrics and service described by cfg.
// Logs go to logOut. Spans and audit entries are appended to the configured
// trace and audit files.
func OpenApp(ctx context.Context, cfg config.Config, logOut io.Writer) (*App, error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	store, err := core.OpenPersistentStore(ctx, cfg.Storage, nil)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	rec := metrics.NewRecorder()
	opts := []core.ServiceOption{
		core.WithLogger(logger),
		core.WithMetricsRecorder(rec),
		core.WithBlobStore(blobs),
	}
	var sinks []io.Closer
	if cfg.TraceFile != "" {
		f, err := openAppend(cfg.TraceFile)
		if err != nil {
			closeStore(store)
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		sinks = append(sinks, f)
		opts = append(opts, core.WithTracer(core.NewJSONTracer(f)))
	}
	if cfg.AuditFile != "" {
		f, err := openAppend(cfg.AuditFile)
		if err != nil {
			closeSinks(sinks)
			closeStore(store)
			return nil, fmt.Errorf("open audit file: %w", err)
		}
		sinks = append(sinks, f)
		opts = append(opts, core.WithAuditRecorder(core.NewLogAuditRecorder(slog.New(slog.NewJSONHandler(f, nil)))))
	}
	svc := core.NewService(store, opts...)
	logger.Debug("bookclub ready", "storage", cfg.Storage.Driver, "blob", string(blobs.Driver()))
	return &App{
		Service:  svc,
		Exporter: export.New(store, blobs, export.WithLogger(logger)),
		Blobs:    blobs,
		Metrics:  rec,
		Logger:   logger,
		store:    store,
		sinks:    sinks,
		textfile: cfg.MetricsTextfile,
	}, nil
}

// Close flushes metrics to the configured textfile and releases the store.
func (a *App) Close() error {
	var errs []error
	if a.textfile != "" {
		if err := a.Metrics.WriteToTextfile(a.textfile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics textfile: %w", err))
		}
	}
	if err := closeSinks(a.sinks); err != nil {
		errs = append(errs, fmt.Errorf("close trace and audit files: %w", err))
	}
	if err := closeStore(a.store); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	return errors.Join(errs...)
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
}

func closeSinks(sinks []io.Closer) error {
	var errs []error
	for _, c := range sinks {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func closeStore(store core.PersistentStore) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
