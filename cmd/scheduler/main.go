package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/config"
	"github.com/example/room-scheduler/internal/exchange"
	httptransport "github.com/example/room-scheduler/internal/http"
	"github.com/example/room-scheduler/internal/logging"
	"github.com/example/room-scheduler/internal/persistence/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		slog.Error("failed to configure logging", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("scheduler exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	manager := newManager(cfg, logger)

	archive, err := openArchive(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if archive != nil {
		defer func() {
			if cerr := archive.Close(); cerr != nil {
				logger.Error("failed to close archive", "error", cerr)
			}
		}()
	}

	if err := restore(ctx, manager, cfg, archive, logger); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           newHandler(cfg, manager, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("scheduler API listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shutdown http: %w", err)
		}
		return nil
	})
	serveErr := g.Wait()

	if cfg.SaveOnExit {
		saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := persist(saveCtx, manager, cfg, archive, logger); err != nil {
			return errors.Join(serveErr, err)
		}
	}
	return serveErr
}

func newManager(cfg config.Config, logger *slog.Logger) *application.ScheduleManager {
	rooms := application.NewRoomRegistry()
	slots := application.NewSlotStore(rooms, cfg.ConflictPolicy)
	return application.NewScheduleManager(rooms, slots,
		application.WithLogger(logger),
		application.WithWindow(cfg.WindowStart, cfg.WindowEnd),
		application.WithWorkingHours(cfg.DayStart, cfg.DayEnd),
	)
}

func newHandler(cfg config.Config, manager *application.ScheduleManager, logger *slog.Logger) http.Handler {
	var limiter *httptransport.IPRateLimiter
	if cfg.RateLimitPerSec > 0 {
		limiter = httptransport.NewIPRateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	}

	var exportMiddleware []func(http.Handler) http.Handler
	if cfg.ExportCacheTTL > 0 {
		store := httptransport.NewResponseCache(cfg.ExportCacheTTL)
		exportMiddleware = append(exportMiddleware, httptransport.Cache(store, cfg.ExportCacheTTL, manager.Revision))
	}

	return httptransport.NewRouter(httptransport.RouterConfig{
		Rooms:            httptransport.NewRoomHandler(manager, logger),
		Slots:            httptransport.NewSlotHandler(manager, logger),
		Recurrences:      httptransport.NewRecurrenceHandler(manager, logger),
		Exports:          httptransport.NewExportHandler(manager, logger),
		ExportMiddleware: exportMiddleware,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.RateLimit(limiter, logger),
		},
	})
}

// openArchive returns nil when no archive DSN is configured.
func openArchive(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sqlite.Archive, error) {
	if cfg.ArchiveDSN == "" {
		return nil, nil
	}
	archive, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.ArchiveDSN), sqlite.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return archive, nil
}

// restore loads the last archived snapshot. Without one it falls back to the
// rooms file followed by the slots file. Missing files are skipped.
func restore(ctx context.Context, manager *application.ScheduleManager, cfg config.Config, archive *sqlite.Archive, logger *slog.Logger) error {
	if archive != nil {
		empty, err := archive.Empty(ctx)
		if err != nil {
			return fmt.Errorf("inspect archive: %w", err)
		}
		if !empty {
			if _, err := manager.ImportRooms(ctx, archive); err != nil {
				return fmt.Errorf("restore rooms from archive: %w", err)
			}
			if len(manager.ListRooms(ctx)) > 0 {
				if _, err := manager.ImportSlots(ctx, archive); err != nil {
					return fmt.Errorf("restore slots from archive: %w", err)
				}
			}
			logger.Info("state restored from archive", "revision", manager.Revision())
			return nil
		}
	}

	if src, ok, err := fileSource(cfg.RoomsFile); err != nil {
		return err
	} else if ok {
		if _, err := manager.ImportRooms(ctx, src); err != nil {
			return fmt.Errorf("load rooms file: %w", err)
		}
	}
	if src, ok, err := fileSource(cfg.SlotsFile); err != nil {
		return err
	} else if ok && len(manager.ListRooms(ctx)) > 0 {
		if _, err := manager.ImportSlots(ctx, src); err != nil {
			return fmt.Errorf("load slots file: %w", err)
		}
	}
	return nil
}

func fileSource(path string) (*exchange.FileSource, bool, error) {
	if path == "" {
		return nil, false, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	src, err := exchange.NewFileSource(path)
	if err != nil {
		return nil, false, fmt.Errorf("open %s: %w", path, err)
	}
	return src, true, nil
}

// persist writes the current state to the archive and to the configured
// files. Every target is attempted even when an earlier one fails.
func persist(ctx context.Context, manager *application.ScheduleManager, cfg config.Config, archive *sqlite.Archive, logger *slog.Logger) error {
	var errs []error
	if archive != nil {
		if err := archive.SaveSnapshot(ctx, manager.Snapshot(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("save archive: %w", err))
		}
	}

	writer := exchange.FileWriter{}
	if cfg.RoomsFile != "" {
		if err := writeRooms(ctx, manager, writer, cfg.RoomsFile); err != nil {
			errs = append(errs, err)
		}
	}
	if cfg.SlotsFile != "" {
		codec, err := exchange.FormatFor(cfg.SlotsFile)
		if err == nil {
			err = manager.ExportToFile(ctx, writer, cfg.SlotsFile, false, codec, application.SearchCriteria{}, application.Ascending, nil)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("save slots file: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Info("state saved", "revision", manager.Revision())
	return nil
}

func writeRooms(ctx context.Context, manager *application.ScheduleManager, writer exchange.FileWriter, path string) error {
	codec, err := exchange.FormatFor(path)
	if err != nil {
		return fmt.Errorf("save rooms file: %w", err)
	}
	data, err := manager.ExportRooms(ctx, codec, application.RoomQuery{}, nil)
	if err != nil {
		return fmt.Errorf("save rooms file: %w", err)
	}
	if err := writer.WriteAll(path, data, false); err != nil {
		return fmt.Errorf("save rooms file: %w", err)
	}
	return nil
}
