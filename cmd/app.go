package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/csvstore"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/notify"
)

// app holds everything an attendance command works on. Database pools are
// opened lazily by the registered backends and shared between the ledger and
// the gallery source.
type app struct {
	cfg     *config.Config
	loc     *time.Location
	log     *logging.Logger
	metrics *metrics.Recorder
	ledger  *ledger.Ledger
	store   ledger.EventStore
	source  gallery.Source
	gallery *gallery.Holder

	pgPool    *postgres.Pool
	mariaPool *mariadb.Pool
}

// registerBackends makes the ledger backends and gallery sources selectable
// by LEDGER_BACKEND and GALLERY_SOURCE.
func (a *app) registerBackends() {
	database.RegisterLedgerBackend(database.BackendCSV, func(ctx context.Context) (ledger.EventStore, error) {
		return csvstore.Open(a.cfg.Ledger.Path, a.loc)
	})
	database.RegisterLedgerBackend(database.BackendMemory, func(ctx context.Context) (ledger.EventStore, error) {
		return mock.NewMockEventStore(), nil
	})
	database.RegisterLedgerBackend(database.BackendPostgres, func(ctx context.Context) (ledger.EventStore, error) {
		pool, err := a.postgresPool(ctx)
		if err != nil {
			return nil, err
		}
		return postgres.NewEventRepository(pool, a.loc), nil
	})
	database.RegisterLedgerBackend(database.BackendMariaDB, func(ctx context.Context) (ledger.EventStore, error) {
		pool, err := a.mariaDBPool(ctx)
		if err != nil {
			return nil, err
		}
		return mariadb.NewEventRepository(pool, a.loc), nil
	})

	database.RegisterGallerySource(database.BackendFile, func(ctx context.Context) (gallery.Source, error) {
		return gallery.NewFileSource(a.cfg.Gallery.Path), nil
	})
	database.RegisterGallerySource(database.BackendPostgres, func(ctx context.Context) (gallery.Source, error) {
		pool, err := a.postgresPool(ctx)
		if err != nil {
			return nil, err
		}
		return postgres.NewGalleryRepository(pool), nil
	})
	database.RegisterGallerySource(database.BackendMariaDB, func(ctx context.Context) (gallery.Source, error) {
		pool, err := a.mariaDBPool(ctx)
		if err != nil {
			return nil, err
		}
		return mariadb.NewGalleryRepository(pool), nil
	})
}

func (a *app) postgresPool(ctx context.Context) (*postgres.Pool, error) {
	if a.pgPool != nil {
		return a.pgPool, nil
	}
	if a.cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	pool, err := postgres.Open(ctx, &a.cfg.Database)
	if err != nil {
		return nil, err
	}
	a.pgPool = pool
	return pool, nil
}

func (a *app) mariaDBPool(ctx context.Context) (*mariadb.Pool, error) {
	if a.mariaPool != nil {
		return a.mariaPool, nil
	}
	if a.cfg.MariaDB.DSN == "" {
		return nil, errors.New("MARIADB_DSN environment variable is required")
	}
	pool, err := mariadb.Open(ctx, a.cfg.MariaDB.DSN)
	if err != nil {
		return nil, err
	}
	a.mariaPool = pool
	return pool, nil
}

// openApp loads the configuration, opens the ledger and loads the gallery.
// A gallery that cannot be loaded leaves an empty snapshot in place so that
// read-only commands keep working; every face is then unknown.
func openApp(ctx context.Context) (*app, error) {
	cfg := config.Load()

	loc, err := cfg.Attendance.Location()
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", cfg.Attendance.TimeZone, err)
	}

	log, err := logging.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a := &app{cfg: cfg, loc: loc, log: log, metrics: metrics.New()}
	a.registerBackends()

	store, err := database.OpenEventStore(ctx, cfg.Ledger.Backend)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	l, err := ledger.Open(ctx, store, loc)
	if err != nil {
		_ = store.Close()
		a.Close()
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	a.ledger = l
	report := l.LoadReport()
	if report.Skipped > 0 {
		log.Warn("skipped malformed ledger rows", "skipped", report.Skipped, "loaded", report.Loaded)
	}
	a.metrics.SetLedger(l.Len(), report.Skipped)

	source, err := database.OpenGallerySource(ctx, cfg.Gallery.Source)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.source = source
	a.gallery = gallery.NewHolder(gallery.MustNew(nil), source)
	g, err := a.gallery.Reload(ctx)
	a.metrics.ObserveGalleryReload(g.Len(), err)
	if err != nil {
		log.Warn("gallery not loaded, every face will be unknown", "source", cfg.Gallery.Source, "error", err)
	}
	return a, nil
}

// purger returns the ledger backend's purge capability, if it has one.
func (a *app) purger() ledger.Purger {
	p, err := database.AsPurger(a.store)
	if err != nil {
		return nil
	}
	return p
}

// newSession creates a capture session that logs every marked batch and, if
// notifyPath is set, appends it to that file as a JSON line.
func (a *app) newSession(notifyPath string) (*capture.Session, func(), error) {
	notifiers := notify.Multi{notify.NewLogNotifier(a.log)}
	closeFn := func() {}
	if notifyPath != "" {
		f, err := os.OpenFile(notifyPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening notification file: %w", err)
		}
		notifiers = append(notifiers, notify.NewWriterNotifier(f))
		closeFn = func() { _ = f.Close() }
	}

	session := capture.NewSession(
		facematch.NewMatcher(a.cfg.Attendance.MatchThreshold),
		a.ledger,
		a.gallery,
		capture.WithInterval(a.cfg.Attendance.AutoMarkInterval),
		capture.WithNotifier(notifiers),
		capture.WithMetrics(a.metrics),
		capture.WithLogger(a.log.Component("capture")),
	)
	return session, closeFn, nil
}

// Close releases the ledger and any database pools.
func (a *app) Close() {
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			a.log.Warn("closing ledger", "error", err)
		}
	}
	if a.pgPool != nil {
		_ = a.pgPool.Close()
	}
	if a.mariaPool != nil {
		_ = a.mariaPool.Close()
	}
	a.log.Sync()
}
