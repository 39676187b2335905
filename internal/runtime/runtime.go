package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/rzbill/cmdlog/internal/archive"
	cfgpkg "github.com/rzbill/cmdlog/internal/config"
	"github.com/rzbill/cmdlog/internal/logstore"
	pebblestore "github.com/rzbill/cmdlog/internal/storage/pebble"
	"github.com/rzbill/cmdlog/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	Config       cfgpkg.Config
	Logger       log.Logger
	StoreMetrics logstore.MetricsHook
	DBMetrics    pebblestore.MetricsHook
}

// Runtime owns the command log store and, when enabled, the eviction archive
// and the Pebble database under it.
type Runtime struct {
	store   *logstore.Store
	db      *pebblestore.DB
	archive *archive.Archive
	config  cfgpkg.Config
	logger  log.Logger
}

// Open builds the archive (if enabled) and then the store that feeds it.
func Open(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger(log.WithOutput(log.NullOutput{}))
	}
	rt := &Runtime{config: opts.Config, logger: logger}

	var onEvict logstore.EvictionHook
	if opts.Config.ArchiveEnabled {
		dataDir := opts.Config.DataDir
		if dataDir == "" {
			dataDir = cfgpkg.DefaultDataDir()
		}
		fsync, err := pebblestore.ParseFsyncMode(opts.Config.Fsync)
		if err != nil {
			return nil, err
		}
		db, err := pebblestore.Open(pebblestore.Options{DataDir: dataDir, Fsync: fsync, Metrics: opts.DBMetrics})
		if err != nil {
			return nil, fmt.Errorf("open archive db: %w", err)
		}
		arc, err := archive.Open(db, archive.Options{
			MaxEntries: opts.Config.ArchiveMaxEntries,
			Logger:     logger.WithComponent("archive"),
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("open archive: %w", err)
		}
		rt.db, rt.archive, onEvict = db, arc, arc
		logger.Info("archive enabled", log.Str("data_dir", dataDir))
	}

	rt.store = logstore.New(logstore.Options{
		Capacity: opts.Config.Capacity,
		Metrics:  opts.StoreMetrics,
		OnEvict:  onEvict,
		Logger:   logger.WithComponent("logstore"),
	})
	return rt, nil
}

// Close tears the store down (flushing its entries to the archive) and then
// closes the database.
func (r *Runtime) Close() error {
	var errs []error
	if r.store != nil {
		errs = append(errs, r.store.Close())
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
		r.db = nil
	}
	return errors.Join(errs...)
}

// CheckHealth fails once the store is closed or the archive database is unreadable.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if _, err := r.store.TotalLength(ctx); err != nil {
		return err
	}
	if r.archive == nil {
		return nil
	}
	if r.db == nil {
		return errors.New("archive db not open")
	}
	return r.db.Check()
}

// Store returns the command log.
func (r *Runtime) Store() *logstore.Store { return r.store }

// Archive returns the eviction archive, or nil when disabled.
func (r *Runtime) Archive() *archive.Archive { return r.archive }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
