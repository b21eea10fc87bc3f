package host

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/gatekeep-net/gatekeep/internal/app/filter"
	"github.com/gatekeep-net/gatekeep/internal/app/loader"
	"github.com/gatekeep-net/gatekeep/internal/health"
	"github.com/gatekeep-net/gatekeep/internal/infra/cache"
	"github.com/gatekeep-net/gatekeep/internal/infra/classifier"
	"github.com/gatekeep-net/gatekeep/internal/infra/manifest"
	_ "github.com/gatekeep-net/gatekeep/internal/infra/metrics" // Register Prometheus metrics
	"github.com/gatekeep-net/gatekeep/internal/infra/sqlite"
	"github.com/gatekeep-net/gatekeep/internal/infra/watch"
)

// Version is the embedding application version recorded with each load.
const Version = "0.1.0"

// Host is the assembled Gatekeep runtime the embedding application
// holds on to.
type Host struct {
	Config Config
	DB     *sqlite.DB
	Filter *filter.Service
	Health *health.Checker

	watcher *watch.Watcher
	cancel  context.CancelFunc
}

// New assembles a Host from the on-disk configuration. A nil backend
// selects the built-in keyword classifier.
func New(backend classifier.Backend) (*Host, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg, backend)
}

// NewWithConfig assembles a Host with the given configuration.
func NewWithConfig(cfg Config, backend classifier.Backend) (*Host, error) {
	db, err := sqlite.Open(gatekeepHome())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if backend == nil {
		fmt.Fprintf(os.Stderr, "WARNING: no inference backend linked, using keyword classifier\n")
		backend = classifier.NewMockBackend()
	}

	srcCfg := cfg.SourceConfig()
	l := loader.New(
		srcCfg,
		manifest.NewResolver(srcCfg),
		cache.New(cfg.Cache.Dir),
		classifier.Factory(backend),
	)

	installID, err := loadInstallID(db)
	if err != nil {
		log.Printf("[host] install id: %v", err)
	}

	svc := filter.NewService(l, db, filter.Options{
		AppVersion:      Version,
		InstallID:       installID,
		ReportThreshold: cfg.Filter.ReportThreshold,
		ReportFlagged:   cfg.Filter.ReportFlagged,
	})
	if err := svc.RefreshRules(); err != nil {
		log.Printf("[host] load rules: %v", err)
	}

	h := &Host{
		Config: cfg,
		DB:     db,
		Filter: svc,
		Health: health.NewChecker(db, cfg.Cache.Dir, svc.Status),
	}
	return h, nil
}

// Run performs the initial model load and starts the background
// services: health checks and, when a local override is configured, the
// override file watcher. It returns once the initial load settles.
func (h *Host) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel

	go h.Health.Run(ctx)

	if path := h.Config.Sources.LocalOverride; path != "" {
		w, err := watch.New(path)
		if err != nil {
			log.Printf("[host] watch override: %v", err)
		} else {
			h.watcher = w
			go h.watchOverride(ctx, w)
		}
	}

	h.Filter.Reload(ctx)
	return nil
}

// watchOverride reloads the pipeline whenever the override file settles
// after a change.
func (h *Host) watchOverride(ctx context.Context, w *watch.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-w.Changes():
			if !ok {
				return
			}
			log.Printf("[host] override changed, reloading")
			h.Filter.Reload(ctx)
		}
	}
}

// Close shuts down all host resources.
func (h *Host) Close() {
	if h.cancel != nil {
		h.cancel()
	}
	if h.watcher != nil {
		_ = h.watcher.Close()
	}
	if h.Filter != nil {
		h.Filter.Close()
	}
	if h.DB != nil {
		_ = h.DB.Close()
	}
}

// loadInstallID returns the stable per-installation identifier,
// creating it on first use.
func loadInstallID(db *sqlite.DB) (string, error) {
	id, err := db.GetSetting("install_id")
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := db.SetSetting("install_id", id); err != nil {
		return "", err
	}
	return id, nil
}
