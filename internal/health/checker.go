// Package health provides periodic self-checks for an embedded
// Gatekeep instance.
package health

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gatekeep-net/gatekeep/internal/domain"
	"github.com/gatekeep-net/gatekeep/internal/infra/sqlite"
)

// Check defines a single health check.
type Check struct {
	Name    string
	CheckFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// StatusFn reports the filter pipeline's current phase.
type StatusFn func() domain.Status

// Checker runs periodic health checks.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
}

// NewChecker creates a health checker covering the database, the
// artifact cache directory, and the filter pipeline.
func NewChecker(db *sqlite.DB, cacheDir string, pipeline StatusFn) *Checker {
	return &Checker{
		interval: 60 * time.Second,
		checks: []Check{
			{
				Name: "sqlite",
				CheckFn: func(ctx context.Context) error {
					if db == nil {
						return fmt.Errorf("database not open")
					}
					return db.Ping()
				},
			},
			{
				Name: "cache_dir",
				CheckFn: func(ctx context.Context) error {
					return checkCacheDir(cacheDir)
				},
			},
			{
				Name: "pipeline",
				CheckFn: func(ctx context.Context) error {
					switch s := pipeline(); s {
					case domain.StatusInitialised, domain.StatusWaiting:
						return nil
					case domain.StatusUninitialised:
						return fmt.Errorf("no model loaded")
					default:
						// Transitional phases are healthy while in progress.
						return nil
					}
				},
			},
		},
	}
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.runAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runAll(ctx)
		}
	}
}

func (c *Checker) runAll(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Healthy = false
			s.Error = err.Error()
		} else {
			s.Healthy = true
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

func checkCacheDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Nothing cached yet
		}
		return fmt.Errorf("check cache dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cache path %s is not a directory", dir)
	}
	return nil
}
