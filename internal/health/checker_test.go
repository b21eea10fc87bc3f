package health

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gatekeep-net/gatekeep/internal/domain"
	"github.com/gatekeep-net/gatekeep/internal/infra/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func initialised() domain.Status { return domain.StatusInitialised }

// ─── Checker Tests ──────────────────────────────────────────────────────────

func TestChecker_RunAllHealthy(t *testing.T) {
	c := NewChecker(newTestDB(t), t.TempDir(), initialised)
	c.runAll(context.Background())

	statuses := c.Statuses()
	if len(statuses) != 3 {
		t.Fatalf("Statuses() = %d, want 3", len(statuses))
	}
	for _, s := range statuses {
		if !s.Healthy {
			t.Errorf("check %q should be healthy, got error: %s", s.Name, s.Error)
		}
	}
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true when all checks pass")
	}
}

func TestChecker_IsHealthy_BeforeRun(t *testing.T) {
	c := NewChecker(newTestDB(t), t.TempDir(), initialised)

	// Before any run, there are no statuses — IsHealthy returns true (vacuously)
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true before first run (no statuses)")
	}
}

func TestChecker_CacheDirMissingIsHealthy(t *testing.T) {
	// Nothing cached yet is a normal state
	c := NewChecker(newTestDB(t), filepath.Join(t.TempDir(), "nonexistent"), initialised)
	c.runAll(context.Background())

	for _, s := range c.Statuses() {
		if !s.Healthy {
			t.Errorf("check %q failed: %s", s.Name, s.Error)
		}
	}
}

func TestChecker_CacheDirFileNotDir(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "cache")
	os.WriteFile(cacheDir, []byte("not a dir"), 0o644)

	c := NewChecker(newTestDB(t), cacheDir, initialised)
	c.runAll(context.Background())

	for _, s := range c.Statuses() {
		if s.Name == "cache_dir" && s.Healthy {
			t.Error("cache_dir should fail when path is a file")
		}
	}
}

func TestChecker_PipelineStates(t *testing.T) {
	tests := []struct {
		status  domain.Status
		healthy bool
	}{
		{domain.StatusInitialised, true},
		{domain.StatusWaiting, true},
		{domain.StatusDownloadingModel, true},
		{domain.StatusUninitialised, false},
	}
	for _, tt := range tests {
		c := NewChecker(newTestDB(t), t.TempDir(), func() domain.Status { return tt.status })
		c.runAll(context.Background())

		for _, s := range c.Statuses() {
			if s.Name == "pipeline" && s.Healthy != tt.healthy {
				t.Errorf("pipeline health for %v = %v, want %v", tt.status, s.Healthy, tt.healthy)
			}
		}
	}
}

func TestChecker_FailingCheck(t *testing.T) {
	c := &Checker{
		checks: []Check{
			{
				Name: "always_fail",
				CheckFn: func(ctx context.Context) error {
					return os.ErrPermission
				},
			},
		},
	}

	c.runAll(context.Background())

	statuses := c.Statuses()
	if statuses[0].Healthy {
		t.Error("always_fail check should not be healthy")
	}
	if statuses[0].Error == "" {
		t.Error("error message should be populated")
	}
}

func TestChecker_StatusesCopy(t *testing.T) {
	c := NewChecker(newTestDB(t), t.TempDir(), initialised)
	c.runAll(context.Background())

	s1 := c.Statuses()
	s2 := c.Statuses()

	// Verify it's a copy, not the same slice
	if len(s1) > 0 {
		s1[0].Healthy = false
		if !s2[0].Healthy {
			t.Error("Statuses() should return a copy, not a reference")
		}
	}
}
