// Package cache persists the two pipeline artifacts — manifest source and
// model binary — under a single per-installation directory. The store has
// no knowledge of content semantics: each slot holds whatever bytes were
// last validated, with no header and no cache-format versioning.
package cache

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gatekeep-net/gatekeep/internal/domain"
	"github.com/gatekeep-net/gatekeep/internal/infra/metrics"
)

// Slot file names are fixed. Artifacts are overwritten when a newer one
// is validated and read at startup only as a fallback source.
const (
	manifestFile = "manifest.json"
	modelFile    = "model.bin"
)

// Store implements domain.ArtifactCache on the local filesystem.
type Store struct {
	dir string
}

// New creates a Store rooted at dir. The directory is created lazily on
// first write.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the cache root.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(kind domain.ArtifactKind) string {
	switch kind {
	case domain.ArtifactManifest:
		return filepath.Join(s.dir, manifestFile)
	case domain.ArtifactModel:
		return filepath.Join(s.dir, modelFile)
	default:
		return filepath.Join(s.dir, fmt.Sprintf("artifact-%d", kind))
	}
}

// Read returns the cached bytes for kind. Missing files and I/O errors
// both come back as absent rather than failing the caller.
func (s *Store) Read(kind domain.ArtifactKind) ([]byte, bool) {
	data, err := os.ReadFile(s.path(kind))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[cache] read %s: %v", kind, err)
		}
		return nil, false
	}
	return data, true
}

// Write overwrites the slot for kind. The write goes to a temp file in
// the same directory and is renamed into place so a crash never leaves
// a half-written artifact behind.
func (s *Store) Write(kind domain.ArtifactKind, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		metrics.CacheWriteFailures.WithLabelValues(kind.String()).Inc()
		return fmt.Errorf("create cache dir: %w", err)
	}

	dst := s.path(kind)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		metrics.CacheWriteFailures.WithLabelValues(kind.String()).Inc()
		return fmt.Errorf("write %s: %w", kind, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		metrics.CacheWriteFailures.WithLabelValues(kind.String()).Inc()
		return fmt.Errorf("commit %s: %w", kind, err)
	}
	return nil
}
