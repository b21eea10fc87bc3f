package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gatekeep-net/gatekeep/internal/domain"
)

func TestStore_RoundTrip(t *testing.T) {
	s := New(t.TempDir())

	want := []byte("raw manifest text")
	if err := s.Write(domain.ArtifactManifest, want); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	got, ok := s.Read(domain.ArtifactManifest)
	if !ok {
		t.Fatal("Read() = absent after Write()")
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Read() = %q, want %q", got, want)
	}
}

func TestStore_SlotsAreIndependent(t *testing.T) {
	s := New(t.TempDir())

	if err := s.Write(domain.ArtifactManifest, []byte("manifest")); err != nil {
		t.Fatalf("Write(manifest) error: %v", err)
	}
	if err := s.Write(domain.ArtifactModel, []byte("model")); err != nil {
		t.Fatalf("Write(model) error: %v", err)
	}

	m, _ := s.Read(domain.ArtifactManifest)
	b, _ := s.Read(domain.ArtifactModel)
	if bytes.Equal(m, b) {
		t.Error("slots returned identical content")
	}
}

func TestStore_ReadMissingIsAbsent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "never-created"))

	if _, ok := s.Read(domain.ArtifactModel); ok {
		t.Error("Read() = present for missing slot")
	}
}

func TestStore_WriteOverwrites(t *testing.T) {
	s := New(t.TempDir())

	if err := s.Write(domain.ArtifactModel, []byte("old")); err != nil {
		t.Fatalf("first Write() error: %v", err)
	}
	if err := s.Write(domain.ArtifactModel, []byte("new")); err != nil {
		t.Fatalf("second Write() error: %v", err)
	}

	got, _ := s.Read(domain.ArtifactModel)
	if string(got) != "new" {
		t.Errorf("Read() = %q, want %q", got, "new")
	}
}

func TestStore_CreatesDirOnWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	s := New(dir)

	if err := s.Write(domain.ArtifactManifest, []byte("x")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("cache dir not created: %v", err)
	}
}

func TestStore_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	if err := s.Write(domain.ArtifactModel, []byte("data")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}
}
