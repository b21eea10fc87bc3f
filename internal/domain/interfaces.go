package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// ArtifactKind names one of the two cache slots.
type ArtifactKind int

const (
	ArtifactManifest ArtifactKind = iota
	ArtifactModel
)

func (k ArtifactKind) String() string {
	switch k {
	case ArtifactManifest:
		return "manifest"
	case ArtifactModel:
		return "model"
	default:
		return "unknown"
	}
}

// ArtifactCache is durable local byte storage keyed by artifact kind.
// It has no knowledge of content semantics.
type ArtifactCache interface {
	// Read returns the cached bytes for kind, or absent. I/O errors
	// are absences, not failures.
	Read(kind ArtifactKind) ([]byte, bool)

	// Write overwrites the slot for kind. Failures are reported but
	// callers treat them as non-fatal.
	Write(kind ArtifactKind, data []byte) error
}

// ManifestSource obtains a versioned manifest from the configured source
// and fetches model binaries named by it.
type ManifestSource interface {
	// Configured reports whether any remote source is set up.
	Configured() bool

	// FetchManifest returns the parsed manifest plus the raw source
	// bytes that produced it (for cache persistence).
	FetchManifest(ctx context.Context) (*Manifest, []byte, error)

	// FetchModel downloads the model binary at url.
	FetchModel(ctx context.Context, url string) ([]byte, error)
}

// MessageClassifier answers single-message classification queries
// against a loaded model.
type MessageClassifier interface {
	// Classify never fails: an uninitialized or broken classifier
	// answers ("UNKNOWN", 0).
	Classify(channel int64, message string) ClassificationResult

	// Close releases the underlying inference resources.
	Close()
}

// SettingsStore is the host-side persistence the loader's caller uses
// to record known releases.
type SettingsStore interface {
	SetSetting(key, value string) error
	GetSetting(key string) (string, error)
	RecordLoad(version uint32, appVersion string) error
}
