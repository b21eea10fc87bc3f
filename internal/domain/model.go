// Package domain holds the pure types shared across the pipeline.
// No infrastructure imports — infra implements, app depends.
package domain

// DigestSize is the size of a model digest in bytes (SHA-256).
const DigestSize = 32

// SentinelVersion marks a locally-overridden model. Loads that carry it
// must never be persisted as a known release.
const SentinelVersion uint32 = 0

// Manifest describes one published model release: where to fetch the
// binary, what digest it must have, and where flagged messages go.
type Manifest struct {
	Version     uint32
	ModelURL    string
	ModelDigest [DigestSize]byte
	ReportURL   string
}

// LoadedModel is the activated unit produced by one successful load.
// The caller owns it exclusively and releases the previous instance
// when a new load completes.
type LoadedModel struct {
	Version    uint32
	ReportURL  string
	Classifier MessageClassifier
}

// Sentinel reports whether this model came from a local override.
func (m *LoadedModel) Sentinel() bool { return m.Version == SentinelVersion }

// Release closes the classifier held by this model.
func (m *LoadedModel) Release() {
	if m != nil && m.Classifier != nil {
		m.Classifier.Close()
	}
}

// ─── Pipeline Status ────────────────────────────────────────────────────────

// Status is the orchestrator's current phase. Mutated only by the
// orchestrator; read by any number of observers.
type Status int32

const (
	StatusUninitialised Status = iota
	StatusPreparing
	StatusDownloadingManifest
	StatusDownloadingModel
	StatusInitialising
	StatusInitialised
	// StatusWaiting means no source is configured. This is a normal
	// terminal state pending user configuration, not a failure.
	StatusWaiting
)

func (s Status) String() string {
	switch s {
	case StatusUninitialised:
		return "uninitialised"
	case StatusPreparing:
		return "preparing"
	case StatusDownloadingManifest:
		return "downloading manifest"
	case StatusDownloadingModel:
		return "downloading model"
	case StatusInitialising:
		return "initialising"
	case StatusInitialised:
		return "initialised"
	case StatusWaiting:
		return "waiting for configuration"
	default:
		return "unknown"
	}
}

// ─── Source Configuration ───────────────────────────────────────────────────

// SourceConfig names where a model manifest may come from. Supplied by
// the host configuration layer.
type SourceConfig struct {
	// LocalOverride is a path to a user-supplied model file. When set
	// and readable it bypasses all network and cache logic.
	LocalOverride string

	// Repo is an "owner/repo" release-hosting identifier.
	Repo string

	// ReleaseTag selects a specific release. Empty means latest.
	ReleaseTag string

	// AssetName is the manifest asset to look for in a release,
	// matched case-insensitively.
	AssetName string

	// ManifestURL is a direct manifest URL.
	ManifestURL string

	// UseReleases selects the release-hosted path over the direct URL.
	UseReleases bool
}
