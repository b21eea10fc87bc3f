package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Source configuration errors
	ErrNoSource      = errors.New("no model source configured")
	ErrBadRepoFormat = errors.New("repository must be in owner/repo form")

	// Release-hosted fetch errors. Each anomaly in the release API
	// shape is reported distinctly, not folded into "no manifest".
	ErrReleaseNotFound = errors.New("release not found")
	ErrNoAssets        = errors.New("release has no assets")
	ErrAssetNotFound   = errors.New("manifest asset not found in release")

	// Manifest errors. Parse failures are a distinct kind from network
	// failures so logging can tell them apart.
	ErrManifestParse   = errors.New("manifest is not parsable")
	ErrBadDigestLength = errors.New("model_hash must decode to exactly 32 bytes")
	ErrManifestMissing = errors.New("manifest unavailable from remote and cache")

	// Integrity errors
	ErrDigestMismatch = errors.New("model digest mismatch")

	// Classifier errors
	ErrModelClosed = errors.New("model handle is closed")

	// Filter errors
	ErrRuleNotFound   = errors.New("filter rule not found")
	ErrBadRulePattern = errors.New("filter rule pattern does not compile")
)
