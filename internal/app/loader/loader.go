// Package loader sequences manifest resolution, caching, integrity
// verification, and classifier activation into a single "acquire and
// activate a model" operation.
package loader

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gatekeep-net/gatekeep/internal/domain"
	"github.com/gatekeep-net/gatekeep/internal/infra/integrity"
	"github.com/gatekeep-net/gatekeep/internal/infra/manifest"
	"github.com/gatekeep-net/gatekeep/internal/infra/metrics"
)

// ClassifierFactory turns validated model bytes into a live classifier.
type ClassifierFactory func(model []byte) (domain.MessageClassifier, error)

// Loader is the top-level state machine. Load is invoked at most once
// concurrently: callers serialize or deduplicate, the loader does not.
type Loader struct {
	cfg           domain.SourceConfig
	source        domain.ManifestSource
	cache         domain.ArtifactCache
	newClassifier ClassifierFactory
	state         *State
}

// New wires a Loader from its collaborators.
func New(cfg domain.SourceConfig, source domain.ManifestSource, cache domain.ArtifactCache, factory ClassifierFactory) *Loader {
	return &Loader{
		cfg:           cfg,
		source:        source,
		cache:         cache,
		newClassifier: factory,
		state:         NewState(),
	}
}

// State exposes the observable (status, last error) pair.
func (l *Loader) State() *State { return l.state }

// Status returns the current pipeline phase.
func (l *Loader) Status() domain.Status { return l.state.Status() }

// LastError returns the most recent failure message, or "".
func (l *Loader) LastError() string { return l.state.LastError() }

// Load acquires and activates a model. It returns nil on any terminal
// failure — failures surface through Status and LastError, never as a
// fault. The call blocks; run it on a background goroutine.
func (l *Loader) Load(ctx context.Context) *domain.LoadedModel {
	l.state.setStatus(domain.StatusPreparing)

	// Local override bypasses all network and cache logic. Any failure
	// here falls through to the standard path rather than aborting.
	if l.cfg.LocalOverride != "" {
		if m := l.loadOverride(l.cfg.LocalOverride); m != nil {
			metrics.LoadsTotal.WithLabelValues("override").Inc()
			metrics.ModelVersion.Set(float64(m.Version))
			return m
		}
	}

	// No source configured is a normal terminal state pending user
	// configuration, not a failure.
	if !l.source.Configured() {
		l.state.setError(domain.ErrNoSource.Error() + "; set a release repository or a manifest URL")
		l.state.setStatus(domain.StatusWaiting)
		metrics.LoadsTotal.WithLabelValues("waiting").Inc()
		return nil
	}

	l.state.setStatus(domain.StatusDownloadingManifest)
	remote, raw := l.fetchManifest(ctx)
	cached := l.cachedManifest()

	// Remote is trusted unconditionally over cache, even when its
	// version is not newer than the cached one.
	manifest := remote
	if manifest == nil {
		manifest = cached
	}
	if manifest == nil {
		l.state.setError(domain.ErrManifestMissing.Error())
		l.state.setStatus(domain.StatusUninitialised)
		metrics.LoadsTotal.WithLabelValues("failed").Inc()
		return nil
	}

	// Persist-on-success: the freshly fetched source bytes overwrite
	// the cached manifest regardless of how later steps fare.
	if remote != nil {
		if err := l.cache.Write(domain.ArtifactManifest, raw); err != nil {
			log.Printf("[loader] cache manifest: %v", err)
		}
	}

	model, ok := l.acquireModel(ctx, manifest)
	if !ok {
		metrics.LoadsTotal.WithLabelValues("failed").Inc()
		return nil
	}

	l.state.setStatus(domain.StatusInitialising)

	// Always re-write, even when the bytes came from cache, to
	// normalize freshness. Failures do not abort the load.
	if err := l.cache.Write(domain.ArtifactModel, model); err != nil {
		log.Printf("[loader] cache model: %v", err)
	}

	cls, err := l.newClassifier(model)
	if err != nil {
		log.Printf("[loader] initialize classifier: %v", err)
		l.state.setError("initialize classifier: " + err.Error())
		l.state.setStatus(domain.StatusUninitialised)
		metrics.LoadsTotal.WithLabelValues("failed").Inc()
		return nil
	}

	l.state.setStatus(domain.StatusInitialised)
	metrics.LoadsTotal.WithLabelValues("loaded").Inc()
	metrics.ModelVersion.Set(float64(manifest.Version))
	return &domain.LoadedModel{
		Version:    manifest.Version,
		ReportURL:  manifest.ReportURL,
		Classifier: cls,
	}
}

// loadOverride activates a user-supplied local model file under the
// sentinel version. Note LastError is not cleared on this success path;
// observers depend on stale errors persisting here.
func (l *Loader) loadOverride(path string) *domain.LoadedModel {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[loader] read override %s: %v", path, err)
			l.state.setError(fmt.Sprintf("read override %s: %v", path, err))
		}
		return nil
	}

	// Synthesized sentinel manifest: version 0, digest of the file
	// itself. Never persisted as a known release.
	digest := integrity.Digest(data)

	l.state.setStatus(domain.StatusInitialising)
	cls, err := l.newClassifier(data)
	if err != nil {
		log.Printf("[loader] initialize override classifier: %v", err)
		l.state.setError("initialize override classifier: " + err.Error())
		return nil
	}

	l.state.setStatus(domain.StatusInitialised)
	log.Printf("[loader] local override active: %s (sha256 %x…)", path, digest[:6])
	return &domain.LoadedModel{Version: domain.SentinelVersion, Classifier: cls}
}

// fetchManifest attempts the remote fetch. Failures are absorbed here:
// logged, recorded in LastError, and converted to an absent result.
// LastError is cleared specifically on a successful manifest fetch —
// and only there.
func (l *Loader) fetchManifest(ctx context.Context) (*domain.Manifest, []byte) {
	m, raw, err := l.source.FetchManifest(ctx)
	if err != nil {
		log.Printf("[loader] fetch manifest: %v", err)
		l.state.setError("fetch manifest: " + err.Error())
		return nil, nil
	}
	l.state.clearError()
	return m, raw
}

// cachedManifest loads and parses the manifest previously persisted by
// this pipeline, independent of the remote fetch outcome.
func (l *Loader) cachedManifest() *domain.Manifest {
	raw, ok := l.cache.Read(domain.ArtifactManifest)
	if !ok {
		return nil
	}
	m, err := manifest.Parse(raw)
	if err != nil {
		log.Printf("[loader] cached manifest unusable: %v", err)
		return nil
	}
	metrics.CacheHits.WithLabelValues(domain.ArtifactManifest.String()).Inc()
	return m
}

// acquireModel returns validated model bytes for manifest, preferring
// the cached artifact when its digest already matches.
func (l *Loader) acquireModel(ctx context.Context, manifest *domain.Manifest) ([]byte, bool) {
	if data, ok := l.cache.Read(domain.ArtifactModel); ok && integrity.Matches(data, manifest.ModelDigest) {
		metrics.CacheHits.WithLabelValues(domain.ArtifactModel.String()).Inc()
		return data, true
	}

	l.state.setStatus(domain.StatusDownloadingModel)
	data := l.fetchModel(ctx, manifest.ModelURL)
	if data == nil {
		// Cache was already checked above — no second fallback.
		l.state.setStatus(domain.StatusUninitialised)
		return nil, false
	}

	verified, ok := integrity.VerifyWithRetry(data, manifest.ModelDigest, func() []byte {
		return l.fetchModel(ctx, manifest.ModelURL)
	})
	if !ok {
		// Fatal for this load attempt: no fallback to a stale cached
		// model once the manifest promised different bytes.
		l.state.setError(fmt.Sprintf("%s after %d attempts", domain.ErrDigestMismatch, integrity.RefetchBudget+1))
		l.state.setStatus(domain.StatusUninitialised)
		return nil, false
	}
	return verified, true
}

// fetchModel downloads the model binary, absorbing failures into a nil
// result plus LastError.
func (l *Loader) fetchModel(ctx context.Context, url string) []byte {
	data, err := l.source.FetchModel(ctx, url)
	if err != nil {
		log.Printf("[loader] fetch model: %v", err)
		l.state.setError("fetch model: " + err.Error())
		return nil
	}
	return data
}
