// Package manifest obtains versioned model descriptors from one of the
// configured sources: a release-hosting API or a direct manifest URL.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gatekeep-net/gatekeep/internal/domain"
	"github.com/gatekeep-net/gatekeep/internal/infra/metrics"
)

// UserAgent identifies every outbound request this pipeline makes.
const UserAgent = "Gatekeep/0.1.0"

// releasesAPIBase is the release-hosting API root. Overridable for tests.
const releasesAPIBase = "https://api.github.com"

// Resolver implements domain.ManifestSource.
type Resolver struct {
	cfg     domain.SourceConfig
	client  *http.Client
	apiBase string
}

// NewResolver creates a Resolver for the given source configuration.
func NewResolver(cfg domain.SourceConfig) *Resolver {
	return &Resolver{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		apiBase: releasesAPIBase,
	}
}

// SetAPIBase overrides the release API root (for testing).
func (r *Resolver) SetAPIBase(base string) { r.apiBase = base }

// Configured reports whether the selected source has enough
// configuration to attempt a fetch.
func (r *Resolver) Configured() bool {
	if r.cfg.UseReleases {
		return r.cfg.Repo != ""
	}
	return r.cfg.ManifestURL != ""
}

// FetchManifest obtains and parses the manifest from the selected
// source. The raw source bytes are returned alongside so the caller can
// persist them verbatim.
func (r *Resolver) FetchManifest(ctx context.Context) (*domain.Manifest, []byte, error) {
	source := "direct"
	if r.cfg.UseReleases {
		source = "release"
	}

	var raw []byte
	var err error
	if r.cfg.UseReleases {
		raw, err = r.fetchReleaseAsset(ctx)
	} else {
		raw, err = r.get(ctx, r.cfg.ManifestURL)
	}
	if err != nil {
		metrics.ManifestFetches.WithLabelValues(source, "error").Inc()
		return nil, nil, err
	}

	m, err := Parse(raw)
	if err != nil {
		metrics.ManifestFetches.WithLabelValues(source, "parse_error").Inc()
		return nil, nil, err
	}

	metrics.ManifestFetches.WithLabelValues(source, "ok").Inc()
	return m, raw, nil
}

// FetchModel downloads the model binary at url.
func (r *Resolver) FetchModel(ctx context.Context, url string) ([]byte, error) {
	data, err := r.get(ctx, url)
	if err != nil {
		metrics.ModelFetches.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.ModelFetches.WithLabelValues("ok").Inc()
	return data, nil
}

// ─── Release-Hosted Fetch ───────────────────────────────────────────────────

// release mirrors the releases API response shape: an assets array of
// objects with a name and a direct download URL.
type release struct {
	TagName string `json:"tag_name"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// fetchReleaseAsset locates the configured manifest asset in the
// configured release and downloads it. Missing release, missing asset
// list, and missing matching asset are each reported distinctly.
func (r *Resolver) fetchReleaseAsset(ctx context.Context) ([]byte, error) {
	owner, repo, err := splitRepo(r.cfg.Repo)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", r.apiBase, owner, repo)
	if tag := r.cfg.ReleaseTag; tag != "" {
		url = fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", r.apiBase, owner, repo, tag)
	}

	body, err := r.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReleaseNotFound, err)
	}

	var rel release
	if err := json.Unmarshal(body, &rel); err != nil {
		return nil, fmt.Errorf("%w: parse release JSON: %v", domain.ErrReleaseNotFound, err)
	}
	if len(rel.Assets) == 0 {
		return nil, fmt.Errorf("%w (release %s)", domain.ErrNoAssets, rel.TagName)
	}

	for _, asset := range rel.Assets {
		if strings.EqualFold(asset.Name, r.cfg.AssetName) {
			return r.get(ctx, asset.BrowserDownloadURL)
		}
	}
	return nil, fmt.Errorf("%w: %q (release %s)", domain.ErrAssetNotFound, r.cfg.AssetName, rel.TagName)
}

// splitRepo validates an "owner/repo"-shaped identifier. Anything other
// than exactly one separator with both parts present fails immediately
// with a format error.
func splitRepo(s string) (owner, repo string, err error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", domain.ErrBadRepoFormat, s)
	}
	return parts[0], parts[1], nil
}

// ─── HTTP ───────────────────────────────────────────────────────────────────

// get performs a user-agent-identified GET and returns the body.
func (r *Resolver) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: HTTP %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
