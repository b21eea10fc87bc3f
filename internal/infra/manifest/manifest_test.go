package manifest

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gatekeep-net/gatekeep/internal/domain"
)

func b64Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// ─── Parse ──────────────────────────────────────────────────────────────────

func TestParse_Valid(t *testing.T) {
	hash := b64Digest([]byte("model"))
	src := fmt.Sprintf(`{"version": 7, "model_url": "https://example.com/m.bin", "model_hash": %q, "report_url": "https://example.com/report"}`, hash)

	m, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if m.Version != 7 {
		t.Errorf("Version = %d, want 7", m.Version)
	}
	if m.ModelURL != "https://example.com/m.bin" {
		t.Errorf("ModelURL = %q", m.ModelURL)
	}
	if m.ReportURL != "https://example.com/report" {
		t.Errorf("ReportURL = %q", m.ReportURL)
	}
	want := sha256.Sum256([]byte("model"))
	if m.ModelDigest != want {
		t.Errorf("ModelDigest = %x, want %x", m.ModelDigest, want)
	}
}

func TestParse_CaseInsensitiveFieldsAndExtras(t *testing.T) {
	src := fmt.Sprintf(`{"VERSION": 3, "Model_Url": "u", "MODEL_HASH": %q, "Report_URL": "r", "future_field": true}`, b64Digest([]byte("x")))

	m, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if m.Version != 3 || m.ModelURL != "u" || m.ReportURL != "r" {
		t.Errorf("Parse() = %+v", m)
	}
}

func TestParse_DigestLengthEnforced(t *testing.T) {
	short := base64.StdEncoding.EncodeToString([]byte("too short"))
	src := fmt.Sprintf(`{"version": 1, "model_url": "u", "model_hash": %q, "report_url": "r"}`, short)

	_, err := Parse([]byte(src))
	if !errors.Is(err, domain.ErrBadDigestLength) {
		t.Errorf("Parse() error = %v, want ErrBadDigestLength", err)
	}
}

func TestParse_BadBase64(t *testing.T) {
	_, err := Parse([]byte(`{"version": 1, "model_url": "u", "model_hash": "!!!not base64!!!", "report_url": "r"}`))
	if !errors.Is(err, domain.ErrManifestParse) {
		t.Errorf("Parse() error = %v, want ErrManifestParse", err)
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`version = 1`))
	if !errors.Is(err, domain.ErrManifestParse) {
		t.Errorf("Parse() error = %v, want ErrManifestParse", err)
	}
}

// ─── Direct URL fetch ───────────────────────────────────────────────────────

func TestResolver_DirectFetch(t *testing.T) {
	manifestSrc := fmt.Sprintf(`{"version": 5, "model_url": "m", "model_hash": %q, "report_url": "r"}`, b64Digest([]byte("bytes")))

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, manifestSrc)
	}))
	defer srv.Close()

	r := NewResolver(domain.SourceConfig{ManifestURL: srv.URL})
	m, raw, err := r.FetchManifest(context.Background())
	if err != nil {
		t.Fatalf("FetchManifest() error: %v", err)
	}
	if m.Version != 5 {
		t.Errorf("Version = %d, want 5", m.Version)
	}
	if string(raw) != manifestSrc {
		t.Errorf("raw = %q, want the exact source text", raw)
	}
	if gotUA != UserAgent {
		t.Errorf("User-Agent = %q, want %q", gotUA, UserAgent)
	}
}

func TestResolver_DirectFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	r := NewResolver(domain.SourceConfig{ManifestURL: srv.URL})
	if _, _, err := r.FetchManifest(context.Background()); err == nil {
		t.Error("FetchManifest() error = nil, want HTTP error")
	}
}

func TestResolver_Configured(t *testing.T) {
	cases := []struct {
		name string
		cfg  domain.SourceConfig
		want bool
	}{
		{"direct url set", domain.SourceConfig{ManifestURL: "https://x"}, true},
		{"direct url empty", domain.SourceConfig{}, false},
		{"releases with repo", domain.SourceConfig{UseReleases: true, Repo: "a/b"}, true},
		{"releases without repo", domain.SourceConfig{UseReleases: true}, false},
		{"releases selected ignores url", domain.SourceConfig{UseReleases: true, ManifestURL: "https://x"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NewResolver(tc.cfg).Configured(); got != tc.want {
				t.Errorf("Configured() = %v, want %v", got, tc.want)
			}
		})
	}
}

// ─── Release-hosted fetch ───────────────────────────────────────────────────

func releaseServer(t *testing.T, manifestSrc string, assetName string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/download/manifest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, manifestSrc)
	})
	srv := httptest.NewServer(mux)
	mux.HandleFunc("/repos/acme/filter/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"tag_name": "v7",
			"assets": []map[string]string{
				{"name": "filter-rules.txt", "browser_download_url": srv.URL + "/download/other"},
				{"name": assetName, "browser_download_url": srv.URL + "/download/manifest"},
			},
		})
	})
	return srv
}

func TestResolver_ReleaseFetch(t *testing.T) {
	manifestSrc := fmt.Sprintf(`{"version": 9, "model_url": "m", "model_hash": %q, "report_url": "r"}`, b64Digest([]byte("m")))
	srv := releaseServer(t, manifestSrc, "model-manifest.json")
	defer srv.Close()

	r := NewResolver(domain.SourceConfig{
		UseReleases: true,
		Repo:        "acme/filter",
		AssetName:   "Model-Manifest.JSON", // case-insensitive match
	})
	r.SetAPIBase(srv.URL)

	m, _, err := r.FetchManifest(context.Background())
	if err != nil {
		t.Fatalf("FetchManifest() error: %v", err)
	}
	if m.Version != 9 {
		t.Errorf("Version = %d, want 9", m.Version)
	}
}

func TestResolver_ReleaseFetchByTag(t *testing.T) {
	manifestSrc := fmt.Sprintf(`{"version": 2, "model_url": "m", "model_hash": %q, "report_url": "r"}`, b64Digest([]byte("m")))

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/download/manifest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, manifestSrc)
	})
	mux.HandleFunc("/repos/acme/filter/releases/tags/v2.0", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"tag_name": "v2.0",
			"assets": []map[string]string{
				{"name": "manifest.json", "browser_download_url": srv.URL + "/download/manifest"},
			},
		})
	})

	r := NewResolver(domain.SourceConfig{
		UseReleases: true,
		Repo:        "acme/filter",
		ReleaseTag:  "v2.0",
		AssetName:   "manifest.json",
	})
	r.SetAPIBase(srv.URL)

	m, _, err := r.FetchManifest(context.Background())
	if err != nil {
		t.Fatalf("FetchManifest() error: %v", err)
	}
	if m.Version != 2 {
		t.Errorf("Version = %d, want 2", m.Version)
	}
}

func TestResolver_ReleaseMissingAsset(t *testing.T) {
	srv := releaseServer(t, "{}", "something-else.json")
	defer srv.Close()

	r := NewResolver(domain.SourceConfig{
		UseReleases: true,
		Repo:        "acme/filter",
		AssetName:   "manifest.json",
	})
	r.SetAPIBase(srv.URL)

	_, _, err := r.FetchManifest(context.Background())
	if !errors.Is(err, domain.ErrAssetNotFound) {
		t.Errorf("FetchManifest() error = %v, want ErrAssetNotFound", err)
	}
}

func TestResolver_ReleaseEmptyAssets(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/filter/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tag_name": "v1", "assets": []}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := NewResolver(domain.SourceConfig{UseReleases: true, Repo: "acme/filter", AssetName: "m.json"})
	r.SetAPIBase(srv.URL)

	_, _, err := r.FetchManifest(context.Background())
	if !errors.Is(err, domain.ErrNoAssets) {
		t.Errorf("FetchManifest() error = %v, want ErrNoAssets", err)
	}
}

func TestResolver_ReleaseMissing(t *testing.T) {
	mux := http.NewServeMux() // 404 for everything
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := NewResolver(domain.SourceConfig{UseReleases: true, Repo: "acme/filter", AssetName: "m.json"})
	r.SetAPIBase(srv.URL)

	_, _, err := r.FetchManifest(context.Background())
	if !errors.Is(err, domain.ErrReleaseNotFound) {
		t.Errorf("FetchManifest() error = %v, want ErrReleaseNotFound", err)
	}
}

func TestSplitRepo(t *testing.T) {
	cases := []struct {
		in     string
		wantOK bool
	}{
		{"acme/filter", true},
		{"acme", false},
		{"acme/filter/extra", false},
		{"/filter", false},
		{"acme/", false},
		{"", false},
	}
	for _, tc := range cases {
		_, _, err := splitRepo(tc.in)
		if ok := err == nil; ok != tc.wantOK {
			t.Errorf("splitRepo(%q) error = %v, wantOK %v", tc.in, err, tc.wantOK)
		}
		if err != nil && !errors.Is(err, domain.ErrBadRepoFormat) {
			t.Errorf("splitRepo(%q) error = %v, want ErrBadRepoFormat", tc.in, err)
		}
	}
}

// ─── Model fetch ────────────────────────────────────────────────────────────

func TestResolver_FetchModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0x01, 0x02, 0x03})
	}))
	defer srv.Close()

	r := NewResolver(domain.SourceConfig{})
	data, err := r.FetchModel(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchModel() error: %v", err)
	}
	if len(data) != 3 {
		t.Errorf("len(data) = %d, want 3", len(data))
	}
}
