package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gatekeep-net/gatekeep/internal/domain"
)

func TestFlag_DeliversJSON(t *testing.T) {
	var got Report
	var ua, ct string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		ct = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode report: %v", err)
		}
	}))
	defer srv.Close()

	rep := New(srv.URL, "install-1")
	rep.Flag(context.Background(), 42, 7, domain.Verdict{
		Category:   domain.CategorySpam,
		Confidence: 0.93,
		Source:     domain.VerdictByModel,
	})

	if got.ID == "" {
		t.Error("report ID empty, want generated uuid")
	}
	if got.Channel != 42 || got.Category != domain.CategorySpam || got.ModelVersion != 7 {
		t.Errorf("report = %+v", got)
	}
	if got.InstallID != "install-1" {
		t.Errorf("InstallID = %q", got.InstallID)
	}
	if ua != userAgent {
		t.Errorf("User-Agent = %q, want %q", ua, userAgent)
	}
	if ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestFlag_EmptyEndpointIsNoop(t *testing.T) {
	rep := New("", "install-1")
	// Must not panic or attempt any network call.
	rep.Flag(context.Background(), 1, 0, domain.Verdict{Category: domain.CategoryAbuse})
}

func TestFlag_ServerErrorIsSoft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	rep := New(srv.URL, "")
	// Failure is logged, not returned.
	rep.Flag(context.Background(), 1, 1, domain.Verdict{Category: domain.CategoryScam})
}
