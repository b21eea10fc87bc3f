// Package filter is the host-facing moderation surface: rule filters
// evaluated ahead of the model, category mapping for classifier output,
// and lifecycle management of the active model.
package filter

import (
	"context"
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/gatekeep-net/gatekeep/internal/app/loader"
	"github.com/gatekeep-net/gatekeep/internal/domain"
	"github.com/gatekeep-net/gatekeep/internal/infra/metrics"
	"github.com/gatekeep-net/gatekeep/internal/infra/report"
	"github.com/gatekeep-net/gatekeep/internal/infra/sqlite"
)

// Settings keys persisted per successful non-sentinel load.
const (
	settingModelVersion = "model_version"
	settingAppVersion   = "app_version"
)

// Options tunes a Service beyond its collaborators.
type Options struct {
	// AppVersion is recorded alongside model versions in load history.
	AppVersion string

	// InstallID correlates reports from one installation. Empty
	// disables the field, not reporting.
	InstallID string

	// ReportThreshold is the minimum model confidence for a flagged
	// verdict to be reported. Rule verdicts always qualify.
	ReportThreshold float64

	// ReportFlagged enables delivery to the manifest's report endpoint.
	ReportFlagged bool
}

// Service combines user rule filters with the model classifier and owns
// the active model. Check is safe for concurrent use; Reload calls are
// deduplicated internally.
type Service struct {
	loader *loader.Loader
	db     *sqlite.DB
	opts   Options

	model    atomic.Pointer[domain.LoadedModel]
	reporter atomic.Pointer[report.Reporter]
	group    singleflight.Group

	mu    sync.RWMutex
	rules []compiledRule
}

// NewService wires a Service. Call RefreshRules before first use if the
// database already holds rules.
func NewService(l *loader.Loader, db *sqlite.DB, opts Options) *Service {
	return &Service{loader: l, db: db, opts: opts}
}

// Status returns the current pipeline phase.
func (s *Service) Status() domain.Status { return s.loader.Status() }

// LastError returns the most recent pipeline failure message, or "".
func (s *Service) LastError() string { return s.loader.LastError() }

// Model returns the active model, or nil before the first successful
// load.
func (s *Service) Model() *domain.LoadedModel { return s.model.Load() }

// Reload runs the acquisition pipeline and swaps in the resulting model.
// Concurrent callers share a single in-flight load. Returns the active
// model after the attempt, which may be nil.
func (s *Service) Reload(ctx context.Context) *domain.LoadedModel {
	v, _, _ := s.group.Do("load", func() (any, error) {
		m := s.loader.Load(ctx)
		if m == nil {
			return (*domain.LoadedModel)(nil), nil
		}
		s.activate(m)
		return m, nil
	})
	if m := v.(*domain.LoadedModel); m != nil {
		return m
	}
	return s.model.Load()
}

// activate swaps m in as the active model, releases the previous one,
// and records the load when it represents a real release.
func (s *Service) activate(m *domain.LoadedModel) {
	if old := s.model.Swap(m); old != nil {
		old.Release()
	}
	s.reporter.Store(report.New(m.ReportURL, s.opts.InstallID))

	if m.Sentinel() || s.db == nil {
		return
	}
	s.persistVersions(m.Version)
}

// persistVersions updates the last-known (model, app) version pair and
// appends a load-history row when either changed.
func (s *Service) persistVersions(version uint32) {
	mv := strconv.FormatUint(uint64(version), 10)

	prevModel, err := s.db.GetSetting(settingModelVersion)
	if err != nil {
		log.Printf("[filter] read last model version: %v", err)
	}
	prevApp, _ := s.db.GetSetting(settingAppVersion)
	if prevModel == mv && prevApp == s.opts.AppVersion {
		return
	}

	if err := s.db.SetSetting(settingModelVersion, mv); err != nil {
		log.Printf("[filter] persist model version: %v", err)
	}
	if err := s.db.SetSetting(settingAppVersion, s.opts.AppVersion); err != nil {
		log.Printf("[filter] persist app version: %v", err)
	}
	if err := s.db.RecordLoad(version, s.opts.AppVersion); err != nil {
		log.Printf("[filter] record load: %v", err)
	}
}

// RefreshRules reloads rule filters from the database. Uncompilable
// rules are skipped; the returned error names them.
func (s *Service) RefreshRules() error {
	if s.db == nil {
		return nil
	}
	stored, err := s.db.ListRules()
	if err != nil {
		return err
	}
	rules, compileErr := compileRules(stored)

	s.mu.Lock()
	s.rules = rules
	s.mu.Unlock()

	log.Printf("[filter] %d rule(s) active", len(rules))
	return compileErr
}

// Check classifies one message. Rule filters win over the model; with
// no model loaded the verdict degrades to an unknown, unflagged result.
func (s *Service) Check(ctx context.Context, channel int64, message string) domain.Verdict {
	s.mu.RLock()
	rules := s.rules
	s.mu.RUnlock()

	for i := range rules {
		if rules[i].matches(message) {
			v := domain.Verdict{
				Category:   rules[i].category,
				Confidence: 1,
				Source:     domain.VerdictByRule,
				Rule:       rules[i].pattern,
			}
			s.finish(ctx, channel, v)
			return v
		}
	}

	res := domain.ClassificationResult{Label: domain.UnknownLabel}
	if m := s.model.Load(); m != nil {
		res = m.Classifier.Classify(channel, message)
	}

	v := domain.Verdict{
		Category:   categoryFor(res.Label),
		Confidence: res.Confidence,
		Source:     domain.VerdictByModel,
		Raw:        res,
	}
	s.finish(ctx, channel, v)
	return v
}

// finish records verdict metrics and dispatches reporting off the
// filter path.
func (s *Service) finish(ctx context.Context, channel int64, v domain.Verdict) {
	metrics.ClassificationsTotal.WithLabelValues(string(v.Category)).Inc()

	if !v.Flagged() || !s.opts.ReportFlagged {
		return
	}
	if v.Source == domain.VerdictByModel && v.Confidence < s.opts.ReportThreshold {
		return
	}

	r := s.reporter.Load()
	if r == nil {
		return
	}
	var version uint32
	if m := s.model.Load(); m != nil {
		version = m.Version
	}
	go r.Flag(context.WithoutCancel(ctx), channel, version, v)
}

// Close releases the active model.
func (s *Service) Close() {
	if m := s.model.Swap(nil); m != nil {
		m.Release()
	}
}
