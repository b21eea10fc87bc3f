package loader

import (
	"sync/atomic"

	"github.com/gatekeep-net/gatekeep/internal/domain"
	"github.com/gatekeep-net/gatekeep/internal/infra/metrics"
)

// State holds the orchestrator's observable phase and last error. It is
// owned by the Loader and read by any number of observers. Each field is
// updated atomically on its own; readers must tolerate torn reads across
// the (status, error) pair — they are not one transaction.
type State struct {
	status  atomic.Int32
	lastErr atomic.Pointer[string]
}

// NewState returns a State in the uninitialised phase with no error.
func NewState() *State {
	return &State{}
}

// Status returns the current pipeline phase.
func (s *State) Status() domain.Status {
	return domain.Status(s.status.Load())
}

// LastError returns the most recent failure message, or "" when none is
// recorded. Stale errors deliberately persist through some success
// paths; see setError/clearError call sites in the loader.
func (s *State) LastError() string {
	if p := s.lastErr.Load(); p != nil {
		return *p
	}
	return ""
}

func (s *State) setStatus(st domain.Status) {
	s.status.Store(int32(st))
	metrics.PipelineStatus.Set(float64(st))
}

func (s *State) setError(msg string) {
	s.lastErr.Store(&msg)
}

func (s *State) clearError() {
	s.lastErr.Store(nil)
}
