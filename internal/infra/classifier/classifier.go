// Package classifier loads validated model blobs into an inference-capable
// object and answers single-message classification queries. The concrete
// inference engine sits behind the Backend interface, keeping the pipeline
// engine-agnostic; tests use MockBackend.
package classifier

import (
	"fmt"
	"log"
	"sync"

	"github.com/gatekeep-net/gatekeep/internal/domain"
)

// ─── Backend Interface ──────────────────────────────────────────────────────

// Backend is the low-level model loading interface over the third-party
// inference engine.
type Backend interface {
	// LoadModel compiles the opaque model blob into a usable handle.
	LoadModel(model []byte) (ModelHandle, error)
	Close()
}

// ModelHandle represents a loaded model in memory.
type ModelHandle interface {
	// Predict runs one inference call and returns the predicted label
	// plus the per-category confidence vector.
	Predict(channel int64, message string) (label string, scores []float32, err error)

	// Labels returns the label→vector-index mapping derived from the
	// model's own metadata, or nil when the model carries none.
	Labels() map[string]int

	Close()
}

// ─── Classifier ─────────────────────────────────────────────────────────────

// Classifier wraps a Backend and holds at most one loaded model.
type Classifier struct {
	mu      sync.Mutex
	backend Backend
	handle  ModelHandle
	labels  map[string]int
}

// New creates a Classifier over the given backend. No model is loaded
// until Initialize.
func New(backend Backend) *Classifier {
	return &Classifier{backend: backend}
}

// Factory returns the constructor the load orchestrator uses to turn
// validated model bytes into a live classifier.
func Factory(backend Backend) func(model []byte) (domain.MessageClassifier, error) {
	return func(model []byte) (domain.MessageClassifier, error) {
		c := New(backend)
		if err := c.Initialize(model); err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Initialize replaces any previously loaded inference state. Prior
// resources are released before the new blob is loaded; a failed load
// therefore leaves the classifier uninitialized, not on the old model.
func (c *Classifier) Initialize(model []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle != nil {
		c.handle.Close()
		c.handle = nil
		c.labels = nil
	}

	handle, err := c.backend.LoadModel(model)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	c.handle = handle
	c.labels = handle.Labels()
	return nil
}

// Classify runs one inference call. It never fails: when inference
// cannot run at all it answers ("UNKNOWN", 0).
func (c *Classifier) Classify(channel int64, message string) domain.ClassificationResult {
	c.mu.Lock()
	handle := c.handle
	labels := c.labels
	c.mu.Unlock()

	if handle == nil {
		return domain.ClassificationResult{Label: domain.UnknownLabel, Confidence: 0}
	}

	label, scores, err := handle.Predict(channel, message)
	if err != nil {
		log.Printf("[classifier] inference failed: %v", err)
		return domain.ClassificationResult{Label: domain.UnknownLabel, Confidence: 0}
	}

	return domain.ClassificationResult{
		Label:      label,
		Confidence: confidenceFor(label, scores, labels),
	}
}

// confidenceFor resolves the confidence for the predicted label: the
// score at its mapped index when the model metadata provided a mapping,
// otherwise the maximum of the confidence vector.
func confidenceFor(label string, scores []float32, labels map[string]int) float64 {
	if labels != nil {
		if idx, ok := labels[label]; ok && idx >= 0 && idx < len(scores) {
			return float64(scores[idx])
		}
	}
	var best float32
	for _, s := range scores {
		if s > best {
			best = s
		}
	}
	return float64(best)
}

// Close releases the loaded model, if any.
func (c *Classifier) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != nil {
		c.handle.Close()
		c.handle = nil
		c.labels = nil
	}
}
