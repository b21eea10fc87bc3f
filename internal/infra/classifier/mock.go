package classifier

import (
	"fmt"
	"strings"

	"github.com/gatekeep-net/gatekeep/internal/domain"
)

// ─── Mock Backend (for testing and engine-less installs) ────────────────────

// mockLabels is the label table a mock model reports, in vector order.
var mockLabels = []string{"ok", "spam", "abuse", "sexual", "scam"}

// mockKeywords drives the mock's deterministic predictions.
var mockKeywords = map[string][]string{
	"spam":   {"buy now", "free nitro", "subscribe", "click here"},
	"abuse":  {"idiot", "loser", "trash"},
	"sexual": {"nsfw", "lewd"},
	"scam":   {"giveaway", "crypto", "double your"},
}

// MockBackend implements Backend without any real inference engine.
type MockBackend struct {
	// HideLabels makes loaded models report no label table, exercising
	// the max-of-vector confidence fallback.
	HideLabels bool
}

func NewMockBackend() *MockBackend { return &MockBackend{} }

func (m *MockBackend) LoadModel(model []byte) (ModelHandle, error) {
	if len(model) == 0 {
		return nil, fmt.Errorf("empty model blob")
	}
	return &mockModelHandle{hideLabels: m.HideLabels}, nil
}

func (m *MockBackend) Close() {}

// mockModelHandle implements ModelHandle with keyword matching.
type mockModelHandle struct {
	hideLabels bool
	closed     bool
}

func (h *mockModelHandle) Predict(channel int64, message string) (string, []float32, error) {
	if h.closed {
		return "", nil, domain.ErrModelClosed
	}

	lower := strings.ToLower(message)
	label := "ok"
	for _, candidate := range mockLabels[1:] {
		for _, kw := range mockKeywords[candidate] {
			if strings.Contains(lower, kw) {
				label = candidate
				break
			}
		}
		if label != "ok" {
			break
		}
	}

	scores := make([]float32, len(mockLabels))
	for i, l := range mockLabels {
		if l == label {
			scores[i] = 0.92
		} else {
			scores[i] = 0.02
		}
	}
	return label, scores, nil
}

func (h *mockModelHandle) Labels() map[string]int {
	if h.hideLabels {
		return nil
	}
	labels := make(map[string]int, len(mockLabels))
	for i, l := range mockLabels {
		labels[l] = i
	}
	return labels
}

func (h *mockModelHandle) Close() { h.closed = true }
