package features

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"sync"
	"time"
)

// ModelWeights is the serialized form of the offline-trained logistic
// model. Weights must match the feature vector column order.
type ModelWeights struct {
	Bias      float64   `json:"bias"`
	Weights   []float64 `json:"weights"`
	TrainedAt string    `json:"trained_at"`
	Samples   int       `json:"samples"`
}

// Model scores feature vectors with a logistic model trained offline.
// Training happens outside the bot; the bot only loads the weights file
// and produces an auxiliary probability.
type Model struct {
	mu      sync.RWMutex
	path    string
	weights *ModelWeights
	loaded  time.Time
}

// NewModel creates a model bound to a weights file. A missing file is
// not an error; the model just reports unavailable.
func NewModel(path string) *Model {
	m := &Model{path: path}
	if err := m.Reload(); err != nil {
		log.Printf("[ml] weights not loaded: %v", err)
	}
	return m
}

// Reload re-reads the weights file
func (m *Model) Reload() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("read weights: %w", err)
	}
	var w ModelWeights
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("parse weights: %w", err)
	}

	m.mu.Lock()
	m.weights = &w
	m.loaded = time.Now()
	m.mu.Unlock()
	log.Printf("[ml] loaded %d weights trained at %s", len(w.Weights), w.TrainedAt)
	return nil
}

// Available reports whether a usable weights file is loaded
func (m *Model) Available() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.weights != nil && len(m.weights.Weights) > 0
}

// Predict returns the probability of a favorable move for the vector.
// Returns 0.5 and false when no model is loaded or the dimensions differ.
func (m *Model) Predict(v *Vector) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.weights == nil || v == nil {
		return 0.5, false
	}
	x := v.AsSlice()
	if len(x) != len(m.weights.Weights) {
		return 0.5, false
	}
	z := m.weights.Bias
	for i, w := range m.weights.Weights {
		z += w * x[i]
	}
	return 1 / (1 + math.Exp(-z)), true
}

// Status describes the model for the status API
func (m *Model) Status() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status := map[string]interface{}{
		"available": m.weights != nil && len(m.weights.Weights) > 0,
		"path":      m.path,
	}
	if m.weights != nil {
		status["weights"] = len(m.weights.Weights)
		status["trained_at"] = m.weights.TrainedAt
		status["samples"] = m.weights.Samples
		status["loaded_at"] = m.loaded.Format(time.RFC3339)
	}
	return status
}
