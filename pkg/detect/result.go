// Package detect defines the detection result contract shared by all sensing
// strategies and the weighted fusion detector that turns per-modality results
// into a single gated punch decision.
package detect

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Metrics is an insertion-ordered string-keyed mapping of analysis details.
// Values are numbers or strings. Iteration and JSON encoding follow insertion
// order so that logs and recordings are deterministic.
type Metrics struct {
	keys   []string
	values map[string]any
}

// NewMetrics creates an empty metrics mapping.
func NewMetrics() *Metrics {
	return &Metrics{values: make(map[string]any)}
}

// Set stores a value under key, preserving the position of an existing key.
func (m *Metrics) Set(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key.
func (m *Metrics) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Metrics) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m *Metrics) Len() int { return len(m.keys) }

// Merge copies every entry of other into m under the given key prefix.
func (m *Metrics) Merge(prefix string, other *Metrics) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		m.Set(prefix+k, other.values[k])
	}
}

// MarshalJSON encodes the mapping as a JSON object in insertion order.
func (m *Metrics) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("detect: marshal metric %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Result is the per-tick output of a strategy. It is produced fresh on every
// update and consumed read-only by the fusion detector; nothing mutates a
// Result after it is published.
type Result struct {
	// Score is the punch likelihood in [0, 1].
	Score float64
	// Confident reports whether the strategy considers the score decisive
	// on its own.
	Confident bool
	// Metrics carries the analysis breakdown. May be nil for a zero result.
	Metrics *Metrics
	// Timestamp is the unix time in seconds at which the result was computed.
	// Zero means the strategy has never produced a result.
	Timestamp float64
}

// ZeroResult returns the result a strategy reports before it has computed
// anything: zero score, not confident, empty metrics.
func ZeroResult() Result {
	return Result{Metrics: NewMetrics()}
}
