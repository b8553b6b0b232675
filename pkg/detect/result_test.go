package detect

import (
	"encoding/json"
	"testing"
)

func TestMetrics_InsertionOrder(t *testing.T) {
	m := NewMetrics()
	m.Set("magnitude", 36.53)
	m.Set("motion", 26.72)
	m.Set("axis", "y")
	m.Set("magnitude", 40.0) // overwrite keeps position

	keys := m.Keys()
	want := []string{"magnitude", "motion", "axis"}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d", len(keys), len(want))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key %d: got %q, want %q", i, keys[i], want[i])
		}
	}

	v, ok := m.Get("magnitude")
	if !ok || v != 40.0 {
		t.Errorf("overwritten value: got %v, want 40", v)
	}
}

func TestMetrics_MarshalJSONOrdered(t *testing.T) {
	m := NewMetrics()
	m.Set("b", 2)
	m.Set("a", 1)
	m.Set("c", "x")

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"b":2,"a":1,"c":"x"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestMetrics_Merge(t *testing.T) {
	a := NewMetrics()
	a.Set("score", 0.5)

	b := NewMetrics()
	b.Set("magnitude", 12.0)
	b.Set("motion", 2.2)

	a.Merge("accelerometer.", b)

	keys := a.Keys()
	if len(keys) != 3 || keys[1] != "accelerometer.magnitude" {
		t.Errorf("merged keys: got %v", keys)
	}

	// merge from nil is a no-op
	a.Merge("x.", nil)
	if a.Len() != 3 {
		t.Errorf("merge nil changed length: %d", a.Len())
	}
}

func TestZeroResult(t *testing.T) {
	r := ZeroResult()
	if r.Score != 0 || r.Confident || r.Timestamp != 0 {
		t.Errorf("zero result not zero: %+v", r)
	}
	if r.Metrics == nil || r.Metrics.Len() != 0 {
		t.Error("zero result should carry empty metrics, not nil")
	}
}
