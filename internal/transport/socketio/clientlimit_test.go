package socketio

import "testing"

func TestClientLimiterAllowsUpToMax(t *testing.T) {
	cl := NewClientLimiter(3)

	for _, id := range []string{"a", "b", "c"} {
		if evicted := cl.Add(id); evicted != "" {
			t.Errorf("Add(%q) evicted %q below the cap", id, evicted)
		}
	}
	if got := cl.Len(); got != 3 {
		t.Errorf("Len = %d, want 3", got)
	}
}

func TestClientLimiterEvictsOldest(t *testing.T) {
	cl := NewClientLimiter(2)

	cl.Add("a")
	cl.Add("b")
	if evicted := cl.Add("c"); evicted != "a" {
		t.Errorf("expected oldest client evicted, got %q", evicted)
	}
	if got := cl.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}

	// The evicted slot frees up again after a disconnect.
	cl.Remove("b")
	if evicted := cl.Add("d"); evicted != "" {
		t.Errorf("expected room after removal, evicted %q", evicted)
	}
}

func TestClientLimiterDuplicateAddIsIdempotent(t *testing.T) {
	cl := NewClientLimiter(2)

	cl.Add("a")
	cl.Add("b")
	if evicted := cl.Add("a"); evicted != "" {
		t.Errorf("re-adding a tracked client must not evict, got %q", evicted)
	}
	if got := cl.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}
}

func TestClientLimiterRemoveUnknownClient(t *testing.T) {
	cl := NewClientLimiter(1)

	cl.Remove("ghost")
	if got := cl.Len(); got != 0 {
		t.Errorf("Len = %d, want 0", got)
	}
}
