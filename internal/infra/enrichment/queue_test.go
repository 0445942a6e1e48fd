package enrichment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pe200012/Syrinx/internal/domain/catalog"
)

// mockFetcher implements Fetcher for testing
type mockFetcher struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]bool
	block   chan struct{}
	results map[string]*catalog.Metadata
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		fail:    make(map[string]bool),
		results: make(map[string]*catalog.Metadata),
	}
}

func (f *mockFetcher) FetchMetadata(ctx context.Context, path string) (*catalog.Metadata, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[path] {
		return nil, errors.New("fetch failed")
	}
	if m, ok := f.results[path]; ok {
		return m, nil
	}
	return &catalog.Metadata{Title: path}, nil
}

func (f *mockFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// collector accumulates applied batches
type collector struct {
	mu      sync.Mutex
	applied map[string]*catalog.Metadata
	batches int
}

func newCollector() *collector {
	return &collector{applied: make(map[string]*catalog.Metadata)}
}

func (c *collector) apply(results map[string]*catalog.Metadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, m := range results {
		c.applied[id] = m
	}
	c.batches++
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.applied)
}

func (c *collector) get(id string) (*catalog.Metadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.applied[id]
	return m, ok
}

func makeTracks(n int) []catalog.Track {
	out := make([]catalog.Track, n)
	for i := range out {
		id := string(rune('a' + i))
		out[i] = catalog.Track{ID: id, Path: "/music/" + id + ".mp3"}
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestEnqueueFetchesAndApplies(t *testing.T) {
	fetcher := newMockFetcher()
	sink := newCollector()
	q := NewQueue(fetcher, sink.apply)

	q.Enqueue(makeTracks(3))
	waitFor(t, func() bool { return sink.count() == 3 && !q.Running() })

	m, ok := sink.get("a")
	if !ok || m == nil {
		t.Fatal("expected metadata for track a")
	}
	if m.Title != "/music/a.mp3" {
		t.Errorf("unexpected metadata: %+v", m)
	}
}

func TestFailedFetchAppliesNil(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.fail["/music/b.mp3"] = true
	sink := newCollector()
	q := NewQueue(fetcher, sink.apply)

	q.Enqueue(makeTracks(2))
	waitFor(t, func() bool { return sink.count() == 2 })

	m, ok := sink.get("b")
	if !ok {
		t.Fatal("failed track must still be recorded")
	}
	if m != nil {
		t.Errorf("expected nil metadata for failed fetch, got %+v", m)
	}
}

func TestDuplicateEnqueueIsSkipped(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.block = make(chan struct{})
	sink := newCollector()
	q := NewQueue(fetcher, sink.apply)

	tr := makeTracks(1)
	q.Enqueue(tr)
	waitFor(t, func() bool { return fetcher.callCount() == 1 })
	q.Enqueue(tr)
	close(fetcher.block)

	waitFor(t, func() bool { return !q.Running() })
	if got := fetcher.callCount(); got != 1 {
		t.Errorf("expected a single fetch, got %d", got)
	}
}

func TestBatchesOfSixteen(t *testing.T) {
	fetcher := newMockFetcher()
	sink := newCollector()
	q := NewQueue(fetcher, sink.apply)

	q.Enqueue(makeTracks(20))
	waitFor(t, func() bool { return sink.count() == 20 && !q.Running() })

	sink.mu.Lock()
	batches := sink.batches
	sink.mu.Unlock()
	if batches != 2 {
		t.Errorf("expected 2 batches for 20 tracks, got %d", batches)
	}
}

func TestResetDiscardsInFlightResults(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.block = make(chan struct{})
	sink := newCollector()
	q := NewQueue(fetcher, sink.apply)

	q.Enqueue(makeTracks(2))
	waitFor(t, func() bool { return fetcher.callCount() == 2 })

	q.Reset()
	close(fetcher.block)

	// Give the superseded worker a chance to misbehave.
	time.Sleep(50 * time.Millisecond)
	if got := sink.count(); got != 0 {
		t.Errorf("stale results must not be applied, got %d", got)
	}
	if q.Running() {
		t.Error("queue should be idle after reset")
	}
}

func TestEnqueueAfterResetFetchesAgain(t *testing.T) {
	fetcher := newMockFetcher()
	sink := newCollector()
	q := NewQueue(fetcher, sink.apply)

	q.Enqueue(makeTracks(1))
	waitFor(t, func() bool { return sink.count() == 1 })

	q.Reset()
	sink.mu.Lock()
	sink.applied = make(map[string]*catalog.Metadata)
	sink.mu.Unlock()

	q.Enqueue(makeTracks(1))
	waitFor(t, func() bool { return sink.count() == 1 })

	if got := fetcher.callCount(); got != 2 {
		t.Errorf("expected refetch after reset, got %d calls", got)
	}
}
