package enrichment

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/pe200012/Syrinx/internal/domain/catalog"
)

// DefaultBatchSize is how many tracks a worker pass fetches concurrently.
const DefaultBatchSize = 16

// Fetcher resolves metadata for a single track path. A nil result with a nil
// error means the track has no extractable metadata.
type Fetcher interface {
	FetchMetadata(ctx context.Context, path string) (*catalog.Metadata, error)
}

// ApplyFunc receives resolved metadata keyed by track id. Values may be nil
// for tracks whose extraction failed; those must still be recorded so they
// are never queued again.
type ApplyFunc func(results map[string]*catalog.Metadata)

type pendingTrack struct {
	id   string
	path string
}

// Queue drains metadata requests in the background, one batch at a time.
// A generation counter invalidates in-flight work when the catalog is
// replaced, so stale results are never applied.
type Queue struct {
	fetcher   Fetcher
	apply     ApplyFunc
	batchSize int

	mu      sync.Mutex
	pending []pendingTrack
	queued  map[string]bool
	running bool
	gen     uint64
}

// NewQueue creates a queue feeding resolved metadata into apply.
func NewQueue(fetcher Fetcher, apply ApplyFunc) *Queue {
	return &Queue{
		fetcher:   fetcher,
		apply:     apply,
		batchSize: DefaultBatchSize,
		queued:    make(map[string]bool),
	}
}

// Enqueue adds tracks to the queue, skipping any already queued this
// generation, and starts the worker if it is idle.
func (q *Queue) Enqueue(tracks []catalog.Track) {
	q.mu.Lock()

	added := 0
	for _, t := range tracks {
		if q.queued[t.ID] {
			continue
		}
		q.queued[t.ID] = true
		q.pending = append(q.pending, pendingTrack{id: t.ID, path: t.Path})
		added++
	}

	if added == 0 || q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	gen := q.gen
	q.mu.Unlock()

	log.Debug().Int("added", added).Msg("Metadata queue worker starting")
	go q.work(gen)
}

// Running reports whether a worker pass is in flight.
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Reset discards all pending work and invalidates in-flight fetches. Called
// when the catalog is replaced wholesale.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.gen++
	q.pending = nil
	q.queued = make(map[string]bool)
	q.running = false
}

// work drains the queue batch by batch until it is empty or superseded.
func (q *Queue) work(gen uint64) {
	ctx := context.Background()

	for {
		q.mu.Lock()
		if gen != q.gen {
			q.mu.Unlock()
			return
		}
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		n := q.batchSize
		if n > len(q.pending) {
			n = len(q.pending)
		}
		batch := make([]pendingTrack, n)
		copy(batch, q.pending[:n])
		q.pending = q.pending[n:]
		q.mu.Unlock()

		results := q.fetchBatch(ctx, batch)

		q.mu.Lock()
		stale := gen != q.gen
		q.mu.Unlock()
		if stale {
			return
		}

		// The apply callback takes the session lock; it must never run
		// while q.mu is held.
		q.apply(results)
	}
}

// fetchBatch resolves one batch concurrently. A failed fetch maps to nil so
// the track is marked as attempted and never retried.
func (q *Queue) fetchBatch(ctx context.Context, batch []pendingTrack) map[string]*catalog.Metadata {
	results := make(map[string]*catalog.Metadata, len(batch))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, pt := range batch {
		wg.Add(1)
		go func(pt pendingTrack) {
			defer wg.Done()
			meta, err := q.fetcher.FetchMetadata(ctx, pt.path)
			if err != nil {
				log.Debug().Err(err).Str("path", pt.path).Msg("Metadata fetch failed")
				meta = nil
			}
			mu.Lock()
			results[pt.id] = meta
			mu.Unlock()
		}(pt)
	}
	wg.Wait()

	return results
}
