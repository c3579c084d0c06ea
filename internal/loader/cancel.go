package loader

import "mangad/internal/media"

// CancelPendingLoads invalidates all queued and in-flight decode work by
// bumping the generation. Work already running finishes and discards itself
// at its next checkpoint. Decoded indices stay marked as loaded.
func (l *Loader) CancelPendingLoads() {
	l.bump("cancel")
}

// Clear resets the loader as if newly constructed, keeping its goroutines.
func (l *Loader) Clear() {
	l.bump("clear")
	l.st.loaded.Clear()
	l.dimensions = make(map[int]media.Dimensions)
	l.stats = Stats{}
	l.scrollDirection = 1
	l.lastVisible = 0
	l.windowStart, l.windowEnd = 0, 0
}

// bump increments the generation and drops everything the old one owned.
// The loaded set is only wiped after the increment (see genSet.AddIfCurrent).
func (l *Loader) bump(kind string) {
	gen := l.st.generation.Add(1)
	l.st.loading.Clear()
	l.st.attempts.Clear()

	drainedRequests := drain(l.requests, nil)
	drainedResults := drain(l.results, func(img DecodedImage) {
		// its index was marked loaded but will never reach the owner
		l.st.loaded.RemoveIfGen(img.Index, img.Generation)
	})
	drain(l.dimRequests, nil)
	drain(l.dimResults, nil)
	l.dimPending = make(map[int]uint64)
	l.dimFailed = make(map[int]struct{})

	generationBumpsTotal.WithLabelValues(kind).Inc()
	if drainedResults > 0 {
		resultsDroppedTotal.WithLabelValues("stale").Add(float64(drainedResults))
	}
	l.log.Debug().Str("kind", kind).Uint64("generation", gen).Int("requests", drainedRequests).Int("results", drainedResults).Msg("generation bumped")
	l.pub.Publish(Event{Name: kind, Index: -1, Generation: gen, Fields: map[string]any{"drained_requests": drainedRequests, "drained_results": drainedResults}})
}

// drain empties ch without blocking and returns how many values it took.
func drain[T any](ch chan T, fn func(T)) int {
	n := 0
	for {
		select {
		case v := <-ch:
			if fn != nil {
				fn(v)
			}
			n++
		default:
			return n
		}
	}
}
