package loader

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"mangad/internal/media"
)

// Loader is the facade owned by the UI goroutine. None of its methods block
// on the background goroutines.
type Loader struct {
	cfg Config
	st  *sharedState

	requests    chan LoadRequest
	results     chan DecodedImage
	dimRequests chan dimensionRequest
	dimResults  chan dimensionChunk

	quit      chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once
	wg        sync.WaitGroup // background goroutines; Close does not wait on it

	// owner-goroutine state below; no locking
	scrollDirection int
	lastVisible     int
	windowStart     int
	windowEnd       int
	dimensions      map[int]media.Dimensions
	dimPending      map[int]uint64
	dimFailed       map[int]struct{}
	stats           Stats

	log zerolog.Logger
	pub EventPublisher
}

// New constructs a Loader and starts its coordinator and prober goroutines.
func New(cfg Config) *Loader {
	l := newLoader(cfg)
	l.start()
	return l
}

// newLoader builds the channels and state without starting goroutines.
func newLoader(cfg Config) *Loader {
	cfg = cfg.withDefaults()
	l := &Loader{
		cfg:             cfg,
		st:              newSharedState(),
		requests:        make(chan LoadRequest, cfg.RequestQueueSize),
		results:         make(chan DecodedImage, cfg.ResultQueueSize),
		dimRequests:     make(chan dimensionRequest, cfg.DimensionQueueSize),
		dimResults:      make(chan dimensionChunk, cfg.DimensionResultQueueSize),
		quit:            make(chan struct{}),
		scrollDirection: 1,
		dimensions:      make(map[int]media.Dimensions),
		dimPending:      make(map[int]uint64),
		dimFailed:       make(map[int]struct{}),
		log:             cfg.Logger.With().Str("component", "loader").Logger(),
		pub:             cfg.Publisher,
	}
	return l
}

func (l *Loader) start() {
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	co := &coordinator{
		st:       l.st,
		requests: l.requests,
		results:  l.results,
		quit:     l.quit,
		decoder:  l.cfg.Decoder,
		workers:  l.cfg.Workers,
		batchCap: l.cfg.BatchSize,
		idle:     l.cfg.IdlePoll,
		log:      l.log.With().Str("goroutine", "coordinator").Logger(),
		pub:      l.pub,
	}
	pr := &prober{
		st:       l.st,
		requests: l.dimRequests,
		results:  l.dimResults,
		quit:     l.quit,
		probe:    l.cfg.Prober,
		chunkCap: l.cfg.DimensionChunkSize,
		idle:     l.cfg.IdlePoll,
		retry:    defaultProberRetry,
		log:      l.log.With().Str("goroutine", "prober").Logger(),
		pub:      l.pub,
	}
	l.wg.Add(2)
	go func() { defer l.wg.Done(); co.run(ctx) }()
	go func() { defer l.wg.Done(); pr.run(ctx) }()
}

// Close signals both goroutines to stop and returns without waiting.
// In-flight decodes finish on their own and their results are discarded.
func (l *Loader) Close() error {
	l.closeOnce.Do(func() {
		l.st.shutdown.Store(true)
		close(l.quit)
		if l.cancel != nil {
			l.cancel()
		}
	})
	return nil
}

// waitStopped blocks until both background goroutines have returned.
func (l *Loader) waitStopped() { l.wg.Wait() }

func (l *Loader) closed() bool { return l.st.shutdown.Load() }

// PollDecodedImages returns at most UploadBatchSize fresh results.
// Results from an older generation are discarded here.
func (l *Loader) PollDecodedImages() []DecodedImage {
	out := make([]DecodedImage, 0, l.cfg.UploadBatchSize)
	cur := l.st.current()
	for len(out) < l.cfg.UploadBatchSize {
		select {
		case img := <-l.results:
			if img.Generation != cur {
				l.st.loaded.RemoveIfGen(img.Index, img.Generation)
				resultsDroppedTotal.WithLabelValues("stale").Inc()
				continue
			}
			l.dimensions[img.Index] = media.Dimensions{Width: img.OriginalWidth, Height: img.OriginalHeight, Kind: img.Kind}
			l.stats.ImagesLoaded++
			out = append(out, img)
		default:
			return out
		}
	}
	return out
}

// MarkUnloaded lets index be requested again, e.g. after cache eviction.
func (l *Loader) MarkUnloaded(index int) {
	l.st.loaded.Remove(index)
}

func (l *Loader) IsLoading(index int) bool { return l.st.loading.Contains(index) }
func (l *Loader) IsLoaded(index int) bool  { return l.st.loaded.Contains(index) }

// PendingLoadCount is the number of indices currently in flight.
func (l *Loader) PendingLoadCount() int { return l.st.loading.Len() }

// PendingDecodedCount is the number of results waiting to be polled.
func (l *Loader) PendingDecodedCount() int { return len(l.results) }

// PendingDimensionResultsCount is the number of probe messages waiting to be polled.
func (l *Loader) PendingDimensionResultsCount() int { return len(l.dimResults) }

// PendingDimensionCount is the number of indices with an outstanding probe.
func (l *Loader) PendingDimensionCount() int { return len(l.dimPending) }

// Generation returns the current cancellation epoch.
func (l *Loader) Generation() uint64 { return l.st.current() }

// FailedCount is the number of indices that hit MaxDecodeAttempts in the
// current generation.
func (l *Loader) FailedCount() int {
	if l.cfg.MaxDecodeAttempts < 0 {
		return 0
	}
	return l.st.attempts.AtLeast(l.cfg.MaxDecodeAttempts, l.st.current())
}

// Stats returns loaded/pending counters.
func (l *Loader) Stats() Stats {
	s := l.stats
	s.ImagesPending = l.st.loading.Len()
	return s
}

// Config returns the effective configuration after defaults.
func (l *Loader) Config() Config { return l.cfg }
