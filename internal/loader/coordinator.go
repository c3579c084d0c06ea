package loader

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// coordinator owns the receive side of the request channel and fans each
// batch out over a bounded set of decode goroutines.
type coordinator struct {
	st       *sharedState
	requests <-chan LoadRequest
	results  chan<- DecodedImage
	quit     <-chan struct{}
	decoder  Decoder
	workers  int
	batchCap int
	idle     time.Duration
	log      zerolog.Logger
	pub      EventPublisher
}

func (c *coordinator) run(ctx context.Context) {
	c.log.Debug().Int("workers", c.workers).Msg("coordinator start")
	defer func() {
		c.log.Debug().Msg("coordinator stop")
		c.pub.Publish(Event{Name: "coordinator_stop", Index: -1, Generation: c.st.current()})
	}()

	batch := make([]LoadRequest, 0, c.batchCap)
	timer := time.NewTimer(c.idle)
	defer timer.Stop()
	for {
		if c.st.shutdown.Load() {
			return
		}
		batch = batch[:0]
		timer.Reset(c.idle)
		select {
		case req := <-c.requests:
			batch = append(batch, req)
		case <-timer.C:
			continue
		case <-c.quit:
			return
		}
	drain:
		for len(batch) < c.batchCap {
			select {
			case req := <-c.requests:
				batch = append(batch, req)
			default:
				break drain
			}
		}
		if !c.process(ctx, batch) {
			return
		}
	}
}

// process decodes one batch and publishes its results. It returns false
// when the owner side is gone and the coordinator should exit.
func (c *coordinator) process(ctx context.Context, batch []LoadRequest) bool {
	sort.SliceStable(batch, func(i, j int) bool { return batch[i].Priority < batch[j].Priority })
	gen := c.st.current()
	out := make([]*DecodedImage, len(batch))

	rest := batch
	if batch[0].Urgent() {
		out[0] = c.decodeOne(ctx, batch[0])
		if c.st.current() != gen {
			c.dropBatch(batch, out)
			return true
		}
		rest = batch[1:]
	}

	if len(rest) > 0 {
		offset := len(batch) - len(rest)
		var g errgroup.Group
		g.SetLimit(c.workers)
		for i := range rest {
			g.Go(func() error {
				out[offset+i] = c.decodeOne(ctx, rest[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	if c.st.current() != gen {
		c.dropBatch(batch, out)
		return true
	}

	for i, req := range batch {
		img := out[i]
		if img == nil {
			c.finish(req)
			continue
		}
		select {
		case <-c.quit:
			c.finish(req)
			return false
		default:
		}
		// Marked before the send so the owner never polls a result whose
		// index is not yet loaded; undone if the channel is full.
		if !c.st.loaded.AddIfCurrent(req.Index, req.Generation, &c.st.generation) {
			resultsDroppedTotal.WithLabelValues("stale").Inc()
			c.finish(req)
			continue
		}
		select {
		case c.results <- *img:
		default:
			// owner will re-request it
			c.st.loaded.RemoveIfGen(req.Index, req.Generation)
			resultsDroppedTotal.WithLabelValues("full").Inc()
			c.pub.Publish(Event{Name: "result_dropped", Index: req.Index, Generation: req.Generation, Fields: map[string]any{"reason": "full"}})
		}
		c.finish(req)
	}
	return true
}

// finish ends the in-flight attempt for req. Entries re-added under a newer
// generation are left alone.
func (c *coordinator) finish(req LoadRequest) {
	c.st.loading.RemoveIfGen(req.Index, req.Generation)
}

func (c *coordinator) dropBatch(batch []LoadRequest, out []*DecodedImage) {
	for i, req := range batch {
		if out[i] != nil {
			resultsDroppedTotal.WithLabelValues("stale").Inc()
		}
		c.finish(req)
	}
	c.log.Debug().Int("batch", len(batch)).Msg("batch dropped after generation change")
}

func (c *coordinator) decodeOne(ctx context.Context, req LoadRequest) *DecodedImage {
	if c.st.shutdown.Load() || req.Generation != c.st.current() || c.st.loaded.Contains(req.Index) {
		decodesTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	start := time.Now()
	frame, err := c.decoder.Decode(ctx, req.Path, req.MaxSide)
	if err != nil {
		n := c.st.attempts.Fail(req.Index, req.Generation)
		decodesTotal.WithLabelValues("failed").Inc()
		c.log.Debug().Err(err).Int("index", req.Index).Int("attempt", n).Str("path", req.Path).Msg("decode failed")
		c.pub.Publish(Event{Name: "decode_failed", Index: req.Index, Generation: req.Generation, Fields: map[string]any{"error": err.Error(), "attempt": n}})
		return nil
	}
	decodesTotal.WithLabelValues("ok").Inc()
	decodeDuration.WithLabelValues(frame.Kind.String()).Observe(time.Since(start).Seconds())
	return &DecodedImage{
		Generation:     req.Generation,
		Index:          req.Index,
		Pixels:         frame.Pix,
		Width:          frame.Width,
		Height:         frame.Height,
		OriginalWidth:  frame.OriginalWidth,
		OriginalHeight: frame.OriginalHeight,
		Kind:           frame.Kind,
	}
}
