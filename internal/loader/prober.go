package loader

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// prober answers dimension requests in the background. Results are sent
// without blocking; chunks that do not fit wait in a local outbox and no new
// request is accepted until the outbox drains, so a slow owner pushes back on
// RequestDimensionsRange through the bounded request channel.
type prober struct {
	st       *sharedState
	requests <-chan dimensionRequest
	results  chan<- dimensionChunk
	quit     <-chan struct{}
	probe    Prober
	chunkCap int
	idle     time.Duration
	retry    time.Duration
	log      zerolog.Logger
	pub      EventPublisher
}

func (p *prober) run(ctx context.Context) {
	p.log.Debug().Msg("prober start")
	defer func() {
		p.log.Debug().Msg("prober stop")
		p.pub.Publish(Event{Name: "prober_stop", Index: -1, Generation: p.st.current()})
	}()

	var outbox []dimensionChunk
	timer := time.NewTimer(p.idle)
	defer timer.Stop()
	for {
		if p.st.shutdown.Load() {
			return
		}
		outbox = p.flush(outbox)
		if len(outbox) > 0 {
			timer.Reset(p.retry)
			select {
			case <-timer.C:
			case <-p.quit:
				return
			}
			continue
		}
		timer.Reset(p.idle)
		select {
		case req := <-p.requests:
			outbox = p.handle(ctx, req)
		case <-timer.C:
		case <-p.quit:
			return
		}
	}
}

// flush sends queued chunks until the result channel is full. Chunks from an
// older generation are discarded: the owner already forgot them.
func (p *prober) flush(outbox []dimensionChunk) []dimensionChunk {
	for len(outbox) > 0 {
		ch := outbox[0]
		if ch.Generation != p.st.current() {
			outbox = outbox[1:]
			continue
		}
		select {
		case p.results <- ch:
			outbox = outbox[1:]
		default:
			return outbox
		}
	}
	return nil
}

func (p *prober) handle(ctx context.Context, req dimensionRequest) []dimensionChunk {
	var out []dimensionChunk
	cur := dimensionChunk{Generation: req.Generation}
	for _, it := range req.Items {
		if p.st.shutdown.Load() || req.Generation != p.st.current() {
			return nil
		}
		d, err := p.probe.Probe(ctx, it.Path)
		if err != nil {
			dimensionProbesTotal.WithLabelValues("failed").Inc()
			p.log.Debug().Err(err).Int("index", it.Index).Msg("dimension probe failed")
		} else {
			dimensionProbesTotal.WithLabelValues("ok").Inc()
		}
		cur.Results = append(cur.Results, dimensionResult{Index: it.Index, Dims: d, OK: err == nil})
		if len(cur.Results) >= p.chunkCap {
			out = append(out, cur)
			cur = dimensionChunk{Generation: req.Generation}
		}
	}
	if len(cur.Results) > 0 {
		out = append(out, cur)
	}
	return out
}
