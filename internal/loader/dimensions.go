package loader

import (
	"context"

	"mangad/internal/media"
)

// RequestDimensionsRange asks the prober for items in [start, end) that are
// neither cached nor pending. At most DimensionBatchSize indices go out per
// call; a full queue simply means the caller tries again later.
func (l *Loader) RequestDimensionsRange(items []string, start, end int) {
	if l.closed() {
		return
	}
	start = clamp(start, 0, len(items))
	end = clamp(end, start, len(items))
	batch := make([]dimensionItem, 0, l.cfg.DimensionBatchSize)
	for idx := start; idx < end && len(batch) < l.cfg.DimensionBatchSize; idx++ {
		if _, ok := l.dimensions[idx]; ok {
			continue
		}
		if _, ok := l.dimPending[idx]; ok {
			continue
		}
		if _, ok := l.dimFailed[idx]; ok {
			continue
		}
		if !media.IsSupported(items[idx]) {
			continue
		}
		batch = append(batch, dimensionItem{Index: idx, Path: items[idx]})
	}
	if len(batch) == 0 {
		return
	}
	gen := l.st.current()
	select {
	case l.dimRequests <- dimensionRequest{Generation: gen, Items: batch}:
		for _, it := range batch {
			l.dimPending[it.Index] = gen
		}
	default:
	}
}

// PollDimensionResults drains up to maxMessages probe messages and returns
// the indices whose cached dimensions changed.
func (l *Loader) PollDimensionResults(maxMessages int) []int {
	var updated []int
	cur := l.st.current()
	for n := 0; n < maxMessages; n++ {
		var ch dimensionChunk
		select {
		case ch = <-l.dimResults:
		default:
			return updated
		}
		for _, r := range ch.Results {
			if g, ok := l.dimPending[r.Index]; ok && g == ch.Generation {
				delete(l.dimPending, r.Index)
			}
		}
		if ch.Generation != cur {
			continue
		}
		for _, r := range ch.Results {
			if !r.OK {
				l.dimFailed[r.Index] = struct{}{}
				continue
			}
			l.dimensions[r.Index] = r.Dims
			updated = append(updated, r.Index)
		}
	}
	return updated
}

// PrimeDimensions probes the first n supported items synchronously on the
// calling goroutine. Meant for startup, before the first frame.
func (l *Loader) PrimeDimensions(ctx context.Context, items []string, n int) int {
	primed := 0
	for idx := 0; idx < len(items) && idx < n; idx++ {
		if _, ok := l.dimensions[idx]; ok || !media.IsSupported(items[idx]) {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		d, err := l.cfg.Prober.Probe(ctx, items[idx])
		if err != nil {
			if ctx.Err() != nil {
				// interrupted, not a bad header; leave it for the prober
				break
			}
			l.dimFailed[idx] = struct{}{}
			continue
		}
		l.dimensions[idx] = d
		primed++
	}
	return primed
}

// Dimensions returns the cached header dimensions for index.
func (l *Loader) Dimensions(index int) (media.Dimensions, bool) {
	d, ok := l.dimensions[index]
	return d, ok
}

// MediaKind returns the cached media kind for index.
func (l *Loader) MediaKind(index int) (media.Kind, bool) {
	d, ok := l.dimensions[index]
	return d.Kind, ok
}

// CachedDimensionCount is the size of the dimension cache.
func (l *Loader) CachedDimensionCount() int { return len(l.dimensions) }
