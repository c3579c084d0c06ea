package loader

import (
	"sort"

	"mangad/internal/media"
)

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// windowCounts returns how many items to preload toward higher indices
// (forward) and lower indices (backward) for the given scroll direction.
func (l *Loader) windowCounts(visibleCount, direction int) (forward, backward int) {
	visible := visibleCount
	if visible < 1 {
		visible = 1
	}
	ahead := clamp(visible+l.cfg.AheadBonus, l.cfg.MinPreload, l.cfg.MaxPreload)
	behind := clamp(visible+l.cfg.BehindBonus, l.cfg.MinPreload, l.cfg.MaxPreload)
	if direction < 0 {
		return behind, ahead
	}
	return ahead, behind
}

// PreloadWindow returns the half-open index range [start, end) that
// UpdatePreloadQueue would cover for these arguments right now.
func (l *Loader) PreloadWindow(total, visibleIndex, visibleCount int) (int, int) {
	if total <= 0 {
		return 0, 0
	}
	visibleIndex = clamp(visibleIndex, 0, total-1)
	forward, backward := l.windowCounts(visibleCount, l.scrollDirection)
	start := visibleIndex - backward
	if start < 0 {
		start = 0
	}
	end := visibleIndex + forward + 1
	if end > total {
		end = total
	}
	return start, end
}

// LastWindow is the range covered by the most recent UpdatePreloadQueue.
func (l *Loader) LastWindow() (int, int) { return l.windowStart, l.windowEnd }

// ScrollDirection is +1 when moving toward higher indices, -1 otherwise.
func (l *Loader) ScrollDirection() int { return l.scrollDirection }

func (l *Loader) priority(index, visibleIndex int) int {
	p := abs(index - visibleIndex)
	if (l.scrollDirection > 0 && index < visibleIndex) || (l.scrollDirection < 0 && index > visibleIndex) {
		p += l.cfg.DirectionPenalty
	}
	return p
}

// UpdatePreloadQueue requests decodes around visibleIndex. visibleCount is
// the caller's estimate of how many items fit in the viewport at once.
// A jump larger than LargeJumpThreshold cancels pending work first and
// makes the target urgent. Submission stops at the first full queue.
func (l *Loader) UpdatePreloadQueue(items []string, visibleIndex, visibleCount, maxSide int) {
	if l.closed() || len(items) == 0 {
		return
	}
	visibleIndex = clamp(visibleIndex, 0, len(items)-1)

	delta := visibleIndex - l.lastVisible
	jump := abs(delta) > l.cfg.LargeJumpThreshold
	if delta > 0 {
		l.scrollDirection = 1
	} else if delta < 0 {
		l.scrollDirection = -1
	}
	prev := l.lastVisible
	l.lastVisible = visibleIndex
	if jump {
		l.CancelPendingLoads()
		l.log.Debug().Int("from", prev).Int("to", visibleIndex).Msg("large jump")
		l.pub.Publish(Event{Name: "large_jump", Index: visibleIndex, Generation: l.st.current(), Fields: map[string]any{"from": prev}})
	}

	start, end := l.PreloadWindow(len(items), visibleIndex, visibleCount)
	l.windowStart, l.windowEnd = start, end
	gen := l.st.current()

	reqs := make([]LoadRequest, 0, end-start)
	for idx := start; idx < end; idx++ {
		if !media.IsSupported(items[idx]) {
			continue
		}
		if l.st.loading.Contains(idx) || l.st.loaded.Contains(idx) {
			continue
		}
		if l.cfg.MaxDecodeAttempts > 0 && l.st.attempts.Count(idx, gen) >= l.cfg.MaxDecodeAttempts {
			continue
		}
		prio := l.priority(idx, visibleIndex)
		if jump && idx == visibleIndex {
			prio = UrgentPriority
		}
		reqs = append(reqs, LoadRequest{Generation: gen, Index: idx, Path: items[idx], MaxSide: maxSide, Priority: prio})
	}
	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].Priority < reqs[j].Priority })

	for _, req := range reqs {
		// Marked before the send so the coordinator can never finish it
		// while it still looks absent; rolled back if the send fails.
		l.st.loading.Add(req.Index, gen)
		select {
		case l.requests <- req:
			requestsTotal.WithLabelValues("enqueued").Inc()
		default:
			l.st.loading.RemoveIfGen(req.Index, gen)
			requestsTotal.WithLabelValues("backpressure").Inc()
			return
		}
	}
}
