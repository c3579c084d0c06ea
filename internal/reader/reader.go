// Package reader pumps the loader and texture cache once per UI frame.
package reader

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"mangad/internal/loader"
	"mangad/internal/texcache"
	"mangad/pkg/types"
)

// Uploader turns decoded pixels into a texture handle, typically on the GPU.
type Uploader[H any] interface {
	Upload(img loader.DecodedImage) (H, error)
}

// UploaderFunc adapts a function to Uploader.
type UploaderFunc[H any] func(img loader.DecodedImage) (H, error)

func (f UploaderFunc[H]) Upload(img loader.DecodedImage) (H, error) { return f(img) }

const (
	defaultMaxTextureSide   = 4096
	defaultDimensionAhead   = 64
	defaultDimensionPollMax = 8
)

// Config tunes the per-frame pump.
type Config struct {
	// MaxTextureSide bounds decoded output on both axes.
	MaxTextureSide int
	// DimensionLookahead extends dimension probing past the preload window
	// on both sides so layout is stable before pixels arrive.
	DimensionLookahead int
	DimensionPollMax   int
	// PrimeCount items are probed synchronously by SetItems.
	PrimeCount int
	Logger     *zerolog.Logger
}

// FrameStats reports what one Frame call did.
type FrameStats struct {
	Uploaded          int
	UploadErrors      int
	Evicted           []int
	DimensionsUpdated []int
	PendingLoads      int
	Generation        uint64
}

// Reader owns a Loader and a texture cache on behalf of the UI goroutine.
// Frame, SetItems and Texture must be called from that goroutine; Status
// is safe from any goroutine.
type Reader[H any] struct {
	ld    *loader.Loader
	cache *texcache.Cache[H]
	up    Uploader[H]
	cfg   Config
	log   zerolog.Logger

	items        []string
	visible      int
	visibleCount int
	frames       uint64
	uploadErrors uint64
	started      time.Time

	status atomic.Pointer[types.StatusResponse]
}

// New wires a Reader. The Reader takes ownership of ld and cache.
func New[H any](ld *loader.Loader, cache *texcache.Cache[H], up Uploader[H], cfg Config) *Reader[H] {
	if cfg.MaxTextureSide <= 0 {
		cfg.MaxTextureSide = defaultMaxTextureSide
	}
	if cfg.DimensionLookahead <= 0 {
		cfg.DimensionLookahead = defaultDimensionAhead
	}
	if cfg.DimensionPollMax <= 0 {
		cfg.DimensionPollMax = defaultDimensionPollMax
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = cfg.Logger.With().Str("component", "reader").Logger()
	}
	r := &Reader[H]{ld: ld, cache: cache, up: up, cfg: cfg, log: log, started: time.Now()}
	r.publish()
	return r
}

// SetItems replaces the active strip. Everything cached for the old strip
// is dropped and the first PrimeCount items are probed before returning.
func (r *Reader[H]) SetItems(ctx context.Context, items []string) {
	r.ld.Clear()
	r.cache.Clear()
	r.items = append([]string(nil), items...)
	r.visible = 0
	if r.cfg.PrimeCount > 0 {
		n := r.ld.PrimeDimensions(ctx, r.items, r.cfg.PrimeCount)
		r.log.Debug().Int("items", len(r.items)).Int("primed", n).Msg("items replaced")
	}
	r.publish()
}

// Items returns the active strip.
func (r *Reader[H]) Items() []string { return r.items }

// Frame runs one UI frame: refresh recency of visible textures, extend the
// preload window, collect probes, upload a bounded batch of decoded images
// and hand evictions back to the loader.
func (r *Reader[H]) Frame(visibleIndex, visibleCount int) FrameStats {
	r.cache.Tick()
	r.frames++
	var st FrameStats
	if len(r.items) == 0 {
		r.publish()
		return st
	}
	if visibleIndex < 0 {
		visibleIndex = 0
	}
	if visibleIndex >= len(r.items) {
		visibleIndex = len(r.items) - 1
	}
	r.visible, r.visibleCount = visibleIndex, visibleCount

	for i := visibleIndex; i < visibleIndex+max(visibleCount, 1) && i < len(r.items); i++ {
		r.cache.Get(i)
	}

	r.ld.UpdatePreloadQueue(r.items, visibleIndex, visibleCount, r.cfg.MaxTextureSide)
	start, end := r.ld.LastWindow()
	r.ld.RequestDimensionsRange(r.items, start-r.cfg.DimensionLookahead, end+r.cfg.DimensionLookahead)
	st.DimensionsUpdated = r.ld.PollDimensionResults(r.cfg.DimensionPollMax)

	for _, img := range r.ld.PollDecodedImages() {
		h, err := r.up.Upload(img)
		if err != nil {
			r.ld.MarkUnloaded(img.Index)
			r.uploadErrors++
			st.UploadErrors++
			r.log.Warn().Err(err).Int("index", img.Index).Msg("upload failed")
			continue
		}
		evicted := r.cache.InsertWithType(img.Index, h, img.Width, img.Height, img.Kind)
		for _, idx := range evicted {
			r.ld.MarkUnloaded(idx)
		}
		st.Evicted = append(st.Evicted, evicted...)
		st.Uploaded++
	}

	st.PendingLoads = r.ld.PendingLoadCount()
	st.Generation = r.ld.Generation()
	r.publish()
	return st
}

// Texture returns the cached handle for index, refreshing its recency.
func (r *Reader[H]) Texture(index int) (H, bool) { return r.cache.Get(index) }

// Status returns the snapshot taken at the end of the last frame.
func (r *Reader[H]) Status() types.StatusResponse {
	s := r.status.Load()
	out := *s
	out.ServerTimeUnix = time.Now().Unix()
	return out
}

// Close stops the loader and releases every cached texture.
func (r *Reader[H]) Close() error {
	err := r.ld.Close()
	r.cache.Clear()
	r.publish()
	return err
}

func (r *Reader[H]) publish() {
	ls := r.ld.Stats()
	ws, we := r.ld.LastWindow()
	s := &types.StatusResponse{
		Items:        len(r.items),
		VisibleIndex: r.visible,
		Frames:       r.frames,
		Loader: types.LoaderStatus{
			Generation:        r.ld.Generation(),
			PendingLoads:      ls.ImagesPending,
			PendingDecoded:    r.ld.PendingDecodedCount(),
			PendingDimensions: r.ld.PendingDimensionCount(),
			CachedDimensions:  r.ld.CachedDimensionCount(),
			ImagesLoaded:      ls.ImagesLoaded,
			Failed:            r.ld.FailedCount(),
			ScrollDirection:   r.ld.ScrollDirection(),
			WindowStart:       ws,
			WindowEnd:         we,
		},
		Cache: types.CacheStatus{
			Entries:  r.cache.Len(),
			Capacity: r.cache.Capacity(),
			Tick:     r.cache.CurrentTick(),
			Indices:  r.cache.CachedIndices(),
		},
		UploadErrors:  r.uploadErrors,
		UptimeSeconds: int64(time.Since(r.started).Seconds()),
	}
	r.status.Store(s)
}
