package loader

import (
	"context"
	"math"

	"mangad/internal/media"
)

// UrgentPriority is assigned to the target of a large jump so it is decoded
// alone before any neighbour prefetch.
const UrgentPriority = math.MinInt32

// LoadRequest asks the coordinator to decode one item.
// Lower Priority is more urgent.
type LoadRequest struct {
	Generation uint64
	Index      int
	Path       string
	MaxSide    int
	Priority   int
}

// Urgent reports whether the request should bypass the parallel batch.
func (r LoadRequest) Urgent() bool { return r.Priority < 0 }

// DecodedImage is one decoded result, delivered once to the owner goroutine.
// Pixels is tightly packed RGBA of Width×Height.
type DecodedImage struct {
	Generation     uint64
	Index          int
	Pixels         []byte
	Width          int
	Height         int
	OriginalWidth  int
	OriginalHeight int
	Kind           media.Kind
}

// Decoder turns a source path into pixels. *media.Codec implements it.
type Decoder interface {
	Decode(ctx context.Context, path string, maxSide int) (media.Frame, error)
}

// Prober answers header-only dimension queries. *media.Codec implements it.
type Prober interface {
	Probe(ctx context.Context, path string) (media.Dimensions, error)
}

type dimensionItem struct {
	Index int
	Path  string
}

type dimensionRequest struct {
	Generation uint64
	Items      []dimensionItem
}

// dimensionResult carries failures too so pending bookkeeping always clears.
type dimensionResult struct {
	Index int
	Dims  media.Dimensions
	OK    bool
}

type dimensionChunk struct {
	Generation uint64
	Results    []dimensionResult
}

// Stats is a cheap summary for debugging overlays.
type Stats struct {
	ImagesLoaded  int
	ImagesPending int
}
