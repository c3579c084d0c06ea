package media

import (
	"context"
	"image"
)

// Used when a video cannot be probed at all, so layout still has a size.
const (
	FallbackVideoWidth  = 1920
	FallbackVideoHeight = 1080
)

// placeholderSide bounds the stand-in texture for videos whose frame could
// not be extracted.
const placeholderSide = 64

// VideoTool is the external collaborator for video sources.
type VideoTool interface {
	Probe(ctx context.Context, path string) (int, int, error)
	ExtractFrame(ctx context.Context, path string) (image.Image, error)
}

// Codec dispatches probe/decode calls by media class.
type Codec struct {
	Video VideoTool
}

// NewCodec returns a Codec using video for video sources; nil disables
// frame extraction and probing (videos then get fallback dimensions).
func NewCodec(video VideoTool) *Codec { return &Codec{Video: video} }

// Probe returns header dimensions for path.
func (c *Codec) Probe(ctx context.Context, path string) (Dimensions, error) {
	switch Classify(path) {
	case ClassImage:
		return ProbeImage(path)
	case ClassVideo:
		w, h := c.videoSize(ctx, path)
		return Dimensions{Width: w, Height: h, Kind: Video}, nil
	default:
		return Dimensions{}, unsupportedMediaError{path: path}
	}
}

// Decode produces a frame no larger than maxSide (0 = unbounded).
func (c *Codec) Decode(ctx context.Context, path string, maxSide int) (Frame, error) {
	switch Classify(path) {
	case ClassImage:
		return DecodeImage(path, maxSide)
	case ClassVideo:
		if c.Video != nil {
			if img, err := c.Video.ExtractFrame(ctx, path); err == nil {
				return Downscale(img, maxSide, Video), nil
			}
		}
		w, h := c.videoSize(ctx, path)
		side := placeholderSide
		if maxSide > 0 && maxSide < side {
			side = maxSide
		}
		return placeholder(w, h, side), nil
	default:
		return Frame{}, unsupportedMediaError{path: path}
	}
}

func (c *Codec) videoSize(ctx context.Context, path string) (int, int) {
	if c.Video != nil {
		if w, h, err := c.Video.Probe(ctx, path); err == nil {
			return w, h
		}
	}
	return FallbackVideoWidth, FallbackVideoHeight
}
