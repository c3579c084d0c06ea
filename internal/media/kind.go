package media

import (
	"path/filepath"
	"strings"
)

// Kind tags what a decoded result actually is.
type Kind int

const (
	StaticImage Kind = iota
	AnimatedImage
	Video
)

func (k Kind) String() string {
	switch k {
	case StaticImage:
		return "static"
	case AnimatedImage:
		return "animated"
	case Video:
		return "video"
	default:
		return "unknown"
	}
}

// Class is the coarse decode path selected from a file extension.
type Class int

const (
	ClassUnsupported Class = iota
	ClassImage
	ClassVideo
)

func (c Class) String() string {
	switch c {
	case ClassImage:
		return "image"
	case ClassVideo:
		return "video"
	default:
		return "unsupported"
	}
}

var imageExtensions = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "webp": {}, "gif": {}, "bmp": {}, "tiff": {}, "tif": {},
}

var videoExtensions = map[string]struct{}{
	"mp4": {}, "mkv": {}, "webm": {}, "avi": {}, "mov": {}, "wmv": {}, "flv": {}, "m4v": {}, "3gp": {}, "ogv": {},
}

func ext(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Classify selects the decode path for path based on its extension.
func Classify(path string) Class {
	e := ext(path)
	if _, ok := imageExtensions[e]; ok {
		return ClassImage
	}
	if _, ok := videoExtensions[e]; ok {
		return ClassVideo
	}
	return ClassUnsupported
}

func IsSupportedImage(path string) bool { return Classify(path) == ClassImage }
func IsSupportedVideo(path string) bool { return Classify(path) == ClassVideo }

// IsSupported reports whether path is an image or a video this package can handle.
func IsSupported(path string) bool { return Classify(path) != ClassUnsupported }

// Dimensions is a header-level answer: pixel size plus media kind. It is never
// authoritative for pixels, only for layout before a full decode.
type Dimensions struct {
	Width  int
	Height int
	Kind   Kind
}

// Frame is a fully decoded, possibly downscaled, RGBA frame.
// Pix is tightly packed non-premultiplied RGBA (stride == 4*Width).
type Frame struct {
	Pix            []byte
	Width          int
	Height         int
	OriginalWidth  int
	OriginalHeight int
	Kind           Kind
}
