package media

import (
	"bufio"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ProbeImage reads only the header of an image file.
func ProbeImage(path string) (Dimensions, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dimensions{}, decodeFailedError{path: path, err: err}
	}
	defer f.Close()
	br := bufio.NewReader(f)
	cfg, format, err := image.DecodeConfig(br)
	if err != nil {
		return Dimensions{}, decodeFailedError{path: path, err: err}
	}
	d := Dimensions{Width: cfg.Width, Height: cfg.Height, Kind: StaticImage}
	if format == "gif" {
		if _, err := f.Seek(0, io.SeekStart); err == nil {
			if n, err := countGIFFrames(bufio.NewReader(f), 2); err == nil && n > 1 {
				d.Kind = AnimatedImage
			}
		}
	}
	return d, nil
}

// DecodeImage decodes the image at path and downscales it to maxSide.
// Animated GIFs yield their first frame composited on the logical screen.
func DecodeImage(path string, maxSide int) (Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return Frame{}, decodeFailedError{path: path, err: err}
	}
	defer f.Close()
	if ext(path) == "gif" {
		return decodeGIF(path, f, maxSide)
	}
	img, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return Frame{}, decodeFailedError{path: path, err: err}
	}
	return Downscale(img, maxSide, StaticImage), nil
}

// decodeGIF decodes only the first frame; the frame walk that decides the
// kind stops after two image descriptors.
func decodeGIF(path string, f io.ReadSeeker, maxSide int) (Frame, error) {
	cfg, err := gif.DecodeConfig(bufio.NewReader(f))
	if err != nil {
		return Frame{}, decodeFailedError{path: path, err: err}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Frame{}, decodeFailedError{path: path, err: err}
	}
	kind := StaticImage
	if n, err := countGIFFrames(bufio.NewReader(f), 2); err == nil && n > 1 {
		kind = AnimatedImage
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Frame{}, decodeFailedError{path: path, err: err}
	}
	first, err := gif.Decode(bufio.NewReader(f))
	if err != nil {
		return Frame{}, decodeFailedError{path: path, err: err}
	}
	w, h := cfg.Width, cfg.Height
	if w <= 0 || h <= 0 {
		w, h = first.Bounds().Max.X, first.Bounds().Max.Y
	}
	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, first.Bounds(), first, first.Bounds().Min, draw.Over)
	return Downscale(canvas, maxSide, kind), nil
}

// countGIFFrames walks GIF blocks and counts image descriptors, stopping
// once limit is reached. It never decodes pixel data.
func countGIFFrames(r *bufio.Reader, limit int) (int, error) {
	var hdr [13]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, err
	}
	if string(hdr[:3]) != "GIF" {
		return 0, fmt.Errorf("not a gif")
	}
	if hdr[10]&0x80 != 0 {
		if _, err := r.Discard(3 << (int(hdr[10]&0x07) + 1)); err != nil {
			return 0, err
		}
	}
	frames := 0
	for frames < limit {
		b, err := r.ReadByte()
		if err != nil {
			return frames, err
		}
		switch b {
		case 0x21: // extension: label + sub-blocks
			if _, err := r.ReadByte(); err != nil {
				return frames, err
			}
			if err := skipSubBlocks(r); err != nil {
				return frames, err
			}
		case 0x2c: // image descriptor
			var desc [9]byte
			if _, err := io.ReadFull(r, desc[:]); err != nil {
				return frames, err
			}
			if desc[8]&0x80 != 0 {
				if _, err := r.Discard(3 << (int(desc[8]&0x07) + 1)); err != nil {
					return frames, err
				}
			}
			if _, err := r.ReadByte(); err != nil { // LZW minimum code size
				return frames, err
			}
			if err := skipSubBlocks(r); err != nil {
				return frames, err
			}
			frames++
		case 0x3b:
			return frames, nil
		default:
			return frames, fmt.Errorf("gif: unknown block 0x%02x", b)
		}
	}
	return frames, nil
}

func skipSubBlocks(r *bufio.Reader) error {
	for {
		n, err := r.ReadByte()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if _, err := r.Discard(int(n)); err != nil {
			return err
		}
	}
}
