package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"mangad/internal/loader"
	"mangad/internal/media"
	"mangad/internal/texcache"
)

type fakeCodec struct{}

func (fakeCodec) Decode(ctx context.Context, path string, maxSide int) (media.Frame, error) {
	return media.Frame{Pix: make([]byte, 4), Width: 1, Height: 1, OriginalWidth: 800, OriginalHeight: 1200, Kind: media.StaticImage}, nil
}

func (fakeCodec) Probe(ctx context.Context, path string) (media.Dimensions, error) {
	return media.Dimensions{Width: 800, Height: 1200, Kind: media.StaticImage}, nil
}

// fakeUploader hands out "tex-<index>" handles and fails the first upload
// of every index listed in failOnce.
type fakeUploader struct {
	mu       sync.Mutex
	uploads  map[int]int
	failOnce map[int]bool
}

func (u *fakeUploader) Upload(img loader.DecodedImage) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.uploads == nil {
		u.uploads = make(map[int]int)
	}
	u.uploads[img.Index]++
	if u.failOnce[img.Index] && u.uploads[img.Index] == 1 {
		return "", errors.New("out of texture memory")
	}
	return fmt.Sprintf("tex-%d", img.Index), nil
}

func items(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("/ch01/%03d.jpg", i)
	}
	return out
}

func newTestReader(t *testing.T, capacity int, up Uploader[string]) (*Reader[string], *loader.Loader) {
	t.Helper()
	ld := loader.New(loader.Config{Decoder: fakeCodec{}, Prober: fakeCodec{}, IdlePoll: 10 * time.Millisecond, Workers: 2})
	r := New[string](ld, texcache.New[string](capacity), up, Config{MaxTextureSide: 512})
	t.Cleanup(func() { _ = r.Close() })
	return r, ld
}

// pump runs frames until cond holds or the deadline passes.
func pump(t *testing.T, r *Reader[string], visible, count int, cond func(FrameStats) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond(r.Frame(visible, count)) {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("frames did not converge")
}
