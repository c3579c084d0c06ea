package e2e

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mangad/internal/httpapi"
	"mangad/internal/loader"
	"mangad/internal/media"
	"mangad/internal/reader"
	"mangad/internal/registry"
	"mangad/internal/texcache"
	"mangad/pkg/types"
)

// createStripDir writes n PNG pages of w×h plus any extra files (name →
// content) and returns the directory.
func createStripDir(t *testing.T, n, w, h int, extra map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		img.Set(0, 0, color.NRGBA{R: uint8(i), G: 10, B: 20, A: 255})
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("page%d.png", i+1)))
		if err != nil {
			t.Fatalf("create page: %v", err)
		}
		if err := png.Encode(f, img); err != nil {
			t.Fatalf("encode page: %v", err)
		}
		f.Close()
	}
	for name, b := range extra {
		if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

// texture is the handle type used by these tests.
type texture struct{ w, h int }

type statusService struct{ r *reader.Reader[texture] }

func (s statusService) Status() types.StatusResponse { return s.r.Status() }
func (s statusService) Ready() bool                  { return true }

// newStack wires the whole pipeline over dir with real decoding. Video tools
// point at missing binaries so videos take the placeholder path.
func newStack(t *testing.T, dir string, capacity int) (*reader.Reader[texture], *loader.Loader, *httptest.Server, []types.MediaItem) {
	t.Helper()
	items, err := registry.LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	codec := media.NewCodec(media.FFmpeg{FFmpegBin: "/nonexistent/ffmpeg", FFprobeBin: "/nonexistent/ffprobe"})
	ld := loader.New(loader.Config{Decoder: codec, Prober: codec, IdlePoll: 10 * time.Millisecond})
	up := reader.UploaderFunc[texture](func(img loader.DecodedImage) (texture, error) {
		return texture{w: img.Width, h: img.Height}, nil
	})
	r := reader.New[texture](ld, texcache.New[texture](capacity), up, reader.Config{MaxTextureSide: 256})
	r.SetItems(t.Context(), registry.Paths(items))
	srv := httptest.NewServer(httpapi.NewMux(statusService{r: r}))
	t.Cleanup(func() {
		srv.Close()
		_ = r.Close()
	})
	return r, ld, srv, items
}

// frameUntil pumps frames at visible until cond holds.
func frameUntil(t *testing.T, r *reader.Reader[texture], visible, count int, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		r.Frame(visible, count)
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("pipeline did not converge at visible=%d", visible)
}

func get(t *testing.T, url string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, b
}

// cached reports membership from the last status snapshot without touching
// recency.
func cached(r *reader.Reader[texture], index int) bool {
	for _, i := range r.Status().Cache.Indices {
		if i == index {
			return true
		}
	}
	return false
}
