package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"mangad/internal/media"
	"mangad/pkg/types"
)

// TestE2E_StripLoadsAndReportsStatus scrolls nowhere: the initial window
// must land in the cache and be visible over /status and /metrics.
func TestE2E_StripLoadsAndReportsStatus(t *testing.T) {
	dir := createStripDir(t, 20, 40, 60, nil)
	r, ld, srv, _ := newStack(t, dir, 32)

	frameUntil(t, r, 0, 2, func() bool {
		_, end := ld.LastWindow()
		return end > 0 && r.Status().Cache.Entries == end
	})
	tex, ok := r.Texture(0)
	if !ok || tex.w != 40 || tex.h != 60 {
		t.Fatalf("texture 0: %+v %v", tex, ok)
	}

	code, body := get(t, srv.URL+"/status")
	if code != http.StatusOK {
		t.Fatalf("/status code %d", code)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Items != 20 || st.Cache.Entries == 0 || st.Loader.ImagesLoaded != st.Cache.Entries {
		t.Fatalf("status: %+v", st)
	}

	code, body = get(t, srv.URL+"/metrics")
	if code != http.StatusOK {
		t.Fatalf("/metrics code %d", code)
	}
	for _, name := range []string{"mangad_loader_decodes_total", "mangad_texcache_entries", "mangad_http_requests_total"} {
		if !bytes.Contains(body, []byte(name)) {
			t.Fatalf("metrics missing %s", name)
		}
	}
}

// TestE2E_LargeJumpShowsTarget jumps far down the strip and expects the
// target to be decoded under a new generation.
func TestE2E_LargeJumpShowsTarget(t *testing.T) {
	dir := createStripDir(t, 100, 8, 8, nil)
	r, ld, _, _ := newStack(t, dir, 64)

	frameUntil(t, r, 0, 2, func() bool { _, ok := r.Texture(0); return ok })
	gen := ld.Generation()

	frameUntil(t, r, 90, 2, func() bool { _, ok := r.Texture(90); return ok })
	if ld.Generation() <= gen {
		t.Fatalf("jump did not bump generation")
	}
	if ld.ScrollDirection() != 1 {
		t.Fatalf("direction after jump: %d", ld.ScrollDirection())
	}
}

// TestE2E_SmallCacheEvictsAndReloads scrolls through more pages than the
// cache holds and comes back to the start.
func TestE2E_SmallCacheEvictsAndReloads(t *testing.T) {
	dir := createStripDir(t, 30, 8, 8, nil)
	r, ld, _, _ := newStack(t, dir, 6)

	frameUntil(t, r, 0, 1, func() bool { _, ok := r.Texture(0); return ok })
	for v := 1; v <= 20; v++ {
		r.Frame(v, 1)
	}
	frameUntil(t, r, 20, 1, func() bool { return cached(r, 20) && !cached(r, 0) })
	if r.Status().Cache.Entries > 6 {
		t.Fatalf("cache over capacity: %+v", r.Status().Cache)
	}
	if ld.IsLoaded(0) {
		t.Fatalf("evicted page still marked loaded")
	}
	frameUntil(t, r, 0, 1, func() bool { _, ok := r.Texture(0); return ok })
}

// TestE2E_CorruptImageAndVideoPlaceholder mixes a broken image and a video
// that cannot be opened with real pages.
func TestE2E_CorruptImageAndVideoPlaceholder(t *testing.T) {
	dir := createStripDir(t, 3, 8, 8, map[string][]byte{
		"page0.jpg":  []byte("not a jpeg"),
		"page2a.mp4": []byte("not a video"),
	})
	r, ld, _, items := newStack(t, dir, 16)
	if len(items) != 5 || items[0].Name != "page0.jpg" || items[3].Name != "page2a.mp4" {
		t.Fatalf("natural order: %+v", items)
	}

	frameUntil(t, r, 0, 4, func() bool {
		_, v := r.Texture(3)
		_, p := r.Texture(4)
		return v && p && ld.FailedCount() == 1
	})
	if _, ok := r.Texture(0); ok {
		t.Fatalf("corrupt page produced a texture")
	}
	kind, ok := ld.MediaKind(3)
	if !ok || kind != media.Video {
		t.Fatalf("video kind: %v %v", kind, ok)
	}
	d, _ := ld.Dimensions(3)
	if d.Width != media.FallbackVideoWidth || d.Height != media.FallbackVideoHeight {
		t.Fatalf("video fallback size: %+v", d)
	}
}
