package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"mangad/internal/media"
)

// pages returns n supported item paths.
func pages(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("/strip/page%03d.png", i)
	}
	return out
}

// fakeDecoder returns a 2x2 frame for every path. When gate is non-nil each
// decode blocks until a value is received from it.
type fakeDecoder struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
	gate  chan struct{}
	// onDecode runs before the decode returns
	onDecode func(path string)
}

func (f *fakeDecoder) Decode(ctx context.Context, path string, maxSide int) (media.Frame, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	fail := f.fail[path]
	f.mu.Unlock()
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return media.Frame{}, ctx.Err()
		}
	}
	if f.onDecode != nil {
		f.onDecode(path)
	}
	if fail {
		return media.Frame{}, errors.New("corrupt")
	}
	return media.Frame{Pix: make([]byte, 16), Width: 2, Height: 2, OriginalWidth: 200, OriginalHeight: 300, Kind: media.StaticImage}, nil
}

func (f *fakeDecoder) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// fakeProber answers 100x150 for every path unless listed in fail.
type fakeProber struct {
	mu    sync.Mutex
	calls int
	fail  map[string]bool
}

func (f *fakeProber) Probe(ctx context.Context, path string) (media.Dimensions, error) {
	f.mu.Lock()
	f.calls++
	fail := f.fail[path]
	f.mu.Unlock()
	if fail {
		return media.Dimensions{}, errors.New("bad header")
	}
	return media.Dimensions{Width: 100, Height: 150, Kind: media.StaticImage}, nil
}

func (f *fakeProber) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", d)
}

// testConfig returns a Config with fakes and a short idle poll.
func testConfig(dec Decoder, pr Prober) Config {
	return Config{
		Decoder:  dec,
		Prober:   pr,
		IdlePoll: 10 * time.Millisecond,
		Workers:  2,
	}
}

// queued drains the request channel of an unstarted loader.
func queued(l *Loader) []LoadRequest {
	var out []LoadRequest
	drain(l.requests, func(r LoadRequest) { out = append(out, r) })
	return out
}
