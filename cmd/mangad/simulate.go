package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mangad/internal/httpapi"
	"mangad/internal/loader"
	"mangad/internal/reader"
	"mangad/internal/registry"
	"mangad/internal/texcache"
	"mangad/pkg/types"
)

// cpuTexture stands in for a GPU handle when no renderer is attached.
type cpuTexture struct {
	Width  int
	Height int
	Bytes  int
}

// cpuUploader accepts any well-formed RGBA buffer.
type cpuUploader struct{}

func (cpuUploader) Upload(img loader.DecodedImage) (cpuTexture, error) {
	if img.Width <= 0 || img.Height <= 0 || len(img.Pixels) != 4*img.Width*img.Height {
		return cpuTexture{}, fmt.Errorf("index %d: malformed %dx%d buffer of %d bytes", img.Index, img.Width, img.Height, len(img.Pixels))
	}
	return cpuTexture{Width: img.Width, Height: img.Height, Bytes: len(img.Pixels)}, nil
}

// readerService exposes a Reader's snapshot to httpapi.
type readerService struct {
	status func() types.StatusResponse
	ready  atomic.Bool
}

func (s *readerService) Status() types.StatusResponse { return s.status() }
func (s *readerService) Ready() bool                  { return s.ready.Load() }

type simulateFlags struct {
	steps        int
	speed        int
	visibleCount int
	jumpAt       int
	jumpTo       int
	fps          int
	cacheSize    int
	maxSide      int
	prime        int
	workers      int
	listen       string
	corsOrigins  string
	rateLimit    int
	hold         bool
}

// scrollPosition returns the visible index at step for a constant-speed
// scroll with an optional single jump, clamped to [0, total).
func scrollPosition(f simulateFlags, step, total int) int {
	pos := step * f.speed
	if f.jumpAt >= 0 && step >= f.jumpAt {
		pos = f.jumpTo + (step-f.jumpAt)*f.speed
	}
	if pos < 0 {
		pos = 0
	}
	if total > 0 && pos >= total {
		pos = total - 1
	}
	return pos
}

func newSimulateCmd(opts *options) *cobra.Command {
	f := simulateFlags{}
	cmd := &cobra.Command{
		Use:     "simulate [dir]",
		Short:   "Drive the prefetch engine through a scripted scroll with a CPU uploader",
		Example: "  mangad simulate ~/manga/ch01 --steps 300 --jump-at 100 --jump-to 250\n  mangad simulate ~/manga/ch01 --listen :8080 --hold",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := mediaDir(opts, args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("cache") && opts.cfg.CacheCapacity > 0 {
				f.cacheSize = opts.cfg.CacheCapacity
			}
			if !cmd.Flags().Changed("max-side") && opts.cfg.MaxTextureSide > 0 {
				f.maxSide = opts.cfg.MaxTextureSide
			}
			if !cmd.Flags().Changed("listen") && opts.cfg.Addr != "" {
				f.listen = opts.cfg.Addr
			}
			if !cmd.Flags().Changed("cors-origins") && len(opts.cfg.CORSOrigins) > 0 {
				f.corsOrigins = strings.Join(opts.cfg.CORSOrigins, ",")
			}
			if !cmd.Flags().Changed("rate-limit") && opts.cfg.RateLimit > 0 {
				f.rateLimit = opts.cfg.RateLimit
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSimulate(ctx, cmd, opts, dir, f)
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&f.steps, "steps", 200, "Frames to simulate")
	fl.IntVar(&f.speed, "speed", 1, "Items scrolled per frame (negative scrolls up)")
	fl.IntVar(&f.visibleCount, "visible", 3, "Items visible at once")
	fl.IntVar(&f.jumpAt, "jump-at", -1, "Frame at which to jump (-1 disables)")
	fl.IntVar(&f.jumpTo, "jump-to", 0, "Target index of the jump")
	fl.IntVar(&f.fps, "fps", 60, "Simulated frame rate")
	fl.IntVar(&f.cacheSize, "cache", 64, "Texture cache capacity")
	fl.IntVar(&f.maxSide, "max-side", 2048, "Maximum decoded texture side")
	fl.IntVar(&f.prime, "prime", 8, "Items probed synchronously before the first frame")
	fl.IntVar(&f.workers, "workers", 0, "Parallel decodes (0 = GOMAXPROCS)")
	fl.StringVar(&f.listen, "listen", "", "Serve /status, /events and /metrics on this address, e.g. :8080")
	fl.StringVar(&f.corsOrigins, "cors-origins", "", "Comma-separated CORS origins for --listen")
	fl.IntVar(&f.rateLimit, "rate-limit", 0, "Requests per minute per client IP for --listen (0 disables)")
	fl.BoolVar(&f.hold, "hold", false, "Keep serving after the scroll finishes until interrupted")
	return cmd
}

func runSimulate(ctx context.Context, cmd *cobra.Command, opts *options, dir string, f simulateFlags) error {
	log := opts.log
	items, err := registry.LoadDir(dir)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("no supported media in %s", dir)
	}

	var hub *httpapi.EventHub
	if f.listen != "" {
		hub = httpapi.NewEventHub()
		defer hub.Close()
	}
	pub := loader.MultiPublisher(&logPublisher{log: log.With().Str("component", "events").Logger()}, eventSink(hub))
	lc := loader.Config{Logger: &log, Publisher: pub}
	opts.cfg.Apply(&lc)
	if f.workers > 0 {
		lc.Workers = f.workers
	}
	ld := loader.New(lc)
	cache := texcache.New[cpuTexture](f.cacheSize)
	r := reader.New[cpuTexture](ld, cache, cpuUploader{}, reader.Config{
		MaxTextureSide: f.maxSide,
		PrimeCount:     f.prime,
		Logger:         &log,
	})
	defer r.Close()

	svc := &readerService{status: r.Status}
	var srv *http.Server
	if f.listen != "" {
		httpapi.SetLogger(log.With().Str("component", "http").Logger())
		if origins := splitCSV(f.corsOrigins); len(origins) > 0 {
			httpapi.SetCORSOptions(true, origins, nil, nil)
		}
		httpapi.SetRateLimit(f.rateLimit, time.Minute)
		httpapi.SetEventHub(hub)
		httpapi.SetBaseContext(ctx)
		srv = &http.Server{Addr: f.listen, Handler: httpapi.NewMux(svc), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info().Str("addr", f.listen).Int("rate_limit", f.rateLimit).Msg("introspection listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("server error")
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.Warn().Err(err).Msg("graceful shutdown error")
			}
		}()
	}

	r.SetItems(ctx, registry.Paths(items))
	svc.ready.Store(true)
	log.Info().Str("dir", dir).Int("items", len(items)).Msg("simulation start")

	frame := time.Second / time.Duration(max(f.fps, 1))
	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	var uploaded, evicted int
	for step := 0; step < f.steps; step++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		visible := scrollPosition(f, step, len(items))
		st := r.Frame(visible, f.visibleCount)
		uploaded += st.Uploaded
		evicted += len(st.Evicted)
		logFrame(log, step, visible, st)
	}

	// let in-flight work land
	deadline := time.Now().Add(2 * time.Second)
	last := scrollPosition(f, f.steps-1, len(items))
	for time.Now().Before(deadline) && ctx.Err() == nil {
		st := r.Frame(last, f.visibleCount)
		uploaded += st.Uploaded
		evicted += len(st.Evicted)
		if st.PendingLoads == 0 && ld.PendingDecodedCount() == 0 {
			break
		}
		time.Sleep(frame)
	}

	log.Info().Int("uploaded", uploaded).Int("evicted", evicted).Msg("simulation done")
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.Status()); err != nil {
		return err
	}
	if srv != nil && f.hold {
		log.Info().Msg("holding; interrupt to exit")
		<-ctx.Done()
	}
	return nil
}

func logFrame(log zerolog.Logger, step, visible int, st reader.FrameStats) {
	if st.Uploaded == 0 && len(st.Evicted) == 0 {
		return
	}
	log.Debug().
		Int("step", step).
		Int("visible", visible).
		Int("uploaded", st.Uploaded).
		Ints("evicted", st.Evicted).
		Int("pending", st.PendingLoads).
		Uint64("generation", st.Generation).
		Msg("frame")
}

// logPublisher forwards loader events to the log.
type logPublisher struct{ log zerolog.Logger }

func (p *logPublisher) Publish(e loader.Event) {
	ev := p.log.Debug()
	if e.Name == "large_jump" {
		ev = p.log.Info()
	}
	ev.Str("event", e.Name).Int("index", e.Index).Uint64("generation", e.Generation).Fields(e.Fields).Msg("loader event")
}

// eventSink avoids handing MultiPublisher a typed nil.
func eventSink(h *httpapi.EventHub) loader.EventPublisher {
	if h == nil {
		return nil
	}
	return h
}
