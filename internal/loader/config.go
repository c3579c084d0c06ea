package loader

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"mangad/internal/media"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultRequestQueueSize   = 256
	defaultResultQueueSize    = 32
	defaultUploadBatchSize    = 4
	defaultAheadBonus         = 4
	defaultBehindBonus        = 2
	defaultMinPreload         = 4
	defaultMaxPreload         = 48
	defaultLargeJumpThreshold = 32
	defaultDirectionPenalty   = 10
	defaultBatchSize          = 32
	defaultIdlePoll           = 500 * time.Millisecond
	defaultDimensionBatch     = 64
	defaultDimensionChunk     = 64
	defaultDimensionQueue     = 16
	defaultDimensionResults   = 16
	defaultMaxDecodeAttempts  = 3
	// outbox retry while the dimension result channel is full
	defaultProberRetry = 20 * time.Millisecond
)

// Config encapsulates all tunables for Loader construction.
// Zero values select the package defaults.
type Config struct {
	// Decoder and Prober default to a media.Codec backed by ffmpeg/ffprobe.
	Decoder Decoder
	Prober  Prober

	RequestQueueSize int
	ResultQueueSize  int
	// UploadBatchSize caps PollDecodedImages per call.
	UploadBatchSize int

	AheadBonus         int
	BehindBonus        int
	MinPreload         int
	MaxPreload         int
	LargeJumpThreshold int
	DirectionPenalty   int

	// BatchSize caps how many requests the coordinator drains per wake.
	BatchSize int
	IdlePoll  time.Duration
	// Workers bounds parallel decodes; defaults to GOMAXPROCS.
	Workers int

	DimensionBatchSize       int
	DimensionChunkSize       int
	DimensionQueueSize       int
	DimensionResultQueueSize int

	// MaxDecodeAttempts caps failed decodes per index per generation.
	// Negative disables the cap.
	MaxDecodeAttempts int

	Logger    *zerolog.Logger
	Publisher EventPublisher
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// withDefaults returns a copy of cfg with every unset field filled in.
func (cfg Config) withDefaults() Config {
	out := cfg
	if out.Decoder == nil || out.Prober == nil {
		codec := media.NewCodec(media.FFmpeg{})
		if out.Decoder == nil {
			out.Decoder = codec
		}
		if out.Prober == nil {
			out.Prober = codec
		}
	}
	out.RequestQueueSize = orDefault(out.RequestQueueSize, defaultRequestQueueSize)
	out.ResultQueueSize = orDefault(out.ResultQueueSize, defaultResultQueueSize)
	out.UploadBatchSize = orDefault(out.UploadBatchSize, defaultUploadBatchSize)
	out.AheadBonus = orDefault(out.AheadBonus, defaultAheadBonus)
	out.BehindBonus = orDefault(out.BehindBonus, defaultBehindBonus)
	out.MinPreload = orDefault(out.MinPreload, defaultMinPreload)
	out.MaxPreload = orDefault(out.MaxPreload, defaultMaxPreload)
	if out.MaxPreload < out.MinPreload {
		out.MaxPreload = out.MinPreload
	}
	out.LargeJumpThreshold = orDefault(out.LargeJumpThreshold, defaultLargeJumpThreshold)
	out.DirectionPenalty = orDefault(out.DirectionPenalty, defaultDirectionPenalty)
	out.BatchSize = orDefault(out.BatchSize, defaultBatchSize)
	if out.IdlePoll <= 0 {
		out.IdlePoll = defaultIdlePoll
	}
	out.Workers = orDefault(out.Workers, runtime.GOMAXPROCS(0))
	out.DimensionBatchSize = orDefault(out.DimensionBatchSize, defaultDimensionBatch)
	out.DimensionChunkSize = orDefault(out.DimensionChunkSize, defaultDimensionChunk)
	out.DimensionQueueSize = orDefault(out.DimensionQueueSize, defaultDimensionQueue)
	out.DimensionResultQueueSize = orDefault(out.DimensionResultQueueSize, defaultDimensionResults)
	if out.MaxDecodeAttempts == 0 {
		out.MaxDecodeAttempts = defaultMaxDecodeAttempts
	}
	if out.Logger == nil {
		nop := zerolog.Nop()
		out.Logger = &nop
	}
	if out.Publisher == nil {
		out.Publisher = noopPublisher{}
	}
	return out
}
