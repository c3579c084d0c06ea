package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"mangad/internal/loader"
	"mangad/internal/media"
)

// Config holds runtime parameters for the reader and its tools.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr               string   `json:"addr" yaml:"addr" toml:"addr" validate:"omitempty,hostname_port"`
	MediaDir           string   `json:"media_dir" yaml:"media_dir" toml:"media_dir"`
	MaxTextureSide     int      `json:"max_texture_side" yaml:"max_texture_side" toml:"max_texture_side" validate:"gte=0,lte=16384"`
	CacheCapacity      int      `json:"cache_capacity" yaml:"cache_capacity" toml:"cache_capacity" validate:"gte=0"`
	Workers            int      `json:"workers" yaml:"workers" toml:"workers" validate:"gte=0,lte=256"`
	MaxDecodeAttempts  int      `json:"max_decode_attempts" yaml:"max_decode_attempts" toml:"max_decode_attempts" validate:"gte=-1"`
	LargeJumpThreshold int      `json:"large_jump_threshold" yaml:"large_jump_threshold" toml:"large_jump_threshold" validate:"gte=0"`
	UploadBatchSize    int      `json:"upload_batch_size" yaml:"upload_batch_size" toml:"upload_batch_size" validate:"gte=0"`
	FFmpegPath         string   `json:"ffmpeg_path" yaml:"ffmpeg_path" toml:"ffmpeg_path"`
	FFprobePath        string   `json:"ffprobe_path" yaml:"ffprobe_path" toml:"ffprobe_path"`
	ToolTimeoutSeconds int      `json:"tool_timeout_seconds" yaml:"tool_timeout_seconds" toml:"tool_timeout_seconds" validate:"gte=0"`
	CORSOrigins        []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins" validate:"dive,required"`
	RateLimit          int      `json:"rate_limit_per_minute" yaml:"rate_limit_per_minute" toml:"rate_limit_per_minute" validate:"gte=0"`
	LogLevel           string   `json:"log_level" yaml:"log_level" toml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat          string   `json:"log_format" yaml:"log_format" toml:"log_format" validate:"omitempty,oneof=console json"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and enumerations. The error lists every
// offending field by its config key.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("%s: failed %s", fieldKey(fe), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// fieldKey maps a struct field back to its yaml key.
func fieldKey(fe validator.FieldError) string {
	name, _, _ := strings.Cut(fe.StructField(), "[")
	if f, ok := reflect.TypeOf(Config{}).FieldByName(name); ok {
		if k, _, _ := strings.Cut(f.Tag.Get("yaml"), ","); k != "" {
			return k
		}
	}
	return fe.Field()
}

// Tool returns the external video tool described by the config.
func (c Config) Tool() media.FFmpeg {
	return media.FFmpeg{
		FFmpegBin:  c.FFmpegPath,
		FFprobeBin: c.FFprobePath,
		Timeout:    time.Duration(c.ToolTimeoutSeconds) * time.Second,
	}
}

// Apply copies every set field onto lc. Fields already set on lc win only
// when the config leaves them zero.
func (c Config) Apply(lc *loader.Config) {
	if c.Workers > 0 {
		lc.Workers = c.Workers
	}
	if c.MaxDecodeAttempts != 0 {
		lc.MaxDecodeAttempts = c.MaxDecodeAttempts
	}
	if c.LargeJumpThreshold > 0 {
		lc.LargeJumpThreshold = c.LargeJumpThreshold
	}
	if c.UploadBatchSize > 0 {
		lc.UploadBatchSize = c.UploadBatchSize
	}
	if lc.Decoder == nil || lc.Prober == nil {
		codec := media.NewCodec(c.Tool())
		if lc.Decoder == nil {
			lc.Decoder = codec
		}
		if lc.Prober == nil {
			lc.Prober = codec
		}
	}
}
