package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strings"
	"time"
)

const defaultToolTimeout = 15 * time.Second

// FFmpeg shells out to ffprobe/ffmpeg for video sources. Zero values pick
// the binaries from PATH and a default per-call timeout.
type FFmpeg struct {
	FFmpegBin  string
	FFprobeBin string
	Timeout    time.Duration
}

func (t FFmpeg) ffmpeg() string {
	if s := strings.TrimSpace(t.FFmpegBin); s != "" {
		return s
	}
	return "ffmpeg"
}

func (t FFmpeg) ffprobe() string {
	if s := strings.TrimSpace(t.FFprobeBin); s != "" {
		return s
	}
	return "ffprobe"
}

func (t FFmpeg) timeout() time.Duration {
	if t.Timeout <= 0 {
		return defaultToolTimeout
	}
	return t.Timeout
}

// run executes bin and returns stdout. A missing binary maps to
// toolUnavailableError so callers can tell it apart from a bad file.
func (t FFmpeg) run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout())
	defer cancel()
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, ErrToolUnavailable(bin)
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 256 {
			msg = msg[:256]
		}
		return nil, fmt.Errorf("%s: %w: %s", bin, err, msg)
	}
	return stdout.Bytes(), nil
}

type ffprobeOutput struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
}

// Probe asks ffprobe for the first video stream's size.
func (t FFmpeg) Probe(ctx context.Context, path string) (int, int, error) {
	out, err := t.run(ctx, t.ffprobe(),
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		path)
	if err != nil {
		return 0, 0, err
	}
	var res ffprobeOutput
	if err := json.Unmarshal(out, &res); err != nil {
		return 0, 0, fmt.Errorf("ffprobe output: %w", err)
	}
	if len(res.Streams) == 0 || res.Streams[0].Width <= 0 || res.Streams[0].Height <= 0 {
		return 0, 0, fmt.Errorf("ffprobe: no video stream in %s", path)
	}
	return res.Streams[0].Width, res.Streams[0].Height, nil
}

// ExtractFrame decodes the first video frame as PNG over a pipe.
func (t FFmpeg) ExtractFrame(ctx context.Context, path string) (image.Image, error) {
	out, err := t.run(ctx, t.ffmpeg(),
		"-v", "error",
		"-nostdin",
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-c:v", "png",
		"-")
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("ffmpeg frame: %w", err)
	}
	return img, nil
}

// ToolReport describes whether the external video tools can be found.
type ToolReport struct {
	FFmpegFound  bool   `json:"ffmpeg_found"`
	FFmpegPath   string `json:"ffmpeg_path,omitempty"`
	FFprobeFound bool   `json:"ffprobe_found"`
	FFprobePath  string `json:"ffprobe_path,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Check resolves both binaries without running them.
func (t FFmpeg) Check() ToolReport {
	var r ToolReport
	var missing []string
	if p, err := exec.LookPath(t.ffmpeg()); err == nil {
		r.FFmpegFound, r.FFmpegPath = true, p
	} else {
		missing = append(missing, t.ffmpeg())
	}
	if p, err := exec.LookPath(t.ffprobe()); err == nil {
		r.FFprobeFound, r.FFprobePath = true, p
	} else {
		missing = append(missing, t.ffprobe())
	}
	if len(missing) > 0 {
		r.Error = "not found: " + strings.Join(missing, ", ")
	}
	return r
}
