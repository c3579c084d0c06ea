package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mangad/internal/loader"
	"mangad/pkg/types"
)

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"a,,c", []string{"a", "c"}},
		{"", nil},
	}
	for _, c := range cases {
		got := splitCSV(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
			}
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, "warn", "json")
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"message":"shown"`) {
		t.Fatalf("log output: %s", buf.String())
	}
	if _, err := newLogger(&buf, "loud", "json"); err == nil {
		t.Fatalf("expected error for bad level")
	}
	if _, err := newLogger(&buf, "info", "xml"); err == nil {
		t.Fatalf("expected error for bad format")
	}
}

func TestScrollPosition(t *testing.T) {
	f := simulateFlags{speed: 2, jumpAt: 5, jumpTo: 80}
	if p := scrollPosition(f, 3, 100); p != 6 {
		t.Fatalf("before jump: %d", p)
	}
	if p := scrollPosition(f, 6, 100); p != 82 {
		t.Fatalf("after jump: %d", p)
	}
	if p := scrollPosition(f, 50, 100); p != 99 {
		t.Fatalf("clamped: %d", p)
	}
	f = simulateFlags{speed: -1, jumpAt: -1}
	if p := scrollPosition(f, 4, 100); p != 0 {
		t.Fatalf("negative clamp: %d", p)
	}
}

func TestCPUUploaderValidatesBuffer(t *testing.T) {
	tex, err := cpuUploader{}.Upload(loader.DecodedImage{Width: 2, Height: 3, Pixels: make([]byte, 24)})
	if err != nil || tex.Bytes != 24 || tex.Width != 2 {
		t.Fatalf("upload: %+v %v", tex, err)
	}
	if _, err := (cpuUploader{}).Upload(loader.DecodedImage{Width: 2, Height: 3, Pixels: make([]byte, 5)}); err == nil {
		t.Fatalf("expected error for short buffer")
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestScanJSON(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "p10.png"), 4, 6)
	writePNG(t, filepath.Join(dir, "p2.png"), 8, 2)
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"scan", dir, "--json", "--log-level", "error"})
	if err := root.Execute(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	var items []types.MediaItem
	if err := json.Unmarshal(out.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if len(items) != 2 || items[0].Name != "p2.png" || items[1].Name != "p10.png" {
		t.Fatalf("items: %+v", items)
	}
	if items[0].Width != 8 || items[0].Height != 2 || items[0].Kind != "static" {
		t.Fatalf("probe: %+v", items[0])
	}
}

func TestScanUsesConfigMediaDir(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 1, 1)
	cfgPath := filepath.Join(t.TempDir(), "mangad.yaml")
	if err := os.WriteFile(cfgPath, []byte("media_dir: "+dir+"\nlog_level: error\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"scan", "--config", cfgPath})
	if err := root.Execute(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !strings.Contains(out.String(), "a.png") || !strings.Contains(out.String(), "1x1") {
		t.Fatalf("table output: %s", out.String())
	}
}

func TestScanRequiresDir(t *testing.T) {
	root := newRootCmd(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"scan"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected error without a directory")
	}
}

func TestCheckReportsMissingTools(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "mangad.json")
	if err := os.WriteFile(cfgPath, []byte(`{"ffmpeg_path":"/nonexistent/ffmpeg","ffprobe_path":"/nonexistent/ffprobe"}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"check", "--config", cfgPath, "--strict"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected strict check to fail")
	}
	if !strings.Contains(out.String(), `"ffmpeg_found": false`) {
		t.Fatalf("report: %s", out.String())
	}
}

func TestSimulateRunsToCompletion(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 12; i++ {
		writePNG(t, filepath.Join(dir, "page"+string(rune('a'+i))+".png"), 16, 24)
	}
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"simulate", dir, "--steps", "20", "--fps", "500", "--cache", "4", "--log-level", "error"})
	if err := root.Execute(); err != nil {
		t.Fatalf("simulate: %v", err)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(out.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out.String())
	}
	if st.Items != 12 || st.Cache.Capacity != 4 || st.Cache.Entries > 4 || st.Loader.ImagesLoaded == 0 {
		t.Fatalf("status: %+v", st)
	}
}

func TestInvalidConfigIsRejected(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "mangad.yaml")
	if err := os.WriteFile(cfg, []byte("workers: -4\nlog_format: xml\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	root := newRootCmd(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"check", "--config", cfg})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "workers") || !strings.Contains(err.Error(), "log_format") {
		t.Fatalf("expected validation error naming both keys, got %v", err)
	}
}
