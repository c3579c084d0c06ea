package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mangad/internal/media"
	"mangad/pkg/types"
)

// LoadDir scans a directory for supported images and videos and returns them
// in natural filename order. Subdirectories and unsupported files are skipped.
func LoadDir(dir string) ([]types.MediaItem, error) {
	base, err := ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if media.IsSupported(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.SliceStable(names, func(i, j int) bool { return media.NaturalLess(names[i], names[j]) })

	items := make([]types.MediaItem, len(names))
	for i, name := range names {
		items[i] = types.MediaItem{
			Index: i,
			Name:  name,
			Path:  filepath.Join(abs, name),
			Class: media.Classify(name).String(),
		}
	}
	return items, nil
}

// Paths returns the Path of every item, in order.
func Paths(items []types.MediaItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Path
	}
	return out
}

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
