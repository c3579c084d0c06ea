// Package media knows how to classify, measure and decode the files a strip
// reader shows. It is split by concern:
//
//   - kind.go: extension tables and the Kind/Class enums.
//   - natsort.go: natural filename ordering used when listing directories.
//   - image.go: header-only probing and full decode of still/animated images.
//   - resize.go: aspect-preserving downscale to a maximum texture side.
//   - ffmpeg.go: ffprobe/ffmpeg subprocess collaborator for video sources.
//   - codec.go: Codec, the single entry point the loader calls from its workers.
//   - errors.go: error types and helpers (IsUnsupportedMedia, IsToolUnavailable, ...).
//
// Nothing in this package keeps state between calls other than the configured
// tool paths, so a Codec may be shared by any number of goroutines.
package media
