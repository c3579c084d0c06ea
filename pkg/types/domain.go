package types

// MediaItem is one entry of a strip, in reading order.
type MediaItem struct {
	// Position in the strip.
	// example: 3
	Index int `json:"index" example:"3"`
	// File name without directory.
	// example: page004.webp
	Name string `json:"name" example:"page004.webp"`
	// Absolute path on disk.
	// example: /home/user/manga/ch01/page004.webp
	Path string `json:"path" example:"/home/user/manga/ch01/page004.webp"`
	// image or video.
	// example: image
	Class string `json:"class" example:"image"`
	// Header dimensions when known.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
	// static, animated or video once probed.
	Kind string `json:"kind,omitempty"`
}
