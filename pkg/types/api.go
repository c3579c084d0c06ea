package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: reader not started
	Error string `json:"error" example:"reader not started"`
	// HTTP status code.
	// example: 503
	Code int `json:"code" example:"503"`
}

// LoaderStatus summarizes the prefetch engine.
type LoaderStatus struct {
	// Current cancellation epoch.
	// example: 4
	Generation uint64 `json:"generation" example:"4"`
	// Indices with a decode in flight.
	PendingLoads int `json:"pending_loads"`
	// Decoded results waiting for upload.
	PendingDecoded int `json:"pending_decoded"`
	// Indices with an outstanding dimension probe.
	PendingDimensions int `json:"pending_dimensions"`
	// Entries in the dimension cache.
	CachedDimensions int `json:"cached_dimensions"`
	// Results delivered since the last clear.
	ImagesLoaded int `json:"images_loaded"`
	// Indices that hit the decode retry cap this generation.
	Failed int `json:"failed"`
	// +1 forward, -1 backward.
	ScrollDirection int `json:"scroll_direction"`
	// Preload window of the last frame, [start, end).
	WindowStart int `json:"window_start"`
	WindowEnd   int `json:"window_end"`
}

// CacheStatus summarizes the texture cache.
type CacheStatus struct {
	// example: 12
	Entries int `json:"entries" example:"12"`
	// example: 64
	Capacity int `json:"capacity" example:"64"`
	// Frame counter.
	Tick uint64 `json:"tick"`
	// Cached indices in ascending order.
	Indices []int `json:"indices"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Number of items in the active strip.
	// example: 120
	Items int `json:"items" example:"120"`
	// Item currently at the top of the viewport.
	// example: 17
	VisibleIndex int `json:"visible_index" example:"17"`
	// Frames pumped since start.
	Frames uint64 `json:"frames"`
	Loader LoaderStatus `json:"loader"`
	Cache  CacheStatus  `json:"cache"`
	// Uploads rejected by the uploader since start.
	UploadErrors uint64 `json:"upload_errors"`
	// Uptime of the reader in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	ServerTimeUnix int64 `json:"server_time_unix"`
}

// EventMessage is one loader event as pushed over GET /events.
type EventMessage struct {
	// example: large_jump
	Name string `json:"name" example:"large_jump"`
	// -1 when the event is not about a single item.
	Index      int            `json:"index"`
	Generation uint64         `json:"generation"`
	Fields     map[string]any `json:"fields,omitempty"`
	// Unix milliseconds at publish time.
	TimeUnixMs int64 `json:"time_unix_ms"`
}
