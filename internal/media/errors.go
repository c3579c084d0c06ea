package media

// unsupportedMediaError signals a path whose extension no decode path accepts.
type unsupportedMediaError struct{ path string }

func (e unsupportedMediaError) Error() string { return "unsupported media: " + e.path }

// IsUnsupportedMedia reports whether err indicates an unsupported file type.
func IsUnsupportedMedia(err error) bool {
	_, ok := err.(unsupportedMediaError)
	return ok
}

// toolUnavailableError signals a missing external binary (ffmpeg/ffprobe).
type toolUnavailableError struct{ tool string }

func (e toolUnavailableError) Error() string { return "external tool unavailable: " + e.tool }

// ErrToolUnavailable constructs a toolUnavailableError.
func ErrToolUnavailable(tool string) error { return toolUnavailableError{tool: tool} }

// IsToolUnavailable reports whether err indicates a missing external tool.
func IsToolUnavailable(err error) bool {
	_, ok := err.(toolUnavailableError)
	return ok
}

// decodeFailedError wraps any failure to read or decode a supported file.
type decodeFailedError struct {
	path string
	err  error
}

func (e decodeFailedError) Error() string { return "decode " + e.path + ": " + e.err.Error() }

func (e decodeFailedError) Unwrap() error { return e.err }

// IsDecodeFailed reports whether err came from a corrupt or unreadable source.
func IsDecodeFailed(err error) bool {
	_, ok := err.(decodeFailedError)
	return ok
}
