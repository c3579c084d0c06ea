// Package texcache is a bounded least-recently-used map from item index to
// an uploaded texture handle. It is owned by the UI goroutine and does no
// locking of its own.
package texcache
