// Package loader keeps a strip reader's decoded media ahead of (and behind)
// the viewport. It is structured into small files by concern:
//
//   - loader.go: Loader facade, constructor, lifecycle and introspection.
//   - config.go: Config and package defaults; New applies defaults.
//   - types.go: LoadRequest, DecodedImage and the dimension messages.
//   - state.go: generation counter and generation-tagged index sets shared
//     with the background goroutines.
//   - window.go: preload window sizing, priorities and enqueue.
//   - cancel.go: CancelPendingLoads/Clear generation fencing.
//   - coordinator.go: the decode goroutine (batching, urgent-first, fan-out).
//   - prober.go: the dimension probe goroutine.
//   - dimensions.go: facade side of dimension probing and the dimension cache.
//   - events.go, metrics.go: observability.
//
// Threading model: the Loader's exported methods belong to a single owner
// goroutine (the UI loop) and never block. Two background goroutines, the
// decode coordinator and the dimension prober, talk to it only through
// bounded channels, an atomic generation counter and the lock-scoped index
// sets in state.go.
package loader
