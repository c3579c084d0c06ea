package loader

import (
	"sync"
	"sync/atomic"
)

// genSet is a set of item indices where each member remembers the
// generation that added it. Every method takes the lock for exactly one
// operation; no lock is ever held across a channel operation or a decode.
type genSet struct {
	mu sync.RWMutex
	m  map[int]uint64
}

func newGenSet() *genSet { return &genSet{m: make(map[int]uint64)} }

func (s *genSet) Add(index int, gen uint64) {
	s.mu.Lock()
	s.m[index] = gen
	s.mu.Unlock()
}

// AddIfCurrent inserts index only while cur still equals gen. The check
// happens under the set's lock so it cannot interleave with a wipe that
// follows a generation bump.
func (s *genSet) AddIfCurrent(index int, gen uint64, cur *atomic.Uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur.Load() != gen {
		return false
	}
	s.m[index] = gen
	return true
}

func (s *genSet) Remove(index int) {
	s.mu.Lock()
	delete(s.m, index)
	s.mu.Unlock()
}

// RemoveIfGen deletes index only if it was added by gen.
func (s *genSet) RemoveIfGen(index int, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.m[index]; ok && g == gen {
		delete(s.m, index)
		return true
	}
	return false
}

func (s *genSet) Contains(index int) bool {
	s.mu.RLock()
	_, ok := s.m[index]
	s.mu.RUnlock()
	return ok
}

func (s *genSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

func (s *genSet) Clear() {
	s.mu.Lock()
	s.m = make(map[int]uint64)
	s.mu.Unlock()
}

// attemptTable counts failed decodes per index within one generation.
type attemptTable struct {
	mu sync.Mutex
	m  map[int]attempt
}

type attempt struct {
	gen uint64
	n   int
}

func newAttemptTable() *attemptTable { return &attemptTable{m: make(map[int]attempt)} }

// Fail records a failure for index under gen and returns the running count.
func (t *attemptTable) Fail(index int, gen uint64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	a := t.m[index]
	if a.gen != gen {
		a = attempt{gen: gen}
	}
	a.n++
	t.m[index] = a
	return a.n
}

// Count returns failures recorded for index under gen.
func (t *attemptTable) Count(index int, gen uint64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.m[index]; ok && a.gen == gen {
		return a.n
	}
	return 0
}

// AtLeast counts indices with n or more failures under gen.
func (t *attemptTable) AtLeast(n int, gen uint64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := 0
	for _, a := range t.m {
		if a.gen == gen && a.n >= n {
			c++
		}
	}
	return c
}

func (t *attemptTable) Clear() {
	t.mu.Lock()
	t.m = make(map[int]attempt)
	t.mu.Unlock()
}

// sharedState is handed to both background goroutines at construction.
type sharedState struct {
	generation atomic.Uint64
	shutdown   atomic.Bool
	loading    *genSet
	loaded     *genSet
	attempts   *attemptTable
}

func newSharedState() *sharedState {
	return &sharedState{
		loading:  newGenSet(),
		loaded:   newGenSet(),
		attempts: newAttemptTable(),
	}
}

func (s *sharedState) current() uint64 { return s.generation.Load() }
