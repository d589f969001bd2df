package store

import (
	"hash/fnv"
	"sync"
)

// stripedLocks gives each aggregate id a serialized writer while leaving
// reads unrestricted (spec.md §5). A fixed number of stripes bounds memory
// without needing to track every id ever seen.
type stripedLocks struct {
	stripes []sync.Mutex
}

func newStripedLocks(n int) *stripedLocks {
	return &stripedLocks{stripes: make([]sync.Mutex, n)}
}

func (s *stripedLocks) stripe(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.stripes[h.Sum32()%uint32(len(s.stripes))]
}

// withWriteLock serializes writers to the same aggregate id.
func (s *stripedLocks) withWriteLock(id string, fn func() error) error {
	m := s.stripe(id)
	m.Lock()
	defer m.Unlock()
	return fn()
}
