package upload

import (
	"sync"

	"github.com/google/uuid"
)

// PreviewHandle identifies locally held preview bytes.
type PreviewHandle string

// PreviewStore keeps the bytes behind preview handles until they are
// released. Every handle is released at most once.
type PreviewStore struct {
	mu       sync.Mutex
	previews map[PreviewHandle][]byte
}

func NewPreviewStore() *PreviewStore {
	return &PreviewStore{previews: make(map[PreviewHandle][]byte)}
}

// Acquire registers data and returns its handle.
func (s *PreviewStore) Acquire(data []byte) PreviewHandle {
	h := PreviewHandle("preview:" + uuid.New().String())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.previews[h] = data
	return h
}

// Open returns the bytes behind h, or false once h has been released.
func (s *PreviewStore) Open(h PreviewHandle) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.previews[h]
	return data, ok
}

// Release frees h. It reports false if h was unknown or already released.
func (s *PreviewStore) Release(h PreviewHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.previews[h]; !ok {
		return false
	}
	delete(s.previews, h)
	return true
}

// Len returns the number of outstanding handles.
func (s *PreviewStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.previews)
}
