package banner

import (
	"errors"
	"sync"
)

// ErrAlreadyMounted signals a second live element on a MemorySurface.
var ErrAlreadyMounted = errors.New("banner: element already mounted")

// MemorySurface keeps the mounted banner in memory. The web server renders
// from it and tests inspect it.
type MemorySurface struct {
	mu       sync.RWMutex
	current  *Notice
	fading   bool
	elements int
	mounts   int
}

func NewMemorySurface() *MemorySurface {
	return &MemorySurface{}
}

func (m *MemorySurface) Mount(n Notice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.elements > 0 {
		return ErrAlreadyMounted
	}
	m.current = &n
	m.fading = false
	m.elements = 1
	m.mounts++
	return nil
}

func (m *MemorySurface) Fade() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.elements > 0 {
		m.fading = true
	}
}

func (m *MemorySurface) Unmount() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	m.fading = false
	m.elements = 0
}

// Current returns the mounted notice and whether it is fading out.
func (m *MemorySurface) Current() (n Notice, fading bool, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Notice{}, false, false
	}
	return *m.current, m.fading, true
}

// Elements is the number of banner elements present right now.
func (m *MemorySurface) Elements() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.elements
}

// Mounts counts every successful Mount since creation.
func (m *MemorySurface) Mounts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mounts
}

// Multi fans a banner out to several surfaces, e.g. memory for the web
// page plus a terminal. The first Mount error aborts and unmounts the
// surfaces already mounted.
type Multi []Surface

func (ms Multi) Mount(n Notice) error {
	for i, s := range ms {
		if err := s.Mount(n); err != nil {
			for _, done := range ms[:i] {
				done.Unmount()
			}
			return err
		}
	}
	return nil
}

func (ms Multi) Fade() {
	for _, s := range ms {
		s.Fade()
	}
}

func (ms Multi) Unmount() {
	for _, s := range ms {
		s.Unmount()
	}
}
