// Package libctx holds the single open-library handle, the one piece of
// process-wide mutable state the engine keeps outside the database per
// spec.md §9 ("the open-library handle: a single mutex'd slot; None when
// closed"). Everything else stays session-scoped.
package libctx

import (
	"sync"

	"github.com/jmylchreest/camvault/internal/camerror"
	"github.com/jmylchreest/camvault/internal/models"
)

// Handle is the process-wide open-library slot.
type Handle struct {
	mu      sync.RWMutex
	library *models.Library
}

// New creates an empty (closed) handle.
func New() *Handle {
	return &Handle{}
}

// Open sets the current library, replacing any previously open one.
func (h *Handle) Open(library *models.Library) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.library = library
}

// Close clears the current library.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.library = nil
}

// Current returns the open library, or an error if none is open.
func (h *Handle) Current() (*models.Library, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.library == nil {
		return nil, camerror.New(camerror.KindLibraryNotFound, "libctx.noLibraryOpen")
	}
	return h.library, nil
}

// IsOpen reports whether a library is currently open.
func (h *Handle) IsOpen() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.library != nil
}
