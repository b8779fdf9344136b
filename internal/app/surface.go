package app

import (
	"context"
	"errors"
	"sync"

	"voxtodo/internal/service"
)

// ErrNoSurface is returned by Confirm when nothing interactive is attached.
var ErrNoSurface = errors.New("no interactive surface")

// SurfaceSwitch forwards to the currently attached surface. Collaborators
// built before the surface exists (trigger alerts, permission prompts) hold
// the switch instead.
type SurfaceSwitch struct {
	mu sync.RWMutex
	s  service.Surface
}

// Set attaches s. A nil s detaches.
func (w *SurfaceSwitch) Set(s service.Surface) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.s = s
}

func (w *SurfaceSwitch) get() service.Surface {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.s
}

// Alert implements service.Surface.
func (w *SurfaceSwitch) Alert(msg string) {
	if s := w.get(); s != nil {
		s.Alert(msg)
	}
}

// Status implements service.Surface.
func (w *SurfaceSwitch) Status(msg string) {
	if s := w.get(); s != nil {
		s.Status(msg)
	}
}

// Confirm implements service.Surface.
func (w *SurfaceSwitch) Confirm(ctx context.Context, question string) (bool, error) {
	if s := w.get(); s != nil {
		return s.Confirm(ctx, question)
	}
	return false, ErrNoSurface
}
