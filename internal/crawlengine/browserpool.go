package crawlengine

import (
	"context"
	"sync"
)

// browserHandle is one worker group's shared chromedp browser,
// swappable in place when chromedp reports it dead. Every worker in
// the group reads the current (context, generation) pair before each
// page and calls relaunch after a browser-closed failure; relaunch is
// single-flight per generation, so the first worker to notice a dead
// browser pays the relaunch cost and every sibling that calls in with
// the same stale generation just gets handed the context it installed.
type browserHandle struct {
	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	generation uint64
	userAgent  string
}

func newBrowserHandle(parent context.Context, userAgent string) (*browserHandle, error) {
	ctx, cancel, err := newBrowserContext(parent, userAgent)
	if err != nil {
		return nil, err
	}
	return &browserHandle{ctx: ctx, cancel: cancel, userAgent: userAgent}, nil
}

// current returns the live browser context and the generation it was
// issued at, for the caller to hand back to relaunch if that context
// turns out to be dead.
func (h *browserHandle) current() (context.Context, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ctx, h.generation
}

// relaunch replaces the dead browser with a freshly launched one,
// unless another worker already relaunched since staleGen was
// observed — in which case this call is a no-op that just returns the
// context that relaunch installed.
func (h *browserHandle) relaunch(parent context.Context, staleGen uint64) (context.Context, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.generation != staleGen {
		return h.ctx, h.generation
	}

	newCtx, newCancel, err := newBrowserContext(parent, h.userAgent)
	if err != nil {
		// Leave the dead context installed; callers keep failing with
		// browser-closed and keep retrying the relaunch themselves.
		return h.ctx, h.generation
	}

	oldCancel := h.cancel
	h.ctx = newCtx
	h.cancel = newCancel
	h.generation++
	oldCancel()
	return h.ctx, h.generation
}

// close tears down whatever browser is currently live. Safe to call
// once the worker group sharing this handle has fully drained.
func (h *browserHandle) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancel()
}
