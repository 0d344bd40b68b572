package gallery

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Source loads a complete gallery snapshot.
type Source interface {
	LoadGallery(ctx context.Context) (*Gallery, error)
}

// Holder owns the reload-and-swap lifecycle of the current snapshot.
// Readers take a snapshot with Current and keep using it for the whole
// matching session even if a reload happens in the meantime.
type Holder struct {
	current atomic.Pointer[Gallery]
	source  Source
}

// NewHolder creates a holder with an initial snapshot. source may be nil when
// reloads are not supported.
func NewHolder(initial *Gallery, source Source) *Holder {
	h := &Holder{source: source}
	if initial == nil {
		initial = &Gallery{byID: map[string]int{}}
	}
	h.current.Store(initial)
	return h
}

// Current returns the active snapshot.
func (h *Holder) Current() *Gallery {
	return h.current.Load()
}

// Swap installs g as the active snapshot and returns the previous one.
func (h *Holder) Swap(g *Gallery) *Gallery {
	if g == nil {
		g = &Gallery{byID: map[string]int{}}
	}
	return h.current.Swap(g)
}

// Reload loads a fresh snapshot from the source and swaps it in. On error the
// active snapshot is left untouched.
func (h *Holder) Reload(ctx context.Context) (*Gallery, error) {
	if h.source == nil {
		return nil, ErrNoSource
	}
	g, err := h.source.LoadGallery(ctx)
	if err != nil {
		return nil, fmt.Errorf("reloading gallery: %w", err)
	}
	h.Swap(g)
	return g, nil
}
