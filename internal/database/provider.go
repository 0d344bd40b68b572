package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// EventStoreOpener opens a ledger backend.
type EventStoreOpener func(ctx context.Context) (ledger.EventStore, error)

// GallerySourceOpener opens a gallery source.
type GallerySourceOpener func(ctx context.Context) (gallery.Source, error)

var (
	ErrUnknownBackend = errors.New("unknown storage backend")
	ErrNotPurgeable   = errors.New("ledger backend does not support purging")
)

var (
	registryMu      sync.RWMutex
	ledgerBackends  = map[string]EventStoreOpener{}
	galleryBackends = map[string]GallerySourceOpener{}
)

// RegisterLedgerBackend registers a ledger backend constructor under name.
// Backends register from the command layer to keep the backend packages free
// of import cycles. Registering the same name twice replaces the constructor.
func RegisterLedgerBackend(name string, open EventStoreOpener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	ledgerBackends[name] = open
}

// RegisterGallerySource registers a gallery source constructor under name.
func RegisterGallerySource(name string, open GallerySourceOpener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	galleryBackends[name] = open
}

// OpenEventStore opens the ledger backend registered under name.
func OpenEventStore(ctx context.Context, name string) (ledger.EventStore, error) {
	registryMu.RLock()
	open, ok := ledgerBackends[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: ledger backend %q (available: %v)", ErrUnknownBackend, name, LedgerBackends())
	}
	store, err := open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening %s ledger backend: %w", name, err)
	}
	return store, nil
}

// OpenGallerySource opens the gallery source registered under name.
func OpenGallerySource(ctx context.Context, name string) (gallery.Source, error) {
	registryMu.RLock()
	open, ok := galleryBackends[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: gallery source %q", ErrUnknownBackend, name)
	}
	src, err := open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening %s gallery source: %w", name, err)
	}
	return src, nil
}

// LedgerBackends returns the registered ledger backend names, sorted.
func LedgerBackends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(ledgerBackends))
	for name := range ledgerBackends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AsPurger returns store as a ledger.Purger, or ErrNotPurgeable.
func AsPurger(store ledger.EventStore) (ledger.Purger, error) {
	p, ok := store.(ledger.Purger)
	if !ok {
		return nil, ErrNotPurgeable
	}
	return p, nil
}
