package clinical

import (
	"context"
	"sync"
)

// Browser tracks which section the operator has open. At most one key is open;
// the pointer is independent of fetch status, so closing a section never clears
// its entry or stops its fetch.
type Browser struct {
	store *Store

	mu   sync.Mutex
	open *Key
}

// NewBrowser returns a browser with nothing open.
func NewBrowser(store *Store) *Browser {
	return &Browser{store: store}
}

// Toggle closes key when it is the open section, otherwise opens it. It
// reports whether key is open afterwards.
func (b *Browser) Toggle(ctx context.Context, key Key) (bool, error) {
	b.mu.Lock()
	if b.open != nil && *b.open == key {
		b.open = nil
		b.mu.Unlock()
		return false, nil
	}
	b.mu.Unlock()

	if err := b.Open(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

// Open points the browser at key and makes sure its data is loading or loaded.
func (b *Browser) Open(ctx context.Context, key Key) error {
	if _, err := b.store.EnsureLoaded(ctx, key); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	k := key
	b.open = &k
	return nil
}

// Close clears the open pointer.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = nil
}

// OpenSection returns the open key, if any.
func (b *Browser) OpenSection() (Key, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open == nil {
		return Key{}, false
	}
	return *b.open, true
}
