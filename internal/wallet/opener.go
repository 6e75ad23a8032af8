package wallet

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"authhandler/pkg/logging"
)

// OpenFunc opens a backend.
type OpenFunc func(ctx context.Context) (Store, error)

// Opener hands out one shared Store, opening it lazily. At most one open is
// in flight; concurrent callers share its result. A failed open is not cached,
// so the next caller tries again.
type Opener struct {
	open  OpenFunc
	group singleflight.Group

	mu    sync.Mutex
	store Store
}

// NewOpener creates an Opener around open.
func NewOpener(open OpenFunc) *Opener {
	return &Opener{open: open}
}

// NewStaticOpener returns an Opener that always yields store.
func NewStaticOpener(store Store) *Opener {
	return &Opener{store: store, open: func(context.Context) (Store, error) { return store, nil }}
}

// FileOpener returns an Opener for a FileStore.
func FileOpener(cfg FileConfig) *Opener {
	return NewOpener(func(context.Context) (Store, error) {
		return OpenFile(cfg)
	})
}

// Open returns the shared store, opening it if needed.
func (o *Opener) Open(ctx context.Context) (Store, error) {
	o.mu.Lock()
	if o.store != nil && o.store.IsOpen() {
		s := o.store
		o.mu.Unlock()
		return s, nil
	}
	o.mu.Unlock()

	ch := o.group.DoChan("open", func() (interface{}, error) {
		s, err := o.open(ctx)
		if err != nil {
			logging.Warn("Wallet", "Failed to open wallet: %v", err)
			return nil, err
		}
		o.mu.Lock()
		o.store = s
		o.mu.Unlock()
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Store), nil
	}
}

// Close closes the shared store if it was opened.
func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.store == nil {
		return nil
	}
	err := o.store.Close()
	o.store = nil
	return err
}
