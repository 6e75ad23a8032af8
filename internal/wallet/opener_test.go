package wallet

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpener_SingleOpenInFlight(t *testing.T) {
	var opens atomic.Int32
	release := make(chan struct{})

	o := NewOpener(func(context.Context) (Store, error) {
		opens.Add(1)
		<-release
		return NewMemoryStore(), nil
	})

	const callers = 8
	var wg sync.WaitGroup
	stores := make([]Store, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := o.Open(context.Background())
			assert.NoError(t, err)
			stores[i] = s
		}(i)
	}

	// Give the callers a chance to pile up behind the first open.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), opens.Load())
	for _, s := range stores {
		assert.Same(t, stores[0], s)
	}

	// Once open, the store is reused without opening again.
	s, err := o.Open(context.Background())
	require.NoError(t, err)
	assert.Same(t, stores[0], s)
	assert.Equal(t, int32(1), opens.Load())
}

func TestOpener_FailureIsRetried(t *testing.T) {
	var opens atomic.Int32
	o := NewOpener(func(context.Context) (Store, error) {
		if opens.Add(1) == 1 {
			return nil, ErrLocked
		}
		return NewMemoryStore(), nil
	})

	_, err := o.Open(context.Background())
	assert.ErrorIs(t, err, ErrLocked)

	s, err := o.Open(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.Equal(t, int32(2), opens.Load())
}

func TestOpener_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	o := NewOpener(func(context.Context) (Store, error) {
		<-block
		return nil, errors.New("unreachable")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Open(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpener_CloseReopens(t *testing.T) {
	var opens atomic.Int32
	o := NewOpener(func(context.Context) (Store, error) {
		opens.Add(1)
		return NewMemoryStore(), nil
	})

	_, err := o.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, o.Close())

	_, err = o.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), opens.Load())
}
