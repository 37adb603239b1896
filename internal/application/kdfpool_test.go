package application

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

func TestKDFPool_BoundsConcurrency(t *testing.T) {
	pool := NewKDFPool(2)
	ctx := context.Background()

	var running, peak atomic.Int32
	var wg sync.WaitGroup

	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.Do(ctx, func() error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Positive(t, peak.Load())
}

func TestKDFPool_PropagatesError(t *testing.T) {
	pool := NewKDFPool(1)
	want := errors.New("boom")

	err := pool.Do(context.Background(), func() error { return want })
	assert.ErrorIs(t, err, want)
}

func TestKDFPool_CancelledWhileWaiting(t *testing.T) {
	pool := NewKDFPool(1)
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = pool.Do(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := pool.Do(ctx, func() error {
		ran = true
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestNewKDFPool_MinimumOneWorker(t *testing.T) {
	assert.Equal(t, 1, NewKDFPool(0).Workers())
	assert.Equal(t, 1, NewKDFPool(-3).Workers())
	assert.Equal(t, 4, NewKDFPool(4).Workers())
}
