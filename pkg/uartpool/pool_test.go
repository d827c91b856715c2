package uartpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPoolRunsAll tests that every submitted task runs once
func TestPoolRunsAll(t *testing.T) {
	p := New(context.Background(), "test", 4, 8)

	var n atomic.Int64
	for i := 0; i < 100; i++ {
		require.NoError(t, p.Submit(context.Background(), func(context.Context) {
			n.Add(1)
		}))
	}
	p.Stop()

	assert.Equal(t, int64(100), n.Load())
	assert.Equal(t, uint64(100), p.Completed())
}

// TestPoolSingleWorkerOrder tests FIFO order with one worker
func TestPoolSingleWorkerOrder(t *testing.T) {
	p := New(context.Background(), "ordered", 1, 16)

	var mu sync.Mutex
	var got []int
	for i := 0; i < 50; i++ {
		i := i
		require.NoError(t, p.Submit(context.Background(), func(context.Context) {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	p.Stop()

	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

// TestPoolQueueFull tests the non-blocking submit path
func TestPoolQueueFull(t *testing.T) {
	p := New(context.Background(), "full", 1, 1)
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, p.TrySubmit(func(context.Context) {
		close(started)
		<-release
	}))
	<-started

	require.NoError(t, p.TrySubmit(func(context.Context) {}))
	assert.ErrorIs(t, p.TrySubmit(func(context.Context) {}), ErrQueueFull)
	assert.Equal(t, 1, p.Pending())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Submit(ctx, func(context.Context) {}), context.DeadlineExceeded)

	close(release)
	p.Stop()
}

// TestPoolPanic tests that a panicking task does not stop the pool
func TestPoolPanic(t *testing.T) {
	p := New(context.Background(), "panic", 1, 4)

	var ran atomic.Bool
	require.NoError(t, p.Submit(context.Background(), func(context.Context) {
		panic("boom")
	}))
	require.NoError(t, p.Submit(context.Background(), func(context.Context) {
		ran.Store(true)
	}))
	p.Stop()

	assert.True(t, ran.Load())
	assert.Equal(t, uint64(1), p.Panics())
}

// TestPoolStopped tests submissions after Stop
func TestPoolStopped(t *testing.T) {
	p := New(context.Background(), "stopped", 2, 2)
	p.Stop()
	p.Stop()

	assert.ErrorIs(t, p.TrySubmit(func(context.Context) {}), ErrStopped)
	assert.ErrorIs(t, p.Submit(context.Background(), func(context.Context) {}), ErrStopped)
}
