package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsTasks(t *testing.T) {
	p := New(2)
	defer p.Shutdown(context.Background())

	var ran atomic.Int64
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(context.Background(), func() { ran.Add(1) }))
	}
	p.Wait()

	assert.Equal(t, int64(5), ran.Load())
	assert.Equal(t, int64(5), p.Metrics().Completed)
	assert.Equal(t, int64(0), p.Metrics().Active)
}

func TestPool_ConcurrencyLimit(t *testing.T) {
	const size = 3
	p := New(size)
	defer p.Shutdown(context.Background())

	var current, peak atomic.Int64
	var mu sync.Mutex
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(context.Background(), func() {
			c := current.Add(1)
			mu.Lock()
			if c > peak.Load() {
				peak.Store(c)
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
		}))
	}
	p.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(size))
	assert.Positive(t, peak.Load())
}

func TestPool_TrySubmitSaturated(t *testing.T) {
	p := New(1)
	defer p.Shutdown(context.Background())

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.TrySubmit(func() {
		close(started)
		<-block
	}))
	<-started

	err := p.TrySubmit(func() {})
	assert.ErrorIs(t, err, ErrSaturated)
	assert.Equal(t, int64(1), p.Metrics().Rejected)

	close(block)
	p.Wait()
	assert.NoError(t, p.TrySubmit(func() {}))
}

func TestPool_Unbounded(t *testing.T) {
	p := New(0)
	defer p.Shutdown(context.Background())
	assert.Equal(t, 0, p.Size())

	block := make(chan struct{})
	var started sync.WaitGroup
	for i := 0; i < 50; i++ {
		started.Add(1)
		require.NoError(t, p.TrySubmit(func() {
			started.Done()
			<-block
		}))
	}
	started.Wait()
	assert.Equal(t, int64(50), p.Metrics().Active)

	close(block)
	p.Wait()
}

func TestPool_SubmitRespectsContext(t *testing.T) {
	p := New(1)
	defer p.Shutdown(context.Background())

	block := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() { <-block }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Submit(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(block)
}

func TestPool_PanicIsolated(t *testing.T) {
	p := New(2)
	defer p.Shutdown(context.Background())

	var recovered atomic.Value
	p.OnPanic(func(r any) { recovered.Store(r) })

	require.NoError(t, p.Submit(context.Background(), func() { panic("boom") }))
	p.Wait()

	assert.Equal(t, int64(1), p.Metrics().Panics)
	assert.Equal(t, "boom", recovered.Load())

	var ran atomic.Bool
	require.NoError(t, p.Submit(context.Background(), func() { ran.Store(true) }))
	p.Wait()
	assert.True(t, ran.Load(), "pool should keep working after a panic")
}

func TestPool_ShutdownDrains(t *testing.T) {
	p := New(2)

	var finished atomic.Bool
	require.NoError(t, p.Submit(context.Background(), func() {
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	}))

	require.NoError(t, p.Shutdown(context.Background()))
	assert.True(t, finished.Load())
	assert.True(t, p.Closed())

	assert.ErrorIs(t, p.TrySubmit(func() {}), ErrShutdown)
	assert.ErrorIs(t, p.Submit(context.Background(), func() {}), ErrShutdown)
	assert.NoError(t, p.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestPool_ShutdownTimeout(t *testing.T) {
	p := New(0)
	block := make(chan struct{})
	defer close(block)
	require.NoError(t, p.TrySubmit(func() { <-block }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
