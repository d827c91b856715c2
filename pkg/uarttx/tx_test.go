package uarttx

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/txn2/uartdbg/pkg/uartpool"
)

type recorder struct {
	mu     sync.Mutex
	writes [][]byte
	err    error
	block  chan struct{}
}

func (r *recorder) Write(p []byte) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.writes = append(r.writes, append([]byte(nil), p...))
	return nil
}

func (r *recorder) all() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.writes...)
}

// TestSendConcurrent tests that N concurrent sends produce N intact writes
func TestSendConcurrent(t *testing.T) {
	rec := &recorder{}
	pool := uartpool.New(context.Background(), "tx", 4, 256)
	w := NewWriter(pool, rec)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, w.Send([]byte(fmt.Sprintf("[%03d:abcdefgh]", i))))
		}(i)
	}
	wg.Wait()
	pool.Stop()

	writes := rec.all()
	require.Len(t, writes, n)
	seen := make(map[string]bool, n)
	for _, p := range writes {
		seen[string(p)] = true
	}
	for i := 0; i < n; i++ {
		assert.True(t, seen[fmt.Sprintf("[%03d:abcdefgh]", i)])
	}
}

// TestSendCopiesPayload tests that callers may reuse their slice
func TestSendCopiesPayload(t *testing.T) {
	rec := &recorder{}
	pool := uartpool.New(context.Background(), "tx", 1, 4)
	w := NewWriter(pool, rec)

	p := []byte("ping")
	require.NoError(t, w.Send(p))
	copy(p, "XXXX")
	pool.Stop()

	require.Len(t, rec.all(), 1)
	assert.Equal(t, "ping", string(rec.all()[0]))
}

// TestSendQueueFull tests that a full queue refuses without blocking
func TestSendQueueFull(t *testing.T) {
	rec := &recorder{block: make(chan struct{})}
	pool := uartpool.New(context.Background(), "tx", 1, 1)
	w := NewWriter(pool, rec)

	require.NoError(t, w.Send([]byte("a")))
	// wait for the worker to take the first task
	require.Eventually(t, func() bool { return pool.Pending() == 0 }, time.Second, time.Millisecond)
	require.NoError(t, w.Send([]byte("b")))
	assert.ErrorIs(t, w.Send([]byte("c")), ErrQueueFull)

	close(rec.block)
	pool.Stop()
	assert.Len(t, rec.all(), 2)
}

// TestSendErrorDropped tests that write errors are not returned
func TestSendErrorDropped(t *testing.T) {
	rec := &recorder{err: fmt.Errorf("not connected")}
	pool := uartpool.New(context.Background(), "tx", 1, 4)
	w := NewWriter(pool, rec)

	assert.NoError(t, w.Send([]byte("x")))
	pool.Stop()
	assert.Empty(t, rec.all())
}

// TestUploadBlocks tests full blocks and the dropped tail
func TestUploadBlocks(t *testing.T) {
	rec := &recorder{}
	pool := uartpool.New(context.Background(), "tx", 1, 8)
	w := NewWriter(pool, rec)
	u := NewUploader(w, 512, 0)

	img := bytes.Repeat([]byte{0xAA}, 512*3+100)
	var progress []int
	u.OnBlock = func(n int) { progress = append(progress, n) }

	n, err := u.UploadFrom(context.Background(), bytes.NewReader(img))
	require.NoError(t, err)
	pool.Stop()

	assert.Equal(t, 3, n)
	assert.Equal(t, []int{1, 2, 3}, progress)
	writes := rec.all()
	require.Len(t, writes, 3)
	for _, p := range writes {
		assert.Len(t, p, 512)
	}
}

// TestUploadExactMultiple tests an image with no tail
func TestUploadExactMultiple(t *testing.T) {
	rec := &recorder{}
	pool := uartpool.New(context.Background(), "tx", 1, 8)
	u := NewUploader(NewWriter(pool, rec), 4, time.Millisecond)

	n, err := u.UploadFrom(context.Background(), bytes.NewReader([]byte("aaaabbbbcccc")))
	require.NoError(t, err)
	pool.Stop()

	assert.Equal(t, 3, n)
	writes := rec.all()
	require.Len(t, writes, 3)
	assert.Equal(t, "aaaa", string(writes[0]))
	assert.Equal(t, "bbbb", string(writes[1]))
	assert.Equal(t, "cccc", string(writes[2]))
}

// TestUploadPacing tests the inter-block delay
func TestUploadPacing(t *testing.T) {
	rec := &recorder{}
	pool := uartpool.New(context.Background(), "tx", 1, 8)
	u := NewUploader(NewWriter(pool, rec), 1, 10*time.Millisecond)

	start := time.Now()
	n, err := u.UploadFrom(context.Background(), bytes.NewReader([]byte("abcde")))
	require.NoError(t, err)
	pool.Stop()

	assert.Equal(t, 5, n)
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

// TestUploadCancel tests that a cancelled context stops the transfer
func TestUploadCancel(t *testing.T) {
	rec := &recorder{}
	pool := uartpool.New(context.Background(), "tx", 1, 8)
	defer pool.Stop()
	u := NewUploader(NewWriter(pool, rec), 1, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	n, err := u.UploadFrom(ctx, bytes.NewReader([]byte("abc")))
	assert.Error(t, err)
	assert.Equal(t, 1, n)
}

// TestUploadFile tests reading from disk
func TestUploadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fw.bin")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{1}, 1024), 0o600))

	rec := &recorder{}
	pool := uartpool.New(context.Background(), "tx", 1, 8)
	u := NewUploader(NewWriter(pool, rec), DefaultBlockSize, 0)

	n, err := u.Upload(context.Background(), path)
	require.NoError(t, err)
	pool.Stop()
	assert.Equal(t, 2, n)

	_, err = u.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.bin"))
	assert.Error(t, err)
}
