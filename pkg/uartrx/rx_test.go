package uartrx

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/txn2/uartdbg/pkg/uartcfg"
	"github.com/txn2/uartdbg/pkg/uartlink"
)

func openFake(t *testing.T, echo bool) (*uartlink.Link, *uartlink.FakePort) {
	t.Helper()
	fp := uartlink.NewFakePort(echo)
	cfg := uartcfg.DefaultConnection("fake0")
	cfg.ReadTimeout = 5 * time.Millisecond
	l, err := uartlink.Open(cfg, fp.Opener())
	require.NoError(t, err)
	return l, fp
}

// TestBufferLossyDecode tests replacement of invalid UTF-8
func TestBufferLossyDecode(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte{'o', 'k', 0xff, '!'})

	assert.Equal(t, "ok�!", b.String())
	assert.Equal(t, []byte{'o', 'k', 0xff, '!'}, b.Bytes())
	assert.Equal(t, 4, b.Len())

	gen := b.Generation()
	b.Clear()
	assert.Equal(t, "", b.String())
	assert.NotEqual(t, gen, b.Generation())
}

// TestBufferSince tests incremental reads across a Clear
func TestBufferSince(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte("abc"))

	got, off := b.Since(0)
	assert.Equal(t, []byte("abc"), got)
	assert.Equal(t, 3, off)

	b.Append([]byte("de"))
	got, off = b.Since(off)
	assert.Equal(t, []byte("de"), got)
	assert.Equal(t, 5, off)

	got, off = b.Since(off)
	assert.Empty(t, got)
	assert.Equal(t, 5, off)

	b.Clear()
	b.Append([]byte("x"))
	got, off = b.Since(off)
	assert.Equal(t, []byte("x"), got)
	assert.Equal(t, 1, off)
}

// TestReaderContiguous tests that each read lands as one contiguous
// substring in read order
func TestReaderContiguous(t *testing.T) {
	l, fp := openFake(t, false)
	buf := NewBuffer()
	r := NewReader(l, buf)
	r.IdleBackoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = r.Run(ctx) }()

	var want strings.Builder
	for i := 0; i < 50; i++ {
		chunk := fmt.Sprintf("<chunk-%02d>", i)
		want.WriteString(chunk)
		fp.Feed([]byte(chunk))
	}

	assert.Eventually(t, func() bool {
		return buf.String() == want.String()
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-r.Done()
	assert.NoError(t, r.Err())
}

// TestReaderCancel tests that cancellation ends an idle loop
func TestReaderCancel(t *testing.T) {
	l, _ := openFake(t, false)
	r := NewReader(l, NewBuffer())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reader did not stop after cancel")
	}
}

// TestReaderLost tests that a device error ends the loop and is
// reported through OnLost
func TestReaderLost(t *testing.T) {
	l, fp := openFake(t, false)
	r := NewReader(l, NewBuffer())

	lost := make(chan error, 1)
	r.OnLost = func(err error) { lost <- err }

	go func() { _ = r.Run(context.Background()) }()

	devErr := fmt.Errorf("device unplugged")
	fp.FailReads(devErr)

	select {
	case err := <-lost:
		assert.Equal(t, devErr, err)
	case <-time.After(time.Second):
		t.Fatal("OnLost not called")
	}

	<-r.Done()
	assert.Equal(t, devErr, r.Err())
}

// TestReaderDoesNotStarveWriters tests that writes go through while
// the reader is idle
func TestReaderDoesNotStarveWriters(t *testing.T) {
	l, fp := openFake(t, false)
	r := NewReader(l, NewBuffer())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Write([]byte("x")))
	}
	assert.Len(t, fp.Writes(), 10)
	assert.Less(t, time.Since(start), time.Second)
}

// TestClearWhileAppending tests that Clear racing the reader leaves
// the buffer holding only whole chunks
func TestClearWhileAppending(t *testing.T) {
	l, fp := openFake(t, false)
	buf := NewBuffer()
	r := NewReader(l, buf)
	r.IdleBackoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = r.Run(ctx) }()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			fp.Feed([]byte("abcd"))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			buf.Clear()
			time.Sleep(100 * time.Microsecond)
		}
	}()
	wg.Wait()

	// each read returns exactly one fed chunk
	got := buf.String()
	assert.Equal(t, 0, len(got)%4)
	assert.Equal(t, "", strings.ReplaceAll(got, "abcd", ""))

	cancel()
	<-r.Done()
}
