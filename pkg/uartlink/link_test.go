package uartlink

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/txn2/uartdbg/pkg/uartcfg"
)

func testConn() uartcfg.Connection {
	c := uartcfg.DefaultConnection("fake0")
	c.ReadTimeout = 20 * time.Millisecond
	return c
}

// TestOpenValidates tests that bad parameters never reach the opener
func TestOpenValidates(t *testing.T) {
	called := false
	opener := func(uartcfg.Connection) (Port, error) {
		called = true
		return NewFakePort(false), nil
	}

	cfg := testConn()
	cfg.BaudRate = 50
	_, err := Open(cfg, opener)

	var oe *OpenError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, "fake0", oe.Port)
	assert.False(t, called)
}

// TestOpenError tests that device failures are wrapped
func TestOpenError(t *testing.T) {
	devErr := fmt.Errorf("device busy")
	_, err := Open(testConn(), func(uartcfg.Connection) (Port, error) {
		return nil, devErr
	})

	require.Error(t, err)
	assert.Equal(t, devErr, pkgerrors.Cause(err))
	assert.Contains(t, err.Error(), "fake0")
}

// TestReadChunk tests timeout and data reads
func TestReadChunk(t *testing.T) {
	fp := NewFakePort(false)
	l, err := Open(testConn(), fp.Opener())
	require.NoError(t, err)

	_, err = l.ReadChunk()
	assert.ErrorIs(t, err, ErrTimeout)

	fp.Feed([]byte("abc"))
	p, err := l.ReadChunk()
	require.NoError(t, err)
	assert.Equal(t, "abc", string(p))
	assert.Equal(t, uint64(3), l.Stats().BytesRead)
}

// TestConcurrentWrites tests that N concurrent writes arrive as N
// intact write calls
func TestConcurrentWrites(t *testing.T) {
	fp := NewFakePort(false)
	l, err := Open(testConn(), fp.Opener())
	require.NoError(t, err)

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = l.Write([]byte(fmt.Sprintf("payload-%02d-xxxxxxxx", i)))
		}(i)
	}
	wg.Wait()

	writes := fp.Writes()
	require.Len(t, writes, n)

	seen := make(map[string]bool)
	for _, w := range writes {
		seen[string(w)] = true
	}
	for i := 0; i < n; i++ {
		assert.True(t, seen[fmt.Sprintf("payload-%02d-xxxxxxxx", i)], "missing payload %d", i)
	}

	st := l.Stats()
	assert.Equal(t, uint64(n), st.Writes)
	assert.Equal(t, uint64(n*len("payload-00-xxxxxxxx")), st.BytesWritten)
}

// TestWriteError tests error counting
func TestWriteError(t *testing.T) {
	fp := NewFakePort(false)
	fp.FailWrites(fmt.Errorf("unplugged"))
	l, err := Open(testConn(), fp.Opener())
	require.NoError(t, err)

	assert.Error(t, l.Write([]byte("x")))
	assert.Equal(t, uint64(1), l.Stats().WriteErrors)
}

// TestClose tests that a closed link refuses I/O
func TestClose(t *testing.T) {
	fp := NewFakePort(true)
	l, err := Open(testConn(), fp.Opener())
	require.NoError(t, err)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.True(t, fp.Closed())

	assert.ErrorIs(t, l.Write([]byte("x")), ErrClosed)
	_, err = l.ReadChunk()
	assert.ErrorIs(t, err, ErrClosed)
}

// TestFakeEcho tests the echo mode used by session tests
func TestFakeEcho(t *testing.T) {
	fp := NewFakePort(true)
	require.NoError(t, fp.Write([]byte("ping")))

	p, err := fp.Read(10 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(p))
}
