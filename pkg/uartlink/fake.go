package uartlink

import (
	"sync"
	"time"

	"github.com/txn2/uartdbg/pkg/uartcfg"
)

// FakePort is an in-memory Port. Bytes fed with Feed, or echoed back
// when Echo is set, are returned by Read. Every Write call is recorded.
type FakePort struct {
	Echo bool

	mu       sync.Mutex
	rx       [][]byte
	writes   [][]byte
	readErr  error
	writeErr error
	closed   bool
	notify   chan struct{}
}

func NewFakePort(echo bool) *FakePort {
	return &FakePort{Echo: echo, notify: make(chan struct{}, 1)}
}

// Opener returns an Opener that always hands out this port
func (f *FakePort) Opener() Opener {
	return func(uartcfg.Connection) (Port, error) {
		return f, nil
	}
}

// Feed queues p as one chunk for a future Read
func (f *FakePort) Feed(p []byte) {
	chunk := append([]byte(nil), p...)
	f.mu.Lock()
	f.rx = append(f.rx, chunk)
	f.mu.Unlock()
	select {
	case f.notify <- struct{}{}:
	default:
	}
}

// FailReads makes the next Read with an empty queue return err
func (f *FakePort) FailReads(err error) {
	f.mu.Lock()
	f.readErr = err
	f.mu.Unlock()
	select {
	case f.notify <- struct{}{}:
	default:
	}
}

// FailWrites makes every Write return err
func (f *FakePort) FailWrites(err error) {
	f.mu.Lock()
	f.writeErr = err
	f.mu.Unlock()
}

func (f *FakePort) next() ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, true, ErrClosed
	}
	if len(f.rx) > 0 {
		p := f.rx[0]
		f.rx = f.rx[1:]
		return p, true, nil
	}
	if f.readErr != nil {
		return nil, true, f.readErr
	}
	return nil, false, nil
}

func (f *FakePort) Read(timeout time.Duration) ([]byte, error) {
	if p, ok, err := f.next(); ok {
		return p, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.notify:
		if p, ok, err := f.next(); ok {
			return p, err
		}
	case <-timer.C:
	}
	return nil, ErrTimeout
}

func (f *FakePort) Write(p []byte) error {
	f.mu.Lock()
	if f.writeErr != nil {
		err := f.writeErr
		f.mu.Unlock()
		return err
	}
	f.writes = append(f.writes, append([]byte(nil), p...))
	echo := f.Echo
	f.mu.Unlock()

	if echo {
		f.Feed(p)
	}
	return nil
}

func (f *FakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Writes returns a copy of every recorded write call
func (f *FakePort) Writes() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([][]byte, len(f.writes))
	copy(out, f.writes)
	return out
}

func (f *FakePort) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
