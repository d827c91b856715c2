package uartlink

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/txn2/uartdbg/pkg/uartcfg"
)

// ErrTimeout is returned by Port.Read when no data arrived in time.
// It means "no data", not a failure.
var ErrTimeout = errors.New("read timeout")

// ErrClosed is returned for operations on a closed link
var ErrClosed = errors.New("link closed")

// Port is an open device handle
type Port interface {
	// Read waits up to timeout for data. It returns ErrTimeout when
	// nothing arrived.
	Read(timeout time.Duration) ([]byte, error)
	Write(p []byte) error
	Close() error
}

// Opener opens a port for the given connection parameters
type Opener func(cfg uartcfg.Connection) (Port, error)

// OpenError reports a device that could not be opened
type OpenError struct {
	Port string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open %s: %v", e.Port, e.Err)
}

// Cause lets errors.Cause reach the device error
func (e *OpenError) Cause() error { return e.Err }

func (e *OpenError) Unwrap() error { return e.Err }

// Stats are byte and call counters of a link
type Stats struct {
	BytesRead    uint64 `json:"bytes_read"`
	BytesWritten uint64 `json:"bytes_written"`
	Writes       uint64 `json:"writes"`
	WriteErrors  uint64 `json:"write_errors"`
}

// Link guards one open port. Reads and writes serialize on a single
// mutex held only for the duration of the port call.
type Link struct {
	cfg uartcfg.Connection

	mu     sync.Mutex
	port   Port
	closed bool

	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64
	writes       atomic.Uint64
	writeErrors  atomic.Uint64
}

// Open validates cfg and opens the device through opener
func Open(cfg uartcfg.Connection, opener Opener) (*Link, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &OpenError{Port: cfg.Port, Err: err}
	}
	port, err := opener(cfg)
	if err != nil {
		var oe *OpenError
		if errors.As(err, &oe) {
			return nil, oe
		}
		return nil, &OpenError{Port: cfg.Port, Err: err}
	}
	return &Link{cfg: cfg, port: port}, nil
}

// Config returns the parameters the link was opened with
func (l *Link) Config() uartcfg.Connection {
	return l.cfg
}

// ReadChunk performs one timed read. ErrTimeout means no data.
func (l *Link) ReadChunk() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}
	p, err := l.port.Read(l.cfg.ReadTimeout)
	l.bytesRead.Add(uint64(len(p)))
	return p, err
}

// Write sends p as a single port write
func (l *Link) Write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	l.writes.Add(1)
	if err := l.port.Write(p); err != nil {
		l.writeErrors.Add(1)
		return err
	}
	l.bytesWritten.Add(uint64(len(p)))
	return nil
}

// Close releases the port. Later calls return nil.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.port.Close()
}

func (l *Link) Stats() Stats {
	return Stats{
		BytesRead:    l.bytesRead.Load(),
		BytesWritten: l.bytesWritten.Load(),
		Writes:       l.writes.Load(),
		WriteErrors:  l.writeErrors.Load(),
	}
}
