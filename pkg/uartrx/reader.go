package uartrx

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/uartdbg/pkg/uartlink"
)

const DefaultIdleBackoff = 10 * time.Millisecond

// ChunkReader is the read side of a device link
type ChunkReader interface {
	ReadChunk() ([]byte, error)
}

// Reader moves bytes from a link into a Buffer until the context is
// cancelled or the link fails.
type Reader struct {
	src  ChunkReader
	buf  *Buffer
	done chan struct{}
	err  error

	// IdleBackoff is slept after an empty or timed out read
	IdleBackoff time.Duration
	// OnLost is called once when the loop ends on a device error
	OnLost func(error)
	// OnData is called after each non-empty read
	OnData func(n int)
}

func NewReader(src ChunkReader, buf *Buffer) *Reader {
	return &Reader{
		src:         src,
		buf:         buf,
		done:        make(chan struct{}),
		IdleBackoff: DefaultIdleBackoff,
	}
}

// Run polls until ctx is done or a read fails with anything other
// than a timeout. It returns nil on cancellation.
func (r *Reader) Run(ctx context.Context) error {
	defer close(r.done)

	backoff := time.NewTimer(0)
	if !backoff.Stop() {
		<-backoff.C
	}
	defer backoff.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		// ReadChunk holds the link lock only for the read itself
		p, err := r.src.ReadChunk()
		switch {
		case err == nil && len(p) > 0:
			r.buf.Append(p)
			if r.OnData != nil {
				r.OnData(len(p))
			}
			continue
		case err == nil, errors.Is(err, uartlink.ErrTimeout):
		default:
			if ctx.Err() != nil {
				return nil
			}
			r.err = err
			log.Debugf("Reader stopped: %v", err)
			if r.OnLost != nil {
				r.OnLost(err)
			}
			return err
		}

		backoff.Reset(r.IdleBackoff)
		select {
		case <-ctx.Done():
			return nil
		case <-backoff.C:
		}
	}
}

// Done is closed once Run has returned
func (r *Reader) Done() <-chan struct{} {
	return r.done
}

// Err is the error that ended the loop, valid after Done
func (r *Reader) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}
