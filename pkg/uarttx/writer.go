package uarttx

import (
	"context"
	"time"

	"github.com/bep/debounce"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/uartdbg/pkg/uartmetrics"
	"github.com/txn2/uartdbg/pkg/uartpool"
)

// ErrQueueFull is returned by Send when the write queue has no room
var ErrQueueFull = uartpool.ErrQueueFull

// Target receives payloads, normally the current device link
type Target interface {
	Write(p []byte) error
}

// Writer turns each Send into one fire-and-forget write task.
// With a single pool worker the writes reach the device in Send order.
type Writer struct {
	pool     *uartpool.Pool
	target   Target
	warnFull func(f func())
}

func NewWriter(pool *uartpool.Pool, target Target) *Writer {
	return &Writer{
		pool:     pool,
		target:   target,
		warnFull: debounce.New(time.Second),
	}
}

// Send queues p without waiting. The payload is copied, so the caller
// may reuse it. Write failures are only logged.
func (w *Writer) Send(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	err := w.pool.TrySubmit(w.task(clone(p)))
	if errors.Is(err, uartpool.ErrQueueFull) {
		uartmetrics.RecordTxDropped()
		w.warnFull(func() {
			log.Warn("Transmit queue full, dropping data")
		})
	}
	return err
}

// SendWait queues p, waiting for a queue slot until ctx is done
func (w *Writer) SendWait(ctx context.Context, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	return w.pool.Submit(ctx, w.task(clone(p)))
}

func (w *Writer) task(p []byte) uartpool.Task {
	return func(context.Context) {
		if err := w.target.Write(p); err != nil {
			uartmetrics.RecordTxError()
			log.Debugf("Write of %d bytes failed: %v", len(p), err)
			return
		}
		uartmetrics.RecordTx(len(p))
	}
}

func clone(p []byte) []byte {
	return append([]byte(nil), p...)
}
