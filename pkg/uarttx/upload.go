package uarttx

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/uartdbg/pkg/uartmetrics"
	"golang.org/x/time/rate"
)

const (
	DefaultBlockSize  = 512
	DefaultBlockDelay = 10 * time.Millisecond
)

// Uploader streams a firmware image through a Writer in fixed size
// blocks with a fixed delay between blocks. A trailing partial block
// is dropped, not padded.
type Uploader struct {
	writer    *Writer
	blockSize int
	delay     time.Duration

	// OnBlock is called after each queued block with the running count
	OnBlock func(blocks int)
}

func NewUploader(w *Writer, blockSize int, delay time.Duration) *Uploader {
	if blockSize < 1 {
		blockSize = DefaultBlockSize
	}
	return &Uploader{writer: w, blockSize: blockSize, delay: delay}
}

// Upload sends the file at path and returns the number of blocks queued
func (u *Uploader) Upload(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "opening firmware image")
	}
	defer f.Close()

	log.Infof("Programming device from %s", path)
	n, err := u.UploadFrom(ctx, f)
	if err != nil {
		return n, err
	}
	log.Infof("Programmed %d blocks of %d bytes from %s", n, u.blockSize, path)
	return n, nil
}

// UploadFrom sends r block by block until EOF
func (u *Uploader) UploadFrom(ctx context.Context, r io.Reader) (int, error) {
	limit := rate.Inf
	if u.delay > 0 {
		limit = rate.Every(u.delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	block := make([]byte, u.blockSize)
	sent := 0
	for {
		n, err := io.ReadFull(r, block)
		switch {
		case err == io.EOF:
			return sent, nil
		case err == io.ErrUnexpectedEOF:
			log.Warnf("Dropping trailing partial block of %d bytes", n)
			return sent, nil
		case err != nil:
			return sent, errors.Wrap(err, "reading firmware image")
		}

		if err := limiter.Wait(ctx); err != nil {
			return sent, err
		}
		if err := u.writer.SendWait(ctx, block); err != nil {
			return sent, errors.Wrapf(err, "queueing block %d", sent)
		}

		sent++
		uartmetrics.RecordFlashBlock()
		if u.OnBlock != nil {
			u.OnBlock(sent)
		}
	}
}
