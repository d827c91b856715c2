package uartrx

import (
	"strings"
	"sync"
)

// Buffer accumulates received text. One reader appends, any number of
// viewers read, and only an explicit Clear empties it.
type Buffer struct {
	mu  sync.Mutex
	sb  strings.Builder
	raw []byte
	gen uint64
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds the bytes of one read. Invalid UTF-8 is replaced so the
// text stays printable; the raw bytes are kept for the hex view.
func (b *Buffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	text := strings.ToValidUTF8(string(p), "�")

	b.mu.Lock()
	b.sb.WriteString(text)
	b.raw = append(b.raw, p...)
	b.gen++
	b.mu.Unlock()
}

// String returns the current text
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}

// Bytes returns a copy of the raw received bytes
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.raw...)
}

// Since returns a copy of the raw bytes from offset on, and the length
// to pass next time. An offset past the end (after a Clear) restarts
// from zero.
func (b *Buffer) Since(offset int) ([]byte, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if offset < 0 || offset > len(b.raw) {
		offset = 0
	}
	return append([]byte(nil), b.raw[offset:]...), len(b.raw)
}

// Len returns the number of raw bytes held
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.raw)
}

// Generation changes every time the content changes. Views use it to
// skip re-rendering an unchanged buffer.
func (b *Buffer) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen
}

func (b *Buffer) Clear() {
	b.mu.Lock()
	b.sb.Reset()
	b.raw = nil
	b.gen++
	b.mu.Unlock()
}
