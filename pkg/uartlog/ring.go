package uartlog

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Hard cap on ring capacity
const maxRingSize = 10000

// Entry is one captured log line
type Entry struct {
	Time    time.Time         `json:"time"`
	Level   string            `json:"level"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Ring keeps the most recent log entries
type Ring struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	n       int
}

// NewRing creates a ring holding up to size entries
func NewRing(size int) *Ring {
	if size < 1 {
		size = 1
	}
	if size > maxRingSize {
		size = maxRingSize
	}
	return &Ring{entries: make([]Entry, size)}
}

func (r *Ring) Add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = e
	r.next = (r.next + 1) % len(r.entries)
	if r.n < len(r.entries) {
		r.n++
	}
}

// Last returns up to n entries, oldest first
func (r *Ring) Last(n int) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n <= 0 || r.n == 0 {
		return nil
	}
	if n > r.n {
		n = r.n
	}

	out := make([]Entry, n)
	start := (r.next - n + len(r.entries)) % len(r.entries)
	for i := range out {
		out[i] = r.entries[(start+i)%len(r.entries)]
	}
	return out
}

func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.n
}

// Hook returns a logrus hook feeding this ring
func (r *Ring) Hook() log.Hook {
	return &ringHook{ring: r}
}

type ringHook struct {
	ring *Ring
}

func (h *ringHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *ringHook) Fire(entry *log.Entry) error {
	var fields map[string]string
	if len(entry.Data) > 0 {
		fields = make(map[string]string, len(entry.Data))
		for k, v := range entry.Data {
			fields[k] = fieldString(v)
		}
	}

	h.ring.Add(Entry{
		Time:    entry.Time,
		Level:   entry.Level.String(),
		Message: entry.Message,
		Fields:  fields,
	})
	return nil
}

func fieldString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return t.Error()
	case interface{ String() string }:
		return t.String()
	default:
		return ""
	}
}
