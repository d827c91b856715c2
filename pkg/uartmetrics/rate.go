package uartmetrics

import (
	"sync"
	"time"
)

// DefaultRateSamples covers about one second at the default UI tick
const DefaultRateSamples = 10

// RateSample is one reading of the link byte counters
type RateSample struct {
	At      time.Time
	RxBytes uint64
	TxBytes uint64
}

// Throughput keeps a ring of counter samples and derives byte rates
// from the oldest and newest of them. Counters going backwards (a new
// link starts from zero) discard the history.
type Throughput struct {
	mu      sync.Mutex
	samples []RateSample
	next    int
	size    int
}

func NewThroughput(size int) *Throughput {
	if size < 2 {
		size = DefaultRateSamples
	}
	return &Throughput{samples: make([]RateSample, 0, size), size: size}
}

// Observe records the counters as of at
func (t *Throughput) Observe(rxBytes, txBytes uint64, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n := len(t.samples); n > 0 {
		last := t.samples[(t.next-1+n)%n]
		if rxBytes < last.RxBytes || txBytes < last.TxBytes {
			t.samples = t.samples[:0]
			t.next = 0
		}
	}

	s := RateSample{At: at, RxBytes: rxBytes, TxBytes: txBytes}
	if len(t.samples) < t.size {
		t.samples = append(t.samples, s)
	} else {
		t.samples[t.next] = s
	}
	t.next = (t.next + 1) % t.size
}

// Rates returns bytes per second received and sent over the window
func (t *Throughput) Rates() (rx, tx float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.samples)
	if n < 2 {
		return 0, 0
	}
	newest := t.samples[(t.next-1+n)%n]
	oldest := t.samples[t.next%n]
	if n < t.size {
		oldest = t.samples[0]
	}

	secs := newest.At.Sub(oldest.At).Seconds()
	if secs <= 0 {
		return 0, 0
	}
	return float64(newest.RxBytes-oldest.RxBytes) / secs, float64(newest.TxBytes-oldest.TxBytes) / secs
}

// Reset forgets every sample
func (t *Throughput) Reset() {
	t.mu.Lock()
	t.samples = t.samples[:0]
	t.next = 0
	t.mu.Unlock()
}
