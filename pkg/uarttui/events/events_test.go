package events

import (
	"fmt"
	"sync"
	"testing"
)

// TestEventTypeString tests event type names
func TestEventTypeString(t *testing.T) {
	tests := map[EventType]string{
		PanelCreate:   "create",
		PanelAppend:   "append",
		PanelClose:    "close",
		LinkLost:      "link_lost",
		LinkUp:        "link_up",
		EventType(99): "unknown",
	}
	for et, want := range tests {
		if got := et.String(); got != want {
			t.Errorf("EventType(%d).String() = %q, want %q", et, got, want)
		}
	}
}

// TestIDAllocatorStartsAtZero tests the first ids
func TestIDAllocatorStartsAtZero(t *testing.T) {
	a := NewIDAllocator()
	for want := PanelID(0); want < 5; want++ {
		if got := a.Next(); got != want {
			t.Fatalf("Next() = %d, want %d", got, want)
		}
	}
}

// TestIDAllocatorConcurrent tests uniqueness under concurrent use
func TestIDAllocatorConcurrent(t *testing.T) {
	a := NewIDAllocator()
	const workers, per = 16, 500

	var mu sync.Mutex
	seen := make(map[PanelID]bool, workers*per)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]PanelID, 0, per)
			last := PanelID(0)
			for i := 0; i < per; i++ {
				id := a.Next()
				if i > 0 && id <= last {
					t.Errorf("id %d not greater than previous %d", id, last)
				}
				last = id
				local = append(local, id)
			}
			mu.Lock()
			for _, id := range local {
				if seen[id] {
					t.Errorf("duplicate id %d", id)
				}
				seen[id] = true
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != workers*per {
		t.Errorf("expected %d ids, got %d", workers*per, len(seen))
	}
}

// TestIDAllocatorIndependent tests that allocators do not share state
func TestIDAllocatorIndependent(t *testing.T) {
	a, b := NewIDAllocator(), NewIDAllocator()
	a.Next()
	a.Next()
	if got := b.Next(); got != 0 {
		t.Errorf("fresh allocator returned %d, want 0", got)
	}
}

// TestChannelFIFO tests order of a single producer
func TestChannelFIFO(t *testing.T) {
	c := NewChannel(10)
	for i := 0; i < 5; i++ {
		c.Publish(NewAppendEvent(1, fmt.Sprint(i)))
	}
	if c.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", c.Len())
	}
	for i := 0; i < 5; i++ {
		e, ok := c.TryRecv()
		if !ok {
			t.Fatal("expected event")
		}
		if e.Text != fmt.Sprint(i) {
			t.Errorf("event %d text = %q", i, e.Text)
		}
	}
	if _, ok := c.TryRecv(); ok {
		t.Error("expected empty channel")
	}
}

// TestChannelDropOldest tests the overflow policy
func TestChannelDropOldest(t *testing.T) {
	c := NewChannel(3)
	for i := 0; i < 5; i++ {
		c.Publish(NewAppendEvent(1, fmt.Sprint(i)))
	}

	if c.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", c.Dropped())
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	for _, want := range []string{"2", "3", "4"} {
		e, _ := c.TryRecv()
		if e.Text != want {
			t.Errorf("got %q, want %q", e.Text, want)
		}
	}
}

// TestChannelDefaultSize tests the default capacity
func TestChannelDefaultSize(t *testing.T) {
	if c := NewChannel(0); c.Cap() != DefaultChannelSize {
		t.Errorf("Cap() = %d, want %d", c.Cap(), DefaultChannelSize)
	}
}

// TestChannelMultiProducer tests per producer order with concurrent
// producers and a concurrent consumer
func TestChannelMultiProducer(t *testing.T) {
	c := NewChannel(100000)
	const producers, per = 8, 1000

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < per; i++ {
				c.Publish(NewAppendEvent(PanelID(p), fmt.Sprint(i)))
			}
		}(p)
	}

	next := make([]int, producers)
	received := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	drain := func() {
		for {
			e, ok := c.TryRecv()
			if !ok {
				return
			}
			if e.Text != fmt.Sprint(next[e.ID]) {
				t.Fatalf("producer %d: got %q, want %d", e.ID, e.Text, next[e.ID])
			}
			next[e.ID]++
			received++
		}
	}

	for {
		select {
		case <-done:
			drain()
			if received != producers*per {
				t.Errorf("received %d, want %d", received, producers*per)
			}
			return
		default:
			drain()
		}
	}
}
