package uartpool

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrQueueFull is returned by TrySubmit when no queue slot is free
	ErrQueueFull = errors.New("queue full")
	// ErrStopped is returned for submissions after Stop
	ErrStopped = errors.New("pool stopped")
)

// Task is one unit of work. It receives the pool context.
type Task func(ctx context.Context)

// Pool runs tasks on a fixed number of workers fed by a bounded queue.
// A panicking task is logged and does not take its worker down.
type Pool struct {
	name  string
	ctx   context.Context
	queue chan Task
	group *errgroup.Group

	mu      sync.RWMutex
	stopped bool

	completed atomic.Uint64
	panics    atomic.Uint64
}

// New starts workers goroutines serving a queue of the given size
func New(ctx context.Context, name string, workers, queue int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queue < 1 {
		queue = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	p := &Pool{
		name:  name,
		ctx:   gctx,
		queue: make(chan Task, queue),
		group: g,
	}

	for i := 0; i < workers; i++ {
		g.Go(p.work)
	}

	log.Debugf("Pool %s started with %d workers, queue %d", name, workers, queue)
	return p
}

func (p *Pool) work() error {
	for task := range p.queue {
		p.safeRun(task)
	}
	return nil
}

func (p *Pool) safeRun(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			log.Errorf("Pool %s task panic: %v", p.name, r)
		}
		p.completed.Add(1)
	}()
	task(p.ctx)
}

// Submit queues task, waiting for a free slot until ctx is done
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrStopped
	}

	select {
	case p.queue <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit queues task without waiting
func (p *Pool) TrySubmit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrStopped
	}

	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new tasks, lets queued ones finish and waits for the
// workers. It is safe to call more than once.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.queue)
	}
	p.mu.Unlock()

	_ = p.group.Wait()
}

func (p *Pool) Name() string {
	return p.name
}

// Pending is the number of queued tasks not yet picked up
func (p *Pool) Pending() int {
	return len(p.queue)
}

func (p *Pool) Completed() uint64 {
	return p.completed.Load()
}

func (p *Pool) Panics() uint64 {
	return p.panics.Load()
}
