package workpool

import (
	"errors"
	"sync"
)

// ErrClosed is returned when submitting to a pool that has been closed
var ErrClosed = errors.New("workpool: pool is closed")

// MaxWorkers caps the pool size
const MaxWorkers = 64

// Pool runs submitted jobs on a fixed set of goroutines. It is meant to be
// shared process-wide; jobs from independent callers interleave freely.
type Pool struct {
	workers int
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func() // pending jobs, unbounded so Submit never blocks
	closed  bool
	wg      sync.WaitGroup
}

// New starts a pool with the given number of workers. Zero or less picks
// DefaultWorkers().
func New(workers int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}
	p := &Pool{workers: workers}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		job()
	}
}

// Submit queues job for execution and returns immediately
func (p *Pool) Submit(job func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.queue = append(p.queue, job)
	p.cond.Signal()
	return nil
}

// Close stops accepting jobs, lets queued jobs finish, and waits for the
// workers to exit. It is safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

// Workers returns the number of worker goroutines
func (p *Pool) Workers() int {
	return p.workers
}
