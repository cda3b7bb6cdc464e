// Package workerpool runs fire-and-forget jobs, such as outbound notifications
// and Planning Center syncs, on a fixed set of goroutines behind a bounded queue.
package workerpool

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	ErrPoolFull   = errors.New("job pool is full")
	ErrPoolClosed = errors.New("job pool is closed")
)

// Job is one unit of background work. The context is cancelled when a
// Shutdown deadline expires.
type Job func(ctx context.Context)

type JobPool interface {
	Enqueue(job Job) error
}

type Pool struct {
	queue  chan Job
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func New(poolSize int, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		queue:  make(chan Job, poolSize),
		logger: logger.With("component", "workerpool"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches workers goroutines. With zero workers jobs only queue up.
func (p *Pool) Start(workers int) {
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.work(i)
	}
}

func (p *Pool) work(id int) {
	defer p.wg.Done()
	for job := range p.queue {
		p.run(id, job)
	}
}

func (p *Pool) run(id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked", "worker", id, "panic", r)
		}
	}()
	job(p.ctx)
}

func (p *Pool) Enqueue(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- job:
		return nil
	default:
		return ErrPoolFull
	}
}

// Shutdown stops accepting jobs and waits for the queued ones to finish. When
// ctx expires first, running jobs see their context cancelled and ctx.Err()
// is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}
