package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var ErrPoolClosed = errors.New("worker pool closed")

type job struct {
	ctx context.Context
	fn  func(context.Context)
}

// Pool runs blocking storage calls on a fixed set of goroutines so request
// handlers never hold more than size database round trips at once.
type Pool struct {
	size int
	log  *zap.Logger

	jobs chan job
	quit chan struct{}
	wg   sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool
}

func NewPool(size int, log *zap.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		size: size,
		log:  log,
		jobs: make(chan job),
		quit: make(chan struct{}),
	}
}

func (p *Pool) Size() int { return p.size }

// Start launches the workers. They exit when ctx is done or Stop is called.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.loop(ctx, i)
	}
	p.log.Info("worker pool started", zap.Int("workers", p.size))
}

func (p *Pool) loop(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			p.log.Debug("worker stopping", zap.Int("worker", id), zap.Error(ctx.Err()))
			return
		case <-p.quit:
			return
		case j := <-p.jobs:
			p.exec(id, j)
		}
	}
}

func (p *Pool) exec(id int, j job) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("worker job panicked", zap.Int("worker", id), zap.Any("panic", r))
		}
	}()
	j.fn(j.ctx)
}

// Stop closes the pool and waits for running jobs to return.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.quit)
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Info("worker pool stopped")
}

func (p *Pool) submit(ctx context.Context, j job) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.quit:
		return ErrPoolClosed
	}
}

type result[T any] struct {
	val T
	err error
}

// Run executes fn on one of the pool's workers and waits for its result.
// If ctx ends while fn is running, Run returns ctx.Err() and the result of
// fn is discarded once it finishes.
func Run[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	out := make(chan result[T], 1)

	err := p.submit(ctx, job{ctx: ctx, fn: func(jctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				out <- result[T]{err: errors.New("worker job panicked")}
				panic(r)
			}
		}()
		v, err := fn(jctx)
		out <- result[T]{val: v, err: err}
	}})
	if err != nil {
		return zero, err
	}

	select {
	case r := <-out:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Do is Run for calls that only return an error.
func Do(ctx context.Context, p *Pool, fn func(context.Context) error) error {
	_, err := Run(ctx, p, func(c context.Context) (struct{}, error) {
		return struct{}{}, fn(c)
	})
	return err
}
