// Package queue is a bounded completion queue: submitted operations run on a
// fixed worker pool and their outcomes are delivered as rpcerr.Result values.
package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc/codes"

	callcodes "github.com/Goden-Gun/grpcbind/pkg/codes"
	log "github.com/Goden-Gun/grpcbind/pkg/logger"
	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
	"github.com/Goden-Gun/grpcbind/pkg/status"
)

// Config sizes the queue.
type Config struct {
	Workers  int `yaml:"workers" mapstructure:"workers"`
	Capacity int `yaml:"capacity" mapstructure:"capacity"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Capacity <= 0 {
		c.Capacity = 256
	}
}

// Op is a unit of work executed by a queue worker.
type Op[T any] func(ctx context.Context) (T, error)

type task struct {
	ctx   context.Context
	run   func(ctx context.Context)
	abort func()
}

// Queue runs submitted operations until Shutdown.
type Queue struct {
	tasks chan task

	mu     sync.RWMutex
	closed bool

	aborted atomic.Bool
	baseCtx context.Context
	cancel  context.CancelFunc

	wg           sync.WaitGroup
	shutdownOnce sync.Once
	shutdownErr  error
}

// New starts the worker pool.
func New(cfg Config) *Queue {
	cfg.ApplyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		tasks:   make(chan task, cfg.Capacity),
		baseCtx: ctx,
		cancel:  cancel,
	}
	q.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go q.worker()
	}
	return q
}

// Submit enqueues op without blocking. It fails with CallFailure
// (TooManyOperations) when the queue is full and with QueueShutdown once
// Shutdown has begun. The returned channel yields exactly one Result.
func Submit[T any](ctx context.Context, q *Queue, op Op[T]) (<-chan rpcerr.Result[T], error) {
	out := make(chan rpcerr.Result[T], 1)
	t := task{
		ctx: ctx,
		run: func(runCtx context.Context) {
			out <- execute(runCtx, op)
			close(out)
		},
		abort: func() {
			out <- rpcerr.Fail[T](rpcerr.QueueShutdown())
			close(out)
		},
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return nil, rpcerr.QueueShutdown()
	}
	select {
	case q.tasks <- t:
		return out, nil
	default:
		return nil, rpcerr.CallFailure(callcodes.TooManyOperations)
	}
}

func execute[T any](ctx context.Context, op Op[T]) (res rpcerr.Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("queue: operation panicked: %v", r)
			res = rpcerr.Fail[T](rpcerr.RPCFailure(status.WithDetails(codes.Internal, fmt.Sprintf("panic: %v", r))))
		}
	}()
	v, err := op(ctx)
	if err != nil {
		return rpcerr.Fail[T](rpcerr.FromError(err))
	}
	return rpcerr.Ok(v)
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for t := range q.tasks {
		if q.aborted.Load() {
			t.abort()
			continue
		}
		runCtx, cancel := context.WithCancel(t.ctx)
		stop := context.AfterFunc(q.baseCtx, cancel)
		t.run(runCtx)
		stop()
		cancel()
	}
}

// Shutdown stops intake and waits for queued operations to finish. If ctx
// ends first, running operations are cancelled, the rest complete with
// QueueShutdown, and Shutdown returns ShutdownFailed. Later calls return the
// first outcome.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.shutdownOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.tasks)
		q.mu.Unlock()

		done := make(chan struct{})
		go func() {
			q.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			q.cancel()
		case <-ctx.Done():
			q.aborted.Store(true)
			q.cancel()
			log.WithError(ctx.Err()).Warn("queue: shutdown did not complete in time")
			q.shutdownErr = rpcerr.ShutdownFailed()
		}
	})
	return q.shutdownErr
}
