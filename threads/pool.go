package threads

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/cheynewallace/tabby"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// Sentinel errors returned by the pool.
var (
	ErrPoolClosed      = errors.New("thread pool is closed")
	ErrShutdownTimeout = errors.New("shutdown timeout elapsed; workers were force-cancelled")
)

// PoolConfig holds pool construction parameters.
type PoolConfig struct {
	// Workers is the number of goroutines that consume tasks concurrently.
	Workers int

	// QueueSize is the capacity of the task channel. 0 makes Submit block
	// until a worker is free.
	QueueSize int

	// ShutdownTimeout is the maximum time Shutdown waits for in-flight tasks
	// before cancelling them. Defaults to 30 s.
	ShutdownTimeout time.Duration

	// PanicHandler is called for every task that panics. Without one the
	// panic and its stack are logged through Logger. The worker keeps
	// running either way.
	PanicHandler PanicHandler

	// Logger defaults to grip's default journaler.
	Logger grip.Journaler
}

func (c *PoolConfig) withDefaults() PoolConfig {
	out := *c
	if out.Workers <= 0 {
		out.Workers = 1
	}
	if out.QueueSize < 0 {
		out.QueueSize = 0
	}
	if out.ShutdownTimeout <= 0 {
		out.ShutdownTimeout = 30 * time.Second
	}
	if out.Logger == nil {
		out.Logger = grip.GetDefaultJournaler()
	}
	return out
}

// Metrics exposes live pool counters. Every field is updated atomically.
type Metrics struct {
	Submitted int64 // tasks accepted into the queue
	Started   int64 // tasks a worker picked up
	Succeeded int64 // tasks that returned nil
	Failed    int64 // tasks that returned an error or were skipped after cancellation
	Panicked  int64 // tasks that panicked (also counted in Failed)
	Dropped   int64 // tasks rejected after shutdown began or whose Submit was cancelled
}

// Print writes the counters as a table.
func (m Metrics) Print(w io.Writer) {
	t := tabby.NewCustom(tabwriter.NewWriter(w, 0, 0, 2, ' ', 0))
	t.AddHeader("Submitted", "Started", "Succeeded", "Failed", "Panicked", "Dropped")
	t.AddLine(m.Submitted, m.Started, m.Succeeded, m.Failed, m.Panicked, m.Dropped)
	t.Print()
}

type task struct {
	name string
	fn   Runnable
}

// Pool runs named tasks on a fixed set of worker goroutines. A panicking
// task is isolated: it is reported to the PanicHandler and the worker moves
// on to the next task.
//
//	pool := threads.NewPool(cfg)
//	pool.Submit(ctx, "name", fn)
//	pool.Shutdown()   // stop accepting, drain, cancel stragglers
type Pool struct {
	cfg     PoolConfig
	tasks   chan task
	wg      sync.WaitGroup
	metrics Metrics

	workerCtx     context.Context
	cancelWorkers context.CancelFunc

	once   sync.Once
	mu     sync.RWMutex // guards closed against concurrent Submit sends
	closed bool
}

// NewPool starts the workers. They run until Shutdown.
func NewPool(cfg PoolConfig) *Pool {
	cfg = cfg.withDefaults()
	workerCtx, cancelWorkers := context.WithCancel(context.Background())

	p := &Pool{
		cfg:           cfg,
		tasks:         make(chan task, cfg.QueueSize),
		workerCtx:     workerCtx,
		cancelWorkers: cancelWorkers,
	}

	p.cfg.Logger.Info(message.Fields{
		"message":          "starting thread pool",
		"workers":          cfg.Workers,
		"queue":            cfg.QueueSize,
		"shutdown_timeout": cfg.ShutdownTimeout.String(),
	})

	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.runWorker(i)
	}
	return p
}

// Submit enqueues a task, blocking while the queue is full. It returns
// ErrPoolClosed once Shutdown began, or the caller's context error if ctx
// ends while waiting for space.
func (p *Pool) Submit(ctx context.Context, name string, fn Runnable) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		atomic.AddInt64(&p.metrics.Dropped, 1)
		return errors.Wrapf(ErrPoolClosed, "task %q", name)
	}

	select {
	case p.tasks <- task{name: name, fn: fn}:
		atomic.AddInt64(&p.metrics.Submitted, 1)
		return nil
	case <-ctx.Done():
		atomic.AddInt64(&p.metrics.Dropped, 1)
		return errors.Wrapf(ctx.Err(), "submitting task %q", name)
	}
}

// Shutdown stops the pool:
//  1. no new tasks are accepted,
//  2. workers drain the queue and exit,
//  3. after ShutdownTimeout the remaining tasks are cancelled via their
//     context and Shutdown waits for the workers to notice.
//
// Only the first call does the work; it returns ErrShutdownTimeout if a forced
// cancellation was needed.
//
// Submit callers blocked on a full queue hold the read lock, so Shutdown
// cannot close the queue until they are through.
func (p *Pool) Shutdown() error {
	var shutdownErr error

	p.once.Do(func() {
		p.cfg.Logger.Info("thread pool shutdown initiated")

		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		timer := time.NewTimer(p.cfg.ShutdownTimeout)
		defer timer.Stop()

		select {
		case <-done:
			p.cfg.Logger.Info("thread pool shutdown complete")
		case <-timer.C:
			p.cfg.Logger.Warning(message.Fields{
				"message": "shutdown timeout elapsed, cancelling workers",
				"timeout": p.cfg.ShutdownTimeout.String(),
			})
			p.cancelWorkers()
			<-done
			shutdownErr = ErrShutdownTimeout
		}
		p.cancelWorkers()
	})

	return shutdownErr
}

// Metrics returns a snapshot. Each field is consistent on its own; fields are
// not read under one lock.
func (p *Pool) Metrics() Metrics {
	return Metrics{
		Submitted: atomic.LoadInt64(&p.metrics.Submitted),
		Started:   atomic.LoadInt64(&p.metrics.Started),
		Succeeded: atomic.LoadInt64(&p.metrics.Succeeded),
		Failed:    atomic.LoadInt64(&p.metrics.Failed),
		Panicked:  atomic.LoadInt64(&p.metrics.Panicked),
		Dropped:   atomic.LoadInt64(&p.metrics.Dropped),
	}
}

func (p *Pool) runWorker(id int) {
	defer p.wg.Done()
	worker := fmt.Sprintf("worker-%d", id)
	p.cfg.Logger.Debugf("[%s] started", worker)

	for tk := range p.tasks {
		if p.workerCtx.Err() != nil {
			p.cfg.Logger.Debugf("[%s] skipping %q: pool cancelled", worker, tk.name)
			atomic.AddInt64(&p.metrics.Failed, 1)
			continue
		}

		atomic.AddInt64(&p.metrics.Started, 1)

		var panicLogger grip.Journaler
		if p.cfg.PanicHandler == nil {
			panicLogger = p.cfg.Logger
		}
		err := call(p.workerCtx, tk.name, tk.fn, panicLogger, message.Fields{
			"message": "uncaught panic in pool task",
			"worker":  worker,
			"task":    tk.name,
		})
		var perr *PanicError
		switch {
		case errors.As(err, &perr):
			atomic.AddInt64(&p.metrics.Panicked, 1)
			atomic.AddInt64(&p.metrics.Failed, 1)
			if p.cfg.PanicHandler != nil {
				p.cfg.PanicHandler(tk.name, err)
			}
		case err != nil:
			atomic.AddInt64(&p.metrics.Failed, 1)
			p.cfg.Logger.Warning(message.WrapError(err, message.Fields{
				"message": "task failed",
				"worker":  worker,
				"task":    tk.name,
			}))
		default:
			atomic.AddInt64(&p.metrics.Succeeded, 1)
		}
	}

	p.cfg.Logger.Debugf("[%s] exited", worker)
}
