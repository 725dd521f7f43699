// Package threads gives goroutines the shape of named threads: start once,
// join, and route a panic to a handler instead of crashing the program.
package threads

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/grip/recovery"
	"github.com/pkg/errors"
)

// Runnable is the body of a thread or pool task.
type Runnable func(ctx context.Context) error

// PanicHandler is called with the name of the thread or task that panicked
// and the recovered panic as a *PanicError.
type PanicHandler func(name string, err error)

// Sentinel errors returned by Thread.
var (
	ErrAlreadyStarted = errors.New("thread already started")
	ErrNotStarted     = errors.New("thread not started")
)

// PanicError carries a recovered panic value.
type PanicError struct {
	Name  string
	Value interface{}
	err   error
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Name, e.Value)
}

// Unwrap returns the underlying error, which carries the stack trace.
func (e *PanicError) Unwrap() error { return e.err }

// call runs fn and converts a panic into a *PanicError. When logger is set
// the panic and its stack are logged through it with fields; a nil logger
// means a handler takes care of the panic and nothing is logged.
func call(ctx context.Context, name string, fn Runnable, logger grip.Journaler, fields message.Fields) (err error) {
	defer func() {
		if p := recover(); p != nil {
			perr := &PanicError{Name: name, Value: p}
			if logger != nil {
				perr.err = recovery.SendMessageWithPanicError(p, nil, logger, fields)
			} else {
				perr.err = errors.Errorf("hit panic in %s: %v", name, p)
			}
			err = perr
		}
	}()
	return fn(ctx)
}

// Thread is a named goroutine that runs its body once.
//
// Lifecycle:
//
//	t := threads.New("worker", fn)
//	t.Start(ctx)   // second Start returns ErrAlreadyStarted
//	t.Join(ctx)    // returns fn's error, or a *PanicError
//
// A finished Thread cannot be restarted; build a new one for every run.
type Thread struct {
	name   string
	fn     Runnable
	logger grip.Journaler

	mu      sync.Mutex
	handler PanicHandler
	started bool

	done chan struct{}
	err  error
}

// New returns an unstarted thread.
func New(name string, fn Runnable) *Thread {
	return &Thread{
		name:   name,
		fn:     fn,
		logger: grip.GetDefaultJournaler(),
		done:   make(chan struct{}),
	}
}

// Name returns the thread's name.
func (t *Thread) Name() string { return t.name }

// SetLogger replaces the journaler used by the default panic handler.
func (t *Thread) SetLogger(logger grip.Journaler) {
	if logger == nil {
		return
	}
	t.mu.Lock()
	t.logger = logger
	t.mu.Unlock()
}

// SetPanicHandler installs h for panics escaping the thread body. Without a
// handler the panic and its stack are logged through the thread's logger. It has no effect once the
// thread started.
func (t *Thread) SetPanicHandler(h PanicHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		t.handler = h
	}
}

// Start launches the body in a new goroutine.
func (t *Thread) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return errors.Wrapf(ErrAlreadyStarted, "thread %q", t.name)
	}
	t.started = true
	handler, logger := t.handler, t.logger
	t.mu.Unlock()

	go func() {
		defer close(t.done)

		var panicLogger grip.Journaler
		if handler == nil {
			panicLogger = logger
		}
		err := call(ctx, t.name, t.fn, panicLogger, message.Fields{
			"message": "uncaught panic in thread",
			"thread":  t.name,
		})
		var perr *PanicError
		if handler != nil && errors.As(err, &perr) {
			handler(t.name, err)
		}
		t.err = err
	}()
	return nil
}

// Join waits for the thread to finish and returns its result. It returns
// early with ctx's error if ctx is done first.
func (t *Thread) Join(ctx context.Context) error {
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()
	if !started {
		return errors.Wrapf(ErrNotStarted, "thread %q", t.name)
	}

	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "joining thread %q", t.name)
	}
}

// Done is closed when the body returned.
func (t *Thread) Done() <-chan struct{} { return t.done }

// syncWriter serializes writes from several threads to one writer.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSyncWriter wraps w so concurrent threads can print to it.
func NewSyncWriter(w io.Writer) io.Writer {
	if sw, ok := w.(*syncWriter); ok {
		return sw
	}
	return &syncWriter{w: w}
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
