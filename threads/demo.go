package threads

import (
	"context"
	"fmt"
	"io"

	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

// Demo starts a basic thread, a panicking thread with a handler, an
// encapsulated thread and a custom thread type, joins them all, and then
// shows that a finished thread cannot be started again. Output order of the
// first four lines depends on scheduling.
func Demo(ctx context.Context, w io.Writer, logger grip.Journaler) error {
	w = NewSyncWriter(w)

	basic := New("BasicThread", func(context.Context) error {
		_, err := fmt.Fprintln(w, "Hello, from this Thread!")
		return err
	})

	failing := New("ExceptionThread", func(context.Context) error {
		panic("exception from thread!")
	})
	failing.SetLogger(logger)
	failing.SetPanicHandler(func(name string, err error) {
		fmt.Fprintf(w, "An exception occurred in thread: %s (%v)\n", name, err)
	})

	external := NewExternal(w).Thread()
	greeter := NewGreeter("CustomThread", "Hello from a custom thread type!", w)

	all := []*Thread{basic, failing, external, greeter.Thread}
	for _, t := range all {
		if err := t.Start(ctx); err != nil {
			return err
		}
	}

	for _, t := range all {
		err := t.Join(ctx)
		var perr *PanicError
		if err != nil && !errors.As(err, &perr) {
			return errors.Wrapf(err, "joining %s", t.Name())
		}
	}

	// A thread runs once; each run needs a new Thread.
	if err := basic.Start(ctx); err != nil {
		fmt.Fprintf(w, "restarting %s: %v\n", basic.Name(), err)
	}
	return nil
}

// PoolDemo runs a batch of named tasks through a pool. One task panics and
// one fails; the pool survives both. The final metrics are returned and
// printed.
func PoolDemo(ctx context.Context, w io.Writer, cfg PoolConfig) (Metrics, error) {
	w = NewSyncWriter(w)
	if cfg.PanicHandler == nil {
		cfg.PanicHandler = func(name string, err error) {
			fmt.Fprintf(w, "  recovered: %v\n", err)
		}
	}

	pool := NewPool(cfg)
	for i := 1; i <= 6; i++ {
		name := fmt.Sprintf("task-%d", i)
		err := pool.Submit(ctx, name, func(context.Context) error {
			switch i {
			case 3:
				panic(fmt.Sprintf("%s blew up", name))
			case 5:
				return errors.Errorf("%s failed", name)
			}
			_, err := fmt.Fprintf(w, "  %s done\n", name)
			return err
		})
		if err != nil {
			_ = pool.Shutdown()
			return pool.Metrics(), err
		}
	}

	err := pool.Shutdown()
	m := pool.Metrics()
	m.Print(w)
	return m, err
}
