package threads

import (
	"context"
	"fmt"
	"io"
)

// External keeps its thread private and hands it out on request, so the
// thread body lives next to the type that owns it.
type External struct {
	thread *Thread
}

// NewExternal builds the thread but does not start it.
func NewExternal(w io.Writer) *External {
	return &External{
		thread: New("ExternalThread", func(context.Context) error {
			_, err := fmt.Fprintln(w, "Hello from a thread created in its own package!")
			return err
		}),
	}
}

// Thread returns the encapsulated thread.
func (e *External) Thread() *Thread { return e.thread }

// Greeter is a custom thread type: it embeds *Thread, so Start, Join and
// Name come for free, and adds its own state.
type Greeter struct {
	*Thread
	Greeting string
}

// NewGreeter returns a thread that writes greeting, prefixed with its name.
func NewGreeter(name, greeting string, w io.Writer) *Greeter {
	g := &Greeter{Greeting: greeting}
	g.Thread = New(name, func(context.Context) error {
		_, err := fmt.Fprintf(w, "[%s] %s\n", g.Name(), g.Greeting)
		return err
	})
	return g
}
