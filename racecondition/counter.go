// Package racecondition runs the classic shared-counter experiments: several
// workers increment one counter concurrently, the caller joins them and
// reads the result. The synchronization strategy decides whether updates
// are lost.
package racecondition

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Strategy selects how the shared counter is protected.
type Strategy int

const (
	// Unsynchronized increments a plain integer from every worker.
	Unsynchronized Strategy = iota
	// Mutex serializes every increment with a sync.Mutex.
	Mutex
	// Local gives every worker its own copy of the counter.
	Local
	// Atomic uses a single indivisible add.
	Atomic
	// Channel hands every increment to the goroutine that owns the counter.
	Channel
)

// Strategies lists every strategy in the order the CLI runs them.
var Strategies = []Strategy{Unsynchronized, Mutex, Local, Atomic, Channel}

// ErrUnknownStrategy is returned for strategy names and values outside Strategies.
var ErrUnknownStrategy = errors.New("unknown synchronization strategy")

var strategyNames = map[Strategy]string{
	Unsynchronized: "unsynchronized",
	Mutex:          "mutex",
	Local:          "local",
	Atomic:         "atomic",
	Channel:        "channel",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseStrategy maps a strategy name back to its value. Matching ignores case.
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownStrategy, "%q", name)
}

// Counter is a counter shared by every worker of an iteration.
type Counter interface {
	Inc()
	Value() int64
	Reset()
}

// NewCounter returns the shared counter for s. Local has no shared counter
// and is rejected; use NewLocal instead.
func NewCounter(s Strategy) (Counter, error) {
	switch s {
	case Unsynchronized:
		return &UnsafeCounter{}, nil
	case Mutex:
		return &MutexCounter{}, nil
	case Atomic:
		return &AtomicCounter{}, nil
	case Channel:
		return NewChannelCounter(), nil
	default:
		return nil, errors.Wrapf(ErrUnknownStrategy, "no shared counter for %s", s)
	}
}

// UnsafeCounter performs a read-modify-write with no synchronization.
//
// n++ is NOT atomic. It compiles to three steps:
//
//	LOAD  n → reg
//	ADD   reg, 1
//	STORE reg → n
//
// Two workers interleaving between LOAD and STORE both write back the same
// value and one increment is lost. `go test -race` flags every access.
type UnsafeCounter struct {
	n int64
}

func (c *UnsafeCounter) Inc()         { c.n++ } // DATA RACE when shared
func (c *UnsafeCounter) Value() int64 { return c.n }
func (c *UnsafeCounter) Reset()       { c.n = 0 }

// MutexCounter holds the lock for the whole read-modify-write, so only one
// worker is inside the critical section at a time.
type MutexCounter struct {
	mu sync.Mutex
	n  int64
}

func (c *MutexCounter) Inc() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
}

func (c *MutexCounter) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func (c *MutexCounter) Reset() {
	c.mu.Lock()
	c.n = 0
	c.mu.Unlock()
}

// AtomicCounter is cheaper than a mutex for a single numeric field.
type AtomicCounter struct {
	n atomic.Int64
}

func (c *AtomicCounter) Inc()         { c.n.Add(1) }
func (c *AtomicCounter) Value() int64 { return c.n.Load() }
func (c *AtomicCounter) Reset()       { c.n.Store(0) }

type opKind int

const (
	opInc opKind = iota
	opValue
	opReset
)

type counterOp struct {
	kind  opKind
	reply chan int64
}

// ChannelCounter is the actor version: one goroutine owns the value and is
// the only one that reads or writes it. Everyone else sends requests.
// No shared memory, so no race by construction.
//
// Calling any method after Close panics.
type ChannelCounter struct {
	ops  chan counterOp
	done chan struct{}
	once sync.Once
}

// NewChannelCounter starts the owner goroutine.
func NewChannelCounter() *ChannelCounter {
	c := &ChannelCounter{
		ops:  make(chan counterOp, 512), // buffer absorbs bursts
		done: make(chan struct{}),
	}
	go c.own()
	return c
}

func (c *ChannelCounter) own() {
	defer close(c.done)

	var n int64
	for op := range c.ops {
		switch op.kind {
		case opInc:
			n++
		case opValue:
			op.reply <- n
		case opReset:
			n = 0
		}
	}
}

func (c *ChannelCounter) Inc()   { c.ops <- counterOp{kind: opInc} }
func (c *ChannelCounter) Reset() { c.ops <- counterOp{kind: opReset} }

// Value is answered after every request sent before it.
func (c *ChannelCounter) Value() int64 {
	reply := make(chan int64, 1)
	c.ops <- counterOp{kind: opValue, reply: reply}
	return <-reply
}

// Close stops the owner goroutine and waits for it to exit. Safe to call
// more than once.
func (c *ChannelCounter) Close() error {
	c.once.Do(func() {
		close(c.ops)
	})
	<-c.done
	return nil
}
