package racecondition

// Go has no goroutine-local storage. The equivalent of a thread-local
// variable is state that exactly one goroutine owns: the worker is handed
// its own copy and nobody else ever sees it.

// LocalStore hands out worker-owned copies of a counter that all start from
// the same initial value. The creator keeps a copy of its own which workers
// never touch.
type LocalStore struct {
	initial int64
	own     LocalCopy
}

// NewLocal returns a store whose copies start at initial.
func NewLocal(initial int64) *LocalStore {
	return &LocalStore{initial: initial, own: LocalCopy{n: initial}}
}

// Copy returns a new copy for one worker. The copy must not be shared.
func (l *LocalStore) Copy() *LocalCopy {
	return &LocalCopy{n: l.initial}
}

// Own returns the creator's copy.
func (l *LocalStore) Own() *LocalCopy { return &l.own }

// Value is the creator's value. Worker increments never reach it.
func (l *LocalStore) Value() int64 { return l.own.n }

// LocalCopy is a counter used by a single goroutine. It needs no locking
// because it is never shared.
type LocalCopy struct {
	n int64
}

func (c *LocalCopy) Inc()         { c.n++ }
func (c *LocalCopy) Value() int64 { return c.n }
func (c *LocalCopy) Reset()       { c.n = 0 }
