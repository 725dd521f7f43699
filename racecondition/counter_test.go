package racecondition_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/marcodamonte/concurrency/racetime/racecondition"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/logging"
	"github.com/mongodb/grip/send"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quietLogger records Info and above in memory so tests stay silent and can
// inspect what was logged.
func quietLogger(t *testing.T) (grip.Journaler, *send.InternalSender) {
	sender, err := send.NewInternalLogger("racecondition-test", send.LevelInfo{Threshold: level.Info, Default: level.Info})
	require.NoError(t, err)
	return logging.MakeGrip(sender), sender
}

// drain returns every queued message without blocking once the queue is empty.
func drain(sender *send.InternalSender) []string {
	var out []string
	for {
		m, ok := sender.GetMessageSafe()
		if !ok {
			return out
		}
		out = append(out, m.Message.String())
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range racecondition.Strategies {
		got, err := racecondition.ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	got, err := racecondition.ParseStrategy("  MUTEX ")
	require.NoError(t, err)
	assert.Equal(t, racecondition.Mutex, got)

	_, err = racecondition.ParseStrategy("spinlock")
	assert.True(t, errors.Is(err, racecondition.ErrUnknownStrategy))
	assert.Equal(t, "unknown", racecondition.Strategy(42).String())
}

func TestNewCounterRejectsLocal(t *testing.T) {
	c, err := racecondition.NewCounter(racecondition.Local)
	assert.Nil(t, c)
	assert.True(t, errors.Is(err, racecondition.ErrUnknownStrategy))
}

// TestSynchronizedCountersAreExact hammers every synchronized counter from
// several goroutines; none may lose an update.
func TestSynchronizedCountersAreExact(t *testing.T) {
	const (
		goroutines = 8
		increments = 1000
	)

	for _, s := range []racecondition.Strategy{racecondition.Mutex, racecondition.Atomic, racecondition.Channel} {
		t.Run(s.String(), func(t *testing.T) {
			c, err := racecondition.NewCounter(s)
			require.NoError(t, err)
			if cc, ok := c.(*racecondition.ChannelCounter); ok {
				defer cc.Close()
			}

			var wg sync.WaitGroup
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < increments; j++ {
						c.Inc()
					}
				}()
			}
			wg.Wait()

			assert.EqualValues(t, goroutines*increments, c.Value())

			c.Reset()
			assert.Zero(t, c.Value())
		})
	}
}

func TestUnsafeCounterFromOneGoroutine(t *testing.T) {
	var c racecondition.UnsafeCounter
	for i := 0; i < 100; i++ {
		c.Inc()
	}
	assert.EqualValues(t, 100, c.Value())
	c.Reset()
	assert.Zero(t, c.Value())
}

func TestChannelCounterCloseIsIdempotent(t *testing.T) {
	c := racecondition.NewChannelCounter()
	c.Inc()
	c.Inc()
	assert.EqualValues(t, 2, c.Value())

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestLocalCopiesAreIndependent(t *testing.T) {
	store := racecondition.NewLocal(5)

	a, b := store.Copy(), store.Copy()
	require.NotSame(t, a, b)

	var wg sync.WaitGroup
	for _, c := range []*racecondition.LocalCopy{a, b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.Inc()
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 105, a.Value())
	assert.EqualValues(t, 105, b.Value())
	assert.EqualValues(t, 5, store.Value(), "workers must not reach the creator's copy")

	store.Own().Inc()
	assert.EqualValues(t, 6, store.Value())
	assert.EqualValues(t, 5, store.Copy().Value())
}
