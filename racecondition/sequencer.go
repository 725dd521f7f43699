package racecondition

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Sequencer increments a counter and prints the new value while still
// holding the lock, so the printed values are strictly increasing no matter
// how the workers interleave.
type Sequencer struct {
	mu    sync.Mutex
	count int
}

// Increment adds one and writes the new value to w as a single line.
func (s *Sequencer) Increment(w io.Writer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if _, err := fmt.Fprintln(w, s.count); err != nil {
		return s.count, errors.Wrap(err, "printing count")
	}
	return s.count, nil
}

// Count returns the current value.
func (s *Sequencer) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// RunExercise starts workers goroutines that each call Increment increments
// times, joins them and returns the final count. The first write error or
// ctx cancellation stops the remaining workers.
func RunExercise(ctx context.Context, w io.Writer, workers, increments int) (int, error) {
	if workers <= 0 || increments < 0 {
		return 0, errors.Wrapf(ErrInvalidConfig, "workers=%d increments=%d", workers, increments)
	}

	var s Sequencer
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for j := 0; j < increments; j++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				if _, err := s.Increment(w); err != nil {
					return err
				}
			}
			return nil
		})
	}

	err := g.Wait()
	return s.Count(), err
}
