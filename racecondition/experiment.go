package racecondition

import (
	"context"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidConfig is returned when an experiment is configured with
// non-positive counts.
var ErrInvalidConfig = errors.New("invalid experiment configuration")

// ExperimentConfig holds the parameters of one experiment.
type ExperimentConfig struct {
	Strategy Strategy

	// Iterations is how many times the workers are started and joined.
	// Defaults to 100.
	Iterations int

	// Workers is the number of goroutines per iteration. Defaults to 2.
	Workers int

	// Increments is how often each worker increments per iteration.
	// Defaults to 100.
	Increments int

	// Logger receives progress records. If nil, grip's default journaler is used.
	Logger grip.Journaler
}

func (c *ExperimentConfig) withDefaults() ExperimentConfig {
	out := *c
	if out.Iterations == 0 {
		out.Iterations = 100
	}
	if out.Workers == 0 {
		out.Workers = 2
	}
	if out.Increments == 0 {
		out.Increments = 100
	}
	if out.Logger == nil {
		out.Logger = grip.GetDefaultJournaler()
	}
	return out
}

// Validate reports negative counts and unknown strategies. Zero counts are
// filled in by defaults before validation.
func (c ExperimentConfig) Validate() error {
	if _, ok := strategyNames[c.Strategy]; !ok {
		return errors.Wrapf(ErrUnknownStrategy, "strategy %d", int(c.Strategy))
	}
	if c.Iterations < 0 || c.Workers < 0 || c.Increments < 0 {
		return errors.Wrapf(ErrInvalidConfig, "iterations=%d workers=%d increments=%d",
			c.Iterations, c.Workers, c.Increments)
	}
	return nil
}

// IterationResult is what the caller reads after joining the workers of one
// iteration.
type IterationResult struct {
	Iteration int   // 1-based
	Expected  int64 // Workers * Increments
	Got       int64
	Lost      int64 // Expected - Got

	// WorkerValues holds each worker's own final value. Only set for Local.
	WorkerValues []int64
}

// Observer is called after every iteration, in order, from the goroutine
// that called Run.
type Observer func(IterationResult)

// Run executes the experiment: for every iteration it resets the counter,
// starts the workers, waits for all of them and records what it reads.
// Cancelling ctx stops the experiment between iterations; the partial report
// is returned together with the context error.
func Run(ctx context.Context, cfg ExperimentConfig, observe Observer) (*Report, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	report := &Report{
		Strategy: cfg.Strategy,
		Workers:  cfg.Workers,
		Expected: int64(cfg.Workers) * int64(cfg.Increments),
	}

	cfg.Logger.Info(message.Fields{
		"message":    "starting race experiment",
		"strategy":   cfg.Strategy.String(),
		"iterations": cfg.Iterations,
		"workers":    cfg.Workers,
		"increments": cfg.Increments,
	})

	var (
		counter Counter
		local   *LocalStore
	)
	if cfg.Strategy == Local {
		local = NewLocal(0)
	} else {
		var err error
		if counter, err = NewCounter(cfg.Strategy); err != nil {
			return nil, err
		}
		if cc, ok := counter.(*ChannelCounter); ok {
			defer cc.Close()
		}
	}

	for i := 1; i <= cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return report, errors.Wrapf(err, "stopped before iteration %d", i)
		}

		var (
			res IterationResult
			err error
		)
		if local != nil {
			res, err = runLocalIteration(ctx, local, cfg)
		} else {
			res, err = runSharedIteration(ctx, counter, cfg)
		}
		if err != nil {
			return report, errors.Wrapf(err, "iteration %d", i)
		}
		res.Iteration = i
		res.Expected = report.Expected
		res.Lost = res.Expected - res.Got

		report.Iterations = append(report.Iterations, res)

		cfg.Logger.Debug(message.Fields{
			"message":   "iteration joined",
			"strategy":  cfg.Strategy.String(),
			"iteration": i,
			"got":       res.Got,
			"lost":      res.Lost,
		})
		if observe != nil {
			observe(res)
		}
	}

	if local != nil {
		report.MainValue = local.Value()
	}

	cfg.Logger.Info(message.Fields{
		"message":          "race experiment finished",
		"strategy":         cfg.Strategy.String(),
		"lossy_iterations": report.LostIterations(),
		"total_lost":       report.TotalLost(),
	})

	return report, nil
}

// runSharedIteration resets the shared counter, then starts every worker on
// it and joins them before reading. ctx is checked once per worker before it
// starts incrementing, never inside the increment loop.
func runSharedIteration(ctx context.Context, counter Counter, cfg ExperimentConfig) (IterationResult, error) {
	counter.Reset()

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Workers; w++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for j := 0; j < cfg.Increments; j++ {
				counter.Inc()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return IterationResult{}, err
	}

	return IterationResult{Got: counter.Value()}, nil
}

// runLocalIteration gives each worker its own copy. Each worker writes only
// its own slot of values, so the slice needs no lock.
func runLocalIteration(ctx context.Context, local *LocalStore, cfg ExperimentConfig) (IterationResult, error) {
	values := make([]int64, cfg.Workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Workers; w++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c := local.Copy()
			for j := 0; j < cfg.Increments; j++ {
				c.Inc()
			}
			values[w] = c.Value()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return IterationResult{}, err
	}

	res := IterationResult{WorkerValues: values}
	for _, v := range values {
		res.Got += v
	}
	return res, nil
}
