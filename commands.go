package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/marcodamonte/concurrency/racetime/datetime"
	"github.com/marcodamonte/concurrency/racetime/racecondition"
	"github.com/marcodamonte/concurrency/racetime/threads"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

const (
	strategyFlagName   = "strategy"
	iterationsFlagName = "iterations"
	workersFlagName    = "workers"
	incrementsFlagName = "increments"
	quietFlagName      = "quiet"
	zoneDirFlagName    = "zone-dir"
	listZonesFlagName  = "list-zones"
)

var strategyTitles = map[racecondition.Strategy]string{
	racecondition.Unsynchronized: "Counter race — lost updates",
	racecondition.Mutex:          "Counter fix — sync.Mutex",
	racecondition.Local:          "Counter fix — worker-local copies",
	racecondition.Atomic:         "Counter fix — sync/atomic",
	racecondition.Channel:        "Counter fix — channel (actor)",
}

// loadConfig reads --conf and applies the command's own flags on top.
func loadConfig(c *cli.Context) (*Config, error) {
	conf, err := LoadConfig(c.GlobalString("conf"))
	if err != nil {
		return nil, err
	}

	if c.IsSet(strategyFlagName) {
		conf.Race.Strategy = c.String(strategyFlagName)
	}
	if c.IsSet(iterationsFlagName) {
		conf.Race.Iterations = c.Int(iterationsFlagName)
	}
	if c.IsSet(quietFlagName) {
		conf.Race.Quiet = c.Bool(quietFlagName)
	}
	if c.IsSet(workersFlagName) {
		conf.Race.Workers = c.Int(workersFlagName)
		conf.Exercise.Workers = c.Int(workersFlagName)
	}
	if c.IsSet(incrementsFlagName) {
		conf.Race.Increments = c.Int(incrementsFlagName)
		conf.Exercise.Increments = c.Int(incrementsFlagName)
	}
	if c.IsSet(zoneDirFlagName) {
		conf.DateTime.ZoneInfoDir = c.String(zoneDirFlagName)
	}
	if c.IsSet(listZonesFlagName) {
		conf.DateTime.ListZones = c.Bool(listZonesFlagName)
	}

	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid flags")
	}
	return conf, nil
}

func countFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:  workersFlagName,
			Usage: "number of concurrent workers",
		},
		cli.IntFlag{
			Name:  incrementsFlagName,
			Usage: "increments per worker",
		},
	}
}

func raceCommand() cli.Command {
	return cli.Command{
		Name:  "race",
		Usage: "run the shared-counter experiment with one or all strategies",
		Flags: append(countFlags(),
			cli.StringFlag{
				Name:  strategyFlagName,
				Usage: "unsynchronized|mutex|local|atomic|channel|all",
			},
			cli.IntFlag{
				Name:  iterationsFlagName,
				Usage: "how many times the workers are started and joined",
			},
			cli.BoolFlag{
				Name:  quietFlagName,
				Usage: "print only the summary table",
			},
		),
		Action: func(c *cli.Context) error {
			conf, err := loadConfig(c)
			if err != nil {
				return err
			}
			ctx, stop := commandContext()
			defer stop()

			return runRace(ctx, c.App.Writer, conf.Race)
		},
	}
}

func exerciseCommand() cli.Command {
	return cli.Command{
		Name:  "exercise",
		Usage: "increment under a lock and print every value",
		Flags: countFlags(),
		Action: func(c *cli.Context) error {
			conf, err := loadConfig(c)
			if err != nil {
				return err
			}
			ctx, stop := commandContext()
			defer stop()

			return runExercise(ctx, c.App.Writer, conf.Exercise)
		},
	}
}

func threadsCommand() cli.Command {
	return cli.Command{
		Name:  "threads",
		Usage: "start, join and recover named goroutines; run a thread pool",
		Action: func(c *cli.Context) error {
			conf, err := loadConfig(c)
			if err != nil {
				return err
			}
			ctx, stop := commandContext()
			defer stop()

			return runThreads(ctx, c.App.Writer, conf.Pool)
		},
	}
}

func dateTimeCommand() cli.Command {
	return cli.Command{
		Name:    "datetime",
		Aliases: []string{"time"},
		Usage:   "tour of dates, times, zones, durations and periods",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  zoneDirFlagName,
				Usage: "zoneinfo directory to list zone IDs from (default $ZONEINFO or " + datetime.DefaultZoneInfoDir + ")",
			},
			cli.BoolFlag{
				Name:  listZonesFlagName,
				Usage: "print every available zone ID",
			},
		},
		Action: func(c *cli.Context) error {
			conf, err := loadConfig(c)
			if err != nil {
				return err
			}
			return runDateTime(c.App.Writer, time.Now(), conf.DateTime)
		},
	}
}

func allCommand() cli.Command {
	return cli.Command{
		Name:  "all",
		Usage: "run every demonstration in order",
		Action: func(c *cli.Context) error {
			conf, err := loadConfig(c)
			if err != nil {
				return err
			}
			ctx, stop := commandContext()
			defer stop()

			w := c.App.Writer
			if err := runRace(ctx, w, conf.Race); err != nil {
				return err
			}
			if err := runExercise(ctx, w, conf.Exercise); err != nil {
				return err
			}
			if err := runThreads(ctx, w, conf.Pool); err != nil {
				return err
			}
			return runDateTime(w, time.Now(), conf.DateTime)
		},
	}
}

func runRace(ctx context.Context, w io.Writer, conf RaceConfig) error {
	strategies := racecondition.Strategies
	if conf.Strategy != "all" {
		s, err := racecondition.ParseStrategy(conf.Strategy)
		if err != nil {
			return err
		}
		strategies = []racecondition.Strategy{s}
	}

	var reports []*racecondition.Report
	for _, s := range strategies {
		section(w, strategyTitles[s])

		var observe racecondition.Observer
		if !conf.Quiet {
			observe = func(it racecondition.IterationResult) {
				racecondition.PrintIteration(w, it)
			}
		}
		report, err := racecondition.Run(ctx, racecondition.ExperimentConfig{
			Strategy:   s,
			Iterations: conf.Iterations,
			Workers:    conf.Workers,
			Increments: conf.Increments,
			Logger:     grip.GetDefaultJournaler(),
		}, observe)
		if err != nil {
			return errors.Wrapf(err, "running %s experiment", s)
		}
		if s == racecondition.Local {
			fmt.Fprintf(w, "  count value in the main goroutine: %d\n", report.MainValue)
		}
		reports = append(reports, report)
	}

	section(w, "Summary")
	racecondition.Print(w, reports...)
	return nil
}

func runExercise(ctx context.Context, w io.Writer, conf ExerciseConfig) error {
	section(w, "Exercise — lock, increment, print")
	final, err := racecondition.RunExercise(ctx, w, conf.Workers, conf.Increments)
	if err != nil {
		return errors.Wrap(err, "running exercise")
	}
	fmt.Fprintf(w, "  final count: %d\n", final)
	return nil
}

func runThreads(ctx context.Context, w io.Writer, conf PoolConfig) error {
	section(w, "Threads — start, join, uncaught panics")
	if err := threads.Demo(ctx, w, grip.GetDefaultJournaler()); err != nil {
		return errors.Wrap(err, "running thread demo")
	}

	section(w, "Thread pool — panic isolation and metrics")
	_, err := threads.PoolDemo(ctx, w, threads.PoolConfig{
		Workers:         conf.Workers,
		QueueSize:       conf.QueueSize,
		ShutdownTimeout: conf.ShutdownTimeout,
		Logger:          grip.GetDefaultJournaler(),
	})
	return errors.Wrap(err, "running thread pool demo")
}

func runDateTime(w io.Writer, now time.Time, conf DateTimeConfig) error {
	section(w, "Date and time")

	zones := datetime.SystemZones()
	if conf.ZoneInfoDir != "" {
		zones = datetime.NewZones(os.DirFS(conf.ZoneInfoDir))
	}
	return errors.Wrap(datetime.Tour(w, now, zones, datetime.TourConfig{
		Zones:     conf.Zones,
		ListZones: conf.ListZones,
		Schedule:  conf.Schedule,
	}), "running date/time tour")
}
