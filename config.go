package main

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Config is the optional YAML file passed with --conf. Every field may be
// overridden by command flags.
type Config struct {
	Race     RaceConfig     `yaml:"race"`
	Exercise ExerciseConfig `yaml:"exercise"`
	Pool     PoolConfig     `yaml:"pool"`
	DateTime DateTimeConfig `yaml:"datetime"`
}

type RaceConfig struct {
	Strategy   string `yaml:"strategy"`
	Iterations int    `yaml:"iterations"`
	Workers    int    `yaml:"workers"`
	Increments int    `yaml:"increments"`
	// Quiet suppresses the per-iteration lines; only the summary is printed.
	Quiet bool `yaml:"quiet"`
}

type ExerciseConfig struct {
	Workers    int `yaml:"workers"`
	Increments int `yaml:"increments"`
}

type PoolConfig struct {
	Workers         int           `yaml:"workers"`
	QueueSize       int           `yaml:"queue_size"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DateTimeConfig struct {
	ZoneInfoDir string   `yaml:"zoneinfo_dir"`
	Zones       []string `yaml:"zones"`
	Schedule    string   `yaml:"schedule"`
	ListZones   bool     `yaml:"list_zones"`
}

func (c *Config) withDefaults() {
	if c.Race.Strategy == "" {
		c.Race.Strategy = "all"
	}
	if c.Race.Iterations == 0 {
		c.Race.Iterations = 100
	}
	if c.Race.Workers == 0 {
		c.Race.Workers = 2
	}
	if c.Race.Increments == 0 {
		c.Race.Increments = 100
	}
	if c.Exercise.Workers == 0 {
		c.Exercise.Workers = 2
	}
	if c.Exercise.Increments == 0 {
		c.Exercise.Increments = 50
	}
	if c.Pool.Workers == 0 {
		c.Pool.Workers = 2
	}
	if c.Pool.QueueSize == 0 {
		c.Pool.QueueSize = 6
	}
	if c.Pool.ShutdownTimeout == 0 {
		c.Pool.ShutdownTimeout = 3 * time.Second
	}
}

// Validate rejects counts below their minimum. It runs after defaults and
// flag overrides, so an explicit zero from a flag is rejected here rather
// than silently replaced by a default further down.
func (c *Config) Validate() error {
	checks := []struct {
		name string
		n    int
		min  int
	}{
		{"race.iterations", c.Race.Iterations, 1},
		{"race.workers", c.Race.Workers, 1},
		{"race.increments", c.Race.Increments, 1},
		{"exercise.workers", c.Exercise.Workers, 1},
		{"exercise.increments", c.Exercise.Increments, 1},
		{"pool.workers", c.Pool.Workers, 1},
		{"pool.queue_size", c.Pool.QueueSize, 0},
	}
	for _, chk := range checks {
		if chk.n < chk.min {
			return errors.Errorf("%s must be at least %d, got %d", chk.name, chk.min, chk.n)
		}
	}
	if c.Pool.ShutdownTimeout < 0 {
		return errors.Errorf("pool.shutdown_timeout must not be negative, got %s", c.Pool.ShutdownTimeout)
	}
	return nil
}

// LoadConfig reads path, or returns the defaults when path is empty.
func LoadConfig(path string) (*Config, error) {
	conf := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading config file '%s'", path)
		}
		if err := yaml.UnmarshalStrict(data, conf); err != nil {
			return nil, errors.Wrapf(err, "parsing config file '%s'", path)
		}
	}
	conf.withDefaults()
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return conf, nil
}
