package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "racetime.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	conf, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "all", conf.Race.Strategy)
	assert.Equal(t, 100, conf.Race.Iterations)
	assert.Equal(t, 2, conf.Race.Workers)
	assert.Equal(t, 100, conf.Race.Increments)
	assert.Equal(t, 2, conf.Exercise.Workers)
	assert.Equal(t, 50, conf.Exercise.Increments)
	assert.Equal(t, 3*time.Second, conf.Pool.ShutdownTimeout)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
race:
  strategy: mutex
  iterations: 7
  quiet: true
pool:
  shutdown_timeout: 250ms
datetime:
  zones: [Europe/Rome, America/New_York]
  schedule: "@hourly"
`)
	conf, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "mutex", conf.Race.Strategy)
	assert.Equal(t, 7, conf.Race.Iterations)
	assert.True(t, conf.Race.Quiet)
	assert.Equal(t, 2, conf.Race.Workers, "unset fields keep their defaults")
	assert.Equal(t, 250*time.Millisecond, conf.Pool.ShutdownTimeout)
	assert.Equal(t, []string{"Europe/Rome", "America/New_York"}, conf.DateTime.Zones)
	assert.Equal(t, "@hourly", conf.DateTime.Schedule)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "race:\n  workers: -3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "race.workers")

	_, err = LoadConfig(writeConfig(t, "race:\n  wokers: 3\n"))
	assert.Error(t, err, "unknown keys are rejected")
}

func runApp(t *testing.T, args ...string) (string, error) {
	var buf bytes.Buffer
	app := buildApp()
	app.Writer = &buf
	err := app.Run(append([]string{"racetime", "--level", "error"}, args...))
	return buf.String(), err
}

func TestRaceCommand(t *testing.T) {
	out, err := runApp(t, "race", "--strategy", "mutex", "--iterations", "3", "--increments", "10")
	require.NoError(t, err)

	assert.Contains(t, out, "━━━ Counter fix — sync.Mutex ━━━")
	assert.Contains(t, out, "iteration   3: count = 20")
	assert.Contains(t, out, "━━━ Summary ━━━")
	assert.NotContains(t, out, "sync/atomic")
}

func TestRaceCommandLocalQuiet(t *testing.T) {
	out, err := runApp(t, "race", "--strategy", "local", "--iterations", "2", "--quiet")
	require.NoError(t, err)

	assert.NotContains(t, out, "iteration   1")
	assert.Contains(t, out, "count value in the main goroutine: 0")
}

func TestRaceCommandRejectsUnknownStrategy(t *testing.T) {
	_, err := runApp(t, "race", "--strategy", "spinlock")
	assert.Error(t, err)
}

func TestCommandsRejectZeroIncrements(t *testing.T) {
	for name, args := range map[string][]string{
		"race":     {"race", "--strategy", "mutex", "--iterations", "1", "--increments", "0"},
		"exercise": {"exercise", "--increments", "0"},
	} {
		t.Run(name, func(t *testing.T) {
			out, err := runApp(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "increments must be at least 1")
			assert.NotContains(t, out, "count =")
			assert.NotContains(t, out, "final count")
		})
	}
}

func TestLoadConfigRejectsZeroIncrements(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "race:\n  workers: 2\n"))
	require.NoError(t, err, "an omitted count takes its default")

	conf, err := LoadConfig("")
	require.NoError(t, err)
	conf.Race.Increments = 0
	assert.Error(t, conf.Validate())

	conf.Race.Increments = 1
	conf.Exercise.Increments = 0
	err = conf.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exercise.increments")
}

func TestExerciseCommand(t *testing.T) {
	out, err := runApp(t, "exercise", "--workers", "3", "--increments", "4")
	require.NoError(t, err)

	assert.Contains(t, out, "\n12\n")
	assert.Contains(t, out, "final count: 12")
}

func TestThreadsCommand(t *testing.T) {
	out, err := runApp(t, "threads")
	require.NoError(t, err)

	assert.Contains(t, out, "An exception occurred in thread: ExceptionThread")
	assert.Contains(t, out, "recovered: task-3 panicked")
	assert.Contains(t, out, "Panicked")
}

func TestDateTimeCommand(t *testing.T) {
	out, err := runApp(t, "datetime", "--zone-dir", t.TempDir())
	require.NoError(t, err)

	assert.Contains(t, out, "━━━ Date and time ━━━")
	assert.Contains(t, out, "PT24000H")
	assert.Contains(t, out, "0 (use --list-zones to print them)")
}

func TestAllCommandWithConfig(t *testing.T) {
	if raceEnabled {
		t.Skip("the unsynchronized counter races by design")
	}

	path := writeConfig(t, `
race:
  iterations: 2
  increments: 5
  quiet: true
exercise:
  increments: 3
`)
	out, err := runApp(t, "--conf", path, "all")
	require.NoError(t, err)

	for _, title := range []string{
		"Counter race — lost updates",
		"Counter fix — sync.Mutex",
		"Counter fix — worker-local copies",
		"Counter fix — sync/atomic",
		"Counter fix — channel (actor)",
		"Summary",
		"Exercise — lock, increment, print",
		"Threads — start, join, uncaught panics",
		"Thread pool — panic isolation and metrics",
		"Date and time",
	} {
		assert.Contains(t, out, "━━━ "+title+" ━━━")
	}
	assert.Equal(t, 1, strings.Count(out, "final count: 6"))
}
