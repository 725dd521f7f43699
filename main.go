package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/send"
	"github.com/urfave/cli"
)

func main() {
	grip.EmergencyFatal(buildApp().Run(os.Args))
}

func buildApp() *cli.App {
	app := cli.NewApp()
	app.Name = "racetime"
	app.Usage = "race-condition experiments and a date/time tour"
	app.Version = "0.1.0"

	app.Commands = []cli.Command{
		raceCommand(),
		exerciseCommand(),
		threadsCommand(),
		dateTimeCommand(),
		allCommand(),
	}

	// Global options, shared by every command.
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "level",
			Value: "warning",
			Usage: "lowest visible log level: 'emergency|alert|critical|error|warning|notice|info|debug|trace'",
		},
		cli.StringFlag{
			Name:  "conf, config, c",
			Usage: "path to an optional YAML config file",
		},
	}

	app.Before = func(c *cli.Context) error {
		return loggingSetup(app.Name, c.String("level"))
	}

	return app
}

// loggingSetup sends log records to stderr so they never mix with the
// demonstration output on stdout.
func loggingSetup(name, l string) error {
	if err := grip.SetSender(send.MakeErrorLogger()); err != nil {
		return err
	}
	grip.SetName(name)

	sender := grip.GetSender()
	info := sender.Level()
	info.Threshold = level.FromString(l)

	return sender.SetLevel(info)
}

// commandContext is cancelled on Ctrl+C or SIGTERM so long experiments stop
// between iterations.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n━━━ %s ━━━\n", title)
}
