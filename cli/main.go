package main

import (
	"context"
	"fmt"
	"os"

	"github.com/krancour/authkeeper/internal/signals"
	"github.com/krancour/authkeeper/internal/version"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var logger = logrus.New()

func main() {
	ctx, cancel := signals.Context(context.Background(), logger)
	defer cancel()
	fmt.Println()
	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Printf("\n%s\n\n", err)
		os.Exit(1)
	}
	fmt.Println()
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "authkeeper"
	app.Usage = "Keep an authenticated API session alive"
	app.Version = fmt.Sprintf(
		"%s -- commit %s",
		version.Version(),
		version.Commit(),
	)
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    flagServer,
			Aliases: []string{"s"},
			Usage: "Use the API server at the specified address; defaults to the " +
				"address last logged into",
			EnvVars: []string{"AUTHKEEPER_API_ADDRESS"},
		},
		&cli.BoolFlag{
			Name:    flagInsecure,
			Aliases: []string{"k"},
			Usage:   "Allow insecure API server connections when using TLS",
		},
		&cli.StringFlag{
			Name: flagLogLevel,
			Usage: "Log at the specified level; supported levels: debug, info, " +
				"warn, error",
			EnvVars: []string{"AUTHKEEPER_LOG_LEVEL"},
			Value:   "warn",
		},
		&cli.StringFlag{
			Name: flagSessionBackend,
			Usage: "Keep the session in the specified backend; supported " +
				"backends: file, redis, mongodb",
			EnvVars: []string{"AUTHKEEPER_SESSION_BACKEND"},
			Value:   "file",
		},
	}
	app.Before = func(c *cli.Context) error {
		level, err := logrus.ParseLevel(c.String(flagLogLevel))
		if err != nil {
			return errors.Wrap(err, "error parsing log level")
		}
		logger.SetLevel(level)
		return nil
	}
	app.Commands = []*cli.Command{
		captchaCommand,
		loginCommand,
		logoutCommand,
		refreshCommand,
		registerCommand,
		requestCommand,
		sendCodeCommand,
		whoamiCommand,
	}
	return app
}
