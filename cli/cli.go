package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const AppName = "qadash"

type App struct {
	logger zerolog.Logger
	cli    *cli.App
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	app := &App{
		logger: logger,
		cli: &cli.App{
			Name:  AppName,
			Usage: "Store, query and analyze QA test results across storage providers",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "config",
					Aliases: []string{"c"},
					Usage:   "Path to the YAML configuration file",
					EnvVars: []string{"QADASH_CONFIG"},
				},
				&cli.BoolFlag{
					Name:  "verbose",
					Usage: "Enable verbose (debug) logging",
				},
			},
			Before: func(ctx *cli.Context) error {
				if ctx.Bool("verbose") {
					zerolog.SetGlobalLevel(zerolog.DebugLevel)
				}
				return nil
			},
		},
	}

	filterFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "from",
			Usage: "Only include results created on or after this date (2006-01-02 or RFC 3339)",
		},
		&cli.StringFlag{
			Name:  "to",
			Usage: "Only include results created on or before this date (2006-01-02 or RFC 3339)",
		},
		&cli.StringFlag{
			Name:  "status",
			Usage: "Filter by status (passed, failed, skipped, blocked)",
		},
		&cli.StringFlag{
			Name:  "member",
			Usage: "Filter by team member name",
		},
		&cli.StringFlag{
			Name:  "project",
			Usage: "Filter by project name",
		},
		&cli.StringFlag{
			Name:  "search",
			Usage: "Case-insensitive search over test, member and project names",
		},
	}

	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "store",
		Usage:  "Store a single test result",
		Action: app.store,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "name",
				Usage: "Test name",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Test status (passed, failed, skipped, blocked)",
			},
			&cli.Int64Flag{
				Name:  "time",
				Usage: "Execution time (unit is fixed by the producer)",
			},
			&cli.StringFlag{
				Name:  "framework",
				Usage: "Test framework that produced the result",
			},
			&cli.StringFlag{
				Name:  "member",
				Usage: "Team member name",
			},
			&cli.StringFlag{
				Name:  "project",
				Usage: "Project name",
			},
			&cli.StringFlag{
				Name:  "environment",
				Usage: "Environment the test ran against",
			},
			&cli.StringFlag{
				Name:  "created-at",
				Usage: "Execution timestamp (RFC 3339, default: now)",
			},
			&cli.StringSliceFlag{
				Name:    "metadata",
				Aliases: []string{"m"},
				Usage:   "Metadata entry as key=value (repeatable)",
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Read the record from a JSON file instead of flags",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "list",
		Usage:  "List stored test results, newest first",
		Action: app.list,
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of results (default: 20)",
				Value:   20,
			},
		}, filterFlags...),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "search",
		Usage:     "Search test results by test, member or project name",
		ArgsUsage: "TERM",
		Action:    app.search,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "analytics",
		Usage:  "Show aggregated statistics over matching results",
		Action: app.analytics,
		Flags:  filterFlags,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "cleanup",
		Usage:  "Delete results older than the retention window",
		Action: app.cleanup,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:     "days",
				Usage:    "Keep results created within this many days",
				Required: true,
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "info",
		Usage:  "Show the active provider and storage usage",
		Action: app.info,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:  "provider",
		Usage: "Inspect or switch the storage provider",
		Subcommands: []*cli.Command{
			{
				Name:   "info",
				Usage:  "Show the active provider",
				Action: app.providerInfo,
			},
			{
				Name:      "switch",
				Usage:     "Switch to the named provider",
				ArgsUsage: "NAME",
				Action:    app.providerSwitch,
			},
		},
	})
	return app
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && commit != "" {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}
