// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// serveCommand runs the web application.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the school website and admin panel",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides server.port)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the site in a browser once listening",
			},
		},
		Action: r.Serve,
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and manage the database schema",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml with default values",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Revert the most recent migration",
				Action: r.SetupRollback,
			},
			{
				Name:  "status",
				Usage: "List migrations and when they were applied",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SetupStatus,
			},
		},
	}
}

// userCommand manages login accounts.
func userCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage login accounts",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create a verified account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Display name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Sign-in email address",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Usage:    "Password (at least 8 characters)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "role",
						Usage: "admin or user",
						Value: "admin",
					},
				},
				Action: r.UserAdd,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List accounts",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "role",
						Usage: "Only show accounts with this role",
					},
					&cli.StringFlag{
						Name:  "search",
						Usage: "Filter by name or email",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.UserList,
			},
			{
				Name:  "role",
				Usage: "Change an account's role",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "email"},
					&cli.StringArg{Name: "role"},
				},
				Action: r.UserRole,
			},
			{
				Name:  "verify",
				Usage: "Mark an account's email as verified",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "email"},
				},
				Action: r.UserVerify,
			},
		},
	}
}

// reportCommand prints statistics for a month or year.
func reportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Summarize students, attendance, fees and expenses",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "year",
				Aliases: []string{"y"},
				Usage:   "Year to report on (default: current year)",
			},
			&cli.IntFlag{
				Name:    "month",
				Aliases: []string{"m"},
				Usage:   "Month to report on, 1-12 (default: current month)",
			},
			&cli.BoolFlag{
				Name:  "annual",
				Usage: "Report on the whole year",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "md",
				Usage: "Render as Markdown",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the report to a file",
			},
		},
		Action: r.Report,
	}
}

// exportCommand writes records to CSV.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export students, attendance, payments or expenses to CSV",
		ArgsUsage: "<students|attendance|payments|expenses>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "kind"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (default: <kind>_<date>.csv)",
			},
			&cli.BoolFlag{
				Name:  "stdout",
				Usage: "Write CSV to standard output",
			},
		},
		Action: r.Export,
	}
}

// remindCommand emails fee reminders.
func remindCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "remind",
		Usage: "Email fee reminders to students with due payments",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "before",
				Usage: "Remind fees dated on or before this day, YYYY-MM-DD (default: today)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Build the emails without sending them",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent senders (default: reminders.workers)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Remind,
	}
}

// tuiCommand returns the top-level TUI command for browsing school statistics.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive statistics dashboard",
		Action:  r.TUI,
	}
}
