// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the config file and the archive database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create a starter config file and initialize the archive database",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing config file",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles Spotify authorization
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authenticate with Spotify using OAuth2",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show current authentication state",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// chatCommand runs the plain terminal chat loop
func chatCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Chat with the recommendation assistant",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "playlists",
				Usage: "Enable saving recommendations to a Spotify playlist with /save",
			},
		},
		Action: r.Chat,
	}
}

// tuiCommand launches the interactive chat interface
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive chat interface",
		Flags:  []cli.Flag{configFlag()},
		Action: r.TUI,
	}
}

// profileCommand inspects the aggregated taste profile
func profileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Inspect the taste profile built from your listening history",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the aggregated taste profile",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true},
				},
				Action: r.ProfileShow,
			},
			{
				Name:  "export",
				Usage: "Write the taste profile to a JSON file",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "taste_profile.json",
					},
				},
				Action: r.ProfileExport,
			},
		},
	}
}

// historyCommand browses the recommendation archive
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Browse archived recommendations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List past sessions and their recent recommendations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "Maximum entries to show", Value: 20},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show every recommendation from one session",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "session"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.HistoryShow,
			},
			{
				Name:   "clear",
				Usage:  "Delete all archived sessions and recommendations",
				Action: r.HistoryClear,
			},
		},
	}
}

// doctorCommand verifies connectivity to both providers
func doctorCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "doctor",
		Usage:  "Check configuration and provider connectivity",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Doctor,
	}
}
