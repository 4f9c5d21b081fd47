// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// Shared flags are built per command; a flag carries its parsed value.

func jsonFlag() cli.Flag { return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"} }

func whereFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "where",
		Aliases: []string{"w"},
		Usage:   "Filter expression over entity fields, e.g. 'author == \"Seneca\"'",
	}
}

func refreshFlag() cli.Flag {
	return &cli.BoolFlag{Name: "refresh", Usage: "Refresh the cached mirror from the remote first"}
}

func exportFlags() []cli.Flag {
	return []cli.Flag{
		whereFlag(),
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Export format (csv, md, txt, json)",
			Value:   "md",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file path (default: <kind>.<format>)",
		},
	}
}

// setupCommand initializes configuration and both databases.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and initialize the local store and backend database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// serveCommand runs the reference backend.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the reference backend (REST + websocket subscriptions)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (default: server.host:server.port)"},
		},
		Action: r.Serve,
	}
}

func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in; scoped state switches to the user",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "User ID", Required: true},
			&cli.StringFlag{Name: "token", Aliases: []string{"t"}, Usage: "Bearer token for the remote"},
		},
		Action: r.Login,
	}
}

func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Sign out; scoped state switches to the anonymous scope",
		Action: r.Logout,
	}
}

func whoamiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "Show the signed-in user and remote status",
		Action: r.Whoami,
	}
}

// quotesCommand handles quote operations
func quotesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "quotes",
		Aliases: []string{"q"},
		Usage:   "Quote collection operations",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List the merged quote collection",
				Flags:  []cli.Flag{whereFlag(), refreshFlag(), jsonFlag(), &cli.BoolFlag{Name: "favorites", Usage: "Only favorites"}},
				Action: r.QuotesList,
			},
			{
				Name:      "add",
				Usage:     "Add a quote",
				Arguments: []cli.Argument{&cli.StringArg{Name: "text"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "author", Aliases: []string{"a"}},
					&cli.StringFlag{Name: "category"},
				},
				Action: r.QuotesAdd,
			},
			{
				Name:      "edit",
				Usage:     "Edit quote fields",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "text"},
					&cli.StringFlag{Name: "author", Aliases: []string{"a"}},
					&cli.StringFlag{Name: "category"},
				},
				Action: r.QuotesEdit,
			},
			{
				Name:      "rm",
				Aliases:   []string{"delete"},
				Usage:     "Delete a quote and every reference to it",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.QuotesRemove,
			},
			{
				Name:      "fav",
				Usage:     "Toggle a quote's favorite flag",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.QuotesFavorite,
			},
			{
				Name:   "sync",
				Usage:  "Create every local-only quote remotely",
				Action: r.QuotesSync,
			},
			{
				Name:  "next",
				Usage: "Select the next quote from the active playlist, or at random",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "playlist", Aliases: []string{"p"}, Usage: "Playlist ID (default: active playlist)"},
				},
				Action: r.QuotesNext,
			},
			{
				Name:   "export",
				Usage:  "Export quotes",
				Flags:  exportFlags(),
				Action: r.QuotesExport,
			},
			{
				Name:      "draft",
				Usage:     "Ask the drafter for a quote",
				Arguments: []cli.Argument{&cli.StringArg{Name: "topic"}},
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "save", Usage: "Add the draft to the collection"}},
				Action:    r.QuotesDraft,
			},
			{
				Name:      "sort",
				Usage:     "Set the sort mode (custom, newest, oldest, or a field name such as author)",
				Arguments: []cli.Argument{&cli.StringArg{Name: "mode"}},
				Action:    r.QuotesSort,
			},
			{
				Name:      "move",
				Usage:     "Move a quote to a position in the custom order",
				ArgsUsage: "<id> <index>",
				Action:    r.QuotesMove,
			},
		},
	}
}

// tasksCommand handles task operations
func tasksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tasks",
		Aliases: []string{"t"},
		Usage:   "Task list operations",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List the merged task collection",
				Flags:  []cli.Flag{whereFlag(), refreshFlag(), jsonFlag()},
				Action: r.TasksList,
			},
			{
				Name:      "add",
				Usage:     "Add a task",
				Arguments: []cli.Argument{&cli.StringArg{Name: "title"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "notes", Aliases: []string{"n"}},
					&cli.IntFlag{Name: "priority", Aliases: []string{"p"}},
				},
				Action: r.TasksAdd,
			},
			{
				Name:      "done",
				Usage:     "Mark a task done",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "undo", Usage: "Mark the task not done"}},
				Action:    r.TasksDone,
			},
			{
				Name:      "edit",
				Usage:     "Edit task fields",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title"},
					&cli.StringFlag{Name: "notes", Aliases: []string{"n"}},
					&cli.IntFlag{Name: "priority", Aliases: []string{"p"}},
				},
				Action: r.TasksEdit,
			},
			{
				Name:      "rm",
				Aliases:   []string{"delete"},
				Usage:     "Delete a task",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.TasksRemove,
			},
			{
				Name:   "sync",
				Usage:  "Create every local-only task remotely",
				Action: r.TasksSync,
			},
			{
				Name:   "export",
				Usage:  "Export tasks",
				Flags:  exportFlags(),
				Action: r.TasksExport,
			},
		},
	}
}

// playlistsCommand handles quote playlist operations
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Quote playlist operations",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List playlists",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.PlaylistsList,
			},
			{
				Name:      "show",
				Usage:     "Show a playlist with its members resolved",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PlaylistsShow,
			},
			{
				Name:      "create",
				Usage:     "Create a playlist",
				ArgsUsage: "<name> [quote-id...]",
				Action:    r.PlaylistsCreate,
			},
			{
				Name:      "add",
				Usage:     "Append a quote to a playlist",
				ArgsUsage: "<playlist-id> <quote-id>",
				Action:    r.PlaylistsAdd,
			},
			{
				Name:      "remove",
				Usage:     "Remove a quote from a playlist",
				ArgsUsage: "<playlist-id> <quote-id>",
				Action:    r.PlaylistsRemove,
			},
			{
				Name:      "rm",
				Aliases:   []string{"delete"},
				Usage:     "Delete a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PlaylistsDelete,
			},
			{
				Name:      "use",
				Usage:     "Set the active playlist for rotation (empty clears it)",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PlaylistsUse,
			},
		},
	}
}

// validateCommand runs the integrity validator, optionally repairing.
func validateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check playlists for empty or dangling members",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "repair", Usage: "Reconcile playlists with the remote"},
			&cli.BoolFlag{Name: "watch", Usage: "Keep checking on the configured interval"},
		},
		Action: r.Validate,
	}
}

// timerCommand handles focus timer operations
func timerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "timer",
		Usage: "Focus timer operations",
		Commands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Start a run (default: timer.default_duration)",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "duration", Aliases: []string{"d"}},
					&cli.StringFlag{Name: "label", Aliases: []string{"l"}},
				},
				Action: r.TimerStart,
			},
			{Name: "pause", Usage: "Pause the running timer", Action: r.TimerPause},
			{Name: "resume", Usage: "Resume a paused timer", Action: r.TimerResume},
			{Name: "reset", Usage: "Stop the timer without recording a session", Action: r.TimerReset},
			{
				Name:  "status",
				Usage: "Show the timer",
				Flags: []cli.Flag{
					jsonFlag(),
					&cli.BoolFlag{Name: "watch", Usage: "Print the timer every tick until interrupted"},
				},
				Action: r.TimerStatus,
			},
			{Name: "history", Usage: "List completed sessions", Flags: []cli.Flag{jsonFlag()}, Action: r.TimerHistory},
		},
	}
}

// bridgeCommand runs the websocket bridge for other surfaces.
func bridgeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "bridge",
		Usage: "Relay timer commands and state to other surfaces over a websocket",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (default: bridge.host:bridge.port)"},
		},
		Action: r.Bridge,
	}
}

// focusCommand returns the top-level command for the interactive dashboard.
func focusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "focus",
		Aliases: []string{"tui", "ui"},
		Usage:   "Launch the interactive focus dashboard",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "duration", Aliases: []string{"d"}, Usage: "Run length for the start key"},
			&cli.StringFlag{Name: "label", Aliases: []string{"l"}},
			&cli.StringFlag{Name: "playlist", Aliases: []string{"p"}, Usage: "Playlist ID to rotate through"},
			&cli.StringFlag{Name: "log", Usage: "Log file", Value: "./tmp/focusync-tui.log"},
		},
		Action: r.Focus,
	}
}
