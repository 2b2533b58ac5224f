// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// serveCommand runs the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the splitx HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides config)",
			},
			&cli.StringFlag{
				Name:  "session-store",
				Usage: "OAuth session store: memory or sqlite (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles setup operations for configuration and the session database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the session database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "reset",
						Usage: "Roll back all migrations before applying them again (deletes stored sessions)",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles Spotify authorization for the CLI.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with Spotify using OAuth2 and save tokens to the config file",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the browser callback",
				Value: authTimeout,
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL instead of opening a browser",
			},
		},
		Action: r.Auth,
		Commands: []*cli.Command{
			{
				Name:   "refresh",
				Usage:  "Refresh the stored access token",
				Action: r.AuthRefresh,
			},
			{
				Name:   "status",
				Usage:  "Show the authenticated Spotify user",
				Action: r.AuthStatus,
			},
		},
	}
}

// playlistsCommand lists the current user's playlists.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"ls"},
		Usage:   "List Spotify playlists",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of playlists to show",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Playlists,
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show a playlist with the resolved genre of every track",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PlaylistShow,
			},
		},
	}
}

// splitCommand groups the split planning operations.
func splitCommand(r *Runner) *cli.Command {
	genreFlag := func() cli.Flag {
		return &cli.StringSliceFlag{
			Name:     "genre",
			Aliases:  []string{"g"},
			Usage:    "Genre to select (repeatable)",
			Required: true,
		}
	}

	return &cli.Command{
		Name:  "split",
		Usage: "Plan and create genre playlists from a source playlist",
		Commands: []*cli.Command{
			{
				Name:  "preview",
				Usage: "Group a playlist's tracks by genre",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: table, markdown, csv or json",
						Value:   "table",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the preview to a file instead of stdout",
					},
				},
				Action: r.SplitPreview,
			},
			{
				Name:  "filter",
				Usage: "List the tracks matching the selected genres",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					genreFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SplitFilter,
			},
			{
				Name:  "create",
				Usage: "Create one playlist from the selected genres",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					genreFlag(),
					&cli.StringFlag{
						Name:  "name",
						Usage: "Playlist name (defaults to a suggested name)",
					},
					&cli.BoolFlag{
						Name:  "public",
						Usage: "Make the playlist public",
					},
				},
				Action: r.SplitCreate,
			},
			{
				Name:  "apply",
				Usage: "Create one playlist per genre group",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "genre",
						Aliases: []string{"g"},
						Usage:   "Only create playlists for these genres (repeatable, default all)",
					},
					&cli.IntFlag{
						Name:  "min-tracks",
						Usage: "Skip genre groups with fewer tracks",
						Value: 1,
					},
					&cli.StringFlag{
						Name:  "template",
						Usage: "Description template; {{genre}} and {{source}} are replaced",
					},
					&cli.BoolFlag{
						Name:  "public",
						Usage: "Make the playlists public",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Print the instructions without creating playlists",
					},
				},
				Action: r.SplitApply,
			},
		},
	}
}
