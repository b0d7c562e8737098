// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand initializes the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file, initialize the database, and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.SetupDatabase,
	}
}

// authCommand handles the Spotify session lifecycle
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the Spotify session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in to Spotify with the authorization code + PKCE flow",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "guest",
						Usage: "Skip Spotify and generate from the built-in sample pool",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show the current session state",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Exchange the refresh token for a new access token",
				Action: r.AuthRefresh,
			},
			{
				Name:   "logout",
				Usage:  "Discard the session and its cached credential",
				Action: r.AuthLogout,
			},
		},
	}
}

// generateCommand runs a full generation against the streaming API
func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Generate playlists through the streaming API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mood",
				Aliases: []string{"m"},
				Usage:   "Mood preset (calm, energetic, melancholic)",
			},
			&cli.StringFlag{
				Name:    "activity",
				Aliases: []string{"a"},
				Usage:   "Activity preset (studying, working out, relaxing)",
			},
			&cli.IntFlag{
				Name:    "length",
				Aliases: []string{"l"},
				Usage:   "Number of tracks per playlist",
			},
			&cli.StringFlag{
				Name:  "favorites",
				Usage: "Comma-separated favorite track ids to personalize toward",
			},
			&cli.StringFlag{
				Name:  "target",
				Usage: "Target feature profile as JSON, overrides the preset",
			},
			&cli.StringFlag{
				Name:  "weights",
				Usage: "Feature weights as JSON, overrides the preset",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the final result as raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "export",
				Usage: "Write a Markdown summary of the results to this directory",
			},
		},
		Action: r.GenerateRun,
	}
}

// rankCommand scores the local candidate pool without the API
func rankCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "rank",
		Usage: "Score and rank the cached candidate pool locally",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mood",
				Aliases: []string{"m"},
				Usage:   "Mood preset (calm, energetic, melancholic)",
			},
			&cli.StringFlag{
				Name:    "activity",
				Aliases: []string{"a"},
				Usage:   "Activity preset (studying, working out, relaxing)",
			},
			&cli.IntFlag{
				Name:    "length",
				Aliases: []string{"l"},
				Usage:   "Number of tracks to select",
			},
			&cli.StringFlag{
				Name:  "favorites",
				Usage: "Comma-separated favorite track ids to personalize toward",
			},
			&cli.StringFlag{
				Name:  "policy",
				Usage: "Scoring policy (closeness or magnitude)",
			},
			&cli.FloatFlag{
				Name:  "cutoff",
				Usage: "Exclude candidates scoring below this floor",
			},
			&cli.StringFlag{
				Name:  "target",
				Usage: "Target feature profile as JSON, overrides the preset",
			},
			&cli.StringFlag{
				Name:  "weights",
				Usage: "Feature weights as JSON, overrides the preset",
			},
			&cli.BoolFlag{
				Name:  "summary",
				Usage: "Print per-feature pool statistics before the ranking",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the selection as raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
		},
		Action: r.RankLocal,
	}
}

// weightsCommand inspects the mood/activity presets
func weightsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "weights",
		Usage: "Show the target features and weights behind a mood/activity preset",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mood",
				Aliases: []string{"m"},
				Usage:   "Mood preset to inspect",
			},
			&cli.StringFlag{
				Name:    "activity",
				Aliases: []string{"a"},
				Usage:   "Activity preset to inspect",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
		},
		Action: r.WeightsShow,
	}
}

// serveCommand runs the generation API server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the playlist generation API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host, overrides the config",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port, overrides the config",
			},
		},
		Action: r.ServeAPI,
	}
}

// cacheCommand inspects and maintains the local database
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the local track cache and run history",
		Commands: []*cli.Command{
			{
				Name:  "tracks",
				Usage: "List cached candidate tracks with audio features",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tracks to show",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
				},
				Action: r.CacheTracks,
			},
			{
				Name:  "runs",
				Usage: "List recorded generation runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 10,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
				},
				Action: r.CacheRuns,
			},
			{
				Name:   "migrate",
				Usage:  "Apply pending database migrations",
				Action: r.CacheMigrate,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent database migration",
				Action: r.CacheRollback,
			},
		},
	}
}

// apiCommand handles direct calls to the generation API
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls to the generation server",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET to the generation server, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}
