package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"klartext/internal/config"
	"klartext/internal/db"
	"klartext/internal/engine"
	"klartext/internal/errors"
	"klartext/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(database *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "klartext",
		Usage:   "German plain-language page simplifier",
		Version: Version,
		Commands: []*cli.Command{
			runCmd(database, cfg),
			statsCmd(database, cfg),
			cacheCmd(database),
			clearCacheCmd(database, cfg),
			serveCmd(database, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// runCmd creates the run command: one scan-and-simplify pass over a document.
func runCmd(database *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Simplify a document's German text and print the run summary",
		ArgsUsage: "<file-or-url>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Usage: "Simplification mode: easy|light (defaults to configured mode)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the simplified document to this file"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("a file path or http(s) URL is required"))
			}
			source := c.Args().First()

			eng := engine.New(database, cfg)
			if err := eng.Load(source); err != nil {
				return outputError(err)
			}

			result, err := eng.Run(context.Background(), c.String("mode"))
			if err != nil {
				return outputError(err)
			}

			if path := c.String("output"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return outputError(errors.NewInvalidRequest(fmt.Sprintf("create %s: %v", path, err)))
				}
				defer f.Close()
				if err := eng.Save(f); err != nil {
					return outputError(err)
				}
			}

			return outputJSON(result)
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(database *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show engine state, last run counters, and cache figures",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "report", Usage: "Print the last run's markdown report instead of JSON"},
		},
		Action: func(c *cli.Context) error {
			eng := engine.New(database, cfg)

			if c.Bool("report") {
				report := eng.LastReport()
				if report == "" {
					return outputError(errors.NewNotFound("run report"))
				}
				fmt.Println(report)
				return nil
			}

			payload := map[string]any{
				"stats": eng.StatsSnapshot(),
			}
			if last := eng.LastRun(); last != nil {
				payload["last_run"] = last
			}
			return outputJSON(payload)
		},
	}
}

// cacheCmd creates the cache command.
func cacheCmd(database *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "List recent cache entries, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum entries to return"},
		},
		Action: func(c *cli.Context) error {
			entries, err := db.ListEntries(database, c.Int("limit"))
			if err != nil {
				return outputError(errors.NewCacheUnavailable(err))
			}

			count, err := db.CountEntries(database)
			if err != nil {
				return outputError(errors.NewCacheUnavailable(err))
			}

			return outputJSON(map[string]any{
				"total":   count,
				"entries": entries,
			})
		},
	}
}

// clearCacheCmd creates the clear-cache command.
func clearCacheCmd(database *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "clear-cache",
		Usage: "Empty both cache tiers",
		Action: func(c *cli.Context) error {
			count, err := db.CountEntries(database)
			if err != nil {
				return outputError(errors.NewCacheUnavailable(err))
			}

			eng := engine.New(database, cfg)
			eng.ClearCache()

			return outputJSON(map[string]any{"cleared": count})
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(database *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 7878, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv, eng := web.NewServer(database, cfg, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv, eng, cfg)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if kErr, ok := err.(*errors.KlartextError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", kErr.Code, kErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
