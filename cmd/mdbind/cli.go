package main

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/mdbind/internal/config"
	"github.com/hpungsan/mdbind/internal/errors"
	"github.com/hpungsan/mdbind/internal/ops"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, logger *log.Logger) *cli.App {
	app := &cli.App{
		Name:    "mdbind",
		Usage:   "Markdown to EPUB binder",
		Version: Version,
		Commands: []*cli.Command{
			buildCmd(db, cfg, logger),
			validateCmd(),
			historyCmd(db),
			showCmd(db),
			purgeCmd(db),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// buildCmd creates the build command.
func buildCmd(db *sql.DB, cfg *config.Config, logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Convert a directory of Markdown files into an EPUB book",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Value: "./" + ops.DefaultInputDir, Usage: "Markdown source directory"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output directory (default: config output_dir, ./epub)"},
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Book title (default: input directory name)"},
			&cli.StringFlag{Name: "author", Aliases: []string{"a"}, Usage: "Book author (default: config author)"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Output file name (default: <title>.epub)"},
			&cli.StringFlag{Name: "language", Aliases: []string{"l"}, Usage: "BCP 47 language tag (default: config language)"},
			&cli.StringFlag{Name: "temp", Value: "./" + ops.DefaultScaffoldDir, Usage: "Temporary package directory (wiped before use; must be absent, empty, or a previous scaffold)"},
			&cli.BoolFlag{Name: "keep-temp", Usage: "Keep the temporary package directory"},
			&cli.BoolFlag{Name: "no-recursive", Usage: "Only convert files directly inside the input directory"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Suppress progress logging"},
		},
		Action: func(c *cli.Context) error {
			input := ops.BuildInput{
				InputDir:     c.String("input"),
				OutputDir:    c.String("output"),
				ScaffoldDir:  c.String("temp"),
				Title:        c.String("title"),
				Author:       c.String("author"),
				Language:     c.String("language"),
				ArchiveName:  c.String("name"),
				KeepScaffold: c.Bool("keep-temp"),
				NoRecursive:  c.Bool("no-recursive"),
			}
			if !c.Bool("quiet") {
				input.Logger = logger
			}

			ctx := c.Context
			if ctx == nil {
				ctx = context.Background()
			}

			output, err := ops.Build(ctx, db, cfg, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// validateCmd creates the validate command.
func validateCmd() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check the structure and integrity of an EPUB file",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("path argument is required"))
			}

			output, err := ops.Validate(ops.ValidateInput{Path: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			if err := outputJSON(output); err != nil {
				return err
			}
			if !output.Valid {
				return outputError(errors.NewInvalidArchive(string(output.Reason), output.Message))
			}
			return nil
		},
	}
}

// historyCmd creates the history command.
func historyCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded builds, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "Filter by outcome: succeeded|failed"},
			&cli.IntFlag{Name: "limit", Value: ops.DefaultHistoryLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.History(db, ops.HistoryInput{
				Status: c.String("status"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a recorded build with its archive checksums",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("id argument is required"))
			}

			output, err := ops.Show(db, ops.ShowInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Permanently delete build history records",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "older-than", Usage: "Only purge records older than N days (e.g., 7d)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PurgeInput{}

			if olderThan := c.String("older-than"); olderThan != "" {
				days, err := parseDuration(olderThan)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.OlderThanDays = &days
			}

			output, err := ops.Purge(db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
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
	var bindErr *errors.BindError
	if stderrors.As(err, &bindErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", bindErr.Code, bindErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
