package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/CTAG07/ngram/pkg/store"
)

func main() {
	app := newApp(os.Stdout, os.Stderr)
	err := app.Run(context.Background(), os.Args)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}

// newApp builds the command tree. Output goes to stdout, diagnostics and
// logs to stderr.
func newApp(stdout, stderr io.Writer) *cli.Command {
	a := &app{stdout: stdout, stderr: stderr}
	return &cli.Command{
		Name:      "ngram",
		Usage:     "Train, combine and sample n-gram word models",
		Version:   Version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a JSON or YAML config file",
				Value:   "ngram.json",
				Sources: cli.EnvVars("NGRAM_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "path",
				Usage:   "model directory or database, overrides the config",
				Sources: cli.EnvVars("NGRAM_PATH"),
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "model store backend (dir, sqlite), overrides the config",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error), overrides the config",
			},
		},
		// Exit codes are decided by main, not by the library.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		OnUsageError:   onUsageError,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Present() {
				return cli.Exit(fmt.Sprintf("error: unknown command %q", cmd.Args().First()), exitNoCommand)
			}
			_ = cli.ShowAppHelp(cmd)
			return cli.Exit("error: no command given", exitNoCommand)
		},
		Commands: []*cli.Command{
			a.listCmd(),
			a.deleteCmd(),
			a.trainCmd(),
			a.tuneCmd(),
			a.generateCmd(),
			a.statsCmd(),
			a.mergeCmd(),
			a.serveCmd(),
		},
	}
}

// app carries what every command needs once the config is loaded.
type app struct {
	stdout io.Writer
	stderr io.Writer

	config *Config
	logger *slog.Logger
}

// setup loads the config, applies flag overrides and opens the model store.
// The returned func closes the store.
func (a *app) setup(cmd *cli.Command) (*ModelService, func(), error) {
	bootLogger := newLogger(a.stderr, "info")
	config, err := LoadConfig(cmd.String("config"), bootLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if v := cmd.String("path"); v != "" {
		config.Store.Path = v
	}
	if v := cmd.String("backend"); v != "" {
		config.Store.Backend = v
	}
	if v := cmd.String("log-level"); v != "" {
		config.LogLevel = v
	}
	a.config = config
	a.logger = newLogger(a.stderr, config.LogLevel)

	st, err := store.Open(config.Store.Backend, config.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open model store: %w", err)
	}
	if ls, ok := st.(interface{ SetLogger(*slog.Logger) }); ok {
		ls.SetLogger(a.logger)
	}
	a.logger.Debug("Opened model store", "backend", config.Store.Backend, "path", config.Store.Path)

	closeStore := func() {
		if err := st.Close(); err != nil {
			a.logger.Error("Failed to close model store", "error", err)
		}
	}
	return NewModelService(st, a.logger), closeStore, nil
}

// newLogger returns a text logger on w at the named level.
func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// exitCode maps the error returned by the command tree to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return exitFailure
}
