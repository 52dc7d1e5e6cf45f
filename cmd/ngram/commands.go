package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/CTAG07/ngram/pkg/ngram"
	"github.com/CTAG07/ngram/pkg/store"
)

// Process exit codes.
const (
	exitFailure                = 1
	exitNoCommand              = 1
	exitUsage                  = 2
	exitModelNotFound          = 3
	exitTrainingExistingModel  = 4
	exitTuningNonexistentModel = 5
	exitSourceNotFound         = 6
)

func onUsageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return cli.Exit(fmt.Sprintf("error: %v", err), exitUsage)
}

func usageError(format string, args ...any) error {
	return cli.Exit("error: "+fmt.Sprintf(format, args...), exitUsage)
}

// commandError maps service and engine errors to exit codes.
func commandError(err error) error {
	code := exitFailure
	switch {
	case errors.Is(err, store.ErrModelNotFound):
		code = exitModelNotFound
	case errors.Is(err, errModelExists):
		code = exitTrainingExistingModel
	case errors.Is(err, ngram.ErrSourceNotFound):
		code = exitSourceNotFound
	case errors.Is(err, store.ErrInvalidName),
		errors.Is(err, ngram.ErrInvalidOrder),
		errors.Is(err, ngram.ErrBadSeedLength),
		errors.Is(err, errNoSources):
		code = exitUsage
	}
	return cli.Exit(fmt.Sprintf("error: %v", err), code)
}

func nameFlag() cli.Flag {
	return &cli.StringFlag{Name: "name", Aliases: []string{"m"}, Usage: "model name"}
}

func sourceFlag() cli.Flag {
	return &cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "path to a training text file"}
}

func (a *app) listCmd() *cli.Command {
	return &cli.Command{
		Name:         "list",
		Usage:        "list stored models",
		OnUsageError: onUsageError,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			svc, closeStore, err := a.setup(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			models, err := svc.List(ctx)
			if err != nil {
				return commandError(err)
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			for _, m := range models {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Name, humanize.Bytes(uint64(m.Size)), humanize.Time(m.Updated))
			}
			return tw.Flush()
		},
	}
}

func (a *app) deleteCmd() *cli.Command {
	return &cli.Command{
		Name:         "delete",
		Usage:        "delete a stored model",
		Flags:        []cli.Flag{nameFlag()},
		OnUsageError: onUsageError,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.String("name")
			if name == "" {
				return usageError("delete requires --name")
			}
			svc, closeStore, err := a.setup(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			if err = svc.Delete(ctx, name); err != nil {
				return commandError(err)
			}
			_, _ = fmt.Fprintf(a.stdout, "Deleted model %q\n", name)
			return nil
		},
	}
}

func (a *app) trainCmd() *cli.Command {
	return &cli.Command{
		Name:  "train",
		Usage: "train a new model from a text file",
		Flags: []cli.Flag{
			nameFlag(),
			sourceFlag(),
			&cli.IntFlag{Name: "n", Usage: "model order (tokens per window)", Value: 3},
		},
		OnUsageError: onUsageError,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name, source := cmd.String("name"), cmd.String("source")
			if name == "" || source == "" {
				return usageError("train requires --name and --source")
			}
			svc, closeStore, err := a.setup(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			stats, err := svc.Train(ctx, name, int(cmd.Int("n")), fromFile(source))
			if err != nil {
				return commandError(err)
			}
			a.printStats(name, stats)
			return nil
		},
	}
}

func (a *app) tuneCmd() *cli.Command {
	return &cli.Command{
		Name:         "tune",
		Usage:        "add a text file to an existing model",
		Flags:        []cli.Flag{nameFlag(), sourceFlag()},
		OnUsageError: onUsageError,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name, source := cmd.String("name"), cmd.String("source")
			if name == "" || source == "" {
				return usageError("tune requires --name and --source")
			}
			svc, closeStore, err := a.setup(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			stats, err := svc.Tune(ctx, name, fromFile(source))
			if errors.Is(err, store.ErrModelNotFound) {
				return cli.Exit(fmt.Sprintf("error: %v", err), exitTuningNonexistentModel)
			}
			if err != nil {
				return commandError(err)
			}
			a.printStats(name, stats)
			return nil
		},
	}
}

func (a *app) generateCmd() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "generate text from one or more models",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "name", Aliases: []string{"m"}, Usage: "model name, repeat to combine models"},
			&cli.StringFlag{Name: "start", Usage: "text whose tokens seed the context (n-1 tokens)"},
			&cli.IntFlag{Name: "length", Aliases: []string{"l"}, Usage: "number of tokens to generate (default from config)"},
			&cli.Uint64Flag{Name: "seed", Usage: "random seed for reproducible output"},
		},
		OnUsageError: onUsageError,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			names := cmd.StringSlice("name")
			if len(names) == 0 {
				return usageError("generate requires --name")
			}
			svc, closeStore, err := a.setup(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			req := GenerateRequest{Start: cmd.String("start"), Length: a.config.Generate.Length}
			if cmd.IsSet("length") {
				req.Length = int(cmd.Int("length"))
			}
			if req.Length < 0 {
				return usageError("--length must not be negative")
			}
			if cmd.IsSet("seed") {
				seed := cmd.Uint64("seed")
				req.Seed = &seed
			}
			result, err := svc.Generate(ctx, names, req)
			if err != nil {
				return commandError(err)
			}
			_, err = fmt.Fprintln(a.stdout, result.Text)
			return err
		},
	}
}

func (a *app) statsCmd() *cli.Command {
	return &cli.Command{
		Name:         "stats",
		Usage:        "summarize a stored model",
		Flags:        []cli.Flag{nameFlag()},
		OnUsageError: onUsageError,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.String("name")
			if name == "" {
				return usageError("stats requires --name")
			}
			svc, closeStore, err := a.setup(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			stats, err := svc.Stats(ctx, name)
			if err != nil {
				return commandError(err)
			}
			a.printStats(name, stats)
			return nil
		},
	}
}

func (a *app) mergeCmd() *cli.Command {
	return &cli.Command{
		Name:  "merge",
		Usage: "combine stored models of the same order into a new model",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "name", Aliases: []string{"m"}, Usage: "model to merge, repeat for each model"},
			&cli.StringFlag{Name: "into", Usage: "name of the merged model"},
		},
		OnUsageError: onUsageError,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			names, into := cmd.StringSlice("name"), cmd.String("into")
			if len(names) == 0 || into == "" {
				return usageError("merge requires --name and --into")
			}
			svc, closeStore, err := a.setup(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			stats, err := svc.Merge(ctx, names, into)
			if err != nil {
				return commandError(err)
			}
			a.printStats(into, stats)
			return nil
		},
	}
}

func (a *app) serveCmd() *cli.Command {
	return &cli.Command{
		Name:         "serve",
		Usage:        "serve the model API over HTTP",
		Flags:        []cli.Flag{&cli.StringFlag{Name: "addr", Usage: "listen address (default from config)"}},
		OnUsageError: onUsageError,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			svc, closeStore, err := a.setup(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			addr := a.config.Server.Addr
			if v := cmd.String("addr"); v != "" {
				addr = v
			}
			return NewServer(svc, a.config, a.logger).run(ctx, addr)
		},
	}
}

func (a *app) printStats(name string, stats ngram.ModelStats) {
	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "model\t%s\n", name)
	_, _ = fmt.Fprintf(tw, "order\t%d\n", stats.Order)
	_, _ = fmt.Fprintf(tw, "vocabulary\t%s\n", humanize.Comma(int64(stats.VocabSize)))
	_, _ = fmt.Fprintf(tw, "tokens\t%s\n", humanize.Comma(int64(stats.TotalTokens)))
	_, _ = fmt.Fprintf(tw, "contexts\t%s\n", humanize.Comma(int64(stats.Contexts)))
	_, _ = fmt.Fprintf(tw, "transitions\t%s\n", humanize.Comma(int64(stats.Transitions)))
	_ = tw.Flush()
}
