package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonhull/audiounlock"
	"github.com/simonhull/audiounlock/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	w := &a.cfg.Watch

	cmd := &cobra.Command{
		Use:   "watch DIR...",
		Short: "Decode inputs as they appear in directories",
		Long: `watch decodes every ` + strings.Join(watch.Extensions(), ", ") + ` file that appears
under the given directories and writes the result to the output directory.
Each path is decoded once per process.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd, args)
		},
	}

	flags := cmd.Flags()
	addDecodeFlags(flags, &a.cfg.Batch)
	flags.DurationVar(&w.Debounce, "debounce", w.Debounce, "wait this long after the last change before decoding")
	flags.BoolVar(&w.Recursive, "recursive", w.Recursive, "watch subdirectories")
	flags.BoolVar(&w.InitialScan, "initial-scan", w.InitialScan, "decode files already present at start")
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, roots []string) error {
	ctx := cmd.Context()
	session := audiounlock.NewSession(
		audiounlock.WithSink(audiounlock.NewDirSink(a.cfg.Batch.OutputDir)),
		audiounlock.WithDecodeOptions(a.decodeOptions()...),
		audiounlock.WithLogger(a.logger),
	)
	defer session.Close()

	paths, errs, err := watch.Start(ctx, watch.Config{
		Roots:       roots,
		Debounce:    a.cfg.Watch.Debounce,
		Recursive:   a.cfg.Watch.Recursive,
		InitialScan: a.cfg.Watch.InitialScan,
		Logger:      a.logger,
	})
	if err != nil {
		return err
	}
	a.logger.Info("watching", "roots", roots, "output", a.cfg.Batch.OutputDir)

	seen := make(map[string]struct{})
	for {
		select {
		case path, ok := <-paths:
			if !ok {
				return nil
			}
			if _, dup := seen[path]; dup {
				a.logger.Debug("already submitted", "input", path)
				continue
			}
			seen[path] = struct{}{}
			if _, err := session.Submit(audiounlock.FileSource(path)); err != nil {
				return err
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.logger.Warn("watch error", "error", err)
		case <-ctx.Done():
			return nil
		}
	}
}
