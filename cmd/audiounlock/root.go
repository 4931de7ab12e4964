package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/simonhull/audiounlock"
	"github.com/simonhull/audiounlock/internal/config"
	"github.com/simonhull/audiounlock/internal/ledger"
)

// app carries state shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	a := &app{cfg: cfg}
	var ncmInputs, qmcInputs []string

	cmd := &cobra.Command{
		Use:   "audiounlock [flags] [inputs...]",
		Short: "Decrypt NCM and QMC audio containers",
		Long: `audiounlock decrypts .ncm, .qmc3 and .qmcflac files into plain MP3 or FLAC.

NCM outputs are named after the embedded title and tagged with its title,
artists, album and cover. Inputs that fail are logged and skipped; the
exit status only reflects whether the run itself could complete.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := lo.Uniq(lo.Flatten([][]string{ncmInputs, qmcInputs, args}))
			if len(inputs) == 0 {
				return cmd.Help()
			}
			return a.runBatch(cmd, inputs)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&ncmInputs, "ncm", "n", nil, "NCM input file (repeatable)")
	flags.StringArrayVarP(&qmcInputs, "qmc", "q", nil, "QMC input file, .qmc3 or .qmcflac (repeatable)")
	flags.IntVarP(&cfg.Batch.Workers, "worker", "w", cfg.Batch.Workers, "number of decode workers")
	flags.StringVar(&cfg.Batch.LedgerPath, "ledger", cfg.Batch.LedgerPath, "record run outcomes in this SQLite file")
	addDecodeFlags(flags, &cfg.Batch)

	persistent := cmd.PersistentFlags()
	persistent.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level: debug, info, warn, error")
	persistent.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "log format: text or json")

	cmd.AddCommand(
		newWatchCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// addDecodeFlags registers the flags shared by every command that decodes.
func addDecodeFlags(flags *pflag.FlagSet, b *config.BatchConfig) {
	flags.StringVarP(&b.OutputDir, "output", "o", b.OutputDir, "output directory")
	flags.BoolVarP(&b.Tagging, "tag", "t", b.Tagging, "embed NCM metadata and cover into the output")
	flags.BoolVar(&b.Strict, "strict", b.Strict, "validate NCM metadata against its schema")
	flags.BoolVar(&b.Validate, "validate", b.Validate, "re-read written tags and fail on mismatch")
	flags.Int64Var(&b.MaxArtworkSize, "max-artwork", b.MaxArtworkSize, "drop covers larger than this many bytes (0 = no limit)")
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	logger, err := a.cfg.Log.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.logger = logger
	slog.SetDefault(logger)
	return nil
}

func (a *app) decodeOptions() []audiounlock.DecodeOption {
	b := a.cfg.Batch
	opts := []audiounlock.DecodeOption{
		audiounlock.WithTagging(b.Tagging),
		audiounlock.WithMaxArtworkSize(int(b.MaxArtworkSize)),
	}
	if b.Strict {
		opts = append(opts, audiounlock.WithStrictMetadata())
	}
	if b.Validate {
		opts = append(opts, audiounlock.WithValidation())
	}
	return opts
}

func (a *app) runBatch(cmd *cobra.Command, inputs []string) error {
	ctx := cmd.Context()
	b := a.cfg.Batch

	opts := []audiounlock.RunOption{
		audiounlock.WithWorkers(b.Workers),
		audiounlock.WithSink(audiounlock.NewDirSink(b.OutputDir)),
		audiounlock.WithDecodeOptions(a.decodeOptions()...),
		audiounlock.WithLogger(a.logger),
	}

	var (
		runs  *ledger.Ledger
		runID string
	)
	if b.LedgerPath != "" {
		l, err := ledger.Open(ctx, b.LedgerPath)
		if err != nil {
			return err
		}
		defer l.Close()
		if runID, err = l.StartRun(ctx, b.Workers); err != nil {
			return err
		}
		runs = l
		opts = append(opts, audiounlock.WithReporter(l.Reporter(ctx, runID, a.logger)))
		a.logger.Debug("recording run", "run_id", runID, "ledger", b.LedgerPath)
	}

	sum, err := audiounlock.NewPool(opts...).Run(ctx, inputs...)
	if err != nil {
		if errors.Is(err, audiounlock.ErrInvalidWorkerCount) {
			return fmt.Errorf("--worker: %w", err)
		}
		return err
	}

	if runs != nil {
		if err := runs.FinishRun(ctx, runID, sum.Finished, sum.Failed); err != nil {
			a.logger.Error("cannot finish ledger run", "run_id", runID, "error", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d decoded, %d failed\n", sum.Finished, sum.Failed)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// The root pre-run validates decode settings that do not apply here.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), audiounlock.GetBuildInfo())
		},
	}
}
