package main

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/newthinker/datacheck/internal/app"
	"github.com/newthinker/datacheck/internal/core"
	"github.com/newthinker/datacheck/internal/fsutil"
	"github.com/newthinker/datacheck/internal/interrupt"
	"github.com/newthinker/datacheck/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rangeFlags are the flags of check and align. datesOnly is check-only and
// enforce is align-only.
type rangeFlags struct {
	from       string
	to         string
	step       string
	prefix     string
	minSize    int64
	enforce    bool
	format     string
	output     string
	publish    string
	notify     bool
	failOnGaps bool
	datesOnly  bool
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "First date, YYYY-MM-DD or RFC3339 (required)")
	cmd.Flags().StringVar(&f.to, "to", "", "Last date, inclusive (required)")
	cmd.Flags().StringVar(&f.step, "step", "", "Step between dates, e.g. 1d or 6h (default from config)")
	cmd.Flags().StringVar(&f.prefix, "prefix", "", "Storage prefix to scan (default from config)")
	cmd.Flags().Int64Var(&f.minSize, "min-size", 0, "Minimum file size in bytes (default from config)")
	cmd.Flags().StringVarP(&f.format, "format", "f", formatTable, "Output format: table, json or csv")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().StringVar(&f.publish, "publish", "", "Also store the report at this key on the storage backend")
	cmd.Flags().BoolVar(&f.notify, "notify", false, "Send a gap report to the configured notifiers")
	cmd.Flags().BoolVar(&f.failOnGaps, "fail-on-gaps", false, "Exit non-zero when any date is missing or corrupt")

	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
}

// request builds an app.Request. Size overrides are only set when the
// flags were given explicitly.
func (f *rangeFlags) request(cmd *cobra.Command) (app.Request, error) {
	var req app.Request

	from, err := core.ParseDate(f.from)
	if err != nil {
		return req, core.WrapError(core.ErrRangeInvalid, err)
	}
	to, err := core.ParseDate(f.to)
	if err != nil {
		return req, core.WrapError(core.ErrRangeInvalid, err)
	}
	req.From, req.To = from, to
	req.Prefix = f.prefix

	if f.step != "" {
		if req.Step, err = core.ParseStep(f.step); err != nil {
			return req, err
		}
	}
	if cmd.Flags().Changed("min-size") {
		req.MinFileSize = &f.minSize
	}
	if cmd.Flags().Changed("enforce") {
		req.EnforceMinSize = &f.enforce
	}
	return req, nil
}

var (
	checkFlags rangeFlags
	alignFlags rangeFlags
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report the availability of every date in a range",
	Long: `Check classifies every requested date as available, missing or corrupt.
A date is corrupt when its file is not larger than the minimum size.
With --dates-only only catalog membership is checked and no file is read.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		run := func(a *app.App, ctx context.Context, req app.Request) (*app.Result, error) {
			if checkFlags.datesOnly {
				return a.Dates(ctx, req)
			}
			return a.Check(ctx, req)
		}
		return runRange(cmd, &checkFlags, run)
	},
}

var alignCmd = &cobra.Command{
	Use:   "align",
	Short: "Match every date in a range to its file",
	Long: `Align returns the matched file path for every requested date. With
--enforce=false any catalog match is accepted and no file is read.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRange(cmd, &alignFlags, (*app.App).Align)
	},
}

func init() {
	checkFlags.register(checkCmd)
	checkCmd.Flags().BoolVar(&checkFlags.datesOnly, "dates-only", false, "Only check catalog membership")
	alignFlags.register(alignCmd)
	alignCmd.Flags().BoolVar(&alignFlags.enforce, "enforce", true, "Apply the minimum size check")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(alignCmd)
}

func runRange(cmd *cobra.Command, flags *rangeFlags,
	run func(*app.App, context.Context, app.Request) (*app.Result, error)) error {
	if err := validFormat(flags.format); err != nil {
		return err
	}

	log := logger.Must(debug, quiet)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	req, err := flags.request(cmd)
	if err != nil {
		return err
	}

	a, err := app.New(cfg, log, nil)
	if err != nil {
		return fmt.Errorf("creating app: %w", err)
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := run(a, ctx, req)
	if err != nil {
		return err
	}

	if err := emitReport(cmd.OutOrStdout(), res, flags, log); err != nil {
		return err
	}

	if flags.publish != "" {
		var buf bytes.Buffer
		if err := writeReport(&buf, res, flags.format, false); err != nil {
			return err
		}
		if err := a.Publish(ctx, flags.publish, buf.Bytes()); err != nil {
			return err
		}
	}

	if flags.notify {
		if err := a.Notify(ctx, res); err != nil {
			return fmt.Errorf("sending gap report: %w", err)
		}
	}

	if flags.failOnGaps && res.Summary.HasGaps() {
		return fmt.Errorf("%d of %d dates missing or corrupt",
			res.Summary.Missing+res.Summary.Corrupt, res.Summary.Total)
	}
	return nil
}

// emitReport prints the report, or writes it to --output under a file lock
// with the write shielded from interrupts so the file is never left half
// written.
func emitReport(stdout io.Writer, res *app.Result, flags *rangeFlags, log *zap.Logger) error {
	if flags.output == "" {
		return writeReport(stdout, res, flags.format, isTerminal(stdout))
	}

	var buf bytes.Buffer
	if err := writeReport(&buf, res, flags.format, false); err != nil {
		return err
	}

	return interrupt.Run(log, func() error {
		if err := fsutil.WriteFileLocked(flags.output, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		log.Info("report written", zap.String("path", flags.output))
		return nil
	})
}
