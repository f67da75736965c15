package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/newthinker/datacheck/internal/app"
	"github.com/newthinker/datacheck/internal/core"
	"github.com/newthinker/datacheck/internal/logger"
	"github.com/newthinker/datacheck/internal/storage/history"
	"github.com/spf13/cobra"
)

var historyFlags struct {
	source string
	mode   string
	since  string
	limit  int
	format string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past availability runs",
	Long: `History lists the runs recorded in the configured history store, newest
first. Only the sqlite store keeps runs across invocations.`,
	RunE: runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.source, "source", "", "Only runs against this source")
	f.StringVar(&historyFlags.mode, "mode", "", "Only runs of this mode (check, align, dates)")
	f.StringVar(&historyFlags.since, "since", "", "Only runs at or after this date")
	f.IntVarP(&historyFlags.limit, "limit", "n", 20, "Maximum number of runs")
	f.StringVarP(&historyFlags.format, "format", "f", formatTable, "Output format (table, json)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyFlags.format != formatTable && historyFlags.format != formatJSON {
		return fmt.Errorf("unknown format %q (expected table or json)", historyFlags.format)
	}

	log := logger.Must(debug, quiet)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	filter := history.ListFilter{
		Source: historyFlags.source,
		Mode:   historyFlags.mode,
		Limit:  historyFlags.limit,
	}
	if historyFlags.since != "" {
		if filter.Since, err = core.ParseDate(historyFlags.since); err != nil {
			return core.WrapError(core.ErrRangeInvalid, err)
		}
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

	records, err := a.History(ctx, filter)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}

	out := cmd.OutOrStdout()
	if historyFlags.format == formatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	return writeHistoryTable(out, records, isTerminal(out))
}

func writeHistoryTable(w io.Writer, records []history.Record, fancy bool) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}

	headers := []string{"ID", "Checked", "Mode", "Source", "Range", "Missing", "Corrupt", "Coverage"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			strconv.FormatInt(rec.ID, 10),
			rec.CheckedAt.Format("2006-01-02 15:04:05"),
			rec.Mode,
			rec.Source,
			formatDate(rec.From) + ".." + formatDate(rec.To),
			strconv.Itoa(rec.Summary.Missing),
			strconv.Itoa(rec.Summary.Corrupt),
			fmt.Sprintf("%.1f%%", rec.Summary.Coverage*100),
		})
	}

	_, err := fmt.Fprintln(w, renderTable(headers, rows, aligns, fancy))
	return err
}
