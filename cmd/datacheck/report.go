package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/newthinker/datacheck/internal/app"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"
)

func validFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatCSV:
		return nil
	default:
		return fmt.Errorf("unknown format %q (expected table, json or csv)", format)
	}
}

// writeReport renders res in format. fancy selects the rounded table style.
func writeReport(w io.Writer, res *app.Result, format string, fancy bool) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case formatCSV:
		return writeCSV(w, res)
	default:
		return writeTable(w, res, fancy)
	}
}

func writeCSV(w io.Writer, res *app.Result) error {
	cw := csv.NewWriter(w)

	header := []string{"date", "status", "code"}
	if res.Slots != nil {
		header = append(header, "path")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, t := range res.Requested {
		row := []string{
			formatDate(t),
			res.Statuses[i].String(),
			strconv.FormatFloat(res.Codes[i], 'g', -1, 64),
		}
		if res.Slots != nil {
			row = append(row, res.Slots[i].Path)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeTable(w io.Writer, res *app.Result, fancy bool) error {
	headers := []string{"Date", "Status", "Code"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight}
	if res.Slots != nil {
		headers = append(headers, "Path")
		aligns = append(aligns, alignLeft)
	}

	rows := make([][]string, 0, len(res.Requested))
	for i, t := range res.Requested {
		row := []string{
			formatDate(t),
			res.Statuses[i].String(),
			strconv.FormatFloat(res.Codes[i], 'g', -1, 64),
		}
		if res.Slots != nil {
			row = append(row, res.Slots[i].Path)
		}
		rows = append(rows, row)
	}

	s := res.Summary
	_, err := fmt.Fprintf(w, "%s\n%s: %d requested, %d available, %d missing, %d corrupt (%.1f%% coverage)\n",
		renderTable(headers, rows, aligns, fancy),
		res.Source, s.Total, s.Available, s.Missing, s.Corrupt, s.Coverage*100)
	return err
}

// formatDate prints midnight timestamps as plain dates.
func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}
