package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/yieldtree/engine/internal/models"
)

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func printRun(w io.Writer, format string, run *models.RunRecord) error {
	if format == "json" {
		return writeJSON(w, run)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%d (%s)\n", run.ID, run.RunNo)
	fmt.Fprintf(tw, "cycle\t%s\n", run.CycleDate)
	fmt.Fprintf(tw, "status\t%s\n", run.Status)
	fmt.Fprintf(tw, "trigger\t%s\n", run.Trigger)
	fmt.Fprintf(tw, "attempt\t%d\n", run.Attempt)
	fmt.Fprintf(tw, "started\t%s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "finished\t%s\n", formatTime(run.FinishedAt))
	fmt.Fprintf(tw, "candidates\t%d\n", run.CandidateCount)
	fmt.Fprintf(tw, "processed\t%d (cycle total %d)\n", run.ProcessedCount, run.CumulativeProcessed)
	fmt.Fprintf(tw, "skipped\t%d\n", run.SkippedCount)
	fmt.Fprintf(tw, "errors\t%d\n", run.ErrorCount)
	fmt.Fprintf(tw, "amount\t%s (cycle total %s)\n", run.TotalAmount.String(), run.CumulativeAmount.String())
	if run.FailureMessage != "" {
		fmt.Fprintf(tw, "failure\t%s\n", run.FailureMessage)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(run.Errors) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tKIND\tACCOUNT\tINVESTMENT\tMESSAGE")
	for _, item := range run.Errors {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", item.Stage, item.Kind, item.AccountID, item.InvestmentID, item.Message)
	}
	return tw.Flush()
}

func printRuns(w io.Writer, format string, runs []models.RunRecord, total int64) error {
	if format == "json" {
		return writeJSON(w, map[string]interface{}{"total": total, "items": runs})
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCYCLE\tSTATUS\tTRIGGER\tATTEMPT\tPROCESSED\tSKIPPED\tERRORS\tAMOUNT")
	for _, run := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			run.ID, run.CycleDate, run.Status, run.Trigger, run.Attempt,
			run.ProcessedCount, run.SkippedCount, run.ErrorCount, run.TotalAmount.String())
	}
	fmt.Fprintf(tw, "total: %d\n", total)
	return tw.Flush()
}

func printLedger(w io.Writer, format string, entries []models.LedgerEntry, total int64) error {
	if format == "json" {
		return writeJSON(w, map[string]interface{}{"total": total, "items": entries})
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCYCLE\tKIND\tLEVEL\tBENEFICIARY\tSOURCE\tINVESTMENT\tAMOUNT\tSTATUS")
	for _, entry := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			entry.ID, entry.CycleDate, entry.Kind, entry.Level, entry.BeneficiaryID,
			entry.SourceID, entry.InvestmentID, entry.Amount.String(), entry.Status)
	}
	fmt.Fprintf(tw, "total: %d\n", total)
	return tw.Flush()
}

func printActivations(w io.Writer, format string, records []models.ActivationRecord, total int64) error {
	if format == "json" {
		return writeJSON(w, map[string]interface{}{"total": total, "items": records})
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCYCLE\tACCOUNT\tINVESTMENT\tSTATE\tAMOUNT\tATTEMPTS\tREASON")
	for _, record := range records {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\t%d\t%s\n",
			record.ID, record.CycleDate, record.AccountID, record.InvestmentID,
			record.State, record.Amount.String(), record.Attempts, record.Reason)
	}
	fmt.Fprintf(tw, "total: %d\n", total)
	return tw.Flush()
}
