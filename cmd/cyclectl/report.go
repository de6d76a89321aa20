package main

import (
	"os"

	"github.com/yieldtree/engine/internal/models"
	"github.com/yieldtree/engine/internal/repository"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerListCmd)
	rootCmd.AddCommand(activationsCmd)

	runsListCmd.Flags().StringP("date", "d", "", "Filter by cycle date")
	runsListCmd.Flags().String("status", "", "Filter by status")
	runsListCmd.Flags().Int("page", 1, "Page")
	runsListCmd.Flags().Int("size", 20, "Page size")

	ledgerListCmd.Flags().StringP("date", "d", "", "Filter by cycle date")
	ledgerListCmd.Flags().Uint("account", 0, "Filter by beneficiary account")
	ledgerListCmd.Flags().Uint("source", 0, "Filter by source account")
	ledgerListCmd.Flags().Uint("run", 0, "Filter by run id")
	ledgerListCmd.Flags().String("kind", "", "Filter by kind (daily_profit, level_commission)")
	ledgerListCmd.Flags().String("status", "", "Filter by status")
	ledgerListCmd.Flags().Int("page", 1, "Page")
	ledgerListCmd.Flags().Int("size", 50, "Page size")

	activationsCmd.Flags().StringP("date", "d", "", "Filter by cycle date")
	activationsCmd.Flags().Uint("account", 0, "Filter by account")
	activationsCmd.Flags().String("state", "", "Filter by state (processed, skipped, failed)")
	activationsCmd.Flags().Int("page", 1, "Page")
	activationsCmd.Flags().Int("size", 50, "Page size")
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect batch runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List batch runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")
		status, _ := cmd.Flags().GetString("status")
		page, _ := cmd.Flags().GetInt("page")
		size, _ := cmd.Flags().GetInt("size")
		runs, total, err := container.CycleService.ListRuns(cmd.Context(), repository.RunListFilter{
			Page:      page,
			PageSize:  size,
			CycleDate: models.CycleDate(date),
			Status:    status,
		})
		if err != nil {
			return err
		}
		return printRuns(os.Stdout, outputFmt, runs, total)
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show a run with its item errors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, err := parseID(args[0])
		if err != nil {
			return err
		}
		run, err := container.CycleService.GetRun(cmd.Context(), runID)
		if err != nil {
			return err
		}
		return printRun(os.Stdout, outputFmt, run)
	},
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect ledger entries",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ledger entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")
		account, _ := cmd.Flags().GetUint("account")
		source, _ := cmd.Flags().GetUint("source")
		runID, _ := cmd.Flags().GetUint("run")
		kind, _ := cmd.Flags().GetString("kind")
		status, _ := cmd.Flags().GetString("status")
		page, _ := cmd.Flags().GetInt("page")
		size, _ := cmd.Flags().GetInt("size")
		entries, total, err := container.CycleService.ListLedgerEntries(cmd.Context(), repository.LedgerListFilter{
			Page:          page,
			PageSize:      size,
			BeneficiaryID: account,
			SourceID:      source,
			RunID:         runID,
			Kind:          kind,
			Status:        status,
			CycleDate:     models.CycleDate(date),
		})
		if err != nil {
			return err
		}
		return printLedger(os.Stdout, outputFmt, entries, total)
	},
}

var activationsCmd = &cobra.Command{
	Use:   "activations",
	Short: "List per-investment activation records",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")
		account, _ := cmd.Flags().GetUint("account")
		state, _ := cmd.Flags().GetString("state")
		page, _ := cmd.Flags().GetInt("page")
		size, _ := cmd.Flags().GetInt("size")
		records, total, err := container.CycleService.ListActivationRecords(cmd.Context(), repository.ActivationListFilter{
			Page:      page,
			PageSize:  size,
			AccountID: account,
			CycleDate: models.CycleDate(date),
			State:     state,
		})
		if err != nil {
			return err
		}
		return printActivations(os.Stdout, outputFmt, records, total)
	},
}
