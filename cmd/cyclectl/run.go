package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/yieldtree/engine/internal/constants"
	"github.com/yieldtree/engine/internal/queue"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(sweepCmd)

	runCmd.Flags().StringP("date", "d", "", "Cycle date (YYYY-MM-DD, today, yesterday)")
	enqueueCmd.Flags().StringP("date", "d", "", "Cycle date (YYYY-MM-DD, today, yesterday)")
	replayCmd.Flags().Bool("async", false, "Enqueue the replay instead of running in-process")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily cycle in-process",
	Long: `Run the daily profit cycle for a date in this process.
A completed cycle is a no-op; a partially successful or failed cycle is resumed.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	svc := container.CycleService
	raw, _ := cmd.Flags().GetString("date")
	cycle, err := resolveCycle(raw, svc.Location(), time.Now())
	if err != nil {
		return err
	}
	run, err := svc.RunDailyCycle(cmd.Context(), cycle, constants.RunTriggerManual)
	if err != nil {
		if run != nil {
			_ = printRun(os.Stdout, outputFmt, run)
		}
		return err
	}
	return printRun(os.Stdout, outputFmt, run)
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Enqueue the daily cycle task for the worker",
	RunE:  runEnqueue,
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	if !container.QueueClient.Enabled() {
		return queue.ErrQueueDisabled
	}
	raw, _ := cmd.Flags().GetString("date")
	cycle, err := resolveCycle(raw, container.CycleService.Location(), time.Now())
	if err != nil {
		return err
	}
	info, err := container.QueueClient.EnqueueDailyCycle(queue.DailyCyclePayload{
		CycleDate: string(cycle),
		Trigger:   constants.RunTriggerManual,
	})
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		fmt.Fprintf(os.Stdout, "cycle %s is already queued\n", cycle)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "enqueued %s on %s (task %s)\n", cycle, info.Queue, info.ID)
	return nil
}

var replayCmd = &cobra.Command{
	Use:   "replay RUN_ID",
	Short: "Resume the cycle of a run, replaying failed and unprocessed items",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	runID, err := parseID(args[0])
	if err != nil {
		return err
	}
	async, _ := cmd.Flags().GetBool("async")
	if async {
		if !container.QueueClient.Enabled() {
			return queue.ErrQueueDisabled
		}
		info, err := container.QueueClient.EnqueueCycleReplay(queue.CycleReplayPayload{RunID: runID})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "enqueued replay of run %d (task %s)\n", runID, info.ID)
		return nil
	}
	run, err := container.CycleService.ReplayRun(cmd.Context(), runID)
	if err != nil {
		return err
	}
	return printRun(os.Stdout, outputFmt, run)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mark stale running runs as failed",
	RunE: func(cmd *cobra.Command, args []string) error {
		swept, err := container.CycleService.SweepStaleRuns(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "swept %d stale run(s)\n", swept)
		return nil
	},
}
