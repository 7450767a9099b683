package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shotline/internal/api"
	"shotline/internal/batch"
	"shotline/internal/shots"
	"shotline/internal/stage"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var rangeFlag string
	var force bool
	var clean bool
	var workers int
	var timeout time.Duration
	var jsonOutput bool

	names := make([]string, 0, len(stage.Names()))
	for _, name := range stage.Names() {
		names = append(names, string(name))
	}

	cmd := &cobra.Command{
		Use:       "run <stage>",
		Short:     "Run one pipeline stage over the eligible shots",
		Long:      "Run one pipeline stage over the eligible shots.\n\nStages: " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := stage.ParseName(args[0])
			if err != nil {
				return err
			}
			filter, err := shots.ParseFilter(rangeFlag)
			if err != nil {
				return err
			}
			if clean && !force {
				return fmt.Errorf("--clean only applies together with --force")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := name.Requires(cfg); err != nil {
				return err
			}

			gen, err := ctx.generator()
			if err != nil {
				return err
			}
			scheduler, _, cleanup, err := ctx.scheduler(gen)
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := scheduler.Run(cmd.Context(), batch.Options{
				Stage:       name,
				Filter:      filter,
				Workers:     workers,
				Timeout:     timeout,
				Force:       force,
				Clean:       clean,
				LockTimeout: boardLockTimeout,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, api.FromSummary(summary))
			}
			printBatchSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().StringVarP(&rangeFlag, "range", "r", "", "Shot filter, e.g. 1-5,SHOT_009")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Regenerate existing assets and re-inspect approved prompts")
	cmd.Flags().BoolVar(&clean, "clean", false, "Delete superseded assets after a forced regeneration")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Worker count (defaults to the configured ceiling for the stage)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Deadline for the whole batch (defaults to batch.timeout_seconds)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func printBatchSummary(out io.Writer, summary batch.Summary) {
	colorize := shouldColorize(out)
	printLines(out, renderSectionHeader(stageLabel(summary.Stage), colorize))
	for _, id := range summary.Missing {
		fmt.Fprintln(out, renderStatusLine(id, statusWarn, "not on the board", colorize))
	}
	if summary.Selected == 0 {
		fmt.Fprintln(out, "No eligible shots")
		return
	}
	rows := make([][]string, 0, len(summary.Results))
	for _, res := range summary.Results {
		note := res.Detail
		if res.Result != stage.ResultSuccess {
			note = res.Reason
		}
		rows = append(rows, []string{
			res.ShotID,
			string(res.Result),
			orDash(res.Kind),
			formatDuration(res.Duration),
			truncate(note, 60),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Shot", "Result", "Kind", "Time", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))

	kind := statusOK
	switch {
	case summary.Failed() > 0:
		kind = statusError
	case summary.Incomplete() > 0:
		kind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Batch", kind, fmt.Sprintf(
		"%d succeeded, %d skipped, %d failed, %d incomplete in %s",
		summary.Succeeded(), summary.Skipped(), summary.Failed(), summary.Incomplete(),
		formatDuration(summary.Duration()),
	), colorize))
	if !summary.Saved {
		fmt.Fprintln(out, renderStatusLine("Board", statusInfo, "unchanged", colorize))
	}
}
