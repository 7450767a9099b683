package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shotline/internal/api"
	"shotline/internal/runlog"
	"shotline/internal/shots"
	"shotline/internal/stage"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var stageFlag string
	var shotFlag string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history [batch-id]",
		Short: "Show recorded batch runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunLog(func(store *runlog.Store) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					b, runs, err := store.Batch(cmd.Context(), strings.TrimSpace(args[0]))
					if err != nil {
						return err
					}
					if jsonOutput {
						return writeJSON(cmd, api.FromBatch(b, runs))
					}
					printBatchDetail(out, b, runs)
					return nil
				}

				if shotFlag != "" {
					filter, err := shots.ParseFilter(shotFlag)
					if err != nil {
						return err
					}
					ids := filter.IDs()
					if len(ids) != 1 {
						return fmt.Errorf("expected a single shot, got %q", shotFlag)
					}
					runs, err := store.ShotHistory(cmd.Context(), ids[0], limit)
					if err != nil {
						return err
					}
					if jsonOutput {
						return writeJSON(cmd, shotRunsJSON(runs))
					}
					if len(runs) == 0 {
						fmt.Fprintf(out, "No recorded runs for %s\n", ids[0])
						return nil
					}
					printShotRuns(out, runs, true)
					return nil
				}

				var name stage.Name
				if strings.TrimSpace(stageFlag) != "" {
					parsed, err := stage.ParseName(stageFlag)
					if err != nil {
						return err
					}
					name = parsed
				}
				batches, err := store.Batches(cmd.Context(), name, limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					resp := api.HistoryResponse{Batches: make([]api.BatchSummary, 0, len(batches))}
					for _, b := range batches {
						resp.Batches = append(resp.Batches, api.FromBatch(b, nil))
					}
					return writeJSON(cmd, resp)
				}
				if len(batches) == 0 {
					fmt.Fprintln(out, "No batches recorded")
					return nil
				}
				rows := make([][]string, 0, len(batches))
				for _, b := range batches {
					rows = append(rows, []string{
						shortID(b.ID),
						string(b.Stage),
						formatTimestamp(b.StartedAt),
						formatDuration(b.Duration()),
						fmt.Sprintf("%d", b.Selected),
						fmt.Sprintf("%d", b.Succeeded),
						fmt.Sprintf("%d", b.Skipped),
						fmt.Sprintf("%d", b.Failed),
						fmt.Sprintf("%d", b.Incomplete),
						b.Filter,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Batch", "Stage", "Started", "Time", "Sel", "OK", "Skip", "Fail", "Inc", "Filter"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&stageFlag, "stage", "s", "", "Only batches of this stage")
	cmd.Flags().StringVar(&shotFlag, "shot", "", "Show per-run results for one shot instead")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum rows to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete batches older than the given age",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			return ctx.withRunLog(func(store *runlog.Store) error {
				removed, err := store.Prune(cmd.Context(), clock().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d batch(es)\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age cutoff")
	return cmd
}

func (c *commandContext) withRunLog(fn func(*runlog.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := runlog.Open(cfg)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func printBatchDetail(out io.Writer, b runlog.Batch, runs []runlog.ShotRun) {
	colorize := shouldColorize(out)
	printLines(out, renderSectionHeader(fmt.Sprintf("%s %s", stageLabel(b.Stage), b.ID), colorize))
	fmt.Fprintf(out, "Filter:   %s\n", orDash(b.Filter))
	fmt.Fprintf(out, "Started:  %s\n", formatTimestamp(b.StartedAt))
	fmt.Fprintf(out, "Duration: %s\n", formatDuration(b.Duration()))
	fmt.Fprintf(out, "Saved:    %s\n", yesNo(b.Saved))
	if len(b.Missing) > 0 {
		fmt.Fprintf(out, "Missing:  %s\n", strings.Join(b.Missing, ", "))
	}
	if len(runs) > 0 {
		printShotRuns(out, runs, false)
	}
}

func printShotRuns(out io.Writer, runs []runlog.ShotRun, withStage bool) {
	headers := []string{"Shot", "Result", "Kind", "Time", "Detail"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}
	if withStage {
		headers = []string{"Batch", "Stage", "Finished", "Result", "Kind", "Detail"}
		aligns = []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft}
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		detail := run.Detail
		if run.Result != stage.ResultSuccess {
			detail = run.Reason
		}
		if withStage {
			rows = append(rows, []string{
				shortID(run.BatchID),
				string(run.Stage),
				formatTimestamp(run.FinishedAt),
				string(run.Result),
				orDash(run.Kind),
				truncate(detail, 50),
			})
			continue
		}
		rows = append(rows, []string{
			run.ShotID,
			string(run.Result),
			orDash(run.Kind),
			formatDuration(run.Duration),
			truncate(detail, 60),
		})
	}
	fmt.Fprintln(out, renderTable(headers, rows, aligns))
}

func shotRunsJSON(runs []runlog.ShotRun) []api.ShotResult {
	out := make([]api.ShotResult, 0, len(runs))
	for _, run := range runs {
		out = append(out, api.FromShotRun(run))
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
