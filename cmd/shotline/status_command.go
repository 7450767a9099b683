package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shotline/internal/api"
	"shotline/internal/preflight"
	"shotline/internal/runlog"
	"shotline/internal/shots"
	"shotline/internal/stage"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize the board, the review queue, and stage readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			gen, err := ctx.generator()
			if err != nil {
				return err
			}
			probe := preflight.ProbeBoard(cfg)
			health := stage.CheckAll(cmd.Context(), stage.Deps{
				Config:    cfg,
				Generator: gen,
				Logger:    ctx.loggerFor(),
			})

			var last *runlog.Batch
			if store, err := runlog.Open(cfg); err == nil {
				if batches, err := store.Batches(cmd.Context(), "", 1); err == nil && len(batches) > 0 {
					last = &batches[0]
				}
				_ = store.Close()
			}

			stillsPending := probe.Summary.Count(shots.TrackStills, shots.TrackStills.ReadyStatus())
			videoPending := probe.Summary.Count(shots.TrackVideo, shots.TrackVideo.ReadyStatus())

			if jsonOutput {
				resp := api.StatusResponse{
					Board: api.FromBoardProbe(probe),
					PendingReview: map[string]int{
						string(shots.TrackStills): stillsPending,
						string(shots.TrackVideo):  videoPending,
					},
					Stages: api.StageHealthSlice(health),
				}
				if last != nil {
					summary := api.FromBatch(*last, nil)
					resp.LastBatch = &summary
				}
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			printLines(out, renderSectionHeader("Board", colorize))
			result := probe.Result()
			kind := statusOK
			switch {
			case !result.Passed:
				kind = statusError
			case len(probe.Issues) > 0:
				kind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Shot board", kind, result.Detail, colorize))
			for _, issue := range probe.Issues {
				fmt.Fprintf(out, "%s  - %s\n", statusIndent, issue.String())
			}
			if probe.Loaded {
				rows := make([][]string, 0, len(probe.Summary.Video))
				for _, status := range shots.TrackVideo.Statuses() {
					stills := "-"
					if shots.TrackStills.Valid(status) {
						stills = fmt.Sprintf("%d", probe.Summary.Count(shots.TrackStills, status))
					}
					rows = append(rows, []string{
						statusLabel(string(status)),
						stills,
						fmt.Sprintf("%d", probe.Summary.Count(shots.TrackVideo, status)),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Status", "Stills", "Video"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight},
				))
			}

			fmt.Fprintln(out)
			printLines(out, renderSectionHeader("Review", colorize))
			fmt.Fprintln(out, renderStatusLine("Stills pending", pendingKind(stillsPending), fmt.Sprintf("%d", stillsPending), colorize))
			fmt.Fprintln(out, renderStatusLine("Video pending", pendingKind(videoPending), fmt.Sprintf("%d", videoPending), colorize))

			fmt.Fprintln(out)
			printLines(out, renderSectionHeader("Stages", colorize))
			for _, h := range health {
				label := stageLabel(stage.Name(h.Name))
				if h.Ready {
					fmt.Fprintln(out, renderStatusLine(label, statusOK, "ready", colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine(label, statusError, h.Detail, colorize))
				}
			}

			if last != nil {
				fmt.Fprintln(out)
				printLines(out, renderSectionHeader("Last batch", colorize))
				fmt.Fprintln(out, renderStatusLine(stageLabel(last.Stage), batchKind(*last), fmt.Sprintf(
					"%d succeeded, %d skipped, %d failed, %d incomplete at %s",
					last.Succeeded, last.Skipped, last.Failed, last.Incomplete, formatTimestamp(last.FinishedAt),
				), colorize))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func pendingKind(n int) statusKind {
	if n > 0 {
		return statusWarn
	}
	return statusOK
}

func batchKind(b runlog.Batch) statusKind {
	switch {
	case b.Failed > 0:
		return statusError
	case b.Incomplete > 0:
		return statusWarn
	default:
		return statusOK
	}
}
