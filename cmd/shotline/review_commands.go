package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shotline/internal/api"
	"shotline/internal/review"
	"shotline/internal/shots"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Approve or reject generated assets",
	}
	reviewCmd.AddCommand(newReviewDecisionCommand(ctx, "approve"))
	reviewCmd.AddCommand(newReviewDecisionCommand(ctx, "reject"))
	reviewCmd.AddCommand(newReviewQueueCommand(ctx))
	return reviewCmd
}

func newReviewDecisionCommand(ctx *commandContext, decision string) *cobra.Command {
	var trackFlag string
	var notes string

	short := "Approve generated assets so the pipeline moves on"
	if decision == "reject" {
		short = "Reject generated assets and record feedback for the next prompt pass"
	}

	cmd := &cobra.Command{
		Use:   decision + " <shots>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			track, err := shots.ParseTrack(trackFlag)
			if err != nil {
				return err
			}
			filter, err := shots.ParseFilter(strings.Join(args, ","))
			if err != nil {
				return err
			}
			ids := filter.IDs()
			if decision == "reject" && strings.TrimSpace(notes) == "" {
				return errors.New("reject requires --notes describing what to change")
			}
			now := clock()
			err = ctx.updateBoard(cmd.Context(), func(board *shots.Board) (bool, error) {
				if decision == "reject" {
					return true, review.Reject(board, ids, track, notes, now)
				}
				return true, review.Approve(board, ids, track, notes, now)
			})
			if err != nil {
				return err
			}
			verb := "Approved"
			if decision == "reject" {
				verb = "Rejected"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", verb, track, strings.Join(ids, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&trackFlag, "track", string(shots.TrackStills), "Track to review (stills or video)")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "Reviewer notes")
	return cmd
}

func newReviewQueueCommand(ctx *commandContext) *cobra.Command {
	var trackFlag string
	var rejected bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List shots awaiting review",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, board, err := ctx.loadBoard()
			if err != nil {
				return err
			}
			tracks := []shots.Track{shots.TrackStills, shots.TrackVideo}
			if strings.TrimSpace(trackFlag) != "" {
				track, err := shots.ParseTrack(trackFlag)
				if err != nil {
					return err
				}
				tracks = []shots.Track{track}
			}

			type entry struct {
				track shots.Track
				shot  *shots.Shot
			}
			var entries []entry
			for _, track := range tracks {
				list := review.Pending(board, track)
				if rejected {
					list = review.Rejected(board, track)
				}
				for _, shot := range list {
					entries = append(entries, entry{track: track, shot: shot})
				}
			}

			if jsonOutput {
				resp := api.ShotListResponse{Shots: make([]api.Shot, 0, len(entries))}
				for _, e := range entries {
					resp.Shots = append(resp.Shots, api.FromShot(e.shot))
				}
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				if rejected {
					fmt.Fprintln(out, "No rejected shots")
				} else {
					fmt.Fprintln(out, "Nothing awaiting review")
				}
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				state := e.shot.Track(e.track)
				note := state.AssetPath
				if rejected {
					note = state.ReviewNotes
				}
				rows = append(rows, []string{
					e.shot.ID,
					string(e.track),
					fmt.Sprintf("%d", state.Version),
					truncate(orDash(note), 60),
				})
			}
			lastHeader := "Asset"
			if rejected {
				lastHeader = "Notes"
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Shot", "Track", "Version", lastHeader},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&trackFlag, "track", "", "Only this track (stills or video)")
	cmd.Flags().BoolVar(&rejected, "rejected", false, "List rejected shots instead")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
