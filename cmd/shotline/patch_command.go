package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"shotline/internal/shots"
)

func newPatchCommand(ctx *commandContext) *cobra.Command {
	var trackFlag string
	var promptText string
	var promptFile string
	var statusFlag string
	var notes string

	cmd := &cobra.Command{
		Use:   "patch <shot>",
		Short: "Replace a track prompt by hand and queue the shot for regeneration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			track, err := shots.ParseTrack(trackFlag)
			if err != nil {
				return err
			}
			filter, err := shots.ParseFilter(args[0])
			if err != nil {
				return err
			}
			ids := filter.IDs()
			if len(ids) != 1 {
				return fmt.Errorf("expected a single shot, got %q", args[0])
			}
			text := promptText
			if path := strings.TrimSpace(promptFile); path != "" {
				if text != "" {
					return errors.New("use either --prompt or --file, not both")
				}
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read prompt file: %w", err)
				}
				text = string(data)
			}
			req := shots.PatchRequest{
				ShotID: ids[0],
				Track:  track,
				Prompt: text,
				Status: shots.Status(strings.ToUpper(strings.TrimSpace(statusFlag))),
				Notes:  notes,
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var patched *shots.Shot
			err = ctx.updateBoard(cmd.Context(), func(board *shots.Board) (bool, error) {
				shot, err := shots.Patch(board, cfg.Paths.ProjectDir, req, clock())
				if err != nil {
					return false, err
				}
				patched = shot
				return true, nil
			})
			if err != nil {
				return err
			}
			state := patched.Track(track)
			fmt.Fprintf(cmd.OutOrStdout(), "Patched %s %s prompt (%s), status %s\n", patched.ID, track, state.PromptFile, state.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&trackFlag, "track", string(shots.TrackStills), "Track to patch (stills or video)")
	cmd.Flags().StringVarP(&promptText, "prompt", "p", "", "Replacement prompt text")
	cmd.Flags().StringVar(&promptFile, "file", "", "Read the replacement prompt from a file")
	cmd.Flags().StringVar(&statusFlag, "status", "", "Status to reset the track to (default APPROVED)")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "Review notes to record")
	return cmd
}
