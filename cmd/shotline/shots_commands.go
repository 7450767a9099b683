package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shotline/internal/api"
	"shotline/internal/scenes"
	"shotline/internal/shots"
)

func newShotsCommand(ctx *commandContext) *cobra.Command {
	shotsCmd := &cobra.Command{
		Use:   "shots",
		Short: "Create and inspect the shot board",
	}
	shotsCmd.AddCommand(newShotsInitCommand(ctx))
	shotsCmd.AddCommand(newShotsListCommand(ctx))
	shotsCmd.AddCommand(newShotsShowCommand(ctx))
	return shotsCmd
}

func newShotsInitCommand(ctx *commandContext) *cobra.Command {
	var templatePath string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Expand a story template into a fresh shot board and scene database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var tmpl *scenes.Template
			if path := strings.TrimSpace(templatePath); path != "" {
				tmpl, err = scenes.LoadTemplate(path)
			} else {
				tmpl, err = scenes.DefaultTemplate()
			}
			if err != nil {
				return err
			}
			result, err := scenes.Initialize(cmd.Context(), scenes.InitOptions{
				BoardPath:  cfg.Paths.ShotsBoard,
				ScenesPath: cfg.Paths.ScenesDB,
				Template:   tmpl,
				Expand: scenes.ExpandOptions{
					StillsPromptDir: cfg.RelativeToProject(cfg.Paths.StillsPrompts),
					VideoPromptDir:  cfg.RelativeToProject(cfg.Paths.VideoPrompts),
				},
				Force:       force,
				LockPath:    cfg.BoardLockPath(),
				LockTimeout: boardLockTimeout,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %d shots to %s\n", result.Shots, cfg.Paths.ShotsBoard)
			fmt.Fprintf(out, "Wrote %d scenes to %s\n", result.Scenes, cfg.Paths.ScenesDB)
			return nil
		},
	}
	cmd.Flags().StringVarP(&templatePath, "template", "t", "", "Story template YAML (defaults to the built-in story)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing shot board")
	return cmd
}

func newShotsListCommand(ctx *commandContext) *cobra.Command {
	var trackFlag string
	var statusFlag string
	var rangeFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List shots and their track statuses",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, board, err := ctx.loadBoard()
			if err != nil {
				return err
			}
			filter, err := shots.ParseFilter(rangeFlag)
			if err != nil {
				return err
			}
			var track shots.Track
			status := shots.Status(strings.ToUpper(strings.TrimSpace(statusFlag)))
			if status != "" {
				track = shots.TrackStills
				if strings.TrimSpace(trackFlag) != "" {
					if track, err = shots.ParseTrack(trackFlag); err != nil {
						return err
					}
				}
				if !track.Valid(status) {
					return fmt.Errorf("status %s is not valid for the %s track", status, track)
				}
			}

			selected := board.Select(func(shot *shots.Shot) bool {
				if !filter.Match(shot.ID) {
					return false
				}
				return status == "" || shot.Track(track).Status == status
			})

			if jsonOutput {
				resp := api.ShotListResponse{Shots: make([]api.Shot, 0, len(selected))}
				for _, id := range selected {
					shot, _ := board.Get(id)
					resp.Shots = append(resp.Shots, api.FromShot(shot))
				}
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			if len(selected) == 0 {
				fmt.Fprintln(out, "No shots match")
				return nil
			}
			rows := make([][]string, 0, len(selected))
			for _, id := range selected {
				shot, _ := board.Get(id)
				rows = append(rows, []string{
					shot.ID,
					orDash(shot.SceneRef),
					string(shot.Stills.Status),
					strconv.Itoa(shot.Stills.Version),
					string(shot.Video.Status),
					strconv.Itoa(shot.Video.Version),
					truncate(shot.Brief.Visual, 48),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Shot", "Scene", "Stills", "v", "Video", "v", "Visual"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&trackFlag, "track", "", "Track used by --status (stills or video)")
	cmd.Flags().StringVar(&statusFlag, "status", "", "Only shots whose track has this status")
	cmd.Flags().StringVarP(&rangeFlag, "range", "r", "", "Shot filter, e.g. 1-5,SHOT_009")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newShotsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <shot>",
		Short: "Show one shot in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, board, err := ctx.loadBoard()
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
			shot, ok := board.Get(ids[0])
			if !ok {
				return fmt.Errorf("shot %s not found", ids[0])
			}
			if jsonOutput {
				return writeJSON(cmd, api.FromShot(shot))
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			printLines(out, renderSectionHeader(shot.ID, colorize))
			fmt.Fprintf(out, "Scene:    %s\n", orDash(shot.SceneRef))
			fmt.Fprintf(out, "Duration: %s\n", orDash(shot.Duration))
			fmt.Fprintf(out, "Visual:   %s\n", orDash(shot.Brief.Visual))
			fmt.Fprintf(out, "Motion:   %s\n", orDash(shot.Brief.Motion))
			for _, track := range []shots.Track{shots.TrackStills, shots.TrackVideo} {
				state := shot.Track(track)
				fmt.Fprintln(out)
				printLines(out, renderSectionHeader(statusLabel(string(track)), colorize))
				fmt.Fprintln(out, renderStatusLine("Status", trackStatusKind(track, state.Status), string(state.Status), colorize))
				fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Prompt:", orDash(state.PromptFile))
				fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Asset:", orDash(state.AssetPath))
				fmt.Fprintf(out, "%s%-*s %d\n", statusIndent, statusLabelWidth, "Version:", state.Version)
				fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Feedback:", orDash(state.InspectorFeedback))
				fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Review notes:", orDash(state.ReviewNotes))
				fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Updated:", orDash(state.UpdatedAt))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func trackStatusKind(track shots.Track, status shots.Status) statusKind {
	switch status {
	case shots.StatusDone:
		return statusOK
	case track.ReadyStatus():
		return statusWarn
	case shots.StatusRejected:
		return statusError
	default:
		return statusInfo
	}
}
