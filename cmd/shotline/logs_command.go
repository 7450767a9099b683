package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shotline/internal/logging"
	"shotline/internal/logs"
	"shotline/internal/shots"
	"shotline/internal/stage"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var shotFlag string
	var stageFlag string
	var batchFlag string
	var level string
	var lines int
	var follow bool
	var raw bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the run log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			filter := logs.Filter{BatchID: strings.TrimSpace(batchFlag), Level: strings.TrimSpace(level)}
			if shotFlag != "" {
				f, err := shots.ParseFilter(shotFlag)
				if err != nil {
					return err
				}
				ids := f.IDs()
				if len(ids) != 1 {
					return fmt.Errorf("expected a single shot, got %q", shotFlag)
				}
				filter.ShotID = ids[0]
			}
			if stageFlag != "" {
				name, err := stage.ParseName(stageFlag)
				if err != nil {
					return err
				}
				filter.Stage = string(name)
			}

			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			out := cmd.OutOrStdout()
			emit := func(line string) {
				if strings.TrimSpace(line) == "" {
					return
				}
				entry := logs.ParseEntry(line)
				if !filter.Match(entry) {
					return
				}
				if raw {
					fmt.Fprintln(out, line)
					return
				}
				fmt.Fprintln(out, entry.String())
			}

			// Filtering happens after the tail, so widen the window when a
			// filter is set.
			window := lines
			if filter != (logs.Filter{}) && window > 0 {
				window *= 20
			}
			result, err := logs.Tail(path, window)
			if err != nil {
				return err
			}
			matched := result.Lines
			if filter != (logs.Filter{}) {
				matched = matched[:0:0]
				for _, line := range result.Lines {
					if filter.Match(logs.ParseEntry(line)) {
						matched = append(matched, line)
					}
				}
				if len(matched) > lines {
					matched = matched[len(matched)-lines:]
				}
			}
			for _, line := range matched {
				emit(line)
			}
			if !follow {
				if len(result.Lines) == 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "No log entries in %s\n", path)
				}
				return nil
			}
			return logs.Follow(cmd.Context(), path, result.Offset, 250*time.Millisecond, emit)
		},
	}

	cmd.Flags().StringVar(&shotFlag, "shot", "", "Only show entries for this shot")
	cmd.Flags().StringVarP(&stageFlag, "stage", "s", "", "Only show entries for this stage")
	cmd.Flags().StringVar(&batchFlag, "batch", "", "Only show entries for this batch (id prefix)")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the JSON lines unchanged")
	return cmd
}
