package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"shotline/internal/review"
	"shotline/internal/shots"
)

func newFailuresCommand(ctx *commandContext) *cobra.Command {
	failuresCmd := &cobra.Command{
		Use:   "failures",
		Short: "Collect rejected shots for offline prompt analysis",
	}
	failuresCmd.AddCommand(newFailuresPackageCommand(ctx))
	failuresCmd.AddCommand(newFailuresReportCommand(ctx))
	failuresCmd.AddCommand(newFailuresFlattenCommand(ctx))
	return failuresCmd
}

func newFailuresPackageCommand(ctx *commandContext) *cobra.Command {
	var trackFlag string

	cmd := &cobra.Command{
		Use:   "package",
		Short: "Copy prompt, asset, and feedback of every rejected shot into the failures directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			track, err := shots.ParseTrack(trackFlag)
			if err != nil {
				return err
			}
			cfg, board, err := ctx.loadBoard()
			if err != nil {
				return err
			}
			packages, err := review.PackageFailures(cfg, board, track, clock())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(packages) == 0 {
				fmt.Fprintf(out, "No rejected %s shots\n", track)
				return nil
			}
			for _, pkg := range packages {
				fmt.Fprintf(out, "%s -> %s (%s)\n", pkg.ShotID, pkg.Dir, strings.Join(pkg.Files, ", "))
			}
			fmt.Fprintf(out, "Packaged %d failure(s)\n", len(packages))
			return nil
		},
	}
	cmd.Flags().StringVar(&trackFlag, "track", string(shots.TrackStills), "Track to package (stills or video)")
	return cmd
}

func newFailuresReportCommand(ctx *commandContext) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Concatenate every failure folder into one text report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dest := strings.TrimSpace(outDir)
			if dest == "" {
				dest = cfg.Paths.ReportsDir
			}
			path, count, err := review.Report(cfg.Paths.FailuresDir, dest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d failure case(s) to %s\n", count, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Report directory (defaults to paths.reports_dir)")
	return cmd
}

func newFailuresFlattenCommand(ctx *commandContext) *cobra.Command {
	var dest string

	cmd := &cobra.Command{
		Use:   "flatten",
		Short: "Copy every failure image and text file into one flat directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := strings.TrimSpace(dest)
			if target == "" {
				target = filepath.Join(cfg.Paths.ReportsDir, "failures_flat")
			}
			count, err := review.Flatten(cfg.Paths.FailuresDir, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied %d file(s) to %s\n", count, target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dest, "dest", "d", "", "Destination directory (emptied first)")
	return cmd
}
