package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shotline/internal/review"
	"shotline/internal/scenes"
	"shotline/internal/shots"
)

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	assetsCmd := &cobra.Command{
		Use:   "assets",
		Short: "Maintain the wardrobe and location catalog",
	}
	assetsCmd.AddCommand(&cobra.Command{
		Use:   "refine",
		Short: "Rewrite catalog descriptions that are not yet optimized",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireLLM(); err != nil {
				return err
			}
			gen, err := ctx.generator()
			if err != nil {
				return err
			}
			result, err := scenes.RefineAssets(cmd.Context(), cfg.Paths.Assets, gen, ctx.loggerFor())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, failure := range result.Failed {
				fmt.Fprintln(out, renderStatusLine(failure.ID, statusError, failure.Err.Error(), colorize))
			}
			fmt.Fprintf(out, "Refined %d, already optimized %d, failed %d\n",
				len(result.Refined), len(result.Skipped), len(result.Failed))
			if len(result.Failed) > 0 {
				return fmt.Errorf("%d catalog entr(ies) could not be refined", len(result.Failed))
			}
			return nil
		},
	})
	return assetsCmd
}

func newPromptsCommand(ctx *commandContext) *cobra.Command {
	promptsCmd := &cobra.Command{
		Use:   "prompts",
		Short: "Bulk prompt maintenance",
	}

	var rangeFlag string
	reframeCmd := &cobra.Command{
		Use:   "reframe",
		Short: "Rewrite stills prompts toward close-up framing and queue them for regeneration",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := shots.ParseFilter(rangeFlag)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var result review.ReframeResult
			err = ctx.updateBoard(cmd.Context(), func(board *shots.Board) (bool, error) {
				res, err := review.ReframeBoard(cfg, board, filter, clock())
				result = res
				return len(res.Changed) > 0, err
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(result.Changed) > 0 {
				fmt.Fprintf(out, "Reframed: %s\n", strings.Join(result.Changed, ", "))
			}
			if len(result.Missing) > 0 {
				fmt.Fprintf(out, "No prompt file: %s\n", strings.Join(result.Missing, ", "))
			}
			fmt.Fprintf(out, "%d reframed, %d unchanged, %d without prompt\n",
				len(result.Changed), len(result.Unchanged), len(result.Missing))
			return nil
		},
	}
	reframeCmd.Flags().StringVarP(&rangeFlag, "range", "r", "", "Shot filter, e.g. 1-5,SHOT_009")
	promptsCmd.AddCommand(reframeCmd)
	return promptsCmd
}
