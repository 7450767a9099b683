package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shotline/internal/api"
	"shotline/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board, review, and batch operations over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if addr := strings.TrimSpace(bind); addr != "" {
				cfg.Paths.APIBind = addr
			}
			gen, err := ctx.generator()
			if err != nil {
				return err
			}
			scheduler, store, cleanup, err := ctx.scheduler(gen)
			if err != nil {
				return err
			}
			defer cleanup()

			serverCfg := api.ServerConfig{
				Config:    cfg,
				Runner:    scheduler,
				Generator: gen,
				Logger:    ctx.loggerFor(),
				Now:       clock,
			}
			if store != nil {
				serverCfg.History = store
			}

			ready := make(chan string, 1)
			go func() {
				if addr, ok := <-ready; ok {
					fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s/api\n", addr)
				}
			}()
			err = api.NewServer(serverCfg).Serve(cmd.Context(), ready)
			if err != nil {
				logging.ErrorWithContext(ctx.loggerFor(), "http server stopped", "api_serve_failed",
					logging.String(logging.FieldErrorHint, "check that "+cfg.Paths.APIBind+" is free"),
					logging.Error(err),
				)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to paths.api_bind)")
	return cmd
}
