package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sparkflow-dev/sparkflow/internal/export"
	"github.com/sparkflow-dev/sparkflow/internal/server"
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	var addr, schedule string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API and CSV downloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("refresh") {
				cfg.Server.RefreshSchedule = schedule
			}

			q, err := export.ParseQuoting(cfg.Export.Quoting)
			if err != nil {
				return err
			}
			p, err := newPipeline(cfg, log)
			if err != nil {
				return err
			}
			srv, err := server.New(server.Config{
				Log:             log,
				Pipeline:        p,
				Quoting:         q,
				Addr:            cfg.Server.Addr,
				RefreshSchedule: cfg.Server.RefreshSchedule,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&schedule, "refresh", "", `refresh schedule, e.g. "@every 5m"; empty disables`)

	return cmd
}
