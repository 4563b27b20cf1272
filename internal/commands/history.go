package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sparkflow-dev/sparkflow/internal/exportlog"
)

func newHistoryCommand(opts *globalOptions) *cobra.Command {
	var file string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previously delivered exports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("file") {
				cfg.Export.History = file
			}
			if cfg.Export.History == "" {
				return errors.New("no export history configured (set export.history or pass --file)")
			}

			entries, err := exportlog.Read(cfg.Export.History)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No exports recorded.")
				return nil
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tFILE\tSINK\tRECORDS\tLOCATION")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					e.Timestamp.Local().Format(time.DateTime), e.File, e.Sink, e.Records, e.Location)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "history CSV to read (default from config)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the most recent N exports")

	return cmd
}
