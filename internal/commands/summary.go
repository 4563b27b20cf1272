package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sparkflow-dev/sparkflow/internal/model"
	"github.com/sparkflow-dev/sparkflow/internal/pipeline"
)

func newSummaryCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print transfer recommendations with priority and total savings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load(cmd)
			if err != nil {
				return err
			}
			p, err := newPipeline(cfg, log)
			if err != nil {
				return err
			}
			if err := p.RefreshTransfers(cmd.Context()); err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), p.Transfers())
		},
	}
}

func printSummary(out io.Writer, view *pipeline.TransferView) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIORITY\tSKU\tROUTE\tQTY\tREASON\tEST. SAVINGS")
	for _, t := range view.Records {
		fmt.Fprintf(tw, "%s\t%s\t%s -> %s\t%d\t%s\t₹%s\n",
			t.Priority, t.SKU, t.FromZone, t.ToZone, t.Quantity, t.Reason, t.EstimatedSavings.StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	s := view.Summary
	fmt.Fprintf(out, "\n%d active transfers (High %d, Medium %d, Low %d)\n",
		s.Count, s.ByPriority[model.PriorityHigh], s.ByPriority[model.PriorityMedium], s.ByPriority[model.PriorityLow])
	if len(view.Rejected) > 0 {
		fmt.Fprintf(out, "%d transfers skipped as invalid\n", len(view.Rejected))
	}
	fmt.Fprintf(out, "Total Estimated Savings: ₹%s\n", s.TotalSavings.StringFixed(2))
	return nil
}
