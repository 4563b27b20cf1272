package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sparkflow-dev/sparkflow/internal/config"
	"github.com/sparkflow-dev/sparkflow/internal/export"
	"github.com/sparkflow-dev/sparkflow/internal/exportlog"
	"github.com/sparkflow-dev/sparkflow/internal/pipeline"
)

const (
	datasetForecast  = "forecast"
	datasetTransfers = "transfers"
	datasetAll       = "all"
)

func newExportCommand(opts *globalOptions) *cobra.Command {
	var sinkName, outDir, quoting, history string

	cmd := &cobra.Command{
		Use:       "export [forecast|transfers|all]",
		Short:     "Fetch the latest data and export it as CSV",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{datasetForecast, datasetTransfers, datasetAll},
		RunE: func(cmd *cobra.Command, args []string) error {
			which := datasetAll
			if len(args) > 0 {
				which = args[0]
			}

			cfg, log, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("sink") {
				cfg.Export.Sink = sinkName
			}
			if cmd.Flags().Changed("out") {
				cfg.Export.Dir = outDir
			}
			if cmd.Flags().Changed("quoting") {
				cfg.Export.Quoting = quoting
			}
			if cmd.Flags().Changed("history") {
				cfg.Export.History = history
			}

			q, err := export.ParseQuoting(cfg.Export.Quoting)
			if err != nil {
				return err
			}
			sink, err := buildSink(cmd.Context(), cfg.Export, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			p, err := newPipeline(cfg, log)
			if err != nil {
				return err
			}

			// Confirmations go to stderr when the CSV itself is on stdout.
			status := cmd.OutOrStdout()
			if sink.Name() == "stdout" {
				status = cmd.ErrOrStderr()
			}
			receipts, err := runExport(cmd.Context(), p, export.NewExporter(sink, q, log), which, status)
			if cfg.Export.History != "" && len(receipts) > 0 {
				if herr := recordHistory(cfg.Export.History, receipts); herr != nil {
					log.Warn().Err(herr).Str("path", cfg.Export.History).Msg("Could not record export history")
				}
			}
			return err
		},
	}

	cmd.Flags().StringVar(&sinkName, "sink", "", "where to deliver files: dir, stdout, s3 (default from config)")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory for the dir sink (default from config)")
	cmd.Flags().StringVar(&quoting, "quoting", "", "CSV quoting: none or rfc4180 (default from config)")
	cmd.Flags().StringVar(&history, "history", "", "append delivered exports to this CSV (default from config)")

	return cmd
}

// runExport refreshes and exports each requested dataset independently. Any
// fetch or export failure makes the command fail, after the other dataset has
// had its turn. Receipts are returned for every file that was delivered.
func runExport(ctx context.Context, p *pipeline.Pipeline, exp *export.Exporter, which string, status io.Writer) ([]export.Receipt, error) {
	var (
		receipts []export.Receipt
		errs     []error
	)

	if which == datasetForecast || which == datasetAll {
		if err := p.RefreshForecast(ctx); err != nil {
			errs = append(errs, err)
		} else if r, err := exp.Export(ctx, export.ForecastArtifact(p.Forecasts().Records)); err != nil {
			errs = append(errs, err)
		} else {
			fmt.Fprintln(status, r.Message())
			receipts = append(receipts, r)
		}
	}

	if which == datasetTransfers || which == datasetAll {
		if err := p.RefreshTransfers(ctx); err != nil {
			errs = append(errs, err)
		} else if r, err := exp.Export(ctx, export.TransferArtifact(p.Transfers().Records)); err != nil {
			errs = append(errs, err)
		} else {
			fmt.Fprintln(status, r.Message())
			receipts = append(receipts, r)
		}
	}

	return receipts, errors.Join(errs...)
}

func recordHistory(path string, receipts []export.Receipt) error {
	now := time.Now()
	entries := make([]exportlog.Entry, len(receipts))
	for i, r := range receipts {
		entries[i] = exportlog.Entry{
			Timestamp: now,
			File:      r.Filename,
			Sink:      r.Sink,
			Location:  r.Location,
			Records:   r.Records,
			Bytes:     r.Bytes,
		}
	}
	return exportlog.Append(path, entries)
}

func buildSink(ctx context.Context, cfg config.ExportConfig, stdout io.Writer) (export.Sink, error) {
	reg := export.NewRegistry()
	reg.Register(&export.DirSink{Dir: cfg.Dir})
	reg.Register(&export.WriterSink{W: stdout})

	if cfg.Sink == "s3" {
		s3Sink, err := export.NewS3Sink(ctx, cfg.S3.Bucket, cfg.S3.Prefix, cfg.S3.Region)
		if err != nil {
			return nil, err
		}
		reg.Register(s3Sink)
	}

	sink := reg.Get(cfg.Sink)
	if sink == nil {
		return nil, fmt.Errorf("unknown sink %q (want dir, stdout or s3)", cfg.Sink)
	}
	return sink, nil
}
