package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sparkflow-dev/sparkflow/internal/buildinfo"
	"github.com/sparkflow-dev/sparkflow/internal/config"
	"github.com/sparkflow-dev/sparkflow/internal/logging"
	"github.com/sparkflow-dev/sparkflow/internal/pipeline"
	"github.com/sparkflow-dev/sparkflow/internal/upstream"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath  string
	logLevel    string
	upstreamURL string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "sparkflow",
		Short:   "Demand forecast and inventory transfer exports",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", config.FileName, "config file")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	pf.StringVar(&opts.upstreamURL, "upstream", "", "optimization service base URL (overrides config)")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newExportCommand(opts))
	rootCmd.AddCommand(newSummaryCommand(opts))
	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newHistoryCommand(opts))

	return rootCmd
}

// load resolves config (file, .env, environment, then flags) and builds the
// logger, which writes to the command's stderr.
func (o *globalOptions) load(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.upstreamURL != "" {
		cfg.Upstream.BaseURL = o.upstreamURL
	}

	log, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Out:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("configuring logger: %w", err)
	}
	return cfg, log, nil
}

func newPipeline(cfg *config.Config, log zerolog.Logger) (*pipeline.Pipeline, error) {
	client, err := upstream.NewClient(upstream.Options{
		BaseURL:      cfg.Upstream.BaseURL,
		ForecastPath: cfg.Upstream.ForecastPath,
		TransferPath: cfg.Upstream.TransferPath,
		Timeout:      cfg.Upstream.Timeout.Std(),
		RetryMax:     cfg.Upstream.RetryMax,
	}, log)
	if err != nil {
		return nil, err
	}
	return pipeline.New(client, log), nil
}
