package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/fda-label-loader/internal/config"
	"github.com/pdiddy/fda-label-loader/internal/httputil"
	"github.com/pdiddy/fda-label-loader/internal/logging"
	"github.com/pdiddy/fda-label-loader/internal/openfda"
	"github.com/pdiddy/fda-label-loader/internal/pipeline"
	"github.com/pdiddy/fda-label-loader/internal/telemetry"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Pull drug labels from openFDA and load them into the database",
	Long: `Load connects to the database, pulls every page of label records matching
the search expression, and inserts them into the destination table in a single
transaction. Any API or insert failure rolls the whole load back unless
--load-partial is set.

Per-page progress is printed to stdout; details go to a timestamped log file
under the configured log directory. The command exits zero after a failed run
unless --strict is set.`,
	SilenceUsage: true,
	RunE:         runLoad,
}

// loadFlagKeys maps load flags to the config keys they override.
var loadFlagKeys = map[string]string{
	"search":       "source.search",
	"page-size":    "source.page_size",
	"table":        "database.table",
	"flush-every":  "database.flush_every",
	"report":       "report.path",
	"metrics-file": "metrics.path",
}

func init() {
	f := loadCmd.Flags()
	f.String("search", "", `openFDA search expression (default openfda.substance_name:"ibuprofen")`)
	f.Int("page-size", 0, "records per page request (default 100, max 1000)")
	f.String("table", "", "destination table (default fda_drug_labels_safe)")
	f.Int("flush-every", 0, "insert buffered rows every N pages; 0 inserts once at the end")
	f.Bool("dry-run", false, "pull every page but do not touch the database")
	f.Bool("load-partial", false, "commit rows pulled before an API failure instead of rolling back")
	f.Bool("strict", false, "exit non-zero when the run does not load every record")
	f.String("report", "", "write a YAML run report to this path")
	f.String("metrics-file", "", "write run metrics in Prometheus textfile format to this path")

	bindFlags(f, loadFlagKeys)
	rootCmd.AddCommand(loadCmd)
}

func bindFlags(f *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := viper.BindPFlag(key, f.Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}
}

func runLoad(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	loadPartial, _ := cmd.Flags().GetBool("load-partial")
	strict, _ := cmd.Flags().GetBool("strict")

	cfg, err := config.Load(viper.GetViper(), loadedSecrets, nil)
	if err != nil {
		return err
	}
	validate := config.Validate
	if dryRun {
		validate = config.ValidateSource
	}
	if err := validate(cfg); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log, time.Now(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logger.Close()
	log := logger.Logger

	log.Info("run started",
		zap.String("search", cfg.Source.Search),
		zap.String("driver", string(cfg.Database.Driver)),
		zap.String("table", cfg.Database.Table),
		zap.Int("page_size", cfg.Source.PageSize),
		zap.Bool("dry_run", dryRun),
	)

	rec := telemetry.NewRecorder(log)
	gate := httputil.NewGate(
		&http.Client{Timeout: cfg.HTTP.Timeout},
		httputil.Policy{MaxAttempts: cfg.Retry.MaxAttempts, BaseDelay: cfg.Retry.BaseDelay},
		rec,
	)
	client := openfda.NewClient(gate, cfg.Source, cfg.HTTP)
	runner := pipeline.NewRunner(cfg, client, rec, log, cmd.OutOrStdout())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := runner.Run(ctx, pipeline.RunOptions{DryRun: dryRun, LoadPartial: loadPartial})
	log.Info("run finished",
		zap.String("state", string(report.State)),
		zap.Int("total", report.Total),
		zap.Int("pulled", report.Pulled),
		zap.Int("skipped", report.Skipped),
		zap.Int("loaded", report.Loaded),
		zap.Duration("elapsed", report.Finished.Sub(report.Started)),
	)

	if cfg.MetricsPath != "" {
		if err := rec.WriteTextfile(cfg.MetricsPath); err != nil {
			log.Warn("metrics write failed", zap.String("path", cfg.MetricsPath), zap.Error(err))
		}
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Log file: %s\n", logger.Path)

	if runErr != nil && strict {
		return runErr
	}
	return nil
}
