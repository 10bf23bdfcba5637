// Package commands implements CLI command handlers for topicstats.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Sumatoshi-tech/topicstats/pkg/config"
	"github.com/Sumatoshi-tech/topicstats/pkg/dashboard"
	"github.com/Sumatoshi-tech/topicstats/pkg/observability"
	"github.com/Sumatoshi-tech/topicstats/pkg/report"
	"github.com/Sumatoshi-tech/topicstats/pkg/stats"
	"github.com/Sumatoshi-tech/topicstats/pkg/version"
)

// Root persistent flag names.
const (
	FlagVerbose = "verbose"
	FlagQuiet   = "quiet"
)

// stdoutPath selects standard output as the report destination.
const stdoutPath = "-"

// spanEmit names the span around report serialization.
const spanEmit = "topicstats.emit"

// Standard OTel exporter env vars honored in addition to the config file.
const (
	envOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOTLPHeaders  = "OTEL_EXPORTER_OTLP_HEADERS"
)

type observabilityInit func(observability.Config) (observability.Providers, error)

// BuildCommand holds flags and dependencies of the build command.
type BuildCommand struct {
	configPath  string
	events      string
	metadataDir string
	output      string
	format      string
	constName   string
	metricsFile string
	silent      bool
	noColor     bool

	initObservability observabilityInit
	newRunID          func() string
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	return newBuildCommandWithDeps(observability.Init, uuid.NewString)
}

func newBuildCommandWithDeps(initObs observabilityInit, newRunID func() string) *cobra.Command {
	bc := &BuildCommand{
		initObservability: initObs,
		newRunID:          newRunID,
	}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Aggregate the event log into dashboard data",
		Long: `Aggregate the exported event log and topic metadata into one dashboard
payload. Settings come from .topicstats.yaml, TOPICSTATS_* environment
variables and the flags below, in increasing priority.

Examples:
  topicstats build
  topicstats build --events export.csv --metadata topics/ -o dashboard_data.js
  topicstats build --format text -o -
  topicstats build --format json -o report.json.lz4`,
		Args: cobra.NoArgs,
		RunE: bc.run,
	}

	cmd.Flags().StringVar(&bc.configPath, "config", "", "Config file (default: .topicstats.yaml in CWD or $HOME)")
	cmd.Flags().StringVar(&bc.events, "events", config.DefaultEventsPath, "Event log CSV path")
	cmd.Flags().StringVar(&bc.metadataDir, "metadata", config.DefaultMetadataDir, "Topic metadata directory")
	cmd.Flags().StringVarP(&bc.output, "output", "o", config.DefaultOutputPath,
		"Output path ('-' for stdout, '.lz4' suffix compresses)")
	cmd.Flags().StringVar(&bc.format, "format", config.DefaultOutputFormat,
		"Output format: "+strings.Join(config.Formats, ", "))
	cmd.Flags().StringVar(&bc.constName, "const-name", config.DefaultConstName, "Constant name of the js format")
	cmd.Flags().StringVar(&bc.metricsFile, "metrics-file", "", "Write run metrics in Prometheus text format to this file")
	cmd.Flags().BoolVar(&bc.silent, "silent", false, "Disable progress output")
	cmd.Flags().BoolVar(&bc.noColor, "no-color", false, "Disable colored text output")

	return cmd
}

func (bc *BuildCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(bc.configPath)
	if err != nil {
		return err
	}

	bc.applyFlags(cmd, cfg)

	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	providers, err := bc.initObservability(bc.observabilityConfig(cmd, cfg))
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	runErr := bc.execute(cmd.Context(), cmd, cfg, providers)

	return errors.Join(runErr, providers.Shutdown(context.WithoutCancel(contextOrBackground(cmd.Context()))))
}

// applyFlags overrides config values with flags set on the command line.
func (bc *BuildCommand) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	overrides := []struct {
		flag  string
		value string
		dst   *string
	}{
		{"events", bc.events, &cfg.Input.Events},
		{"metadata", bc.metadataDir, &cfg.Input.MetadataDir},
		{"output", bc.output, &cfg.Output.Path},
		{"format", bc.format, &cfg.Output.Format},
		{"const-name", bc.constName, &cfg.Output.ConstName},
		{"metrics-file", bc.metricsFile, &cfg.Telemetry.MetricsFile},
	}

	for _, o := range overrides {
		if cmd.Flags().Changed(o.flag) {
			*o.dst = o.value
		}
	}

	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
}

func (bc *BuildCommand) observabilityConfig(cmd *cobra.Command, cfg *config.Config) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.RunID = bc.newRunID()
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv(envOTLPHeaders))
	obsCfg.MetricsFile = cfg.Telemetry.MetricsFile
	obsCfg.LogJSON = cfg.Logging.JSON
	obsCfg.LogWriter = cmd.ErrOrStderr()

	if obsCfg.OTLPEndpoint == "" {
		obsCfg.OTLPEndpoint = os.Getenv(envOTLPEndpoint)
	}

	// Validate has already rejected unknown levels.
	obsCfg.LogLevel, _ = cfg.LogLevel()

	switch {
	case flagSet(cmd, FlagVerbose):
		obsCfg.LogLevel = slog.LevelDebug
	case flagSet(cmd, FlagQuiet):
		obsCfg.LogLevel = slog.LevelError
	}

	return obsCfg
}

func (bc *BuildCommand) execute(
	ctx context.Context, cmd *cobra.Command, cfg *config.Config, providers observability.Providers,
) error {
	ctx = contextOrBackground(ctx)
	logger := providers.Logger

	metrics, err := observability.NewAggregationMetrics(providers.Meter)
	if err != nil {
		logger.WarnContext(ctx, "metrics disabled", "error", err)
	}

	codec, err := report.CodecFor(cfg.Output.Format, report.CodecOptions{
		ConstName: cfg.Output.ConstName,
		NoColor:   bc.noColor,
	})
	if err != nil {
		return err
	}

	// Validate has already parsed the buffer size.
	readBuffer, _ := cfg.ReadBufferBytes()

	bc.progress(cmd, "building dashboard data from %s", cfg.Input.Events)

	rep, summary, err := dashboard.NewBuilder(providers.Tracer, logger).Build(ctx, dashboard.Inputs{
		Events:         cfg.Input.Events,
		MetadataDir:    cfg.Input.MetadataDir,
		MetadataSuffix: cfg.Input.MetadataSuffix,
		ReadBuffer:     readBuffer,
		Policy: stats.Policy{
			ActiveDays:      cfg.Report.ActiveDays,
			OccasionalDays:  cfg.Report.OccasionalDays,
			TopContributors: cfg.Report.TopContributors,
		},
	})

	metrics.RecordRun(ctx, summary.RunStats())

	if err != nil {
		return err
	}

	ctx, span := providers.Tracer.Start(ctx, spanEmit)
	defer span.End()

	span.SetAttributes(
		attribute.String("topicstats.output", cfg.Output.Path),
		attribute.String("topicstats.format", cfg.Output.Format),
	)

	if cfg.Output.Path == stdoutPath {
		return report.Write(cmd.OutOrStdout(), false, codec, rep)
	}

	written, err := report.WriteFile(cfg.Output.Path, codec, rep)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("write %s: %w", cfg.Output.Path, err)
	}

	logger.DebugContext(ctx, "report written", "path", cfg.Output.Path, "bytes", written)

	bc.progress(cmd, "complete: %s users, %s topics written to %s (%s)",
		humanize.Comma(int64(summary.Users)),
		humanize.Comma(int64(summary.Topics)),
		cfg.Output.Path,
		humanize.Bytes(uint64(written)),
	)

	return nil
}

func (bc *BuildCommand) progress(cmd *cobra.Command, format string, args ...any) {
	if bc.silent || flagSet(cmd, FlagQuiet) {
		return
	}

	writeLine(cmd.ErrOrStderr(), format, args...)
}

func writeLine(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}

// flagSet reports whether a boolean flag, possibly inherited from the root
// command, is present and true.
func flagSet(cmd *cobra.Command, name string) bool {
	flag := cmd.Flags().Lookup(name)
	if flag == nil {
		flag = cmd.InheritedFlags().Lookup(name)
	}

	return flag != nil && flag.Value.String() == "true"
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}

	return ctx
}
