// Package config loads topicstats settings from defaults, an optional YAML
// file and TOPICSTATS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
)

// Sentinel validation errors.
var (
	ErrInvalidActiveDays      = errors.New("active days must be positive")
	ErrInvalidOccasionalDays  = errors.New("occasional days must exceed active days")
	ErrInvalidTopContributors = errors.New("top contributors must be positive")
	ErrInvalidFormat          = errors.New("unsupported output format")
	ErrInvalidReadBuffer      = errors.New("invalid read buffer size")
	ErrInvalidLogLevel        = errors.New("invalid log level")
	ErrEmptyMetadataSuffix    = errors.New("metadata suffix must not be empty")
)

// Formats lists the accepted output.format values.
var Formats = []string{"js", "json", "yaml", "text"}

// Config holds all topicstats settings.
type Config struct {
	Input     InputConfig     `mapstructure:"input"`
	Output    OutputConfig    `mapstructure:"output"`
	Report    ReportConfig    `mapstructure:"report"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// InputConfig locates the event log and the metadata documents.
type InputConfig struct {
	Events         string `mapstructure:"events"`
	MetadataDir    string `mapstructure:"metadata_dir"`
	MetadataSuffix string `mapstructure:"metadata_suffix"`
	ReadBuffer     string `mapstructure:"read_buffer"`
}

// OutputConfig controls where and how the report is written.
type OutputConfig struct {
	Path      string `mapstructure:"path"`
	Format    string `mapstructure:"format"`
	ConstName string `mapstructure:"const_name"`
}

// ReportConfig holds the status thresholds and ranking size.
type ReportConfig struct {
	ActiveDays      int `mapstructure:"active_days"`
	OccasionalDays  int `mapstructure:"occasional_days"`
	TopContributors int `mapstructure:"top_contributors"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds trace and metric export settings.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	MetricsFile  string `mapstructure:"metrics_file"`
}

// ReadBufferBytes returns the parsed input.read_buffer size.
func (c *Config) ReadBufferBytes() (int, error) {
	size, err := humanize.ParseBytes(c.Input.ReadBuffer)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidReadBuffer, err)
	}

	if size == 0 || size > uint64(maxReadBuffer) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidReadBuffer, c.Input.ReadBuffer)
	}

	return int(size), nil
}

// maxReadBuffer caps the read buffer at 1 GiB.
const maxReadBuffer = 1 << 30

// LogLevel returns the slog level named by logging.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(c.Logging.Level))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	return level, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Report.ActiveDays <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidActiveDays, c.Report.ActiveDays)
	}

	if c.Report.OccasionalDays <= c.Report.ActiveDays {
		return fmt.Errorf("%w: %d <= %d", ErrInvalidOccasionalDays, c.Report.OccasionalDays, c.Report.ActiveDays)
	}

	if c.Report.TopContributors <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTopContributors, c.Report.TopContributors)
	}

	if !slices.Contains(Formats, strings.ToLower(c.Output.Format)) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Output.Format)
	}

	if c.Input.MetadataSuffix == "" {
		return ErrEmptyMetadataSuffix
	}

	if _, err := c.ReadBufferBytes(); err != nil {
		return err
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}

	return nil
}
