// Package observability wires OpenTelemetry tracing and metrics, the
// Prometheus textfile export, and structured logging for topicstats.
package observability

import (
	"io"
	"log/slog"
)

// AppMode identifies how the binary was launched.
type AppMode string

const (
	// ModeCLI is an interactive command invocation.
	ModeCLI AppMode = "cli"
	// ModeBatch is an unattended run, such as a cron job.
	ModeBatch AppMode = "batch"
)

const (
	// defaultServiceName is the default OTel service name.
	defaultServiceName = "topicstats"

	// defaultShutdownTimeoutSec is the default shutdown timeout in seconds.
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the semantic version of the running binary.
	ServiceVersion string

	// Environment is the deployment environment (e.g. "production", "dev").
	Environment string

	// Mode identifies how the binary was launched.
	Mode AppMode

	// RunID tags every log record of one run. Empty omits the attribute.
	RunID string

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables OTLP export.
	OTLPEndpoint string

	// OTLPHeaders are additional gRPC metadata headers for the OTLP exporters.
	OTLPHeaders map[string]string

	// OTLPInsecure disables TLS for the OTLP gRPC connection.
	OTLPInsecure bool

	// SampleRatio is the trace sampling ratio. Zero samples everything.
	SampleRatio float64

	// MetricsFile receives the metrics in Prometheus text format on shutdown.
	// Empty disables the export.
	MetricsFile string

	// LogLevel controls the minimum slog severity.
	LogLevel slog.Level

	// LogJSON enables JSON-formatted log output.
	LogJSON bool

	// LogWriter receives log output. Nil means stderr.
	LogWriter io.Writer

	// ShutdownTimeoutSec is the maximum seconds to wait for flush on shutdown.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
