package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".topicstats"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for topicstats settings.
const envPrefix = "TOPICSTATS"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("input.events", DefaultEventsPath)
	viperCfg.SetDefault("input.metadata_dir", DefaultMetadataDir)
	viperCfg.SetDefault("input.metadata_suffix", DefaultMetadataSuffix)
	viperCfg.SetDefault("input.read_buffer", DefaultReadBuffer)

	viperCfg.SetDefault("output.path", DefaultOutputPath)
	viperCfg.SetDefault("output.format", DefaultOutputFormat)
	viperCfg.SetDefault("output.const_name", DefaultConstName)

	viperCfg.SetDefault("report.active_days", DefaultActiveDays)
	viperCfg.SetDefault("report.occasional_days", DefaultOccasionalDays)
	viperCfg.SetDefault("report.top_contributors", DefaultTopContributors)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.metrics_file", "")
}
