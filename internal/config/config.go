// Package config resolves reqtrace defaults from an optional reqtrace.yaml
// file and REQTRACE_* environment variables. Precedence is flags over
// environment over config file over built-in defaults; commands consume
// these values only as flag defaults, so an explicit flag always wins.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config carries the resolvable pipeline defaults.
type Config struct {
	// StorePath is the SQLite trace store location.
	StorePath string `mapstructure:"store_path"`
	// ScriptsDir receives generated test skeleton files. Empty disables
	// script emission.
	ScriptsDir string `mapstructure:"scripts_dir"`
	// OutputPath is where the rendered document is written.
	OutputPath string `mapstructure:"output_path"`
	// SkipDirs extends the scanner's built-in directory skip list.
	SkipDirs []string `mapstructure:"skip_dirs"`
}

// Load reads reqtrace.yaml from the working directory when present and
// applies REQTRACE_* environment overrides. A missing config file is not
// an error; a malformed one is.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("store_path", "trace.db")
	v.SetDefault("scripts_dir", "tests")
	v.SetDefault("output_path", "SDD.md")
	v.SetDefault("skip_dirs", []string{})

	v.SetConfigName("reqtrace")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("REQTRACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
