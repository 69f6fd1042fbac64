package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type Config struct {
	Catalog      string        `mapstructure:"catalog"`
	Applications string        `mapstructure:"applications"`
	State        string        `mapstructure:"state"`
	Cache        string        `mapstructure:"cache"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetry     int           `mapstructure:"max-retry"`
	LogLevel     string        `mapstructure:"log-level"`
}

type directories interface {
	HomeDirectory() string
	ConfigDirectory() string
	CacheDirectory() string
}

const configFilename = "keg.toml"

func bindFlags(command *cobra.Command, environment directories) {
	flags := command.PersistentFlags()
	flags.String("config",
		filepath.Join(environment.ConfigDirectory(), configFilename),
		"Path to an optional TOML config file.",
	)
	flags.String("catalog",
		filepath.Join(environment.ConfigDirectory(), "catalog"),
		"Directory of package manifests (<identifier>.json, .toml or .yaml).",
	)
	flags.String("applications",
		defaultApplicationsDirectory(environment),
		"Directory that install targets are placed into.",
	)
	flags.String("state",
		filepath.Join(environment.ConfigDirectory(), "installed"),
		"Directory holding one record per installed package.",
	)
	flags.String("cache",
		environment.CacheDirectory(),
		"Directory that downloaded artifacts are kept in.",
	)
	flags.Duration("timeout",
		time.Minute*10,
		"Deadline for a single download or live check.",
	)
	flags.Int("max-retry",
		5,
		"How many times to retry attempts to download packages.",
	)
	flags.String("log-level",
		"info",
		"One of debug, info, warn, error.",
	)
}

// loadConfig layers flags over KEG_* environment variables over the config
// file over flag defaults.
func loadConfig(command *cobra.Command) (config Config, err error) {
	v := viper.New()
	v.SetEnvPrefix("KEG")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err = v.BindPFlags(command.Flags()); err != nil {
		return config, err
	}

	path := v.GetString("config")
	if _, statErr := os.Stat(path); statErr == nil {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err = v.ReadInConfig(); err != nil {
			return config, fmt.Errorf("reading config file %q: %w", path, err)
		}
	} else if command.Flags().Changed("config") {
		return config, fmt.Errorf("config file %q: %w", path, statErr)
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("parsing config: %w", err)
	}
	return config, config.validate()
}

func (this Config) validate() error {
	if this.Catalog == "" {
		return errors.New("catalog directory is required")
	}
	if this.Applications == "" {
		return errors.New("applications directory is required")
	}
	if this.State == "" {
		return errors.New("state directory is required")
	}
	if this.Cache == "" {
		return errors.New("cache directory is required")
	}
	if this.MaxRetry < 0 {
		return errors.New("max-retry must not be negative")
	}
	return nil
}

func defaultApplicationsDirectory(environment directories) string {
	if runtime.GOOS == "darwin" {
		return "/Applications"
	}
	return filepath.Join(environment.HomeDirectory(), "Applications")
}
