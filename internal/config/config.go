// Package config loads reader settings from defaults, an optional config
// file and PDS3_ environment variables, using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/robert-malhotra/go-pds3/internal/diag"
)

const (
	// AppName is the application name.
	AppName = "pds3"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = ".pds3"
	// EnvPrefix prefixes every environment variable read.
	EnvPrefix = "PDS3"

	// DefaultLabelLimit is the number of bytes read when looking for an
	// attached label.
	DefaultLabelLimit = 1024000
)

// Config holds reader settings.
type Config struct {
	LabelLimit    int
	Debug         bool
	SearchPaths   []string
	FailureDir    string
	FailureFormat diag.Format
	LogLevel      log.Level
	SkipIgnored   bool
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		LabelLimit:    DefaultLabelLimit,
		FailureFormat: diag.FormatYAML,
		LogLevel:      log.WarnLevel,
		SkipIgnored:   true,
	}
}

// LoadOptions selects where configuration is read from.
type LoadOptions struct {
	// ConfigFile, when set, is read exclusively and must exist.
	ConfigFile string
	// Dirs are searched for .pds3.{yaml,toml,json} when ConfigFile is empty.
	// The home directory is used when Dirs is nil.
	Dirs []string
	// Fs is the file system config files are read from. Defaults to the OS.
	Fs afero.Fs
}

// Load reads the configuration. It returns the path of the config file that
// was used, or "" when only defaults and the environment applied.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()
	if opts.Fs != nil {
		v.SetFs(opts.Fs)
	}

	defaults := DefaultConfig()
	v.SetDefault("label_limit", defaults.LabelLimit)
	v.SetDefault("debug", defaults.Debug)
	v.SetDefault("search_paths", []string{})
	v.SetDefault("failure_dir", "")
	v.SetDefault("failure_format", string(defaults.FailureFormat))
	v.SetDefault("log_level", defaults.LogLevel.String())
	v.SetDefault("skip_ignored", defaults.SkipIgnored)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName(ConfigFileName)
		dirs := opts.Dirs
		if dirs == nil {
			if home, err := os.UserHomeDir(); err == nil {
				dirs = []string{home}
			}
		}
		for _, d := range dirs {
			v.AddConfigPath(d)
		}
	}

	resolved := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("reading config: %w", err)
		}
	} else {
		resolved = v.ConfigFileUsed()
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, "", err
	}
	return cfg, resolved, nil
}

// decode converts loosely typed values. Environment variables arrive as
// strings, so every field goes through cast.
func decode(v *viper.Viper) (*Config, error) {
	limit, err := cast.ToIntE(v.Get("label_limit"))
	if err != nil {
		return nil, fmt.Errorf("label_limit: %w", err)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("label_limit: must be positive, got %d", limit)
	}
	debug, err := cast.ToBoolE(v.Get("debug"))
	if err != nil {
		return nil, fmt.Errorf("debug: %w", err)
	}
	skip, err := cast.ToBoolE(v.Get("skip_ignored"))
	if err != nil {
		return nil, fmt.Errorf("skip_ignored: %w", err)
	}
	format, err := diag.ParseFormat(cast.ToString(v.Get("failure_format")))
	if err != nil {
		return nil, fmt.Errorf("failure_format: %w", err)
	}
	level, err := log.ParseLevel(cast.ToString(v.Get("log_level")))
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}

	return &Config{
		LabelLimit:    limit,
		Debug:         debug,
		SearchPaths:   stringList(v.Get("search_paths")),
		FailureDir:    cast.ToString(v.Get("failure_dir")),
		FailureFormat: format,
		LogLevel:      level,
		SkipIgnored:   skip,
	}, nil
}

// stringList accepts a list or a single string of OS path-list separated
// entries, as PDS3_SEARCH_PATHS is written.
func stringList(raw any) []string {
	if s, ok := raw.(string); ok {
		var out []string
		for _, p := range filepath.SplitList(s) {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return cast.ToStringSlice(raw)
}
