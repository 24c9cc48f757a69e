// Package config defines the configuration of portfolio-pilot and loads it
// from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/iwvelando/portfolio-pilot/internal/tickers"
	"github.com/iwvelando/portfolio-pilot/pkg/constants"
	"github.com/iwvelando/portfolio-pilot/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for portfolio-pilot.
type Configuration struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Optimizer OptimizerConfig `mapstructure:"optimizer" yaml:"optimizer"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Defaults  DefaultsConfig  `mapstructure:"defaults" yaml:"defaults"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging,omitempty"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output,omitempty"`
}

// ServerConfig defines runtime parameters for the HTTP server.
type ServerConfig struct {
	Address          string `mapstructure:"address" yaml:"address"`
	MaxBodySize      string `mapstructure:"maxBodySize" yaml:"maxBodySize"`
	SecureCookies    bool   `mapstructure:"secureCookies" yaml:"secureCookies"`
	maxBodySizeBytes int64
}

// OptimizerConfig locates the optimization service.
type OptimizerConfig struct {
	URL                  string        `mapstructure:"url" yaml:"url"`
	Path                 string        `mapstructure:"path" yaml:"path"`
	Timeout              time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxResponseSize      string        `mapstructure:"maxResponseSize" yaml:"maxResponseSize"`
	maxResponseSizeBytes int64
}

// SessionConfig controls browser session retention.
type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// DefaultsConfig seeds new sessions.
type DefaultsConfig struct {
	Tickers    []string `mapstructure:"tickers" yaml:"tickers"`
	Investment string   `mapstructure:"investment" yaml:"investment"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level,omitempty"`           // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format,omitempty"`         // json, console
	OutputFile string `mapstructure:"outputFile" yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format,omitempty"` // pretty, csv, yaml, json
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("server.maxBodySize", fmt.Sprintf("%d", constants.DefaultMaxBodySizeBytes))
	v.SetDefault("server.secureCookies", false)
	v.SetDefault("optimizer.url", constants.DefaultOptimizerURL)
	v.SetDefault("optimizer.path", constants.DefaultOptimizerPath)
	v.SetDefault("optimizer.timeout", constants.DefaultOptimizerTimeout)
	v.SetDefault("optimizer.maxResponseSize", fmt.Sprintf("%d", constants.DefaultMaxResponseSizeBytes))
	v.SetDefault("session.ttl", constants.DefaultSessionTTL)
	v.SetDefault("defaults.tickers", constants.DefaultTickers)
	v.SetDefault("defaults.investment", constants.DefaultInvestment)
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
}

// LoadConfiguration loads the YAML configuration at configPath. A missing file
// (or an empty path) yields the defaults; environment variables prefixed with
// PORTFOLIO_PILOT_ override both, e.g. PORTFOLIO_PILOT_OPTIMIZER_URL.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file, %w", err)
		}
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	if err := configuration.normalize(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

func (c *Configuration) normalize() error {
	if strings.TrimSpace(c.Server.Address) == "" {
		c.Server.Address = constants.DefaultServerAddress
	}

	size, err := ParseSize(c.Server.MaxBodySize, constants.DefaultMaxBodySizeBytes)
	if err != nil {
		return fmt.Errorf("server.maxBodySize: %w", err)
	}
	c.Server.maxBodySizeBytes = size

	size, err = ParseSize(c.Optimizer.MaxResponseSize, constants.DefaultMaxResponseSizeBytes)
	if err != nil {
		return fmt.Errorf("optimizer.maxResponseSize: %w", err)
	}
	c.Optimizer.maxResponseSizeBytes = size

	c.Optimizer.URL = strings.TrimSpace(c.Optimizer.URL)
	if err := validation.ValidateServiceURL(c.Optimizer.URL); err != nil {
		return err
	}
	if c.Optimizer.Timeout <= 0 {
		c.Optimizer.Timeout = constants.DefaultOptimizerTimeout
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = constants.DefaultSessionTTL
	}

	c.Defaults.Tickers = tickers.New(c.Defaults.Tickers...).Symbols()
	c.Defaults.Investment = strings.TrimSpace(c.Defaults.Investment)

	if err := validation.ValidateLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if err := validation.ValidateLogFormat(c.Logging.Format); err != nil {
		return err
	}
	if c.Output.Format == "" {
		c.Output.Format = constants.OutputFormatPretty
	}
	return validation.ValidateOutputFormat(c.Output.Format)
}

// MaxBodySizeBytes returns the parsed request body limit.
func (s ServerConfig) MaxBodySizeBytes() int64 {
	return s.maxBodySizeBytes
}

// SetMaxBodySizeBytes overrides the request body limit.
func (s *ServerConfig) SetMaxBodySizeBytes(size int64) {
	if size > 0 {
		s.maxBodySizeBytes = size
		s.MaxBodySize = fmt.Sprintf("%d", size)
	}
}

// MaxResponseSizeBytes returns the parsed response size limit.
func (o OptimizerConfig) MaxResponseSizeBytes() int64 {
	return o.maxResponseSizeBytes
}
