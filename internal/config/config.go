// Package config resolves settings for the filebed command line tools from
// a YAML file, the FILEBED_* environment and command line flags, in that
// order of precedence (flags win).
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/filebed/filebed_sdk_go/pkg/auth"
	"github.com/filebed/filebed_sdk_go/pkg/filebed"
	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "~/.filebed.yaml"

// Flag names shared by the CLI and the sandbox.
const (
	FlagConfig   = "config"
	FlagAddress  = "address"
	FlagSecret   = "secret"
	FlagToken    = "token"
	FlagFixture  = "fixture"
	FlagTimeout  = "timeout"
	FlagYes      = "yes"
	FlagLogLevel = "log-level"
)

// Config holds the resolved settings.
type Config struct {
	Address   string        `yaml:"address"`
	Secret    string        `yaml:"secret"`
	Token     string        `yaml:"token"`
	Fixture   bool          `yaml:"fixture"`
	Timeout   time.Duration `yaml:"timeout"`
	AssumeYes bool          `yaml:"yes"`
	LogLevel  string        `yaml:"log_level"`

	Sandbox Sandbox `yaml:"sandbox"`
}

// Sandbox holds the settings of the local sandbox server.
type Sandbox struct {
	Addr          string        `yaml:"addr"`
	Seed          string        `yaml:"seed"`
	Latency       time.Duration `yaml:"latency"`
	Fail          string        `yaml:"fail"`
	LastFileCount int           `yaml:"last_file_count"`
}

// Load reads the YAML file at path. An empty path reads DefaultPath and
// tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("config: expand %s: %w", path, err)
	}

	cfg := &Config{}
	raw, err := os.ReadFile(expanded)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", expanded, err)
	}
	if err := yaml.UnmarshalStrict(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", expanded, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields with the FILEBED_* variables that are set.
func (c *Config) ApplyEnv() error {
	if v := strings.TrimSpace(os.Getenv(filebed.EnvAPIURL)); v != "" {
		c.Address = v
	}
	if v := os.Getenv(filebed.EnvSecret); v != "" {
		c.Secret = v
	}
	if v := strings.TrimSpace(os.Getenv(filebed.EnvToken)); v != "" {
		c.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(filebed.EnvLocalFixture)); v != "" {
		fixture, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid %s value %q", filebed.EnvLocalFixture, v)
		}
		c.Fixture = fixture
	}
	return nil
}

// RegisterFlags adds the client flags to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String(FlagConfig, "", "config file (default "+DefaultPath+")")
	flags.String(FlagAddress, "", "file bed base URL")
	flags.String(FlagSecret, "", "shared secret used to sign request tokens")
	flags.String(FlagToken, "", "pre-issued bearer token (takes precedence over --secret)")
	flags.Bool(FlagFixture, false, "append .json to every request path")
	flags.Duration(FlagTimeout, 0, "request timeout (default 60m)")
	flags.BoolP(FlagYes, "y", false, "answer yes to every confirmation")
	flags.String(FlagLogLevel, "warning", "log level (trace, debug, info, warning, error)")
}

// ApplyFlags overrides fields with the flags that were set explicitly.
func (c *Config) ApplyFlags(flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case FlagAddress:
			c.Address, err = flags.GetString(FlagAddress)
		case FlagSecret:
			c.Secret, err = flags.GetString(FlagSecret)
		case FlagToken:
			c.Token, err = flags.GetString(FlagToken)
		case FlagFixture:
			c.Fixture, err = flags.GetBool(FlagFixture)
		case FlagTimeout:
			c.Timeout, err = flags.GetDuration(FlagTimeout)
		case FlagYes:
			c.AssumeYes, err = flags.GetBool(FlagYes)
		case FlagLogLevel:
			c.LogLevel, err = flags.GetString(FlagLogLevel)
		}
	})
	if err != nil {
		return fmt.Errorf("config: read flags: %w", err)
	}
	return nil
}

// Resolve loads the file named by the --config flag, then applies the
// environment and the explicit flags.
func Resolve(flags *pflag.FlagSet) (*Config, error) {
	path, err := flags.GetString(FlagConfig)
	if err != nil {
		return nil, fmt.Errorf("config: read flags: %w", err)
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.ApplyFlags(flags); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TokenSource returns the configured token source: the static token when
// set, otherwise a JWT signer over the secret. It returns nil when both
// are empty.
func (c *Config) TokenSource() auth.TokenSource {
	if strings.TrimSpace(c.Token) != "" {
		return auth.StaticToken(c.Token)
	}
	if c.Secret != "" {
		return auth.NewJWTSource(c.Secret)
	}
	return nil
}

// ClientOptions translates the configuration into filebed options.
func (c *Config) ClientOptions() []filebed.Option {
	opts := []filebed.Option{
		filebed.WithLocalFixtureMode(c.Fixture),
		filebed.WithTimeout(c.Timeout),
	}
	if ts := c.TokenSource(); ts != nil {
		opts = append(opts, filebed.WithTokenSource(ts))
	}
	return opts
}

// NewLogger builds a text logger writing to out at the configured level.
func (c *Config) NewLogger(out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	level := c.LogLevel
	if level == "" {
		level = logrus.WarnLevel.String()
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger.SetLevel(lvl)
	return logger, nil
}
