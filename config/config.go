// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config holds the settings of the zfsinfo tool. Values come from
// the defaults, then an optional YAML file, then an optional env file, and
// finally the command line.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-envparse"
	"github.com/lf-edge/eve/pkg/zfsinfo/base"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// SourceKind selects where pools are read from.
type SourceKind string

const (
	// SourceCommands runs the zpool and zfs commands
	SourceCommands SourceKind = "zcli"
	// SourceNative calls libzfs directly
	SourceNative SourceKind = "native"
	// SourceFixture reads a YAML snapshot
	SourceFixture SourceKind = "fixture"
)

// Output formats
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Env file keys
const (
	EnvSource      = "ZFSINFO_SOURCE"
	EnvLogLevel    = "ZFSINFO_LOG_LEVEL"
	EnvFixture     = "ZFSINFO_FIXTURE"
	EnvStrictVDevs = "ZFSINFO_STRICT_VDEVS"
	EnvFailFast    = "ZFSINFO_FAIL_FAST"
	EnvZpoolBin    = "ZFSINFO_ZPOOL_BIN"
	EnvZfsBin      = "ZFSINFO_ZFS_BIN"
	EnvTimeout     = "ZFSINFO_TIMEOUT"
	EnvOutput      = "ZFSINFO_OUTPUT"
)

// Config of one zfsinfo run
type Config struct {
	Source      SourceKind    `yaml:"source"`
	Fixture     string        `yaml:"fixture"`
	LogLevel    string        `yaml:"log_level"`
	StrictVDevs bool          `yaml:"strict_vdevs"`
	FailFast    bool          `yaml:"fail_fast"`
	ZpoolBin    string        `yaml:"zpool_bin"`
	ZfsBin      string        `yaml:"zfs_bin"`
	Timeout     time.Duration `yaml:"timeout"`
	Output      string        `yaml:"output"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Source:   SourceCommands,
		LogLevel: "info",
		ZpoolBin: "zpool",
		ZfsBin:   "zfs",
		Timeout:  base.DefaultExecTimeout,
		Output:   OutputJSON,
	}
}

// LoadFile overlays the settings present in a YAML file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "LoadFile(%s)", path)
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return errors.Wrapf(err, "LoadFile(%s)", path)
	}
	return nil
}

// LoadEnvFile overlays the ZFSINFO_ variables of an env file.
func (c *Config) LoadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "LoadEnvFile(%s)", path)
	}
	defer f.Close()
	env, err := envparse.Parse(f)
	if err != nil {
		return errors.Wrapf(err, "LoadEnvFile(%s)", path)
	}
	return errors.Wrapf(c.ApplyEnv(env), "LoadEnvFile(%s)", path)
}

// ApplyEnv overlays the ZFSINFO_ keys found in env. Other keys are ignored.
func (c *Config) ApplyEnv(env map[string]string) error {
	for key, value := range env {
		switch key {
		case EnvSource:
			c.Source = SourceKind(value)
		case EnvLogLevel:
			c.LogLevel = value
		case EnvFixture:
			c.Fixture = value
		case EnvZpoolBin:
			c.ZpoolBin = value
		case EnvZfsBin:
			c.ZfsBin = value
		case EnvOutput:
			c.Output = value
		case EnvStrictVDevs, EnvFailFast:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return errors.Wrapf(err, "%s", key)
			}
			if key == EnvStrictVDevs {
				c.StrictVDevs = b
			} else {
				c.FailFast = b
			}
		case EnvTimeout:
			d, err := time.ParseDuration(value)
			if err != nil {
				return errors.Wrapf(err, "%s", key)
			}
			c.Timeout = d
		}
	}
	return nil
}

// Validate checks that the settings can be acted upon.
func (c Config) Validate() error {
	switch c.Source {
	case SourceCommands, SourceNative:
	case SourceFixture:
		if c.Fixture == "" {
			return errors.New("fixture source needs a fixture path")
		}
	default:
		return errors.Errorf("unknown source %q", c.Source)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log level")
	}
	if c.Timeout <= 0 {
		return errors.Errorf("timeout must be positive, not %s", c.Timeout)
	}
	switch c.Output {
	case OutputJSON, OutputYAML:
	default:
		return errors.Errorf("unknown output format %q", c.Output)
	}
	return nil
}

// Load applies the optional config and env files over the defaults.
// An empty path skips that layer.
func Load(configPath, envPath string) (Config, error) {
	c := Default()
	if configPath != "" {
		if err := c.LoadFile(configPath); err != nil {
			return c, err
		}
	}
	if envPath != "" {
		if err := c.LoadEnvFile(envPath); err != nil {
			return c, err
		}
	}
	return c, nil
}
