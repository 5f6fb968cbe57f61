// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	assert.NoError(t, c.Validate())
	assert.Equal(t, SourceCommands, c.Source)
	assert.Equal(t, OutputJSON, c.Output)
}

func TestLoadLayers(t *testing.T) {
	yamlPath := writeFile(t, "zfsinfo.yaml", `
source: fixture
fixture: /var/lib/zfsinfo/pools.yaml
log_level: debug
timeout: 30s
`)
	envPath := writeFile(t, "zfsinfo.env", `
# overrides
ZFSINFO_LOG_LEVEL=warning
ZFSINFO_STRICT_VDEVS=true
ZFSINFO_ZPOOL_BIN="/usr/sbin/zpool"
UNRELATED=1
`)
	c, err := Load(yamlPath, envPath)
	require.NoError(t, err)
	assert.Equal(t, Config{
		Source:      SourceFixture,
		Fixture:     "/var/lib/zfsinfo/pools.yaml",
		LogLevel:    "warning",
		StrictVDevs: true,
		ZpoolBin:    "/usr/sbin/zpool",
		ZfsBin:      "zfs",
		Timeout:     30 * time.Second,
		Output:      OutputJSON,
	}, c)
	assert.NoError(t, c.Validate())
}

func TestLoadNoFiles(t *testing.T) {
	c, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.ErrorContains(t, err, "LoadFile")

	bad := writeFile(t, "bad.yaml", "sauce: zcli\n")
	_, err = Load(bad, "")
	assert.Error(t, err)

	env := writeFile(t, "bad.env", "ZFSINFO_TIMEOUT=soon\n")
	_, err = Load("", env)
	assert.ErrorContains(t, err, EnvTimeout)

	env = writeFile(t, "bad2.env", "ZFSINFO_FAIL_FAST=maybe\n")
	_, err = Load("", env)
	assert.ErrorContains(t, err, EnvFailFast)
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	require.NoError(t, c.ApplyEnv(map[string]string{
		EnvSource:   "native",
		EnvFailFast: "1",
		EnvTimeout:  "5s",
		EnvZfsBin:   "/sbin/zfs",
		EnvOutput:   "yaml",
		EnvFixture:  "",
	}))
	assert.Equal(t, SourceNative, c.Source)
	assert.True(t, c.FailFast)
	assert.False(t, c.StrictVDevs)
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.Equal(t, "/sbin/zfs", c.ZfsBin)
	assert.Equal(t, OutputYAML, c.Output)
}

func TestValidate(t *testing.T) {
	testMatrix := map[string]struct {
		mutate func(*Config)
		errMsg string
	}{
		"unknown source": {
			mutate: func(c *Config) { c.Source = "ssh" },
			errMsg: `unknown source "ssh"`,
		},
		"fixture without path": {
			mutate: func(c *Config) { c.Source = SourceFixture },
			errMsg: "fixture path",
		},
		"bad log level": {
			mutate: func(c *Config) { c.LogLevel = "loud" },
			errMsg: "log level",
		},
		"zero timeout": {
			mutate: func(c *Config) { c.Timeout = 0 },
			errMsg: "timeout",
		},
		"bad output": {
			mutate: func(c *Config) { c.Output = "xml" },
			errMsg: `unknown output format "xml"`,
		},
		"native": {
			mutate: func(c *Config) { c.Source = SourceNative },
		},
	}
	for testname, test := range testMatrix {
		t.Logf("Running test case %s", testname)
		c := Default()
		test.mutate(&c)
		err := c.Validate()
		if test.errMsg == "" {
			assert.NoError(t, err, testname)
		} else {
			assert.ErrorContains(t, err, test.errMsg, testname)
		}
	}
}
