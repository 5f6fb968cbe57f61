// Copyright (c) 2020 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package agentlog_test checks the logging
package agentlog_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lf-edge/eve/pkg/zfsinfo/agentlog"
	"github.com/lf-edge/eve/pkg/zfsinfo/base"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitFields(t *testing.T) {
	buf := new(bytes.Buffer)
	logger, log, err := agentlog.InitWithOutput("zfsinfo-test", "debug", buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	pool := base.NewLogObject(log, base.ZpoolLogType, "tank", uuid.UUID{}, "tank")
	pool.Debugf("building vdev tree")

	line := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))

	got := map[string]interface{}{
		"source":   line["source"],
		"obj_type": line["obj_type"],
		"obj_name": line["obj_name"],
		"msg":      line["msg"],
		"level":    line["level"],
	}
	want := map[string]interface{}{
		"source":   "zfsinfo-test",
		"obj_type": "zpool",
		"obj_name": "tank",
		"msg":      "building vdev tree",
		"level":    "debug",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("log line mismatch (-want +got):\n%s", diff)
	}
	// the caller is reported past the base wrapper
	assert.NotContains(t, line["func"], "/base.")
}

func TestInitBadLevel(t *testing.T) {
	_, _, err := agentlog.InitWithOutput("zfsinfo-bad", "loud", new(bytes.Buffer))
	assert.Error(t, err)
}

func TestInitTwiceKeepsOutputs(t *testing.T) {
	first, second := new(bytes.Buffer), new(bytes.Buffer)
	_, firstLog, err := agentlog.InitWithOutput("zfsinfo-twice", "info", first)
	require.NoError(t, err)
	_, secondLog, err := agentlog.InitWithOutput("zfsinfo-twice", "debug", second)
	require.NoError(t, err)

	firstLog.Info("one")
	secondLog.Debug("two")
	assert.Contains(t, first.String(), "one")
	assert.NotContains(t, first.String(), "two")
	assert.Contains(t, second.String(), "two")
}
