// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package zvolwatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lf-edge/eve/pkg/zfsinfo/base"
	"github.com/lf-edge/eve/pkg/zfsinfo/types"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, events <-chan Event, want Event) {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev == want {
				return
			}
		case <-timeout:
			t.Fatalf("no event %+v", want)
		}
	}
}

func TestWatcher(t *testing.T) {
	logger, hook := test.NewNullLogger()
	dir := t.TempDir()
	target := filepath.Join(dir, "zd0")
	require.NoError(t, os.WriteFile(target, nil, 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "persist", "vault"), 0755))
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "persist", "vault", "vol1")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan Event, 16)
	w := &Watcher{Dir: dir, Log: base.NewSourceLogObject(logger, t.Name(), 1)}
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, events) }()

	waitFor(t, events, Event{ZVolStatus: types.ZVolStatus{
		Dataset: "persist/vault/vol1", Device: "/dev/zvol/persist/vault/vol1"}})

	link := filepath.Join(dir, "persist", "vol2")
	require.NoError(t, os.Symlink(target, link))
	waitFor(t, events, Event{ZVolStatus: types.ZVolStatus{
		Dataset: "persist/vol2", Device: "/dev/zvol/persist/vol2"}})

	require.NoError(t, os.Remove(link))
	waitFor(t, events, Event{Delete: true, ZVolStatus: types.ZVolStatus{Device: "/dev/zvol/persist/vol2"}})

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return")
	}

	var messages []string
	for _, entry := range hook.AllEntries() {
		if entry.Data["obj_type"] == base.ZVolLogType && entry.Data["obj_key"] == "/dev/zvol/persist/vol2" {
			assert.Equal(t, "persist/vol2", entry.Data["obj_name"])
			messages = append(messages, entry.Message)
		}
	}
	assert.Equal(t, []string{"zvol added", "zvol removed"}, messages)
}

func TestWatcherMissingDir(t *testing.T) {
	logger, _ := test.NewNullLogger()
	w := &Watcher{Dir: filepath.Join(t.TempDir(), "nope"), Log: base.NewSourceLogObject(logger, t.Name(), 1)}
	err := w.Run(context.Background(), make(chan Event, 1))
	assert.Error(t, err)
}

func TestDeviceMapping(t *testing.T) {
	w := &Watcher{}
	status, ok := w.device("/dev/zvol/persist/vol")
	assert.True(t, ok)
	assert.Equal(t, types.ZVolStatus{Dataset: "persist/vol", Device: "/dev/zvol/persist/vol"}, status)
	_, ok = w.device("/dev/zvol")
	assert.False(t, ok)
	_, ok = w.device("/tmp/other")
	assert.False(t, ok)
}
