// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package zvolwatch follows zvol device links appearing and disappearing
// under /dev/zvol.
package zvolwatch

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/lf-edge/eve/pkg/zfsinfo/base"
	"github.com/lf-edge/eve/pkg/zfsinfo/types"
	"github.com/lf-edge/eve/pkg/zfsinfo/zfs"
	uuid "github.com/satori/go.uuid"
)

// Event reports one device link. Delete events carry only the device.
type Event struct {
	Delete bool
	types.ZVolStatus
}

// Watcher walks Dir and then follows changes below it.
type Watcher struct {
	// Dir defaults to types.ZVolDevicePrefix
	Dir string
	Log *base.LogObject
}

func (w *Watcher) dir() string {
	if w.Dir == "" {
		return types.ZVolDevicePrefix
	}
	return w.Dir
}

// device maps a path below Dir to the /dev/zvol link and its dataset
func (w *Watcher) device(path string) (types.ZVolStatus, bool) {
	rel, err := filepath.Rel(w.dir(), path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return types.ZVolStatus{}, false
	}
	device := zfs.GetZVolDeviceByDataset(filepath.ToSlash(rel))
	dataset := zfs.GetDatasetByDevice(device)
	if dataset == "" {
		return types.ZVolStatus{}, false
	}
	return types.ZVolStatus{Dataset: dataset, Device: device}, true
}

// zvolLog is kept from the add of a device until its removal
func (w *Watcher) zvolLog(status types.ZVolStatus) *base.LogObject {
	return base.NewLogObject(w.Log, base.ZVolLogType, status.Dataset, uuid.UUID{}, status.Device)
}

// Run sends the existing links, then every change, until ctx is done.
func (w *Watcher) Run(ctx context.Context, events chan<- Event) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	send := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	processRecursive := func(dir string) error {
		return filepath.Walk(dir, func(walkPath string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() {
				return watcher.Add(walkPath)
			}
			// links are created by udev/mdev
			if fi.Mode()&os.ModeSymlink == 0 {
				return nil
			}
			status, ok := w.device(walkPath)
			if !ok {
				w.Log.Errorf("cannot determine dataset for device: %s", walkPath)
				return nil
			}
			w.zvolLog(status).Functionf("zvol present")
			if !send(Event{ZVolStatus: status}) {
				return ctx.Err()
			}
			return nil
		})
	}

	if err := processRecursive(w.dir()); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.Log.Errorf("zvolwatch: %v", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.Log.Functionf("zvolwatch: %+v", event)
			fileName := event.Name
			if s, err := os.Lstat(fileName); err == nil && s.IsDir() {
				if event.Op&fsnotify.Create != 0 {
					if err := processRecursive(fileName); err != nil {
						w.Log.Errorf("Failed to Walk in %s: %s", fileName, err)
					}
				}
				continue
			}
			status, ok := w.device(fileName)
			if !ok {
				w.Log.Errorf("cannot determine dataset for device: %s", fileName)
				continue
			}
			switch {
			case event.Op&fsnotify.Create != 0:
				w.zvolLog(status).Infof("zvol added")
				if !send(Event{ZVolStatus: status}) {
					return ctx.Err()
				}
			case event.Op&fsnotify.Remove != 0:
				_ = watcher.Remove(fileName)
				w.zvolLog(status).Infof("zvol removed")
				base.DeleteLogObject(w.Log, status.Device)
				if !send(Event{Delete: true, ZVolStatus: types.ZVolStatus{Device: status.Device}}) {
					return ctx.Err()
				}
			}
		}
	}
}
