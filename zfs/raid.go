// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package zfs

import (
	"strconv"
	"strings"

	"github.com/lf-edge/eve/pkg/zfsinfo/types"
)

// raidTypeOfTopLevel returns the redundancy of one top-level vdev
func raidTypeOfTopLevel(vdev types.VDev) types.RaidType {
	switch v := vdev.(type) {
	case types.Mirror:
		return types.RaidTypeMirror
	case types.RaidZ:
		if v.Parity == nil {
			return types.RaidTypeRAIDZ1
		}
		switch *v.Parity {
		case 2:
			return types.RaidTypeRAIDZ2
		case 3:
			return types.RaidTypeRAIDZ3
		}
		return types.RaidTypeRAIDZ1
	}
	// a leaf, or a replacing/spare group standing in for one
	return types.RaidTypeNoRAID
}

// PoolRedundancy returns the redundancy of the pool's data devices.
// Log devices are not considered. With several top-level vdevs the
// weakest one decides, and several plain devices make a RAID0 stripe.
func PoolRedundancy(root types.Root) types.RaidType {
	data := root.Data()
	if len(data) == 0 {
		return types.RaidTypeUnspecified
	}
	if len(data) == 1 {
		return raidTypeOfTopLevel(data[0])
	}
	allPlain := true
	weakest := types.RaidTypeRAIDZ3
	for _, vdev := range data {
		raidType := raidTypeOfTopLevel(vdev)
		if raidType != types.RaidTypeNoRAID {
			allPlain = false
		}
		if raidType < weakest {
			weakest = raidType
		}
	}
	if allPlain {
		return types.RaidTypeRAID0
	}
	return weakest
}

// ParseStorageStatus takes a string with status as input and returns status
func ParseStorageStatus(statusStr string) types.StorageStatus {
	switch strings.ToUpper(strings.TrimSpace(statusStr)) {
	case "ONLINE":
		return types.StorageStatusOnline
	case "DEGRADED":
		return types.StorageStatusDegraded
	case "FAULTED":
		return types.StorageStatusFaulted
	case "OFFLINE":
		return types.StorageStatusOffline
	case "UNAVAIL":
		return types.StorageStatusUnavail
	case "REMOVED":
		return types.StorageStatusRemoved
	case "SUSPENDED":
		return types.StorageStatusSuspended
	}
	return types.StorageStatusUnspecified
}

// DeviceStatus returns the status of a leaf vdev
func DeviceStatus(vdev types.VDev) types.StorageStatus {
	switch v := vdev.(type) {
	case types.Disk:
		if v.State != nil {
			return ParseStorageStatus(*v.State)
		}
	case types.File:
		if v.State != nil {
			return ParseStorageStatus(*v.State)
		}
	}
	return types.StorageStatusUnspecified
}

// RaidZParityFromName takes the parity from a vdev name like raidz2-0.
// Plain "raidz" is single parity.
func RaidZParityFromName(name string) (uint64, bool) {
	rest, ok := strings.CutPrefix(name, "raidz")
	if !ok {
		return 0, false
	}
	digits, _, _ := strings.Cut(rest, "-")
	if digits == "" {
		return 1, true
	}
	parity, err := strconv.ParseUint(digits, 10, 64)
	return parity, err == nil
}
