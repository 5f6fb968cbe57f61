// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"strings"
)

const (
	// ZVolDevicePrefix controlled by mdev
	ZVolDevicePrefix = "/dev/zvol"
)

// Pool is a snapshot of one imported pool.
type Pool struct {
	Name     string    `json:"name" yaml:"name"`
	UID      string    `json:"uid" yaml:"uid"`
	GUID     uint64    `json:"guid" yaml:"guid"`
	Hostname string    `json:"hostname" yaml:"hostname"`
	HostID   *uint64   `json:"hostid" yaml:"hostid,omitempty"`
	State    string    `json:"state" yaml:"state"`
	Health   string    `json:"health" yaml:"health"`
	ReadOnly bool      `json:"readonly" yaml:"readonly"`
	Size     uint64    `json:"size" yaml:"size"`
	VDev     Root      `json:"vdev" yaml:"vdev"`
	Datasets []Dataset `json:"datasets" yaml:"datasets"`
}

// Key is the pool name, unique on a host
func (pool Pool) Key() string {
	return pool.Name
}

// LogKey :
func (pool Pool) LogKey() string {
	return "zpool-" + pool.Key()
}

// PoolUID formats a pool guid the way pool identifiers are shown to
// clients: upper-case hex, 0X prefixed, zero padded to 16 digits.
func PoolUID(guid uint64) string {
	return fmt.Sprintf("0X%016X", guid)
}

// Dataset is one filesystem, volume or snapshot of a pool.
type Dataset struct {
	Name string  `json:"name" yaml:"name"`
	Kind string  `json:"kind" yaml:"kind"`
	GUID *uint64 `json:"guid" yaml:"guid,omitempty"`
}

// Pool returns the name of the pool holding the dataset
func (ds Dataset) Pool() string {
	return strings.SplitN(ds.Name, "/", 2)[0]
}

// IsVolume reports whether the dataset is a zvol
func (ds Dataset) IsVolume() bool {
	return ds.Kind == "volume"
}

// ZVolStatus specifies the needed information for zfs volume
type ZVolStatus struct {
	Dataset string `json:"dataset" yaml:"dataset"`
	Device  string `json:"device" yaml:"device"`
}

// Key is the device path which will be unique
func (status ZVolStatus) Key() string {
	return status.Device
}

// RaidType describes the redundancy of a pool's data devices.
// Lower values tolerate fewer device failures.
type RaidType uint8

// Known redundancy layouts
const (
	RaidTypeUnspecified RaidType = iota
	RaidTypeNoRAID               // single data device
	RaidTypeRAID0                // several devices striped without redundancy
	RaidTypeMirror
	RaidTypeRAIDZ1
	RaidTypeRAIDZ2
	RaidTypeRAIDZ3
)

func (t RaidType) String() string {
	switch t {
	case RaidTypeNoRAID:
		return "noraid"
	case RaidTypeRAID0:
		return "raid0"
	case RaidTypeMirror:
		return "mirror"
	case RaidTypeRAIDZ1:
		return "raidz1"
	case RaidTypeRAIDZ2:
		return "raidz2"
	case RaidTypeRAIDZ3:
		return "raidz3"
	default:
		return "unspecified"
	}
}

// StorageStatus is the health of a pool or device as reported by zfs
type StorageStatus uint8

// Device and pool states
const (
	StorageStatusUnspecified StorageStatus = iota
	StorageStatusOnline
	StorageStatusDegraded
	StorageStatusFaulted
	StorageStatusOffline
	StorageStatusUnavail
	StorageStatusRemoved
	StorageStatusSuspended
)

func (s StorageStatus) String() string {
	switch s {
	case StorageStatusOnline:
		return "ONLINE"
	case StorageStatusDegraded:
		return "DEGRADED"
	case StorageStatusFaulted:
		return "FAULTED"
	case StorageStatusOffline:
		return "OFFLINE"
	case StorageStatusUnavail:
		return "UNAVAIL"
	case StorageStatusRemoved:
		return "REMOVED"
	case StorageStatusSuspended:
		return "SUSPENDED"
	default:
		return "UNSPECIFIED"
	}
}
