// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package types

// VDevKind is the configuration type tag of a vdev as reported in the
// pool config ("type" in the vdev nvlist).
type VDevKind string

// Kinds understood by the tree builder. Anything else is rejected.
const (
	VDevKindDisk      VDevKind = "disk"
	VDevKindFile      VDevKind = "file"
	VDevKindMirror    VDevKind = "mirror"
	VDevKindRaidZ     VDevKind = "raidz"
	VDevKindReplacing VDevKind = "replacing"
	VDevKindSpare     VDevKind = "spare"
	VDevKindRoot      VDevKind = "root"
)

// VDev is one node of a pool's device tree. The set of implementations
// is closed: Disk, File, Mirror, RaidZ, Replacing, Spare and Root.
type VDev interface {
	Kind() VDevKind
	isVDev()
}

// Disk is a leaf block device.
type Disk struct {
	Path      string  `json:"path" yaml:"path"`
	PhysPath  *string `json:"phys_path" yaml:"phys_path,omitempty"`
	DevID     *string `json:"dev_id" yaml:"dev_id,omitempty"`
	WholeDisk *bool   `json:"whole_disk" yaml:"whole_disk,omitempty"`
	IsLog     bool    `json:"is_log" yaml:"is_log"`
	GUID      *uint64 `json:"guid" yaml:"guid,omitempty"`
	State     *string `json:"state" yaml:"state,omitempty"`
}

// File is a leaf backed by a regular file, mostly seen in test pools.
type File struct {
	Path  string  `json:"path" yaml:"path"`
	IsLog bool    `json:"is_log" yaml:"is_log"`
	GUID  *uint64 `json:"guid" yaml:"guid,omitempty"`
	State *string `json:"state" yaml:"state,omitempty"`
}

// Mirror keeps identical copies on every child.
type Mirror struct {
	Children []VDev `json:"children" yaml:"children"`
	IsLog    *bool  `json:"is_log" yaml:"is_log,omitempty"`
}

// RaidZ stripes data with Parity parity devices across its children.
type RaidZ struct {
	Children []VDev  `json:"children" yaml:"children"`
	Parity   *uint64 `json:"parity" yaml:"parity,omitempty"`
}

// Replacing holds the old and the new device while a replace is running.
type Replacing struct {
	Children []VDev `json:"children" yaml:"children"`
}

// Spare groups a failing device with the hot spare standing in for it.
type Spare struct {
	Children []VDev `json:"children" yaml:"children"`
}

// Root is the top of a pool's tree. Children are the top-level vdevs,
// log devices included (tagged with IsLog). Spares is the hot-spare pool
// and Cache the l2arc devices, both in config order.
type Root struct {
	Children []VDev `json:"children" yaml:"children"`
	Spares   []VDev `json:"spares" yaml:"spares"`
	Cache    []VDev `json:"cache" yaml:"cache"`
}

// Kind :
func (Disk) Kind() VDevKind { return VDevKindDisk }

// Kind :
func (File) Kind() VDevKind { return VDevKindFile }

// Kind :
func (Mirror) Kind() VDevKind { return VDevKindMirror }

// Kind :
func (RaidZ) Kind() VDevKind { return VDevKindRaidZ }

// Kind :
func (Replacing) Kind() VDevKind { return VDevKindReplacing }

// Kind :
func (Spare) Kind() VDevKind { return VDevKindSpare }

// Kind :
func (Root) Kind() VDevKind { return VDevKindRoot }

func (Disk) isVDev()      {}
func (File) isVDev()      {}
func (Mirror) isVDev()    {}
func (RaidZ) isVDev()     {}
func (Replacing) isVDev() {}
func (Spare) isVDev()     {}
func (Root) isVDev()      {}

// Children returns the ordered children of a composite vdev and nil for
// a leaf. For Root only the top-level devices are returned, see Walk for
// spares and cache.
func Children(v VDev) []VDev {
	switch v := v.(type) {
	case Mirror:
		return v.Children
	case RaidZ:
		return v.Children
	case Replacing:
		return v.Children
	case Spare:
		return v.Children
	case Root:
		return v.Children
	}
	return nil
}

// IsLeaf reports whether v is a physical device.
func IsLeaf(v VDev) bool {
	switch v.(type) {
	case Disk, File:
		return true
	}
	return false
}

// IsLogDevice reports whether a top-level vdev belongs to the intent log.
func IsLogDevice(v VDev) bool {
	switch v := v.(type) {
	case Disk:
		return v.IsLog
	case File:
		return v.IsLog
	case Mirror:
		return v.IsLog != nil && *v.IsLog
	}
	return false
}

// LeafPath returns the device path of a leaf.
func LeafPath(v VDev) (string, bool) {
	switch v := v.(type) {
	case Disk:
		return v.Path, true
	case File:
		return v.Path, true
	}
	return "", false
}

// Logs returns the top-level log devices of the pool in config order.
func (r Root) Logs() []VDev {
	var logs []VDev
	for _, child := range r.Children {
		if IsLogDevice(child) {
			logs = append(logs, child)
		}
	}
	return logs
}

// Data returns the top-level devices holding pool data, that is every
// child which is not a log device.
func (r Root) Data() []VDev {
	var data []VDev
	for _, child := range r.Children {
		if !IsLogDevice(child) {
			data = append(data, child)
		}
	}
	return data
}

// WalkFunc is called for every node by Walk. path holds the child
// indexes leading to v inside its group; group is "children", "spares"
// or "cache" for the direct subtrees of a Root.
type WalkFunc func(v VDev, group string, path []int) error

// Walk visits the tree rooted at v in pre-order: a node, then its
// children in order. Below a Root the spares and cache groups are
// visited after the top-level children. Walk stops at the first error.
func Walk(v VDev, fn WalkFunc) error {
	return walk(v, "children", nil, fn)
}

func walk(v VDev, group string, path []int, fn WalkFunc) error {
	if err := fn(v, group, path); err != nil {
		return err
	}
	walkGroup := func(g string, children []VDev) error {
		for i, child := range children {
			childPath := make([]int, len(path)+1)
			copy(childPath, path)
			childPath[len(path)] = i
			if err := walk(child, g, childPath, fn); err != nil {
				return err
			}
		}
		return nil
	}
	if root, ok := v.(Root); ok {
		if err := walkGroup("children", root.Children); err != nil {
			return err
		}
		if err := walkGroup("spares", root.Spares); err != nil {
			return err
		}
		return walkGroup("cache", root.Cache)
	}
	return walkGroup(group, Children(v))
}

// Leaves returns every leaf below v in Walk order.
func Leaves(v VDev) []VDev {
	var leaves []VDev
	_ = Walk(v, func(node VDev, _ string, _ []int) error {
		if IsLeaf(node) {
			leaves = append(leaves, node)
		}
		return nil
	})
	return leaves
}
