// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package native

import (
	"fmt"
	"strconv"

	"github.com/lf-edge/eve/pkg/zfsinfo/zfs"
)

// vdevNode is the part of libzfs.VDevTree the records are built from
type vdevNode struct {
	Type    string
	Name    string
	Path    string
	GUID    uint64
	Parity  uint
	State   string
	Devices []vdevNode
	Logs    *vdevNode
	Spares  []vdevNode
	L2Cache []vdevNode
}

// setVDevTree stores the tree read by read under vdev_tree. A failing
// read is returned, never turned into a record without a tree.
func setVDevTree(rec zfs.Record, read func() (vdevNode, error)) error {
	tree, err := read()
	if err != nil {
		return fmt.Errorf("VDevTree: %w", err)
	}
	rec[zfs.PoolKeyVDevTree] = vdevRecord(tree, false)
	return nil
}

// placeholders left behind by removed top-level vdevs
func isPlaceholder(vdevType string) bool {
	return vdevType == "hole" || vdevType == "missing"
}

// vdevRecord converts a node into the record the tree builder reads.
// The root collects its log device with is_log set.
func vdevRecord(n vdevNode, isLog bool) zfs.Record {
	rec := zfs.Record{zfs.KeyType: n.Type}
	if n.GUID != 0 {
		rec[zfs.KeyGUID] = n.GUID
	}
	if n.State != "" {
		rec[zfs.KeyState] = n.State
	}
	switch n.Type {
	case "disk", "file":
		rec[zfs.KeyPath] = n.Path
		rec[zfs.KeyIsLog] = isLog
		return rec
	case "mirror":
		if isLog {
			rec[zfs.KeyIsLog] = true
		}
	case "raidz":
		if n.Parity != 0 {
			rec[zfs.KeyNParity] = uint64(n.Parity)
		} else if parity, ok := zfs.RaidZParityFromName(n.Name); ok {
			rec[zfs.KeyNParity] = parity
		}
	}

	children := vdevList(n.Devices, isLog)
	if n.Type == "root" {
		if n.Logs != nil && !isPlaceholder(n.Logs.Type) {
			children = append(children, vdevRecord(*n.Logs, true))
		}
		if spares := vdevList(n.Spares, false); len(spares) > 0 {
			rec[zfs.KeySpares] = spares
		}
		if cache := vdevList(n.L2Cache, false); len(cache) > 0 {
			rec[zfs.KeyL2Cache] = cache
		}
	}
	if children == nil {
		children = []interface{}{}
	}
	rec[zfs.KeyChildren] = children
	return rec
}

func vdevList(nodes []vdevNode, isLog bool) []interface{} {
	var list []interface{}
	for _, n := range nodes {
		if isPlaceholder(n.Type) {
			continue
		}
		list = append(list, vdevRecord(n, isLog))
	}
	return list
}

// datasetNode is one opened dataset with its descendants
type datasetNode struct {
	Name     string
	Type     string
	GUID     string
	Children []datasetNode
}

// datasetRecords flattens the hierarchy depth first, parents before
// their children.
func datasetRecords(root datasetNode) []zfs.Record {
	rec := zfs.Record{
		zfs.DatasetKeyName: root.Name,
		zfs.DatasetKeyType: root.Type,
	}
	if guid, err := strconv.ParseUint(root.GUID, 10, 64); err == nil {
		rec[zfs.DatasetKeyGUID] = guid
	}
	recs := []zfs.Record{rec}
	for _, child := range root.Children {
		recs = append(recs, datasetRecords(child)...)
	}
	return recs
}
