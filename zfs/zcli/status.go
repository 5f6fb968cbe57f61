// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package zcli

import (
	"fmt"

	"github.com/lf-edge/eve/pkg/zfsinfo/zfs"
	"gopkg.in/yaml.v2"
)

// zpool status -j output is decoded as YAML into MapSlice so vdevs keep
// the order zpool printed them in. Layout:
//
//	{"pools": {"<pool>": {"vdevs": {"<pool>": {"vdev_type": "root",
//	  "vdevs": {"mirror-0": {...}}}}, "logs": {...}, "spares": {...},
//	  "l2cache": {...}}}}

// leaf fields copied as is
var statusLeafKeys = []struct{ from, to string }{
	{"path", zfs.KeyPath},
	{"phys_path", zfs.KeyPhysPath},
	{"devid", zfs.KeyDevID},
	{"whole_disk", zfs.KeyWholeDisk},
	{"guid", zfs.KeyGUID},
	{"state", zfs.KeyState},
}

func lookup(ms yaml.MapSlice, key string) (interface{}, bool) {
	for _, item := range ms {
		if k, ok := item.Key.(string); ok && k == key {
			return item.Value, true
		}
	}
	return nil, false
}

func lookupMap(ms yaml.MapSlice, key string) (yaml.MapSlice, error) {
	v, ok := lookup(ms, key)
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(yaml.MapSlice)
	if !ok {
		return nil, fmt.Errorf("%s is %T, not an object", key, v)
	}
	return m, nil
}

// parseStatus returns the vdev_tree record of the pool, nil when the
// output has no tree for it.
func parseStatus(out []byte, pool string) (zfs.Record, error) {
	var doc yaml.MapSlice
	if err := yaml.Unmarshal(out, &doc); err != nil {
		return nil, err
	}
	pools, err := lookupMap(doc, "pools")
	if err != nil {
		return nil, err
	}
	poolDoc, err := lookupMap(pools, pool)
	if err != nil || poolDoc == nil {
		return nil, err
	}
	vdevs, err := lookupMap(poolDoc, "vdevs")
	if err != nil || len(vdevs) == 0 {
		return nil, err
	}
	rootDoc, ok := vdevs[0].Value.(yaml.MapSlice)
	if !ok {
		return nil, fmt.Errorf("root vdev is %T, not an object", vdevs[0].Value)
	}
	root, err := vdevRecord(rootDoc)
	if err != nil {
		return nil, err
	}

	children, _ := root[zfs.KeyChildren].([]interface{})
	// special and dedup classes hold pool data like normal vdevs
	for _, class := range []string{"special", "dedup", "logs"} {
		group, err := vdevGroup(poolDoc, class)
		if err != nil {
			return nil, err
		}
		for _, child := range group {
			if class == "logs" {
				child.(zfs.Record)[zfs.KeyIsLog] = uint64(1)
			}
			children = append(children, child)
		}
	}
	if children != nil {
		root[zfs.KeyChildren] = children
	}
	for class, key := range map[string]string{"spares": zfs.KeySpares, "l2cache": zfs.KeyL2Cache} {
		group, err := vdevGroup(poolDoc, class)
		if err != nil {
			return nil, err
		}
		if len(group) > 0 {
			root[key] = group
		}
	}
	return root, nil
}

// vdevGroup converts the vdevs listed under key, keeping their order
func vdevGroup(doc yaml.MapSlice, key string) ([]interface{}, error) {
	group, err := lookupMap(doc, key)
	if err != nil {
		return nil, err
	}
	var recs []interface{}
	for _, item := range group {
		vdevDoc, ok := item.Value.(yaml.MapSlice)
		if !ok {
			return nil, fmt.Errorf("%s %v is %T, not an object", key, item.Key, item.Value)
		}
		rec, err := vdevRecord(vdevDoc)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func vdevRecord(doc yaml.MapSlice) (zfs.Record, error) {
	rec := zfs.Record{}
	if vdevType, ok := lookup(doc, "vdev_type"); ok {
		rec[zfs.KeyType] = vdevType
	}
	for _, key := range statusLeafKeys {
		if v, ok := lookup(doc, key.from); ok && v != nil {
			rec[key.to] = v
		}
	}
	if rec[zfs.KeyType] == "raidz" {
		name, _ := lookup(doc, "name")
		if parity, ok := zfs.RaidZParityFromName(fmt.Sprint(name)); ok {
			rec[zfs.KeyNParity] = parity
		}
	}
	children, err := vdevGroup(doc, "vdevs")
	if err != nil {
		return nil, err
	}
	if children != nil {
		rec[zfs.KeyChildren] = children
	}
	return rec, nil
}
