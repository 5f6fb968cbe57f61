// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package native

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lf-edge/eve/pkg/zfsinfo/types"
	"github.com/lf-edge/eve/pkg/zfsinfo/zfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(path string, guid uint64) vdevNode {
	return vdevNode{Type: "disk", Path: path, Name: path, GUID: guid, State: "ONLINE"}
}

func TestVDevRecordTree(t *testing.T) {
	logDev := leaf("/dev/nvme0n1p1", 40)
	root := vdevNode{
		Type: "root",
		Name: "persist",
		Devices: []vdevNode{
			{Type: "raidz", Name: "raidz2-0", GUID: 10, State: "DEGRADED", Devices: []vdevNode{
				leaf("/dev/sda1", 11), leaf("/dev/sdb1", 12), leaf("/dev/sdc1", 13),
			}},
			{Type: "hole"},
			{Type: "mirror", Name: "mirror-2", GUID: 20, State: "ONLINE", Devices: []vdevNode{
				leaf("/dev/sdd1", 21), {Type: "file", Path: "/var/disk.img", GUID: 22},
			}},
		},
		Logs:    &logDev,
		Spares:  []vdevNode{leaf("/dev/sde1", 50)},
		L2Cache: []vdevNode{leaf("/dev/sdf1", 60)},
	}

	builder := zfs.VDevBuilder{Strict: true}
	tree, err := builder.BuildRoot(vdevRecord(root, false))
	require.NoError(t, err)

	online := "ONLINE"
	u64 := func(v uint64) *uint64 { return &v }
	disk := func(path string, guid uint64, isLog bool) types.Disk {
		return types.Disk{Path: path, GUID: u64(guid), State: &online, IsLog: isLog}
	}
	expected := types.Root{
		Children: []types.VDev{
			types.RaidZ{Parity: u64(2), Children: []types.VDev{
				disk("/dev/sda1", 11, false), disk("/dev/sdb1", 12, false), disk("/dev/sdc1", 13, false),
			}},
			types.Mirror{Children: []types.VDev{
				disk("/dev/sdd1", 21, false), types.File{Path: "/var/disk.img", GUID: u64(22)},
			}},
			disk("/dev/nvme0n1p1", 40, true),
		},
		Spares: []types.VDev{disk("/dev/sde1", 50, false)},
		Cache:  []types.VDev{disk("/dev/sdf1", 60, false)},
	}
	if diff := cmp.Diff(expected, tree); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, tree.Logs(), 1)
}

func TestVDevRecordParity(t *testing.T) {
	rec := vdevRecord(vdevNode{Type: "raidz", Parity: 3, Name: "raidz1-0"}, false)
	assert.Equal(t, uint64(3), rec[zfs.KeyNParity])

	rec = vdevRecord(vdevNode{Type: "raidz", Name: "raidz1-0"}, false)
	assert.Equal(t, uint64(1), rec[zfs.KeyNParity])

	rec = vdevRecord(vdevNode{Type: "raidz", Name: "odd"}, false)
	assert.NotContains(t, rec, zfs.KeyNParity)
	assert.Equal(t, []interface{}{}, rec[zfs.KeyChildren])
}

func TestVDevRecordLogMirror(t *testing.T) {
	logs := vdevNode{Type: "mirror", Devices: []vdevNode{leaf("/a", 1), leaf("/b", 2)}}
	rec := vdevRecord(vdevNode{Type: "root", Logs: &logs}, false)
	children := rec[zfs.KeyChildren].([]interface{})
	require.Len(t, children, 1)
	mirror := children[0].(zfs.Record)
	assert.Equal(t, true, mirror[zfs.KeyIsLog])
	assert.NotContains(t, rec, zfs.KeySpares)
	assert.NotContains(t, rec, zfs.KeyL2Cache)
}

func TestDatasetRecords(t *testing.T) {
	root := datasetNode{Name: "persist", Type: "filesystem", GUID: "100", Children: []datasetNode{
		{Name: "persist/vault", Type: "filesystem", GUID: "101", Children: []datasetNode{
			{Name: "persist/vault/vol", Type: "volume", GUID: "102"},
		}},
		{Name: "persist/clear", Type: "filesystem", GUID: "-"},
	}}
	recs := datasetRecords(root)
	var names []string
	for _, rec := range recs {
		names = append(names, rec[zfs.DatasetKeyName].(string))
	}
	assert.Equal(t, []string{"persist", "persist/vault", "persist/vault/vol", "persist/clear"}, names)
	assert.Equal(t, uint64(102), recs[2][zfs.DatasetKeyGUID])
	assert.NotContains(t, recs[3], zfs.DatasetKeyGUID)
}

func TestSetVDevTree(t *testing.T) {
	rec := zfs.Record{zfs.PoolKeyName: "persist"}
	err := setVDevTree(rec, func() (vdevNode, error) {
		return vdevNode{Type: "root", Devices: []vdevNode{leaf("/dev/sda9", 1)}}, nil
	})
	require.NoError(t, err)
	tree, ok, err := rec.Nested(zfs.PoolKeyVDevTree)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "root", tree[zfs.KeyType])

	fault := errors.New("cannot read config nvlist")
	rec = zfs.Record{zfs.PoolKeyName: "persist"}
	err = setVDevTree(rec, func() (vdevNode, error) { return vdevNode{}, fault })
	assert.ErrorIs(t, err, fault)
	assert.False(t, zfs.IsBuildError(err))
	_, found := rec[zfs.PoolKeyVDevTree]
	assert.False(t, found)
}
