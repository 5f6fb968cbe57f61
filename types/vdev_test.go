// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func strPtr(s string) *string { return &s }
func u64Ptr(u uint64) *uint64 { return &u }
func boolPtr(b bool) *bool    { return &b }

func samplePoolTree() Root {
	return Root{
		Children: []VDev{
			Mirror{Children: []VDev{
				Disk{Path: "/dev/sda1", WholeDisk: boolPtr(true), GUID: u64Ptr(11), State: strPtr("ONLINE")},
				Disk{Path: "/dev/sdb1", PhysPath: strPtr("pci-0000:00:1f.2-ata-2"), DevID: strPtr("ata-B")},
			}},
			RaidZ{Parity: u64Ptr(2), Children: []VDev{
				File{Path: "/tmp/f0"},
				Replacing{Children: []VDev{
					File{Path: "/tmp/f1"},
					File{Path: "/tmp/f1-new"},
				}},
				Spare{Children: []VDev{
					File{Path: "/tmp/f2"},
					File{Path: "/tmp/spare0"},
				}},
			}},
			Disk{Path: "/dev/nvme0n1", IsLog: true},
		},
		Spares: []VDev{File{Path: "/tmp/spare0"}},
		Cache:  []VDev{Disk{Path: "/dev/sdc"}},
	}
}

func TestWalkOrder(t *testing.T) {
	type visit struct {
		kind  VDevKind
		group string
		path  []int
	}
	var visits []visit
	err := Walk(samplePoolTree(), func(v VDev, group string, path []int) error {
		visits = append(visits, visit{v.Kind(), group, append([]int(nil), path...)})
		return nil
	})
	require.NoError(t, err)

	expected := []visit{
		{VDevKindRoot, "children", nil},
		{VDevKindMirror, "children", []int{0}},
		{VDevKindDisk, "children", []int{0, 0}},
		{VDevKindDisk, "children", []int{0, 1}},
		{VDevKindRaidZ, "children", []int{1}},
		{VDevKindFile, "children", []int{1, 0}},
		{VDevKindReplacing, "children", []int{1, 1}},
		{VDevKindFile, "children", []int{1, 1, 0}},
		{VDevKindFile, "children", []int{1, 1, 1}},
		{VDevKindSpare, "children", []int{1, 2}},
		{VDevKindFile, "children", []int{1, 2, 0}},
		{VDevKindFile, "children", []int{1, 2, 1}},
		{VDevKindDisk, "children", []int{2}},
		{VDevKindFile, "spares", []int{0}},
		{VDevKindDisk, "cache", []int{0}},
	}
	if diff := cmp.Diff(expected, visits, cmp.AllowUnexported(visit{}), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Walk() mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkStopsOnError(t *testing.T) {
	stop := errors.New("stop")
	count := 0
	err := Walk(samplePoolTree(), func(v VDev, _ string, _ []int) error {
		count++
		if v.Kind() == VDevKindRaidZ {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 5, count)
}

func TestLeaves(t *testing.T) {
	var paths []string
	for _, leaf := range Leaves(samplePoolTree()) {
		path, ok := LeafPath(leaf)
		require.True(t, ok)
		paths = append(paths, path)
	}
	assert.Equal(t, []string{
		"/dev/sda1", "/dev/sdb1",
		"/tmp/f0", "/tmp/f1", "/tmp/f1-new", "/tmp/f2", "/tmp/spare0",
		"/dev/nvme0n1", "/tmp/spare0", "/dev/sdc",
	}, paths)
}

func TestRootLogsAndData(t *testing.T) {
	root := samplePoolTree()
	root.Children = append(root.Children, Mirror{IsLog: boolPtr(true)}, Mirror{IsLog: boolPtr(false)})

	logs := root.Logs()
	require.Len(t, logs, 2)
	assert.Equal(t, VDevKindDisk, logs[0].Kind())
	assert.Equal(t, VDevKindMirror, logs[1].Kind())

	data := root.Data()
	require.Len(t, data, 3)
	assert.Equal(t, []VDevKind{VDevKindMirror, VDevKindRaidZ, VDevKindMirror},
		[]VDevKind{data[0].Kind(), data[1].Kind(), data[2].Kind()})
}

func TestChildrenAndIsLeaf(t *testing.T) {
	testMatrix := map[string]struct {
		vdev     VDev
		leaf     bool
		children int
	}{
		"disk":      {vdev: Disk{Path: "/dev/sda"}, leaf: true},
		"file":      {vdev: File{Path: "/f"}, leaf: true},
		"mirror":    {vdev: Mirror{Children: []VDev{File{Path: "/a"}, File{Path: "/b"}}}, children: 2},
		"raidz":     {vdev: RaidZ{Children: []VDev{File{Path: "/a"}}}, children: 1},
		"replacing": {vdev: Replacing{}, children: 0},
		"root":      {vdev: samplePoolTree(), children: 3},
	}
	for testname, test := range testMatrix {
		t.Logf("Running test case %s", testname)
		assert.Equal(t, test.leaf, IsLeaf(test.vdev), testname)
		assert.Len(t, Children(test.vdev), test.children, testname)
	}
}

func TestVDevJSONTagged(t *testing.T) {
	data, err := json.Marshal(Mirror{Children: []VDev{Disk{Path: "/dev/sda"}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Mirror":{"children":[{"Disk":{"path":"/dev/sda","phys_path":null,
		"dev_id":null,"whole_disk":null,"is_log":false,"guid":null,"state":null}}],"is_log":null}}`,
		string(data))

	data, err = json.Marshal(Root{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Root":{"children":[],"spares":[],"cache":[]}}`, string(data))
}

func TestVDevJSONRoundTrip(t *testing.T) {
	root := samplePoolTree()
	data, err := json.Marshal(root)
	require.NoError(t, err)

	decoded, err := UnmarshalVDevJSON(data)
	require.NoError(t, err)
	if diff := cmp.Diff(VDev(root), decoded, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPoolJSONRoundTrip(t *testing.T) {
	pool := Pool{
		Name:     "persist",
		UID:      PoolUID(0xA1B2),
		GUID:     0xA1B2,
		Hostname: "eve",
		HostID:   u64Ptr(0x1234),
		State:    "ACTIVE",
		Health:   "ONLINE",
		Size:     1 << 30,
		VDev:     samplePoolTree(),
		Datasets: []Dataset{{Name: "persist", Kind: "filesystem"}, {Name: "persist/vol", Kind: "volume", GUID: u64Ptr(7)}},
	}
	data, err := json.Marshal(pool)
	require.NoError(t, err)

	var decoded Pool
	require.NoError(t, json.Unmarshal(data, &decoded))
	if diff := cmp.Diff(pool, decoded, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("pool round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshalVDevJSONErrors(t *testing.T) {
	testMatrix := map[string]string{
		"not an object":    `[1,2]`,
		"two tags":         `{"Disk":{"path":"/a"},"File":{"path":"/b"}}`,
		"no tag":           `{}`,
		"unknown tag":      `{"Hole":{}}`,
		"bad child":        `{"Mirror":{"children":[{"Nope":{}}]}}`,
		"bad leaf payload": `{"Disk":{"path":7}}`,
	}
	for testname, input := range testMatrix {
		t.Logf("Running test case %s", testname)
		_, err := UnmarshalVDevJSON([]byte(input))
		assert.Error(t, err, testname)
	}

	var root Root
	err := json.Unmarshal([]byte(`{"Mirror":{"children":[]}}`), &root)
	assert.ErrorContains(t, err, "must be Root")
}

func TestVDevYAMLTagged(t *testing.T) {
	out, err := yaml.Marshal(Root{Children: []VDev{Mirror{Children: []VDev{Disk{Path: "/dev/sda"}}}}})
	require.NoError(t, err)

	var decoded map[string]map[string][]map[string]map[string]interface{}
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	mirror, ok := decoded["Root"]["children"][0]["Mirror"]
	require.True(t, ok, "yaml output: %s", out)
	assert.Contains(t, mirror, "children")
}

func TestPoolUID(t *testing.T) {
	assert.Equal(t, "0X0000000000000000", PoolUID(0))
	assert.Equal(t, "0X00000000DEADBEEF", PoolUID(0xdeadbeef))
	assert.Equal(t, "0XFFFFFFFFFFFFFFFF", PoolUID(^uint64(0)))
}

func TestDatasetHelpers(t *testing.T) {
	ds := Dataset{Name: "persist/vault/volumes/abc", Kind: "volume"}
	assert.Equal(t, "persist", ds.Pool())
	assert.True(t, ds.IsVolume())
	assert.Equal(t, "persist", Dataset{Name: "persist"}.Pool())
}

func TestRaidTypeAndStatusString(t *testing.T) {
	assert.Equal(t, "raidz2", RaidTypeRAIDZ2.String())
	assert.Equal(t, "unspecified", RaidType(42).String())
	assert.Equal(t, "DEGRADED", StorageStatusDegraded.String())
	assert.True(t, RaidTypeNoRAID < RaidTypeMirror)
}
