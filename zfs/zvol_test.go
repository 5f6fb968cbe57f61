// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package zfs

import (
	"testing"

	"github.com/lf-edge/eve/pkg/zfsinfo/types"
	"github.com/stretchr/testify/assert"
)

func TestGetDatasetByDevice(t *testing.T) {
	testMatrix := map[string]string{
		"/dev/zvol/persist/vault/volumes/app.1": "persist/vault/volumes/app.1",
		"/dev/zvol//persist/vol":                "persist/vol",
		"/dev/zvolume/x":                        "",
		"/dev/sda":                              "",
		"":                                      "",
	}
	for device, dataset := range testMatrix {
		assert.Equal(t, dataset, GetDatasetByDevice(device), device)
	}
}

func TestZVolDeviceRoundTrip(t *testing.T) {
	dataset := "persist/vault/volumes/9ba9c5b7-8f05-4bd5-a0b6-a1f9ba7b8e3a#0.1"
	device := GetZVolDeviceByDataset(dataset)
	assert.Equal(t, "/dev/zvol/"+dataset, device)
	assert.Equal(t, dataset, GetDatasetByDevice(device))
}

func TestZVolsOfPool(t *testing.T) {
	pool := types.Pool{Name: "persist", Datasets: []types.Dataset{
		{Name: "persist", Kind: "filesystem"},
		{Name: "persist/vol1", Kind: "volume"},
		{Name: "persist/fs/vol2", Kind: "volume"},
		{Name: "persist/vol1@snap", Kind: "snapshot"},
	}}
	assert.Equal(t, []types.ZVolStatus{
		{Dataset: "persist/vol1", Device: "/dev/zvol/persist/vol1"},
		{Dataset: "persist/fs/vol2", Device: "/dev/zvol/persist/fs/vol2"},
	}, ZVolsOfPool(pool))
	assert.Nil(t, ZVolsOfPool(types.Pool{Name: "empty"}))
}
