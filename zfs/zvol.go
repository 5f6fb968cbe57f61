// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package zfs

import (
	"path/filepath"
	"strings"

	"github.com/lf-edge/eve/pkg/zfsinfo/types"
)

//GetDatasetByDevice returns dataset for provided device path
func GetDatasetByDevice(device string) string {
	if !strings.HasPrefix(device, types.ZVolDevicePrefix+"/") {
		return ""
	}
	return strings.TrimLeft(strings.TrimPrefix(device, types.ZVolDevicePrefix), "/")
}

//GetZVolDeviceByDataset return path to device for provided dataset
func GetZVolDeviceByDataset(dataset string) string {
	return filepath.Join(types.ZVolDevicePrefix, dataset)
}

// ZVolsOfPool returns the zvol device of every volume dataset of the
// pool, in dataset order.
func ZVolsOfPool(pool types.Pool) []types.ZVolStatus {
	var zvols []types.ZVolStatus
	for _, ds := range pool.Datasets {
		if !ds.IsVolume() {
			continue
		}
		zvols = append(zvols, types.ZVolStatus{
			Dataset: ds.Name,
			Device:  GetZVolDeviceByDataset(ds.Name),
		})
	}
	return zvols
}
