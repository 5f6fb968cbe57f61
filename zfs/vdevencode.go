// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package zfs

import (
	"github.com/lf-edge/eve/pkg/zfsinfo/types"
)

// EncodeVDev converts a tree back into a config record such that
// building the record yields an equal tree. Flags are encoded as 0/1
// numbers the way the pool config carries them.
func EncodeVDev(vdev types.VDev) Record {
	rec := Record{KeyType: string(vdev.Kind())}
	switch v := vdev.(type) {
	case types.Disk:
		rec[KeyPath] = v.Path
		putString(rec, KeyPhysPath, v.PhysPath)
		putString(rec, KeyDevID, v.DevID)
		putBool(rec, KeyWholeDisk, v.WholeDisk)
		rec[KeyIsLog] = flag(v.IsLog)
		putUint64(rec, KeyGUID, v.GUID)
		putString(rec, KeyState, v.State)
	case types.File:
		rec[KeyPath] = v.Path
		rec[KeyIsLog] = flag(v.IsLog)
		putUint64(rec, KeyGUID, v.GUID)
		putString(rec, KeyState, v.State)
	case types.Mirror:
		rec[KeyChildren] = encodeGroup(v.Children)
		putBool(rec, KeyIsLog, v.IsLog)
	case types.RaidZ:
		rec[KeyChildren] = encodeGroup(v.Children)
		putUint64(rec, KeyNParity, v.Parity)
	case types.Replacing:
		rec[KeyChildren] = encodeGroup(v.Children)
	case types.Spare:
		rec[KeyChildren] = encodeGroup(v.Children)
	case types.Root:
		rec[KeyChildren] = encodeGroup(v.Children)
		if len(v.Spares) > 0 {
			rec[KeySpares] = encodeGroup(v.Spares)
		}
		if len(v.Cache) > 0 {
			rec[KeyL2Cache] = encodeGroup(v.Cache)
		}
	}
	return rec
}

func encodeGroup(vdevs []types.VDev) []interface{} {
	items := make([]interface{}, 0, len(vdevs))
	for _, vdev := range vdevs {
		items = append(items, EncodeVDev(vdev))
	}
	return items
}

func flag(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func putString(rec Record, key string, s *string) {
	if s != nil {
		rec[key] = *s
	}
}

func putUint64(rec Record, key string, n *uint64) {
	if n != nil {
		rec[key] = *n
	}
}

func putBool(rec Record, key string, b *bool) {
	if b != nil {
		rec[key] = flag(*b)
	}
}
