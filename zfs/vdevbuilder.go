// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package zfs

import (
	"fmt"

	"github.com/lf-edge/eve/pkg/zfsinfo/base"
	"github.com/lf-edge/eve/pkg/zfsinfo/types"
)

// VDevBuilder converts config records into vdev trees.
// In Strict mode a mirror, raidz or replacing vdev without children is
// an error, otherwise it is kept and a warning is logged. A spare vdev
// is briefly empty while a hot spare detaches and is always accepted.
type VDevBuilder struct {
	Log    *base.LogObject
	Strict bool
}

// BuildVDev builds a tree with a default, non-strict builder.
func BuildVDev(rec Record) (types.VDev, error) {
	return (&VDevBuilder{}).Build(rec)
}

// BuildRoot builds the tree of a pool; the record must be of type root.
func (b *VDevBuilder) BuildRoot(rec Record) (types.Root, error) {
	vdev, err := b.Build(rec)
	if err != nil {
		return types.Root{}, err
	}
	root, ok := vdev.(types.Root)
	if !ok {
		return types.Root{}, &NotRootedError{Kind: string(vdev.Kind())}
	}
	return root, nil
}

// Build converts rec and its descendants, failing on the first
// malformed record.
func (b *VDevBuilder) Build(rec Record) (types.VDev, error) {
	raw, ok := rec[KeyType]
	if !ok || raw == nil {
		return nil, &UnknownVDevKindError{}
	}
	tag, ok := raw.(string)
	if !ok {
		return nil, &UnknownVDevKindError{Kind: fmt.Sprint(raw)}
	}
	kind := types.VDevKind(tag)

	switch kind {
	case types.VDevKindDisk:
		return b.buildDisk(rec)
	case types.VDevKindFile:
		return b.buildFile(rec)
	case types.VDevKindMirror:
		children, err := b.buildComposite(kind, rec)
		if err != nil {
			return nil, err
		}
		isLog, err := optBool(kind, rec, KeyIsLog)
		if err != nil {
			return nil, err
		}
		return types.Mirror{Children: children, IsLog: isLog}, nil
	case types.VDevKindRaidZ:
		children, err := b.buildComposite(kind, rec)
		if err != nil {
			return nil, err
		}
		parity, err := optUint64(kind, rec, KeyNParity)
		if err != nil {
			return nil, err
		}
		return types.RaidZ{Children: children, Parity: parity}, nil
	case types.VDevKindReplacing:
		children, err := b.buildComposite(kind, rec)
		if err != nil {
			return nil, err
		}
		return types.Replacing{Children: children}, nil
	case types.VDevKindSpare:
		children, err := b.buildGroup(kind, rec, KeyChildren)
		if err != nil {
			return nil, err
		}
		return types.Spare{Children: children}, nil
	case types.VDevKindRoot:
		return b.buildRoot(rec)
	}
	return nil, &UnknownVDevKindError{Kind: tag}
}

func (b *VDevBuilder) buildDisk(rec Record) (types.VDev, error) {
	kind := types.VDevKindDisk
	var (
		disk types.Disk
		err  error
	)
	if disk.Path, err = leafPath(kind, rec); err != nil {
		return nil, err
	}
	if disk.PhysPath, err = optString(kind, rec, KeyPhysPath); err != nil {
		return nil, err
	}
	if disk.DevID, err = optString(kind, rec, KeyDevID); err != nil {
		return nil, err
	}
	if disk.WholeDisk, err = optBool(kind, rec, KeyWholeDisk); err != nil {
		return nil, err
	}
	isLog, err := optBool(kind, rec, KeyIsLog)
	if err != nil {
		return nil, err
	}
	disk.IsLog = isLog != nil && *isLog
	if disk.GUID, err = optUint64(kind, rec, KeyGUID); err != nil {
		return nil, err
	}
	if disk.State, err = optString(kind, rec, KeyState); err != nil {
		return nil, err
	}
	return disk, nil
}

func (b *VDevBuilder) buildFile(rec Record) (types.VDev, error) {
	kind := types.VDevKindFile
	var (
		file types.File
		err  error
	)
	if file.Path, err = leafPath(kind, rec); err != nil {
		return nil, err
	}
	isLog, err := optBool(kind, rec, KeyIsLog)
	if err != nil {
		return nil, err
	}
	file.IsLog = isLog != nil && *isLog
	if file.GUID, err = optUint64(kind, rec, KeyGUID); err != nil {
		return nil, err
	}
	if file.State, err = optString(kind, rec, KeyState); err != nil {
		return nil, err
	}
	return file, nil
}

func (b *VDevBuilder) buildRoot(rec Record) (types.VDev, error) {
	kind := types.VDevKindRoot
	children, err := b.buildGroup(kind, rec, KeyChildren)
	if err != nil {
		return nil, err
	}
	spares, err := b.buildGroup(kind, rec, KeySpares)
	if err != nil {
		return nil, err
	}
	cache, err := b.buildGroup(kind, rec, KeyL2Cache)
	if err != nil {
		return nil, err
	}
	return types.Root{Children: children, Spares: spares, Cache: cache}, nil
}

func (b *VDevBuilder) buildComposite(kind types.VDevKind, rec Record) ([]types.VDev, error) {
	children, err := b.buildGroup(kind, rec, KeyChildren)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		if b.Strict {
			return nil, &EmptyCompositeError{Kind: kind}
		}
		if b.Log != nil {
			b.Log.Warnf("Build: %s vdev has no children", kind)
		}
	}
	return children, nil
}

// buildGroup builds the records listed under key in order.
func (b *VDevBuilder) buildGroup(kind types.VDevKind, rec Record, key string) ([]types.VDev, error) {
	items, ok, err := rec.List(key)
	if err != nil {
		return nil, &InvalidFieldError{Kind: string(kind), Field: key, Value: rec[key]}
	}
	if !ok || len(items) == 0 {
		return nil, nil
	}
	vdevs := make([]types.VDev, 0, len(items))
	for i, item := range items {
		childRec, ok := toRecord(item)
		if !ok {
			return nil, &MalformedChildError{ParentKind: kind, Group: key, Index: i,
				Err: &InvalidFieldError{Kind: string(kind), Field: key, Value: item}}
		}
		child, err := b.Build(childRec)
		if err != nil {
			return nil, &MalformedChildError{ParentKind: kind, Group: key, Index: i, Err: err}
		}
		vdevs = append(vdevs, child)
	}
	return vdevs, nil
}

func leafPath(kind types.VDevKind, rec Record) (string, error) {
	path, ok, err := rec.String(KeyPath)
	if err != nil {
		return "", &InvalidFieldError{Kind: string(kind), Field: KeyPath, Value: rec[KeyPath]}
	}
	if !ok || path == "" {
		return "", &MissingFieldError{Kind: string(kind), Field: KeyPath}
	}
	return path, nil
}

func optString(kind types.VDevKind, rec Record, key string) (*string, error) {
	s, ok, err := rec.String(key)
	if err != nil {
		return nil, &InvalidFieldError{Kind: string(kind), Field: key, Value: rec[key]}
	}
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func optUint64(kind types.VDevKind, rec Record, key string) (*uint64, error) {
	n, ok, err := rec.Uint64(key)
	if err != nil {
		return nil, &InvalidFieldError{Kind: string(kind), Field: key, Value: rec[key]}
	}
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func optBool(kind types.VDevKind, rec Record, key string) (*bool, error) {
	v, ok, err := rec.Bool(key)
	if err != nil {
		return nil, &InvalidFieldError{Kind: string(kind), Field: key, Value: rec[key]}
	}
	if !ok {
		return nil, nil
	}
	return &v, nil
}
