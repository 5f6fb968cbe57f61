// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build cgo

// Package native implements zfs.Source over libzfs.
package native

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	libzfs "github.com/andrewd-zededa/go-libzfs"
	"github.com/lf-edge/eve/pkg/zfsinfo/base"
	"github.com/lf-edge/eve/pkg/zfsinfo/zfs"
)

// Source reads pools and datasets through libzfs. Calls are serialized.
type Source struct {
	log *base.LogObject
	// libzfs iteration is not safe for concurrent use
	iterLock sync.Mutex
}

var _ zfs.Source = (*Source)(nil)

var (
	propNamesOnce sync.Once
	propsByName   map[string]libzfs.Prop
)

// New returns a Source over the libzfs handle opened at init.
func New(log *base.LogObject) (*Source, error) {
	return &Source{log: log}, nil
}

func datasetProp(name string) (libzfs.Prop, bool) {
	propNamesOnce.Do(func() {
		propsByName = make(map[string]libzfs.Prop)
		for p := libzfs.DatasetPropType; p < libzfs.DatasetNumProps; p++ {
			propsByName[libzfs.DatasetPropertyToName(p)] = p
		}
	})
	p, ok := propsByName[name]
	return p, ok
}

func isNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "not found") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "no such pool")
}

func toVDevNode(tree libzfs.VDevTree) vdevNode {
	n := vdevNode{
		Type:   string(tree.Type),
		Name:   tree.Name,
		Path:   tree.Path,
		GUID:   tree.GUID,
		Parity: tree.Parity,
		State:  tree.Stat.State.String(),
	}
	for _, dev := range tree.Devices {
		n.Devices = append(n.Devices, toVDevNode(dev))
	}
	if tree.Logs != nil {
		logs := toVDevNode(*tree.Logs)
		n.Logs = &logs
	}
	for _, dev := range tree.Spares {
		n.Spares = append(n.Spares, toVDevNode(dev))
	}
	for _, dev := range tree.L2Cache {
		n.L2Cache = append(n.L2Cache, toVDevNode(dev))
	}
	return n
}

func toDatasetNode(d libzfs.Dataset) datasetNode {
	n := datasetNode{
		Name: d.Properties[libzfs.DatasetPropName].Value,
		Type: d.Properties[libzfs.DatasetPropType].Value,
		GUID: d.Properties[libzfs.DatasetPropGUID].Value,
	}
	for _, child := range d.Children {
		n.Children = append(n.Children, toDatasetNode(child))
	}
	return n
}

func (s *Source) poolRecord(pool *libzfs.Pool) (zfs.Record, error) {
	rec := zfs.Record{}
	for key, p := range map[string]libzfs.Prop{
		zfs.PoolKeyName:     libzfs.PoolPropName,
		zfs.PoolKeyGUID:     libzfs.PoolPropGUID,
		zfs.PoolKeyHealth:   libzfs.PoolPropHealth,
		zfs.PoolKeySize:     libzfs.PoolPropSize,
		zfs.PoolKeyReadOnly: libzfs.PoolPropReadonly,
	} {
		prop, err := pool.GetProperty(p)
		if err != nil {
			return nil, fmt.Errorf("get property %s: %w", key, err)
		}
		rec[key] = prop.Value
	}
	state, err := pool.State()
	if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	rec[zfs.PoolKeyState] = state.String()
	if hostname, err := os.Hostname(); err == nil {
		rec[zfs.PoolKeyHostname] = hostname
	}

	err = setVDevTree(rec, func() (vdevNode, error) {
		vdevs, err := pool.VDevTree()
		return toVDevNode(vdevs), err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ImportedPoolRecords opens every imported pool.
func (s *Source) ImportedPoolRecords(ctx context.Context) ([]zfs.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.iterLock.Lock()
	defer s.iterLock.Unlock()
	pools, err := libzfs.PoolOpenAll()
	if err != nil {
		return nil, fmt.Errorf("PoolOpenAll: %w", err)
	}
	defer libzfs.PoolCloseAll(pools)
	recs := make([]zfs.Record, 0, len(pools))
	for i := range pools {
		rec, err := s.poolRecord(&pools[i])
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// PoolRecord opens one pool by name.
func (s *Source) PoolRecord(ctx context.Context, name string) (zfs.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.iterLock.Lock()
	defer s.iterLock.Unlock()
	pool, err := libzfs.PoolOpen(name)
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("PoolOpen(%s): %w", name, err)
	}
	defer pool.Close()
	rec, err := s.poolRecord(&pool)
	if err != nil {
		return nil, false, fmt.Errorf("pool %s: %w", name, err)
	}
	return rec, true, nil
}

// DatasetRecords opens the pool's root dataset with all descendants.
func (s *Source) DatasetRecords(ctx context.Context, pool string) ([]zfs.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.iterLock.Lock()
	defer s.iterLock.Unlock()
	root, err := libzfs.DatasetOpen(pool)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("DatasetOpen(%s): %w", pool, err)
	}
	defer root.Close()
	return datasetRecords(toDatasetNode(root)), nil
}

// DatasetExists opens the dataset alone.
func (s *Source) DatasetExists(ctx context.Context, dataset string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.iterLock.Lock()
	defer s.iterLock.Unlock()
	d, err := libzfs.DatasetOpenSingle(dataset)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	d.Close()
	return true, nil
}

func (s *Source) getProperty(ctx context.Context, dataset, prop string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.iterLock.Lock()
	defer s.iterLock.Unlock()
	d, err := libzfs.DatasetOpenSingle(dataset)
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	defer d.Close()

	var value libzfs.Property
	if zfs.IsUserProperty(prop) {
		value, err = d.GetUserProperty(prop)
	} else {
		p, ok := datasetProp(prop)
		if !ok {
			// userused@ and friends have no libzfs.Prop
			s.log.Tracef("getProperty: %s has no libzfs property", prop)
			return "", false, nil
		}
		value, err = d.GetProperty(p)
	}
	if err != nil {
		// libzfs fails a property that does not apply to the dataset type
		s.log.Tracef("getProperty: %s of %s: %v", prop, dataset, err)
		return "", false, nil
	}
	if value.Value == "-" || value.Value == "" {
		return "", false, nil
	}
	return value.Value, true, nil
}

// DatasetStringProperty returns the value of a text property.
func (s *Source) DatasetStringProperty(ctx context.Context, dataset, prop string) (string, bool, error) {
	if !zfs.PropertyKind(prop).IsText() {
		return "", false, nil
	}
	return s.getProperty(ctx, dataset, prop)
}

// DatasetUint64Property returns the value of a numeric property.
func (s *Source) DatasetUint64Property(ctx context.Context, dataset, prop string) (uint64, bool, error) {
	kind := zfs.PropertyKind(prop)
	if !kind.IsNumeric() {
		return 0, false, nil
	}
	value, ok, err := s.getProperty(ctx, dataset, prop)
	if err != nil || !ok {
		return 0, false, err
	}
	n, err := zfs.ParseNumericValue(value)
	if err != nil {
		if kind != zfs.PropKindNumber {
			// an index word such as lz4
			return 0, false, nil
		}
		s.log.Warnf("DatasetUint64Property: %s of %s: %v", prop, dataset, err)
		return 0, false, nil
	}
	return n, true, nil
}
