// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package fixture implements zfs.Source over a YAML snapshot of pools,
// such as one captured on a device for later inspection.
package fixture

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/lf-edge/eve/pkg/zfsinfo/zfs"
	"gopkg.in/yaml.v2"
)

// Document is the layout of a snapshot file:
//
//	pools:
//	  - name: persist
//	    guid: 1311768467294899695
//	    vdev_tree: {type: root, children: [...]}
//	    datasets:
//	      - {name: persist, type: filesystem, guid: 7, props: {used: 4096}}
type Document struct {
	Pools []PoolEntry `yaml:"pools"`
}

// PoolEntry is a pool record plus its datasets.
type PoolEntry struct {
	Record   map[string]interface{} `yaml:",inline"`
	Datasets []DatasetEntry         `yaml:"datasets"`
}

// DatasetEntry is a dataset with its properties. Integer values are
// numeric properties, everything else is text.
type DatasetEntry struct {
	Name  string                 `yaml:"name"`
	Type  string                 `yaml:"type"`
	GUID  *uint64                `yaml:"guid,omitempty"`
	Props map[string]interface{} `yaml:"props,omitempty"`
}

// Source serves a parsed Document. It is read only after Parse.
type Source struct {
	pools    []PoolEntry
	datasets map[string]*DatasetEntry
}

var _ zfs.Source = (*Source)(nil)

// Load reads and parses a snapshot file.
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse builds a Source from snapshot content.
func Parse(data []byte) (*Source, error) {
	var doc Document
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, err
	}
	s := &Source{
		pools:    doc.Pools,
		datasets: make(map[string]*DatasetEntry),
	}
	for i := range s.pools {
		pool := &s.pools[i]
		name, ok := pool.Record[zfs.PoolKeyName].(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("pool %d: no name", i)
		}
		for j := range pool.Datasets {
			ds := &pool.Datasets[j]
			if _, dup := s.datasets[ds.Name]; dup {
				return nil, fmt.Errorf("pool %s: dataset %s listed twice", name, ds.Name)
			}
			s.datasets[ds.Name] = ds
		}
	}
	return s, nil
}

// Write marshals a snapshot in the layout Parse reads.
func Write(path string, doc Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func poolRecord(pool PoolEntry) zfs.Record {
	rec := make(zfs.Record, len(pool.Record))
	for k, v := range pool.Record {
		rec[k] = v
	}
	return rec
}

func (s *Source) findPool(name string) (PoolEntry, bool) {
	for _, pool := range s.pools {
		if pool.Record[zfs.PoolKeyName] == name {
			return pool, true
		}
	}
	return PoolEntry{}, false
}

// PoolRecord returns the named pool.
func (s *Source) PoolRecord(ctx context.Context, name string) (zfs.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	pool, ok := s.findPool(name)
	if !ok {
		return nil, false, nil
	}
	return poolRecord(pool), true, nil
}

// ImportedPoolRecords returns every pool in document order.
func (s *Source) ImportedPoolRecords(ctx context.Context) ([]zfs.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recs := make([]zfs.Record, 0, len(s.pools))
	for _, pool := range s.pools {
		recs = append(recs, poolRecord(pool))
	}
	return recs, nil
}

// DatasetRecords returns the datasets listed under the pool.
func (s *Source) DatasetRecords(ctx context.Context, pool string) ([]zfs.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry, ok := s.findPool(pool)
	if !ok {
		return nil, nil
	}
	var recs []zfs.Record
	for _, ds := range entry.Datasets {
		rec := zfs.Record{
			zfs.DatasetKeyName: ds.Name,
			zfs.DatasetKeyType: ds.Type,
		}
		if ds.GUID != nil {
			rec[zfs.DatasetKeyGUID] = *ds.GUID
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// DatasetExists reports whether the dataset is listed.
func (s *Source) DatasetExists(ctx context.Context, dataset string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := s.datasets[dataset]
	return ok, nil
}

// property returns the raw value, falling back to the dataset's own
// type and guid.
func (s *Source) property(dataset, prop string) (interface{}, bool) {
	ds, ok := s.datasets[dataset]
	if !ok {
		return nil, false
	}
	if v, ok := ds.Props[prop]; ok && v != nil {
		return v, true
	}
	switch prop {
	case "name":
		return ds.Name, true
	case "type":
		if ds.Type != "" {
			return ds.Type, true
		}
	case "guid":
		if ds.GUID != nil {
			return *ds.GUID, true
		}
	}
	return nil, false
}

func isInteger(v interface{}) bool {
	switch v.(type) {
	case int, int64, uint64:
		return true
	}
	return false
}

// DatasetStringProperty returns a property as text. Integers of numeric
// properties are absent; an integer index value such as copies is printed.
func (s *Source) DatasetStringProperty(ctx context.Context, dataset, prop string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, ok := s.property(dataset, prop)
	if !ok || (isInteger(v) && zfs.PropertyKind(prop) == zfs.PropKindNumber) {
		return "", false, nil
	}
	switch v := v.(type) {
	case string:
		return v, true, nil
	case bool:
		// YAML 1.1 reads on/off as booleans
		if v {
			return "on", true, nil
		}
		return "off", true, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true, nil
	}
	return fmt.Sprint(v), true, nil
}

// DatasetUint64Property returns an integer property.
func (s *Source) DatasetUint64Property(ctx context.Context, dataset, prop string) (uint64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	v, ok := s.property(dataset, prop)
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		if n >= 0 {
			return uint64(n), true, nil
		}
	case int64:
		if n >= 0 {
			return uint64(n), true, nil
		}
	case uint64:
		return n, true, nil
	}
	return 0, false, nil
}
