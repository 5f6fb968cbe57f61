// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package zfs

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is an untyped configuration record as handed over by a Source.
// Keys follow the pool config nvlist names (type, path, children, ...).
type Record map[string]interface{}

// Config record keys
const (
	KeyType      = "type"
	KeyPath      = "path"
	KeyPhysPath  = "phys_path"
	KeyDevID     = "devid"
	KeyWholeDisk = "whole_disk"
	KeyIsLog     = "is_log"
	KeyGUID      = "guid"
	KeyNParity   = "nparity"
	KeyState     = "state"
	KeyChildren  = "children"
	KeySpares    = "spares"
	KeyL2Cache   = "l2cache"
)

// Pool record keys
const (
	PoolKeyName     = "name"
	PoolKeyGUID     = "guid"
	PoolKeyHostname = "hostname"
	PoolKeyHostID   = "hostid"
	PoolKeyState    = "state"
	PoolKeyHealth   = "health"
	PoolKeySize     = "size"
	PoolKeyReadOnly = "readonly"
	PoolKeyVDevTree = "vdev_tree"
)

// Dataset record keys
const (
	DatasetKeyName = "name"
	DatasetKeyType = "type"
	DatasetKeyGUID = "guid"
)

// toRecord accepts the map shapes produced by the sources and decoders
// (yaml.v2 yields map[interface{}]interface{}).
func toRecord(v interface{}) (Record, bool) {
	switch m := v.(type) {
	case Record:
		return m, true
	case map[string]interface{}:
		return Record(m), true
	case map[interface{}]interface{}:
		rec := make(Record, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			rec[key] = val
		}
		return rec, true
	}
	return nil, false
}

func toList(v interface{}) ([]interface{}, bool) {
	switch l := v.(type) {
	case []interface{}:
		return l, true
	case []Record:
		out := make([]interface{}, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out, true
	case []map[string]interface{}:
		out := make([]interface{}, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out, true
	}
	return nil, false
}

// toUint64 accepts any integer type, an integral float64 (JSON) or a
// decimal string (command output).
func toUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case uint:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case int:
		return uint64(n), n >= 0
	case int64:
		return uint64(n), n >= 0
	case int32:
		return uint64(n), n >= 0
	case int16:
		return uint64(n), n >= 0
	case int8:
		return uint64(n), n >= 0
	case float64:
		if n < 0 || n != math.Trunc(n) || n >= float64(1<<64) {
			return 0, false
		}
		return uint64(n), true
	case string:
		u, err := strconv.ParseUint(strings.TrimSpace(n), 10, 64)
		return u, err == nil
	}
	return 0, false
}

// toBool accepts a bool, a number (nvlist flags are uint64 0/1) or the
// strings on/off, yes/no, true/false.
func toBool(v interface{}) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "on", "yes", "true":
			return true, true
		case "off", "no", "false":
			return false, true
		}
	}
	if n, ok := toUint64(v); ok {
		return n != 0, true
	}
	return false, false
}

func (rec Record) has(key string) bool {
	v, ok := rec[key]
	return ok && v != nil
}

// String returns a string field. ok is false when the key is absent;
// err is set when present with another type.
func (rec Record) String(key string) (string, bool, error) {
	if !rec.has(key) {
		return "", false, nil
	}
	s, ok := rec[key].(string)
	if !ok {
		return "", false, fmt.Errorf("%s is %T, not a string", key, rec[key])
	}
	return s, true, nil
}

// Uint64 returns a numeric field, see toUint64 for accepted shapes.
func (rec Record) Uint64(key string) (uint64, bool, error) {
	if !rec.has(key) {
		return 0, false, nil
	}
	n, ok := toUint64(rec[key])
	if !ok {
		return 0, false, fmt.Errorf("%s is %v, not an unsigned number", key, rec[key])
	}
	return n, true, nil
}

// Bool returns a flag field, see toBool for accepted shapes.
func (rec Record) Bool(key string) (bool, bool, error) {
	if !rec.has(key) {
		return false, false, nil
	}
	b, ok := toBool(rec[key])
	if !ok {
		return false, false, fmt.Errorf("%s is %v, not a flag", key, rec[key])
	}
	return b, true, nil
}

// List returns a list field.
func (rec Record) List(key string) ([]interface{}, bool, error) {
	if !rec.has(key) {
		return nil, false, nil
	}
	l, ok := toList(rec[key])
	if !ok {
		return nil, false, fmt.Errorf("%s is %T, not a list", key, rec[key])
	}
	return l, true, nil
}

// Nested returns a nested record field.
func (rec Record) Nested(key string) (Record, bool, error) {
	if !rec.has(key) {
		return nil, false, nil
	}
	r, ok := toRecord(rec[key])
	if !ok {
		return nil, false, fmt.Errorf("%s is %T, not a record", key, rec[key])
	}
	return r, true, nil
}
