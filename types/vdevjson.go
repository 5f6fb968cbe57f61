// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v2"
)

// Variant tags of the externally tagged encoding, {"Mirror": {...}}.
const (
	diskTag      = "Disk"
	fileTag      = "File"
	mirrorTag    = "Mirror"
	raidZTag     = "RaidZ"
	replacingTag = "Replacing"
	spareTag     = "Spare"
	rootTag      = "Root"
)

// field sets without methods, so encoding them does not recurse
type (
	diskFields      Disk
	fileFields      File
	mirrorFields    Mirror
	raidZFields     RaidZ
	replacingFields Replacing
	spareFields     Spare
	rootFields      Root
)

func orEmpty(vdevs []VDev) []VDev {
	if vdevs == nil {
		return []VDev{}
	}
	return vdevs
}

func tagJSON(tag string, body interface{}) ([]byte, error) {
	return json.Marshal(map[string]interface{}{tag: body})
}

func tagYAML(tag string, body interface{}) (interface{}, error) {
	return yaml.MapSlice{{Key: tag, Value: body}}, nil
}

// MarshalJSON :
func (d Disk) MarshalJSON() ([]byte, error) { return tagJSON(diskTag, diskFields(d)) }

// MarshalJSON :
func (f File) MarshalJSON() ([]byte, error) { return tagJSON(fileTag, fileFields(f)) }

// MarshalJSON :
func (m Mirror) MarshalJSON() ([]byte, error) {
	m.Children = orEmpty(m.Children)
	return tagJSON(mirrorTag, mirrorFields(m))
}

// MarshalJSON :
func (r RaidZ) MarshalJSON() ([]byte, error) {
	r.Children = orEmpty(r.Children)
	return tagJSON(raidZTag, raidZFields(r))
}

// MarshalJSON :
func (r Replacing) MarshalJSON() ([]byte, error) {
	r.Children = orEmpty(r.Children)
	return tagJSON(replacingTag, replacingFields(r))
}

// MarshalJSON :
func (s Spare) MarshalJSON() ([]byte, error) {
	s.Children = orEmpty(s.Children)
	return tagJSON(spareTag, spareFields(s))
}

// MarshalJSON :
func (r Root) MarshalJSON() ([]byte, error) {
	r.Children = orEmpty(r.Children)
	r.Spares = orEmpty(r.Spares)
	r.Cache = orEmpty(r.Cache)
	return tagJSON(rootTag, rootFields(r))
}

// MarshalYAML :
func (d Disk) MarshalYAML() (interface{}, error) { return tagYAML(diskTag, diskFields(d)) }

// MarshalYAML :
func (f File) MarshalYAML() (interface{}, error) { return tagYAML(fileTag, fileFields(f)) }

// MarshalYAML :
func (m Mirror) MarshalYAML() (interface{}, error) { return tagYAML(mirrorTag, mirrorFields(m)) }

// MarshalYAML :
func (r RaidZ) MarshalYAML() (interface{}, error) { return tagYAML(raidZTag, raidZFields(r)) }

// MarshalYAML :
func (r Replacing) MarshalYAML() (interface{}, error) {
	return tagYAML(replacingTag, replacingFields(r))
}

// MarshalYAML :
func (s Spare) MarshalYAML() (interface{}, error) { return tagYAML(spareTag, spareFields(s)) }

// MarshalYAML :
func (r Root) MarshalYAML() (interface{}, error) { return tagYAML(rootTag, rootFields(r)) }

// UnmarshalJSON accepts only the Root variant.
func (r *Root) UnmarshalJSON(data []byte) error {
	vdev, err := UnmarshalVDevJSON(data)
	if err != nil {
		return err
	}
	root, ok := vdev.(Root)
	if !ok {
		return fmt.Errorf("pool vdev must be %s, got %s", rootTag, vdev.Kind())
	}
	*r = root
	return nil
}

// UnmarshalVDevJSON decodes one externally tagged vdev and its subtree.
func UnmarshalVDevJSON(data []byte) (VDev, error) {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, fmt.Errorf("vdev: %w", err)
	}
	if len(tagged) != 1 {
		return nil, fmt.Errorf("vdev: expected exactly one variant tag, got %d", len(tagged))
	}
	for tag, body := range tagged {
		return decodeVariant(tag, body)
	}
	return nil, nil
}

type compositeJSON struct {
	Children []json.RawMessage `json:"children"`
	Spares   []json.RawMessage `json:"spares"`
	Cache    []json.RawMessage `json:"cache"`
	IsLog    *bool             `json:"is_log"`
	Parity   *uint64           `json:"parity"`
}

func decodeVariant(tag string, body json.RawMessage) (VDev, error) {
	switch tag {
	case diskTag:
		var d Disk
		if err := json.Unmarshal(body, (*diskFields)(&d)); err != nil {
			return nil, fmt.Errorf("%s: %w", tag, err)
		}
		return d, nil
	case fileTag:
		var f File
		if err := json.Unmarshal(body, (*fileFields)(&f)); err != nil {
			return nil, fmt.Errorf("%s: %w", tag, err)
		}
		return f, nil
	}

	var raw compositeJSON
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", tag, err)
	}
	children, err := decodeList(tag, "children", raw.Children)
	if err != nil {
		return nil, err
	}
	switch tag {
	case mirrorTag:
		return Mirror{Children: children, IsLog: raw.IsLog}, nil
	case raidZTag:
		return RaidZ{Children: children, Parity: raw.Parity}, nil
	case replacingTag:
		return Replacing{Children: children}, nil
	case spareTag:
		return Spare{Children: children}, nil
	case rootTag:
		spares, err := decodeList(tag, "spares", raw.Spares)
		if err != nil {
			return nil, err
		}
		cache, err := decodeList(tag, "cache", raw.Cache)
		if err != nil {
			return nil, err
		}
		return Root{Children: children, Spares: spares, Cache: cache}, nil
	}
	return nil, fmt.Errorf("vdev: unknown variant tag %q", tag)
}

func decodeList(tag, group string, items []json.RawMessage) ([]VDev, error) {
	if len(items) == 0 {
		return nil, nil
	}
	vdevs := make([]VDev, 0, len(items))
	for i, item := range items {
		vdev, err := UnmarshalVDevJSON(item)
		if err != nil {
			return nil, fmt.Errorf("%s %s[%d]: %w", tag, group, i, err)
		}
		vdevs = append(vdevs, vdev)
	}
	return vdevs, nil
}
