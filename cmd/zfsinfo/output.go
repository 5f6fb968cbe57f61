// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lf-edge/eve/pkg/zfsinfo/config"
	"github.com/lf-edge/eve/pkg/zfsinfo/types"
	"github.com/lf-edge/eve/pkg/zfsinfo/zfs"
	"gopkg.in/yaml.v2"
)

func (a *app) render(v interface{}) error {
	if a.cfg.Output == config.OutputYAML {
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = a.out.Write(data)
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "%s\n", data)
	return err
}

// renderLine writes v on a single line, as a YAML flow mapping or
// compact JSON
func (a *app) renderLine(v interface{}) error {
	if a.cfg.Output == config.OutputYAML {
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(a.out, "---\n%s", data)
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "%s\n", data)
	return err
}

func vdevLabel(v types.VDev) string {
	var label string
	switch v := v.(type) {
	case types.Disk:
		label = "disk " + v.Path
		if v.State != nil {
			label += " " + *v.State
		}
	case types.File:
		label = "file " + v.Path
		if v.State != nil {
			label += " " + *v.State
		}
	case types.RaidZ:
		label = "raidz"
		if v.Parity != nil {
			label = fmt.Sprintf("raidz%d", *v.Parity)
		}
	default:
		label = string(v.Kind())
	}
	if types.IsLogDevice(v) {
		label += " (log)"
	}
	return label
}

// writeTree prints the pool's vdevs indented by depth, followed by the
// redundancy of its data devices.
func writeTree(w io.Writer, pool types.Pool) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", pool.Name, pool.UID, pool.Health)
	err := types.Walk(pool.VDev, func(v types.VDev, group string, path []int) error {
		if len(path) == 0 {
			return nil
		}
		if len(path) == 1 && path[0] == 0 && group != "children" {
			fmt.Fprintf(&b, "%s\n", group)
		}
		fmt.Fprintf(&b, "%s%s\n", strings.Repeat("  ", len(path)), vdevLabel(v))
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(&b, "redundancy: %s\n", zfs.PoolRedundancy(pool.VDev))
	_, err = io.WriteString(w, b.String())
	return err
}
