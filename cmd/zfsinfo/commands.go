// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lf-edge/eve/pkg/zfsinfo/types"
	"github.com/lf-edge/eve/pkg/zfsinfo/zfs"
	"github.com/lf-edge/eve/pkg/zfsinfo/zfs/zvolwatch"
	"github.com/spf13/cobra"
)

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// PoolSummary is a pool with its computed redundancy
type PoolSummary struct {
	types.Pool `yaml:",inline"`
	Redundancy string `json:"redundancy" yaml:"redundancy"`
}

func summarize(pool types.Pool) PoolSummary {
	return PoolSummary{Pool: pool, Redundancy: zfs.PoolRedundancy(pool.VDev).String()}
}

func (a *app) poolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pools",
		Short: "list all imported pools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			pools, skipped, err := a.querier.GetImportedPoolsReport(ctx)
			if err != nil {
				return err
			}
			if len(skipped) > 0 {
				a.log.Warnf("pools: %d pool(s) skipped", len(skipped))
			}
			summaries := make([]PoolSummary, 0, len(pools))
			for _, pool := range pools {
				summaries = append(summaries, summarize(pool))
			}
			return a.render(summaries)
		},
	}
}

func (a *app) getPool(cmd *cobra.Command, name string) (types.Pool, error) {
	ctx, cancel := signalContext(cmd)
	defer cancel()
	pool, found, err := a.querier.GetPoolByName(ctx, name)
	if err != nil {
		return pool, err
	}
	if !found {
		return pool, fmt.Errorf("pool %s: %w", name, errAbsent)
	}
	return pool, nil
}

func (a *app) poolCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "pool <name>",
		Short:   "show one imported pool",
		Example: "zfsinfo pool persist -o yaml",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := a.getPool(cmd, args[0])
			if err != nil {
				return err
			}
			return a.render(summarize(pool))
		},
	}
}

func (a *app) treeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree <name>",
		Short: "print the vdev tree of a pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := a.getPool(cmd, args[0])
			if err != nil {
				return err
			}
			return writeTree(a.out, pool)
		},
	}
}

// PropertyValue is the result of the prop command
type PropertyValue struct {
	Dataset  string      `json:"dataset" yaml:"dataset"`
	Property string      `json:"property" yaml:"property"`
	Kind     string      `json:"kind" yaml:"kind"`
	Value    interface{} `json:"value" yaml:"value"`
}

func (a *app) propCmd() *cobra.Command {
	var (
		asUint64 bool
		strict   bool
	)
	cmd := &cobra.Command{
		Use:     "prop <dataset> <property>",
		Short:   "look up a dataset property",
		Example: "zfsinfo prop persist/vault used --uint64",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			dataset, prop := args[0], args[1]
			result := PropertyValue{Dataset: dataset, Property: prop,
				Kind: zfs.PropertyKind(prop).String()}
			var (
				found bool
				err   error
			)
			if asUint64 {
				var value uint64
				if strict {
					value, found, err = a.querier.LookupDatasetUint64Prop(ctx, dataset, prop)
				} else {
					value, found, err = a.querier.GetDatasetUint64Prop(ctx, dataset, prop)
				}
				result.Value = value
			} else {
				var value string
				if strict {
					value, found, err = a.querier.LookupDatasetStringProp(ctx, dataset, prop)
				} else {
					value, found, err = a.querier.GetDatasetStringProp(ctx, dataset, prop)
				}
				result.Value = value
			}
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("property %s of %s: %w", prop, dataset, errAbsent)
			}
			return a.render(result)
		},
	}
	cmd.Flags().BoolVar(&asUint64, "uint64", false, "read a numeric property")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when the dataset does not exist")
	return cmd
}

func (a *app) zvolsCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "zvols",
		Short: "map zvol devices to their datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			if watch {
				return a.watchZVols(ctx)
			}
			pools, err := a.querier.GetImportedPools(ctx)
			if err != nil {
				return err
			}
			zvols := []types.ZVolStatus{}
			for _, pool := range pools {
				zvols = append(zvols, zfs.ZVolsOfPool(pool)...)
			}
			return a.render(zvols)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "follow devices appearing under "+types.ZVolDevicePrefix)
	return cmd
}

// ZVolEvent is one line printed by zvols --watch
type ZVolEvent struct {
	Action  string `json:"action" yaml:"action"`
	Device  string `json:"device" yaml:"device"`
	Dataset string `json:"dataset,omitempty" yaml:"dataset,omitempty"`
}

func (a *app) watchZVols(ctx context.Context) error {
	watcher := &zvolwatch.Watcher{Log: a.log}
	events := make(chan zvolwatch.Event)
	done := make(chan error, 1)
	go func() {
		done <- watcher.Run(ctx, events)
	}()
	for {
		select {
		case err := <-done:
			if ctx.Err() != nil {
				return nil
			}
			return err
		case ev := <-events:
			out := ZVolEvent{Action: "add", Device: ev.Device, Dataset: ev.Dataset}
			if ev.Delete {
				out.Action = "remove"
			}
			if err := a.renderLine(out); err != nil {
				return err
			}
		}
	}
}
