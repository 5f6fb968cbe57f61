// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package zfs

import (
	"context"
)

// Source is the collaborator which knows how to reach the pools: the
// zpool/zfs commands, libzfs or a captured snapshot. Every method reports
// absence through its bool result; an error always means the Source
// itself failed.
type Source interface {
	// PoolRecord returns the record of an imported pool, see the PoolKey
	// constants for its fields.
	PoolRecord(ctx context.Context, name string) (Record, bool, error)
	// ImportedPoolRecords returns the records of all imported pools.
	ImportedPoolRecords(ctx context.Context) ([]Record, error)
	// DatasetRecords returns every dataset of the pool, the pool's root
	// dataset included, parents before children.
	DatasetRecords(ctx context.Context, pool string) ([]Record, error)
	// DatasetStringProperty returns a property which is not numeric.
	DatasetStringProperty(ctx context.Context, dataset, prop string) (string, bool, error)
	// DatasetUint64Property returns a numeric property.
	DatasetUint64Property(ctx context.Context, dataset, prop string) (uint64, bool, error)
	// DatasetExists reports whether the dataset is present.
	DatasetExists(ctx context.Context, dataset string) (bool, error)
}
