// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package zfs

import (
	"context"
	"fmt"
	"os"

	"github.com/lf-edge/eve/pkg/zfsinfo/base"
	"github.com/lf-edge/eve/pkg/zfsinfo/types"
	"github.com/sirupsen/logrus"
)

// EnumerationPolicy decides what GetImportedPools does with a pool whose
// record cannot be built.
type EnumerationPolicy int

const (
	// SkipInvalid logs and reports the bad pool and keeps going
	SkipInvalid EnumerationPolicy = iota
	// FailFast returns the first build failure
	FailFast
)

func (p EnumerationPolicy) String() string {
	if p == FailFast {
		return "fail-fast"
	}
	return "skip-invalid"
}

// PoolError is a pool skipped during enumeration.
type PoolError struct {
	Pool string
	Err  error
}

func (e PoolError) Error() string {
	return e.Err.Error()
}

// Querier answers pool and dataset questions from a Source.
// It holds no state between calls; every result is built afresh.
type Querier struct {
	Source      Source
	Log         *base.LogObject
	Policy      EnumerationPolicy
	StrictVDevs bool
}

// NewQuerier returns a Querier with the default SkipInvalid policy.
func NewQuerier(source Source, log *base.LogObject) *Querier {
	return &Querier{Source: source, Log: log}
}

// log falls back to a source object on the standard logger when Log is
// nil. q is never written, so a zero Querier is safe for concurrent use.
func (q *Querier) log() *base.LogObject {
	if q.Log != nil {
		return q.Log
	}
	return base.NewSourceLogObject(logrus.StandardLogger(), "zfsinfo", os.Getpid())
}

// poolLog is a per call clone; nothing is cached for the pool.
func (q *Querier) poolLog(name string) *base.LogObject {
	if name == "" {
		return q.log()
	}
	return q.log().CloneAndAddField("log_event_type", base.LogObjectEventType).
		AddField("obj_type", base.ZpoolLogType).
		AddField("obj_name", name).
		AddField("obj_key", types.Pool{Name: name}.LogKey())
}

// GetPoolByName returns the imported pool called name. A pool which is
// not imported is reported with false and no error.
func (q *Querier) GetPoolByName(ctx context.Context, name string) (types.Pool, bool, error) {
	q.log().Functionf("GetPoolByName(%s)", name)
	rec, found, err := q.Source.PoolRecord(ctx, name)
	if err != nil {
		return types.Pool{}, false, fmt.Errorf("GetPoolByName(%s): %w", name, err)
	}
	if !found {
		return types.Pool{}, false, nil
	}
	pool, err := q.buildPool(ctx, rec)
	if err != nil {
		return types.Pool{}, false, err
	}
	return pool, true, nil
}

// GetImportedPools returns every imported pool which could be built.
// Pools failing to build are handled per q.Policy.
func (q *Querier) GetImportedPools(ctx context.Context) ([]types.Pool, error) {
	pools, _, err := q.GetImportedPoolsReport(ctx)
	return pools, err
}

// GetImportedPoolsReport is GetImportedPools also returning the pools
// skipped under SkipInvalid. A Source failure aborts under any policy.
func (q *Querier) GetImportedPoolsReport(ctx context.Context) ([]types.Pool, []PoolError, error) {
	q.log().Functionf("GetImportedPools policy %s", q.Policy)
	recs, err := q.Source.ImportedPoolRecords(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("GetImportedPools: %w", err)
	}
	var (
		pools   []types.Pool
		skipped []PoolError
	)
	for _, rec := range recs {
		pool, err := q.buildPool(ctx, rec)
		if err == nil {
			pools = append(pools, pool)
			continue
		}
		if !IsBuildError(err) || q.Policy == FailFast {
			return nil, nil, err
		}
		name, _, _ := rec.String(PoolKeyName)
		q.poolLog(name).Errorf("GetImportedPools: skipping pool: %v", err)
		skipped = append(skipped, PoolError{Pool: name, Err: err})
	}
	return pools, skipped, nil
}

// buildPool returns a *PoolBuildError for a malformed record and a plain
// wrapped error when the Source fails while fetching datasets.
func (q *Querier) buildPool(ctx context.Context, rec Record) (types.Pool, error) {
	var pool types.Pool
	name, ok, err := rec.String(PoolKeyName)
	if err != nil {
		return pool, &PoolBuildError{Err: &InvalidFieldError{Kind: "pool", Field: PoolKeyName, Value: rec[PoolKeyName]}}
	}
	if !ok || name == "" {
		return pool, &PoolBuildError{Err: &MissingFieldError{Kind: "pool", Field: PoolKeyName}}
	}
	pool.Name = name
	fail := func(err error) (types.Pool, error) {
		return types.Pool{}, &PoolBuildError{Pool: name, Err: err}
	}
	invalid := func(key string) (types.Pool, error) {
		return fail(&InvalidFieldError{Kind: "pool", Field: key, Value: rec[key]})
	}

	guid, ok, err := rec.Uint64(PoolKeyGUID)
	if err != nil {
		return invalid(PoolKeyGUID)
	}
	if !ok {
		return fail(&MissingFieldError{Kind: "pool", Field: PoolKeyGUID})
	}
	pool.GUID = guid
	pool.UID = types.PoolUID(guid)
	if pool.Hostname, _, err = rec.String(PoolKeyHostname); err != nil {
		return invalid(PoolKeyHostname)
	}
	hostID, ok, err := rec.Uint64(PoolKeyHostID)
	if err != nil {
		return invalid(PoolKeyHostID)
	}
	if ok {
		pool.HostID = &hostID
	}
	if pool.State, _, err = rec.String(PoolKeyState); err != nil {
		return invalid(PoolKeyState)
	}
	if pool.Health, _, err = rec.String(PoolKeyHealth); err != nil {
		return invalid(PoolKeyHealth)
	}
	if pool.Size, _, err = rec.Uint64(PoolKeySize); err != nil {
		return invalid(PoolKeySize)
	}
	if pool.ReadOnly, _, err = rec.Bool(PoolKeyReadOnly); err != nil {
		return invalid(PoolKeyReadOnly)
	}

	tree, ok, err := rec.Nested(PoolKeyVDevTree)
	if err != nil {
		return invalid(PoolKeyVDevTree)
	}
	if !ok {
		return fail(&MissingFieldError{Kind: "pool", Field: PoolKeyVDevTree})
	}
	log := q.poolLog(name)
	builder := VDevBuilder{Log: log, Strict: q.StrictVDevs}
	if pool.VDev, err = builder.BuildRoot(tree); err != nil {
		return fail(err)
	}

	dsRecs, err := q.Source.DatasetRecords(ctx, name)
	if err != nil {
		return types.Pool{}, fmt.Errorf("pool %s: datasets: %w", name, err)
	}
	pool.Datasets = make([]types.Dataset, 0, len(dsRecs))
	for i, dsRec := range dsRecs {
		ds, err := buildDataset(dsRec)
		if err != nil {
			return fail(fmt.Errorf("dataset %d: %w", i, err))
		}
		pool.Datasets = append(pool.Datasets, ds)
	}
	log.Tracef("buildPool: %s state %s with %d top-level vdevs, %d datasets",
		name, pool.State, len(pool.VDev.Children), len(pool.Datasets))
	return pool, nil
}

func buildDataset(rec Record) (types.Dataset, error) {
	var ds types.Dataset
	name, ok, err := rec.String(DatasetKeyName)
	if err != nil {
		return ds, &InvalidFieldError{Kind: "dataset", Field: DatasetKeyName, Value: rec[DatasetKeyName]}
	}
	if !ok || name == "" {
		return ds, &MissingFieldError{Kind: "dataset", Field: DatasetKeyName}
	}
	ds.Name = name
	if ds.Kind, _, err = rec.String(DatasetKeyType); err != nil {
		return ds, &InvalidFieldError{Kind: "dataset", Field: DatasetKeyType, Value: rec[DatasetKeyType]}
	}
	guid, ok, err := rec.Uint64(DatasetKeyGUID)
	if err != nil {
		return ds, &InvalidFieldError{Kind: "dataset", Field: DatasetKeyGUID, Value: rec[DatasetKeyGUID]}
	}
	if ok {
		ds.GUID = &guid
	}
	return ds, nil
}
