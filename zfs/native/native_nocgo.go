// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !cgo

// Package native implements zfs.Source over libzfs.
package native

import (
	"context"
	"errors"

	"github.com/lf-edge/eve/pkg/zfsinfo/base"
	"github.com/lf-edge/eve/pkg/zfsinfo/zfs"
)

// ErrNoCgo is returned by New in builds without cgo.
var ErrNoCgo = errors.New("native zfs source requires cgo")

// Source is not usable without cgo.
type Source struct{}

var _ zfs.Source = (*Source)(nil)

// New always fails without cgo.
func New(log *base.LogObject) (*Source, error) {
	return nil, ErrNoCgo
}

// ImportedPoolRecords fails with ErrNoCgo.
func (s *Source) ImportedPoolRecords(ctx context.Context) ([]zfs.Record, error) {
	return nil, ErrNoCgo
}

// PoolRecord fails with ErrNoCgo.
func (s *Source) PoolRecord(ctx context.Context, name string) (zfs.Record, bool, error) {
	return nil, false, ErrNoCgo
}

// DatasetRecords fails with ErrNoCgo.
func (s *Source) DatasetRecords(ctx context.Context, pool string) ([]zfs.Record, error) {
	return nil, ErrNoCgo
}

// DatasetExists fails with ErrNoCgo.
func (s *Source) DatasetExists(ctx context.Context, dataset string) (bool, error) {
	return false, ErrNoCgo
}

// DatasetStringProperty fails with ErrNoCgo.
func (s *Source) DatasetStringProperty(ctx context.Context, dataset, prop string) (string, bool, error) {
	return "", false, ErrNoCgo
}

// DatasetUint64Property fails with ErrNoCgo.
func (s *Source) DatasetUint64Property(ctx context.Context, dataset, prop string) (uint64, bool, error) {
	return 0, false, ErrNoCgo
}
