// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package zfs

import (
	"errors"
	"fmt"

	"github.com/lf-edge/eve/pkg/zfsinfo/types"
)

// Build failure classes, match with errors.Is.
var (
	ErrUnknownVDevKind      = errors.New("unknown vdev kind")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrMalformedChild       = errors.New("malformed child vdev")
	ErrInvalidField         = errors.New("invalid field")
	ErrEmptyComposite       = errors.New("composite vdev without children")
	ErrNotRooted            = errors.New("vdev tree is not rooted")
)

// ErrNoSuchDataset is returned by the strict property lookups.
var ErrNoSuchDataset = errors.New("no such dataset")

// UnknownVDevKindError is returned for a type tag outside the known set,
// and for a record without a type tag (Kind is then empty).
type UnknownVDevKindError struct {
	Kind string
}

func (e *UnknownVDevKindError) Error() string {
	if e.Kind == "" {
		return "vdev record has no type"
	}
	return fmt.Sprintf("unknown vdev kind %q", e.Kind)
}

// Is :
func (e *UnknownVDevKindError) Is(target error) bool {
	return target == ErrUnknownVDevKind
}

// MissingFieldError names the required field a record lacked.
type MissingFieldError struct {
	Kind  string // vdev kind, or pool
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required field %s", e.Kind, e.Field)
}

// Is :
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingRequiredField
}

// InvalidFieldError is a present field with an unusable value.
type InvalidFieldError struct {
	Kind  string
	Field string
	Value interface{}
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("%s: invalid %s %v (%T)", e.Kind, e.Field, e.Value, e.Value)
}

// Is :
func (e *InvalidFieldError) Is(target error) bool {
	return target == ErrInvalidField
}

// MalformedChildError wraps the failure of one child of a composite.
// Group is children, spares or l2cache.
type MalformedChildError struct {
	ParentKind types.VDevKind
	Group      string
	Index      int
	Err        error
}

func (e *MalformedChildError) Error() string {
	return fmt.Sprintf("%s vdev: %s[%d]: %v", e.ParentKind, e.Group, e.Index, e.Err)
}

// Is :
func (e *MalformedChildError) Is(target error) bool {
	return target == ErrMalformedChild
}

// Unwrap :
func (e *MalformedChildError) Unwrap() error {
	return e.Err
}

// EmptyCompositeError is reported in strict mode only.
type EmptyCompositeError struct {
	Kind types.VDevKind
}

func (e *EmptyCompositeError) Error() string {
	return fmt.Sprintf("%s vdev has no children", e.Kind)
}

// Is :
func (e *EmptyCompositeError) Is(target error) bool {
	return target == ErrEmptyComposite
}

// NotRootedError is a pool whose vdev_tree is not of type root.
type NotRootedError struct {
	Kind string
}

func (e *NotRootedError) Error() string {
	return fmt.Sprintf("pool vdev tree has type %q, expected root", e.Kind)
}

// Is :
func (e *NotRootedError) Is(target error) bool {
	return target == ErrNotRooted
}

// NoSuchDatasetError :
type NoSuchDatasetError struct {
	Dataset string
}

func (e *NoSuchDatasetError) Error() string {
	return fmt.Sprintf("dataset %s does not exist", e.Dataset)
}

// Is :
func (e *NoSuchDatasetError) Is(target error) bool {
	return target == ErrNoSuchDataset
}

// PoolBuildError is a pool record that could not be turned into a Pool.
type PoolBuildError struct {
	Pool string
	Err  error
}

func (e *PoolBuildError) Error() string {
	if e.Pool == "" {
		return fmt.Sprintf("pool record: %v", e.Err)
	}
	return fmt.Sprintf("pool %s: %v", e.Pool, e.Err)
}

// Unwrap :
func (e *PoolBuildError) Unwrap() error {
	return e.Err
}

// IsBuildError reports whether err is a structural failure of a pool or
// vdev record, as opposed to a failure of the Source.
func IsBuildError(err error) bool {
	var pbe *PoolBuildError
	if errors.As(err, &pbe) {
		return true
	}
	for _, target := range []error{ErrUnknownVDevKind, ErrMissingRequiredField,
		ErrMalformedChild, ErrInvalidField, ErrEmptyComposite, ErrNotRooted} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
