// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package zfs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyKind(t *testing.T) {
	testMatrix := map[string]PropKind{
		"used":              PropKindNumber,
		"volsize":           PropKindNumber,
		"logicalreferenced": PropKindNumber,
		"guid":              PropKindNumber,
		"mountpoint":        PropKindString,
		"origin":            PropKindString,
		"compression":       PropKindIndex,
		"type":              PropKindIndex,
		"org.lfedge:role":   PropKindString,
		"com.sun:auto":      PropKindString,
		"userused@root":     PropKindNumber,
		"groupquota@staff":  PropKindNumber,
		"projectobjused@7":  PropKindNumber,
		"written@daily":     PropKindNumber,
		"userused@":         PropKindUnknown,
		"nosuchprop":        PropKindUnknown,
		"":                  PropKindUnknown,
	}
	for prop, kind := range testMatrix {
		assert.Equal(t, kind, PropertyKind(prop), prop)
	}
	assert.True(t, PropKindIndex.IsText())
	assert.False(t, PropKindNumber.IsText())
	assert.True(t, PropKindUnknown.IsText())
	assert.True(t, PropKindIndex.IsNumeric())
	assert.True(t, PropKindUnknown.IsNumeric())
	assert.False(t, PropKindString.IsNumeric())
}

func TestGetDatasetStringProp(t *testing.T) {
	log, _ := newTestLog(t)
	q := NewQuerier(newFakeSource(), log)
	ctx := context.Background()

	testMatrix := map[string]struct {
		dataset string
		prop    string
		value   string
		found   bool
	}{
		"set string":        {dataset: "persist", prop: "mountpoint", value: "/persist", found: true},
		"set index":         {dataset: "persist", prop: "compression", value: "lz4", found: true},
		"user property":     {dataset: "persist/vault", prop: "org.lfedge:role", value: "vault", found: true},
		"unset":             {dataset: "persist/vault", prop: "mountpoint"},
		"unset user":        {dataset: "persist", prop: "org.lfedge:role"},
		"numeric is absent": {dataset: "persist", prop: "used"},
		"unknown property":  {dataset: "persist", prop: "nosuchprop"},
		"missing dataset":   {dataset: "persist/nope", prop: "mountpoint"},
	}
	for testname, test := range testMatrix {
		t.Logf("Running test case %s", testname)
		value, found, err := q.GetDatasetStringProp(ctx, test.dataset, test.prop)
		require.NoError(t, err, testname)
		assert.Equal(t, test.found, found, testname)
		assert.Equal(t, test.value, value, testname)
	}
}

func TestGetDatasetUint64Prop(t *testing.T) {
	log, _ := newTestLog(t)
	q := NewQuerier(newFakeSource(), log)
	ctx := context.Background()

	testMatrix := map[string]struct {
		dataset string
		prop    string
		value   uint64
		found   bool
	}{
		"set number":       {dataset: "persist", prop: "used", value: 1 << 20, found: true},
		"unset":            {dataset: "persist", prop: "volsize"},
		"string is absent": {dataset: "persist", prop: "mountpoint"},
		"index word":       {dataset: "persist", prop: "compression"},
		"index number":     {dataset: "persist", prop: "copies", value: 2, found: true},
		"userspace":        {dataset: "persist", prop: "userused@root", value: 4096, found: true},
		"written at snap":  {dataset: "persist", prop: "written@daily", value: 512, found: true},
		"unknown numeric":  {dataset: "persist", prop: "newnumericprop", value: 7, found: true},
		"unknown unset":    {dataset: "persist", prop: "nosuchprop"},
		"user is absent":   {dataset: "persist/vault", prop: "org.lfedge:role"},
		"missing dataset":  {dataset: "other/ds", prop: "used"},
	}
	for testname, test := range testMatrix {
		t.Logf("Running test case %s", testname)
		value, found, err := q.GetDatasetUint64Prop(ctx, test.dataset, test.prop)
		require.NoError(t, err, testname)
		assert.Equal(t, test.found, found, testname)
		assert.Equal(t, test.value, value, testname)
	}
}

func TestNumericPropertyNotAskedAsString(t *testing.T) {
	src := newFakeSource()
	// a source which would happily render the number as text
	src.props["persist"]["used"] = "1048576"
	q := NewQuerier(src, nil)

	value, found, err := q.GetDatasetStringProp(context.Background(), "persist", "used")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, value)
	assert.NotContains(t, src.calls, "DatasetStringProperty persist used")
}

func TestUnknownPropertyAskedOfSource(t *testing.T) {
	src := newFakeSource()
	q := NewQuerier(src, nil)
	ctx := context.Background()

	_, found, err := q.GetDatasetStringProp(ctx, "persist", "nosuchprop")
	require.NoError(t, err)
	assert.False(t, found)
	_, _, err = q.GetDatasetUint64Prop(ctx, "persist", "nosuchprop")
	require.NoError(t, err)
	assert.Contains(t, src.calls, "DatasetStringProperty persist nosuchprop")
	assert.Contains(t, src.calls, "DatasetUint64Property persist nosuchprop")
}

func TestLookupDistinguishesMissingDataset(t *testing.T) {
	q := NewQuerier(newFakeSource(), nil)
	ctx := context.Background()

	_, found, err := q.LookupDatasetStringProp(ctx, "persist/nope", "mountpoint")
	assert.False(t, found)
	assert.ErrorIs(t, err, ErrNoSuchDataset)
	var nsd *NoSuchDatasetError
	require.True(t, errors.As(err, &nsd))
	assert.Equal(t, "persist/nope", nsd.Dataset)
	assert.False(t, IsBuildError(err))

	_, found, err = q.LookupDatasetUint64Prop(ctx, "persist/nope", "used")
	assert.False(t, found)
	assert.ErrorIs(t, err, ErrNoSuchDataset)

	_, found, err = q.LookupDatasetStringProp(ctx, "persist/vault", "mountpoint")
	assert.NoError(t, err)
	assert.False(t, found)

	value, found, err := q.LookupDatasetUint64Prop(ctx, "persist", "used")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(1<<20), value)
}

func TestPropertySourceFailure(t *testing.T) {
	fault := errors.New("zfs get: signal: killed")
	src := newFakeSource()
	src.propErr = fault
	q := NewQuerier(src, nil)
	ctx := context.Background()

	_, found, err := q.GetDatasetStringProp(ctx, "persist", "mountpoint")
	assert.False(t, found)
	assert.ErrorIs(t, err, fault)

	_, found, err = q.GetDatasetUint64Prop(ctx, "persist", "used")
	assert.False(t, found)
	assert.ErrorIs(t, err, fault)
	assert.NotErrorIs(t, err, ErrNoSuchDataset)
}

func TestParseNumericValue(t *testing.T) {
	testMatrix := map[string]struct {
		value uint64
		fail  bool
	}{
		"42":     {value: 42},
		"1.00":   {value: 100},
		"1.5x":   {value: 150},
		"12.345": {value: 1234},
		"none":   {fail: true},
		"1.2.3":  {fail: true},
	}
	for input, test := range testMatrix {
		n, err := ParseNumericValue(input)
		if test.fail {
			assert.Error(t, err, input)
			continue
		}
		assert.NoError(t, err, input)
		assert.Equal(t, test.value, n, input)
	}
}
