// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package zfs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lf-edge/eve/pkg/zfsinfo/base"
)

// PropKind is the value type of a dataset property.
type PropKind int

const (
	// PropKindUnknown is a name zfs does not define
	PropKindUnknown PropKind = iota
	// PropKindNumber values are unsigned integers
	PropKindNumber
	// PropKindString values are free text
	PropKindString
	// PropKindIndex values are one of a fixed set of words (on, lz4, ...)
	PropKindIndex
)

func (k PropKind) String() string {
	switch k {
	case PropKindNumber:
		return "number"
	case PropKindString:
		return "string"
	case PropKindIndex:
		return "index"
	default:
		return "unknown"
	}
}

// IsText reports whether values of this kind are read with the string
// accessor. Index properties are text to their readers, and an unknown
// name is left to the Source.
func (k PropKind) IsText() bool {
	return k != PropKindNumber
}

// IsNumeric reports whether values of this kind are read with the uint64
// accessor. Index properties are kept as integers in the props nvlist
// (copies is 2, compression is its enum value) and answer it too, as
// long as the Source has the number.
func (k PropKind) IsNumeric() bool {
	return k != PropKindString
}

var datasetPropKinds = map[string]PropKind{
	"available":            PropKindNumber,
	"compressratio":        PropKindNumber,
	"createtxg":            PropKindNumber,
	"creation":             PropKindNumber,
	"filesystem_count":     PropKindNumber,
	"filesystem_limit":     PropKindNumber,
	"guid":                 PropKindNumber,
	"logicalreferenced":    PropKindNumber,
	"logicalused":          PropKindNumber,
	"objsetid":             PropKindNumber,
	"pbkdf2iters":          PropKindNumber,
	"quota":                PropKindNumber,
	"recordsize":           PropKindNumber,
	"refcompressratio":     PropKindNumber,
	"referenced":           PropKindNumber,
	"refquota":             PropKindNumber,
	"refreservation":       PropKindNumber,
	"reservation":          PropKindNumber,
	"snapshot_count":       PropKindNumber,
	"snapshot_limit":       PropKindNumber,
	"snapshots_changed":    PropKindNumber,
	"special_small_blocks": PropKindNumber,
	"used":                 PropKindNumber,
	"usedbychildren":       PropKindNumber,
	"usedbydataset":        PropKindNumber,
	"usedbyrefreservation": PropKindNumber,
	"usedbysnapshots":      PropKindNumber,
	"userrefs":             PropKindNumber,
	"volblocksize":         PropKindNumber,
	"volsize":              PropKindNumber,
	"written":              PropKindNumber,

	"clones":               PropKindString,
	"context":              PropKindString,
	"defcontext":           PropKindString,
	"encryptionroot":       PropKindString,
	"fscontext":            PropKindString,
	"keylocation":          PropKindString,
	"mlslabel":             PropKindString,
	"mountpoint":           PropKindString,
	"name":                 PropKindString,
	"origin":               PropKindString,
	"prevsnap":             PropKindString,
	"receive_resume_token": PropKindString,
	"redact_snaps":         PropKindString,
	"rootcontext":          PropKindString,
	"sharenfs":             PropKindString,
	"sharesmb":             PropKindString,

	"aclinherit":         PropKindIndex,
	"aclmode":            PropKindIndex,
	"acltype":            PropKindIndex,
	"atime":              PropKindIndex,
	"canmount":           PropKindIndex,
	"casesensitivity":    PropKindIndex,
	"checksum":           PropKindIndex,
	"compression":        PropKindIndex,
	"copies":             PropKindIndex,
	"dedup":              PropKindIndex,
	"defer_destroy":      PropKindIndex,
	"devices":            PropKindIndex,
	"dnodesize":          PropKindIndex,
	"encryption":         PropKindIndex,
	"exec":               PropKindIndex,
	"keyformat":          PropKindIndex,
	"keystatus":          PropKindIndex,
	"logbias":            PropKindIndex,
	"mounted":            PropKindIndex,
	"nbmand":             PropKindIndex,
	"normalization":      PropKindIndex,
	"overlay":            PropKindIndex,
	"primarycache":       PropKindIndex,
	"readonly":           PropKindIndex,
	"redundant_metadata": PropKindIndex,
	"relatime":           PropKindIndex,
	"secondarycache":     PropKindIndex,
	"setuid":             PropKindIndex,
	"snapdev":            PropKindIndex,
	"snapdir":            PropKindIndex,
	"sync":               PropKindIndex,
	"type":               PropKindIndex,
	"utf8only":           PropKindIndex,
	"version":            PropKindIndex,
	"volmode":            PropKindIndex,
	"vscan":              PropKindIndex,
	"xattr":              PropKindIndex,
	"zoned":              PropKindIndex,
}

// userspace and written@ properties are numeric for any suffix
var numericPropPrefixes = []string{
	"userused@", "userquota@", "userobjused@", "userobjquota@",
	"groupused@", "groupquota@", "groupobjused@", "groupobjquota@",
	"projectused@", "projectquota@", "projectobjused@", "projectobjquota@",
	"written@",
}

// IsUserProperty reports whether name is a user property (module:prop).
func IsUserProperty(name string) bool {
	return strings.Contains(name, ":")
}

// PropertyKind classifies a dataset property name. User properties are
// always strings. A name zfs added after this table is PropKindUnknown.
func PropertyKind(name string) PropKind {
	if IsUserProperty(name) {
		return PropKindString
	}
	for _, prefix := range numericPropPrefixes {
		if strings.HasPrefix(name, prefix) && len(name) > len(prefix) {
			return PropKindNumber
		}
	}
	return datasetPropKinds[name]
}

// ParseNumericValue parses the literal value of a numeric property.
// Ratios such as compressratio "1.73x" come back in hundredths.
func ParseNumericValue(value string) (uint64, error) {
	value = strings.TrimSuffix(strings.TrimSpace(value), "x")
	if n, err := strconv.ParseUint(value, 10, 64); err == nil {
		return n, nil
	}
	whole, frac, found := strings.Cut(value, ".")
	if !found {
		return 0, fmt.Errorf("%q is not a number", value)
	}
	frac = (frac + "00")[:2]
	n, err := strconv.ParseUint(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", value)
	}
	return n, nil
}

// GetDatasetStringProp returns a text property of a dataset. Absence
// covers an unset property, a numeric property and a missing dataset.
// Names outside the known table are passed to the Source.
func (q *Querier) GetDatasetStringProp(ctx context.Context, dataset, prop string) (string, bool, error) {
	value, ok, err := q.LookupDatasetStringProp(ctx, dataset, prop)
	if errors.Is(err, ErrNoSuchDataset) {
		return "", false, nil
	}
	return value, ok, err
}

// GetDatasetUint64Prop returns a numeric property of a dataset with the
// same absence rules as GetDatasetStringProp, a string property being
// absent here. Index properties answer when the Source holds them as
// numbers.
func (q *Querier) GetDatasetUint64Prop(ctx context.Context, dataset, prop string) (uint64, bool, error) {
	value, ok, err := q.LookupDatasetUint64Prop(ctx, dataset, prop)
	if errors.Is(err, ErrNoSuchDataset) {
		return 0, false, nil
	}
	return value, ok, err
}

// LookupDatasetStringProp is GetDatasetStringProp returning
// ErrNoSuchDataset for a dataset which does not exist.
func (q *Querier) LookupDatasetStringProp(ctx context.Context, dataset, prop string) (string, bool, error) {
	log := q.datasetLog(dataset)
	if err := q.checkDataset(ctx, dataset); err != nil {
		return "", false, err
	}
	if kind := PropertyKind(prop); !kind.IsText() {
		log.Tracef("LookupDatasetStringProp: %s is %s", prop, kind)
		return "", false, nil
	}
	value, ok, err := q.Source.DatasetStringProperty(ctx, dataset, prop)
	if err != nil {
		return "", false, fmt.Errorf("get %s of %s: %w", prop, dataset, err)
	}
	log.Tracef("LookupDatasetStringProp: %s=%q set %t", prop, value, ok)
	return value, ok, nil
}

// LookupDatasetUint64Prop is GetDatasetUint64Prop returning
// ErrNoSuchDataset for a dataset which does not exist.
func (q *Querier) LookupDatasetUint64Prop(ctx context.Context, dataset, prop string) (uint64, bool, error) {
	log := q.datasetLog(dataset)
	if err := q.checkDataset(ctx, dataset); err != nil {
		return 0, false, err
	}
	if kind := PropertyKind(prop); !kind.IsNumeric() {
		log.Tracef("LookupDatasetUint64Prop: %s is %s", prop, kind)
		return 0, false, nil
	}
	value, ok, err := q.Source.DatasetUint64Property(ctx, dataset, prop)
	if err != nil {
		return 0, false, fmt.Errorf("get %s of %s: %w", prop, dataset, err)
	}
	log.Tracef("LookupDatasetUint64Prop: %s=%d set %t", prop, value, ok)
	return value, ok, nil
}

func (q *Querier) checkDataset(ctx context.Context, dataset string) error {
	exists, err := q.Source.DatasetExists(ctx, dataset)
	if err != nil {
		return fmt.Errorf("check dataset %s: %w", dataset, err)
	}
	if !exists {
		return &NoSuchDatasetError{Dataset: dataset}
	}
	return nil
}

func (q *Querier) datasetLog(dataset string) *base.LogObject {
	return q.log().CloneAndAddField("obj_type", base.DatasetLogType).
		AddField("obj_name", dataset)
}
