// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package zcli implements zfs.Source on top of the zpool and zfs commands.
package zcli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lf-edge/eve/pkg/zfsinfo/base"
	"github.com/lf-edge/eve/pkg/zfsinfo/zfs"
)

// Runner executes one command and returns its standard output and
// standard error separately.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// Source queries pools by running zpool and zfs.
type Source struct {
	ZpoolBin   string
	ZfsBin     string
	Timeout    time.Duration
	HostIDFile string
	Log        *base.LogObject
	// Run defaults to base.Exec; tests replace it.
	Run Runner
	// Hostname defaults to os.Hostname.
	Hostname func() (string, error)
}

var _ zfs.Source = (*Source)(nil)

// New returns a Source running the commands found in PATH.
func New(log *base.LogObject) *Source {
	s := &Source{
		ZpoolBin:   "zpool",
		ZfsBin:     "zfs",
		Timeout:    base.DefaultExecTimeout,
		HostIDFile: "/etc/hostid",
		Log:        log,
		Hostname:   os.Hostname,
	}
	s.Run = s.exec
	return s
}

func (s *Source) exec(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return base.Exec(s.Log, name, args...).WithContext(ctx).WithTimeout(s.Timeout).SplitOutput()
}

// commandError carries what the command printed on stderr
type commandError struct {
	args   []string
	stderr string
	err    error
}

func (e *commandError) Error() string {
	if e.stderr == "" {
		return fmt.Sprintf("%s: %v", strings.Join(e.args, " "), e.err)
	}
	return fmt.Sprintf("%s: %v: %s", strings.Join(e.args, " "), e.err, e.stderr)
}

func (e *commandError) Unwrap() error {
	return e.err
}

func (s *Source) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	stdout, stderr, err := s.Run(ctx, name, args...)
	if err != nil {
		return nil, &commandError{
			args:   append([]string{name}, args...),
			stderr: strings.TrimSpace(string(stderr)),
			err:    err,
		}
	}
	return stdout, nil
}

// isAbsent tells a failure caused by a missing pool, dataset or
// property from a real one.
func isAbsent(err error) bool {
	var cmdErr *commandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	for _, msg := range []string{"no such pool", "dataset does not exist",
		"bad property list", "invalid property"} {
		if strings.Contains(cmdErr.stderr, msg) {
			return true
		}
	}
	return false
}

// splitLines returns the non empty lines of -H output split at tabs
func splitLines(out []byte) [][]string {
	var rows [][]string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, strings.Split(line, "\t"))
	}
	return rows
}

// ImportedPoolRecords runs zpool list and fetches every listed pool.
func (s *Source) ImportedPoolRecords(ctx context.Context) ([]zfs.Record, error) {
	out, err := s.run(ctx, s.ZpoolBin, "list", "-H", "-o", "name")
	if err != nil {
		return nil, err
	}
	var recs []zfs.Record
	for _, row := range splitLines(out) {
		rec, found, err := s.PoolRecord(ctx, row[0])
		if err != nil {
			return nil, err
		}
		if !found {
			// exported between list and get
			s.Log.Warnf("ImportedPoolRecords: pool %s vanished", row[0])
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// PoolRecord combines zpool get and zpool status -j for one pool.
func (s *Source) PoolRecord(ctx context.Context, name string) (zfs.Record, bool, error) {
	out, err := s.run(ctx, s.ZpoolBin, "get", "-H", "-p", "-o", "property,value",
		"name,guid,health,size,readonly", name)
	if err != nil {
		if isAbsent(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	rec := zfs.Record{zfs.PoolKeyState: "ACTIVE"}
	for _, row := range splitLines(out) {
		if len(row) < 2 {
			continue
		}
		switch row[0] {
		case "name":
			rec[zfs.PoolKeyName] = row[1]
		case "guid":
			rec[zfs.PoolKeyGUID] = row[1]
		case "health":
			rec[zfs.PoolKeyHealth] = row[1]
		case "size":
			rec[zfs.PoolKeySize] = row[1]
		case "readonly":
			rec[zfs.PoolKeyReadOnly] = row[1]
		}
	}

	status, err := s.run(ctx, s.ZpoolBin, "status", "-j", "-p", name)
	if err != nil {
		if isAbsent(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	tree, err := parseStatus(status, name)
	if err != nil {
		return nil, false, fmt.Errorf("zpool status %s: %w", name, err)
	}
	if tree != nil {
		rec[zfs.PoolKeyVDevTree] = tree
	}

	if s.Hostname != nil {
		if hostname, err := s.Hostname(); err == nil {
			rec[zfs.PoolKeyHostname] = hostname
		} else {
			s.Log.Warnf("PoolRecord: hostname: %v", err)
		}
	}
	if hostID, ok := s.hostID(); ok {
		rec[zfs.PoolKeyHostID] = hostID
	}
	return rec, true, nil
}

// hostID reads the 4 byte little endian value gethostid(3) uses
func (s *Source) hostID() (uint64, bool) {
	if s.HostIDFile == "" {
		return 0, false
	}
	data, err := os.ReadFile(s.HostIDFile)
	if err != nil || len(data) < 4 {
		return 0, false
	}
	return uint64(binary.LittleEndian.Uint32(data[:4])), true
}

// DatasetRecords lists filesystems, volumes and snapshots of the pool.
func (s *Source) DatasetRecords(ctx context.Context, pool string) ([]zfs.Record, error) {
	out, err := s.run(ctx, s.ZfsBin, "list", "-H", "-p", "-r",
		"-t", "filesystem,volume,snapshot", "-o", "name,type,guid", pool)
	if err != nil {
		if isAbsent(err) {
			return nil, nil
		}
		return nil, err
	}
	var recs []zfs.Record
	for _, row := range splitLines(out) {
		if len(row) < 3 {
			return nil, fmt.Errorf("zfs list %s: unexpected line %q", pool, strings.Join(row, "\t"))
		}
		recs = append(recs, zfs.Record{
			zfs.DatasetKeyName: row[0],
			zfs.DatasetKeyType: row[1],
			zfs.DatasetKeyGUID: row[2],
		})
	}
	return recs, nil
}

// DatasetExists runs zfs list on the single dataset.
func (s *Source) DatasetExists(ctx context.Context, dataset string) (bool, error) {
	_, err := s.run(ctx, s.ZfsBin, "list", "-H", "-o", "name", dataset)
	if err != nil {
		if isAbsent(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Source) getProperty(ctx context.Context, dataset, prop string) (string, bool, error) {
	out, err := s.run(ctx, s.ZfsBin, "get", "-H", "-p", "-o", "value", prop, dataset)
	if err != nil {
		if isAbsent(err) {
			return "", false, nil
		}
		return "", false, err
	}
	value := strings.TrimRight(string(out), "\r\n")
	if value == "-" {
		return "", false, nil
	}
	return value, true, nil
}

// DatasetStringProperty returns the value of a text property.
func (s *Source) DatasetStringProperty(ctx context.Context, dataset, prop string) (string, bool, error) {
	if !zfs.PropertyKind(prop).IsText() {
		return "", false, nil
	}
	return s.getProperty(ctx, dataset, prop)
}

// DatasetUint64Property returns the value of a numeric property. Ratios
// such as compressratio are returned in hundredths, as libzfs does.
func (s *Source) DatasetUint64Property(ctx context.Context, dataset, prop string) (uint64, bool, error) {
	kind := zfs.PropertyKind(prop)
	if !kind.IsNumeric() {
		return 0, false, nil
	}
	value, ok, err := s.getProperty(ctx, dataset, prop)
	if err != nil || !ok {
		return 0, false, err
	}
	n, err := zfs.ParseNumericValue(value)
	if err != nil {
		if kind != zfs.PropKindNumber {
			// an index word such as lz4
			return 0, false, nil
		}
		s.Log.Warnf("DatasetUint64Property: %s of %s: %v", prop, dataset, err)
		return 0, false, nil
	}
	return n, true, nil
}
