// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

// zfsinfo prints the topology of imported ZFS pools and the properties of
// their datasets. It never changes anything on the pools.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	exitOK     = 0
	exitFailed = 1
	// the pool or property asked for is not there
	exitAbsent = 2
)

func execute(args []string, out, errOut io.Writer) int {
	a := &app{out: out, errOut: errOut}
	defer a.release()
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(errOut, "zfsinfo: %v\n", err)
	if errors.Is(err, errAbsent) {
		return exitAbsent
	}
	return exitFailed
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
