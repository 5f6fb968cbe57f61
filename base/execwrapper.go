// Copyright (c) 2020 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

// Exec call wrapper for zfs and zpool commands.

package base

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// DefaultExecTimeout bounds a single zfs/zpool invocation when the
// caller did not set a timeout.
const DefaultExecTimeout = 100 * time.Second

// Command holds the necessary data to execute command
type Command struct {
	command *exec.Cmd
	log     *LogObject
	timeout time.Duration
	ctx     context.Context
}

// Output runs the command and returns its standard output.
// Any returned error will usually be of type *exec.ExitError.
func (c *Command) Output() ([]byte, error) {
	var buf bytes.Buffer
	c.command.Stdout = &buf
	err := c.execCommand()
	return buf.Bytes(), err
}

// CombinedOutput runs the command and returns its combined standard output and standard error.
func (c *Command) CombinedOutput() ([]byte, error) {
	var buf bytes.Buffer
	c.command.Stdout = &buf
	c.command.Stderr = &buf
	err := c.execCommand()
	return buf.Bytes(), err
}

// SplitOutput runs the command and returns standard output and standard
// error separately, so callers can parse one and inspect the other.
func (c *Command) SplitOutput() ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	c.command.Stdout = &stdout
	c.command.Stderr = &stderr
	err := c.execCommand()
	return stdout.Bytes(), stderr.Bytes(), err
}

func (c *Command) execCommand() error {
	if c.log != nil {
		c.log.Tracef("execCommand(%v)", c.command.Args)
	}
	if err := c.command.Start(); err != nil {
		return fmt.Errorf("execCommand(%v): error while starting command: %w", c.command.Args, err)
	}

	done := make(chan error, 1)
	go func() { done <- c.command.Wait() }()

	timeout := c.timeout
	if timeout <= 0 {
		timeout = DefaultExecTimeout
	}
	waitTimer := time.NewTimer(timeout)
	defer waitTimer.Stop()

	if c.ctx == nil {
		c.ctx = context.Background()
	}

	select {
	case <-c.ctx.Done():
		c.command.Process.Kill()
		<-done
		return fmt.Errorf("execCommand(%v): %w", c.command.Args, c.ctx.Err())
	case <-waitTimer.C:
		c.command.Process.Kill()
		<-done
		return fmt.Errorf("execCommand(%v): command timed out after %s", c.command.Args, timeout)
	case err := <-done:
		return err
	}
}

// WithContext set context for command
func (c *Command) WithContext(ctx context.Context) *Command {
	c.ctx = ctx
	return c
}

// WithTimeout overrides DefaultExecTimeout
func (c *Command) WithTimeout(timeout time.Duration) *Command {
	c.timeout = timeout
	return c
}

// Exec returns Command object
func Exec(log *LogObject, command string, arg ...string) *Command {
	return &Command{
		command: exec.Command(command, arg...),
		log:     log,
	}
}
