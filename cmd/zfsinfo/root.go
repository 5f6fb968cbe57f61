// Copyright (c) 2024 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"io"

	"github.com/lf-edge/eve/pkg/zfsinfo/agentlog"
	"github.com/lf-edge/eve/pkg/zfsinfo/base"
	"github.com/lf-edge/eve/pkg/zfsinfo/config"
	"github.com/lf-edge/eve/pkg/zfsinfo/zfs"
	"github.com/lf-edge/eve/pkg/zfsinfo/zfs/fixture"
	"github.com/lf-edge/eve/pkg/zfsinfo/zfs/native"
	"github.com/lf-edge/eve/pkg/zfsinfo/zfs/zcli"
	pkgerrors "github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"github.com/spf13/cobra"
)

const agentName = "zfsinfo"

var errAbsent = errors.New("not found")

// app is the state shared by the subcommands of one invocation
type app struct {
	configPath string
	envFile    string
	// flag values, applied over the config when set
	flagCfg config.Config

	cfg     config.Config
	srcLog  *base.LogObject
	runID   string
	log     *base.LogObject
	querier *zfs.Querier
	out     io.Writer
	errOut  io.Writer
}

func newRootCmd(a *app) *cobra.Command {
	defaults := config.Default()

	rootCmd := &cobra.Command{
		Use:   agentName,
		Short: "Read-only view of ZFS pools and datasets",
		Long: `Print the vdev tree of imported ZFS pools and typed dataset properties.
Pools are read with the zpool and zfs commands, through libzfs or from a
YAML snapshot.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	rootCmd.SetOut(a.out)
	rootCmd.SetErr(a.errOut)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&a.envFile, "env-file", "", "file with ZFSINFO_ variables")
	flags.StringVar((*string)(&a.flagCfg.Source), "source", string(defaults.Source), "pool source: zcli, native or fixture")
	flags.StringVar(&a.flagCfg.Fixture, "fixture", "", "YAML snapshot read by the fixture source")
	flags.StringVar(&a.flagCfg.LogLevel, "log-level", defaults.LogLevel, "log level")
	flags.BoolVar(&a.flagCfg.StrictVDevs, "strict-vdevs", false, "reject mirrors and raidz without children")
	flags.BoolVar(&a.flagCfg.FailFast, "fail-fast", false, "fail on the first pool which cannot be read")
	flags.StringVarP(&a.flagCfg.Output, "output", "o", defaults.Output, "output format: json or yaml")
	flags.DurationVar(&a.flagCfg.Timeout, "timeout", defaults.Timeout, "timeout of one zpool/zfs command")

	rootCmd.AddCommand(a.poolsCmd(), a.poolCmd(), a.treeCmd(), a.propCmd(), a.zvolsCmd())
	return rootCmd
}

// setup loads the configuration and builds the querier
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath, a.envFile)
	if err != nil {
		return err
	}
	changed := cmd.Flags().Changed
	if changed("source") {
		cfg.Source = a.flagCfg.Source
	}
	if changed("fixture") {
		cfg.Fixture = a.flagCfg.Fixture
		if !changed("source") {
			cfg.Source = config.SourceFixture
		}
	}
	if changed("log-level") {
		cfg.LogLevel = a.flagCfg.LogLevel
	}
	if changed("strict-vdevs") {
		cfg.StrictVDevs = a.flagCfg.StrictVDevs
	}
	if changed("fail-fast") {
		cfg.FailFast = a.flagCfg.FailFast
	}
	if changed("output") {
		cfg.Output = a.flagCfg.Output
	}
	if changed("timeout") {
		cfg.Timeout = a.flagCfg.Timeout
	}
	if err := cfg.Validate(); err != nil {
		return pkgerrors.Wrap(err, "configuration")
	}
	a.cfg = cfg

	_, srcLog, err := agentlog.InitWithOutput(agentName, cfg.LogLevel, a.errOut)
	if err != nil {
		return pkgerrors.Wrap(err, "logging")
	}
	runID, err := uuid.NewV4()
	if err != nil {
		return pkgerrors.Wrap(err, "run id")
	}
	a.srcLog, a.runID = srcLog, runID.String()
	a.log = base.NewLogObject(srcLog, base.QueryLogType, cmd.Name(), runID, a.runID)
	a.log.Functionf("setup: source %s, timeout %s", cfg.Source, cfg.Timeout)

	source, err := a.newSource()
	if err != nil {
		return pkgerrors.Wrapf(err, "%s source", cfg.Source)
	}
	a.querier = zfs.NewQuerier(source, a.log)
	a.querier.StrictVDevs = cfg.StrictVDevs
	if cfg.FailFast {
		a.querier.Policy = zfs.FailFast
	}
	return nil
}

// release drops the query log object once the command is done
func (a *app) release() {
	if a.srcLog != nil {
		base.DeleteLogObject(a.srcLog, a.runID)
		a.srcLog = nil
	}
}

func (a *app) newSource() (zfs.Source, error) {
	switch a.cfg.Source {
	case config.SourceFixture:
		src, err := fixture.Load(a.cfg.Fixture)
		if err != nil {
			return nil, err
		}
		return src, nil
	case config.SourceNative:
		src, err := native.New(a.log)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	src := zcli.New(a.log)
	src.ZpoolBin = a.cfg.ZpoolBin
	src.ZfsBin = a.cfg.ZfsBin
	src.Timeout = a.cfg.Timeout
	return src, nil
}
