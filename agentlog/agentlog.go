// Copyright (c) 2018,2020 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package agentlog

import (
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/lf-edge/eve/pkg/zfsinfo/base"
	"github.com/sirupsen/logrus"
)

// SourceHook is used to add source and pid if not already set
type SourceHook struct {
	agentName string
	agentPid  int
}

// Fire adds source and pid if not already set
func (hook *SourceHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["source"]; !ok {
		entry.Data["source"] = hook.agentName
	}
	if _, ok := entry.Data["pid"]; !ok {
		entry.Data["pid"] = hook.agentPid
	}
	return nil
}

// Levels installs the SourceHook for all levels
func (hook *SourceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// SkipCallerHook is used to skip to the "base" package entry in the stack
type SkipCallerHook struct {
}

// Fire does the skipping
func (hook *SkipCallerHook) Fire(entry *logrus.Entry) error {
	const maximumCallerDepth = 25
	if entry.Caller == nil {
		return nil
	}
	pcs := make([]uintptr, maximumCallerDepth)
	depth := runtime.Callers(0, pcs)
	frames := runtime.CallersFrames(pcs[:depth])

	next := false
	for f, again := frames.Next(); again; f, again = frames.Next() {
		if sameFrame(f, *entry.Caller) {
			if strings.HasSuffix(getPackageName(f.Function), "/base") {
				next = true
				continue
			}
			break
		}
		if next {
			if strings.HasSuffix(getPackageName(f.Function), "/base") {
				continue
			}
			frame := f
			entry.Caller = &frame
			break
		}
	}
	return nil
}

func sameFrame(a, b runtime.Frame) bool {
	return a.Function == b.Function && a.File == b.File && a.Line == b.Line
}

// Levels installs the SkipCallerHook for all levels
func (hook *SkipCallerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// getPackageName reduces a fully qualified function name to the package name
// From logrus
func getPackageName(f string) string {
	for {
		lastPeriod := strings.LastIndex(f, ".")
		lastSlash := strings.LastIndex(f, "/")
		if lastPeriod > lastSlash {
			f = f[:lastPeriod]
		} else {
			break
		}
	}
	return f
}

// Init provides both a logger and a logObject writing JSON lines to stderr.
// Query results go to stdout, so the two never interleave.
func Init(agentName string, level string) (*logrus.Logger, *base.LogObject, error) {
	return InitWithOutput(agentName, level, os.Stderr)
}

// InitWithOutput is Init with an explicit destination.
func InitWithOutput(agentName string, level string, out io.Writer) (*logrus.Logger, *base.LogObject, error) {
	agentPid := os.Getpid()
	logger := logrus.New()
	// Report nano timestamps
	formatter := logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	}
	logger.SetFormatter(&formatter)
	logger.SetReportCaller(true)
	logger.SetOutput(out)
	if level != "" {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, nil, err
		}
		logger.SetLevel(lvl)
	}
	logger.AddHook(&SourceHook{agentName: agentName, agentPid: agentPid})
	logger.AddHook(new(SkipCallerHook))

	log := base.NewSourceLogObject(logger, agentName, agentPid)
	return logger, log, nil
}
