// Copyright (c) 2020 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package base

import (
	"github.com/sirupsen/logrus"
)

func (object *LogObject) entry() *logrus.Entry {
	if !object.Initialized {
		logrus.Fatal("LogObject used without initialization")
	}
	return object.logger.WithFields(object.Fields)
}

// Debug :
func (object *LogObject) Debug(args ...interface{}) {
	object.entry().Debug(args...)
}

// Info :
func (object *LogObject) Info(args ...interface{}) {
	object.entry().Info(args...)
}

// Warn :
func (object *LogObject) Warn(args ...interface{}) {
	object.entry().Warn(args...)
}

// Error :
func (object *LogObject) Error(args ...interface{}) {
	object.entry().Error(args...)
}

// Fatal :
func (object *LogObject) Fatal(args ...interface{}) {
	object.entry().Fatal(args...)
}

// Debugf :
func (object *LogObject) Debugf(format string, args ...interface{}) {
	object.entry().Debugf(format, args...)
}

// Infof :
func (object *LogObject) Infof(format string, args ...interface{}) {
	object.entry().Infof(format, args...)
}

// Warnf :
func (object *LogObject) Warnf(format string, args ...interface{}) {
	object.entry().Warnf(format, args...)
}

// Errorf :
func (object *LogObject) Errorf(format string, args ...interface{}) {
	object.entry().Errorf(format, args...)
}

// Fatalf :
func (object *LogObject) Fatalf(format string, args ...interface{}) {
	object.entry().Fatalf(format, args...)
}

// Function logs the flow through query code; mapped to logrus Trace
// so it only shows up with the trace level enabled.
func (object *LogObject) Function(args ...interface{}) {
	object.entry().Trace(args...)
}

// Functionf :
func (object *LogObject) Functionf(format string, args ...interface{}) {
	object.entry().Tracef(format, args...)
}

// Tracef : same level as Functionf, kept for command tracing in Exec
func (object *LogObject) Tracef(format string, args ...interface{}) {
	object.entry().Tracef(format, args...)
}
