// Copyright 2014-2022 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xlog provides a minimal leveled logger for optional diagnostic
// tracing inside the xz packages. The default logger is silent; callers
// that want state-transition traces from the multithreaded decoder or
// encoder install their own Logger.
package xlog

import "log"

// Logger is satisfied by *log.Logger and by Quiet.
type Logger interface {
	Print(v ...interface{})
	Printf(format string, v ...interface{})
	Println(v ...interface{})
	SetFlags(flags int)
	SetPrefix(prefix string)
	Flags() int
	Prefix() string
}

// Quiet is a Logger that discards everything written to it.
var Quiet Logger = &quietLogger{flags: log.LstdFlags}

type quietLogger struct {
	flags  int
	prefix string
}

func (q *quietLogger) Flags() int                             { return q.flags }
func (q *quietLogger) Prefix() string                         { return q.prefix }
func (q *quietLogger) Print(v ...interface{})                 {}
func (q *quietLogger) Printf(format string, v ...interface{}) {}
func (q *quietLogger) Println(v ...interface{})               {}
func (q *quietLogger) SetFlags(flags int)                     { q.flags = flags }
func (q *quietLogger) SetPrefix(prefix string)                { q.prefix = prefix }

// std is the package-default logger used by the package-level helpers
// below. It stays Quiet unless a caller reassigns it.
var std Logger = Quiet

// SetDefault installs l as the logger used by Debugf, Warn and Warnf. A
// nil l resets it to Quiet.
func SetDefault(l Logger) {
	if l == nil {
		l = Quiet
	}
	std = l
}

// Printf writes to the given logger, tolerating a nil logger.
func Printf(l Logger, format string, v ...interface{}) {
	if l == nil {
		return
	}
	l.Printf(format, v...)
}

// Debugf writes a trace message to the default logger.
func Debugf(format string, v ...interface{}) {
	Printf(std, format, v...)
}

// Warn writes v to the default logger prefixed with "warning: ".
func Warn(v ...interface{}) {
	if std == nil {
		return
	}
	std.Print(append([]interface{}{"warning: "}, v...)...)
}

// Warnf writes a formatted warning to the default logger.
func Warnf(format string, v ...interface{}) {
	Printf(std, "warning: "+format, v...)
}
