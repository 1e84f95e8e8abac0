// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package logging

import (
	"bytes"

	gsyslog "github.com/hashicorp/go-syslog"
)

// levelPriority is used to map a log level to a syslog priority level
var levelPriority = map[string]gsyslog.Priority{
	"[TRACE]": gsyslog.LOG_DEBUG,
	"[DEBUG]": gsyslog.LOG_INFO,
	"[INFO]":  gsyslog.LOG_NOTICE,
	"[WARN]":  gsyslog.LOG_WARNING,
	"[ERROR]": gsyslog.LOG_ERR,
}

// SyslogWrapper is used to cleanup log messages before writing them to a
// Syslogger. Implements the io.Writer interface.
type SyslogWrapper struct {
	l gsyslog.Syslogger
}

// Write is used to implement io.Writer
func (s *SyslogWrapper) Write(p []byte) (int, error) {
	// Extract log level
	var level string
	afterLevel := p
	if x := bytes.IndexByte(p, '['); x >= 0 {
		if y := bytes.IndexByte(p[x:], ']'); y >= 0 {
			level = string(p[x : x+y+1])
			afterLevel = bytes.TrimLeft(p[x+y+1:], " ")
		}
	}

	priority, ok := levelPriority[level]
	if !ok {
		priority = gsyslog.LOG_NOTICE
	}

	err := s.l.WriteLevel(priority, afterLevel)
	return len(p), err
}
