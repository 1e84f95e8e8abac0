// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package flags

import (
	"flag"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/hashicorp/nanosock/logging"
)

// LogFlags are the logging options shared by every command.
type LogFlags struct {
	level  string
	json   bool
	color  string
	syslog bool
	file   string

	rotateDuration time.Duration
	rotateBytes    int
	rotateMaxFiles int
}

func (f *LogFlags) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.StringVar(&f.level, "log-level", "WARN",
		"Minimum level of log lines written to stderr. One of TRACE, DEBUG, "+
			"INFO, WARN or ERROR.")
	fs.BoolVar(&f.json, "log-json", false,
		"Write log lines as JSON objects.")
	fs.StringVar(&f.color, "log-color", "auto",
		"Color log lines: auto, on or off.")
	fs.BoolVar(&f.syslog, "syslog", false,
		"Also forward log lines to the local syslog daemon.")
	fs.StringVar(&f.file, "log-file", "",
		"Also write log lines to this file, rotated daily. A path ending in a "+
			"separator selects the default file name in that directory.")
	fs.DurationVar(&f.rotateDuration, "log-rotate-duration", 0,
		"Age after which the log file is rotated. Zero selects 24h.")
	fs.IntVar(&f.rotateBytes, "log-rotate-bytes", 0,
		"Size in bytes after which the log file is rotated. Zero disables "+
			"size based rotation.")
	fs.IntVar(&f.rotateMaxFiles, "log-rotate-max-files", 0,
		"Rotated log files kept. Zero keeps all of them, a negative value "+
			"keeps none.")
	return fs
}

// Level returns the -log-level value.
func (f *LogFlags) Level() string { return f.level }

// SetLevel overrides the level unless -log-level was given on the command
// line, in which case set is false.
func (f *LogFlags) SetLevel(level string, set bool) {
	if !set && level != "" {
		f.level = level
	}
}

// SetRotation overrides every rotation setting that was not given on the
// command line. isSet reports whether the flag with the given name was.
func (f *LogFlags) SetRotation(duration time.Duration, bytes, maxFiles int, isSet func(name string) bool) {
	if !isSet("log-rotate-duration") && duration != 0 {
		f.rotateDuration = duration
	}
	if !isSet("log-rotate-bytes") && bytes != 0 {
		f.rotateBytes = bytes
	}
	if !isSet("log-rotate-max-files") && maxFiles != 0 {
		f.rotateMaxFiles = maxFiles
	}
}

// Config translates the flags into a logging config for a logger called name.
func (f *LogFlags) Config(name string) (logging.Config, error) {
	color, err := logging.NewColorOption(f.color)
	if err != nil {
		return logging.Config{}, err
	}
	return logging.Config{
		LogLevel:          f.level,
		LogJSON:           f.json,
		Name:              name,
		EnableSyslog:      f.syslog,
		SyslogFacility:    "LOCAL0",
		Color:             color,
		LogFilePath:       f.file,
		LogRotateDuration: f.rotateDuration,
		LogRotateBytes:    f.rotateBytes,
		LogRotateMaxFiles: f.rotateMaxFiles,
	}, nil
}

// Logger builds the logger for a command, writing to the UI's error stream.
func (f *LogFlags) Logger(ui cli.Ui, name string) (hclog.InterceptLogger, error) {
	cfg, err := f.Config(name)
	if err != nil {
		return nil, err
	}
	return logging.Setup(cfg, &uiErrorWriter{ui: ui})
}

// uiErrorWriter turns each written log line into a UI error message.
type uiErrorWriter struct {
	ui cli.Ui
}

func (w *uiErrorWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		w.ui.Error(line)
	}
	return len(p), nil
}
