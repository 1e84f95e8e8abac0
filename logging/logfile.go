// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var now = time.Now

// LogFile is used to setup a file based logger that also performs log rotation
type LogFile struct {
	// Name of the log file
	fileName string

	// Path to the log file
	logPath string

	// Duration between each file rotation operation
	duration time.Duration

	// LastCreated represents the creation time of the latest log
	LastCreated time.Time

	// FileInfo is the pointer to the current file being written to
	FileInfo *os.File

	// MaxBytes is the maximum number of desired bytes for a log file
	MaxBytes int

	// BytesWritten is the number of bytes written in the current log file
	BytesWritten int64

	// Max rotated files to keep before removing them. Zero keeps all of
	// them, a negative value keeps none.
	MaxFiles int

	// acquire is the mutex utilized to ensure we have no concurrency issues
	acquire sync.Mutex
}

func (l *LogFile) fileNamePattern() string {
	ext := filepath.Ext(l.fileName)
	if ext == "" {
		ext = ".log"
	}
	return strings.TrimSuffix(l.fileName, ext) + "-%s" + ext
}

func (l *LogFile) openNew() error {
	createTime := now()
	newFileName := fmt.Sprintf(l.fileNamePattern(), fileStamp(createTime))
	newFilePath := filepath.Join(l.logPath, newFileName)

	// Try creating a file. We truncate the file because we are the only authority to write the logs
	filePointer, err := os.OpenFile(newFilePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0640)
	if err != nil {
		return err
	}

	if l.FileInfo != nil {
		l.FileInfo.Close()
	}
	l.FileInfo = filePointer
	// New file, new bytes tracker, new creation time :)
	l.LastCreated = createTime
	l.BytesWritten = 0
	return nil
}

// fileStamp is fixed width so that archived names sort by age.
func fileStamp(t time.Time) string { return fmt.Sprintf("%020d", t.UnixNano()) }

func (l *LogFile) rotate() error {
	// Get the time from the last point of contact
	timeElapsed := now().Sub(l.LastCreated)
	// Rotate if we hit the byte file limit or the time limit
	if (l.MaxBytes > 0 && l.BytesWritten >= int64(l.MaxBytes)) || (timeElapsed >= l.duration) {
		if err := l.openNew(); err != nil {
			return err
		}
		return l.pruneFiles()
	}
	return nil
}

func (l *LogFile) pruneFiles() error {
	if l.MaxFiles == 0 {
		return nil
	}

	pattern := filepath.Join(l.logPath, fmt.Sprintf(l.fileNamePattern(), "*"))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	sort.Strings(matches)

	// The current file is always among the matches.
	keep := l.MaxFiles + 1
	if l.MaxFiles < 0 {
		keep = 1
	}
	if len(matches) <= keep {
		return nil
	}
	for _, path := range matches[:len(matches)-keep] {
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return nil
}

// Write is used to implement io.Writer
func (l *LogFile) Write(b []byte) (int, error) {
	l.acquire.Lock()
	defer l.acquire.Unlock()

	// Create a new file if we have no file to write to
	if l.FileInfo == nil {
		if err := l.openNew(); err != nil {
			return 0, err
		}
	}
	// Check for the last contact and rotate if necessary
	if err := l.rotate(); err != nil {
		return 0, err
	}

	n, err := l.FileInfo.Write(b)
	l.BytesWritten += int64(n)
	return n, err
}
