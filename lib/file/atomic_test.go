// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteAtomic(t *testing.T) {
	td := t.TempDir()

	// The subdirectory is created on demand.
	path := filepath.Join(td, "reports", "summary.txt")

	require.NoError(t, WriteAtomic(path, []byte("first"), 0600))
	require.NoError(t, WriteAtomic(path, []byte("second"), 0600))

	actual, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "second", string(actual))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files left behind")
}

func TestWriteAtomic_RenameFailureCleansUp(t *testing.T) {
	td := t.TempDir()

	// Renaming a file over a non-empty directory fails.
	path := filepath.Join(td, "occupied")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "child"), 0700))

	require.Error(t, WriteAtomic(path, []byte("data"), 0600))

	entries, err := os.ReadDir(td)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "occupied", entries[0].Name())
}
