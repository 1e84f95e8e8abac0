// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/nanosock/internal/testutil"
)

var uuidRow = regexp.MustCompile(`(?m)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\s`)

const okResponse = "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok"

func TestFetchCommand_noTabs(t *testing.T) {
	t.Parallel()
	if strings.ContainsRune(New(cli.NewMockUi()).Help(), '\t') {
		t.Fatal("help has tabs")
	}
}

func TestFetchCommand_BadArgs(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		args []string
		want string
	}{
		"no targets":  {nil, "at least one target is required"},
		"one arg":     {[]string{"localhost"}, "expected 0, 2 or 3 arguments, got 1"},
		"bad port":    {[]string{"localhost", "http"}, `invalid port "http"`},
		"bad config":  {[]string{"-config", "/does/not/exist.hcl"}, "failed to read config file"},
		"bad request": {[]string{"-requests", "0", "localhost", "80"}, "requests must be at least 1"},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			ui := cli.NewMockUi()
			require.Equal(t, 1, New(ui).Run(tc.args))
			require.Contains(t, ui.ErrorWriter.String(), tc.want)
			require.Empty(t, ui.OutputWriter.String())
		})
	}
}

func TestFetchCommand_ManyConnections(t *testing.T) {
	t.Parallel()

	peer := testutil.NewPeer(t, testutil.StaticResponse(okResponse))

	output := filepath.Join(t.TempDir(), "out", "summary.txt")

	ui := cli.NewMockUi()
	code := New(ui).Run([]string{
		"-output", output,
		"-connections", "3",
		"-requests", "4",
		peer.Host, strconv.Itoa(peer.Port), "/ping",
	})
	require.Equal(t, 0, code, ui.ErrorWriter.String())

	out := ui.OutputWriter.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4, out)
	require.Regexp(t, `^ID\s+Target\s+Path\s+Responses\s+Status\s+Body Bytes\s+Avg Latency\s+Error`, lines[0])
	require.Len(t, uuidRow.FindAllString(out, -1), 3)

	target := fmt.Sprintf("%s:%d", peer.Host, peer.Port)
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		require.Equal(t, []string{target, "/ping", "4/4", "200", "8"}, fields[1:6], line)
	}

	written, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, out, string(written))
}

func TestFetchCommand_ConfigFileWithStalledAndUnreachablePeers(t *testing.T) {
	t.Parallel()

	fast := testutil.NewPeer(t, testutil.StaticResponse(okResponse))
	stalled := testutil.NewPeer(t, testutil.HTTPHandler(func(testutil.Request) string { return "" }))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	closedPort := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	path := filepath.Join(t.TempDir(), "fetch.hcl")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`
requests     = 2
wait_timeout = "300ms"

target {
  host = %[1]q
  port = %[2]d
  path = "/fast"
}

target {
  host = %[1]q
  port = %[3]d
  path = "/slow"
}

target {
  host = "127.0.0.1"
  port = %[4]d
  path = "/closed"
}
`, fast.Host, fast.Port, stalled.Port, closedPort)), 0600))

	ui := cli.NewMockUi()
	code := New(ui).Run([]string{"-config", path})
	require.Equal(t, 1, code)

	out := ui.OutputWriter.String()
	require.Len(t, uuidRow.FindAllString(out, -1), 3, out)

	rows := make(map[string]string)
	for _, line := range strings.Split(out, "\n")[1:] {
		for _, p := range []string{"/fast", "/slow", "/closed"} {
			if strings.Contains(line, " "+p+" ") {
				rows[p] = line
			}
		}
	}
	require.Contains(t, rows["/fast"], "2/2")
	require.Contains(t, rows["/slow"], "0/2")
	require.Contains(t, rows["/slow"], "no response within 300ms")
	require.Contains(t, rows["/closed"], "could not connect")
	require.Contains(t, ui.ErrorWriter.String(), "ERROR: 2 of 3 connections failed")
}

func TestFetchCommand_FlagsOverrideConfig(t *testing.T) {
	t.Parallel()

	peer := testutil.NewPeer(t, testutil.StaticResponse(okResponse))

	path := filepath.Join(t.TempDir(), "fetch.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"requests": 5, "log_level": "info", "dogstatsd_tags": {"env": "file"}}`), 0600))

	ui := cli.NewMockUi()
	c := New(ui)
	code := c.Run([]string{
		"-config", path,
		"-requests", "2",
		"-tag", "env=flag",
		peer.Host, strconv.Itoa(peer.Port),
	})
	require.Equal(t, 0, code, ui.ErrorWriter.String())

	cfg, err := c.loadConfig()
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Requests)
	require.Equal(t, map[string]string{"env": "flag"}, cfg.DogstatsdTags)
	require.Equal(t, "info", c.logs.Level())
	require.Contains(t, ui.OutputWriter.String(), " 2/2 ")
}

func TestFetchCommand_LogRotationAndStatsiteFromConfig(t *testing.T) {
	t.Parallel()

	peer := testutil.NewPeer(t, testutil.StaticResponse(okResponse))

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "logs"), 0700))
	path := filepath.Join(dir, "fetch.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
log_rotate_bytes     = 4096
log_rotate_max_files = 2
statsite_addr        = "127.0.0.1:8125"
`), 0600))

	ui := cli.NewMockUi()
	c := New(ui)
	code := c.Run([]string{
		"-config", path,
		"-log-file", filepath.Join(dir, "logs") + string(filepath.Separator),
		"-log-rotate-max-files", "5",
		"-statsite-addr", "127.0.0.1:9125",
		peer.Host, strconv.Itoa(peer.Port),
	})
	require.Equal(t, 0, code, ui.ErrorWriter.String())

	logCfg, err := c.logs.Config("fetch")
	require.NoError(t, err)
	require.Equal(t, 4096, logCfg.LogRotateBytes)
	require.Equal(t, 5, logCfg.LogRotateMaxFiles)

	cfg, err := c.loadConfig()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9125", cfg.StatsiteAddr)

	entries, err := os.ReadDir(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
