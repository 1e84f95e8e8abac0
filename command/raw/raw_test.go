// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package raw

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"

	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/nanosock/internal/testutil"
)

func TestRawCommand_noTabs(t *testing.T) {
	t.Parallel()
	if strings.ContainsRune(New(cli.NewMockUi()).Help(), '\t') {
		t.Fatal("help has tabs")
	}
}

// respondAndClose reads a request head, writes resp in pieces and hangs up.
func respondAndClose(requests chan<- string, resp ...string) func(net.Conn) {
	return func(c net.Conn) {
		defer c.Close()
		br := bufio.NewReader(c)
		var head strings.Builder
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			head.WriteString(line)
			if line == "\r\n" {
				break
			}
		}
		requests <- head.String()
		for _, part := range resp {
			if _, err := io.WriteString(c, part); err != nil {
				return
			}
		}
	}
}

func TestRawCommand_PrintsSections(t *testing.T) {
	t.Parallel()

	requests := make(chan string, 1)
	peer := testutil.NewPeer(t, respondAndClose(requests,
		"HTTP/1.0 200 OK\r\nServer: te",
		"st\r\nX-A: 1\r\n\r\nfirst line\nsecond",
		" line\r\nno newline at end",
	))

	ui := cli.NewMockUi()
	code := New(ui).Run([]string{peer.Host, strconv.Itoa(peer.Port), "/docs"})
	require.Equal(t, 0, code, ui.ErrorWriter.String())

	require.Equal(t, "GET /docs HTTP/1.0\r\nHost: "+peer.Host+"\r\n\r\n", <-requests)
	require.Equal(t, strings.Join([]string{
		"STATUS: HTTP/1.0 200 OK",
		"HEADERS:",
		"Server: test",
		"X-A: 1",
		"BODY:",
		"first line",
		"second line",
		"no newline at end",
		"",
	}, "\n"), ui.OutputWriter.String())
}

func TestRawCommand_NoHeaders(t *testing.T) {
	t.Parallel()

	requests := make(chan string, 1)
	peer := testutil.NewPeer(t, respondAndClose(requests, "HTTP/1.0 204 No Content\r\n\r\n"))

	ui := cli.NewMockUi()
	require.Equal(t, 0, New(ui).Run([]string{peer.Host, strconv.Itoa(peer.Port)}))
	require.Contains(t, <-requests, "GET / HTTP/1.0\r\n")
	require.Equal(t, "STATUS: HTTP/1.0 204 No Content\nHEADERS:\nBODY:\n", ui.OutputWriter.String())
}

func TestRawCommand_ClosedBeforeHeaders(t *testing.T) {
	t.Parallel()

	requests := make(chan string, 1)
	peer := testutil.NewPeer(t, respondAndClose(requests, "HTTP/1.0 200 OK\r\nServer"))

	ui := cli.NewMockUi()
	require.Equal(t, 1, New(ui).Run([]string{peer.Host, strconv.Itoa(peer.Port)}))
	require.Contains(t, ui.ErrorWriter.String(), "ERROR: reading headers: nanosock: reading from a closed stream")
}

func TestRawCommand_BadArgs(t *testing.T) {
	t.Parallel()

	ui := cli.NewMockUi()
	require.Equal(t, 1, New(ui).Run([]string{"localhost"}))
	require.Contains(t, ui.ErrorWriter.String(), "expected 2 or 3 arguments, got 1")

	ui = cli.NewMockUi()
	require.Equal(t, 1, New(ui).Run([]string{"localhost", "eighty"}))
	require.Contains(t, ui.ErrorWriter.String(), `invalid port "eighty"`)
}
