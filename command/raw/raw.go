// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package raw

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/hashicorp/nanosock/command/flags"
	"github.com/hashicorp/nanosock/wire"
)

func New(ui cli.Ui) *cmd {
	c := &cmd{UI: ui}
	c.init()
	return c
}

type cmd struct {
	UI    cli.Ui
	flags *flag.FlagSet
	logs  *flags.LogFlags
	help  string

	timeout time.Duration
}

func (c *cmd) init() {
	c.flags = flag.NewFlagSet("", flag.ContinueOnError)
	c.flags.DurationVar(&c.timeout, "timeout", time.Second,
		"Bounds connecting as well as every read and write. Zero disables it.")
	c.logs = &flags.LogFlags{}
	flags.Merge(c.flags, c.logs.Flags())
	c.help = flags.Usage(help, c.flags)
}

func (c *cmd) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
		return 1
	}

	args = c.flags.Args()
	if len(args) < 2 || len(args) > 3 {
		c.UI.Error(fmt.Sprintf("ERROR: expected 2 or 3 arguments, got %d", len(args)))
		return 1
	}
	port, err := strconv.Atoi(args[1])
	if err != nil {
		c.UI.Error(fmt.Sprintf("ERROR: invalid port %q", args[1]))
		return 1
	}
	path := "/"
	if len(args) == 3 {
		path = args[2]
	}

	logger, err := c.logs.Logger(c.UI, "raw")
	if err != nil {
		c.UI.Error(fmt.Sprintf("ERROR: %s", err))
		return 1
	}

	if err := c.fetch(args[0], port, path, logger); err != nil {
		c.UI.Error(fmt.Sprintf("ERROR: %s", err))
		return 1
	}
	return 0
}

// fetch reads the response with nothing but delimited reads: the status
// line, the header block as a whole, then the body line by line until the
// peer closes the stream.
func (c *cmd) fetch(host string, port int, path string, logger hclog.Logger) error {
	t, err := wire.Dial(context.Background(), host, port, c.timeout)
	if err != nil {
		return err
	}
	defer t.Close()

	req := fmt.Sprintf("GET %s HTTP/1.0\r\nHost: %s\r\n\r\n", path, host)
	if err := t.SendAll([]byte(req)); err != nil {
		return err
	}
	logger.Debug("request sent", "path", path)

	buf := wire.NewReceiveBuffer(0)
	var field []byte
	sink := func(segment []byte) { field = append(field, segment...) }

	readField := func(r *wire.DelimitedReader) error {
		field = field[:0]
		for {
			done, err := r.Read(buf, t, sink, true)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}

	if err := readField(wire.NewDelimitedReader(wire.NewSequence("\r\n"))); err != nil {
		return fmt.Errorf("reading status line: %w", err)
	}
	c.UI.Output("STATUS: " + strings.TrimSuffix(string(field), "\r\n"))

	// The status line's CRLF opens the blank line that ends the header
	// block, so a response without headers ends right after it.
	blankLine := wire.NewSequence("\r\n\r\n")
	blankLine.Check('\r')
	blankLine.Check('\n')
	if err := readField(wire.NewDelimitedReader(blankLine)); err != nil {
		return fmt.Errorf("reading headers: %w", err)
	}
	c.UI.Output("HEADERS:")
	headers := strings.TrimRight(string(field), "\r\n")
	if headers != "" {
		for _, h := range strings.Split(headers, "\r\n") {
			c.UI.Output(h)
		}
	}

	c.UI.Output("BODY:")
	lines := wire.NewDelimitedReader(wire.NewSequence("\n"))
	for {
		err := readField(lines)
		if errors.Is(err, wire.ErrEndOfStream) {
			if len(field) > 0 {
				c.UI.Output(string(field))
			}
			logger.Debug("peer closed the stream")
			return nil
		}
		if err != nil {
			return err
		}
		c.UI.Output(strings.TrimRight(string(field), "\r\n"))
	}
}

func (c *cmd) Synopsis() string {
	return synopsis
}

func (c *cmd) Help() string {
	return c.help
}

const (
	synopsis = "Send an HTTP/1.0 request and print the raw response"
	help     = `
Usage: nanosock raw [options] HOST PORT [PATH]

  Sends an HTTP/1.0 GET request for PATH, which defaults to "/", and prints
  the status line, the header block and the body line by line until the
  peer closes the connection. Nothing is interpreted, so this works with
  servers whose responses carry no Content-Length.

      $ nanosock raw example.com 80 /index.html
`
)
