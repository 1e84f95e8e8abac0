// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package get

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/mitchellh/cli"

	"github.com/hashicorp/nanosock/command/flags"
	"github.com/hashicorp/nanosock/httpwire"
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

	timeout    time.Duration
	method     string
	bufferSize int
}

func (c *cmd) init() {
	c.flags = flag.NewFlagSet("", flag.ContinueOnError)
	c.flags.DurationVar(&c.timeout, "timeout", time.Second,
		"Bounds connecting as well as every read and write. Zero disables it.")
	c.flags.StringVar(&c.method, "method", "GET",
		"Method of the request.")
	c.flags.IntVar(&c.bufferSize, "buffer-size", 0,
		"Capacity of the receive buffer in bytes. Zero selects the default.")
	c.logs = &flags.LogFlags{}
	flags.Merge(c.flags, c.logs.Flags())
	c.help = flags.Usage(help, c.flags)
}

func (c *cmd) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
		return 1
	}

	args = c.flags.Args()
	if len(args) < 3 || len(args) > 4 {
		c.UI.Error(fmt.Sprintf("ERROR: expected 3 or 4 arguments, got %d", len(args)))
		c.UI.Error(c.Help())
		return 1
	}
	port, err := strconv.Atoi(args[1])
	if err != nil {
		c.UI.Error(fmt.Sprintf("ERROR: invalid port %q", args[1]))
		return 1
	}
	var body []byte
	if len(args) == 4 {
		body = []byte(args[3])
	}

	logger, err := c.logs.Logger(c.UI, "get")
	if err != nil {
		c.UI.Error(fmt.Sprintf("ERROR: %s", err))
		return 1
	}

	cfg := httpwire.Config{
		Host:       args[0],
		Port:       port,
		Timeout:    c.timeout,
		BufferSize: c.bufferSize,
		Logger:     logger,
	}
	if err := httpwire.Do(context.Background(), cfg, c.method, args[2], body, &printer{ui: c.UI}); err != nil {
		c.UI.Error(fmt.Sprintf("ERROR: %s", err))
		return 1
	}
	return 0
}

// printer writes every part of a response as soon as it is parsed.
type printer struct {
	ui cli.Ui
}

func (p *printer) Version(v string) { p.ui.Output("VERSION: " + v) }

func (p *printer) Code(code string) { p.ui.Output("CODE: " + code) }

func (p *printer) Header(key, val string) {
	p.ui.Output(fmt.Sprintf("HEADER: %s\t|\t%s", key, val))
}

func (p *printer) Body(body []byte) { p.ui.Output("BODY: " + string(body)) }

func (c *cmd) Synopsis() string {
	return synopsis
}

func (c *cmd) Help() string {
	return c.help
}

const (
	synopsis = "Send one HTTP request and print the response"
	help     = `
Usage: nanosock get [options] HOST PORT PATH [BODY]

  Connects to HOST:PORT, sends a single HTTP/1.1 request for PATH and prints
  the status line, every header and the body as they are parsed. A BODY
  argument is sent as the request body with a Content-Length header.

      $ nanosock get example.com 80 /

      $ nanosock get -method=POST 127.0.0.1 8080 /submit 'hello'
`
)
