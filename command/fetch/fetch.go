// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-uuid"
	"github.com/mitchellh/cli"
	"github.com/ryanuber/columnize"

	"github.com/hashicorp/nanosock/command/flags"
	"github.com/hashicorp/nanosock/config"
	"github.com/hashicorp/nanosock/httpwire"
	"github.com/hashicorp/nanosock/lib/file"
	"github.com/hashicorp/nanosock/lib/telemetry"
	"github.com/hashicorp/nanosock/mux"
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

	configFile    string
	connections   int
	requests      int
	timeout       time.Duration
	waitTimeout   time.Duration
	method        string
	bufferSize    int
	statsiteAddr  string
	statsdAddr    string
	dogstatsdAddr string
	tags          map[string]string
	output        string
}

func (c *cmd) init() {
	c.flags = flag.NewFlagSet("", flag.ContinueOnError)
	c.flags.StringVar(&c.configFile, "config", "",
		"Path to an HCL or JSON file listing targets and settings. Flags given "+
			"on the command line take precedence over the file.")
	c.flags.IntVar(&c.connections, "connections", 1,
		"Connections opened to the target given as arguments.")
	c.flags.IntVar(&c.requests, "requests", 1,
		"Requests sent one after the other on every connection.")
	c.flags.DurationVar(&c.timeout, "timeout", config.DefaultTimeout,
		"Bounds connecting as well as every read and write.")
	c.flags.DurationVar(&c.waitTimeout, "wait-timeout", config.DefaultWaitTimeout,
		"Gives up on every connection still waiting once no response arrived "+
			"for this long. A negative value waits forever.")
	c.flags.StringVar(&c.method, "method", config.DefaultMethod,
		"Method of the requests to the target given as arguments.")
	c.flags.IntVar(&c.bufferSize, "buffer-size", 0,
		"Capacity of each receive buffer in bytes. Zero selects the default.")
	c.flags.StringVar(&c.statsiteAddr, "statsite-addr", "",
		"Send metrics to the statsite server at this address.")
	c.flags.StringVar(&c.statsdAddr, "statsd-addr", "",
		"Send metrics to the statsd server at this address.")
	c.flags.StringVar(&c.dogstatsdAddr, "dogstatsd-addr", "",
		"Send metrics to the DogStatsD agent at this address.")
	c.flags.Var((*flags.FlagMapValue)(&c.tags), "tag",
		"Tag added to DogStatsD metrics, in the form key=value. This flag "+
			"may be specified multiple times.")
	c.flags.StringVar(&c.output, "output", "",
		"Also write the summary table to this file. The file is replaced "+
			"atomically.")
	c.logs = &flags.LogFlags{}
	flags.Merge(c.flags, c.logs.Flags())
	c.help = flags.Usage(help, c.flags)
}

func (c *cmd) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
		return 1
	}

	cfg, err := c.loadConfig()
	if err != nil {
		c.UI.Error(fmt.Sprintf("ERROR: %s", err))
		return 1
	}

	c.logs.SetLevel(cfg.LogLevel, c.isSet("log-level"))
	c.logs.SetRotation(cfg.LogRotateDuration, cfg.LogRotateBytes, cfg.LogRotateMaxFiles, c.isSet)
	logger, err := c.logs.Logger(c.UI, "fetch")
	if err != nil {
		c.UI.Error(fmt.Sprintf("ERROR: %s", err))
		return 1
	}

	telemetryCfg, err := cfg.Telemetry()
	if err != nil {
		c.UI.Error(fmt.Sprintf("ERROR: %s", err))
		return 1
	}
	metricsClient, err := telemetry.Init(telemetryCfg)
	if err != nil {
		c.UI.Error(fmt.Sprintf("ERROR: failed to set up telemetry: %s", err))
		return 1
	}

	r := &run{
		cfg:     cfg,
		logger:  logger,
		metrics: metricsClient,
		mux:     mux.New(mux.Config{Logger: logger}),
		conns:   make(map[*httpwire.Exchange]*conn),
	}
	defer r.mux.Close()

	if err := r.execute(context.Background()); err != nil {
		c.UI.Error(fmt.Sprintf("ERROR: %s", err))
		return 1
	}

	summary := r.summary()
	c.UI.Output(summary)
	if c.output != "" {
		if err := file.WriteAtomic(c.output, []byte(summary+"\n"), 0644); err != nil {
			c.UI.Error(fmt.Sprintf("ERROR: failed to write %s: %s", c.output, err))
			return 1
		}
	}
	if r.failed() > 0 {
		c.UI.Error(fmt.Sprintf("ERROR: %d of %d connections failed", r.failed(), len(r.all)))
		return 1
	}
	return 0
}

func (c *cmd) isSet(name string) bool {
	set := false
	c.flags.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// loadConfig merges the config file, the flags and the target given as
// arguments, in increasing order of precedence.
func (c *cmd) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if c.configFile != "" {
		var err error
		if cfg, err = config.Load(c.configFile); err != nil {
			return cfg, err
		}
	}

	c.flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "requests":
			cfg.Requests = c.requests
		case "timeout":
			cfg.Timeout = c.timeout
		case "wait-timeout":
			cfg.WaitTimeout = c.waitTimeout
		case "buffer-size":
			cfg.BufferSize = c.bufferSize
		case "statsite-addr":
			cfg.StatsiteAddr = c.statsiteAddr
		case "statsd-addr":
			cfg.StatsdAddr = c.statsdAddr
		case "dogstatsd-addr":
			cfg.DogstatsdAddr = c.dogstatsdAddr
		}
	})
	if len(c.tags) > 0 {
		if cfg.DogstatsdTags == nil {
			cfg.DogstatsdTags = make(map[string]string)
		}
		// Flags win over the file.
		for k := range c.tags {
			delete(cfg.DogstatsdTags, k)
		}
		flags.FlagMapValue(c.tags).Merge(cfg.DogstatsdTags)
	}

	switch args := c.flags.Args(); len(args) {
	case 0:
	case 2, 3:
		port, err := strconv.Atoi(args[1])
		if err != nil {
			return cfg, fmt.Errorf("invalid port %q", args[1])
		}
		t := config.Target{
			Host:        args[0],
			Port:        port,
			Method:      c.method,
			Path:        config.DefaultPath,
			Connections: c.connections,
		}
		if len(args) == 3 {
			t.Path = args[2]
		}
		cfg.Targets = append(cfg.Targets, t)
	default:
		return cfg, fmt.Errorf("expected 0, 2 or 3 arguments, got %d", len(args))
	}

	return cfg, cfg.Validate()
}

// conn tracks one connection of a run.
type conn struct {
	id     string
	target config.Target
	ex     *httpwire.Exchange

	resp     httpwire.Response
	sentAt   time.Time
	elapsed  time.Duration
	received int
	bytes    int
	status   string
	err      error
	done     bool
}

type run struct {
	cfg     config.Config
	logger  hclog.Logger
	metrics telemetry.MetricsClient
	mux     *mux.Multiplexer

	all   []*conn
	conns map[*httpwire.Exchange]*conn
}

func (r *run) execute(ctx context.Context) error {
	for _, t := range r.cfg.Targets {
		for i := 0; i < t.Connections; i++ {
			if err := r.open(ctx, t); err != nil {
				return err
			}
		}
	}

	for r.pending() > 0 {
		err := r.mux.Wait(r.handle, r.cfg.WaitTimeout)
		switch {
		case errors.Is(err, mux.ErrTimeout):
			r.logger.Warn("timed out waiting for responses", "pending", r.pending())
			for _, c := range r.all {
				if !c.done {
					r.fail(c, fmt.Errorf("no response within %s", r.cfg.WaitTimeout))
				}
			}
		case err != nil:
			return err
		}
	}
	return nil
}

func (r *run) open(ctx context.Context, t config.Target) error {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return err
	}
	c := &conn{id: id, target: t}
	r.all = append(r.all, c)

	ex, err := r.mux.Add(ctx, httpwire.Config{
		Host:       t.Host,
		Port:       t.Port,
		Timeout:    r.cfg.Timeout,
		BufferSize: r.cfg.BufferSize,
		Logger:     r.logger.Named("exchange").With("conn", id),
	})
	if err != nil {
		// A peer that cannot be reached fails its connection, not the run.
		c.err = err
		c.done = true
		r.logger.Error("failed to connect", "conn", id, "error", err)
		return nil
	}
	c.ex = ex
	r.conns[ex] = c
	r.send(c)
	return nil
}

func (r *run) send(c *conn) {
	c.sentAt = time.Now()
	if err := c.ex.Send(c.target.Method, c.target.Path, []byte(c.target.Body)); err != nil {
		r.fail(c, err)
	}
}

// handle is the multiplexer callback. Failures end the connection they
// happened on, never the run.
func (r *run) handle(ex *httpwire.Exchange, blocking bool) error {
	c, ok := r.conns[ex]
	if !ok || c.done {
		return nil
	}

	done, err := ex.Advance(&c.resp, blocking)
	if err != nil {
		r.fail(c, err)
		return nil
	}
	if !done {
		return nil
	}

	c.received++
	c.elapsed += time.Since(c.sentAt)
	c.bytes += len(c.resp.Content)
	c.status = c.resp.Status
	r.metrics.IncrCounter([]string{"fetch", "response"}, 1,
		telemetry.Label{Key: "host", Value: c.target.Host},
		telemetry.Label{Key: "status", Value: c.status})
	r.logger.Debug("response received", "conn", c.id, "status", c.status, "count", c.received)
	c.resp.Reset()

	if c.received < r.cfg.Requests {
		r.send(c)
		return nil
	}
	c.done = true
	if err := r.mux.Release(ex); err != nil {
		r.logger.Warn("failed to close connection", "conn", c.id, "error", err)
	}
	return nil
}

func (r *run) fail(c *conn, err error) {
	c.err = err
	c.done = true
	r.logger.Error("connection failed", "conn", c.id, "error", err)
	if c.ex != nil {
		if err := r.mux.Release(c.ex); err != nil {
			r.logger.Warn("failed to close connection", "conn", c.id, "error", err)
		}
	}
}

func (r *run) pending() int {
	n := 0
	for _, c := range r.all {
		if !c.done {
			n++
		}
	}
	return n
}

func (r *run) failed() int {
	n := 0
	for _, c := range r.all {
		if c.err != nil {
			n++
		}
	}
	return n
}

func (r *run) summary() string {
	result := []string{"ID|Target|Path|Responses|Status|Body Bytes|Avg Latency|Error"}
	for _, c := range r.all {
		status, latency, errMsg := "-", "-", ""
		if c.status != "" {
			status = c.status
		}
		if c.received > 0 {
			latency = (c.elapsed / time.Duration(c.received)).Round(time.Microsecond).String()
		}
		if c.err != nil {
			errMsg = c.err.Error()
		}
		result = append(result, fmt.Sprintf("%s|%s:%d|%s|%d/%d|%s|%d|%s|%s",
			c.id, c.target.Host, c.target.Port, c.target.Path,
			c.received, r.cfg.Requests, status, c.bytes, latency, errMsg))
	}
	return columnize.SimpleFormat(result)
}

func (c *cmd) Synopsis() string {
	return synopsis
}

func (c *cmd) Help() string {
	return c.help
}

const (
	synopsis = "Fetch from many connections at once"
	help     = `
Usage: nanosock fetch [options] [HOST PORT [PATH]]

  Opens connections to every target and drives them all from a single
  thread, waiting for whichever peer is ready next. Each connection sends
  its requests one after the other, reusing the connection, and a table
  summarizing every connection is printed at the end.

  Targets come from the file given with -config, from the arguments, or
  from both:

      $ nanosock fetch -connections=8 -requests=100 127.0.0.1 8080 /health

      $ nanosock fetch -config=targets.hcl
`
)
