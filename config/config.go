// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package config reads the file driving the fetch command. Files are HCL,
// or JSON, which HCL accepts as well.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl"
	"github.com/mitchellh/mapstructure"

	"github.com/hashicorp/nanosock/lib"
	"github.com/hashicorp/nanosock/lib/telemetry"
	"github.com/hashicorp/nanosock/logging"
)

// Target is one peer and the request sent to it.
type Target struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	Method string `mapstructure:"method"`
	Path   string `mapstructure:"path"`
	Body   string `mapstructure:"body"`

	// Connections is the number of concurrent connections opened to the
	// target, each carrying its own requests.
	Connections int `mapstructure:"connections"`
}

type Config struct {
	LogLevel string `mapstructure:"log_level"`

	LogRotateDuration time.Duration `mapstructure:"log_rotate_duration"`
	LogRotateBytes    int           `mapstructure:"log_rotate_bytes"`
	LogRotateMaxFiles int           `mapstructure:"log_rotate_max_files"`

	// Timeout bounds dialing and every receive and send.
	Timeout time.Duration `mapstructure:"timeout"`

	// WaitTimeout bounds each readiness wait; a negative value waits forever.
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`

	BufferSize int `mapstructure:"buffer_size"`

	// Requests is the number of requests sent on every connection, one
	// after the other.
	Requests int `mapstructure:"requests"`

	StatsiteAddr            string            `mapstructure:"statsite_addr"`
	StatsdAddr              string            `mapstructure:"statsd_addr"`
	DogstatsdAddr           string            `mapstructure:"dogstatsd_addr"`
	DogstatsdTags           map[string]string `mapstructure:"dogstatsd_tags"`
	PrometheusRetentionTime time.Duration     `mapstructure:"prometheus_retention_time"`

	// PrefixFilter lists metric prefixes, each starting with "+" to allow or
	// "-" to block it, as in "-nanosock.wire".
	PrefixFilter []string `mapstructure:"prefix_filter"`
	// FilterDefault decides metrics matching no prefix rule.
	FilterDefault bool `mapstructure:"filter_default"`

	Targets []Target `mapstructure:"target"`
}

const (
	DefaultTimeout     = time.Second
	DefaultWaitTimeout = 5 * time.Second
	DefaultMethod      = "GET"
	DefaultPath        = "/"
)

// Default returns a config with every default applied and no targets.
func Default() Config {
	return Config{
		Timeout:       DefaultTimeout,
		WaitTimeout:   DefaultWaitTimeout,
		Requests:      1,
		FilterDefault: true,
	}
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over Default. Target fields left out take their
// defaults. Unknown keys are an error; the result is not validated.
func Parse(data []byte) (Config, error) {
	var raw map[string]interface{}
	if err := hcl.Unmarshal(data, &raw); err != nil {
		return Config{}, err
	}
	raw = lib.PatchSliceOfMaps(raw, []string{"target"}, nil)

	cfg := Default()
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Metadata:         &md,
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Config{}, err
	}
	if err := unusedKeys(md.Unused); err != nil {
		return Config{}, err
	}

	for i := range cfg.Targets {
		cfg.Targets[i].applyDefaults()
	}
	return cfg, nil
}

func unusedKeys(unused []string) error {
	if len(unused) == 0 {
		return nil
	}
	sort.Strings(unused)

	var err error
	for _, k := range unused {
		err = multierror.Append(err, fmt.Errorf("invalid config key %q", k))
	}
	return err
}

func (t *Target) applyDefaults() {
	if t.Method == "" {
		t.Method = DefaultMethod
	}
	if t.Path == "" {
		t.Path = DefaultPath
	}
	if t.Connections == 0 {
		t.Connections = 1
	}
}

// Validate reports every problem with c at once.
func (c Config) Validate() error {
	var result error
	add := func(format string, args ...interface{}) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	if c.LogLevel != "" && !logging.ValidateLogLevel(c.LogLevel) {
		add("log_level %q must be one of %s", c.LogLevel, strings.Join(logging.AllowedLogLevels(), ", "))
	}
	if c.Timeout < 0 {
		add("timeout must not be negative")
	}
	if c.WaitTimeout == 0 {
		add("wait_timeout must not be zero")
	}
	if c.BufferSize < 0 {
		add("buffer_size must not be negative")
	}
	if c.Requests < 1 {
		add("requests must be at least 1")
	}
	if c.LogRotateDuration < 0 {
		add("log_rotate_duration must not be negative")
	}
	if c.LogRotateBytes < 0 {
		add("log_rotate_bytes must not be negative")
	}
	if _, _, err := parsePrefixFilter(c.PrefixFilter); err != nil {
		result = multierror.Append(result, err)
	}
	if len(c.Targets) == 0 {
		add("at least one target is required")
	}
	for i, t := range c.Targets {
		if t.Host == "" {
			add("target %d: host is required", i)
		}
		if t.Port < 1 || t.Port > 65535 {
			add("target %d: port %d is out of range", i, t.Port)
		}
		if t.Connections < 1 {
			add("target %d: connections must be at least 1", i)
		}
		if strings.ContainsAny(t.Method, " \r\n") || strings.ContainsAny(t.Path, " \r\n") {
			add("target %d: method and path must not contain spaces or line breaks", i)
		}
	}
	return result
}

// Telemetry translates the metrics settings into a telemetry config.
func (c Config) Telemetry() (telemetry.Config, error) {
	allowed, blocked, err := parsePrefixFilter(c.PrefixFilter)
	if err != nil {
		return telemetry.Config{}, err
	}
	filterDefault := c.FilterDefault

	tags := make([]string, 0, len(c.DogstatsdTags))
	for k, v := range c.DogstatsdTags {
		tags = append(tags, k+":"+v)
	}
	sort.Strings(tags)

	return telemetry.Config{
		DisableHostname:         true,
		FilterDefault:           &filterDefault,
		AllowedPrefixes:         allowed,
		BlockedPrefixes:         blocked,
		StatsiteAddr:            c.StatsiteAddr,
		StatsdAddr:              c.StatsdAddr,
		DogstatsdAddr:           c.DogstatsdAddr,
		DogstatsdTags:           tags,
		PrometheusRetentionTime: c.PrometheusRetentionTime,
	}, nil
}

func parsePrefixFilter(rules []string) (allowed, blocked []string, err error) {
	for _, rule := range rules {
		rule = strings.TrimSpace(rule)
		switch {
		case strings.HasPrefix(rule, "+") && len(rule) > 1:
			allowed = append(allowed, rule[1:])
		case strings.HasPrefix(rule, "-") && len(rule) > 1:
			blocked = append(blocked, rule[1:])
		default:
			err = multierror.Append(err, fmt.Errorf("prefix_filter rule %q must start with '+' or '-'", rule))
		}
	}
	return allowed, blocked, err
}
