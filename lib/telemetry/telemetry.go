// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package telemetry

import (
	"time"

	"github.com/armon/go-metrics"
	"github.com/armon/go-metrics/datadog"
	"github.com/armon/go-metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
)

// Config selects where metrics are sent. The in-memory sink is always
// installed.
type Config struct {
	// Disable turns metrics off entirely; Init then returns a NoopClient.
	Disable bool

	MetricsPrefix   string
	DisableHostname bool

	// FilterDefault decides metrics matching neither prefix list. Nil
	// allows them.
	FilterDefault   *bool
	AllowedPrefixes []string
	BlockedPrefixes []string

	StatsiteAddr  string
	StatsdAddr    string
	DogstatsdAddr string
	DogstatsdTags []string

	// PrometheusRetentionTime enables the prometheus sink when positive.
	PrometheusRetentionTime time.Duration
	// PrometheusRegisterer defaults to the global prometheus registry.
	PrometheusRegisterer prom.Registerer
}

// MetricsClient is what commands record their own measurements through.
type MetricsClient interface {
	AddSample(key []string, val float32, labels ...Label)
	SetGauge(key []string, val float32, labels ...Label)
	IncrCounter(key []string, val float32, labels ...Label)
	MeasureSince(key []string, start time.Time, labels ...Label)
	GetInmemSink() *metrics.InmemSink
}

var (
	_ MetricsClient = (*DefaultMetrics)(nil)
	_ MetricsClient = (*NoopClient)(nil)
)

// DefaultMetrics provides a MetricsClient implementation for armon/go-metrics.
type DefaultMetrics struct {
	client    *metrics.Metrics
	inmemSink *metrics.InmemSink
}

func (c *DefaultMetrics) AddSample(key []string, val float32, labels ...Label) {
	c.client.AddSampleWithLabels(key, val, convertLabels(labels))
}

func (c *DefaultMetrics) SetGauge(key []string, val float32, labels ...Label) {
	c.client.SetGaugeWithLabels(key, val, convertLabels(labels))
}

func (c *DefaultMetrics) IncrCounter(key []string, val float32, labels ...Label) {
	c.client.IncrCounterWithLabels(key, val, convertLabels(labels))
}

func (c *DefaultMetrics) MeasureSince(key []string, start time.Time, labels ...Label) {
	c.client.MeasureSinceWithLabels(key, start, convertLabels(labels))
}

func (c *DefaultMetrics) GetInmemSink() *metrics.InmemSink {
	return c.inmemSink
}

// NoopClient does nothing. Is it pronounced like "boop" or "no op"? Up to you, friend.
type NoopClient struct{}

func (*NoopClient) SetGauge([]string, float32, ...Label)       {}
func (*NoopClient) IncrCounter([]string, float32, ...Label)    {}
func (*NoopClient) MeasureSince([]string, time.Time, ...Label) {}
func (*NoopClient) AddSample([]string, float32, ...Label)      {}
func (*NoopClient) GetInmemSink() *metrics.InmemSink           { return nil }

// Label provides a key and a value, offering an internal representation of
// labels used by most telemetry backends.
type Label struct {
	Key   string
	Value string
}

func convertLabels(labels []Label) []metrics.Label {
	if len(labels) == 0 {
		return nil
	}
	aLabels := make([]metrics.Label, len(labels))
	for i := 0; i < len(labels); i++ {
		aLabels[i] = metrics.Label{
			Name:  labels[i].Key,
			Value: labels[i].Value,
		}
	}
	return aLabels
}

// CounterDefinitions documents the counters emitted by the wire, httpwire
// and mux packages and by the fetch command.
var CounterDefinitions = []prometheus.CounterDefinition{
	{
		Name: []string{"wire", "receive", "bytes"},
		Help: "Counts the bytes received from peers.",
	},
	{
		Name: []string{"wire", "receive", "eof"},
		Help: "Counts streams closed by the peer.",
	},
	{
		Name: []string{"http", "exchange", "complete"},
		Help: "Counts responses read to completion.",
	},
	{
		Name: []string{"mux", "wait", "ready"},
		Help: "Counts connections reported readable by a multiplexer wait.",
	},
	{
		Name: []string{"mux", "wait", "timeout"},
		Help: "Counts multiplexer waits that timed out.",
	},
	{
		Name: []string{"fetch", "response"},
		Help: "Counts responses received by the fetch command, labelled by host and status.",
	},
}

// SummaryDefinitions documents the timings emitted alongside the counters.
var SummaryDefinitions = []prometheus.SummaryDefinition{
	{
		Name: []string{"http", "exchange", "duration"},
		Help: "Measures the time from sending a request to reading its response, in milliseconds.",
	},
}

// sinkFn takes Config and builds a sink to be composed in the FanOutSink
type sinkFn func(Config) (metrics.MetricSink, error)

func statsiteSink(cfg Config) (metrics.MetricSink, error) {
	addr := cfg.StatsiteAddr
	if addr == "" {
		return nil, nil
	}
	return metrics.NewStatsiteSink(addr)
}

func statsdSink(cfg Config) (metrics.MetricSink, error) {
	addr := cfg.StatsdAddr
	if addr == "" {
		return nil, nil
	}
	return metrics.NewStatsdSink(addr)
}

func dogstatsdSink(cfg Config) (metrics.MetricSink, error) {
	addr := cfg.DogstatsdAddr
	if addr == "" {
		return nil, nil
	}
	sink, err := datadog.NewDogStatsdSink(addr, "")
	if err != nil {
		return nil, err
	}
	sink.SetTags(cfg.DogstatsdTags)
	return sink, nil
}

func prometheusSink(cfg Config) (metrics.MetricSink, error) {
	if cfg.PrometheusRetentionTime.Nanoseconds() < 1 {
		return nil, nil
	}

	prometheusOpts := prometheus.PrometheusOpts{
		Expiration:         cfg.PrometheusRetentionTime,
		Registerer:         cfg.PrometheusRegisterer,
		CounterDefinitions: prefixCounters(cfg.MetricsPrefix, CounterDefinitions),
		SummaryDefinitions: prefixSummaries(cfg.MetricsPrefix, SummaryDefinitions),
	}
	sink, err := prometheus.NewPrometheusSinkFrom(prometheusOpts)
	if err != nil {
		return nil, err
	}
	return sink, nil
}

// The sink sees keys with the service prefix already applied.
func prefixCounters(prefix string, defs []prometheus.CounterDefinition) []prometheus.CounterDefinition {
	out := make([]prometheus.CounterDefinition, len(defs))
	for i, d := range defs {
		d.Name = append([]string{prefix}, d.Name...)
		out[i] = d
	}
	return out
}

func prefixSummaries(prefix string, defs []prometheus.SummaryDefinition) []prometheus.SummaryDefinition {
	out := make([]prometheus.SummaryDefinition, len(defs))
	for i, d := range defs {
		d.Name = append([]string{prefix}, d.Name...)
		out[i] = d
	}
	return out
}

// initSinks composes all of our sink options into a FanoutSink. All sink
// inits must succeed; setup is aborted if any of the configuration is invalid.
func initSinks(cfg Config) (metrics.FanoutSink, error) {
	var sinks metrics.FanoutSink
	for _, fn := range []sinkFn{statsiteSink, statsdSink, dogstatsdSink, prometheusSink} {
		s, err := fn(cfg)
		if err != nil {
			return nil, err
		}
		if s != nil {
			sinks = append(sinks, s)
		}
	}
	return sinks, nil
}

// Init installs the global go-metrics client that the core packages report
// through and returns it for the caller's own measurements.
func Init(cfg Config) (MetricsClient, error) {
	if cfg.Disable {
		return &NoopClient{}, nil
	}
	if cfg.MetricsPrefix == "" {
		cfg.MetricsPrefix = "nanosock"
	}

	// Aggregate on 10 second intervals for 1 minute.
	memSink := metrics.NewInmemSink(10*time.Second, time.Minute)

	mCfg := metrics.DefaultConfig(cfg.MetricsPrefix)
	mCfg.EnableHostname = !cfg.DisableHostname
	mCfg.EnableRuntimeMetrics = false
	mCfg.FilterDefault = true
	if cfg.FilterDefault != nil {
		mCfg.FilterDefault = *cfg.FilterDefault
	}
	mCfg.AllowedPrefixes = cfg.AllowedPrefixes
	mCfg.BlockedPrefixes = cfg.BlockedPrefixes

	sinks, err := initSinks(cfg)
	if err != nil {
		return nil, err
	}

	var sink metrics.MetricSink = memSink
	if len(sinks) == 0 {
		// Hostname is irrelevant for in-process telemetry
		mCfg.EnableHostname = false
	} else {
		sink = append(sinks, memSink)
	}

	client, err := metrics.NewGlobal(mCfg, sink)
	if err != nil {
		return nil, err
	}
	return &DefaultMetrics{client: client, inmemSink: memSink}, nil
}
