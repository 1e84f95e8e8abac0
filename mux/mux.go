// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package mux drives many HTTP exchanges from a single goroutine, waiting on
// their sockets for readiness and handing each readable exchange to a
// callback.
package mux

import (
	"context"
	"time"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/hashicorp/nanosock/httpwire"
	"github.com/hashicorp/nanosock/wire"
)

type Config struct {
	Logger hclog.Logger
}

// Callback is invoked for an exchange that has bytes to parse. blocking is
// true when the socket was reported readable, and false when only bytes
// already buffered are left.
type Callback func(ex *httpwire.Exchange, blocking bool) error

// Multiplexer owns a growing set of exchanges. Exchanges are never removed;
// one that is done can be released, and the multiplexer is closed as a
// whole.
//
// A Multiplexer is not safe for concurrent use.
type Multiplexer struct {
	logger    hclog.Logger
	exchanges []*httpwire.Exchange
	polls     pollSet
}

func New(cfg Config) *Multiplexer {
	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Multiplexer{logger: logger}
}

// Add dials cfg and registers the resulting exchange. When cfg carries no
// logger the exchange logs through the multiplexer's.
func (m *Multiplexer) Add(ctx context.Context, cfg httpwire.Config) (*httpwire.Exchange, error) {
	t, err := wire.Dial(ctx, cfg.Host, cfg.Port, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	fd, err := t.Fd()
	if err != nil {
		t.Close()
		return nil, &wire.ConnectError{Host: cfg.Host, Port: cfg.Port, Err: err}
	}

	if cfg.Logger == nil {
		cfg.Logger = m.logger.Named("exchange").With("host", cfg.Host, "port", cfg.Port)
	}
	ex := httpwire.New(t, cfg)

	m.polls.add(fd)
	m.exchanges = append(m.exchanges, ex)
	m.logger.Debug("added exchange", "host", cfg.Host, "port", cfg.Port, "index", len(m.exchanges)-1)
	return ex, nil
}

// Len is the number of registered exchanges.
func (m *Multiplexer) Len() int { return len(m.exchanges) }

// Exchanges returns the registered exchanges in the order they were added.
func (m *Multiplexer) Exchanges() []*httpwire.Exchange {
	out := make([]*httpwire.Exchange, len(m.exchanges))
	copy(out, m.exchanges)
	return out
}

// Wait blocks until at least one socket is readable or timeout elapses; a
// negative timeout waits forever. cb is called once with blocking set for
// every readable exchange. Afterwards cb is called without blocking for
// every in-flight exchange that still has buffered bytes, until they are
// used up or the callback stops making progress.
//
// Wait returns ErrTimeout when nothing became readable, a *PollError when the
// wait itself failed, and the first error returned by cb otherwise.
func (m *Multiplexer) Wait(cb Callback, timeout time.Duration) error {
	ready, err := m.polls.wait(timeout)
	if err != nil {
		return &PollError{Err: err}
	}
	if ready == 0 {
		metrics.IncrCounter([]string{"mux", "wait", "timeout"}, 1)
		return ErrTimeout
	}
	metrics.IncrCounter([]string{"mux", "wait", "ready"}, float32(ready))
	m.logger.Trace("poll returned", "ready", ready, "exchanges", len(m.exchanges))

	for i, ex := range m.exchanges {
		if !m.polls.active(i) || !m.polls.readable(i) {
			continue
		}
		if err := cb(ex, true); err != nil {
			return err
		}
	}

	// Responses that arrived together with an earlier one are already
	// buffered and will not make the socket readable again.
	for i, ex := range m.exchanges {
		if !m.polls.active(i) {
			continue
		}
		for ex.Unread() > 0 && !ex.Valid() {
			unread, state := ex.Unread(), ex.State()
			if err := cb(ex, false); err != nil {
				return err
			}
			if ex.Unread() == unread && ex.State() == state {
				break
			}
		}
	}
	return nil
}

// Release closes ex and stops watching it. The exchange keeps its position
// in Exchanges but is never handed to a callback again.
func (m *Multiplexer) Release(ex *httpwire.Exchange) error {
	for i, e := range m.exchanges {
		if e == ex {
			if m.polls.active(i) {
				m.polls.disable(i)
				m.logger.Debug("released exchange", "host", ex.Host(), "index", i)
			}
			return ex.Close()
		}
	}
	return ErrUnknownExchange
}

// Close closes every exchange and reports all failures together.
func (m *Multiplexer) Close() error {
	var result error
	for _, ex := range m.exchanges {
		if err := ex.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}
