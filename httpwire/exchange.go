// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package httpwire

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/nanosock/wire"
)

// Config describes the peer of an Exchange.
type Config struct {
	// Host is dialed by Dial and sent in the Host header.
	Host string
	Port int

	// Timeout bounds the dial and every receive and send. Zero disables it.
	Timeout time.Duration

	// BufferSize is the receive buffer capacity; zero selects
	// wire.DefaultBufferSize.
	BufferSize int

	Logger hclog.Logger
}

// Exchange performs HTTP/1.1 request/response cycles over one Transport. A
// response is parsed incrementally, one delimited field per step, so it can
// be driven from a readiness loop without ever blocking on a whole message.
// An Exchange is reusable: once a response was read it accepts the next
// request.
//
// An Exchange is not safe for concurrent use.
type Exchange struct {
	transport wire.Transport
	buf       *wire.ReceiveBuffer
	host      string
	logger    hclog.Logger

	readSpace *wire.DelimitedReader
	readCode  *wire.DelimitedReader
	readLine  *wire.DelimitedReader
	readKey   *wire.DelimitedReader
	readBody  *wire.DelimitedReader
	bodyCount *wire.Count

	state         State
	version       []byte
	code          []byte
	key           []byte
	val           []byte
	body          []byte
	contentLength int
	sentAt        time.Time

	versionSink wire.Sink
	codeSink    wire.Sink
	keySink     wire.Sink
	valSink     wire.Sink
	bodySink    wire.Sink
}

// New returns an Exchange that owns t.
func New(t wire.Transport, cfg Config) *Exchange {
	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	e := &Exchange{
		transport: t,
		buf:       wire.NewReceiveBuffer(cfg.BufferSize),
		host:      cfg.Host,
		logger:    logger,
		readSpace: wire.NewDelimitedReader(wire.NewSequence(" ")),
		// A status line without a reason phrase ends right after the code.
		readCode:  wire.NewDelimitedReader(wire.NewAnyOf(wire.NewSequence(" "), wire.NewSequence(crlf))),
		readLine:  wire.NewDelimitedReader(wire.NewSequence(crlf)),
		readKey:   wire.NewDelimitedReader(wire.NewAnyOf(wire.NewSequence(":"), wire.NewSequence(crlf))),
		bodyCount: wire.NewCount(0),
		state:     StateSending,
	}
	e.readBody = wire.NewDelimitedReader(e.bodyCount)
	e.buf.SetLogger(logger)

	e.versionSink = appendTo(&e.version)
	e.codeSink = appendTo(&e.code)
	e.keySink = appendTo(&e.key)
	e.valSink = appendTo(&e.val)
	e.bodySink = appendTo(&e.body)
	return e
}

// Dial connects to cfg.Host:cfg.Port and returns an Exchange owning the
// connection.
func Dial(ctx context.Context, cfg Config) (*Exchange, error) {
	t, err := wire.Dial(ctx, cfg.Host, cfg.Port, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return New(t, cfg), nil
}

func appendTo(dst *[]byte) wire.Sink {
	return func(segment []byte) {
		*dst = append(*dst, segment...)
	}
}

// State returns the current position in the cycle.
func (e *Exchange) State() State { return e.state }

// Valid reports whether a new request may be sent.
func (e *Exchange) Valid() bool { return e.state == StateSending }

// Drained reports whether the receive buffer holds no unread bytes while the
// stream is still open.
func (e *Exchange) Drained() bool { return e.buf.Drained() }

// Unread is the number of received bytes not yet parsed.
func (e *Exchange) Unread() int { return e.buf.Unread() }

// Host is the value sent in the Host header.
func (e *Exchange) Host() string { return e.host }

// Transport returns the transport the exchange owns.
func (e *Exchange) Transport() wire.Transport { return e.transport }

// Close closes the transport. Any exchange in flight is abandoned.
func (e *Exchange) Close() error { return e.transport.Close() }

// Send writes a request. The body, if any, is announced with Content-Length
// and written after the headers. Send fails with ErrBadSend unless the
// previous response was read completely.
func (e *Exchange) Send(method, path string, body []byte) error {
	if e.state != StateSending {
		return ErrBadSend
	}

	if err := e.transport.SendAll(encodeRequest(method, path, e.host, len(body))); err != nil {
		return err
	}
	if len(body) > 0 {
		if err := e.transport.SendAll(body); err != nil {
			return err
		}
	}

	e.contentLength = 0
	e.sentAt = time.Now()
	e.logger.Debug("request sent", "method", method, "path", path, "body_bytes", len(body))
	e.transition(StateVersion)
	return nil
}

// Advance reads the next field of the response and reports it to r. It
// returns true once the whole response was read and the exchange is ready
// for the next request.
//
// With blocking set the transport is read when the buffer is empty;
// otherwise Advance only parses bytes already received and returns false when
// it runs out. Advance fails with ErrBadTransfer if no request was sent.
func (e *Exchange) Advance(r Responder, blocking bool) (bool, error) {
	switch e.state {
	case StateSending:
		return false, ErrBadTransfer

	case StateVersion:
		done, err := e.readSpace.Read(e.buf, e.transport, e.versionSink, blocking)
		if err != nil {
			return false, err
		}
		if done {
			r.Version(strings.TrimSuffix(string(e.version), " "))
			e.version = e.version[:0]
			e.transition(StateCode)
		}

	case StateCode:
		done, err := e.readCode.Read(e.buf, e.transport, e.codeSink, blocking)
		if err != nil {
			return false, err
		}
		if done {
			code := string(e.code)
			e.code = e.code[:0]
			if strings.HasSuffix(code, crlf) {
				r.Code(strings.TrimSuffix(code, crlf))
				e.transition(StateKey)
			} else {
				r.Code(strings.TrimSuffix(code, " "))
				e.transition(StateFlair)
			}
		}

	case StateFlair:
		done, err := e.readLine.Read(e.buf, e.transport, nil, blocking)
		if err != nil {
			return false, err
		}
		if done {
			e.transition(StateKey)
		}

	case StateKey:
		done, err := e.readKey.Read(e.buf, e.transport, e.keySink, blocking)
		if err != nil {
			return false, err
		}
		if !done {
			break
		}
		if string(e.key) != crlf {
			e.transition(StateValue)
			break
		}
		// A blank line ends the headers.
		e.key = e.key[:0]
		if e.contentLength == 0 {
			e.complete(r, []byte{})
			break
		}
		e.bodyCount.SetTarget(e.contentLength)
		e.transition(StateBody)

	case StateValue:
		done, err := e.readLine.Read(e.buf, e.transport, e.valSink, blocking)
		if err != nil {
			return false, err
		}
		if !done {
			break
		}
		key := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(string(e.key), ":")))
		val := strings.TrimSpace(string(e.val))
		if key == "content-length" {
			n, err := parseContentLength(val)
			if err != nil {
				return false, err
			}
			e.contentLength = n
		}
		r.Header(key, val)
		e.key = e.key[:0]
		e.val = e.val[:0]
		e.transition(StateKey)

	case StateBody:
		done, err := e.readBody.Read(e.buf, e.transport, e.bodySink, blocking)
		if err != nil {
			return false, err
		}
		if done {
			body := e.body
			e.body = nil
			e.complete(r, body)
		}

	default:
		return false, fmt.Errorf("nanosock: exchange in unknown state %v", e.state)
	}

	return e.state == StateSending, nil
}

func (e *Exchange) complete(r Responder, body []byte) {
	r.Body(body)
	metrics.IncrCounter([]string{"http", "exchange", "complete"}, 1)
	metrics.MeasureSince([]string{"http", "exchange", "duration"}, e.sentAt)
	e.transition(StateSending)
}

func (e *Exchange) transition(to State) {
	e.logger.Trace("exchange state", "from", e.state, "to", to)
	e.state = to
}

func parseContentLength(val string) (int, error) {
	n, err := strconv.ParseUint(val, 10, 0)
	if err == nil && n > math.MaxInt {
		err = &strconv.NumError{Func: "ParseUint", Num: val, Err: strconv.ErrRange}
	}
	if err != nil {
		return 0, fmt.Errorf("nanosock: invalid content-length: %w", err)
	}
	return int(n), nil
}

// Do dials cfg, sends one request and reads the response into r, blocking
// until it is complete. The connection is closed afterwards.
func Do(ctx context.Context, cfg Config, method, path string, body []byte, r Responder) error {
	e, err := Dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.Send(method, path, body); err != nil {
		return err
	}
	for {
		done, err := e.Advance(r, true)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}
