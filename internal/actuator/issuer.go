// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package actuator

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/relabs-tech/gesture_pilot/internal/flight"
)

// DefaultAckTimeout bounds the wait for an acknowledgment.
const DefaultAckTimeout = 3 * time.Second

// AckStatus classifies an acknowledgment payload.
type AckStatus int

const (
	AckMissing   AckStatus = iota // timed out or receive failed
	AckOK                         // "ok"
	AckError                      // "error ..."
	AckInfo                       // any other text, e.g. a reading
	AckMalformed                  // empty or not UTF-8
)

func (s AckStatus) String() string {
	switch s {
	case AckOK:
		return "ok"
	case AckError:
		return "error"
	case AckInfo:
		return "info"
	case AckMalformed:
		return "malformed"
	default:
		return "missing"
	}
}

// Ack is a parsed acknowledgment.
type Ack struct {
	Status AckStatus
	Text   string
}

// ParseAck classifies a raw acknowledgment payload.
func ParseAck(p []byte) Ack {
	if !utf8.Valid(p) {
		return Ack{Status: AckMalformed}
	}

	text := strings.TrimSpace(string(p))
	switch {
	case text == "":
		return Ack{Status: AckMalformed}
	case strings.EqualFold(text, "ok"):
		return Ack{Status: AckOK, Text: text}
	case strings.HasPrefix(strings.ToLower(text), "error"):
		return Ack{Status: AckError, Text: text}
	default:
		return Ack{Status: AckInfo, Text: text}
	}
}

// WithLogger sets the logger for the issuer
func WithLogger(logger *slog.Logger) func(*Issuer) {
	return func(i *Issuer) {
		i.logger = logger.With(slog.String("component", "actuator"))
	}
}

// drainer is implemented by transports that can queue acknowledgments which
// outlived their wait.
type drainer interface {
	Drain() [][]byte
}

// Issuer sends a command and reads at most one acknowledgment for it.
type Issuer struct {
	transport  Transport
	ackTimeout time.Duration
	logger     *slog.Logger
}

// NewIssuer creates an Issuer with a discard logger.
func NewIssuer(t Transport, ackTimeout time.Duration, options ...func(*Issuer)) *Issuer {
	if ackTimeout <= 0 {
		ackTimeout = DefaultAckTimeout
	}

	i := Issuer{
		transport:  t,
		ackTimeout: ackTimeout,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&i)
	}

	return &i
}

// Issue sends c once and waits for one acknowledgment. The returned error is
// non-nil only when sending failed; acknowledgment problems are logged.
func (i *Issuer) Issue(c flight.Command) (Ack, error) {
	cmd := slog.String("command", c.String())

	if d, ok := i.transport.(drainer); ok {
		for _, p := range d.Drain() {
			i.logger.Warn("discarding late acknowledgment", cmd, slog.String("response", strings.TrimSpace(string(p))))
		}
	}

	if err := i.transport.Send(c); err != nil {
		return Ack{}, err
	}
	i.logger.Info("command sent", cmd)

	p, err := i.transport.ReceiveAck(i.ackTimeout)
	if err != nil {
		if errors.Is(err, ErrAckTimeout) {
			i.logger.Warn("no acknowledgment", cmd, slog.Duration("timeout", i.ackTimeout))
		} else {
			i.logger.Warn("acknowledgment receive failed", cmd, slog.String("error", err.Error()))
		}
		return Ack{Status: AckMissing}, nil
	}

	ack := ParseAck(p)
	switch ack.Status {
	case AckOK, AckInfo:
		i.logger.Info("acknowledged", cmd, slog.String("response", ack.Text))
	case AckError:
		i.logger.Warn("command rejected", cmd, slog.String("response", ack.Text))
	default:
		i.logger.Warn("malformed acknowledgment", cmd, slog.Int("bytes", len(p)))
	}

	return ack, nil
}
