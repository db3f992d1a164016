// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/relabs-tech/gesture_pilot/internal/actuator"
	"github.com/relabs-tech/gesture_pilot/internal/flight"
	"github.com/relabs-tech/gesture_pilot/internal/gesture"
	"github.com/relabs-tech/gesture_pilot/internal/sensors"
	"github.com/relabs-tech/gesture_pilot/internal/telemetry"
	"github.com/relabs-tech/gesture_pilot/internal/window"
)

// Deps is everything the control loop needs. The Pilot takes ownership of
// Source and Transport and closes them when Run returns.
type Deps struct {
	Source      sensors.LineSource
	Decoder     *telemetry.Decoder
	Accumulator *telemetry.Accumulator
	Window      *window.Window
	Vectorizer  *window.Vectorizer
	Recognizer  *gesture.Recognizer
	Mapper      *flight.Mapper
	Transport   actuator.Transport
	AckTimeout  time.Duration
	Handshake   bool
}

func (d Deps) validate() error {
	switch {
	case d.Source == nil:
		return errors.New("pilot: telemetry source is required")
	case d.Decoder == nil:
		return errors.New("pilot: decoder is required")
	case d.Accumulator == nil:
		return errors.New("pilot: accumulator is required")
	case d.Window == nil:
		return errors.New("pilot: window is required")
	case d.Vectorizer == nil:
		return errors.New("pilot: vectorizer is required")
	case d.Recognizer == nil:
		return errors.New("pilot: recognizer is required")
	case d.Mapper == nil:
		return errors.New("pilot: mapper is required")
	case d.Transport == nil:
		return errors.New("pilot: transport is required")
	}
	return nil
}

// Stats counts what happened during a run.
type Stats struct {
	Lines        uint64
	Unrecognized uint64
	Malformed    uint64
	Samples      uint64
	Windows      uint64
	Commands     uint64
	Suppressed   uint64
	AcksOK       uint64
	AcksRejected uint64
	AcksMissing  uint64
	Started      time.Time
	Finished     time.Time
}

// WithLogger sets the pilot's logger.
func WithLogger(logger *slog.Logger) func(*Pilot) {
	return func(p *Pilot) {
		p.logger = logger
	}
}

// WithSink publishes loop events to s.
func WithSink(s Sink) func(*Pilot) {
	return func(p *Pilot) {
		p.sink = s
	}
}

// WithRunID stamps every published event with id.
func WithRunID(id string) func(*Pilot) {
	return func(p *Pilot) {
		p.runID = id
	}
}

// Pilot is the control loop: telemetry lines in, drone commands out. A
// single goroutine owns the partial frame, the window and the flight state.
type Pilot struct {
	deps   Deps
	issuer *actuator.Issuer
	sink   Sink
	runID  string
	logger *slog.Logger

	state flight.State
	stats Stats
	seq   uint64
}

// NewPilot wires a control loop from deps.
func NewPilot(deps Deps, options ...func(*Pilot)) (*Pilot, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	p := Pilot{
		deps:   deps,
		state:  flight.Grounded,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&p)
	}

	p.logger = p.logger.With(slog.String("component", "pilot"))
	p.issuer = actuator.NewIssuer(deps.Transport, deps.AckTimeout, actuator.WithLogger(p.logger))

	return &p, nil
}

// State returns the current flight state. Only safe once Run has returned or
// from the loop goroutine.
func (p *Pilot) State() flight.State {
	return p.state
}

// Stats returns the run counters. Only safe once Run has returned.
func (p *Pilot) Stats() Stats {
	return p.stats
}

// Run drives the loop until ctx is cancelled, a finite source is exhausted, or
// a fatal error occurs. Cancellation and end of stream return nil. On every
// exit the optional landing command is sent, a summary is logged and the
// source and transport are closed.
func (p *Pilot) Run(ctx context.Context) (err error) {
	p.stats.Started = time.Now()
	defer func() {
		p.shutdown(err)
	}()

	if ctx.Err() != nil {
		p.logger.Info("control loop cancelled")
		return nil
	}

	if p.deps.Handshake {
		if _, err := p.issuer.Issue(flight.SDK()); err != nil {
			return fmt.Errorf("sdk handshake: %w", err)
		}
	}

	p.logger.Info("control loop started",
		slog.String("state", p.state.String()),
		slog.Int("window", p.deps.Window.Cap()),
		slog.String("policy", string(p.deps.Accumulator.Policy())))

	for {
		if ctx.Err() != nil {
			p.logger.Info("control loop cancelled")
			return nil
		}

		line, err := p.deps.Source.ReadLine(ctx)
		switch {
		case err == nil:
		case errors.Is(err, sensors.ErrNoData):
			continue
		case errors.Is(err, io.EOF):
			p.logger.Info("telemetry stream ended")
			return nil
		case ctx.Err() != nil:
			p.logger.Info("control loop cancelled")
			return nil
		default:
			return fmt.Errorf("reading telemetry: %w", err)
		}

		if err := p.handleLine(line); err != nil {
			return err
		}
	}
}

func (p *Pilot) handleLine(line string) error {
	p.stats.Lines++

	u, err := p.deps.Decoder.Decode(line)
	if err != nil {
		var decodeErr *telemetry.DecodeError
		if errors.As(err, &decodeErr) && decodeErr.Malformed() {
			p.stats.Malformed++
			dropped := p.deps.Accumulator.Discard(err)
			p.logger.Warn("malformed telemetry line",
				slog.String("error", err.Error()),
				slog.Int("dropped_fields", dropped))
			return nil
		}
		p.stats.Unrecognized++
		p.logger.Debug("ignoring line", slog.String("line", line))
		return nil
	}

	sample, ok := p.deps.Accumulator.Ingest(u)
	if !ok {
		return nil
	}
	p.stats.Samples++

	if err := p.deps.Window.Push(sample); err != nil {
		return err
	}
	if !p.deps.Window.IsFull() {
		return nil
	}

	return p.onWindow()
}

func (p *Pilot) onWindow() error {
	features := p.deps.Vectorizer.Vectorize(p.deps.Window.Snapshot())

	label, index, err := p.deps.Recognizer.Recognize(features)
	if err != nil {
		return err
	}
	p.stats.Windows++

	p.logger.Info("gesture classified",
		slog.String("gesture", label.String()),
		slog.Int("index", index),
		slog.String("state", p.state.String()))
	p.publish(Event{Kind: EventClassification, Gesture: label.String(), Index: index})

	d := p.deps.Mapper.OnGesture(p.state, label)
	if d.Command == nil {
		p.stats.Suppressed++
		p.logger.Info("no command",
			slog.String("gesture", label.String()),
			slog.String("state", p.state.String()),
			slog.String("reason", d.Reason))
		p.transition(d.Next)
		p.publish(Event{Kind: EventSuppressed, Gesture: label.String(), Index: index, Reason: d.Reason})
	} else {
		ack, err := p.issuer.Issue(*d.Command)
		if err != nil {
			return fmt.Errorf("issuing %q: %w", d.Command, err)
		}
		p.countAck(ack)

		p.logger.Info("command issued",
			slog.String("command", d.Command.String()),
			slog.String("gesture", label.String()),
			slog.String("reason", d.Reason),
			slog.String("ack", ack.Status.String()))
		p.transition(d.Next)
		p.publish(Event{
			Kind:    EventCommand,
			Gesture: label.String(),
			Index:   index,
			Command: d.Command.String(),
			Ack:     ack.Status.String(),
			AckText: ack.Text,
			Reason:  d.Reason,
		})
	}

	p.deps.Window.Reset()
	return nil
}

func (p *Pilot) transition(next flight.State) {
	if next == p.state {
		return
	}
	p.logger.Info("flight state changed",
		slog.String("from", p.state.String()),
		slog.String("to", next.String()))
	p.state = next
}

func (p *Pilot) countAck(ack actuator.Ack) {
	p.stats.Commands++
	switch ack.Status {
	case actuator.AckOK, actuator.AckInfo:
		p.stats.AcksOK++
	case actuator.AckMissing:
		p.stats.AcksMissing++
	default:
		p.stats.AcksRejected++
	}
}

func (p *Pilot) publish(e Event) {
	if p.sink == nil {
		return
	}

	p.seq++
	e.RunID = p.runID
	e.Seq = p.seq
	e.Time = time.Now().UTC()
	e.State = p.state.String()

	if err := p.sink.Publish(e); err != nil {
		p.logger.Warn("event publish failed", slog.String("kind", string(e.Kind)), slog.String("error", err.Error()))
	}
}

func (p *Pilot) shutdown(runErr error) {
	if runErr != nil {
		p.logger.Error("control loop stopped", slog.String("error", runErr.Error()))
	}

	if cmd := p.deps.Mapper.OnShutdown(p.state); cmd != nil {
		p.logger.Warn("landing before exit", slog.String("state", p.state.String()))
		ack, err := p.issuer.Issue(*cmd)
		if err != nil {
			p.logger.Error("landing command failed", slog.String("error", err.Error()))
		} else {
			p.countAck(ack)
			p.transition(flight.Grounded)
			p.publish(Event{Kind: EventShutdown, Command: cmd.String(), Ack: ack.Status.String(), AckText: ack.Text})
		}
	}

	p.stats.Finished = time.Now()
	p.logSummary()

	closeLogged(p.logger, "telemetry source", p.deps.Source)
	closeLogged(p.logger, "transport", p.deps.Transport)
}

func (p *Pilot) logSummary() {
	s := p.stats
	p.logger.Info("run summary",
		slog.String("duration", s.Finished.Sub(s.Started).Round(time.Millisecond).String()),
		slog.String("lines", humanize.Comma(int64(s.Lines))),
		slog.String("unrecognized", humanize.Comma(int64(s.Unrecognized))),
		slog.String("malformed", humanize.Comma(int64(s.Malformed))),
		slog.String("samples", humanize.Comma(int64(s.Samples))),
		slog.String("windows", humanize.Comma(int64(s.Windows))),
		slog.String("commands", humanize.Comma(int64(s.Commands))),
		slog.String("suppressed", humanize.Comma(int64(s.Suppressed))),
		slog.String("acks_ok", humanize.Comma(int64(s.AcksOK))),
		slog.String("acks_rejected", humanize.Comma(int64(s.AcksRejected))),
		slog.String("acks_missing", humanize.Comma(int64(s.AcksMissing))),
		slog.String("final_state", p.state.String()))
}
