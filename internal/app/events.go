// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"time"
)

// EventKind names what an Event reports.
type EventKind string

const (
	EventClassification EventKind = "classification"
	EventCommand        EventKind = "command"
	EventSuppressed     EventKind = "suppressed"
	EventShutdown       EventKind = "shutdown"
)

// Event is published to every sink as JSON.
type Event struct {
	RunID   string    `json:"run_id"`
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"time"`
	Kind    EventKind `json:"kind"`
	State   string    `json:"state"`
	Gesture string    `json:"gesture,omitempty"`
	Index   int       `json:"index"`
	Command string    `json:"command,omitempty"`
	Ack     string    `json:"ack,omitempty"`
	AckText string    `json:"ack_text,omitempty"`
	Reason  string    `json:"reason,omitempty"`
}

// Sink receives control loop events. Publish must not block for long; a
// failed publish is logged and the loop carries on.
type Sink interface {
	Publish(e Event) error
	Close() error
}

// Sinks fans an event out to several sinks.
type Sinks []Sink

func (s Sinks) Publish(e Event) error {
	var errs []error
	for _, sink := range s {
		if err := sink.Publish(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s Sinks) Close() error {
	var errs []error
	for _, sink := range s {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
