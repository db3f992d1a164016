// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package window

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/gesture_pilot/internal/imu"
)

// ErrCapacityExceeded is returned when a sample is pushed onto a full window
// that was not reset. It indicates a wiring bug in the caller.
var ErrCapacityExceeded = errors.New("window capacity exceeded")

// Window is a fixed-capacity, non-overlapping buffer of samples. Once full it
// must be Reset before it accepts more samples.
type Window struct {
	samples []imu.Sample // backing array, allocated once
	n       int
}

// New creates an empty window that holds exactly capacity samples.
func New(capacity int) (*Window, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("invalid window capacity: %d", capacity)
	}
	return &Window{samples: make([]imu.Sample, capacity)}, nil
}

// Push appends s to the tail of the window.
func (w *Window) Push(s imu.Sample) error {
	if w.n == len(w.samples) {
		return fmt.Errorf("%w: push onto full window of %d samples", ErrCapacityExceeded, len(w.samples))
	}
	w.samples[w.n] = s
	w.n++
	return nil
}

// IsFull reports whether the window holds Cap samples.
func (w *Window) IsFull() bool {
	return w.n == len(w.samples)
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	return w.n
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return len(w.samples)
}

// Reset empties the window in place.
func (w *Window) Reset() {
	w.n = 0
}

// Snapshot returns a copy of the held samples in arrival order. The copy stays
// valid after Reset.
func (w *Window) Snapshot() []imu.Sample {
	out := make([]imu.Sample, w.n)
	copy(out, w.samples[:w.n])
	return out
}
