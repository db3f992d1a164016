// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/gesture_pilot/internal/imu"
)

// PartialFramePolicy decides what a malformed line does to the sample being
// assembled.
type PartialFramePolicy string

const (
	// DiscardFrame drops every field collected since the last emitted sample.
	DiscardFrame PartialFramePolicy = "discard_frame"

	// DiscardFragment drops only the fields the malformed line would have set.
	DiscardFragment PartialFramePolicy = "discard_fragment"
)

// ParsePolicy validates a policy name. An empty name selects DiscardFrame.
func ParsePolicy(name string) (PartialFramePolicy, error) {
	switch PartialFramePolicy(name) {
	case "", DiscardFrame:
		return DiscardFrame, nil
	case DiscardFragment:
		return DiscardFragment, nil
	default:
		return "", fmt.Errorf("unknown partial frame policy %q (want %q or %q)", name, DiscardFrame, DiscardFragment)
	}
}

type field struct {
	value float64
	ok    bool
}

func (f *field) set(v float64) {
	f.value, f.ok = v, true
}

// PartialFrame holds the fields seen since the last emitted sample.
type PartialFrame struct {
	Timestamp              field
	AccelX, AccelY, AccelZ field
	GyroX, GyroY, GyroZ    field
}

func (p *PartialFrame) fields() [7]*field {
	return [7]*field{&p.Timestamp, &p.AccelX, &p.AccelY, &p.AccelZ, &p.GyroX, &p.GyroY, &p.GyroZ}
}

// Complete reports whether all seven fields are present.
func (p *PartialFrame) Complete() bool {
	return p.Pending() == 7
}

// Pending returns how many of the seven fields are present.
func (p *PartialFrame) Pending() int {
	n := 0
	for _, f := range p.fields() {
		if f.ok {
			n++
		}
	}
	return n
}

func (p *PartialFrame) clear(kind FrameKind) {
	switch kind {
	case FrameTimestamp:
		p.Timestamp = field{}
	case FrameAccel:
		p.AccelX, p.AccelY, p.AccelZ = field{}, field{}, field{}
	case FrameGyro:
		p.GyroX, p.GyroY, p.GyroZ = field{}, field{}, field{}
	default:
		*p = PartialFrame{}
	}
}

func (p *PartialFrame) sample() imu.Sample {
	return imu.Sample{
		Timestamp: p.Timestamp.value,
		Accel:     imu.Vec3{X: p.AccelX.value, Y: p.AccelY.value, Z: p.AccelZ.value},
		Gyro:      imu.Vec3{X: p.GyroX.value, Y: p.GyroY.value, Z: p.GyroZ.value},
	}
}

// Accumulator merges decoded fragments into complete samples. It is owned by
// a single control loop and is not safe for concurrent use.
type Accumulator struct {
	frame  PartialFrame
	policy PartialFramePolicy
}

// NewAccumulator creates an empty accumulator with the given discard policy.
func NewAccumulator(policy PartialFramePolicy) *Accumulator {
	if policy == "" {
		policy = DiscardFrame
	}
	return &Accumulator{policy: policy}
}

// Ingest merges u into the current frame. When the frame becomes complete the
// sample is returned and the frame is cleared.
func (a *Accumulator) Ingest(u Update) (imu.Sample, bool) {
	switch u.Kind {
	case FrameTimestamp:
		a.frame.Timestamp.set(u.Timestamp)
	case FrameAccel:
		a.frame.AccelX.set(u.Axes.X)
		a.frame.AccelY.set(u.Axes.Y)
		a.frame.AccelZ.set(u.Axes.Z)
	case FrameGyro:
		a.frame.GyroX.set(u.Axes.X)
		a.frame.GyroY.set(u.Axes.Y)
		a.frame.GyroZ.set(u.Axes.Z)
	default:
		return imu.Sample{}, false
	}

	if !a.frame.Complete() {
		return imu.Sample{}, false
	}

	s := a.frame.sample()
	a.frame = PartialFrame{}
	return s, true
}

// Discard applies the policy for a decode failure and returns the number of
// fields dropped. Unrecognized lines leave the frame untouched.
func (a *Accumulator) Discard(err error) int {
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) || !decodeErr.Malformed() {
		return 0
	}

	before := a.frame.Pending()
	if a.policy == DiscardFragment {
		a.frame.clear(decodeErr.Kind)
	} else {
		a.frame = PartialFrame{}
	}
	return before - a.frame.Pending()
}

// Pending returns how many fields of the in-progress frame are present.
func (a *Accumulator) Pending() int {
	return a.frame.Pending()
}

// Policy returns the configured discard policy.
func (a *Accumulator) Policy() PartialFramePolicy {
	return a.policy
}
