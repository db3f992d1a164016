// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/relabs-tech/gesture_pilot/internal/imu"
)

const (
	// DefaultTimestampMarker precedes the seconds value on timestamp lines.
	DefaultTimestampMarker = "time:"

	// DefaultPayloadMarker is the ESP-IDF log tag the firmware prints before
	// accelerometer and gyroscope payloads.
	DefaultPayloadMarker = "mpu6050 test: "

	accelKeyPrefix = "acce_"
	gyroKeyPrefix  = "gyro_"
)

var (
	// ErrUnrecognizedLine is returned for lines that are not one of the three
	// telemetry fragments (boot banners, other log tags, blank lines).
	ErrUnrecognizedLine = errors.New("unrecognized telemetry line")

	// ErrMalformedLine is returned for recognized fragments whose payload
	// cannot be parsed.
	ErrMalformedLine = errors.New("malformed telemetry line")

	ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)
)

// FrameKind identifies which fragment of a sample a line carries.
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameTimestamp
	FrameAccel
	FrameGyro
)

func (k FrameKind) String() string {
	switch k {
	case FrameTimestamp:
		return "timestamp"
	case FrameAccel:
		return "accel"
	case FrameGyro:
		return "gyro"
	default:
		return "unknown"
	}
}

// DecodeError names the line that could not be decoded.
type DecodeError struct {
	Line  string
	Kind  FrameKind
	Err   error // ErrUnrecognizedLine or ErrMalformedLine
	Cause error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s) %q: %v", e.Err, e.Kind, e.Line, e.Cause)
	}
	return fmt.Sprintf("%s %q", e.Err, e.Line)
}

func (e *DecodeError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// Malformed reports whether the line was a recognized fragment with a bad payload.
func (e *DecodeError) Malformed() bool {
	return errors.Is(e.Err, ErrMalformedLine)
}

// Update is the partial sample carried by a single line. Timestamp is set for
// FrameTimestamp, Axes for FrameAccel and FrameGyro.
type Update struct {
	Kind      FrameKind
	Timestamp float64
	Axes      imu.Vec3
}

// WithTimestampMarker overrides the timestamp marker.
func WithTimestampMarker(marker string) func(*Decoder) {
	return func(d *Decoder) {
		d.timestampMarker = marker
	}
}

// WithPayloadMarker overrides the accelerometer/gyroscope payload marker.
func WithPayloadMarker(marker string) func(*Decoder) {
	return func(d *Decoder) {
		d.payloadMarker = marker
	}
}

// Decoder turns raw firmware log lines into partial sample updates. It holds
// no state between calls.
type Decoder struct {
	timestampMarker string
	payloadMarker   string
}

// NewDecoder creates a Decoder using the firmware's default markers.
func NewDecoder(options ...func(*Decoder)) *Decoder {
	d := Decoder{
		timestampMarker: DefaultTimestampMarker,
		payloadMarker:   DefaultPayloadMarker,
	}

	for _, option := range options {
		option(&d)
	}

	return &d
}

// Decode parses one line. It never panics; every failure is a *DecodeError.
func (d *Decoder) Decode(line string) (Update, error) {
	clean := strings.TrimSpace(ansiEscape.ReplaceAllString(line, ""))
	if clean == "" {
		return Update{}, &DecodeError{Line: line, Err: ErrUnrecognizedLine}
	}

	if i := strings.Index(clean, d.timestampMarker); i >= 0 {
		raw := strings.TrimSpace(clean[i+len(d.timestampMarker):])
		ts, err := parseDecimal(raw)
		if err != nil {
			return Update{}, &DecodeError{Line: line, Kind: FrameTimestamp, Err: ErrMalformedLine, Cause: err}
		}
		return Update{Kind: FrameTimestamp, Timestamp: ts}, nil
	}

	i := strings.Index(clean, d.payloadMarker)
	if i < 0 {
		return Update{}, &DecodeError{Line: line, Err: ErrUnrecognizedLine}
	}
	payload := clean[i+len(d.payloadMarker):]

	var kind FrameKind
	var prefix string
	switch {
	case strings.Contains(payload, accelKeyPrefix):
		kind, prefix = FrameAccel, accelKeyPrefix
	case strings.Contains(payload, gyroKeyPrefix):
		kind, prefix = FrameGyro, gyroKeyPrefix
	default:
		return Update{}, &DecodeError{Line: line, Err: ErrUnrecognizedLine}
	}

	axes, err := parseAxes(payload, prefix)
	if err != nil {
		return Update{}, &DecodeError{Line: line, Kind: kind, Err: ErrMalformedLine, Cause: err}
	}

	return Update{Kind: kind, Axes: axes}, nil
}

// parseAxes reads "<prefix>x:v,<prefix>y:v,<prefix>z:v" in any key order.
func parseAxes(payload, prefix string) (imu.Vec3, error) {
	var v imu.Vec3
	var seen [3]bool

	for _, pair := range strings.Split(payload, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		key, value, ok := strings.Cut(pair, ":")
		if !ok {
			return imu.Vec3{}, fmt.Errorf("pair %q has no ':'", pair)
		}
		key = strings.TrimSpace(key)

		axis, ok := strings.CutPrefix(key, prefix)
		if !ok {
			return imu.Vec3{}, fmt.Errorf("unexpected key %q", key)
		}

		f, err := parseDecimal(strings.TrimSpace(value))
		if err != nil {
			return imu.Vec3{}, fmt.Errorf("key %q: %w", key, err)
		}

		var idx int
		switch axis {
		case "x":
			idx, v.X = 0, f
		case "y":
			idx, v.Y = 1, f
		case "z":
			idx, v.Z = 2, f
		default:
			return imu.Vec3{}, fmt.Errorf("unknown axis in key %q", key)
		}
		if seen[idx] {
			return imu.Vec3{}, fmt.Errorf("duplicate key %q", key)
		}
		seen[idx] = true
	}

	if !seen[0] || !seen[1] || !seen[2] {
		return imu.Vec3{}, fmt.Errorf("expected %sx, %sy and %sz", prefix, prefix, prefix)
	}

	return v, nil
}

// parseDecimal parses a finite decimal reading. NaN, infinities and hex
// floats are rejected even though strconv accepts them.
func parseDecimal(s string) (float64, error) {
	if strings.ContainsAny(s, "xX") {
		return 0, fmt.Errorf("%q is not a decimal number", s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return f, nil
}
