// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"errors"
	"testing"

	"github.com/relabs-tech/gesture_pilot/internal/imu"
)

func TestDecoder_Fragments(t *testing.T) {
	d := NewDecoder()

	testCases := []struct {
		name string
		line string
		want Update
	}{
		{"timestamp", "time:0.10", Update{Kind: FrameTimestamp, Timestamp: 0.10}},
		{"timestamp with log prefix", "I (1234) mpu6050 test: time:1.234 ", Update{Kind: FrameTimestamp, Timestamp: 1.234}},
		{
			"accel",
			"mpu6050 test: acce_x:0.01,acce_y:0.02,acce_z:9.8",
			Update{Kind: FrameAccel, Axes: imu.Vec3{X: 0.01, Y: 0.02, Z: 9.8}},
		},
		{
			"accel with spaces and colour codes",
			"\x1b[0;32mI (2040) mpu6050 test: acce_x:-0.12, acce_y:0.30, acce_z:0.98 \x1b[0m",
			Update{Kind: FrameAccel, Axes: imu.Vec3{X: -0.12, Y: 0.30, Z: 0.98}},
		},
		{
			"gyro",
			"mpu6050 test: gyro_x:0.0,gyro_y:0.0,gyro_z:0.0",
			Update{Kind: FrameGyro},
		},
		{
			"gyro keys out of order",
			"mpu6050 test: gyro_z:3,gyro_x:1,gyro_y:2",
			Update{Kind: FrameGyro, Axes: imu.Vec3{X: 1, Y: 2, Z: 3}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := d.Decode(tc.line)
			if err != nil {
				t.Fatalf("Decode(%q) returned error: %v", tc.line, err)
			}
			if got != tc.want {
				t.Errorf("Decode(%q) = %+v, want %+v", tc.line, got, tc.want)
			}
		})
	}
}

func TestDecoder_Errors(t *testing.T) {
	d := NewDecoder()

	testCases := []struct {
		name     string
		line     string
		sentinel error
		kind     FrameKind
	}{
		{"empty", "   ", ErrUnrecognizedLine, FrameUnknown},
		{"boot banner", "I (310) boot: ESP-IDF v5.3.1", ErrUnrecognizedLine, FrameUnknown},
		{"other payload", "mpu6050 test: device id 0x68", ErrUnrecognizedLine, FrameUnknown},
		{"bad timestamp", "time:abc", ErrMalformedLine, FrameTimestamp},
		{"accel not a number", "mpu6050 test: acce_x:notanumber,acce_y:1,acce_z:1", ErrMalformedLine, FrameAccel},
		{"accel missing axis", "mpu6050 test: acce_x:1,acce_y:1", ErrMalformedLine, FrameAccel},
		{"accel duplicate axis", "mpu6050 test: acce_x:1,acce_x:1,acce_z:1", ErrMalformedLine, FrameAccel},
		{"gyro mixed keys", "mpu6050 test: gyro_x:1,acce_y:1,gyro_z:1", ErrMalformedLine, FrameAccel},
		{"gyro missing colon", "mpu6050 test: gyro_x1,gyro_y:1,gyro_z:1", ErrMalformedLine, FrameGyro},
		{"infinite timestamp", "time:Inf", ErrMalformedLine, FrameTimestamp},
		{"nan timestamp", "time:nan", ErrMalformedLine, FrameTimestamp},
		{"hex timestamp", "time:0x1p4", ErrMalformedLine, FrameTimestamp},
		{"accel nan", "mpu6050 test: acce_x:NaN,acce_y:1,acce_z:1", ErrMalformedLine, FrameAccel},
		{"accel infinity", "mpu6050 test: acce_x:0,acce_y:+Inf,acce_z:1", ErrMalformedLine, FrameAccel},
		{"gyro negative infinity", "mpu6050 test: gyro_x:-Infinity,gyro_y:0,gyro_z:0", ErrMalformedLine, FrameGyro},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.Decode(tc.line)
			if err == nil {
				t.Fatalf("Decode(%q) expected error", tc.line)
			}
			if !errors.Is(err, tc.sentinel) {
				t.Errorf("Decode(%q) error %v, want %v", tc.line, err, tc.sentinel)
			}

			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("expected *DecodeError, got %T", err)
			}
			if decodeErr.Line != tc.line {
				t.Errorf("error names line %q, want %q", decodeErr.Line, tc.line)
			}
			if decodeErr.Kind != tc.kind {
				t.Errorf("error kind %s, want %s", decodeErr.Kind, tc.kind)
			}
		})
	}
}

func TestDecoder_CustomMarkers(t *testing.T) {
	d := NewDecoder(WithTimestampMarker("ts="), WithPayloadMarker("imu> "))

	u, err := d.Decode("ts=4.5")
	if err != nil || u.Timestamp != 4.5 {
		t.Fatalf("Decode(ts=4.5) = %+v, %v", u, err)
	}

	u, err = d.Decode("imu> acce_x:1,acce_y:2,acce_z:3")
	if err != nil || u.Kind != FrameAccel {
		t.Fatalf("Decode(accel) = %+v, %v", u, err)
	}

	if _, err = d.Decode("mpu6050 test: acce_x:1,acce_y:2,acce_z:3"); !errors.Is(err, ErrUnrecognizedLine) {
		t.Errorf("default marker should not be recognized, got %v", err)
	}
}
