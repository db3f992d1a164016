// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"testing"

	"github.com/relabs-tech/gesture_pilot/internal/imu"
)

const (
	timeLine  = "time:0.10"
	accelLine = "mpu6050 test: acce_x:0.01,acce_y:0.02,acce_z:9.8"
	gyroLine  = "mpu6050 test: gyro_x:0.0,gyro_y:0.0,gyro_z:0.0"
	badAccel  = "mpu6050 test: acce_x:notanumber,acce_y:1,acce_z:1"
)

// feed runs lines through a decoder and accumulator the way the control loop
// does and returns every emitted sample.
func feed(t *testing.T, acc *Accumulator, lines ...string) []imu.Sample {
	t.Helper()

	d := NewDecoder()
	var out []imu.Sample
	for _, line := range lines {
		u, err := d.Decode(line)
		if err != nil {
			acc.Discard(err)
			continue
		}
		if s, ok := acc.Ingest(u); ok {
			out = append(out, s)
		}
	}
	return out
}

func TestAccumulator_AnyOrderEmitsOnce(t *testing.T) {
	want := imu.Sample{
		Timestamp: 0.10,
		Accel:     imu.Vec3{X: 0.01, Y: 0.02, Z: 9.8},
	}

	orders := [][]string{
		{timeLine, accelLine, gyroLine},
		{timeLine, gyroLine, accelLine},
		{accelLine, timeLine, gyroLine},
		{accelLine, gyroLine, timeLine},
		{gyroLine, timeLine, accelLine},
		{gyroLine, accelLine, timeLine},
	}

	for _, order := range orders {
		acc := NewAccumulator(DiscardFrame)
		got := feed(t, acc, order...)
		if len(got) != 1 {
			t.Fatalf("order %v: expected exactly one sample, got %d", order, len(got))
		}
		if got[0] != want {
			t.Errorf("order %v: got %+v, want %+v", order, got[0], want)
		}
		if acc.Pending() != 0 {
			t.Errorf("order %v: frame not cleared after emission, %d pending", order, acc.Pending())
		}
	}
}

func TestAccumulator_NoSampleUntilComplete(t *testing.T) {
	acc := NewAccumulator(DiscardFrame)
	if got := feed(t, acc, timeLine, accelLine, accelLine, timeLine); len(got) != 0 {
		t.Fatalf("expected no sample without gyro, got %d", len(got))
	}
	if acc.Pending() != 4 {
		t.Errorf("expected 4 pending fields, got %d", acc.Pending())
	}
}

func TestAccumulator_MalformedDiscardsFrame(t *testing.T) {
	acc := NewAccumulator(DiscardFrame)

	if got := feed(t, acc, timeLine, gyroLine, badAccel); len(got) != 0 {
		t.Fatalf("expected no sample, got %d", len(got))
	}
	if acc.Pending() != 0 {
		t.Fatalf("expected frame discarded, %d fields pending", acc.Pending())
	}

	// The loop keeps going: a full triplet afterwards still produces a sample.
	if got := feed(t, acc, accelLine, timeLine, gyroLine); len(got) != 1 {
		t.Fatalf("expected recovery sample, got %d", len(got))
	}
}

func TestAccumulator_MalformedDiscardsFragment(t *testing.T) {
	acc := NewAccumulator(DiscardFragment)

	feed(t, acc, timeLine, gyroLine, badAccel)
	if acc.Pending() != 4 {
		t.Fatalf("expected timestamp and gyro kept, %d fields pending", acc.Pending())
	}

	got := feed(t, acc, accelLine)
	if len(got) != 1 {
		t.Fatalf("expected sample once accel arrives, got %d", len(got))
	}
}

func TestAccumulator_UnrecognizedKeepsFrame(t *testing.T) {
	acc := NewAccumulator(DiscardFrame)
	feed(t, acc, timeLine, "I (310) boot: ESP-IDF v5.3.1", accelLine)
	if acc.Pending() != 4 {
		t.Fatalf("unrecognized line should not reset the frame, %d pending", acc.Pending())
	}
}

func TestParsePolicy(t *testing.T) {
	testCases := []struct {
		in      string
		want    PartialFramePolicy
		wantErr bool
	}{
		{"", DiscardFrame, false},
		{"discard_frame", DiscardFrame, false},
		{"discard_fragment", DiscardFragment, false},
		{"discard_everything", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParsePolicy(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParsePolicy(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParsePolicy(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
