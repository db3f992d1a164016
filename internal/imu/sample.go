// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "fmt"

// Dim is the number of numeric values a sample contributes to a feature
// vector: 3 accelerometer axes followed by 3 gyroscope axes.
const Dim = 6

// Vec3 is a three-axis reading.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sample is one complete timestamped 6-axis reading assembled from the
// telemetry stream. Samples are values; nothing mutates them after creation.
type Sample struct {
	Timestamp float64 `json:"t"` // seconds since the sensor booted
	Accel     Vec3    `json:"accel"`
	Gyro      Vec3    `json:"gyro"`
}

// AppendFeatures appends accel x,y,z then gyro x,y,z to dst.
func (s Sample) AppendFeatures(dst []float64) []float64 {
	return append(dst,
		s.Accel.X, s.Accel.Y, s.Accel.Z,
		s.Gyro.X, s.Gyro.Y, s.Gyro.Z,
	)
}

func (s Sample) String() string {
	return fmt.Sprintf("t=%.3f accel=(%.2f,%.2f,%.2f) gyro=(%.2f,%.2f,%.2f)",
		s.Timestamp,
		s.Accel.X, s.Accel.Y, s.Accel.Z,
		s.Gyro.X, s.Gyro.Y, s.Gyro.Z,
	)
}
