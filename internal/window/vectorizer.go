// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package window

import (
	"fmt"

	"github.com/relabs-tech/gesture_pilot/internal/imu"
)

// Vectorizer flattens a window snapshot into a fixed-length feature vector.
type Vectorizer struct {
	length int
}

// NewVectorizer returns a vectorizer for windows of the given capacity. The
// vector length is always capacity * imu.Dim.
func NewVectorizer(capacity int) (*Vectorizer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("invalid window capacity: %d", capacity)
	}
	return &Vectorizer{length: capacity * imu.Dim}, nil
}

// Len returns the feature vector length.
func (v *Vectorizer) Len() int {
	return v.length
}

// Vectorize emits accel x,y,z then gyro x,y,z for each sample in order. Short
// input is zero padded on the right, long input truncated on the right.
func (v *Vectorizer) Vectorize(samples []imu.Sample) []float64 {
	out := make([]float64, 0, max(v.length, len(samples)*imu.Dim))
	for _, s := range samples {
		out = s.AppendFeatures(out)
	}

	if len(out) > v.length {
		return out[:v.length:v.length]
	}
	for len(out) < v.length {
		out = append(out, 0)
	}
	return out
}
