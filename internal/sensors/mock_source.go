// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"fmt"
	"math"
	"time"
)

// MockSource prints the same log lines as the ESP32 firmware, with smoothly
// changing synthetic motion, so the loop can run without hardware.
type MockSource struct {
	interval time.Duration
	tick     int
	queue    []string
	next     time.Time
}

// NewMockSource creates a source emitting one sample triplet per interval.
// A zero interval emits as fast as the caller reads.
func NewMockSource(interval time.Duration) *MockSource {
	return &MockSource{interval: interval}
}

func (m *MockSource) ReadLine(ctx context.Context) (string, error) {
	if len(m.queue) == 0 {
		if err := m.wait(ctx); err != nil {
			return "", err
		}
		m.queue = m.triplet()
	}

	line := m.queue[0]
	m.queue = m.queue[1:]
	return line, nil
}

func (m *MockSource) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.interval <= 0 {
		return nil
	}

	now := time.Now()
	if m.next.IsZero() {
		m.next = now
	}
	if d := m.next.Sub(now); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	m.next = m.next.Add(m.interval)
	return nil
}

func (m *MockSource) triplet() []string {
	step := m.interval
	if step <= 0 {
		step = 10 * time.Millisecond
	}
	elapsed := float64(m.tick) * step.Seconds()
	ms := m.tick * int(step/time.Millisecond)
	m.tick++

	ax := 0.3 * math.Sin(elapsed)
	ay := 0.2 * math.Cos(elapsed*0.7)
	az := 1.0 + 0.05*math.Sin(elapsed*2)
	gx := 20 * math.Cos(elapsed)
	gy := -15 * math.Sin(elapsed*0.7)
	gz := math.Mod(elapsed*30, 360) - 180

	return []string{
		fmt.Sprintf("I (%d) mpu6050 test: time:%.3f", ms, elapsed),
		fmt.Sprintf("I (%d) mpu6050 test: acce_x:%.4f, acce_y:%.4f, acce_z:%.4f", ms, ax, ay, az),
		fmt.Sprintf("I (%d) mpu6050 test: gyro_x:%.4f, gyro_y:%.4f, gyro_z:%.4f", ms, gx, gy, gz),
	}
}

func (m *MockSource) Close() error {
	return nil
}
