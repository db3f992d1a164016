// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/relabs-tech/gesture_pilot/internal/config"
	"github.com/relabs-tech/gesture_pilot/internal/gesture"
)

// writeModel stores a centroid model whose first class sits at the origin and
// every other class far away.
func writeModel(t *testing.T, dir string, featureLen int) string {
	t.Helper()

	mf := gesture.ModelFile{
		FeatureLen: featureLen,
		Labels:     gesture.DefaultLabels,
		Scaler:     &gesture.Scaler{Kind: gesture.ScalerNone},
	}
	for i := range gesture.DefaultLabels {
		c := make([]float64, featureLen)
		if i > 0 {
			for j := range c {
				c[j] = float64(100 + i)
			}
		}
		mf.Centroids = append(mf.Centroids, c)
	}

	data, err := json.Marshal(mf)
	if err != nil {
		t.Fatalf("marshal model: %v", err)
	}
	path := filepath.Join(dir, "model.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return path
}

func writeCapture(t *testing.T, dir string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, "capture.log")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write capture: %v", err)
	}
	return path
}

func TestRunPilot_Replay(t *testing.T) {
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Window.Capacity = testCapacity
	cfg.Classifier.ModelPath = writeModel(t, dir, testCapacity*6)
	capture := writeCapture(t, dir, sampleLines(2*testCapacity))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	if err := RunPilot(context.Background(), cfg, RunOptions{ReplayPath: capture}, logger); err != nil {
		t.Fatalf("RunPilot: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"command=command",
		"command=takeoff",
		`command="rc 0 0 0 0"`,
		"command=land",
		"telemetry stream ended",
		"run summary",
		"run_id=",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q", want)
		}
	}
}

func TestRunPilot_ModelWindowMismatch(t *testing.T) {
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Window.Capacity = testCapacity
	cfg.Classifier.ModelPath = writeModel(t, dir, 5)
	capture := writeCapture(t, dir, sampleLines(1))

	err := RunPilot(context.Background(), cfg, RunOptions{ReplayPath: capture}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	if !errors.Is(err, gesture.ErrContractViolation) {
		t.Fatalf("RunPilot error %v, want ErrContractViolation", err)
	}
}

func TestRunPilot_MissingReplay(t *testing.T) {
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Window.Capacity = testCapacity
	cfg.Classifier.ModelPath = writeModel(t, dir, testCapacity*6)

	err := RunPilot(context.Background(), cfg, RunOptions{ReplayPath: filepath.Join(dir, "nope.log")}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	if err == nil {
		t.Fatal("RunPilot with a missing capture expected error")
	}
}

type failingCloser struct{ calls int }

func (f *failingCloser) Close() error {
	f.calls++
	return errors.New("device busy")
}

type quietCloser struct{}

func (quietCloser) Close() error { return nil }

func TestCloseLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	c := &failingCloser{}
	closeLogged(logger, "transport", c)
	if c.calls != 1 {
		t.Errorf("Close called %d times, want 1", c.calls)
	}
	out := buf.String()
	if !strings.Contains(out, `msg="closing transport"`) || !strings.Contains(out, `error="device busy"`) {
		t.Errorf("close failure not logged: %s", out)
	}

	buf.Reset()
	closeLogged(logger, "telemetry source", quietCloser{})
	if buf.Len() != 0 {
		t.Errorf("clean close logged %q", buf.String())
	}
}
