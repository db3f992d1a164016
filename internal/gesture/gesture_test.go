// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

type fixedClassifier struct {
	idx int
	err error
}

func (f fixedClassifier) Classify([]float64) (int, error) {
	return f.idx, f.err
}

func TestVocabulary(t *testing.T) {
	v, err := NewVocabulary(DefaultLabels)
	if err != nil {
		t.Fatalf("Failed to create vocabulary: %v", err)
	}
	if v.Size() != 9 {
		t.Fatalf("expected 9 labels, got %d", v.Size())
	}

	l, err := v.Label(0)
	if err != nil || l != "curved_up" {
		t.Errorf("Label(0) = %q, %v", l, err)
	}
	if !v.Contains("none_none") || v.Contains("flip_left") {
		t.Error("Contains returned wrong result")
	}

	for _, idx := range []int{-1, 9, 100} {
		if _, err := v.Label(idx); !errors.Is(err, ErrContractViolation) {
			t.Errorf("Label(%d) error = %v, want ErrContractViolation", idx, err)
		}
	}

	testCases := []struct {
		name   string
		labels []string
	}{
		{"empty", nil},
		{"blank entry", []string{"a", " "}},
		{"duplicate", []string{"a", "b", "a"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewVocabulary(tc.labels); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRecognizer(t *testing.T) {
	v, _ := NewVocabulary(DefaultLabels)

	r, err := NewRecognizer(fixedClassifier{idx: 6}, v)
	if err != nil {
		t.Fatalf("Failed to create recognizer: %v", err)
	}
	label, idx, err := r.Recognize(nil)
	if err != nil || label != "straight_left" || idx != 6 {
		t.Errorf("Recognize = %q, %d, %v", label, idx, err)
	}

	r, _ = NewRecognizer(fixedClassifier{idx: 9}, v)
	if _, _, err = r.Recognize(nil); !errors.Is(err, ErrContractViolation) {
		t.Errorf("out of range index: got %v, want ErrContractViolation", err)
	}

	boom := errors.New("boom")
	r, _ = NewRecognizer(fixedClassifier{err: boom}, v)
	if _, _, err = r.Recognize(nil); !errors.Is(err, boom) {
		t.Errorf("classifier error not propagated: %v", err)
	}
}

func twoClassModel(scaler *Scaler, labels []string) ModelFile {
	return ModelFile{
		FeatureLen: 2,
		Labels:     labels,
		Scaler:     scaler,
		Centroids:  [][]float64{{0, 0}, {10, 10}},
	}
}

func TestCentroidModel_Classify(t *testing.T) {
	testCases := []struct {
		name     string
		scaler   *Scaler
		features []float64
		want     int
	}{
		{"none near origin", &Scaler{Kind: ScalerNone}, []float64{1, 2}, 0},
		{"none near far", &Scaler{Kind: ScalerNone}, []float64{8, 9}, 1},
		// (x-100)/10 maps 190 -> 9 which is nearest to centroid 1.
		{"standard", &Scaler{Kind: ScalerStandard, Mean: []float64{100, 100}, Scale: []float64{10, 10}}, []float64{190, 190}, 1},
		// x*0.01 maps 100 -> 1 which is nearest to the origin.
		{"minmax", &Scaler{Kind: ScalerMinMax, Min: []float64{0, 0}, Scale: []float64{0.01, 0.01}}, []float64{100, 100}, 0},
		// A zero scale is treated as one.
		{"standard zero scale", &Scaler{Kind: ScalerStandard, Mean: []float64{0, 0}, Scale: []float64{0, 0}}, []float64{9, 9}, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := NewCentroidModel(twoClassModel(tc.scaler, nil))
			if err != nil {
				t.Fatalf("Failed to build model: %v", err)
			}
			got, err := m.Classify(tc.features)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got != tc.want {
				t.Errorf("Classify(%v) = %d, want %d", tc.features, got, tc.want)
			}
		})
	}
}

func TestCentroidModel_ClassifyRejectsNonFinite(t *testing.T) {
	m, err := NewCentroidModel(twoClassModel(&Scaler{Kind: ScalerNone}, nil))
	if err != nil {
		t.Fatalf("Failed to build model: %v", err)
	}

	for _, features := range [][]float64{
		{math.NaN(), 0},
		{0, math.Inf(1)},
		{math.Inf(-1), math.Inf(-1)},
	} {
		if idx, err := m.Classify(features); err == nil {
			t.Errorf("Classify(%v) = %d, expected error", features, idx)
		}
	}
}

func TestCentroidModel_Validation(t *testing.T) {
	testCases := []struct {
		name string
		mf   ModelFile
	}{
		{"missing scaler", twoClassModel(nil, nil)},
		{"unknown scaler", twoClassModel(&Scaler{Kind: "robust"}, nil)},
		{"standard without mean", twoClassModel(&Scaler{Kind: ScalerStandard, Scale: []float64{1, 1}}, nil)},
		{"label count mismatch", twoClassModel(&Scaler{Kind: ScalerNone}, []string{"a"})},
		{"zero feature len", ModelFile{Scaler: &Scaler{Kind: ScalerNone}, Centroids: [][]float64{{}}}},
		{"ragged centroid", ModelFile{FeatureLen: 2, Scaler: &Scaler{Kind: ScalerNone}, Centroids: [][]float64{{1}}}},
		{"no centroids", ModelFile{FeatureLen: 2, Scaler: &Scaler{Kind: ScalerNone}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewCentroidModel(tc.mf); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	m, _ := NewCentroidModel(twoClassModel(&Scaler{Kind: ScalerNone}, nil))
	if _, err := m.Classify([]float64{1, 2, 3}); err == nil {
		t.Error("expected feature length error")
	}
}

func TestLoadCentroidModel_LabelsMustMatchVocabulary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	doc := `{"feature_len":2,"labels":["up","down"],"scaler":{"kind":"none"},"centroids":[[0,0],[1,1]]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadCentroidModel(path)
	if err != nil {
		t.Fatalf("Failed to load model: %v", err)
	}

	match, _ := NewVocabulary([]string{"up", "down"})
	if _, err := NewRecognizer(m, match); err != nil {
		t.Errorf("matching vocabulary rejected: %v", err)
	}

	swapped, _ := NewVocabulary([]string{"down", "up"})
	if _, err := NewRecognizer(m, swapped); !errors.Is(err, ErrContractViolation) {
		t.Errorf("mismatched vocabulary: got %v, want ErrContractViolation", err)
	}

	if _, err := LoadCentroidModel(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
