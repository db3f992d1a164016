// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
)

const (
	ScalerNone     = "none"
	ScalerStandard = "standard" // (x - mean) / scale
	ScalerMinMax   = "minmax"   // x * scale + min
)

// Scaler is the feature normalisation the model was trained with. Kind is
// mandatory so that a missing scaler cannot silently skip normalisation.
type Scaler struct {
	Kind  string    `json:"kind"`
	Mean  []float64 `json:"mean,omitempty"`
	Min   []float64 `json:"min,omitempty"`
	Scale []float64 `json:"scale,omitempty"`
}

// ModelFile is the on-disk representation of a centroid model.
type ModelFile struct {
	FeatureLen int         `json:"feature_len"`
	Labels     []string    `json:"labels,omitempty"`
	Scaler     *Scaler     `json:"scaler"`
	Centroids  [][]float64 `json:"centroids"`
}

// CentroidModel is a nearest-centroid classifier: the class whose centroid is
// closest (Euclidean) to the scaled feature vector wins. Centroid i is class i.
type CentroidModel struct {
	featureLen int
	labels     []string
	scaler     Scaler
	centroids  [][]float64

	scaled []float64
	dist   []float64
}

// LoadCentroidModel reads a JSON model artifact.
func LoadCentroidModel(path string) (*CentroidModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model %s: %w", path, err)
	}

	var mf ModelFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parsing model %s: %w", path, err)
	}

	m, err := NewCentroidModel(mf)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return m, nil
}

// NewCentroidModel validates mf and builds a model from it.
func NewCentroidModel(mf ModelFile) (*CentroidModel, error) {
	if mf.FeatureLen <= 0 {
		return nil, fmt.Errorf("feature_len must be positive, got %d", mf.FeatureLen)
	}
	if mf.Scaler == nil {
		return nil, fmt.Errorf("scaler is required (use kind %q to state that features are used unscaled)", ScalerNone)
	}
	if len(mf.Centroids) == 0 {
		return nil, fmt.Errorf("model has no centroids")
	}
	if len(mf.Labels) > 0 && len(mf.Labels) != len(mf.Centroids) {
		return nil, fmt.Errorf("model has %d labels but %d centroids", len(mf.Labels), len(mf.Centroids))
	}
	for i, c := range mf.Centroids {
		if len(c) != mf.FeatureLen {
			return nil, fmt.Errorf("centroid %d has %d features, want %d", i, len(c), mf.FeatureLen)
		}
	}

	s := *mf.Scaler
	switch s.Kind {
	case ScalerNone:
	case ScalerStandard:
		if len(s.Mean) != mf.FeatureLen || len(s.Scale) != mf.FeatureLen {
			return nil, fmt.Errorf("standard scaler needs %d mean and scale values, got %d and %d", mf.FeatureLen, len(s.Mean), len(s.Scale))
		}
		s.Scale = append([]float64(nil), s.Scale...)
		for i, v := range s.Scale {
			if v == 0 {
				s.Scale[i] = 1 // constant feature
			}
		}
	case ScalerMinMax:
		if len(s.Min) != mf.FeatureLen || len(s.Scale) != mf.FeatureLen {
			return nil, fmt.Errorf("minmax scaler needs %d min and scale values, got %d and %d", mf.FeatureLen, len(s.Min), len(s.Scale))
		}
	default:
		return nil, fmt.Errorf("unknown scaler kind %q", s.Kind)
	}

	return &CentroidModel{
		featureLen: mf.FeatureLen,
		labels:     mf.Labels,
		scaler:     s,
		centroids:  mf.Centroids,
		scaled:     make([]float64, mf.FeatureLen),
		dist:       make([]float64, len(mf.Centroids)),
	}, nil
}

// Classify returns the index of the nearest centroid.
func (m *CentroidModel) Classify(features []float64) (int, error) {
	if len(features) != m.featureLen {
		return 0, fmt.Errorf("model expects %d features, got %d", m.featureLen, len(features))
	}
	for i, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("feature %d is not finite: %v", i, v)
		}
	}

	x := m.scale(features)
	for i, c := range m.centroids {
		m.dist[i] = floats.Distance(x, c, 2)
	}

	return floats.MinIdx(m.dist), nil
}

func (m *CentroidModel) scale(features []float64) []float64 {
	switch m.scaler.Kind {
	case ScalerStandard:
		floats.SubTo(m.scaled, features, m.scaler.Mean)
		floats.Div(m.scaled, m.scaler.Scale)
		return m.scaled
	case ScalerMinMax:
		floats.MulTo(m.scaled, features, m.scaler.Scale)
		floats.Add(m.scaled, m.scaler.Min)
		return m.scaled
	default:
		return features
	}
}

// FeatureLen returns the vector length the model was trained on.
func (m *CentroidModel) FeatureLen() int {
	return m.featureLen
}

// Labels returns the label order recorded in the artifact, if any.
func (m *CentroidModel) Labels() []string {
	return m.labels
}
