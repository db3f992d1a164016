// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import (
	"fmt"
	"slices"
)

// Classifier maps a feature vector to an index into the gesture vocabulary.
// Any normalisation the model needs is applied by the classifier itself.
type Classifier interface {
	Classify(features []float64) (int, error)
}

// labeled is implemented by classifiers whose artifact records the label
// order it was trained with.
type labeled interface {
	Labels() []string
}

// Recognizer is the validated boundary between the control loop and a
// classifier.
type Recognizer struct {
	classifier Classifier
	vocabulary *Vocabulary
}

// NewRecognizer binds a classifier to a vocabulary. If the classifier carries
// its own label list it must match the vocabulary exactly.
func NewRecognizer(c Classifier, v *Vocabulary) (*Recognizer, error) {
	if c == nil || v == nil {
		return nil, fmt.Errorf("recognizer needs a classifier and a vocabulary")
	}

	if l, ok := c.(labeled); ok {
		if trained := l.Labels(); len(trained) > 0 {
			want := make([]string, 0, v.Size())
			for _, label := range v.Labels() {
				want = append(want, label.String())
			}
			if !slices.Equal(trained, want) {
				return nil, fmt.Errorf("%w: model labels %v do not match vocabulary %v", ErrContractViolation, trained, want)
			}
		}
	}

	return &Recognizer{classifier: c, vocabulary: v}, nil
}

// Recognize classifies features and returns the label and its index.
func (r *Recognizer) Recognize(features []float64) (Label, int, error) {
	idx, err := r.classifier.Classify(features)
	if err != nil {
		return "", 0, fmt.Errorf("classifying window: %w", err)
	}

	label, err := r.vocabulary.Label(idx)
	if err != nil {
		return "", idx, err
	}

	return label, idx, nil
}

// Vocabulary returns the vocabulary the recognizer validates against.
func (r *Recognizer) Vocabulary() *Vocabulary {
	return r.vocabulary
}
