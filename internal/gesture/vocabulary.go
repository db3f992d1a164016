// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gesture

import (
	"errors"
	"fmt"
	"strings"
)

// ErrContractViolation means the classifier produced an index outside the
// configured vocabulary. The classifier artifact and the configuration do not
// match; the loop must stop.
var ErrContractViolation = errors.New("classifier contract violation")

// DefaultLabels is the vocabulary the bundled models were trained on, in
// classifier index order.
var DefaultLabels = []string{
	"curved_up", "curved_down", "curved_left", "curved_right",
	"straight_up", "straight_down", "straight_left", "straight_right",
	"none_none",
}

// Label is one gesture from a closed vocabulary.
type Label string

func (l Label) String() string {
	return string(l)
}

// Vocabulary maps classifier indices to labels.
type Vocabulary struct {
	labels []Label
	index  map[Label]int
}

// NewVocabulary builds a vocabulary from labels in classifier index order.
func NewVocabulary(labels []string) (*Vocabulary, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("gesture vocabulary is empty")
	}

	v := Vocabulary{
		labels: make([]Label, 0, len(labels)),
		index:  make(map[Label]int, len(labels)),
	}
	for i, name := range labels {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("gesture vocabulary entry %d is empty", i)
		}
		l := Label(name)
		if prev, ok := v.index[l]; ok {
			return nil, fmt.Errorf("gesture %q listed twice (indices %d and %d)", name, prev, i)
		}
		v.index[l] = i
		v.labels = append(v.labels, l)
	}

	return &v, nil
}

// Label returns the label for a classifier index.
func (v *Vocabulary) Label(i int) (Label, error) {
	if i < 0 || i >= len(v.labels) {
		return "", fmt.Errorf("%w: index %d outside vocabulary of %d labels", ErrContractViolation, i, len(v.labels))
	}
	return v.labels[i], nil
}

// Contains reports whether l is part of the vocabulary.
func (v *Vocabulary) Contains(l Label) bool {
	_, ok := v.index[l]
	return ok
}

// Size returns the number of labels.
func (v *Vocabulary) Size() int {
	return len(v.labels)
}

// Labels returns a copy of the labels in index order.
func (v *Vocabulary) Labels() []Label {
	return append([]Label(nil), v.labels...)
}
