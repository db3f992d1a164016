// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package flight

import (
	"fmt"

	"github.com/relabs-tech/gesture_pilot/internal/gesture"
)

// NeutralAction is what the neutral gesture does while airborne.
type NeutralAction string

const (
	NeutralHover NeutralAction = "hover" // send rc 0 0 0 0
	NeutralNone  NeutralAction = "none"  // send nothing
)

// Table is the gesture to command configuration of the state machine.
type Table struct {
	Liftoff        gesture.Label
	Land           gesture.Label
	Neutral        gesture.Label
	NeutralAction  NeutralAction
	Moves          map[gesture.Label]Command
	LandOnShutdown bool
}

// DefaultTable returns the mapping used with the default vocabulary.
func DefaultTable() Table {
	return Table{
		Liftoff:       "curved_up",
		Land:          "curved_down",
		Neutral:       "none_none",
		NeutralAction: NeutralHover,
		Moves: map[gesture.Label]Command{
			"curved_left":    {Name: CmdCCW, Args: []int{90}},
			"curved_right":   {Name: CmdCW, Args: []int{90}},
			"straight_up":    {Name: CmdUp, Args: []int{40}},
			"straight_down":  {Name: CmdDown, Args: []int{20}},
			"straight_left":  {Name: CmdLeft, Args: []int{40}},
			"straight_right": {Name: CmdRight, Args: []int{40}},
		},
		LandOnShutdown: true,
	}
}

// Validate checks the table against a vocabulary.
func (t Table) Validate(v *gesture.Vocabulary) error {
	named := []struct {
		key   string
		label gesture.Label
	}{
		{"liftoff", t.Liftoff},
		{"land", t.Land},
		{"neutral", t.Neutral},
	}
	for _, n := range named {
		if n.label == "" {
			return fmt.Errorf("flight table: %s gesture is required", n.key)
		}
		if !v.Contains(n.label) {
			return fmt.Errorf("flight table: %s gesture %q is not in the vocabulary", n.key, n.label)
		}
	}
	if t.Liftoff == t.Land {
		return fmt.Errorf("flight table: liftoff and land gestures must differ, both are %q", t.Liftoff)
	}

	switch t.NeutralAction {
	case NeutralHover, NeutralNone:
	default:
		return fmt.Errorf("flight table: unknown neutral action %q", t.NeutralAction)
	}

	for label, cmd := range t.Moves {
		if !v.Contains(label) {
			return fmt.Errorf("flight table: move gesture %q is not in the vocabulary", label)
		}
		if label == t.Liftoff || label == t.Land || label == t.Neutral {
			return fmt.Errorf("flight table: gesture %q cannot be both a move and a liftoff/land/neutral gesture", label)
		}
		if err := cmd.Validate(); err != nil {
			return fmt.Errorf("flight table: move %q: %w", label, err)
		}
		switch cmd.Name {
		case CmdSDK, CmdTakeoff, CmdLand:
			return fmt.Errorf("flight table: move %q may not send %q", label, cmd.Name)
		}
	}

	return nil
}

// Decision is the outcome of one classification.
type Decision struct {
	Command *Command // nil when nothing is sent
	Next    State
	Reason  string
}

// Mapper maps (state, gesture) to a command and the next state. It has no
// mutable state; the caller owns the current State.
type Mapper struct {
	table Table
}

// NewMapper validates the table and returns a mapper.
func NewMapper(t Table, v *gesture.Vocabulary) (*Mapper, error) {
	if err := t.Validate(v); err != nil {
		return nil, err
	}

	moves := make(map[gesture.Label]Command, len(t.Moves))
	for k, c := range t.Moves {
		moves[k] = Command{Name: c.Name, Args: append([]int(nil), c.Args...)}
	}
	t.Moves = moves

	return &Mapper{table: t}, nil
}

// OnGesture decides what to send for label in state. Grounded only ever
// yields takeoff; Airborne never yields takeoff.
func (m *Mapper) OnGesture(state State, label gesture.Label) Decision {
	switch state {
	case Grounded:
		if label == m.table.Liftoff {
			c := Takeoff()
			return Decision{Command: &c, Next: Airborne, Reason: "liftoff gesture"}
		}
		return Decision{Next: Grounded, Reason: "awaiting liftoff gesture"}

	case Airborne:
		if label == m.table.Land {
			c := Land()
			return Decision{Command: &c, Next: Grounded, Reason: "land gesture"}
		}
		if move, ok := m.table.Moves[label]; ok {
			c := Command{Name: move.Name, Args: append([]int(nil), move.Args...)}
			return Decision{Command: &c, Next: Airborne, Reason: "directional gesture"}
		}
		return m.neutral(label)

	default:
		return Decision{Next: state, Reason: fmt.Sprintf("unknown state %s", state)}
	}
}

func (m *Mapper) neutral(label gesture.Label) Decision {
	reason := "neutral gesture"
	switch label {
	case m.table.Neutral:
	case m.table.Liftoff:
		reason = "already airborne"
	default:
		reason = "unmapped gesture"
	}

	if m.table.NeutralAction == NeutralNone {
		return Decision{Next: Airborne, Reason: reason}
	}
	c := Hover()
	return Decision{Command: &c, Next: Airborne, Reason: reason}
}

// OnShutdown returns the command to send when the loop exits in state, if any.
func (m *Mapper) OnShutdown(state State) *Command {
	if state != Airborne || !m.table.LandOnShutdown {
		return nil
	}
	c := Land()
	return &c
}
