// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package flight

import "fmt"

// State is the flight state gating which commands may be issued.
type State int

const (
	Grounded State = iota
	Airborne
)

func (s State) String() string {
	switch s {
	case Grounded:
		return "GROUNDED"
	case Airborne:
		return "AIRBORNE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
