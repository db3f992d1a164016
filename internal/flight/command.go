// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package flight

import (
	"fmt"
	"strconv"
	"strings"
)

// Wire tokens of the drone's text SDK.
const (
	CmdSDK     = "command"
	CmdTakeoff = "takeoff"
	CmdLand    = "land"
	CmdUp      = "up"
	CmdDown    = "down"
	CmdLeft    = "left"
	CmdRight   = "right"
	CmdForward = "forward"
	CmdBack    = "back"
	CmdCW      = "cw"
	CmdCCW     = "ccw"
	CmdRC      = "rc"
)

type argSpec struct {
	count    int
	min, max int
}

var commandSpecs = map[string]argSpec{
	CmdSDK:     {},
	CmdTakeoff: {},
	CmdLand:    {},
	CmdUp:      {1, 20, 500}, // cm
	CmdDown:    {1, 20, 500},
	CmdLeft:    {1, 20, 500},
	CmdRight:   {1, 20, 500},
	CmdForward: {1, 20, 500},
	CmdBack:    {1, 20, 500},
	CmdCW:      {1, 1, 360}, // degrees
	CmdCCW:     {1, 1, 360},
	CmdRC:      {4, -100, 100}, // left/right, forward/back, up/down, yaw
}

// Command is one instruction for the actuator.
type Command struct {
	Name string
	Args []int
}

// String renders the wire token, e.g. "up 40" or "rc 0 0 0 0".
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		parts = append(parts, strconv.Itoa(a))
	}
	return strings.Join(parts, " ")
}

// Validate checks the command name and argument ranges.
func (c Command) Validate() error {
	spec, ok := commandSpecs[c.Name]
	if !ok {
		return fmt.Errorf("unknown command %q", c.Name)
	}
	if len(c.Args) != spec.count {
		return fmt.Errorf("command %q takes %d arguments, got %d", c.Name, spec.count, len(c.Args))
	}
	for _, a := range c.Args {
		if a < spec.min || a > spec.max {
			return fmt.Errorf("command %q argument %d outside [%d, %d]", c.Name, a, spec.min, spec.max)
		}
	}
	return nil
}

// ParseCommand parses a wire token such as "cw 90".
func ParseCommand(token string) (Command, error) {
	fields := strings.Fields(token)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}

	c := Command{Name: strings.ToLower(fields[0])}
	for _, f := range fields[1:] {
		v, err := strconv.Atoi(f)
		if err != nil {
			return Command{}, fmt.Errorf("command %q: invalid argument %q: %w", token, f, err)
		}
		c.Args = append(c.Args, v)
	}

	if err := c.Validate(); err != nil {
		return Command{}, err
	}
	return c, nil
}

// SDK enters the drone's command mode.
func SDK() Command { return Command{Name: CmdSDK} }

// Takeoff lifts off from the ground.
func Takeoff() Command { return Command{Name: CmdTakeoff} }

// Land lands in place.
func Land() Command { return Command{Name: CmdLand} }

// Hover zeroes all remote-control channels.
func Hover() Command { return Command{Name: CmdRC, Args: []int{0, 0, 0, 0}} }
