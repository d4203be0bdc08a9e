// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package recipe

import "fmt"

// Phase identifies one step of a recipe's build pipeline.
type Phase string

const (
	PhaseUnpack       Phase = "unpack"
	PhasePatch        Phase = "patch"
	PhaseBuild        Phase = "build"
	PhaseCheck        Phase = "check"
	PhaseInstall      Phase = "install"
	PhaseFixup        Phase = "fixup"
	PhaseInstallCheck Phase = "installCheck"
	PhaseDist         Phase = "dist"
)

// Phases is the fixed execution order. Recipes only choose which
// phases exist; they never choose the order.
var Phases = []Phase{
	PhaseUnpack,
	PhasePatch,
	PhaseBuild,
	PhaseCheck,
	PhaseInstall,
	PhaseFixup,
	PhaseInstallCheck,
	PhaseDist,
}

// ParsePhase validates a phase identifier.
func ParsePhase(raw string) (Phase, error) {
	for _, phase := range Phases {
		if string(phase) == raw {
			return phase, nil
		}
	}
	return "", fmt.Errorf("unknown phase %q", raw)
}

// Index returns the position of the phase in the fixed order, or -1 for
// an unknown phase.
func (p Phase) Index() int {
	for i, phase := range Phases {
		if phase == p {
			return i
		}
	}
	return -1
}

// UnmarshalText implements encoding.TextUnmarshaler so that unknown
// phase keys in a recipe's phases object are rejected at decode time.
func (p *Phase) UnmarshalText(data []byte) error {
	phase, err := ParsePhase(string(data))
	if err != nil {
		return err
	}
	*p = phase
	return nil
}
