package models

import (
	"encoding/json"
	"fmt"
)

// CyclePhase is a discrete stage of the macroeconomic cycle.
type CyclePhase int

const (
	PhaseExpansion CyclePhase = iota
	PhaseSlowdown
	PhaseRecession
	PhaseRecovery
)

// Phases lists every cycle phase in tie-break priority order: on an exact
// vote tie the least alarming classification wins. This ordering is a policy
// choice, not an accident.
var Phases = []CyclePhase{PhaseExpansion, PhaseRecovery, PhaseSlowdown, PhaseRecession}

func (p CyclePhase) String() string {
	switch p {
	case PhaseExpansion:
		return "expansion"
	case PhaseSlowdown:
		return "slowdown"
	case PhaseRecession:
		return "recession"
	case PhaseRecovery:
		return "recovery"
	default:
		return "unknown"
	}
}

// ParseCyclePhase converts a phase name back to its enum value.
func ParseCyclePhase(name string) (CyclePhase, error) {
	switch name {
	case "expansion":
		return PhaseExpansion, nil
	case "slowdown":
		return PhaseSlowdown, nil
	case "recession":
		return PhaseRecession, nil
	case "recovery":
		return PhaseRecovery, nil
	default:
		return PhaseExpansion, fmt.Errorf("unknown cycle phase %q", name)
	}
}

// MarshalJSON encodes the phase as its name.
func (p CyclePhase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a phase name.
func (p *CyclePhase) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	phase, err := ParseCyclePhase(name)
	if err != nil {
		return err
	}
	*p = phase
	return nil
}

// PhaseOutcome is the tagged result of a classification: either a determined
// cycle phase or the undetermined (no-signal) state. Consumers must use the
// comma-ok accessor, so the no-signal case is impossible to ignore.
type PhaseOutcome struct {
	phase      CyclePhase
	determined bool
}

// DeterminedPhase wraps a classified phase.
func DeterminedPhase(p CyclePhase) PhaseOutcome {
	return PhaseOutcome{phase: p, determined: true}
}

// UndeterminedPhase is the no-signal outcome.
func UndeterminedPhase() PhaseOutcome {
	return PhaseOutcome{}
}

// Phase returns the classified phase and whether one was determined.
func (o PhaseOutcome) Phase() (CyclePhase, bool) {
	return o.phase, o.determined
}

type phaseOutcomeJSON struct {
	Determined bool   `json:"determined"`
	Phase      string `json:"phase,omitempty"`
}

// MarshalJSON encodes the outcome with an explicit determined flag.
func (o PhaseOutcome) MarshalJSON() ([]byte, error) {
	out := phaseOutcomeJSON{Determined: o.determined}
	if o.determined {
		out.Phase = o.phase.String()
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes an outcome produced by MarshalJSON.
func (o *PhaseOutcome) UnmarshalJSON(data []byte) error {
	var in phaseOutcomeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if !in.Determined {
		*o = UndeterminedPhase()
		return nil
	}
	phase, err := ParseCyclePhase(in.Phase)
	if err != nil {
		return err
	}
	*o = DeterminedPhase(phase)
	return nil
}

// SignalContribution records one indicator's vote toward the winning
// aggregate, kept for explainability only. Contributions are ordered by
// descending weight, then indicator name.
type SignalContribution struct {
	Indicator string     `json:"indicator"`
	Weight    float64    `json:"weight"`
	Vote      CyclePhase `json:"vote"`
}

// CycleAssessment is the classifier's result for one evaluation. Created
// once, read-only thereafter. It carries no clock state so identical inputs
// always produce identical assessments.
type CycleAssessment struct {
	Outcome    PhaseOutcome         `json:"outcome"`
	Confidence float64              `json:"confidence"` // [0,1]
	Signals    []SignalContribution `json:"contributing_signals"`
}
