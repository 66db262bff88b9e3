package model

import (
	"errors"
	"fmt"
)

// Stage is a delivery stage. Progression is strictly forward, one step at a time:
//
//	PLACED -> PACKED -> OUT_FOR_DELIVERY -> DELIVERED
type Stage string

const (
	StagePlaced         Stage = "PLACED"
	StagePacked         Stage = "PACKED"
	StageOutForDelivery Stage = "OUT_FOR_DELIVERY"
	StageDelivered      Stage = "DELIVERED"

	InitialStage  = StagePlaced
	TerminalStage = StageDelivered
)

var (
	ErrTerminalStage = errors.New("stage is terminal")
	ErrUnknownStage  = errors.New("unknown stage")
)

// Stages lists every stage in delivery order.
var Stages = []Stage{StagePlaced, StagePacked, StageOutForDelivery, StageDelivered}

var transitions = map[Stage]Stage{
	StagePlaced:         StagePacked,
	StagePacked:         StageOutForDelivery,
	StageOutForDelivery: StageDelivered,
}

func (s Stage) Terminal() bool {
	return s == TerminalStage
}

func (s Stage) String() string {
	return string(s)
}

// Next returns the stage immediately after s.
func (s Stage) Next() (Stage, error) {
	if s.Terminal() {
		return s, ErrTerminalStage
	}
	next, ok := transitions[s]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, string(s))
	}
	return next, nil
}

// Validate checks that history is exactly the stage prefix ending at CurrentStatus.
func (t *Tracking) Validate() error {
	if len(t.History) == 0 || len(t.History) > len(Stages) {
		return fmt.Errorf("tracking %s: history length %d out of range", t.OrderID, len(t.History))
	}
	for i, rec := range t.History {
		if rec.Status != Stages[i] {
			return fmt.Errorf("tracking %s: history[%d] is %s, want %s", t.OrderID, i, rec.Status, Stages[i])
		}
	}
	if last := t.History[len(t.History)-1].Status; last != t.CurrentStatus {
		return fmt.Errorf("tracking %s: current %s does not match last history entry %s", t.OrderID, t.CurrentStatus, last)
	}
	return nil
}
