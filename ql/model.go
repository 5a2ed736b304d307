package ql

import (
	"fmt"
	"slices"
)

const ExperienceReplay = "experienceReplay"

// Model is the result of a training call. A Model is owned by one caller at a
// time; training with a prior Model returns a new Model and leaves the prior
// one unchanged.
type Model[S, A comparable] struct {
	// ID is assigned on every training call.
	ID           string
	Table        *Table[S, A]
	Policy       Policy[S, A]
	RewardTrace  []float64
	Control      Control
	LearningRule string
}

// NewModel returns an empty model, equivalent to no training history.
func NewModel[S, A comparable]() *Model[S, A] {
	return &Model[S, A]{
		Table:        NewTable[S, A](),
		Policy:       Policy[S, A]{},
		Control:      DefaultControl(),
		LearningRule: ExperienceReplay,
	}
}

// Action returns the policy action for s. ok is false when no action was ever
// recorded for s.
func (m *Model[S, A]) Action(s S) (A, bool) {
	a, ok := m.Policy[s]
	return a, ok
}

// Predict returns the policy action for each state, in order.
func (m *Model[S, A]) Predict(states []S) ([]A, error) {
	actions := make([]A, len(states))
	for i, s := range states {
		a, ok := m.Action(s)
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrNoPolicy, s)
		}
		actions[i] = a
	}
	return actions, nil
}

// RecomputePolicy refreshes the cached policy from the table.
func (m *Model[S, A]) RecomputePolicy() {
	m.Policy = ComputePolicy(m.Table)
}

func (m *Model[S, A]) Value(s S, a A) float64 {
	return m.Table.Value(s, a)
}

func (m *Model[S, A]) States() []S {
	return m.Table.States()
}

func (m *Model[S, A]) Actions() []A {
	return m.Table.Actions()
}

// Passes returns the number of replay passes recorded across all merges.
func (m *Model[S, A]) Passes() int {
	return len(m.RewardTrace)
}

// LastReward returns the reward of the most recent pass, or 0 for an
// untrained model.
func (m *Model[S, A]) LastReward() float64 {
	if len(m.RewardTrace) == 0 {
		return 0.0
	}
	return m.RewardTrace[len(m.RewardTrace)-1]
}

func (m *Model[S, A]) Clone() *Model[S, A] {
	p := make(Policy[S, A], len(m.Policy))
	for s, a := range m.Policy {
		p[s] = a
	}
	return &Model[S, A]{
		ID:           m.ID,
		Table:        m.Table.Clone(),
		Policy:       p,
		RewardTrace:  slices.Clone(m.RewardTrace),
		Control:      m.Control,
		LearningRule: m.LearningRule,
	}
}
