// Package actor implements the action selection strategies used when rolling
// out an environment: uniform random, greedy with respect to a trained
// model, and epsilon-greedy.
//
// Every strategy takes its *rand.Rand explicitly, so a run is reproducible
// from its seed.
package actor

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/sw965/omw/mathx/randx"
	"github.com/sw965/qreplay/mathx"
	"github.com/sw965/qreplay/ql"
)

var (
	ErrUnknownStrategy = errors.New("unknown action selection strategy")
	ErrNoModel         = errors.New("strategy requires a model")
	ErrEmptyActions    = errors.New("action universe is empty")
	ErrInvalidEpsilon  = errors.New("epsilon must be in [0, 1]")
)

type Name string

const (
	RandomName        Name = "random"
	GreedyName        Name = "greedy"
	EpsilonGreedyName Name = "epsilon-greedy"
)

func ParseName(s string) (Name, error) {
	switch n := Name(s); n {
	case RandomName, GreedyName, EpsilonGreedyName:
		return n, nil
	case "":
		return RandomName, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Random picks uniformly from actions.
func Random[A comparable](actions []A, rng *rand.Rand) (A, error) {
	if len(actions) == 0 {
		var zero A
		return zero, ErrEmptyActions
	}
	return randx.Choice(actions, rng)
}

// Greedy returns the policy action of model for state. For a state the model
// has no policy for, or a nil model, it falls back to Random over actions.
func Greedy[S, A comparable](model *ql.Model[S, A], state S, actions []A, rng *rand.Rand) (A, error) {
	if model != nil {
		if a, ok := model.Action(state); ok {
			return a, nil
		}
	}
	return Random(actions, rng)
}

// EpsilonGreedy explores with probability epsilon and acts greedily
// otherwise. The branch draw and the exploration draw both come from rng, in
// that order.
func EpsilonGreedy[S, A comparable](model *ql.Model[S, A], state S, actions []A, epsilon float64, rng *rand.Rand) (A, error) {
	if !mathx.IsUnit(epsilon) {
		var zero A
		return zero, fmt.Errorf("%w: got %v", ErrInvalidEpsilon, epsilon)
	}
	// Float64 is in [0, 1): epsilon 0 never explores, epsilon 1 always does.
	if rng.Float64() < epsilon {
		return Random(actions, rng)
	}
	return Greedy(model, state, actions, rng)
}

// Selector binds a strategy to its model and epsilon.
type Selector[S, A comparable] struct {
	Name    Name
	Model   *ql.Model[S, A]
	Epsilon float64
}

// New builds a Selector. Greedy strategies need a model.
func New[S, A comparable](name Name, model *ql.Model[S, A], epsilon float64) (Selector[S, A], error) {
	s := Selector[S, A]{Name: name, Model: model, Epsilon: epsilon}
	if err := s.Validate(); err != nil {
		return Selector[S, A]{}, err
	}
	return s, nil
}

// NewRandom returns the default selector.
func NewRandom[S, A comparable]() Selector[S, A] {
	return Selector[S, A]{Name: RandomName}
}

func (s Selector[S, A]) Validate() error {
	switch s.Name {
	case RandomName:
		return nil
	case GreedyName, EpsilonGreedyName:
		if s.Model == nil {
			return fmt.Errorf("%w: %s", ErrNoModel, s.Name)
		}
		if s.Name == EpsilonGreedyName && !mathx.IsUnit(s.Epsilon) {
			return fmt.Errorf("%w: got %v", ErrInvalidEpsilon, s.Epsilon)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownStrategy, s.Name)
}

func (s Selector[S, A]) Select(state S, actions []A, rng *rand.Rand) (A, error) {
	switch s.Name {
	case RandomName:
		return Random(actions, rng)
	case GreedyName:
		return Greedy(s.Model, state, actions, rng)
	case EpsilonGreedyName:
		return EpsilonGreedy(s.Model, state, actions, s.Epsilon, rng)
	}
	var zero A
	return zero, fmt.Errorf("%w: %q", ErrUnknownStrategy, s.Name)
}
