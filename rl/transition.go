// Package rl defines the recorded transition tuples consumed by the learner
// and the binding of loosely typed tables onto them.
package rl

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/sw965/qreplay/mathx"
)

var (
	ErrMalformedTransition = errors.New("malformed transition")
	ErrInvalidColumns      = errors.New("invalid column binding")
)

// Transition is one observation (s, a, r, s').
type Transition[S, A comparable] struct {
	State     S
	Action    A
	Reward    float64
	NextState S
}

func (t Transition[S, A]) Validate() error {
	if isNil(t.State) {
		return fmt.Errorf("%w: state is nil", ErrMalformedTransition)
	}
	if isNil(t.Action) {
		return fmt.Errorf("%w: action is nil", ErrMalformedTransition)
	}
	if isNil(t.NextState) {
		return fmt.Errorf("%w: next state is nil", ErrMalformedTransition)
	}
	if !mathx.IsFinite(t.Reward) {
		return fmt.Errorf("%w: reward %v is not a finite number", ErrMalformedTransition, t.Reward)
	}
	return nil
}

// Batch is an ordered sequence of transitions. The learner processes it in
// index order, so order is part of its meaning.
type Batch[S, A comparable] []Transition[S, A]

// Validate checks every transition and reports the first malformed row.
func (b Batch[S, A]) Validate() error {
	for i, t := range b {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

func (b Batch[S, A]) TotalReward() float64 {
	var sum float64
	for _, t := range b {
		sum += t.Reward
	}
	return sum
}

// Concat returns a new batch holding b followed by others, in order.
func (b Batch[S, A]) Concat(others ...Batch[S, A]) Batch[S, A] {
	n := len(b)
	for _, o := range others {
		n += len(o)
	}
	y := make(Batch[S, A], 0, n)
	y = append(y, b...)
	for _, o := range others {
		y = append(y, o...)
	}
	return y
}

// isNil reports whether v holds a nil interface, pointer, map, slice, chan or func.
// Plain comparable values such as strings and ints are never nil.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}
