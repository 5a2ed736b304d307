// Package sampler generates transition tuples by rolling out a user supplied
// environment function.
package sampler

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/sw965/omw/mathx/randx"
	"github.com/sw965/omw/parallel"
	"github.com/sw965/omw/slicesx"
	"github.com/sw965/qreplay/actor"
	qrandx "github.com/sw965/qreplay/mathx/randx"
	"github.com/sw965/qreplay/rl"
)

var (
	ErrInvalidConfig       = errors.New("invalid sampler config")
	ErrEnvironmentContract = errors.New("environment contract violation")
)

// EnvFunc is the environment: it returns the state reached and the reward
// received by taking action in state. It must be total over the declared
// state and action universes. With Parallelism above 1 it is called from
// several goroutines at once.
type EnvFunc[S, A comparable] func(state S, action A) (S, float64, error)

type Config[S, A comparable] struct {
	// N is the number of transitions to generate.
	N       int
	States  []S
	Actions []A
	Env     EnvFunc[S, A]
	// Selector picks the action of each step. The zero value selects randomly.
	Selector actor.Selector[S, A]
	Seed     uint64
	// Parallelism is the number of workers. Values below 1 mean one worker,
	// values above runtime.NumCPU are capped. The output does not depend on it.
	Parallelism int
	// Logger receives a debug line per call. The zero value discards.
	Logger zerolog.Logger
}

func (c Config[S, A]) Validate() error {
	if c.N < 1 {
		return fmt.Errorf("%w: N must be positive, got %d", ErrInvalidConfig, c.N)
	}
	if len(c.States) == 0 {
		return fmt.Errorf("%w: state universe is empty", ErrInvalidConfig)
	}
	if len(c.Actions) == 0 {
		return fmt.Errorf("%w: action universe is empty", ErrInvalidConfig)
	}
	if !slicesx.IsUnique(c.States) {
		return fmt.Errorf("%w: state universe contains duplicates", ErrInvalidConfig)
	}
	if !slicesx.IsUnique(c.Actions) {
		return fmt.Errorf("%w: action universe contains duplicates", ErrInvalidConfig)
	}
	if c.Env == nil {
		return fmt.Errorf("%w: Env must not be nil", ErrInvalidConfig)
	}
	if c.Selector.Name != "" {
		if err := c.Selector.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

func (c Config[S, A]) workers() int {
	return workers(c.Parallelism, c.N)
}

func workers(parallelism, n int) int {
	p := max(parallelism, 1)
	p = min(p, runtime.NumCPU(), n)
	return max(p, 1)
}

// Sample generates c.N transitions. Step i draws its start state uniformly
// from c.States and its action from c.Selector, using a generator seeded by
// (c.Seed, i) alone; batch[i] always holds step i. The result is therefore
// the same for any Parallelism.
//
// Start states are drawn independently per step; a trajectory is only
// followed if the environment itself encodes one.
func Sample[S, A comparable](c Config[S, A]) (rl.Batch[S, A], error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	selector := c.Selector
	if selector.Name == "" {
		selector = actor.NewRandom[S, A]()
	}
	p := c.workers()
	batch := make(rl.Batch[S, A], c.N)
	err := parallel.For(c.N, p, func(workerId, idx int) error {
		rng := qrandx.NewStepPCG(c.Seed, idx)
		state, err := randx.Choice(c.States, rng)
		if err != nil {
			return err
		}
		action, err := selector.Select(state, c.Actions, rng)
		if err != nil {
			return fmt.Errorf("step %d: %w", idx, err)
		}

		next, reward, err := c.Env(state, action)
		if err != nil {
			return fmt.Errorf("%w: step %d (state %v, action %v): %w", ErrEnvironmentContract, idx, state, action, err)
		}
		t := rl.Transition[S, A]{State: state, Action: action, Reward: reward, NextState: next}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: step %d (state %v, action %v): %w", ErrEnvironmentContract, idx, state, action, err)
		}
		batch[idx] = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.Logger.Debug().
		Int("transitions", c.N).
		Int("workers", p).
		Str("strategy", string(selector.Name)).
		Uint64("seed", c.Seed).
		Float64("reward", batch.TotalReward()).
		Msg("sampled experience")
	return batch, nil
}
