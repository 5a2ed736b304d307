package sampler

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sw965/omw/parallel"
	"github.com/sw965/omw/slicesx"
	"github.com/sw965/qreplay/actor"
	qrandx "github.com/sw965/qreplay/mathx/randx"
	"github.com/sw965/qreplay/rl"
)

// EpisodeConfig configures Rollouts. Unlike Config, every episode follows the
// states the environment returns until IsEnd holds or MaxSteps is reached.
type EpisodeConfig[S, A comparable] struct {
	Episodes int
	// Inits are the start states; episode i starts at Inits[i%len(Inits)].
	Inits    []S
	Actions  []A
	Env      EnvFunc[S, A]
	IsEnd    func(S) bool
	MaxSteps int
	Selector actor.Selector[S, A]
	Seed     uint64

	Parallelism int
	Logger      zerolog.Logger
}

func (c EpisodeConfig[S, A]) Validate() error {
	if c.Episodes < 1 {
		return fmt.Errorf("%w: Episodes must be positive, got %d", ErrInvalidConfig, c.Episodes)
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("%w: MaxSteps must be positive, got %d", ErrInvalidConfig, c.MaxSteps)
	}
	if len(c.Inits) == 0 {
		return fmt.Errorf("%w: no start states", ErrInvalidConfig)
	}
	if len(c.Actions) == 0 {
		return fmt.Errorf("%w: action universe is empty", ErrInvalidConfig)
	}
	if !slicesx.IsUnique(c.Actions) {
		return fmt.Errorf("%w: action universe contains duplicates", ErrInvalidConfig)
	}
	if c.Env == nil || c.IsEnd == nil {
		return fmt.Errorf("%w: Env and IsEnd must not be nil", ErrInvalidConfig)
	}
	if c.Selector.Name != "" {
		if err := c.Selector.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Episode is one recorded rollout.
type Episode[S, A comparable] struct {
	Steps      rl.Batch[S, A]
	FinalState S
	// Ended reports whether IsEnd held for FinalState, as opposed to the
	// rollout being cut at MaxSteps.
	Ended bool
}

func (e Episode[S, A]) Return() float64 {
	return e.Steps.TotalReward()
}

// Episodes is a set of rollouts.
type Episodes[S, A comparable] []Episode[S, A]

// Batch concatenates the steps of every episode in order.
func (es Episodes[S, A]) Batch() rl.Batch[S, A] {
	var b rl.Batch[S, A]
	for _, e := range es {
		b = append(b, e.Steps...)
	}
	return b
}

func (es Episodes[S, A]) MeanReturn() float64 {
	if len(es) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range es {
		sum += e.Return()
	}
	return sum / float64(len(es))
}

func (es Episodes[S, A]) EndedRate() float64 {
	if len(es) == 0 {
		return 0
	}
	n := 0
	for _, e := range es {
		if e.Ended {
			n++
		}
	}
	return float64(n) / float64(len(es))
}

// Rollouts plays c.Episodes episodes. Episode i uses a generator seeded by
// (c.Seed, i) alone, so the result does not depend on Parallelism.
func Rollouts[S, A comparable](c EpisodeConfig[S, A]) (Episodes[S, A], error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	selector := c.Selector
	if selector.Name == "" {
		selector = actor.NewRandom[S, A]()
	}

	p := workers(c.Parallelism, c.Episodes)
	episodes := make(Episodes[S, A], c.Episodes)
	err := parallel.For(c.Episodes, p, func(workerId, idx int) error {
		rng := qrandx.NewStepPCG(c.Seed, idx)
		state := c.Inits[idx%len(c.Inits)]
		steps := make(rl.Batch[S, A], 0, c.MaxSteps)

		for len(steps) < c.MaxSteps && !c.IsEnd(state) {
			action, err := selector.Select(state, c.Actions, rng)
			if err != nil {
				return fmt.Errorf("episode %d: %w", idx, err)
			}
			next, reward, err := c.Env(state, action)
			if err != nil {
				return fmt.Errorf("%w: episode %d step %d (state %v, action %v): %w", ErrEnvironmentContract, idx, len(steps), state, action, err)
			}
			t := rl.Transition[S, A]{State: state, Action: action, Reward: reward, NextState: next}
			if err := t.Validate(); err != nil {
				return fmt.Errorf("%w: episode %d step %d (state %v, action %v): %w", ErrEnvironmentContract, idx, len(steps), state, action, err)
			}
			steps = append(steps, t)
			state = next
		}

		episodes[idx] = Episode[S, A]{
			Steps:      steps,
			FinalState: state,
			Ended:      c.IsEnd(state),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.Logger.Debug().
		Int("episodes", c.Episodes).
		Int("workers", p).
		Str("strategy", string(selector.Name)).
		Float64("mean_return", episodes.MeanReturn()).
		Float64("ended_rate", episodes.EndedRate()).
		Msg("rolled out episodes")
	return episodes, nil
}
