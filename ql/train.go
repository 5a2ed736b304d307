package ql

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sw965/qreplay/rl"
)

// PassHook is called after every replay pass with the 1-based pass number
// and the total reward of that pass.
type PassHook func(pass int, reward float64)

// Trainer runs experience-replay Q-learning.
type Trainer struct {
	Control  Control
	Logger   zerolog.Logger
	PassHook PassHook
}

func NewTrainer(c Control) Trainer {
	return Trainer{
		Control: c,
		Logger:  zerolog.Nop(),
	}
}

// Learn trains with a default Trainer for c. See Train.
func Learn[S, A comparable](b rl.Batch[S, A], c Control, prior *Model[S, A]) (*Model[S, A], error) {
	return Train(NewTrainer(c), b, prior)
}

// Train runs tr.Control.Iter replay passes over b and returns the resulting
// Model.
//
// With a non-nil prior the working table starts as a copy of the prior table
// and the reward trace continues the prior trace. The prior is not modified.
//
// Because every pass bootstraps from values written earlier in the same pass,
// training on batch A and then merging batch B is not in general the same as
// training once on A followed by B. With Iter 1 the two agree as long as B
// adds no entries to a state that A bootstraps from; with more passes they
// generally differ.
func Train[S, A comparable](tr Trainer, b rl.Batch[S, A], prior *Model[S, A]) (*Model[S, A], error) {
	if err := tr.Control.Validate(); err != nil {
		return nil, err
	}

	// a prior without a table, such as a zero Model, starts from an empty one
	table := NewTable[S, A]()
	trace := make([]float64, 0, tr.Control.Iter)
	if prior != nil {
		if prior.Table != nil {
			table = prior.Table.Clone()
		}
		trace = make([]float64, 0, len(prior.RewardTrace)+tr.Control.Iter)
		trace = append(trace, prior.RewardTrace...)
	}

	stats, err := Index(table, b)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	logger := tr.Logger.With().Str("model_id", id).Logger()
	logger.Debug().
		Int("transitions", len(b)).
		Int("new_states", stats.NewStates).
		Int("new_actions", stats.NewActions).
		Int("new_entries", stats.NewEntries).
		Bool("warm_start", prior != nil).
		Msg("indexed batch")

	start := time.Now()
	for i := 1; i <= tr.Control.Iter; i++ {
		reward := replayPass(table, b, tr.Control.Alpha, tr.Control.Gamma)
		trace = append(trace, reward)
		logger.Debug().Int("pass", i).Float64("reward", reward).Msg("replay pass")
		if tr.PassHook != nil {
			tr.PassHook(i, reward)
		}
	}

	m := &Model[S, A]{
		ID:           id,
		Table:        table,
		RewardTrace:  trace,
		Control:      tr.Control,
		LearningRule: ExperienceReplay,
	}
	m.RecomputePolicy()

	logger.Info().
		Int("passes", tr.Control.Iter).
		Int("states", len(table.states)).
		Int("actions", len(table.actions)).
		Int("entries", table.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("training finished")
	return m, nil
}
