package ql_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/qreplay/ql"
	"github.com/sw965/qreplay/rl"
)

type batch = rl.Batch[string, string]

func control(alpha, gamma float64, iter int) ql.Control {
	c := ql.DefaultControl()
	c.Alpha = alpha
	c.Gamma = gamma
	c.Iter = iter
	return c
}

func mixedBatch() batch {
	return batch{
		{State: "s1", Action: "down", Reward: -1, NextState: "s2"},
		{State: "s2", Action: "right", Reward: -1, NextState: "s3"},
		{State: "s3", Action: "up", Reward: 10, NextState: "s4"},
		{State: "s1", Action: "left", Reward: -1, NextState: "s1"},
		{State: "s2", Action: "up", Reward: -1, NextState: "s1"},
		{State: "s3", Action: "left", Reward: -1, NextState: "s2"},
	}
}

func TestUpdateQ(t *testing.T) {
	tests := []struct {
		name                              string
		q, nextMaxQ, reward, lr, discount float64
		want                              float64
	}{
		{name: "no_learning", q: 0.37, nextMaxQ: 5, reward: 3, lr: 0, discount: 0.9, want: 0.37},
		{name: "full_overwrite", q: 0.1, nextMaxQ: 7, reward: 0.3, lr: 1, discount: 0, want: 0.3},
		{name: "half_step", q: 2, nextMaxQ: 4, reward: 1, lr: 0.5, discount: 0.5, want: 2.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ql.UpdateQ(tc.q, tc.nextMaxQ, tc.reward, tc.lr, tc.discount)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIndex(t *testing.T) {
	table := ql.NewTable[string, string]()
	stats, err := ql.Index(table, mixedBatch())
	require.NoError(t, err)

	assert.Equal(t, ql.IndexStats{NewStates: 4, NewActions: 4, NewEntries: 6}, stats)
	assert.Equal(t, []string{"s1", "s2", "s3", "s4"}, table.States())
	assert.Equal(t, []string{"down", "right", "up", "left"}, table.Actions())
	assert.Equal(t, []string{"down", "left"}, table.ActionsOf("s1"))
	assert.Empty(t, table.ActionsOf("s4"))
	assert.True(t, table.HasState("s4"))

	v, ok := table.Lookup("s1", "down")
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
	_, ok = table.Lookup("s1", "up")
	assert.False(t, ok)

	again, err := ql.Index(table, mixedBatch())
	require.NoError(t, err)
	assert.Equal(t, ql.IndexStats{}, again)
	assert.Equal(t, 6, table.Len())
}

func TestIndexRejectsMalformedBatch(t *testing.T) {
	table := ql.NewTable[string, any]()
	b := rl.Batch[string, any]{
		{State: "s1", Action: "up", Reward: 1, NextState: "s2"},
		{State: "s2", Action: nil, Reward: 1, NextState: "s1"},
	}
	_, err := ql.Index(table, b)
	require.ErrorIs(t, err, rl.ErrMalformedTransition)
	assert.Equal(t, 0, table.Len())
	assert.Empty(t, table.States())
}

func TestTableMaxValueZeroDefault(t *testing.T) {
	m, err := ql.Learn(batch{
		{State: "s1", Action: "a", Reward: -4, NextState: "s2"},
		{State: "s1", Action: "b", Reward: -2, NextState: "s2"},
	}, control(1, 0, 1), nil)
	require.NoError(t, err)

	// known state, no recorded actions
	assert.Equal(t, 0.0, m.Table.MaxValue("s2"))
	// unknown state
	assert.Equal(t, 0.0, m.Table.MaxValue("nowhere"))
	// recorded actions only, no implicit zero
	assert.Equal(t, -2.0, m.Table.MaxValue("s1"))
}

func TestNoLearningInvariant(t *testing.T) {
	prior, err := ql.Learn(mixedBatch(), control(0.5, 0.9, 5), nil)
	require.NoError(t, err)

	m, err := ql.Learn(mixedBatch(), control(0, 0.9, 10), prior)
	require.NoError(t, err)

	for k, v := range prior.Table.All() {
		assert.Equal(t, v, m.Value(k.State, k.Action), "%v", k)
	}

	fresh, err := ql.Learn(mixedBatch(), control(0, 0.5, 3), nil)
	require.NoError(t, err)
	for _, v := range fresh.Table.All() {
		assert.Equal(t, 0.0, v)
	}
}

func TestFullOverwriteInvariant(t *testing.T) {
	prior, err := ql.Learn(mixedBatch(), control(0.3, 0.9, 7), nil)
	require.NoError(t, err)

	b := batch{
		{State: "s1", Action: "down", Reward: 0.3, NextState: "s2"},
		{State: "s3", Action: "up", Reward: -7.25, NextState: "s4"},
		{State: "s9", Action: "up", Reward: 1e-9, NextState: "s1"},
	}
	m, err := ql.Learn(b, control(1, 0, 1), prior)
	require.NoError(t, err)

	for _, tr := range b {
		assert.Equal(t, tr.Reward, m.Value(tr.State, tr.Action))
	}
}

func TestSequentialVisibilityWithinPass(t *testing.T) {
	// s2 is updated before s1 reads it in the same pass.
	b := batch{
		{State: "s2", Action: "go", Reward: 10, NextState: "end"},
		{State: "s1", Action: "go", Reward: 0, NextState: "s2"},
	}
	m, err := ql.Learn(b, control(1, 0.5, 1), nil)
	require.NoError(t, err)
	assert.Equal(t, 10.0, m.Value("s2", "go"))
	assert.Equal(t, 5.0, m.Value("s1", "go"))
}

func TestTieBreakDeterminism(t *testing.T) {
	b := batch{
		{State: "s1", Action: "up", Reward: 5, NextState: "s1"},
		{State: "s1", Action: "down", Reward: 5, NextState: "s1"},
	}
	m, err := ql.Learn(b, control(1, 0, 1), nil)
	require.NoError(t, err)
	require.Equal(t, m.Value("s1", "up"), m.Value("s1", "down"))

	for i := 0; i < 100; i++ {
		p := ql.ComputePolicy(m.Table)
		assert.Equal(t, "up", p["s1"])
	}

	reversed := batch{b[1], b[0]}
	m2, err := ql.Learn(reversed, control(1, 0, 1), nil)
	require.NoError(t, err)
	a, ok := m2.Action("s1")
	assert.True(t, ok)
	assert.Equal(t, "down", a)
}

func TestPolicyIsRecordedAction(t *testing.T) {
	m, err := ql.Learn(mixedBatch(), control(0.5, 0.9, 20), nil)
	require.NoError(t, err)

	for s, a := range m.Policy {
		_, ok := m.Table.Lookup(s, a)
		assert.True(t, ok, "%s -> %s", s, a)
	}
	_, ok := m.Action("s4")
	assert.False(t, ok)

	assert.Equal(t, "down", m.Policy["s1"])
	assert.Equal(t, "right", m.Policy["s2"])
	assert.Equal(t, "up", m.Policy["s3"])
}

func TestPredict(t *testing.T) {
	m, err := ql.Learn(mixedBatch(), control(0.5, 0.9, 20), nil)
	require.NoError(t, err)

	got, err := m.Predict([]string{"s3", "s1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"up", "down"}, got)

	_, err = m.Predict([]string{"s1", "s4"})
	require.ErrorIs(t, err, ql.ErrNoPolicy)
	_, err = m.Predict([]string{"never"})
	require.ErrorIs(t, err, ql.ErrNoPolicy)
}

func TestRewardTraceLength(t *testing.T) {
	for _, iter := range []int{1, 2, 7, 50} {
		m, err := ql.Learn(mixedBatch(), control(0.1, 0.5, iter), nil)
		require.NoError(t, err)
		require.Len(t, m.RewardTrace, iter)
		for _, r := range m.RewardTrace {
			assert.Equal(t, mixedBatch().TotalReward(), r)
		}
	}
}

func TestMergeExtendsTable(t *testing.T) {
	a := mixedBatch()[:3]
	b := batch{
		{State: "s5", Action: "jump", Reward: 2, NextState: "s1"},
		{State: "s1", Action: "down", Reward: -1, NextState: "s2"},
	}

	prior, err := ql.Learn(a, control(0.5, 0.5, 2), nil)
	require.NoError(t, err)
	before := prior.Table.Clone()

	merged, err := ql.Learn(b, control(0.5, 0.5, 3), prior)
	require.NoError(t, err)

	for k := range before.All() {
		_, ok := merged.Table.Lookup(k.State, k.Action)
		assert.True(t, ok, "entry %v dropped by merge", k)
	}
	_, ok := merged.Table.Lookup("s5", "jump")
	assert.True(t, ok)
	assert.Len(t, merged.RewardTrace, 5)
	assert.Equal(t, prior.RewardTrace, merged.RewardTrace[:2])
	assert.NotEqual(t, prior.ID, merged.ID)

	// the prior is not mutated
	assert.True(t, before.Equal(prior.Table))
	assert.Len(t, prior.RewardTrace, 2)
	_, ok = prior.Table.Lookup("s5", "jump")
	assert.False(t, ok)
}

func TestMergeMatchesConcatenationWithSinglePass(t *testing.T) {
	a := batch{
		{State: "s1", Action: "down", Reward: -1, NextState: "s2"},
		{State: "s2", Action: "right", Reward: -1, NextState: "s3"},
		{State: "s3", Action: "up", Reward: 10, NextState: "s4"},
	}
	// b only introduces entries for states a never bootstraps from
	b := batch{
		{State: "s3", Action: "up", Reward: 10, NextState: "s4"},
		{State: "s1", Action: "down", Reward: -1, NextState: "s2"},
		{State: "s7", Action: "left", Reward: 3, NextState: "s1"},
		{State: "s2", Action: "right", Reward: -1, NextState: "s3"},
	}
	c := control(0.3, 0.8, 1)

	first, err := ql.Learn(a, c, nil)
	require.NoError(t, err)
	merged, err := ql.Learn(b, c, first)
	require.NoError(t, err)

	single, err := ql.Learn(a.Concat(b), c, nil)
	require.NoError(t, err)

	assert.True(t, merged.Table.Equal(single.Table))
	assert.Equal(t, merged.Policy, single.Policy)
}

func TestMergeDivergesFromConcatenationWithTwoPasses(t *testing.T) {
	a := batch{{State: "s1", Action: "go", Reward: 0, NextState: "s2"}}
	b := batch{{State: "s2", Action: "go", Reward: 10, NextState: "s3"}}
	c := control(0.5, 0.9, 2)

	first, err := ql.Learn(a, c, nil)
	require.NoError(t, err)
	merged, err := ql.Learn(b, c, first)
	require.NoError(t, err)

	single, err := ql.Learn(a.Concat(b), c, nil)
	require.NoError(t, err)

	assert.False(t, merged.Table.Equal(single.Table))
	assert.Equal(t, 0.0, merged.Value("s1", "go"))
	assert.InDelta(t, 0.5*0.9*5.0, single.Value("s1", "go"), 1e-12)
	assert.Equal(t, merged.Value("s2", "go"), single.Value("s2", "go"))
}

func TestTrainRejectsInvalidControlBeforeWork(t *testing.T) {
	calls := 0
	tr := ql.NewTrainer(control(1.5, 0.5, 3))
	tr.PassHook = func(int, float64) { calls++ }

	m, err := ql.Train(tr, mixedBatch(), nil)
	require.ErrorIs(t, err, ql.ErrInvalidControl)
	assert.Nil(t, m)
	assert.Equal(t, 0, calls)
}

func TestTrainPassHookAndLogging(t *testing.T) {
	var buf bytes.Buffer
	tr := ql.NewTrainer(control(0.1, 0.5, 4))
	tr.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)

	var passes []int
	tr.PassHook = func(pass int, reward float64) {
		passes = append(passes, pass)
		assert.Equal(t, mixedBatch().TotalReward(), reward)
	}

	m, err := ql.Train(tr, mixedBatch(), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, passes)
	assert.Contains(t, buf.String(), `"message":"training finished"`)
	assert.Contains(t, buf.String(), m.ID)
}

func TestTrainMalformedBatchLeavesPriorUntouched(t *testing.T) {
	prior, err := ql.Learn(rl.Batch[string, any]{
		{State: "s1", Action: "up", Reward: 1, NextState: "s2"},
	}, control(0.5, 0.5, 1), nil)
	require.NoError(t, err)
	before := prior.Table.Clone()

	_, err = ql.Learn(rl.Batch[string, any]{
		{State: "s3", Action: "up", Reward: 1, NextState: "s2"},
		{State: "s2", Action: nil, Reward: 1, NextState: "s1"},
	}, control(0.5, 0.5, 1), prior)
	require.ErrorIs(t, err, rl.ErrMalformedTransition)
	assert.True(t, before.Equal(prior.Table))
}

func TestControl(t *testing.T) {
	tests := []struct {
		name    string
		opts    map[string]any
		want    ql.Control
		wantErr bool
	}{
		{
			name: "defaults",
			opts: nil,
			want: ql.DefaultControl(),
		},
		{
			name: "all_options",
			opts: map[string]any{"alpha": 0.2, "gamma": 0.8, "epsilon": 0.05, "iter": 10},
			want: ql.Control{Alpha: 0.2, Gamma: 0.8, Epsilon: 0.05, Iter: 10},
		},
		{
			name: "integer_bounds",
			opts: map[string]any{"alpha": 1, "gamma": 0, "iter": 2.0},
			want: ql.Control{Alpha: 1, Gamma: 0, Epsilon: 0.1, Iter: 2},
		},
		{name: "unknown_option", opts: map[string]any{"lambda": 0.9}, wantErr: true},
		{name: "alpha_too_large", opts: map[string]any{"alpha": 1.01}, wantErr: true},
		{name: "gamma_negative", opts: map[string]any{"gamma": -0.1}, wantErr: true},
		{name: "epsilon_too_large", opts: map[string]any{"epsilon": 2}, wantErr: true},
		{name: "iter_zero", opts: map[string]any{"iter": 0}, wantErr: true},
		{name: "iter_fraction", opts: map[string]any{"iter": 1.5}, wantErr: true},
		{name: "alpha_string", opts: map[string]any{"alpha": "0.1"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ql.ControlFromOptions(tc.opts)
			if tc.wantErr {
				require.ErrorIs(t, err, ql.ErrInvalidControl)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTableCloneIsDeep(t *testing.T) {
	m, err := ql.Learn(mixedBatch(), control(0.5, 0.5, 2), nil)
	require.NoError(t, err)

	c := m.Clone()
	_, err = ql.Index(c.Table, batch{{State: "s8", Action: "x", Reward: 0, NextState: "s8"}})
	require.NoError(t, err)

	assert.False(t, m.Table.HasState("s8"))
	assert.False(t, m.Table.HasAction("x"))
	assert.True(t, c.Table.HasAction("x"))
}

func TestEmptyBatch(t *testing.T) {
	prior, err := ql.Learn(mixedBatch(), control(0.5, 0.5, 2), nil)
	require.NoError(t, err)

	m, err := ql.Learn(batch{}, control(0.5, 0.5, 3), prior)
	require.NoError(t, err)
	assert.True(t, prior.Table.Equal(m.Table))
	assert.Equal(t, []float64{0, 0, 0}, m.RewardTrace[2:])
	assert.Equal(t, prior.Policy, m.Policy)
}

func TestMergeDivergesWhenNewActionsJoinBootstrapState(t *testing.T) {
	a := batch{
		{State: "s2", Action: "x", Reward: -5, NextState: "s2"},
		{State: "s1", Action: "go", Reward: -1, NextState: "s2"},
	}
	// b records a second action for s2, which a bootstraps from
	b := batch{{State: "s2", Action: "y", Reward: 0, NextState: "s3"}}
	c := control(1, 0.5, 1)

	first, err := ql.Learn(a, c, nil)
	require.NoError(t, err)
	merged, err := ql.Learn(b, c, first)
	require.NoError(t, err)

	single, err := ql.Learn(a.Concat(b), c, nil)
	require.NoError(t, err)

	assert.False(t, merged.Table.Equal(single.Table))
	assert.Equal(t, -3.5, merged.Value("s1", "go"))
	assert.Equal(t, -1.0, single.Value("s1", "go"))
	assert.Equal(t, merged.Value("s2", "x"), single.Value("s2", "x"))
	assert.Equal(t, merged.Value("s2", "y"), single.Value("s2", "y"))
}

func TestTrainWithZeroPrior(t *testing.T) {
	prior := &ql.Model[string, string]{RewardTrace: []float64{4}}

	m, err := ql.Learn(mixedBatch(), control(0.5, 0.5, 2), prior)
	require.NoError(t, err)
	fresh, err := ql.Learn(mixedBatch(), control(0.5, 0.5, 2), nil)
	require.NoError(t, err)

	assert.True(t, fresh.Table.Equal(m.Table))
	assert.Equal(t, append([]float64{4}, fresh.RewardTrace...), m.RewardTrace)
	assert.Nil(t, prior.Table)
}
