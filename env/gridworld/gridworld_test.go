package gridworld_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/qreplay/actor"
	"github.com/sw965/qreplay/env/gridworld"
	"github.com/sw965/qreplay/ql"
	"github.com/sw965/qreplay/sampler"
)

func TestEnv(t *testing.T) {
	g := gridworld.New()

	tests := []struct {
		name       string
		state      string
		action     string
		wantNext   string
		wantReward float64
	}{
		{name: "s1_down", state: gridworld.S1, action: gridworld.Down, wantNext: gridworld.S2, wantReward: -1},
		{name: "s1_right_wall", state: gridworld.S1, action: gridworld.Right, wantNext: gridworld.S1, wantReward: -1},
		{name: "s2_right", state: gridworld.S2, action: gridworld.Right, wantNext: gridworld.S3, wantReward: -1},
		{name: "s2_up", state: gridworld.S2, action: gridworld.Up, wantNext: gridworld.S1, wantReward: -1},
		{name: "s3_up_goal", state: gridworld.S3, action: gridworld.Up, wantNext: gridworld.S4, wantReward: 10},
		{name: "s3_left", state: gridworld.S3, action: gridworld.Left, wantNext: gridworld.S2, wantReward: -1},
		{name: "s4_stays", state: gridworld.S4, action: gridworld.Down, wantNext: gridworld.S4, wantReward: -1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, reward, err := g.Env(tc.state, tc.action)
			require.NoError(t, err)
			assert.Equal(t, tc.wantNext, next)
			assert.Equal(t, tc.wantReward, reward)
		})
	}

	_, _, err := g.Env("s9", gridworld.Up)
	require.ErrorIs(t, err, gridworld.ErrUnknownState)
	_, _, err = g.Env(gridworld.S1, "jump")
	require.ErrorIs(t, err, gridworld.ErrUnknownAction)
}

func TestConvergence(t *testing.T) {
	g := gridworld.New()
	data, err := g.Sample(1000, 42)
	require.NoError(t, err)

	c := ql.DefaultControl()
	c.Alpha = 0.1
	c.Gamma = 0.5
	c.Iter = 50
	m, err := ql.Learn(data, c, nil)
	require.NoError(t, err)
	require.Len(t, m.RewardTrace, 50)

	assert.Equal(t, gridworld.Down, m.Policy[gridworld.S1])
	assert.Equal(t, gridworld.Right, m.Policy[gridworld.S2])
	assert.Equal(t, gridworld.Up, m.Policy[gridworld.S3])

	for _, s := range g.States() {
		steps, ok := g.StepsToGoal(m.Policy, s, 3)
		assert.True(t, ok, "goal not reached from %s", s)
		assert.LessOrEqual(t, steps, 3)
	}
	assert.InDelta(t, 9.0, m.Value(gridworld.S3, gridworld.Up), 0.05)
}

func TestPolicyImprovementLoop(t *testing.T) {
	g := gridworld.New()
	data, err := g.Sample(1000, 1)
	require.NoError(t, err)

	c := ql.DefaultControl()
	c.Alpha = 0.1
	c.Gamma = 0.5
	c.Epsilon = 0.1
	c.Iter = 10
	m, err := ql.Learn(data, c, nil)
	require.NoError(t, err)

	sel, err := actor.New(actor.EpsilonGreedyName, m, c.Epsilon)
	require.NoError(t, err)
	more, err := sampler.Sample(sampler.Config[string, string]{
		N:        1000,
		States:   g.States(),
		Actions:  g.Actions(),
		Env:      g.Env,
		Selector: sel,
		Seed:     2,
	})
	require.NoError(t, err)

	improved, err := ql.Learn(more, c, m)
	require.NoError(t, err)
	assert.Len(t, improved.RewardTrace, 20)
	// the greedy rollout visits the goal far more often than random play
	assert.Greater(t, more.TotalReward(), data.TotalReward())

	for _, s := range []string{gridworld.S1, gridworld.S2, gridworld.S3} {
		_, ok := g.StepsToGoal(improved.Policy, s, 3)
		assert.True(t, ok, "goal not reached from %s", s)
	}
}

func TestStepsToGoal(t *testing.T) {
	g := gridworld.New()

	steps, ok := g.StepsToGoal(ql.Policy[string, string]{
		gridworld.S1: gridworld.Down,
		gridworld.S2: gridworld.Right,
		gridworld.S3: gridworld.Up,
	}, gridworld.S1, 10)
	assert.True(t, ok)
	assert.Equal(t, 3, steps)

	_, ok = g.StepsToGoal(ql.Policy[string, string]{gridworld.S1: gridworld.Left}, gridworld.S1, 10)
	assert.False(t, ok)

	_, ok = g.StepsToGoal(ql.Policy[string, string]{}, gridworld.S2, 10)
	assert.False(t, ok)
}

func TestRender(t *testing.T) {
	g := gridworld.New()
	var buf bytes.Buffer
	err := g.Render(&buf, ql.Policy[string, string]{
		gridworld.S1: gridworld.Down,
		gridworld.S2: gridworld.Right,
	})
	require.NoError(t, err)

	out := buf.String()
	for _, s := range g.States() {
		assert.Contains(t, out, s)
	}
	assert.Contains(t, out, "v")
	assert.Contains(t, out, ">")
}
