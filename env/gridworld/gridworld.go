// Package gridworld provides the 2x2 example environment used throughout the
// documentation and tests.
//
// The grid is laid out as
//
//	+----+----+
//	| s1 | s4 |
//	+----+----+
//	| s2 | s3 |
//	+----+----+
//
// Walls allow only s1 -down-> s2 -right-> s3 -up-> s4 and the reverse moves
// s2 -up-> s1 and s3 -left-> s2. Any other move leaves the agent in place.
// Entering the goal s4 pays GoalReward; every other step pays StepReward.
package gridworld

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/logrusorgru/aurora"
	"github.com/sw965/qreplay/actor"
	"github.com/sw965/qreplay/ql"
	"github.com/sw965/qreplay/rl"
	"github.com/sw965/qreplay/sampler"
)

const (
	S1 = "s1"
	S2 = "s2"
	S3 = "s3"
	S4 = "s4"
)

const (
	Up    = "up"
	Down  = "down"
	Left  = "left"
	Right = "right"
)

const (
	GoalReward = 10.0
	StepReward = -1.0
)

var (
	ErrUnknownState  = errors.New("gridworld: unknown state")
	ErrUnknownAction = errors.New("gridworld: unknown action")
)

// Gridworld is a deterministic grid environment described by its open moves.
type Gridworld struct {
	// Layout lists the cells row by row, for rendering.
	Layout [][]string
	Goal   string
	// Moves maps state -> action -> next state for every move not blocked by a wall.
	Moves   map[string]map[string]string
	states  []string
	actions []string
}

// New returns the 2x2 gridworld.
func New() *Gridworld {
	return &Gridworld{
		Layout: [][]string{
			{S1, S4},
			{S2, S3},
		},
		Goal: S4,
		Moves: map[string]map[string]string{
			S1: {Down: S2},
			S2: {Up: S1, Right: S3},
			S3: {Left: S2, Up: S4},
		},
		states:  []string{S1, S2, S3, S4},
		actions: []string{Up, Down, Left, Right},
	}
}

func (g *Gridworld) States() []string {
	return slices.Clone(g.states)
}

func (g *Gridworld) Actions() []string {
	return slices.Clone(g.actions)
}

// Env is the environment function. It satisfies sampler.EnvFunc.
func (g *Gridworld) Env(state, action string) (string, float64, error) {
	if !slices.Contains(g.states, state) {
		return "", 0, fmt.Errorf("%w: %q", ErrUnknownState, state)
	}
	if !slices.Contains(g.actions, action) {
		return "", 0, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	next := state
	if to, ok := g.Moves[state][action]; ok {
		next = to
	}
	if next == g.Goal && state != g.Goal {
		return next, GoalReward, nil
	}
	return next, StepReward, nil
}

// Sample draws n transitions from uniformly random states and actions. It is
// the bundled example dataset.
func (g *Gridworld) Sample(n int, seed uint64) (rl.Batch[string, string], error) {
	return sampler.Sample(sampler.Config[string, string]{
		N:        n,
		States:   g.states,
		Actions:  g.actions,
		Env:      g.Env,
		Selector: actor.NewRandom[string, string](),
		Seed:     seed,
	})
}

func (g *Gridworld) IsGoal(state string) bool {
	return state == g.Goal
}

// Episodes rolls out n episodes of at most maxSteps steps with sel, starting
// from the non-goal states in turn.
func (g *Gridworld) Episodes(n, maxSteps int, sel actor.Selector[string, string], seed uint64) (sampler.Episodes[string, string], error) {
	var inits []string
	for _, s := range g.states {
		if !g.IsGoal(s) {
			inits = append(inits, s)
		}
	}
	return sampler.Rollouts(sampler.EpisodeConfig[string, string]{
		Episodes: n,
		Inits:    inits,
		Actions:  g.actions,
		Env:      g.Env,
		IsEnd:    g.IsGoal,
		MaxSteps: maxSteps,
		Selector: sel,
		Seed:     seed,
	})
}

// StepsToGoal follows policy from the given state until the goal is reached
// and returns the number of steps taken. ok is false when the policy has no
// action for a visited state or the goal is not reached within limit steps.
func (g *Gridworld) StepsToGoal(policy ql.Policy[string, string], from string, limit int) (int, bool) {
	state := from
	for steps := 0; steps <= limit; steps++ {
		if state == g.Goal {
			return steps, true
		}
		action, ok := policy[state]
		if !ok {
			return steps, false
		}
		next, _, err := g.Env(state, action)
		if err != nil {
			return steps, false
		}
		state = next
	}
	return limit, false
}

var arrows = map[string]string{
	Up:    "^",
	Down:  "v",
	Left:  "<",
	Right: ">",
}

// Render draws the grid with the policy action of every cell. The goal is
// green, cells without a policy are red.
func (g *Gridworld) Render(w io.Writer, policy ql.Policy[string, string]) error {
	sep := "+" + strings.Repeat("--------+", len(g.Layout[0])) + "\n"
	var sb strings.Builder
	sb.WriteString(sep)
	for _, row := range g.Layout {
		sb.WriteString("|")
		for _, s := range row {
			a, ok := policy[s]
			arrow, known := arrows[a]
			if !known {
				arrow = a
			}
			cell := fmt.Sprintf(" %-3s %-2s ", s, arrow)
			switch {
			case s == g.Goal:
				sb.WriteString(aurora.Green(cell).String())
			case !ok:
				sb.WriteString(aurora.Red(cell).String())
			default:
				sb.WriteString(aurora.Blue(cell).String())
			}
			sb.WriteString("|")
		}
		sb.WriteString("\n")
		sb.WriteString(sep)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
