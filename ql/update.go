package ql

import (
	"github.com/sw965/qreplay/rl"
)

// UpdateQ returns the Q-learning update of q towards reward + discountRate*nextMaxQ.
// The weighted form (1-lr)*q + lr*target keeps q bit-identical when lr is 0
// and yields the target exactly when lr is 1.
func UpdateQ(q, nextMaxQ, reward, lr, discountRate float64) float64 {
	qRatio := 1.0 - lr
	newQ := (reward + discountRate*nextMaxQ)
	return (qRatio * q) + (lr * newQ)
}

// replayPass applies one experience-replay sweep over b in order. Each update
// is written back before the next transition is read, so later transitions
// bootstrap from values improved earlier in the same pass. It returns the
// total reward of the sweep.
//
// Every (s, a) of b must already exist in t.
func replayPass[S, A comparable](t *Table[S, A], b rl.Batch[S, A], lr, discountRate float64) float64 {
	var total float64
	for _, tr := range b {
		q := t.Value(tr.State, tr.Action)
		nextMaxQ := t.MaxValue(tr.NextState)
		t.set(tr.State, tr.Action, UpdateQ(q, nextMaxQ, tr.Reward, lr, discountRate))
		total += tr.Reward
	}
	return total
}
