package ql

import (
	"github.com/sw965/qreplay/rl"
)

// IndexStats counts what Index added to a table.
type IndexStats struct {
	NewStates  int
	NewActions int
	NewEntries int
}

// Index validates b and extends t with its states, actions and zero-valued
// (s, a) entries. Next states are registered as states without creating
// entries for them. On a malformed batch t is left untouched.
func Index[S, A comparable](t *Table[S, A], b rl.Batch[S, A]) (IndexStats, error) {
	if err := b.Validate(); err != nil {
		return IndexStats{}, err
	}

	var stats IndexStats
	for _, tr := range b {
		if t.AddState(tr.State) {
			stats.NewStates++
		}
		if t.AddAction(tr.Action) {
			stats.NewActions++
		}
		if t.Ensure(tr.State, tr.Action) {
			stats.NewEntries++
		}
		if t.AddState(tr.NextState) {
			stats.NewStates++
		}
	}
	return stats, nil
}
