package ql

import (
	"iter"
	"maps"
	"slices"
)

// Key identifies one entry of a Table.
type Key[S, A comparable] struct {
	State  S
	Action A
}

type row[A comparable] struct {
	// actions holds the recorded actions in insertion order; ties in the
	// policy resolve to the earliest one.
	actions []A
	values  map[A]float64
}

// Table is a sparse state-action value table. Entries that were never
// recorded read as 0 and are not materialized.
//
// States and actions are kept in first-seen order so that iteration, policy
// extraction and printing are reproducible.
type Table[S, A comparable] struct {
	states  []S
	actions []A
	known   map[A]struct{}
	rows    map[S]*row[A]
	entries int
}

func NewTable[S, A comparable]() *Table[S, A] {
	return &Table[S, A]{
		known: map[A]struct{}{},
		rows:  map[S]*row[A]{},
	}
}

// AddState registers s as known. It reports whether s was new.
func (t *Table[S, A]) AddState(s S) bool {
	if _, ok := t.rows[s]; ok {
		return false
	}
	t.states = append(t.states, s)
	t.rows[s] = &row[A]{values: map[A]float64{}}
	return true
}

// AddAction registers a in the action universe. It reports whether a was new.
func (t *Table[S, A]) AddAction(a A) bool {
	if _, ok := t.known[a]; ok {
		return false
	}
	t.known[a] = struct{}{}
	t.actions = append(t.actions, a)
	return true
}

// Ensure zero-initializes the (s, a) entry if it does not exist yet and
// reports whether it was created. s and a are registered as needed.
func (t *Table[S, A]) Ensure(s S, a A) bool {
	t.AddState(s)
	t.AddAction(a)
	r := t.rows[s]
	if _, ok := r.values[a]; ok {
		return false
	}
	r.actions = append(r.actions, a)
	r.values[a] = 0.0
	t.entries++
	return true
}

func (t *Table[S, A]) HasState(s S) bool {
	_, ok := t.rows[s]
	return ok
}

func (t *Table[S, A]) HasAction(a A) bool {
	_, ok := t.known[a]
	return ok
}

// Lookup returns the recorded value of (s, a) and whether it exists.
func (t *Table[S, A]) Lookup(s S, a A) (float64, bool) {
	r, ok := t.rows[s]
	if !ok {
		return 0.0, false
	}
	v, ok := r.values[a]
	return v, ok
}

// Value returns Q(s, a), or 0 for an absent entry.
func (t *Table[S, A]) Value(s S, a A) float64 {
	v, _ := t.Lookup(s, a)
	return v
}

// MaxValue returns the largest value recorded for s. A state with no
// recorded actions, known or not, yields 0.
func (t *Table[S, A]) MaxValue(s S) float64 {
	r, ok := t.rows[s]
	if !ok || len(r.actions) == 0 {
		return 0.0
	}
	max := r.values[r.actions[0]]
	for _, a := range r.actions[1:] {
		if v := r.values[a]; v > max {
			max = v
		}
	}
	return max
}

// Argmax returns the first recorded action of s with the largest value.
// ok is false when s has no recorded actions.
func (t *Table[S, A]) Argmax(s S) (A, bool) {
	r, ok := t.rows[s]
	if !ok || len(r.actions) == 0 {
		var zero A
		return zero, false
	}
	best := r.actions[0]
	max := r.values[best]
	for _, a := range r.actions[1:] {
		// strict comparison keeps the earliest action on ties
		if v := r.values[a]; v > max {
			max = v
			best = a
		}
	}
	return best, true
}

// set overwrites an existing entry. Only the update engine calls it, after
// the indexer has created the entry.
func (t *Table[S, A]) set(s S, a A, v float64) {
	t.rows[s].values[a] = v
}

func (t *Table[S, A]) States() []S {
	return slices.Clone(t.states)
}

func (t *Table[S, A]) Actions() []A {
	return slices.Clone(t.actions)
}

// ActionsOf returns the actions recorded for s in insertion order.
func (t *Table[S, A]) ActionsOf(s S) []A {
	r, ok := t.rows[s]
	if !ok {
		return nil
	}
	return slices.Clone(r.actions)
}

// Len returns the number of materialized entries.
func (t *Table[S, A]) Len() int {
	return t.entries
}

// All yields every entry, states in first-seen order and actions in
// per-state insertion order.
func (t *Table[S, A]) All() iter.Seq2[Key[S, A], float64] {
	return func(yield func(Key[S, A], float64) bool) {
		for _, s := range t.states {
			r := t.rows[s]
			for _, a := range r.actions {
				if !yield(Key[S, A]{State: s, Action: a}, r.values[a]) {
					return
				}
			}
		}
	}
}

func (t *Table[S, A]) Clone() *Table[S, A] {
	c := &Table[S, A]{
		states:  slices.Clone(t.states),
		actions: slices.Clone(t.actions),
		known:   maps.Clone(t.known),
		rows:    make(map[S]*row[A], len(t.rows)),
		entries: t.entries,
	}
	if c.known == nil {
		c.known = map[A]struct{}{}
	}
	for s, r := range t.rows {
		c.rows[s] = &row[A]{
			actions: slices.Clone(r.actions),
			values:  maps.Clone(r.values),
		}
	}
	return c
}

// Equal reports whether both tables hold the same entries with identical
// values, regardless of insertion order.
func (t *Table[S, A]) Equal(other *Table[S, A]) bool {
	if t.entries != other.entries || len(t.rows) != len(other.rows) {
		return false
	}
	for s, r := range t.rows {
		o, ok := other.rows[s]
		if !ok || !maps.Equal(r.values, o.values) {
			return false
		}
	}
	return true
}
