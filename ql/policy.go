package ql

// Policy maps a state to the action judged best under a value table.
type Policy[S, A comparable] map[S]A

// ComputePolicy derives the greedy policy of t. States without recorded
// actions get no entry. Ties resolve to the action recorded first for the
// state, so the result is the same on every call.
func ComputePolicy[S, A comparable](t *Table[S, A]) Policy[S, A] {
	p := make(Policy[S, A], len(t.states))
	for _, s := range t.states {
		if a, ok := t.Argmax(s); ok {
			p[s] = a
		}
	}
	return p
}
