package rl

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Row is one record of a loosely typed table, keyed by column name.
type Row map[string]any

// Frame is a loosely typed table: an ordered list of column names and rows.
// It is the shape tuples arrive in from files, databases or the sampler.
type Frame struct {
	Columns []string
	Rows    []Row
}

func (f Frame) HasColumn(name string) bool {
	return slices.Contains(f.Columns, name)
}

func (f Frame) Len() int {
	return len(f.Rows)
}

// Append concatenates other onto f. Columns unseen in f are appended in
// other's order.
func (f Frame) Append(other Frame) Frame {
	columns := slices.Clone(f.Columns)
	for _, c := range other.Columns {
		if !slices.Contains(columns, c) {
			columns = append(columns, c)
		}
	}
	rows := make([]Row, 0, len(f.Rows)+len(other.Rows))
	rows = append(rows, f.Rows...)
	rows = append(rows, other.Rows...)
	return Frame{Columns: columns, Rows: rows}
}

// Columns binds caller column names to the four logical transition fields.
type Columns struct {
	State     string `yaml:"state" mapstructure:"state"`
	Action    string `yaml:"action" mapstructure:"action"`
	Reward    string `yaml:"reward" mapstructure:"reward"`
	NextState string `yaml:"next_state" mapstructure:"next_state"`
}

func DefaultColumns() Columns {
	return Columns{
		State:     "State",
		Action:    "Action",
		Reward:    "Reward",
		NextState: "NextState",
	}
}

func (c Columns) Names() []string {
	return []string{c.State, c.Action, c.Reward, c.NextState}
}

func (c Columns) Validate() error {
	names := c.Names()
	fields := []string{"state", "action", "reward", "next_state"}
	for i, name := range names {
		if name == "" {
			return fmt.Errorf("%w: %s column name is empty", ErrInvalidColumns, fields[i])
		}
	}
	for i := range names {
		for j := i + 1; j < len(names); j++ {
			if names[i] == names[j] {
				return fmt.Errorf("%w: %s and %s are both bound to %q", ErrInvalidColumns, fields[i], fields[j], names[i])
			}
		}
	}
	return nil
}

// FromFrame converts f into a batch using the column binding c. The whole
// frame is rejected on the first missing column, nil cell, mistyped label or
// non-numeric reward; no partial batch is returned.
func FromFrame[S, A comparable](f Frame, c Columns) (Batch[S, A], error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	for _, name := range c.Names() {
		if !f.HasColumn(name) {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformedTransition, name)
		}
	}

	batch := make(Batch[S, A], len(f.Rows))
	for i, row := range f.Rows {
		s, err := cell[S](row, c.State)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		a, err := cell[A](row, c.Action)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		next, err := cell[S](row, c.NextState)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		r, err := rewardCell(row, c.Reward)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		t := Transition[S, A]{State: s, Action: a, Reward: r, NextState: next}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		batch[i] = t
	}
	return batch, nil
}

// ToFrame renders b in the four-column shape accepted by FromFrame.
func ToFrame[S, A comparable](b Batch[S, A], c Columns) Frame {
	rows := make([]Row, len(b))
	for i, t := range b {
		rows[i] = Row{
			c.State:     t.State,
			c.Action:    t.Action,
			c.Reward:    t.Reward,
			c.NextState: t.NextState,
		}
	}
	return Frame{Columns: c.Names(), Rows: rows}
}

func cell[T comparable](row Row, name string) (T, error) {
	var zero T
	v, ok := row[name]
	if !ok || v == nil {
		return zero, fmt.Errorf("%w: column %q is missing or null", ErrMalformedTransition, name)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: column %q holds %T, want %T", ErrMalformedTransition, name, v, zero)
	}
	return t, nil
}

func rewardCell(row Row, name string) (float64, error) {
	v, ok := row[name]
	if !ok || v == nil {
		return 0, fmt.Errorf("%w: column %q is missing or null", ErrMalformedTransition, name)
	}
	switch r := v.(type) {
	case float64:
		return r, nil
	case float32:
		return float64(r), nil
	case int:
		return float64(r), nil
	case int32:
		return float64(r), nil
	case int64:
		return float64(r), nil
	case json.Number:
		f, err := r.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: reward %q is not numeric", ErrMalformedTransition, r.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(r, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: reward %q is not numeric", ErrMalformedTransition, r)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: reward has non-numeric type %T", ErrMalformedTransition, v)
}
