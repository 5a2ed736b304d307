package ql

import (
	"errors"
	"fmt"
	"slices"

	"github.com/sw965/qreplay/mathx"
)

var (
	ErrInvalidControl = errors.New("invalid control")
	ErrNoPolicy       = errors.New("no policy known for state")
)

// Control holds the learning parameters of a training call.
type Control struct {
	// Alpha is the learning rate in [0, 1]. 0 disables learning.
	Alpha float64 `yaml:"alpha" mapstructure:"alpha"`
	// Gamma is the discount factor in [0, 1]. 0 is fully myopic.
	Gamma float64 `yaml:"gamma" mapstructure:"gamma"`
	// Epsilon is the exploration rate in [0, 1]. Only the epsilon-greedy
	// action selector reads it; training ignores it.
	Epsilon float64 `yaml:"epsilon" mapstructure:"epsilon"`
	// Iter is the number of replay passes over the batch, at least 1.
	Iter int `yaml:"iter" mapstructure:"iter"`
}

func DefaultControl() Control {
	return Control{
		Alpha:   0.1,
		Gamma:   0.1,
		Epsilon: 0.1,
		Iter:    1,
	}
}

func (c Control) Validate() error {
	if !mathx.IsUnit(c.Alpha) {
		return fmt.Errorf("%w: alpha must be in [0, 1], got %v", ErrInvalidControl, c.Alpha)
	}
	if !mathx.IsUnit(c.Gamma) {
		return fmt.Errorf("%w: gamma must be in [0, 1], got %v", ErrInvalidControl, c.Gamma)
	}
	if !mathx.IsUnit(c.Epsilon) {
		return fmt.Errorf("%w: epsilon must be in [0, 1], got %v", ErrInvalidControl, c.Epsilon)
	}
	if c.Iter < 1 {
		return fmt.Errorf("%w: iter must be positive, got %d", ErrInvalidControl, c.Iter)
	}
	return nil
}

var controlOptions = []string{"alpha", "gamma", "epsilon", "iter"}

// ControlFromOptions builds a Control from a loosely typed option list.
// Options not given keep their DefaultControl value; unknown names and
// out-of-range values are rejected.
func ControlFromOptions(opts map[string]any) (Control, error) {
	c := DefaultControl()
	for name, v := range opts {
		if !slices.Contains(controlOptions, name) {
			return Control{}, fmt.Errorf("%w: unknown option %q", ErrInvalidControl, name)
		}
		switch name {
		case "iter":
			n, err := toInt(v)
			if err != nil {
				return Control{}, fmt.Errorf("%w: iter: %v", ErrInvalidControl, err)
			}
			c.Iter = n
		default:
			f, err := toFloat(v)
			if err != nil {
				return Control{}, fmt.Errorf("%w: %s: %v", ErrInvalidControl, name, err)
			}
			switch name {
			case "alpha":
				c.Alpha = f
			case "gamma":
				c.Gamma = f
			case "epsilon":
				c.Epsilon = f
			}
		}
	}
	if err := c.Validate(); err != nil {
		return Control{}, err
	}
	return c, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, fmt.Errorf("want a number, got %T", v)
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != float64(int(x)) {
			return 0, fmt.Errorf("want an integer, got %v", x)
		}
		return int(x), nil
	}
	return 0, fmt.Errorf("want an integer, got %T", v)
}
