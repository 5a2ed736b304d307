package report

import (
	"fmt"
	"io"

	"github.com/sw965/qreplay/ql"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary condenses a model into a handful of numbers.
type Summary struct {
	ModelID string
	States  int
	Actions int
	Entries int
	Policy  int
	Passes  int

	RewardFirst float64
	RewardLast  float64
	RewardMean  float64
	RewardStd   float64
	RewardMin   float64
	RewardMax   float64

	QMean float64
	QMin  float64
	QMax  float64
}

// Improvement is the change in pass reward from the first to the last pass.
func (s Summary) Improvement() float64 {
	return s.RewardLast - s.RewardFirst
}

func Summarize[S, A comparable](m *ql.Model[S, A]) Summary {
	s := Summary{
		ModelID: m.ID,
		States:  len(m.States()),
		Actions: len(m.Actions()),
		Entries: m.Table.Len(),
		Policy:  len(m.Policy),
		Passes:  m.Passes(),
	}

	if trace := m.RewardTrace; len(trace) > 0 {
		s.RewardFirst = trace[0]
		s.RewardLast = trace[len(trace)-1]
		s.RewardMean, s.RewardStd = meanStd(trace)
		s.RewardMin = floats.Min(trace)
		s.RewardMax = floats.Max(trace)
	}

	qs := make([]float64, 0, m.Table.Len())
	for _, q := range m.Table.All() {
		qs = append(qs, q)
	}
	if len(qs) > 0 {
		s.QMean = stat.Mean(qs, nil)
		s.QMin = floats.Min(qs)
		s.QMax = floats.Max(qs)
	}
	return s
}

// meanStd returns the mean and the sample standard deviation, which is 0 for
// fewer than two values.
func meanStd(xs []float64) (float64, float64) {
	if len(xs) < 2 {
		return stat.Mean(xs, nil), 0
	}
	return stat.MeanStdDev(xs, nil)
}

func (s Summary) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"model %s\n"+
			"  states %d  actions %d  entries %d  policy %d\n"+
			"  passes %d  reward first %.4f  last %.4f  improvement %+.4f\n"+
			"  reward mean %.4f  std %.4f  min %.4f  max %.4f\n"+
			"  q mean %.4f  min %.4f  max %.4f\n",
		s.ModelID,
		s.States, s.Actions, s.Entries, s.Policy,
		s.Passes, s.RewardFirst, s.RewardLast, s.Improvement(),
		s.RewardMean, s.RewardStd, s.RewardMin, s.RewardMax,
		s.QMean, s.QMin, s.QMax,
	)
	return err
}
