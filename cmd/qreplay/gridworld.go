package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sw965/qreplay/actor"
	"github.com/sw965/qreplay/env/gridworld"
	"github.com/sw965/qreplay/ql"
	"github.com/sw965/qreplay/report"
)

const (
	evalEpisodes = 30
	evalMaxSteps = 20
)

func newGridworldCmd(a *app) *cobra.Command {
	var (
		rounds   int
		plotPath string
	)

	cmd := &cobra.Command{
		Use:   "gridworld",
		Short: "Run the 2x2 gridworld demo",
		Long: `gridworld learns from random experience, then alternates between
sampling with the epsilon-greedy policy of the current model and merging the
new experience into it. The policy grid and a summary are printed after every
round.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			g := gridworld.New()

			seed := a.cfg.Sampling.Seed
			data, err := g.Sample(a.cfg.Sampling.N, seed)
			if err != nil {
				return err
			}
			m, err := a.train(cmd, data, nil)
			if err != nil {
				return err
			}
			series := []report.Series{{Name: "random experience", Trace: m.RewardTrace}}
			if err := printRound(cmd, g, 0, m); err != nil {
				return err
			}

			a.cfg.Sampling.Strategy = string(actor.EpsilonGreedyName)
			for round := 1; round <= rounds; round++ {
				a.cfg.Sampling.Seed = seed + uint64(round)
				more, err := a.sample(g, m)
				if err != nil {
					return err
				}
				passes := m.Passes()
				m, err = a.train(cmd, more, m)
				if err != nil {
					return err
				}
				a.log.Info().
					Int("round", round).
					Float64("experience_reward", more.TotalReward()).
					Str("model_id", m.ID).
					Msg("merged experience")
				series = append(series, report.Series{
					Name:  fmt.Sprintf("round %d", round),
					Trace: m.RewardTrace[passes:],
				})
				if err := printRound(cmd, g, round, m); err != nil {
					return err
				}
			}

			report.Print(out, m)
			if plotPath != "" {
				return writePlot(plotPath, "gridworld reward per pass", series...)
			}
			return nil
		},
	}

	addControlFlags(cmd, a)
	addSamplingFlags(cmd, a)
	f := cmd.Flags()
	f.IntVar(&rounds, "rounds", 1, "Epsilon-greedy resampling rounds after the random one")
	f.StringVar(&plotPath, "plot", "", "Write an HTML reward trace chart to this file")
	return cmd
}

func printRound(cmd *cobra.Command, g *gridworld.Gridworld, round int, m *ql.Model[string, string]) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "round %d\n", round)
	if err := g.Render(out, m.Policy); err != nil {
		return err
	}

	sel, err := actor.New(actor.GreedyName, m, 0)
	if err != nil {
		return err
	}
	es, err := g.Episodes(evalEpisodes, evalMaxSteps, sel, uint64(round))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "greedy episodes: mean return %.2f, goal reached %.0f%%\n", es.MeanReturn(), 100*es.EndedRate())
	return report.Summarize(m).Write(out)
}
