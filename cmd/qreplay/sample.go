package main

import (
	"database/sql"

	"github.com/spf13/cobra"
	"github.com/sw965/qreplay/actor"
	"github.com/sw965/qreplay/dataset"
	"github.com/sw965/qreplay/env/gridworld"
	"github.com/sw965/qreplay/ql"
	"github.com/sw965/qreplay/rl"
	"github.com/sw965/qreplay/sampler"
)

func newSampleCmd(a *app) *cobra.Command {
	var (
		outPath    string
		sqlitePath string
		table      string
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Generate gridworld experience",
		Long: `sample draws transitions from the 2x2 gridworld and writes them as JSON
lines to stdout or --out (gzip-compressed for *.gz), or into a SQLite table.

With --strategy greedy or epsilon-greedy, a model is first trained on a
random sample of the same size and actions are chosen from its policy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			g := gridworld.New()
			batch, err := a.sample(g, nil)
			if err != nil {
				return err
			}
			frame := rl.ToFrame(batch, a.cfg.Columns)

			if sqlitePath != "" {
				db, err := sql.Open(dataset.SQLiteDriver, sqlitePath)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := dataset.InsertFrame(cmd.Context(), db, table, frame); err != nil {
					return err
				}
				a.log.Info().Str("db", sqlitePath).Str("table", table).Int("rows", frame.Len()).Msg("wrote tuples")
				return nil
			}
			if outPath == "" || outPath == "-" {
				return dataset.WriteJSONLines(cmd.OutOrStdout(), frame)
			}
			if err := dataset.WriteFile(outPath, frame); err != nil {
				return err
			}
			a.log.Info().Str("path", outPath).Int("rows", frame.Len()).Msg("wrote tuples")
			return nil
		},
	}

	addControlFlags(cmd, a)
	addSamplingFlags(cmd, a)
	f := cmd.Flags()
	f.StringVarP(&outPath, "out", "o", "-", "Output file, - for stdout")
	f.StringVar(&sqlitePath, "sqlite", "", "Insert the tuples into this SQLite database instead")
	f.StringVar(&table, "table", "experience", "Table used with --sqlite")
	return cmd
}

// sample draws a.cfg.Sampling.N transitions from g with the configured
// strategy. A greedy strategy without a model first learns one from random
// experience.
func (a *app) sample(g *gridworld.Gridworld, m *ql.Model[string, string]) (rl.Batch[string, string], error) {
	s := a.cfg.Sampling
	name, err := actor.ParseName(s.Strategy)
	if err != nil {
		return nil, err
	}

	if name != actor.RandomName && m == nil {
		seed, err := g.Sample(s.N, s.Seed)
		if err != nil {
			return nil, err
		}
		m, err = ql.Learn(seed, a.cfg.Control, nil)
		if err != nil {
			return nil, err
		}
		a.log.Debug().Str("model_id", m.ID).Msg("trained bootstrap model")
	}

	sel, err := actor.New(name, m, a.cfg.Control.Epsilon)
	if err != nil {
		return nil, err
	}
	return sampler.Sample(sampler.Config[string, string]{
		N:           s.N,
		States:      g.States(),
		Actions:     g.Actions(),
		Env:         g.Env,
		Selector:    sel,
		Seed:        s.Seed,
		Parallelism: s.Parallelism,
		Logger:      a.log,
	})
}
