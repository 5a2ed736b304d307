package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/sw965/qreplay/dataset"
	"github.com/sw965/qreplay/ql"
	"github.com/sw965/qreplay/report"
	"github.com/sw965/qreplay/rl"
)

func newTrainCmd(a *app) *cobra.Command {
	var (
		sqlitePath string
		query      string
		plotPath   string
	)

	cmd := &cobra.Command{
		Use:   "train [files...]",
		Short: "Learn a Q table from recorded tuples",
		Long: `train reads JSON-lines files (optionally gzip-compressed) or the result
of a query on a SQLite database, replays the tuples and prints the learned
Q table, policy and a summary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var (
				frame rl.Frame
				err   error
			)
			switch {
			case sqlitePath != "":
				if len(args) > 0 {
					return errors.New("give either files or --sqlite, not both")
				}
				frame, err = dataset.QuerySQLite(ctx, sqlitePath, query)
			case len(args) > 0:
				frame, err = dataset.LoadFiles(ctx, args...)
			default:
				return errors.New("no input: give files or --sqlite")
			}
			if err != nil {
				return err
			}
			a.log.Info().Int("rows", frame.Len()).Strs("columns", frame.Columns).Msg("loaded tuples")

			cols := a.cfg.Columns
			labelFrame(frame, cols)
			batch, err := rl.FromFrame[string, string](frame, cols)
			if err != nil {
				return err
			}

			m, err := a.train(cmd, batch, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			report.Print(out, m)
			if err := report.Summarize(m).Write(out); err != nil {
				return err
			}
			if plotPath != "" {
				return writePlot(plotPath, "reward per pass", report.Series{Name: "train", Trace: m.RewardTrace})
			}
			return nil
		},
	}

	addControlFlags(cmd, a)
	f := cmd.Flags()
	f.StringVar(&sqlitePath, "sqlite", "", "Read tuples from this SQLite database")
	f.StringVar(&query, "query", "SELECT * FROM experience", "Query run against --sqlite")
	f.StringVar(&plotPath, "plot", "", "Write an HTML reward trace chart to this file")
	return cmd
}

// train runs one training call with a progress bar over the replay passes.
func (a *app) train(cmd *cobra.Command, batch rl.Batch[string, string], prior *ql.Model[string, string]) (*ql.Model[string, string], error) {
	bar := progressbar.NewOptions(a.cfg.Control.Iter,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("replay"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	tr := ql.NewTrainer(a.cfg.Control)
	tr.Logger = a.log
	tr.PassHook = func(pass int, reward float64) {
		bar.Add(1)
	}
	m, err := ql.Train(tr, batch, prior)
	if err != nil {
		return nil, err
	}
	bar.Finish()
	return m, nil
}

// labelFrame turns scalar state and action cells into their string form so
// that numeric labels from JSON or SQL train as labels. JSON numbers keep
// their literal text and floats print without an exponent, so 1234567 names
// the same state whichever source it came from.
func labelFrame(f rl.Frame, c rl.Columns) {
	names := []string{c.State, c.Action, c.NextState}
	for _, row := range f.Rows {
		for _, name := range names {
			switch v := row[name].(type) {
			case json.Number:
				row[name] = v.String()
			case float64:
				row[name] = strconv.FormatFloat(v, 'f', -1, 64)
			case float32:
				row[name] = strconv.FormatFloat(float64(v), 'f', -1, 32)
			case int, int32, int64, bool:
				row[name] = fmt.Sprint(v)
			}
		}
	}
}

func writePlot(path, title string, series ...report.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.PlotRewardTrace(f, title, series...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
