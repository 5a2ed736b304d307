// Package report renders trained models for people: Q tables, summary
// statistics of the reward trace and reward trace plots.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/sw965/qreplay/ql"
)

const absent = "-"

// Print writes the Q table of m with one row per state and one column per
// action, followed by the policy column and a line on the reward trace.
// Pairs never observed print as "-".
func Print[S, A comparable](w io.Writer, m *ql.Model[S, A]) {
	actions := m.Actions()
	header := make([]string, 0, len(actions)+2)
	header = append(header, "state")
	for _, a := range actions {
		header = append(header, fmt.Sprint(a))
	}
	header = append(header, "policy")

	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, s := range m.States() {
		row := make([]string, 0, len(header))
		row = append(row, fmt.Sprint(s))
		for _, a := range actions {
			if q, ok := m.Table.Lookup(s, a); ok {
				row = append(row, strconv.FormatFloat(q, 'f', 4, 64))
			} else {
				row = append(row, absent)
			}
		}
		if a, ok := m.Action(s); ok {
			row = append(row, fmt.Sprint(a))
		} else {
			row = append(row, absent)
		}
		table.Append(row)
	}
	table.Render()

	if n := m.Passes(); n > 0 {
		fmt.Fprintf(w, "%d passes, last pass reward %.4f\n", n, m.LastReward())
	}
}
