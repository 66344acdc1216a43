package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/tvanlaerhoven/cavy-cli/internal/event"
)

// WriteTable renders a console table of every test case in tree, styled
// green when all passed and red otherwise.
func WriteTable(w io.Writer, tree event.ResultTree, duration float64) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("E2E Test Results (%ss)", FormatSeconds(duration)))

	t.AppendHeader(table.Row{"#", "Description", "Result", "Duration"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Description", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
	})

	failures := 0
	for i, tc := range tree.TestCases {
		result := "PASS"
		if !tc.Passed {
			result = "FAIL"
			failures++
		}
		t.AppendRow(table.Row{i + 1, tc.Description, result, FormatSeconds(tc.Time) + "s"})
	}

	if failures == 0 {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.AppendFooter(table.Row{
		"",
		"TOTAL",
		fmt.Sprintf("%d/%d passed", len(tree.TestCases)-failures, len(tree.TestCases)),
		FormatSeconds(duration) + "s",
	})

	t.Render()
}
