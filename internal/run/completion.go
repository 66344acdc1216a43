package run

import (
	"fmt"

	"github.com/tvanlaerhoven/cavy-cli/internal/console"
	"github.com/tvanlaerhoven/cavy-cli/internal/event"
	"github.com/tvanlaerhoven/cavy-cli/internal/exitcodes"
	"github.com/tvanlaerhoven/cavy-cli/internal/report"
)

// finish runs the completion sequence for one run. It reports whether the
// process should exit and with which code; in dev mode it never exits.
func (c *Coordinator) finish(rep event.Report) (int, bool) {
	runID := c.state.RunID()
	c.state.FinishRun()

	c.printer.Println(fmt.Sprintf("Finished in %s seconds", report.FormatSeconds(rep.Duration)))
	summary := console.Summary(len(rep.Results), int(rep.ErrorCount))

	if c.state.XMLOutput() {
		c.writeJUnit(rep.FullResults, runID)
	}
	c.writeMarkdown(rep.FullResults)

	if c.opts.PrintTable {
		report.WriteTable(c.printer.Writer(), rep.FullResults, rep.Duration)
	}

	passed := rep.ErrorCount == 0
	c.metrics.RecordRun(passed)
	c.printer.Outcome(summary, passed)
	c.logger.Info("Run finished", "run_id", runID, "examples", len(rep.Results), "failures", rep.ErrorCount)

	c.printer.Separator()

	if c.state.DevMode() {
		return 0, false
	}
	if passed {
		return exitcodes.Success, true
	}
	return exitcodes.TestFailure, true
}

// writeJUnit encodes the tree in the background. The loop waits for
// in-flight encodes before returning an exit code, but a failed encode never
// changes it.
func (c *Coordinator) writeJUnit(tree event.ResultTree, runID string) {
	path := c.opts.XMLFile
	c.encoders.Add(1)
	go func() {
		defer c.encoders.Done()
		if err := report.WriteJUnit(path, tree, runID); err != nil {
			c.logger.Error("Failed to write XML report", "path", path, "err", err)
			return
		}
		c.logger.Info("Wrote XML report", "path", path)
	}()
}

func (c *Coordinator) writeMarkdown(tree event.ResultTree) {
	c.printer.Println("Writing results to " + report.MarkdownFile)
	if _, err := report.WriteMarkdown(c.opts.ReportDir, tree); err != nil {
		c.logger.Error("Failed to write markdown report", "err", err)
		return
	}

	if c.opts.PrintMarkdown {
		out, err := report.Preview(report.Markdown(tree))
		if err != nil {
			c.logger.Warn("Failed to render markdown report", "err", err)
			return
		}
		c.printer.Println(out)
	}
}
