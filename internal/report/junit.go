package report

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jstemmer/go-junit-report/v2/junit"

	"github.com/tvanlaerhoven/cavy-cli/internal/event"
)

const defaultSuiteName = "Cavy Tests"

// JUnit encodes tree as a JUnit XML document with a single suite. runID is
// recorded as a suite property when non-empty.
func JUnit(tree event.ResultTree, runID string) ([]byte, error) {
	name := tree.Name
	if name == "" {
		name = defaultSuiteName
	}

	suite := junit.Testsuite{
		Name:      name,
		Timestamp: tree.Timestamp,
	}
	if runID != "" {
		suite.AddProperty("run_id", runID)
	}

	total := tree.Time
	for _, tc := range tree.TestCases {
		c := junit.Testcase{
			Classname: name,
			Name:      tc.Description,
			Time:      FormatSeconds(tc.Time),
		}
		if !tc.Passed {
			c.Failure = &junit.Result{Message: "Test failed", Type: "AssertionError"}
		}
		suite.AddTestcase(c)
		if tree.Time == 0 {
			total += tc.Time
		}
	}
	suite.Time = FormatSeconds(total)

	doc := junit.Testsuites{Name: name, Time: suite.Time}
	doc.AddSuite(suite)

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode junit: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// WriteJUnit encodes tree and writes it to path, creating parent
// directories as needed.
func WriteJUnit(path string, tree event.ResultTree, runID string) error {
	data, err := JUnit(tree, runID)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
