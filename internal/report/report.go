// Package report renders search results.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"dlldepends/internal/finder"
	"dlldepends/internal/util"
)

// OutputFormat specifies how to format a result.
type OutputFormat int

const (
	// FormatDefault lists matches followed by the summary line
	FormatDefault OutputFormat = iota
	// FormatJSON outputs structured JSON
	FormatJSON
)

// JSONOutput is the JSON structure for a search result.
type JSONOutput struct {
	Solution string          `json:"solution"`
	Target   string          `json:"target"`
	Source   string          `json:"source"`
	SourceID string          `json:"sourceId,omitempty"`
	Matches  []finder.Record `json:"matches"`
	Failures []FailureJSON   `json:"failures"`
	Skipped  []string        `json:"skipped,omitempty"`
	Summary  Summary         `json:"summary"`
}

// FailureJSON is a project that could not be classified.
type FailureJSON struct {
	ProjectPath string `json:"projectPath"`
	Error       string `json:"error"`
}

// Summary contains counts for the JSON output.
type Summary struct {
	Scanned    int            `json:"scanned"`
	MatchCount int            `json:"matchCount"`
	Failed     int            `json:"failed"`
	Skipped    int            `json:"skipped"`
	ByKind     map[string]int `json:"byKind"`
}

// WriteOutput writes result to w.
func WriteOutput(w io.Writer, result *finder.Result, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	default:
		return writeDefault(w, result)
	}
}

// SummaryLine is the closing line of the default output. target is shown as
// the user typed it.
func SummaryLine(target string, count int) string {
	if count == 0 {
		return fmt.Sprintf(`No dependencies to "%s" were found in the project folder.`, target)
	}
	return fmt.Sprintf(`%d references to "%s" were found in the project folder.`, count, target)
}

func writeDefault(w io.Writer, result *finder.Result) error {
	width := 0
	for _, m := range result.Matches {
		width = max(width, len(m.Kind.String()))
	}

	for _, m := range result.Matches {
		line := fmt.Sprintf("  %-*s  %s", width, m.Kind, m.ProjectPath)
		if len(m.Modules) > 0 {
			line += " [" + strings.Join(m.Modules, ",") + "]"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w, SummaryLine(result.Target, len(result.Matches)))
	return err
}

func writeJSON(w io.Writer, result *finder.Result) error {
	output := JSONOutput{
		Solution: result.Solution,
		Target:   result.Target,
		Source:   result.SourceType,
		Matches:  result.Matches,
		Skipped:  result.Skipped,
		Summary: Summary{
			Scanned:    result.Scanned,
			MatchCount: len(result.Matches),
			Failed:     len(result.Failures),
			Skipped:    len(result.Skipped),
			ByKind:     make(map[string]int),
		},
	}
	if result.SourceType == "git" {
		output.SourceID = util.ShortID(result.SourceID)
	}

	for _, m := range result.Matches {
		output.Summary.ByKind[m.Kind.String()]++
	}

	output.Failures = make([]FailureJSON, 0, len(result.Failures))
	for _, f := range result.Failures {
		output.Failures = append(output.Failures, FailureJSON{
			ProjectPath: f.ProjectPath,
			Error:       f.Err.Error(),
		})
	}

	// Handle nil slices for cleaner JSON
	if output.Matches == nil {
		output.Matches = []finder.Record{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
