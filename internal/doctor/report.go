package doctor

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/thoreinstein/keepsafe/internal/errors"
)

// Format specifies the output format for doctor reports.
type Format string

const (
	// FormatText produces human-readable text output.
	FormatText Format = "text"
	// FormatJSON produces machine-readable JSON output.
	FormatJSON Format = "json"
)

var (
	passColor = color.New(color.FgGreen)
	infoColor = color.New(color.FgCyan)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
	dimColor  = color.New(color.FgHiBlack)
)

// Reporter formats and writes doctor reports.
type Reporter struct {
	out     io.Writer
	format  Format
	verbose bool
}

// NewReporter creates a new Reporter. In text format, verbose also lists
// the checks that passed.
func NewReporter(out io.Writer, format Format, verbose bool) *Reporter {
	return &Reporter{out: out, format: format, verbose: verbose}
}

// Report writes the report to the output.
func (r *Reporter) Report(report *Report) error {
	if report == nil {
		return nil
	}

	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(report), "encoding JSON report")
	default:
		r.reportText(report)
		return nil
	}
}

func (r *Reporter) reportText(report *Report) {
	shown := 0
	for _, res := range report.Results {
		if !r.verbose && res.Status != SeverityError && res.Status != SeverityWarning {
			continue
		}
		shown++

		fmt.Fprintf(r.out, "%s [%s] %s: %s\n", statusIcon(res.Status), res.Category, res.Name, res.Message)
		for _, p := range res.Problems {
			fmt.Fprintf(r.out, "  • %s\n", p)
		}
		if res.FixHint != "" && res.Status >= SeverityWarning {
			fmt.Fprintf(r.out, "  %s\n", dimColor.Sprint("hint: "+res.FixHint))
		}
	}

	if shown > 0 {
		fmt.Fprintln(r.out)
	}
	fmt.Fprintf(r.out, "Summary: %d passed, %d info, %d warnings, %d errors\n",
		report.Summary.Passed, report.Summary.Info, report.Summary.Warnings, report.Summary.Errors)
}

func statusIcon(s Severity) string {
	switch s {
	case SeverityPass:
		return passColor.Sprint("✓")
	case SeverityInfo:
		return infoColor.Sprint("ℹ")
	case SeverityWarning:
		return warnColor.Sprint("⚠")
	case SeverityError:
		return errColor.Sprint("✗")
	default:
		return "?"
	}
}
