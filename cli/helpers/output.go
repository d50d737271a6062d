package helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/compozy/tdlimport/engine/ingest"
)

// OutputFormat selects how command results are printed.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates a format name. Empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputFormatText:
		return OutputFormatText, nil
	case OutputFormatJSON:
		return OutputFormatJSON, nil
	default:
		return "", NewUsageError(fmt.Sprintf("unsupported output format %q (use text or json)", s))
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// OutputWriter prints results and errors in one format.
type OutputWriter struct {
	out    io.Writer
	format OutputFormat
	styled bool
}

// NewOutputWriter styles text output only when out is a terminal.
func NewOutputWriter(out io.Writer, format OutputFormat) *OutputWriter {
	return &OutputWriter{out: out, format: format, styled: format == OutputFormatText && IsTerminal(out)}
}

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)
)

func (ow *OutputWriter) render(style lipgloss.Style, s string) string {
	if !ow.styled {
		return s
	}
	return style.Render(s)
}

// WriteResult prints a finished run.
func (ow *OutputWriter) WriteResult(res *ingest.Result) error {
	if ow.format == OutputFormatJSON {
		return ow.writeJSON(res)
	}
	var headline string
	if res.DryRun {
		headline = fmt.Sprintf("Dry run for [%s]: %d tasks would be inserted.", res.Destination, res.Inserted)
	} else {
		headline = fmt.Sprintf("Data inserted successfully into [%s]. Total tasks processed: %d", res.Destination, res.Inserted)
	}
	_, err := fmt.Fprintf(ow.out, "%s\n%s\n",
		ow.render(okStyle, headline),
		ow.render(detailStyle, fmt.Sprintf(
			"encoding=%s task_nodes=%d skipped=%d categories=%d links=%d",
			res.Encoding, res.TaskNodes, res.Skipped, res.Categories, res.Links,
		)),
	)
	return err
}

// WriteError prints err without a stack trace.
func (ow *OutputWriter) WriteError(err error) error {
	cliErr := Categorize(err)
	if cliErr == nil {
		return nil
	}
	if ow.format == OutputFormatJSON {
		return ow.writeJSON(map[string]any{"error": cliErr})
	}
	msg := ow.render(failStyle, "Error: "+cliErr.Message)
	if cliErr.Details != "" {
		msg += "\n" + ow.render(detailStyle, "Details: "+cliErr.Details)
	}
	_, werr := fmt.Fprintln(ow.out, msg)
	return werr
}

func (ow *OutputWriter) writeJSON(data any) error {
	encoder := json.NewEncoder(ow.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
