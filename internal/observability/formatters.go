// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/resume-tailor/internal/pipeline"
	"github.com/jonathan/resume-tailor/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// previewLines is how much of a resume is echoed inside a box
	previewLines = 8
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line, inner))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad truncates or right-pads s to exactly width runes
func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n > width {
		r := []rune(s)
		return string(r[:width-3]) + "..."
	}
	return s + strings.Repeat(" ", width-n)
}

// writeList writes up to maxItemsToShow bullet items
func writeList(sb *strings.Builder, items []string) {
	count := min(len(items), maxItemsToShow)
	for i := 0; i < count; i++ {
		fmt.Fprintf(sb, "  • %s\n", items[i])
	}
	if len(items) > maxItemsToShow {
		fmt.Fprintf(sb, "  ... and %d more\n", len(items)-maxItemsToShow)
	}
}

// writePreview writes the first lines of a resume
func writePreview(sb *strings.Builder, text string) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	count := min(len(lines), previewLines)
	for i := 0; i < count; i++ {
		sb.WriteString("  " + lines[i] + "\n")
	}
	if len(lines) > previewLines {
		fmt.Fprintf(sb, "  ... %d more lines\n", len(lines)-previewLines)
	}
}

// PrintContinuationRequest shows what the step needs before it can refine the resume.
func (p *Printer) PrintContinuationRequest(req *types.ContinuationRequest) {
	if req == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "User:  %s\n", req.UserID)
	fmt.Fprintf(&sb, "Job:   %s\n", req.JobID)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Missing Information (%d):\n", len(req.MissingInfo))
	writeList(&sb, req.MissingInfo)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Draft (%d chars):\n", utf8.RuneCountInString(req.TailoredResume))
	writePreview(&sb, req.TailoredResume)

	p.printBox("MORE INFORMATION NEEDED", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStepOutput outputs the final tailored resume or the step error.
func (p *Printer) PrintStepOutput(out *types.StepOutput) {
	if out == nil {
		return
	}
	if out.Failed() {
		p.printBox("TAILORING FAILED", out.Error)
		return
	}

	var sb strings.Builder
	if len(out.MissingInfo) > 0 {
		fmt.Fprintf(&sb, "Still Missing (%d):\n", len(out.MissingInfo))
		writeList(&sb, out.MissingInfo)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Resume (%d chars):\n", utf8.RuneCountInString(out.TailoredResume))
	writePreview(&sb, out.TailoredResume)

	p.printBox("TAILORED RESUME", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRunState prints a run header followed by its request or output.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintRunState(run *pipeline.RunState) {
	if run == nil {
		return
	}

	fmt.Fprintf(p.out, "Run %s [%s] %s\n", run.RunID, run.Step, strings.ToUpper(string(run.Status)))
	switch {
	case run.Continuation != nil:
		p.PrintContinuationRequest(run.Continuation)
	case run.Output != nil:
		p.PrintStepOutput(run.Output)
	}
}

// PrintProgress writes a one-line progress event; it fits pipeline.ProgressCallback.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(ev pipeline.ProgressEvent) {
	fmt.Fprintf(p.out, "[%s] %s: %s\n", ev.Step, ev.Status, ev.Message)
}
