// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/regdata/register-pipeline/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
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
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintValidationReport outputs a human-readable summary of one validation pass.
func (p *Printer) PrintValidationReport(report *types.ValidationReport) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Register: %s\n", report.Register))
	sb.WriteString(fmt.Sprintf("Encoding: %s (%.0f%%)\n", report.Encoding.Detected, report.Encoding.Confidence*100))
	sb.WriteString(fmt.Sprintf("Rows:     %d total, %d parsed\n", report.Stats.RowsTotal, report.Stats.RowsParsed))
	sb.WriteString(fmt.Sprintf("Findings: %d errors, %d warnings\n", report.ErrorCount(), report.WarningCount()))

	if len(report.Issues) > 0 {
		sb.WriteString("\n")
		count := min(len(report.Issues), maxItemsToShow)
		for i := 0; i < count; i++ {
			iss := report.Issues[i]
			sb.WriteString(fmt.Sprintf("  [%s] %s", iss.Severity, iss.Code))
			if iss.Column != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", iss.Column))
			}
			sb.WriteString(fmt.Sprintf(" x%d\n", len(iss.Rows)))
		}
		if len(report.Issues) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(report.Issues)-maxItemsToShow))
		}
	}

	p.printBox("VALIDATION REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCleaningReport outputs the change summary of one cleaner run.
func (p *Printer) PrintCleaningReport(report *types.CleaningReport) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Rows:    %d -> %d\n", report.Stats.RowsBefore, report.Stats.RowsAfter))
	sb.WriteString(fmt.Sprintf("Changes: %d\n", report.Summary.TotalChanges))
	sb.WriteString(fmt.Sprintf("Flags:   %d\n", len(report.Flags)))

	if len(report.Summary.ChangesByType) > 0 {
		sb.WriteString("\n")
		changeTypes := make([]string, 0, len(report.Summary.ChangesByType))
		for ct := range report.Summary.ChangesByType {
			changeTypes = append(changeTypes, ct)
		}
		sort.Strings(changeTypes)
		for _, ct := range changeTypes {
			sb.WriteString(fmt.Sprintf("  %-32s %d\n", ct, report.Summary.ChangesByType[ct]))
		}
	}

	p.printBox("CLEANING REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTaskList outputs what will be sent for LLM remediation.
func (p *Printer) PrintTaskList(list *types.TaskList) {
	if list == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Tasks: %d\n", len(list.Tasks)))

	byType := make(map[types.TaskType]int)
	for _, task := range list.Tasks {
		byType[task.TaskType]++
	}
	if len(byType) > 0 {
		sb.WriteString("\n")
		taskTypes := make([]string, 0, len(byType))
		for tt := range byType {
			taskTypes = append(taskTypes, string(tt))
		}
		sort.Strings(taskTypes)
		for _, tt := range taskTypes {
			sb.WriteString(fmt.Sprintf("  %-20s %d\n", tt, byType[types.TaskType(tt)]))
		}
	}

	p.printBox("REMEDIATION TASKS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPatch outputs the provider result for one remediation batch.
func (p *Printer) PrintPatch(patch *types.RemediationPatch) {
	if patch == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Provider:  %s\n", patch.Provider))
	sb.WriteString(fmt.Sprintf("Model:     %s\n", patch.ModelUsed))
	if len(patch.ModelsTried) > 1 {
		sb.WriteString(fmt.Sprintf("Tried:     %s\n", strings.Join(patch.ModelsTried, ", ")))
	}
	sb.WriteString(fmt.Sprintf("Proposals: %d of %d tasks\n", len(patch.Proposals), patch.TasksTotal))

	p.printBox("REMEDIATION PATCH", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintApplyReport outputs the audit summary of one patch application.
func (p *Printer) PrintApplyReport(report *types.ApplyReport) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Applied:     %d\n", len(report.Applied)))
	sb.WriteString(fmt.Sprintf("Rejected:    %d\n", len(report.Rejected)))
	sb.WriteString(fmt.Sprintf("Held:        %d\n", len(report.Skipped)))
	sb.WriteString(fmt.Sprintf("No proposal: %d\n", len(report.NoProposal)))

	count := min(len(report.Rejected), maxItemsToShow)
	if count > 0 {
		sb.WriteString("\n")
		for i := 0; i < count; i++ {
			rej := report.Rejected[i]
			sb.WriteString(fmt.Sprintf("  %s: %s\n", rej.TaskID, rej.Reason))
		}
		if len(report.Rejected) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(report.Rejected)-maxItemsToShow))
		}
	}

	p.printBox("APPLY REPORT", strings.TrimSuffix(sb.String(), "\n"))
}
