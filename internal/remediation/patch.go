package remediation

import (
	"fmt"

	"github.com/regdata/register-pipeline/internal/artifacts"
	"github.com/regdata/register-pipeline/internal/registry"
	"github.com/regdata/register-pipeline/internal/table"
	"github.com/regdata/register-pipeline/internal/types"
)

// applyReportVersion is bumped when the apply artifact shape changes.
const applyReportVersion = 1

// ApplyPatch writes approved proposals into a copy of the table and returns
// it with the audit report. The input table is never mutated. Every proposal
// lands in exactly one of applied, rejected or skipped; tasks the patch
// never answered are listed under no_proposal so the audit trail stays
// complete.
func ApplyPatch(t *table.Table, reg registry.Register, list types.TaskList, patch types.RemediationPatch, pol Policy) (*table.Table, types.ApplyReport) {
	out := t.Clone()
	report := types.ApplyReport{
		Version:     applyReportVersion,
		PatchID:     patch.PatchID,
		GeneratedAt: artifacts.Now(),
	}

	tasksByID := make(map[string]types.RemediationTask, len(list.Tasks))
	for _, task := range list.Tasks {
		tasksByID[task.TaskID] = task
	}
	proposed := make(map[string]bool, len(patch.Proposals))
	for _, prop := range patch.Proposals {
		proposed[prop.TaskID] = true
	}
	for _, task := range list.Tasks {
		if !proposed[task.TaskID] {
			report.NoProposal = append(report.NoProposal, task.TaskID)
		}
	}

	for _, prop := range patch.Proposals {
		task, ok := tasksByID[prop.TaskID]
		if !ok {
			report.Rejected = append(report.Rejected, types.RejectedChange{
				TaskID:        prop.TaskID,
				ProposedValue: prop.ProposedValue,
				Reason:        "proposal references an unknown task",
				Confidence:    prop.Confidence,
			})
			continue
		}

		row, err := ResolveRow(out, reg, task.RowIdentifier)
		if err != nil {
			report.Rejected = append(report.Rejected, rejected(task, prop, fmt.Sprintf("row resolution failed: %v", err)))
			continue
		}

		// The cell must still hold the value the task was generated
		// from; a mismatch means the file moved underneath the patch.
		if current := out.Get(row, task.Column); current != task.CurrentValue {
			report.Rejected = append(report.Rejected, rejected(task, prop, "current value no longer matches the task snapshot"))
			continue
		}

		decision, reason := pol.Evaluate(reg, task, prop)
		switch decision {
		case Approve:
			old := out.Get(row, task.Column)
			if err := out.Set(row, task.Column, prop.ProposedValue); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("task %s: %v", task.TaskID, err))
				continue
			}
			report.Applied = append(report.Applied, types.AppliedChange{
				TaskID:             task.TaskID,
				Column:             task.Column,
				Row:                task.RowNumber,
				OldValue:           old,
				NewValue:           prop.ProposedValue,
				Confidence:         prop.Confidence,
				Reasoning:          prop.Reasoning,
				TransformationType: prop.TransformationType,
				RiskLevel:          prop.RiskLevel,
			})
		case Hold:
			report.Skipped = append(report.Skipped, task.TaskID)
		case Reject:
			report.Rejected = append(report.Rejected, rejected(task, prop, reason))
		}
	}
	return out, report
}

func rejected(task types.RemediationTask, prop types.Proposal, reason string) types.RejectedChange {
	return types.RejectedChange{
		TaskID:        task.TaskID,
		Column:        task.Column,
		CurrentValue:  task.CurrentValue,
		ProposedValue: prop.ProposedValue,
		Reason:        reason,
		Confidence:    prop.Confidence,
	}
}
