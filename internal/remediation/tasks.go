package remediation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/regdata/register-pipeline/internal/artifacts"
	"github.com/regdata/register-pipeline/internal/registry"
	"github.com/regdata/register-pipeline/internal/table"
	"github.com/regdata/register-pipeline/internal/types"
)

// taskListVersion is bumped when the task artifact shape changes.
const taskListVersion = 1

// Context budget caps. The provider sees bounded snippets, never a full row
// or file.
const (
	maxContextPerColumn = 500
	maxContextTotal     = 2000
	maxCurrentValue     = 1000
)

// DefaultMaxTasks bounds one generation run; a register extract with more
// open findings than this needs human attention before LLM attention.
const DefaultMaxTasks = 200

// taskTypeForCode maps residual issue codes to task types. Absent codes are
// not remediable by the LLM stage: identifier and schema problems stay with
// the deterministic cleaner and the publisher respectively.
var taskTypeForCode = map[string]types.TaskType{
	types.CodeEncodingSuspect:        types.TaskEncodingFix,
	types.CodeDateUnparsable:         types.TaskDateFix,
	types.CodeDateNeedsNormalization: types.TaskDateFix,
	types.CodeCountryCodeInvalid:     types.TaskCountryNormalize,
	types.CodeCountryCodeNeedsNorm:   types.TaskCountryNormalize,
	types.CodeMultilineWebsite:       types.TaskWebsiteFix,
	types.CodeMultilineField:         types.TaskAddressFix,
}

// contextColumns lists the built-in per-task-type companion columns a task
// may carry. Entries reference register config fields resolved at build
// time; GeneratorOptions.ContextColumns overrides them per task type.
func contextColumns(reg registry.Register, taskType types.TaskType) []string {
	switch taskType {
	case types.TaskEncodingFix, types.TaskAddressFix:
		return []string{reg.NameColumn, reg.AuthorityColumn}
	case types.TaskDateFix:
		return append([]string{reg.NameColumn}, reg.DateColumns...)
	case types.TaskCountryNormalize:
		return []string{reg.AuthorityColumn, reg.ServiceCodeColumn}
	case types.TaskWebsiteFix:
		return []string{reg.NameColumn}
	default:
		return nil
	}
}

// GeneratorOptions tunes task generation.
type GeneratorOptions struct {
	MaxTasks int
	// ContextColumns overrides the context allowlist per task type name.
	// Absent task types keep the built-in register defaults; an explicit
	// empty list means no context at all.
	ContextColumns map[string][]string
	// NewID mints task identifiers; tests swap it for a counter.
	NewID func() string
}

func (o GeneratorOptions) withDefaults() GeneratorOptions {
	if o.MaxTasks <= 0 {
		o.MaxTasks = DefaultMaxTasks
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

// GenerateTasks converts residual issues on a cleaned table into remediation
// tasks. Issues must carry uncapped row lists; tasks come out in issue order
// then row order, truncated at the task cap.
func GenerateTasks(t *table.Table, reg registry.Register, issues []types.Issue, inputFile string, opts GeneratorOptions) types.TaskList {
	opts = opts.withDefaults()
	leiCounts := countLEIs(t)

	list := types.TaskList{
		Version:     taskListVersion,
		GeneratedAt: artifacts.Now(),
		InputFile:   inputFile,
		Register:    string(reg.Type),
	}

	for _, issue := range issues {
		taskType, ok := taskTypeForCode[issue.Code]
		if !ok || issue.Column == "" {
			continue
		}
		// Multiline leakage in an address is an address repair; in any
		// other text column it stays a plain encoding-era fix and is
		// skipped here because the cleaner already flattened it.
		if taskType == types.TaskAddressFix && issue.Column != "ae_address" {
			continue
		}
		for _, rowNum := range issue.Rows {
			if len(list.Tasks) >= opts.MaxTasks {
				return list
			}
			row := rowNum - 2
			if row < 0 || row >= t.NumRows() {
				continue
			}
			current := t.Get(row, issue.Column)
			if len(current) > maxCurrentValue {
				current = current[:maxCurrentValue]
			}
			list.Tasks = append(list.Tasks, types.RemediationTask{
				TaskID:           opts.NewID(),
				TaskType:         taskType,
				RowIdentifier:    identifyRow(t, reg, row, leiCounts),
				Column:           issue.Column,
				CurrentValue:     current,
				IssueDescription: fmt.Sprintf("%s: %s", issue.Code, issue.Message),
				Context:          buildContext(t, reg, row, issue.Column, taskType, opts.ContextColumns),
				Severity:         issue.Severity,
				IssueCode:        issue.Code,
				RowNumber:        rowNum,
			})
		}
	}
	return list
}

// buildContext gathers allowlisted companion values under the per-column and
// total budgets.
func buildContext(t *table.Table, reg registry.Register, row int, taskColumn string, taskType types.TaskType, overrides map[string][]string) map[string]string {
	cols, overridden := overrides[string(taskType)]
	if !overridden {
		cols = contextColumns(reg, taskType)
	}
	ctx := make(map[string]string)
	total := 0
	for _, col := range cols {
		if col == "" || col == taskColumn || !t.HasColumn(col) {
			continue
		}
		if _, ok := ctx[col]; ok {
			continue
		}
		val := t.Get(row, col)
		if val == "" {
			continue
		}
		if len(val) > maxContextPerColumn {
			val = val[:maxContextPerColumn]
		}
		if total+len(val) > maxContextTotal {
			break
		}
		ctx[col] = val
		total += len(val)
	}
	return ctx
}
