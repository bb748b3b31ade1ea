package remediation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/regdata/register-pipeline/internal/types"
)

// taskInstructions holds the per-type repair brief sent to the model.
var taskInstructions = map[types.TaskType]string{
	types.TaskEncodingFix: "Repair character encoding damage (mojibake, replacement characters) in the value. " +
		"Restore the original characters only; do not rephrase, translate or add words.",
	types.TaskDateFix: "Normalize the value to a DD/MM/YYYY date. " +
		"Use only digits already present in the value; if the date cannot be determined, return the value unchanged with confidence 0.",
	types.TaskCountryNormalize: "Normalize the value to pipe-separated ISO 3166-1 alpha-2 country codes, uppercased, deduplicated and sorted. " +
		"Map country names to their codes; drop nothing silently.",
	types.TaskWebsiteFix: "Repair the URL value: fix obvious typos in scheme or separators and join multiple URLs with a single pipe. " +
		"Do not invent domains.",
	types.TaskAddressFix: "Repair encoding damage and stray line breaks in the postal address. " +
		"Keep every address component; do not reorder or augment the address.",
}

// buildPrompt renders one task as a self-contained prompt demanding strict
// JSON matching the proposal contract.
func buildPrompt(task types.RemediationTask) string {
	var b strings.Builder

	b.WriteString("You are repairing a single damaged field from a regulatory register CSV.\n\n")
	fmt.Fprintf(&b, "Task: %s\n", taskInstructions[task.TaskType])
	fmt.Fprintf(&b, "Column: %s\n", task.Column)
	fmt.Fprintf(&b, "Issue: %s\n", task.IssueDescription)
	fmt.Fprintf(&b, "Current value: %q\n", task.CurrentValue)

	if len(task.Context) > 0 {
		b.WriteString("\nContext from the same row:\n")
		cols := make([]string, 0, len(task.Context))
		for col := range task.Context {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		for _, col := range cols {
			fmt.Fprintf(&b, "  %s: %q\n", col, task.Context[col])
		}
	}

	fmt.Fprintf(&b, `
Respond with a single JSON object and nothing else:
{
  "task_id": %q,
  "proposed_value": "<the repaired value>",
  "confidence": <0.0 to 1.0>,
  "reasoning": "<one sentence>",
  "transformation_type": %q,
  "risk_level": "LOW" | "MEDIUM" | "HIGH"
}

Rules:
- Never invent information that is not recoverable from the current value.
- If no safe repair exists, return the current value unchanged with confidence 0.
- reasoning must be at most 500 characters.
`, task.TaskID, task.TaskType)

	return b.String()
}
