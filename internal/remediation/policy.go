package remediation

import (
	"fmt"
	"strings"

	"github.com/regdata/register-pipeline/internal/registry"
	"github.com/regdata/register-pipeline/internal/types"
)

// Decision is the policy verdict for one proposal.
type Decision int

const (
	// Approve writes the proposed value into the CSV.
	Approve Decision = iota
	// Hold leaves the value untouched pending manual review.
	Hold
	// Reject discards the proposal and records why.
	Reject
)

// Policy holds the guardrail configuration. Hard rules are not
// configurable; thresholds and the auto-apply switch are.
type Policy struct {
	// MinConfidence is the floor below which a proposal is rejected
	// outright regardless of risk.
	MinConfidence float64
	// AutoApplyConfidence is the bar a LOW risk proposal must clear to
	// be written without review.
	AutoApplyConfidence float64
	// AutoApplyLowRisk enables unattended application of LOW risk
	// proposals above the confidence bar.
	AutoApplyLowRisk bool
	// RequireManualApproval holds every proposal for review, overriding
	// AutoApplyLowRisk.
	RequireManualApproval bool
}

// DefaultPolicy mirrors the operational defaults: reject at half
// confidence, auto-apply low-risk fixes at 0.9 and above.
func DefaultPolicy() Policy {
	return Policy{
		MinConfidence:       0.5,
		AutoApplyConfidence: 0.9,
		AutoApplyLowRisk:    true,
	}
}

// Evaluate decides the fate of one proposal against its originating task.
// Hard rules run first; an approved proposal has also cleared the
// configurable thresholds.
func (p Policy) Evaluate(reg registry.Register, task types.RemediationTask, prop types.Proposal) (Decision, string) {
	if prop.TaskID != task.TaskID {
		return Reject, "proposal does not reference this task"
	}

	// The identifier column is never LLM territory. Whitespace trimming
	// is the only edit that would be tolerable, and the deterministic
	// cleaner already did it.
	if task.Column == registry.IdentifierColumn {
		return Reject, "identifier column may not be modified by remediation"
	}

	// No fabrication: an empty field must stay empty.
	if strings.TrimSpace(task.CurrentValue) == "" && strings.TrimSpace(prop.ProposedValue) != "" {
		return Reject, "proposal fabricates a value for an empty field"
	}
	if strings.TrimSpace(prop.ProposedValue) == "" && strings.TrimSpace(task.CurrentValue) != "" {
		return Reject, "proposal erases a populated field"
	}

	// Legal names, authorities and addresses may only be repaired, not
	// rewritten: the transformation must stay in the encoding family.
	if restricted, allowed := restrictedColumn(reg, task.Column); restricted && prop.TransformationType != allowed && prop.TransformationType != types.TaskEncodingFix {
		return Reject, fmt.Sprintf("column %q only accepts %s transformations", task.Column, allowed)
	}

	if prop.TransformationType != task.TaskType {
		return Reject, fmt.Sprintf("transformation %s does not match task type %s", prop.TransformationType, task.TaskType)
	}

	if prop.Confidence < p.MinConfidence {
		return Reject, fmt.Sprintf("confidence %.2f below floor %.2f", prop.Confidence, p.MinConfidence)
	}

	if prop.ProposedValue == task.CurrentValue {
		return Reject, "proposal is a no-op"
	}

	if p.RequireManualApproval {
		return Hold, "manual approval required by configuration"
	}
	if !p.AutoApplyLowRisk {
		return Hold, "auto-apply disabled"
	}
	if prop.RiskLevel != types.RiskLow {
		return Hold, fmt.Sprintf("%s risk requires manual review", prop.RiskLevel)
	}
	if prop.Confidence < p.AutoApplyConfidence {
		return Hold, fmt.Sprintf("confidence %.2f below auto-apply bar %.2f", prop.Confidence, p.AutoApplyConfidence)
	}
	return Approve, ""
}

// restrictedColumn reports whether a column is limited to repair-style
// transformations and which task type it accepts.
func restrictedColumn(reg registry.Register, col string) (bool, types.TaskType) {
	switch col {
	case reg.NameColumn, reg.AuthorityColumn, "ae_lei_name":
		return true, types.TaskEncodingFix
	case "ae_address":
		return true, types.TaskAddressFix
	}
	return false, ""
}
