package types

import (
	"strings"
	"time"
)

// TaskType identifies the kind of repair an LLM task asks for.
type TaskType string

// Task types. The identifier column is deliberately absent: identifier
// repair is handled by the deterministic cleaner only.
const (
	TaskEncodingFix      TaskType = "ENCODING_FIX"
	TaskDateFix          TaskType = "DATE_FIX"
	TaskCountryNormalize TaskType = "COUNTRY_NORMALIZE"
	TaskWebsiteFix       TaskType = "WEBSITE_FIX"
	TaskAddressFix       TaskType = "ADDRESS_FIX"
)

// RiskLevel classifies how consequential a transformation type is if it
// turns out to be wrong.
type RiskLevel string

// Risk levels.
const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// ValidTaskType reports whether s is a member of the closed task-type enum.
func ValidTaskType(s string) bool {
	switch TaskType(s) {
	case TaskEncodingFix, TaskDateFix, TaskCountryNormalize, TaskWebsiteFix, TaskAddressFix:
		return true
	}
	return false
}

// ValidRiskLevel reports whether s is a member of the closed risk enum.
func ValidRiskLevel(s string) bool {
	switch RiskLevel(s) {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// RowIdentifier names one logical row in the cleaned CSV in a way that
// survives the duplicate-identifier merge. LEI is the primary key; the
// (LEI, authority, service country) composite disambiguates duplicate
// LEIs; SyntheticID is a deterministic hash fallback for rows without one.
type RowIdentifier struct {
	LEI            string `json:"lei,omitempty"`
	Authority      string `json:"authority,omitempty"`
	ServiceCountry string `json:"service_country,omitempty"`
	SyntheticID    string `json:"synthetic_id,omitempty"`
}

// Key renders the identifier as a stable string for logs and dedup.
func (r RowIdentifier) Key() string {
	if r.LEI != "" {
		if r.Authority != "" && r.ServiceCountry != "" {
			return strings.Join([]string{r.LEI, r.Authority, r.ServiceCountry}, "|")
		}
		return r.LEI
	}
	if r.SyntheticID != "" {
		return r.SyntheticID
	}
	return "unknown"
}

// RemediationTask is one minimal, privacy-bounded unit of work for the LLM
// client. Context holds only allowlisted columns with capped lengths; the
// provider never sees a full row or file.
type RemediationTask struct {
	TaskID           string            `json:"task_id"`
	TaskType         TaskType          `json:"task_type"`
	RowIdentifier    RowIdentifier     `json:"row_identifier"`
	Column           string            `json:"column"`
	CurrentValue     string            `json:"current_value"`
	IssueDescription string            `json:"issue_description"`
	Context          map[string]string `json:"context"`
	Severity         Severity          `json:"severity"`
	IssueCode        string            `json:"issue_code"`
	RowNumber        int               `json:"row_number"`
}

// TaskList is the JSON artifact produced by the task generator.
type TaskList struct {
	Version     int               `json:"version"`
	GeneratedAt time.Time         `json:"generated_at"`
	InputFile   string            `json:"input_file"`
	Register    string            `json:"register"`
	Tasks       []RemediationTask `json:"tasks"`
}

// Proposal is one LLM-suggested fix for a task. Validator tags enforce the
// output contract before a proposal may reach the policy engine.
type Proposal struct {
	TaskID             string    `json:"task_id" validate:"required"`
	ProposedValue      string    `json:"proposed_value" validate:"max=1000"`
	Confidence         float64   `json:"confidence" validate:"gte=0,lte=1"`
	Reasoning          string    `json:"reasoning" validate:"max=500"`
	TransformationType TaskType  `json:"transformation_type" validate:"required,oneof=ENCODING_FIX DATE_FIX COUNTRY_NORMALIZE WEBSITE_FIX ADDRESS_FIX"`
	RiskLevel          RiskLevel `json:"risk_level" validate:"required,oneof=LOW MEDIUM HIGH"`
}

// RemediationPatch collects the proposals for one batch of tasks along with
// provider metadata naming the models attempted and the one actually used.
type RemediationPatch struct {
	PatchID     string     `json:"patch_id"`
	GeneratedAt time.Time  `json:"generated_at"`
	Provider    string     `json:"provider"`
	ModelUsed   string     `json:"model_used"`
	ModelsTried []string   `json:"models_tried"`
	Proposals   []Proposal `json:"proposals"`
	TasksTotal  int        `json:"tasks_total"`
}

// AppliedChange records one proposal that was written into the CSV.
type AppliedChange struct {
	TaskID             string    `json:"task_id"`
	Column             string    `json:"column"`
	Row                int       `json:"row"`
	OldValue           string    `json:"old_value"`
	NewValue           string    `json:"new_value"`
	Confidence         float64   `json:"confidence"`
	Reasoning          string    `json:"reasoning"`
	TransformationType TaskType  `json:"transformation_type"`
	RiskLevel          RiskLevel `json:"risk_level"`
}

// RejectedChange records one proposal turned away by policy or by row
// resolution, with the reason kept for audit.
type RejectedChange struct {
	TaskID        string  `json:"task_id"`
	Column        string  `json:"column,omitempty"`
	CurrentValue  string  `json:"current_value,omitempty"`
	ProposedValue string  `json:"proposed_value,omitempty"`
	Reason        string  `json:"reason"`
	Confidence    float64 `json:"confidence,omitempty"`
}

// ApplyReport is the audit artifact of one patch application. Every task
// from the list lands in exactly one bucket: Applied, Rejected, Skipped
// (held for manual review) or NoProposal (the patch never answered it).
type ApplyReport struct {
	Version     int              `json:"version"`
	PatchID     string           `json:"patch_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	InputFile   string           `json:"input_file"`
	OutputFile  string           `json:"output_file"`
	Applied     []AppliedChange  `json:"applied"`
	Rejected    []RejectedChange `json:"rejected"`
	Skipped     []string         `json:"skipped"`
	NoProposal  []string         `json:"no_proposal"`
	Errors      []string         `json:"errors"`
}
