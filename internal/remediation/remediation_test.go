package remediation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regdata/register-pipeline/internal/registry"
	"github.com/regdata/register-pipeline/internal/table"
	"github.com/regdata/register-pipeline/internal/types"
)

const (
	validLEI      = "529900T8BM49AURSDO55"
	otherValidLEI = "5493001KJTIIGC8Y1R12"
)

func caspRegister(t *testing.T) registry.Register {
	t.Helper()
	reg, err := registry.Get("casp")
	require.NoError(t, err)
	return reg
}

func testTable(rows ...[]string) *table.Table {
	header := []string{
		"ae_lei", "ae_commercial_name", "ae_address", "ae_website",
		"ae_competentAuthority", "ac_serviceCode", "ac_serviceCode_cou",
		"ac_authorisationNotificationDate", "ac_lastupdate",
	}
	return table.New(header, rows)
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("task-%04d", n)
	}
}

func TestGenerateTasksMapsIssueCodes(t *testing.T) {
	tbl := testTable(
		[]string{validLEI, "Alpha", "", "", "BaFin", "a", "DE", "bad date", "01/02/2024"},
	)
	issues := []types.Issue{
		{Severity: types.SeverityError, Code: types.CodeDateUnparsable,
			Message: "unparseable date", Column: "ac_authorisationNotificationDate", Rows: []int{2}},
		{Severity: types.SeverityError, Code: types.CodeLEIInvalidFormat,
			Message: "bad lei", Column: "ae_lei", Rows: []int{2}},
		{Severity: types.SeverityError, Code: types.CodeSchemaMissingColumn,
			Message: "missing", Rows: nil},
	}

	list := GenerateTasks(tbl, caspRegister(t), issues, "cleaned.csv", GeneratorOptions{NewID: sequentialIDs()})

	// Identifier and schema findings never become LLM tasks.
	require.Len(t, list.Tasks, 1)
	task := list.Tasks[0]
	assert.Equal(t, types.TaskDateFix, task.TaskType)
	assert.Equal(t, "ac_authorisationNotificationDate", task.Column)
	assert.Equal(t, "bad date", task.CurrentValue)
	assert.Equal(t, types.CodeDateUnparsable, task.IssueCode)
	assert.Equal(t, 2, task.RowNumber)
	assert.Equal(t, validLEI, task.RowIdentifier.LEI)
	assert.Empty(t, task.RowIdentifier.Authority)
}

func TestGenerateTasksContextIsAllowlistedAndCapped(t *testing.T) {
	longName := ""
	for i := 0; i < 60; i++ {
		longName += "0123456789"
	}
	tbl := testTable(
		[]string{validLEI, longName, "Secret Street 1", "https://a.example",
			"BaFin", "a", "DE", "32/13/2024", "01/02/2024"},
	)
	issues := []types.Issue{
		{Severity: types.SeverityError, Code: types.CodeDateUnparsable,
			Message: "unparseable", Column: "ac_authorisationNotificationDate", Rows: []int{2}},
	}

	list := GenerateTasks(tbl, caspRegister(t), issues, "cleaned.csv", GeneratorOptions{NewID: sequentialIDs()})

	require.Len(t, list.Tasks, 1)
	ctx := list.Tasks[0].Context
	// The address is not on the date-fix allowlist.
	assert.NotContains(t, ctx, "ae_address")
	assert.NotContains(t, ctx, "ae_website")
	// The task's own column never rides along as context.
	assert.NotContains(t, ctx, "ac_authorisationNotificationDate")
	require.Contains(t, ctx, "ae_commercial_name")
	assert.Len(t, ctx["ae_commercial_name"], maxContextPerColumn)
}

func TestGenerateTasksHonorsTaskCap(t *testing.T) {
	var rows [][]string
	var issueRows []int
	for i := 0; i < 10; i++ {
		rows = append(rows, []string{validLEI, "Alpha", "", "", "BaFin", "a", "DE", "bad", "01/02/2024"})
		issueRows = append(issueRows, i+2)
	}
	tbl := testTable(rows...)
	issues := []types.Issue{
		{Severity: types.SeverityError, Code: types.CodeDateUnparsable,
			Message: "unparseable", Column: "ac_authorisationNotificationDate", Rows: issueRows},
	}

	list := GenerateTasks(tbl, caspRegister(t), issues, "cleaned.csv",
		GeneratorOptions{MaxTasks: 3, NewID: sequentialIDs()})

	assert.Len(t, list.Tasks, 3)
}

func TestIdentifyRowDisambiguatesDuplicateLEIs(t *testing.T) {
	tbl := testTable(
		[]string{validLEI, "Alpha", "", "", "BaFin", "a", "DE", "01/02/2024", "01/02/2024"},
		[]string{validLEI, "Alpha", "", "", "AMF", "a", "FR", "01/02/2024", "01/02/2024"},
		[]string{"not-a-lei", "Beta", "", "", "CNMV", "a", "ES", "01/02/2024", "01/02/2024"},
	)
	reg := caspRegister(t)
	counts := countLEIs(tbl)

	dup := identifyRow(tbl, reg, 1, counts)
	assert.Equal(t, validLEI, dup.LEI)
	assert.Equal(t, "AMF", dup.Authority)
	assert.Equal(t, "FR", dup.ServiceCountry)

	synth := identifyRow(tbl, reg, 2, counts)
	assert.Empty(t, synth.LEI)
	assert.Len(t, synth.SyntheticID, 16)
	// Deterministic across calls.
	assert.Equal(t, synth, identifyRow(tbl, reg, 2, counts))
}

func TestResolveRow(t *testing.T) {
	tbl := testTable(
		[]string{validLEI, "Alpha", "", "", "BaFin", "a", "DE", "01/02/2024", "01/02/2024"},
		[]string{validLEI, "Alpha", "", "", "AMF", "a", "FR", "01/02/2024", "01/02/2024"},
		[]string{otherValidLEI, "Beta", "", "", "CNMV", "a", "ES", "01/02/2024", "01/02/2024"},
	)
	reg := caspRegister(t)

	t.Run("unique LEI", func(t *testing.T) {
		row, err := ResolveRow(tbl, reg, types.RowIdentifier{LEI: otherValidLEI})
		require.NoError(t, err)
		assert.Equal(t, 2, row)
	})

	t.Run("ambiguous LEI is refused", func(t *testing.T) {
		_, err := ResolveRow(tbl, reg, types.RowIdentifier{LEI: validLEI})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ambiguous")
	})

	t.Run("composite disambiguates", func(t *testing.T) {
		row, err := ResolveRow(tbl, reg, types.RowIdentifier{
			LEI: validLEI, Authority: "AMF", ServiceCountry: "FR",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, row)
	})

	t.Run("no match is refused", func(t *testing.T) {
		_, err := ResolveRow(tbl, reg, types.RowIdentifier{LEI: "5299009ZZZZZZZZZZZ55"})
		require.Error(t, err)
	})

	t.Run("synthetic id", func(t *testing.T) {
		id := types.RowIdentifier{SyntheticID: syntheticRowID(tbl, reg, 2)}
		row, err := ResolveRow(tbl, reg, id)
		require.NoError(t, err)
		assert.Equal(t, 2, row)
	})
}

func TestSyntheticIDsDistinguishIdenticalRows(t *testing.T) {
	// Two byte-identical rows without a usable LEI must still get
	// distinct identifiers, each resolving back to its own row.
	tbl := testTable(
		[]string{"", "Alpha", "Main St 1", "", "BaFin", "a", "DE", "bad", "01/02/2024"},
		[]string{"", "Alpha", "Main St 1", "", "BaFin", "a", "DE", "bad", "01/02/2024"},
	)
	reg := caspRegister(t)
	counts := countLEIs(tbl)

	first := identifyRow(tbl, reg, 0, counts)
	second := identifyRow(tbl, reg, 1, counts)
	require.NotEmpty(t, first.SyntheticID)
	assert.NotEqual(t, first.SyntheticID, second.SyntheticID)

	row, err := ResolveRow(tbl, reg, first)
	require.NoError(t, err)
	assert.Equal(t, 0, row)

	row, err = ResolveRow(tbl, reg, second)
	require.NoError(t, err)
	assert.Equal(t, 1, row)
}

func policyTask(column string, taskType types.TaskType, current string) types.RemediationTask {
	return types.RemediationTask{
		TaskID:       "task-1",
		TaskType:     taskType,
		Column:       column,
		CurrentValue: current,
	}
}

func policyProposal(taskType types.TaskType, value string, confidence float64, risk types.RiskLevel) types.Proposal {
	return types.Proposal{
		TaskID:             "task-1",
		ProposedValue:      value,
		Confidence:         confidence,
		Reasoning:          "test",
		TransformationType: taskType,
		RiskLevel:          risk,
	}
}

func TestPolicyRejectsIdentifierChanges(t *testing.T) {
	pol := DefaultPolicy()
	task := policyTask("ae_lei", types.TaskEncodingFix, "529900T8BM49AURSDO5_")
	prop := policyProposal(types.TaskEncodingFix, validLEI, 0.99, types.RiskLow)

	decision, reason := pol.Evaluate(caspRegister(t), task, prop)
	assert.Equal(t, Reject, decision)
	assert.Contains(t, reason, "identifier")
}

func TestPolicyRejectsFabrication(t *testing.T) {
	pol := DefaultPolicy()
	task := policyTask("ae_website", types.TaskWebsiteFix, "")
	prop := policyProposal(types.TaskWebsiteFix, "https://invented.example", 0.95, types.RiskLow)

	decision, reason := pol.Evaluate(caspRegister(t), task, prop)
	assert.Equal(t, Reject, decision)
	assert.Contains(t, reason, "fabricates")
}

func TestPolicyRestrictsNameColumnToEncodingRepair(t *testing.T) {
	pol := DefaultPolicy()
	task := policyTask("ae_commercial_name", types.TaskAddressFix, "Alpha GmbH")
	prop := policyProposal(types.TaskAddressFix, "Alpha Holdings GmbH", 0.95, types.RiskLow)

	decision, _ := pol.Evaluate(caspRegister(t), task, prop)
	assert.Equal(t, Reject, decision)
}

func TestPolicyRejectsLowConfidence(t *testing.T) {
	pol := DefaultPolicy()
	task := policyTask("ac_authorisationNotificationDate", types.TaskDateFix, "bad date")
	prop := policyProposal(types.TaskDateFix, "01/02/2024", 0.3, types.RiskLow)

	decision, reason := pol.Evaluate(caspRegister(t), task, prop)
	assert.Equal(t, Reject, decision)
	assert.Contains(t, reason, "below floor")
}

func TestPolicyHoldsNonLowRisk(t *testing.T) {
	pol := DefaultPolicy()
	task := policyTask("ac_authorisationNotificationDate", types.TaskDateFix, "bad date")
	prop := policyProposal(types.TaskDateFix, "01/02/2024", 0.95, types.RiskMedium)

	decision, reason := pol.Evaluate(caspRegister(t), task, prop)
	assert.Equal(t, Hold, decision)
	assert.Contains(t, reason, "manual review")
}

func TestPolicyHoldsBelowAutoApplyBar(t *testing.T) {
	pol := DefaultPolicy()
	task := policyTask("ac_authorisationNotificationDate", types.TaskDateFix, "bad date")
	prop := policyProposal(types.TaskDateFix, "01/02/2024", 0.7, types.RiskLow)

	decision, _ := pol.Evaluate(caspRegister(t), task, prop)
	assert.Equal(t, Hold, decision)
}

func TestPolicyManualApprovalOverridesAutoApply(t *testing.T) {
	pol := DefaultPolicy()
	pol.RequireManualApproval = true
	task := policyTask("ac_authorisationNotificationDate", types.TaskDateFix, "bad date")
	prop := policyProposal(types.TaskDateFix, "01/02/2024", 0.99, types.RiskLow)

	decision, _ := pol.Evaluate(caspRegister(t), task, prop)
	assert.Equal(t, Hold, decision)
}

func TestPolicyApprovesHighConfidenceLowRisk(t *testing.T) {
	pol := DefaultPolicy()
	task := policyTask("ac_authorisationNotificationDate", types.TaskDateFix, "01/02/.2024")
	prop := policyProposal(types.TaskDateFix, "01/02/2024", 0.95, types.RiskLow)

	decision, reason := pol.Evaluate(caspRegister(t), task, prop)
	assert.Equal(t, Approve, decision, reason)
}

func TestApplyPatch(t *testing.T) {
	tbl := testTable(
		[]string{validLEI, "Alpha", "", "", "BaFin", "a", "DE", "bad date", "01/02/2024"},
		[]string{otherValidLEI, "Beta", "", "", "AMF", "a", "FR", "02/03/2024", "01/02/2024"},
	)
	reg := caspRegister(t)

	dateTask := types.RemediationTask{
		TaskID:        "task-date",
		TaskType:      types.TaskDateFix,
		RowIdentifier: types.RowIdentifier{LEI: validLEI},
		Column:        "ac_authorisationNotificationDate",
		CurrentValue:  "bad date",
		RowNumber:     2,
	}
	list := types.TaskList{Tasks: []types.RemediationTask{dateTask}}
	patch := types.RemediationPatch{
		PatchID: "patch-1",
		Proposals: []types.Proposal{
			{TaskID: "task-date", ProposedValue: "01/02/2024", Confidence: 0.95,
				Reasoning: "digits reordered", TransformationType: types.TaskDateFix, RiskLevel: types.RiskLow},
			{TaskID: "task-unknown", ProposedValue: "x", Confidence: 0.9,
				TransformationType: types.TaskDateFix, RiskLevel: types.RiskLow},
		},
	}

	out, report := ApplyPatch(tbl, reg, list, patch, DefaultPolicy())

	require.Len(t, report.Applied, 1)
	assert.Equal(t, "01/02/2024", out.Get(0, "ac_authorisationNotificationDate"))
	// Input untouched.
	assert.Equal(t, "bad date", tbl.Get(0, "ac_authorisationNotificationDate"))

	require.Len(t, report.Rejected, 1)
	assert.Equal(t, "task-unknown", report.Rejected[0].TaskID)
	assert.Equal(t, "patch-1", report.PatchID)
}

func TestApplyPatchRejectsAmbiguousRows(t *testing.T) {
	tbl := testTable(
		[]string{validLEI, "Alpha", "", "", "BaFin", "a", "DE", "bad", "01/02/2024"},
		[]string{validLEI, "Alpha", "", "", "BaFin", "a", "DE", "bad", "01/02/2024"},
	)
	reg := caspRegister(t)

	task := types.RemediationTask{
		TaskID:        "task-1",
		TaskType:      types.TaskDateFix,
		RowIdentifier: types.RowIdentifier{LEI: validLEI},
		Column:        "ac_authorisationNotificationDate",
		CurrentValue:  "bad",
	}
	patch := types.RemediationPatch{Proposals: []types.Proposal{
		{TaskID: "task-1", ProposedValue: "01/02/2024", Confidence: 0.95,
			TransformationType: types.TaskDateFix, RiskLevel: types.RiskLow},
	}}

	out, report := ApplyPatch(tbl, reg, types.TaskList{Tasks: []types.RemediationTask{task}}, patch, DefaultPolicy())

	assert.Empty(t, report.Applied)
	require.Len(t, report.Rejected, 1)
	assert.Contains(t, report.Rejected[0].Reason, "row resolution failed")
	assert.Equal(t, "bad", out.Get(0, "ac_authorisationNotificationDate"))
}

func TestApplyPatchRejectsStaleSnapshot(t *testing.T) {
	tbl := testTable(
		[]string{validLEI, "Alpha", "", "", "BaFin", "a", "DE", "already fixed", "01/02/2024"},
	)
	reg := caspRegister(t)

	task := types.RemediationTask{
		TaskID:        "task-1",
		TaskType:      types.TaskDateFix,
		RowIdentifier: types.RowIdentifier{LEI: validLEI},
		Column:        "ac_authorisationNotificationDate",
		CurrentValue:  "bad date",
	}
	patch := types.RemediationPatch{Proposals: []types.Proposal{
		{TaskID: "task-1", ProposedValue: "01/02/2024", Confidence: 0.95,
			TransformationType: types.TaskDateFix, RiskLevel: types.RiskLow},
	}}

	_, report := ApplyPatch(tbl, reg, types.TaskList{Tasks: []types.RemediationTask{task}}, patch, DefaultPolicy())

	assert.Empty(t, report.Applied)
	require.Len(t, report.Rejected, 1)
	assert.Contains(t, report.Rejected[0].Reason, "snapshot")
}

func TestApplyPatchHoldsForManualReview(t *testing.T) {
	tbl := testTable(
		[]string{validLEI, "Alpha", "", "", "BaFin", "a", "DE", "bad", "01/02/2024"},
	)
	reg := caspRegister(t)

	task := types.RemediationTask{
		TaskID:        "task-1",
		TaskType:      types.TaskDateFix,
		RowIdentifier: types.RowIdentifier{LEI: validLEI},
		Column:        "ac_authorisationNotificationDate",
		CurrentValue:  "bad",
	}
	patch := types.RemediationPatch{Proposals: []types.Proposal{
		{TaskID: "task-1", ProposedValue: "01/02/2024", Confidence: 0.95,
			TransformationType: types.TaskDateFix, RiskLevel: types.RiskMedium},
	}}

	out, report := ApplyPatch(tbl, reg, types.TaskList{Tasks: []types.RemediationTask{task}}, patch, DefaultPolicy())

	assert.Empty(t, report.Applied)
	assert.Equal(t, []string{"task-1"}, report.Skipped)
	assert.Equal(t, "bad", out.Get(0, "ac_authorisationNotificationDate"))
}

func TestApplyPatchRecordsUnansweredTasks(t *testing.T) {
	tbl := testTable(
		[]string{validLEI, "Alpha", "", "", "BaFin", "a", "DE", "bad date", "01/02/2024"},
		[]string{otherValidLEI, "Beta", "", "", "AMF", "a", "FR", "also bad", "01/02/2024"},
	)
	reg := caspRegister(t)

	answered := types.RemediationTask{
		TaskID:        "task-answered",
		TaskType:      types.TaskDateFix,
		RowIdentifier: types.RowIdentifier{LEI: validLEI},
		Column:        "ac_authorisationNotificationDate",
		CurrentValue:  "bad date",
	}
	unanswered := types.RemediationTask{
		TaskID:        "task-unanswered",
		TaskType:      types.TaskDateFix,
		RowIdentifier: types.RowIdentifier{LEI: otherValidLEI},
		Column:        "ac_authorisationNotificationDate",
		CurrentValue:  "also bad",
	}
	list := types.TaskList{Tasks: []types.RemediationTask{answered, unanswered}}
	patch := types.RemediationPatch{Proposals: []types.Proposal{
		{TaskID: "task-answered", ProposedValue: "01/02/2024", Confidence: 0.95,
			TransformationType: types.TaskDateFix, RiskLevel: types.RiskMedium},
	}}

	_, report := ApplyPatch(tbl, reg, list, patch, DefaultPolicy())

	// A held proposal and a task the patch never answered are different
	// audit outcomes.
	assert.Equal(t, []string{"task-answered"}, report.Skipped)
	assert.Equal(t, []string{"task-unanswered"}, report.NoProposal)
	assert.Empty(t, report.Applied)
}

func TestGenerateTasksHonorsContextColumnOverrides(t *testing.T) {
	tbl := testTable(
		[]string{validLEI, "Alpha", "Main St 1", "", "BaFin", "a", "DE", "bad date", "01/02/2024"},
	)
	issues := []types.Issue{
		{Severity: types.SeverityError, Code: types.CodeDateUnparsable,
			Message: "unparseable", Column: "ac_authorisationNotificationDate", Rows: []int{2}},
	}

	list := GenerateTasks(tbl, caspRegister(t), issues, "cleaned.csv", GeneratorOptions{
		NewID:          sequentialIDs(),
		ContextColumns: map[string][]string{"DATE_FIX": {"ae_address"}},
	})

	require.Len(t, list.Tasks, 1)
	ctx := list.Tasks[0].Context
	assert.Equal(t, map[string]string{"ae_address": "Main St 1"}, ctx)

	// An explicit empty list strips the context entirely.
	list = GenerateTasks(tbl, caspRegister(t), issues, "cleaned.csv", GeneratorOptions{
		NewID:          sequentialIDs(),
		ContextColumns: map[string][]string{"DATE_FIX": {}},
	})
	require.Len(t, list.Tasks, 1)
	assert.Empty(t, list.Tasks[0].Context)
}

// fakeProvider serves canned responses per model name.
type fakeProvider struct {
	mu        sync.Mutex
	responses map[string]func(task string) (string, error)
	calls     []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(_ context.Context, model, prompt string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, model)
	f.mu.Unlock()
	fn, ok := f.responses[model]
	if !ok {
		return "", fmt.Errorf("model %s unavailable", model)
	}
	return fn(taskIDFromPrompt(prompt))
}

func (f *fakeProvider) Close() error { return nil }

// taskIDFromPrompt digs the task id out of the rendered prompt's JSON stub.
func taskIDFromPrompt(prompt string) string {
	const marker = `"task_id": "`
	i := strings.Index(prompt, marker)
	if i < 0 {
		return ""
	}
	rest := prompt[i+len(marker):]
	if end := strings.IndexByte(rest, '"'); end >= 0 {
		return rest[:end]
	}
	return rest
}

func cannedProposal(taskID string) (string, error) {
	prop := types.Proposal{
		TaskID:             taskID,
		ProposedValue:      "01/02/2024",
		Confidence:         0.95,
		Reasoning:          "normalized date",
		TransformationType: types.TaskDateFix,
		RiskLevel:          types.RiskLow,
	}
	raw, err := json.Marshal(prop)
	return string(raw), err
}

func runnerTasks(n int) types.TaskList {
	var tasks []types.RemediationTask
	for i := 0; i < n; i++ {
		tasks = append(tasks, types.RemediationTask{
			TaskID:       fmt.Sprintf("task-%d", i),
			TaskType:     types.TaskDateFix,
			Column:       "ac_authorisationNotificationDate",
			CurrentValue: "bad date",
		})
	}
	return types.TaskList{Tasks: tasks}
}

func fastOpts(models ...string) RunnerOptions {
	return RunnerOptions{
		Models:            models,
		Concurrency:       2,
		RequestsPerSecond: 1000,
		Timeout:           time.Second,
	}
}

func TestRunnerCollectsValidProposals(t *testing.T) {
	provider := &fakeProvider{responses: map[string]func(string) (string, error){
		"model-a": cannedProposal,
	}}
	runner := NewRunner(provider, fastOpts("model-a"))

	patch, err := runner.Run(context.Background(), runnerTasks(3))
	require.NoError(t, err)

	assert.Len(t, patch.Proposals, 3)
	assert.Equal(t, "fake", patch.Provider)
	assert.Equal(t, "model-a", patch.ModelUsed)
	assert.Equal(t, []string{"model-a"}, patch.ModelsTried)
	assert.Equal(t, 3, patch.TasksTotal)
}

func TestRunnerFallsBackToNextModel(t *testing.T) {
	provider := &fakeProvider{responses: map[string]func(string) (string, error){
		"model-b": cannedProposal,
	}}
	runner := NewRunner(provider, fastOpts("model-a", "model-b"))

	patch, err := runner.Run(context.Background(), runnerTasks(2))
	require.NoError(t, err)

	assert.Len(t, patch.Proposals, 2)
	assert.Equal(t, "model-b", patch.ModelUsed)
	assert.Equal(t, []string{"model-a", "model-b"}, patch.ModelsTried)
}

func invalidProposal(taskID string) (string, error) {
	// Confidence outside [0, 1] violates the contract.
	return fmt.Sprintf(`{"task_id":%q,"proposed_value":"x","confidence":3,"reasoning":"r","transformation_type":"DATE_FIX","risk_level":"LOW"}`, taskID), nil
}

func TestRunnerFallsBackOnMalformedOutput(t *testing.T) {
	provider := &fakeProvider{responses: map[string]func(string) (string, error){
		"model-a": invalidProposal,
		"model-b": cannedProposal,
	}}
	runner := NewRunner(provider, fastOpts("model-a", "model-b"))

	patch, err := runner.Run(context.Background(), runnerTasks(1))
	require.NoError(t, err)

	require.Len(t, patch.Proposals, 1)
	assert.Equal(t, "model-b", patch.ModelUsed)
	assert.Empty(t, runner.InvalidProposals())
	assert.Empty(t, runner.FailedTasks())
}

func TestRunnerDropsInvalidProposalsAfterChainExhaustion(t *testing.T) {
	provider := &fakeProvider{responses: map[string]func(string) (string, error){
		"model-a": invalidProposal,
		"model-b": invalidProposal,
	}}
	runner := NewRunner(provider, fastOpts("model-a", "model-b"))

	patch, err := runner.Run(context.Background(), runnerTasks(1))

	require.Error(t, err)
	assert.Empty(t, patch.Proposals)
	assert.Equal(t, []string{"task-0"}, runner.InvalidProposals())
	assert.Equal(t, []string{"task-0"}, runner.FailedTasks())
}

func TestRunnerKeepsSiblingsWhenOneTaskFails(t *testing.T) {
	provider := &fakeProvider{responses: map[string]func(string) (string, error){
		"model-a": func(taskID string) (string, error) {
			if taskID == "task-0" {
				return "", fmt.Errorf("server overloaded")
			}
			return cannedProposal(taskID)
		},
	}}
	runner := NewRunner(provider, fastOpts("model-a"))

	patch, err := runner.Run(context.Background(), runnerTasks(4))
	require.NoError(t, err)

	require.Len(t, patch.Proposals, 3)
	for _, prop := range patch.Proposals {
		assert.NotEqual(t, "task-0", prop.TaskID)
	}
	assert.Equal(t, []string{"task-0"}, runner.FailedTasks())
}

func TestRunnerSurfacesWholeChainFailure(t *testing.T) {
	provider := &fakeProvider{responses: map[string]func(string) (string, error){}}
	runner := NewRunner(provider, fastOpts("model-a", "model-b"))

	patch, err := runner.Run(context.Background(), runnerTasks(1))

	require.Error(t, err)
	assert.Empty(t, patch.Proposals)
	assert.Equal(t, []string{"task-0"}, runner.FailedTasks())
}
