package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/regdata/register-pipeline/internal/artifacts"
	"github.com/regdata/register-pipeline/internal/config"
	"github.com/regdata/register-pipeline/internal/observability"
	"github.com/regdata/register-pipeline/internal/registry"
	"github.com/regdata/register-pipeline/internal/remediation"
	"github.com/regdata/register-pipeline/internal/schemas"
	"github.com/regdata/register-pipeline/internal/table"
	"github.com/regdata/register-pipeline/internal/types"
)

var applyCmd = &cobra.Command{
	Use:   "apply-patch",
	Short: "Apply a remediation patch under guardrail policy",
	Long: "Apply the proposals of a remediation patch to a cleaned CSV. Every " +
		"proposal passes the guardrail policy; the audit report records each decision.",
	RunE: runApplyPatch,
}

var (
	applyInput    string
	applyRegister string
	applyTasks    string
	applyPatch    string
	applyOutput   string
	applyReport   string
	applyConfig   string
	applyVerbose  bool
)

func init() {
	applyCmd.Flags().StringVarP(&applyInput, "in", "i", "", "Path to cleaned register CSV (required)")
	applyCmd.Flags().StringVarP(&applyRegister, "register", "r", "", "Register type: casp, other, art, emt, ncasp (required)")
	applyCmd.Flags().StringVarP(&applyTasks, "tasks", "t", "", "Path to task list JSON (required)")
	applyCmd.Flags().StringVarP(&applyPatch, "patch", "p", "", "Path to patch JSON (required)")
	applyCmd.Flags().StringVarP(&applyOutput, "out", "o", "", "Path to write the patched CSV (required)")
	applyCmd.Flags().StringVar(&applyReport, "report", "", "Path to write the apply report JSON")
	applyCmd.Flags().StringVar(&applyConfig, "config", "", "Path to JSON config file")
	applyCmd.Flags().BoolVarP(&applyVerbose, "verbose", "v", false, "Print the apply summary")
	_ = applyCmd.MarkFlagRequired("in")
	_ = applyCmd.MarkFlagRequired("register")
	_ = applyCmd.MarkFlagRequired("tasks")
	_ = applyCmd.MarkFlagRequired("patch")
	_ = applyCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(applyCmd)
}

func runApplyPatch(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(applyConfig)
	if err != nil {
		return err
	}
	reg, err := registry.Get(applyRegister)
	if err != nil {
		return err
	}

	t, _, err := table.ReadFile(applyInput)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	var list types.TaskList
	if err := artifacts.ReadJSON(applyTasks, &list); err != nil {
		return fmt.Errorf("failed to read task list: %w", err)
	}
	var patch types.RemediationPatch
	if err := artifacts.ReadJSON(applyPatch, &patch); err != nil {
		return fmt.Errorf("failed to read patch: %w", err)
	}

	policy := remediation.Policy{
		MinConfidence:         cfg.MinConfidence,
		AutoApplyConfidence:   cfg.AutoApplyConfidence,
		AutoApplyLowRisk:      cfg.AutoApply(),
		RequireManualApproval: cfg.RequireManualApproval,
	}
	patched, report := remediation.ApplyPatch(t, reg, list, patch, policy)
	report.InputFile = applyInput
	report.OutputFile = applyOutput

	if err := artifacts.WriteAtomic(applyOutput, patched.Write); err != nil {
		return fmt.Errorf("failed to write patched CSV: %w", err)
	}
	if applyReport != "" {
		if err := artifacts.WriteJSON(applyReport, report); err != nil {
			return fmt.Errorf("failed to write apply report: %w", err)
		}
		if err := checkArtifact(schemas.ApplyReport, applyReport); err != nil {
			return err
		}
	}

	if applyVerbose {
		observability.NewPrinter(os.Stdout).PrintApplyReport(&report)
	}
	fmt.Printf("Applied %d, rejected %d, held %d, unanswered %d -> %s\n",
		len(report.Applied), len(report.Rejected), len(report.Skipped),
		len(report.NoProposal), applyOutput)
	return nil
}
