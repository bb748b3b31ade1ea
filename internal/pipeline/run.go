// Package pipeline provides the high-level orchestration for the register
// cleaning process: validate, clean deterministically, remediate residual
// findings through an LLM provider, apply the patch under policy, and
// validate the final output.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/regdata/register-pipeline/internal/artifacts"
	"github.com/regdata/register-pipeline/internal/cleaning"
	"github.com/regdata/register-pipeline/internal/config"
	"github.com/regdata/register-pipeline/internal/observability"
	"github.com/regdata/register-pipeline/internal/registry"
	"github.com/regdata/register-pipeline/internal/remediation"
	"github.com/regdata/register-pipeline/internal/table"
	"github.com/regdata/register-pipeline/internal/types"
	"github.com/regdata/register-pipeline/internal/validation"
)

// uncappedExamples keeps full row lists during the internal validation pass
// that feeds task generation. Report artifacts stay capped.
const uncappedExamples = 1 << 20

// RunOptions holds configuration for running the pipeline.
type RunOptions struct {
	InputFile string
	Register  string
	OutDir    string
	Config    *config.Config
	// Provider serves LLM remediation. Nil skips the remediation stages:
	// the cleaned CSV becomes the final output.
	Provider remediation.Provider
	Verbose  bool
}

// Result names the artifacts one pipeline run produced.
type Result struct {
	ValidationReport  string
	CleanedCSV        string
	CleaningReport    string
	CleanValidation   string
	TaskList          string
	Patch             string
	ApplyReport       string
	FinalCSV          string
	FinalValidation   string
	Outcome           types.Outcome
	RemediationFailed bool
}

// Run executes the full pipeline. A remediation failure does not destroy
// work: the cleaned CSV and every artifact written so far stay on disk, the
// cleaned file doubles as the final output, and the error is returned after
// final validation so callers can report it.
func Run(ctx context.Context, opts RunOptions) (*Result, error) {
	reg, err := registry.Get(opts.Register)
	if err != nil {
		return nil, err
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.OutDir == "" {
		opts.OutDir = "."
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	printer := observability.NewPrinter(os.Stdout)
	base := strings.TrimSuffix(filepath.Base(opts.InputFile), filepath.Ext(opts.InputFile))
	result := &Result{}

	// Step 1: validate the raw extract.
	fmt.Printf("Step 1/5: Validating %s...\n", opts.InputFile)
	rawReport, rawTable, err := validation.ValidateFile(opts.InputFile, reg, validation.Options{
		MaxExamples: cfg.MaxExamples,
		Strict:      cfg.Strict,
	})
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	result.ValidationReport = filepath.Join(opts.OutDir, base+"_validation.json")
	if err := artifacts.WriteJSON(result.ValidationReport, rawReport); err != nil {
		return nil, fmt.Errorf("failed to write validation report: %w", err)
	}
	if opts.Verbose {
		printer.PrintValidationReport(rawReport)
	}

	// Step 2: deterministic cleaning.
	fmt.Printf("Step 2/5: Cleaning...\n")
	cleanResult := cleaning.Clean(rawTable, reg)
	result.CleanedCSV = filepath.Join(opts.OutDir, base+"_clean.csv")
	if err := writeCSV(result.CleanedCSV, cleanResult.Table); err != nil {
		return nil, fmt.Errorf("failed to write cleaned CSV: %w", err)
	}

	cleanReport := &types.CleaningReport{
		Version:     types.ReportVersion,
		GeneratedAt: artifacts.Now(),
		InputFile:   opts.InputFile,
		OutputFile:  result.CleanedCSV,
		Register:    string(reg.Type),
		Encoding:    rawReport.Encoding,
		Stats: types.CleaningStats{
			RowsBefore: cleanResult.RowsBefore,
			RowsAfter:  cleanResult.RowsAfter,
			Columns:    len(cleanResult.Table.Header),
		},
		Changes: cleanResult.Changes,
		Flags:   cleanResult.Flags,
	}
	cleanReport.Summarize()
	result.CleaningReport = filepath.Join(opts.OutDir, base+"_cleaning.json")
	if err := artifacts.WriteJSON(result.CleaningReport, cleanReport); err != nil {
		return nil, fmt.Errorf("failed to write cleaning report: %w", err)
	}
	if opts.Verbose {
		printer.PrintCleaningReport(cleanReport)
	}

	// Step 3: re-validate the cleaned file and derive remediation tasks
	// from the residual findings.
	fmt.Printf("Step 3/5: Re-validating cleaned output...\n")
	cleanValidation := validation.Validate(cleanResult.Table, rawReport.Encoding, reg, validation.Options{
		MaxExamples: cfg.MaxExamples,
		Strict:      cfg.Strict,
	})
	cleanValidation.InputFile = result.CleanedCSV
	result.CleanValidation = filepath.Join(opts.OutDir, base+"_clean_validation.json")
	if err := artifacts.WriteJSON(result.CleanValidation, cleanValidation); err != nil {
		return nil, fmt.Errorf("failed to write post-clean validation report: %w", err)
	}

	residual := validation.Validate(cleanResult.Table, rawReport.Encoding, reg, validation.Options{
		MaxExamples: uncappedExamples,
	})
	tasks := remediation.GenerateTasks(cleanResult.Table, reg, residual.Issues, result.CleanedCSV,
		remediation.GeneratorOptions{MaxTasks: cfg.MaxTasks, ContextColumns: cfg.ContextColumns})
	result.TaskList = filepath.Join(opts.OutDir, base+"_tasks.json")
	if err := artifacts.WriteJSON(result.TaskList, tasks); err != nil {
		return nil, fmt.Errorf("failed to write task list: %w", err)
	}
	if opts.Verbose {
		printer.PrintTaskList(&tasks)
	}

	finalTable := cleanResult.Table

	// Steps 4-5: LLM remediation and guarded application.
	if opts.Provider != nil && len(tasks.Tasks) > 0 {
		fmt.Printf("Step 4/5: Remediating %d tasks via %s...\n", len(tasks.Tasks), opts.Provider.Name())
		runner := remediation.NewRunner(opts.Provider, remediation.RunnerOptions{
			Models:            cfg.Models,
			Concurrency:       cfg.Concurrency,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Timeout:           cfg.Timeout(),
		})
		patch, runErr := runner.Run(ctx, tasks)
		if runErr != nil {
			// Nothing usable came back; the cleaned CSV stays
			// authoritative and the error is reported after final
			// validation.
			fmt.Printf("Warning: remediation failed, keeping cleaned output: %v\n", runErr)
			result.RemediationFailed = true
			err = finalize(result, opts, cfg, reg, finalTable, base)
			if err != nil {
				return result, err
			}
			return result, fmt.Errorf("remediation failed: %w", runErr)
		}
		if failed := runner.FailedTasks(); len(failed) > 0 {
			// Exhausted tasks keep their findings; the rest of the
			// patch still applies.
			fmt.Printf("Warning: %d of %d tasks produced no proposal: %s\n",
				len(failed), len(tasks.Tasks), strings.Join(failed, ", "))
		}
		result.Patch = filepath.Join(opts.OutDir, base+"_patch.json")
		if err := artifacts.WriteJSON(result.Patch, patch); err != nil {
			return nil, fmt.Errorf("failed to write patch: %w", err)
		}
		if opts.Verbose {
			printer.PrintPatch(&patch)
		}

		fmt.Printf("Step 5/5: Applying patch under policy...\n")
		policy := remediation.Policy{
			MinConfidence:         cfg.MinConfidence,
			AutoApplyConfidence:   cfg.AutoApplyConfidence,
			AutoApplyLowRisk:      cfg.AutoApply(),
			RequireManualApproval: cfg.RequireManualApproval,
		}
		patched, applyReport := remediation.ApplyPatch(finalTable, reg, tasks, patch, policy)
		applyReport.InputFile = result.CleanedCSV
		finalTable = patched

		result.ApplyReport = filepath.Join(opts.OutDir, base+"_apply.json")
		result.FinalCSV = filepath.Join(opts.OutDir, base+"_final.csv")
		applyReport.OutputFile = result.FinalCSV
		if err := artifacts.WriteJSON(result.ApplyReport, applyReport); err != nil {
			return nil, fmt.Errorf("failed to write apply report: %w", err)
		}
		if opts.Verbose {
			printer.PrintApplyReport(&applyReport)
		}
	} else {
		fmt.Printf("Steps 4-5/5: No remediation (no provider or no tasks); cleaned output is final.\n")
	}

	if err := finalize(result, opts, cfg, reg, finalTable, base); err != nil {
		return result, err
	}
	// A patched file that still fails validation must not pass as
	// import-ready; the cleaned CSV stays the last known-good artifact.
	if result.ApplyReport != "" && result.Outcome == types.OutcomeErrors {
		return result, fmt.Errorf("final validation still reports errors after patch application; %s remains the last valid artifact", result.CleanedCSV)
	}
	return result, nil
}

// finalize writes the final CSV and runs the last validation pass over it.
func finalize(result *Result, opts RunOptions, cfg *config.Config, reg registry.Register, t *table.Table, base string) error {
	if result.FinalCSV == "" {
		result.FinalCSV = filepath.Join(opts.OutDir, base+"_final.csv")
	}
	if err := writeCSV(result.FinalCSV, t); err != nil {
		return fmt.Errorf("failed to write final CSV: %w", err)
	}

	finalReport, _, err := validation.ValidateFile(result.FinalCSV, reg, validation.Options{
		MaxExamples: cfg.MaxExamples,
		Strict:      cfg.Strict,
	})
	if err != nil {
		return fmt.Errorf("final validation failed: %w", err)
	}
	result.FinalValidation = filepath.Join(opts.OutDir, base+"_final_validation.json")
	if err := artifacts.WriteJSON(result.FinalValidation, finalReport); err != nil {
		return fmt.Errorf("failed to write final validation report: %w", err)
	}
	result.Outcome = finalReport.Outcome(cfg.Strict)
	fmt.Printf("Final outcome: %s (%d errors, %d warnings)\n",
		result.Outcome, finalReport.ErrorCount(), finalReport.WarningCount())
	return nil
}

// writeCSV writes a table atomically.
func writeCSV(path string, t *table.Table) error {
	return artifacts.WriteAtomic(path, t.Write)
}
