package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/regdata/register-pipeline/internal/artifacts"
	"github.com/regdata/register-pipeline/internal/cleaning"
	"github.com/regdata/register-pipeline/internal/observability"
	"github.com/regdata/register-pipeline/internal/registry"
	"github.com/regdata/register-pipeline/internal/schemas"
	"github.com/regdata/register-pipeline/internal/table"
	"github.com/regdata/register-pipeline/internal/types"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Deterministically clean a register CSV extract",
	Long: "Apply the ordered deterministic repair passes to a register CSV extract " +
		"and write the cleaned file plus an audit report of every change.",
	RunE: runClean,
}

var (
	cleanInput    string
	cleanRegister string
	cleanOutput   string
	cleanReport   string
	cleanVerbose  bool
)

func init() {
	cleanCmd.Flags().StringVarP(&cleanInput, "in", "i", "", "Path to register CSV file (required)")
	cleanCmd.Flags().StringVarP(&cleanRegister, "register", "r", "", "Register type: casp, other, art, emt, ncasp (required)")
	cleanCmd.Flags().StringVarP(&cleanOutput, "out", "o", "", "Path to write the cleaned CSV (required)")
	cleanCmd.Flags().StringVar(&cleanReport, "report", "", "Path to write the cleaning report JSON")
	cleanCmd.Flags().BoolVarP(&cleanVerbose, "verbose", "v", false, "Print the change summary")
	_ = cleanCmd.MarkFlagRequired("in")
	_ = cleanCmd.MarkFlagRequired("register")
	_ = cleanCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(cleanCmd)
}

func runClean(_ *cobra.Command, _ []string) error {
	reg, err := registry.Get(cleanRegister)
	if err != nil {
		return err
	}

	t, encInfo, err := table.ReadFile(cleanInput)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	result := cleaning.Clean(t, reg)
	if err := artifacts.WriteAtomic(cleanOutput, result.Table.Write); err != nil {
		return fmt.Errorf("failed to write cleaned CSV: %w", err)
	}

	report := &types.CleaningReport{
		Version:     types.ReportVersion,
		GeneratedAt: artifacts.Now(),
		InputFile:   cleanInput,
		OutputFile:  cleanOutput,
		Register:    string(reg.Type),
		Encoding:    encInfo,
		Stats: types.CleaningStats{
			RowsBefore: result.RowsBefore,
			RowsAfter:  result.RowsAfter,
			Columns:    len(result.Table.Header),
		},
		Changes: result.Changes,
		Flags:   result.Flags,
	}
	report.Summarize()

	if cleanReport != "" {
		if err := artifacts.WriteJSON(cleanReport, report); err != nil {
			return fmt.Errorf("failed to write cleaning report: %w", err)
		}
		if err := checkArtifact(schemas.CleaningReport, cleanReport); err != nil {
			return err
		}
	}

	if cleanVerbose {
		observability.NewPrinter(os.Stdout).PrintCleaningReport(report)
	}
	fmt.Printf("Cleaned %s: %d changes, %d flags, rows %d -> %d\n",
		cleanInput, report.Summary.TotalChanges, len(report.Flags),
		report.Stats.RowsBefore, report.Stats.RowsAfter)
	return nil
}
