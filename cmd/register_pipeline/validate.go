package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/regdata/register-pipeline/internal/artifacts"
	"github.com/regdata/register-pipeline/internal/config"
	"github.com/regdata/register-pipeline/internal/observability"
	"github.com/regdata/register-pipeline/internal/registry"
	"github.com/regdata/register-pipeline/internal/schemas"
	"github.com/regdata/register-pipeline/internal/types"
	"github.com/regdata/register-pipeline/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a register CSV extract",
	Long: "Validate a register CSV extract against its schema and field rules. " +
		"Exits 0 when clean, 1 on warnings only, 2 on errors or structural failure.",
	RunE: runValidate,
}

var (
	validateInput    string
	validateRegister string
	validateOutput   string
	validateConfig   string
	validateStrict   bool
	validateVerbose  bool
)

func init() {
	validateCmd.Flags().StringVarP(&validateInput, "in", "i", "", "Path to register CSV file (required)")
	validateCmd.Flags().StringVarP(&validateRegister, "register", "r", "", "Register type: casp, other, art, emt, ncasp (required)")
	validateCmd.Flags().StringVarP(&validateOutput, "out", "o", "", "Path to write the validation report JSON")
	validateCmd.Flags().StringVar(&validateConfig, "config", "", "Path to JSON config file")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Treat warnings as blocking")
	validateCmd.Flags().BoolVarP(&validateVerbose, "verbose", "v", false, "Print the report summary")
	_ = validateCmd.MarkFlagRequired("in")
	_ = validateCmd.MarkFlagRequired("register")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(validateConfig)
	if err != nil {
		return err
	}
	if validateStrict {
		cfg.Strict = true
	}

	reg, err := registry.Get(validateRegister)
	if err != nil {
		return err
	}

	report, _, err := validation.ValidateFile(validateInput, reg, validation.Options{
		MaxExamples: cfg.MaxExamples,
		Strict:      cfg.Strict,
	})
	if err != nil {
		return err
	}

	if validateOutput != "" {
		if err := artifacts.WriteJSON(validateOutput, report); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		if err := checkArtifact(schemas.ValidationReport, validateOutput); err != nil {
			return err
		}
	}

	printer := observability.NewPrinter(os.Stdout)
	if validateVerbose {
		printer.PrintValidationReport(report)
	}

	outcome := report.Outcome(cfg.Strict)
	fmt.Printf("Validation outcome: %s (%d errors, %d warnings)\n",
		outcome, report.ErrorCount(), report.WarningCount())
	switch outcome {
	case types.OutcomeWarnings:
		os.Exit(1)
	case types.OutcomeErrors:
		os.Exit(2)
	}
	return nil
}
