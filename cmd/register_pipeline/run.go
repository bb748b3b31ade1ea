package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/regdata/register-pipeline/internal/config"
	"github.com/regdata/register-pipeline/internal/pipeline"
	"github.com/regdata/register-pipeline/internal/remediation"
	"github.com/regdata/register-pipeline/internal/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline on a register CSV extract",
	Long: "Validate, clean, remediate and re-validate a register CSV extract in one " +
		"pass, writing every intermediate artifact. Without an API key the LLM stage " +
		"is skipped and the deterministically cleaned file is final.",
	RunE: runPipeline,
}

var (
	runInput    string
	runRegister string
	runOutDir   string
	runConfig   string
	runAPIKey   string
	runVerbose  bool
)

func init() {
	runCmd.Flags().StringVarP(&runInput, "in", "i", "", "Path to register CSV file (required)")
	runCmd.Flags().StringVarP(&runRegister, "register", "r", "", "Register type: casp, other, art, emt, ncasp (required)")
	runCmd.Flags().StringVarP(&runOutDir, "out-dir", "d", ".", "Directory for output files and artifacts")
	runCmd.Flags().StringVar(&runConfig, "config", "", "Path to JSON config file")
	runCmd.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print stage summaries")
	_ = runCmd.MarkFlagRequired("in")
	_ = runCmd.MarkFlagRequired("register")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(runConfig)
	if err != nil {
		return err
	}
	if runAPIKey != "" {
		cfg.APIKey = runAPIKey
	}

	ctx := context.Background()

	var provider remediation.Provider
	if cfg.APIKey != "" {
		gemini, err := remediation.NewGeminiProvider(ctx, cfg.APIKey)
		if err != nil {
			return err
		}
		defer func() { _ = gemini.Close() }()
		provider = gemini
	} else {
		fmt.Println("No API key configured; the LLM remediation stage will be skipped.")
	}

	result, err := pipeline.Run(ctx, pipeline.RunOptions{
		InputFile: runInput,
		Register:  runRegister,
		OutDir:    runOutDir,
		Config:    cfg,
		Provider:  provider,
		Verbose:   runVerbose,
	})
	if err != nil {
		return err
	}

	switch result.Outcome {
	case types.OutcomeWarnings:
		os.Exit(1)
	case types.OutcomeErrors:
		os.Exit(2)
	}
	return nil
}
