package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/regdata/register-pipeline/internal/artifacts"
	"github.com/regdata/register-pipeline/internal/config"
	"github.com/regdata/register-pipeline/internal/observability"
	"github.com/regdata/register-pipeline/internal/remediation"
	"github.com/regdata/register-pipeline/internal/schemas"
	"github.com/regdata/register-pipeline/internal/types"
)

var remediateCmd = &cobra.Command{
	Use:   "remediate",
	Short: "Run remediation tasks against the LLM provider",
	Long: "Send a generated task list to the configured LLM provider, walking the " +
		"model fallback chain, and write the resulting patch of proposals.",
	RunE: runRemediate,
}

var (
	remediateTasks   string
	remediateOutput  string
	remediateConfig  string
	remediateAPIKey  string
	remediateVerbose bool
)

func init() {
	remediateCmd.Flags().StringVarP(&remediateTasks, "tasks", "t", "", "Path to task list JSON (required)")
	remediateCmd.Flags().StringVarP(&remediateOutput, "out", "o", "", "Path to write the patch JSON (required)")
	remediateCmd.Flags().StringVar(&remediateConfig, "config", "", "Path to JSON config file")
	remediateCmd.Flags().StringVar(&remediateAPIKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")
	remediateCmd.Flags().BoolVarP(&remediateVerbose, "verbose", "v", false, "Print the patch summary")
	_ = remediateCmd.MarkFlagRequired("tasks")
	_ = remediateCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(remediateCmd)
}

func runRemediate(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(remediateConfig)
	if err != nil {
		return err
	}
	apiKey := remediateAPIKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		return fmt.Errorf("API key is required (set GEMINI_API_KEY environment variable or use --api-key flag)")
	}

	var list types.TaskList
	if err := artifacts.ReadJSON(remediateTasks, &list); err != nil {
		return fmt.Errorf("failed to read task list: %w", err)
	}

	ctx := context.Background()
	provider, err := remediation.NewGeminiProvider(ctx, apiKey)
	if err != nil {
		return err
	}
	defer func() { _ = provider.Close() }()

	runner := remediation.NewRunner(provider, remediation.RunnerOptions{
		Models:            cfg.Models,
		Concurrency:       cfg.Concurrency,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           cfg.Timeout(),
	})
	patch, err := runner.Run(ctx, list)
	if err != nil {
		return fmt.Errorf("remediation failed: %w", err)
	}

	if err := artifacts.WriteJSON(remediateOutput, patch); err != nil {
		return fmt.Errorf("failed to write patch: %w", err)
	}
	if err := checkArtifact(schemas.Patch, remediateOutput); err != nil {
		return err
	}

	if remediateVerbose {
		observability.NewPrinter(os.Stdout).PrintPatch(&patch)
	}
	fmt.Printf("Collected %d proposals for %d tasks -> %s\n",
		len(patch.Proposals), patch.TasksTotal, remediateOutput)
	return nil
}
