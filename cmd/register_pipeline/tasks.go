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
	"github.com/regdata/register-pipeline/internal/validation"
)

var tasksCmd = &cobra.Command{
	Use:   "generate-tasks",
	Short: "Generate LLM remediation tasks from a cleaned CSV",
	Long: "Re-validate a cleaned register CSV and turn the residual findings into " +
		"bounded remediation tasks for the LLM stage.",
	RunE: runGenerateTasks,
}

var (
	tasksInput    string
	tasksRegister string
	tasksOutput   string
	tasksConfig   string
	tasksVerbose  bool
)

func init() {
	tasksCmd.Flags().StringVarP(&tasksInput, "in", "i", "", "Path to cleaned register CSV (required)")
	tasksCmd.Flags().StringVarP(&tasksRegister, "register", "r", "", "Register type: casp, other, art, emt, ncasp (required)")
	tasksCmd.Flags().StringVarP(&tasksOutput, "out", "o", "", "Path to write the task list JSON (required)")
	tasksCmd.Flags().StringVar(&tasksConfig, "config", "", "Path to JSON config file")
	tasksCmd.Flags().BoolVarP(&tasksVerbose, "verbose", "v", false, "Print the task summary")
	_ = tasksCmd.MarkFlagRequired("in")
	_ = tasksCmd.MarkFlagRequired("register")
	_ = tasksCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(tasksCmd)
}

func runGenerateTasks(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(tasksConfig)
	if err != nil {
		return err
	}
	reg, err := registry.Get(tasksRegister)
	if err != nil {
		return err
	}

	t, encInfo, err := table.ReadFile(tasksInput)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	// Full row lists here; the report caps only presentation.
	report := validation.Validate(t, encInfo, reg, validation.Options{MaxExamples: 1 << 20})
	list := remediation.GenerateTasks(t, reg, report.Issues, tasksInput,
		remediation.GeneratorOptions{MaxTasks: cfg.MaxTasks, ContextColumns: cfg.ContextColumns})

	if err := artifacts.WriteJSON(tasksOutput, list); err != nil {
		return fmt.Errorf("failed to write task list: %w", err)
	}
	if err := checkArtifact(schemas.TaskList, tasksOutput); err != nil {
		return err
	}

	if tasksVerbose {
		observability.NewPrinter(os.Stdout).PrintTaskList(&list)
	}
	fmt.Printf("Generated %d remediation tasks -> %s\n", len(list.Tasks), tasksOutput)
	return nil
}
