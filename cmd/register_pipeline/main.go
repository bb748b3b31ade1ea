// Package main provides the register_pipeline CLI: validation, deterministic
// cleaning and LLM-assisted remediation of regulatory register CSV extracts.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "register_pipeline",
	Short: "Regulatory register CSV cleaning pipeline",
	Long: "register_pipeline validates regulatory register CSV extracts, repairs them " +
		"deterministically, and remediates the residual findings through a guarded LLM stage.",
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}
