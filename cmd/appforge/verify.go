package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/appforge/internal/observability"
	"github.com/jonathan/appforge/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <file.jsx>",
	Short: "Run the static verifier on a JSX file",
	Long:  `Run the empty-check, lint, and compile passes on a single JSX file and print the verdict. Exits non-zero when the code fails verification.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(_ *cobra.Command, args []string) error {
	code, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	result := verify.NewStaticVerifier().Verify(string(code))

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintVerification(result.Valid, result.Diagnostic)

	if !result.Valid {
		return fmt.Errorf("verification failed: %s", result.Diagnostic)
	}
	return nil
}
