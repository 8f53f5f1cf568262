// Package main provides the entry point for the AppForge HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "appforge",
	Short: "AppForge generation pipeline",
	Long:  "AppForge turns natural-language app descriptions into verified single-file React applications via a generation-validation-retry pipeline, exposed over a REST API.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
