package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/appforge/internal/config"
	"github.com/jonathan/appforge/internal/db"
	"github.com/jonathan/appforge/internal/llm"
	"github.com/jonathan/appforge/internal/observability"
	"github.com/jonathan/appforge/internal/pipeline"
	"github.com/jonathan/appforge/internal/verify"
)

var (
	generateRequirement string
	generateUser        string
	generateVerbose     bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one generation cycle from the command line",
	Long:  `Generate an app for an existing requirements document, running the full verify-and-retry cycle, and print the outcome.`,
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateRequirement, "requirement", "", "Requirement ID (required)")
	generateCmd.Flags().StringVar(&generateUser, "user", "", "Owning user ID (required)")
	generateCmd.Flags().BoolVarP(&generateVerbose, "verbose", "v", false, "Print the extraction and generated app details")
	_ = generateCmd.MarkFlagRequired("requirement")
	_ = generateCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(_ *cobra.Command, _ []string) error {
	requirementID, err := uuid.Parse(generateRequirement)
	if err != nil {
		return fmt.Errorf("invalid requirement ID: %w", err)
	}
	userID, err := uuid.Parse(generateUser)
	if err != nil {
		return fmt.Errorf("invalid user ID: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	client, err := llm.NewClient(ctx, llm.DefaultGeminiConfig(), cfg.GeminiAPIKey)
	if err != nil {
		return fmt.Errorf("failed to create AI client: %w", err)
	}
	defer client.Close()

	printer := observability.NewPrinter(os.Stdout)

	if generateVerbose {
		req, err := database.GetRequirement(ctx, requirementID, userID)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("requirement %s not found", requirementID)
		}
		printer.PrintExtraction(&req.Extraction)
	}

	p := pipeline.New(database, client, verify.NewStaticVerifier(), logger, cfg.MaxRetries)
	app, err := p.Generate(ctx, requirementID, userID)
	if app != nil {
		printer.PrintApp(app)
	}
	if err != nil {
		return err
	}

	fmt.Printf("App %s generated successfully\n", app.ID)
	return nil
}
