// Package main provides the entry point for the judge quiz trainer CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"judgequiz/cmd/quiz/commands"
	"judgequiz/data"
	"judgequiz/internal/config"
	"judgequiz/internal/observability"
	"judgequiz/internal/services"
	"judgequiz/internal/storage"

	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	tp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, config.DefaultServiceName, observability.ParseLevel(cfg.LogLevel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if sdk, ok := tp.(*sdktrace.TracerProvider); ok && sdk != nil {
			if err := sdk.Shutdown(context.TODO()); err != nil {
				logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error()})
			}
		}
		_ = logger.Sync()
	}()

	events := observability.NewLoggingEventHook(logger)

	store, err := storage.NewFileStore(cfg.Storage, logger, events)
	if err != nil {
		logger.Error(ctx, "Failed to open storage", err, map[string]interface{}{"dir": cfg.Storage.Dir})
		os.Exit(1)
	}

	banks := services.LoadQuestionBanks(ctx, data.Questions, data.BankSchema, logger)
	questionService := services.NewQuestionServiceWithLogger(banks, logger)

	progressService, err := services.NewProgressService(ctx, store, logger, events)
	if err != nil {
		logger.Error(ctx, "Failed to load progress", err, nil)
		os.Exit(1)
	}

	sessionService := services.NewSessionService(questionService, progressService, store, logger, events)

	app := &commands.App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Questions: questionService,
		Progress:  progressService,
		Session:   sessionService,
	}

	rootCmd := &cobra.Command{
		Use:   "quiz",
		Short: "Judge certification quiz trainer",
		Long: `Judge certification quiz trainer

Practice multiple-choice judge questions by category and difficulty,
track your accuracy over time, and drill the questions you keep missing.`,

		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Printf("Error showing help: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(commands.PlayCommand(app))
	rootCmd.AddCommand(commands.ResumeCommand(app))
	rootCmd.AddCommand(commands.StatsCommand(app))
	rootCmd.AddCommand(commands.HistoryCommand(app))
	rootCmd.AddCommand(commands.CategoriesCommand(app))
	rootCmd.AddCommand(commands.BookmarksCommand(app))
	rootCmd.AddCommand(commands.ResetCommand(app))
	rootCmd.AddCommand(commands.VersionCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
