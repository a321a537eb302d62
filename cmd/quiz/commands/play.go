package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"judgequiz/internal/config"
	"judgequiz/internal/models"
	"judgequiz/internal/services"
	contextutils "judgequiz/internal/utils"

	"github.com/spf13/cobra"
)

// PlayCommand returns the interactive quiz command.
func PlayCommand(app *App) *cobra.Command {
	var (
		category   string
		difficulty string
		count      int
		shuffle    bool
		review     bool
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Start an interactive quiz session",
		Long: `Start an interactive quiz session in a chosen category.

Answer with 1-4, 's' to skip, or 'q' to quit early. With --review the
session draws only from questions you have previously missed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()

			cfg := resolveSessionConfig(app.Config.Quiz, sessionFlags{
				category:   category,
				difficulty: difficulty,
				count:      count,
				shuffle:    shuffle,
				shuffleSet: cmd.Flags().Changed("shuffle"),
				review:     review,
			})

			if err := app.Session.Start(ctx, cfg); err != nil {
				var noQuestions *services.NoQuestionsAvailableError
				if errors.As(err, &noQuestions) && noQuestions.ReviewMode {
					fmt.Printf("Nothing to review in %q - you're all caught up!\n", category)
					return nil
				}
				return err
			}

			return runSessionLoop(ctx, app)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "question category (required)")
	cmd.Flags().StringVarP(&difficulty, "difficulty", "d", "", "restrict to one difficulty (beginner, intermediate, advanced)")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "number of questions (default from config)")
	cmd.Flags().BoolVar(&shuffle, "shuffle", false, "shuffle the question order")
	cmd.Flags().BoolVar(&review, "review", false, "draw only from previously missed questions")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

// sessionFlags carries the raw play flag values. shuffleSet records whether
// --shuffle was given at all, so an explicit --shuffle=false can override a
// shuffle_by_default config.
type sessionFlags struct {
	category   string
	difficulty string
	count      int
	shuffle    bool
	shuffleSet bool
	review     bool
}

// resolveSessionConfig fills config defaults into unset flag values.
func resolveSessionConfig(quizCfg config.QuizConfig, flags sessionFlags) models.SessionConfig {
	cfg := models.SessionConfig{
		Category:      models.Category(flags.category),
		Difficulty:    models.Difficulty(flags.difficulty),
		QuestionCount: flags.count,
		Shuffle:       flags.shuffle,
		ReviewMode:    flags.review,
	}
	if cfg.QuestionCount == 0 {
		cfg.QuestionCount = quizCfg.DefaultQuestionCount
	}
	if !flags.shuffleSet {
		cfg.Shuffle = quizCfg.ShuffleByDefault
	}
	return cfg
}

// ResumeCommand returns the command that continues a checkpointed session.
func ResumeCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume an interrupted quiz session",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			if err := app.Session.Resume(ctx); err != nil {
				if contextutils.IsError(err, contextutils.ErrNoActiveSession) {
					fmt.Println("No session to resume.")
					return nil
				}
				return err
			}

			fmt.Printf("Resuming session in %q at question %d of %d.\n\n",
				app.Session.Config().Category,
				app.Session.CurrentIndex()+1,
				app.Session.TotalQuestions())

			// A session interrupted after submit but before advance picks
			// back up at the reveal.
			if app.Session.State() == services.StateRevealed {
				if done, err := handleReveal(ctx, app); err != nil || done {
					return err
				}
			}
			return runSessionLoop(ctx, app)
		},
	}
}

// runSessionLoop drives the prompt/answer/reveal cycle until the session
// finishes or the player quits.
func runSessionLoop(ctx context.Context, app *App) error {
	reader := bufio.NewScanner(os.Stdin)

	for app.Session.State() == services.StateAnswering {
		question := app.Session.CurrentQuestion()
		fmt.Printf("[%d/%d] %s\n", app.Session.CurrentIndex()+1, app.Session.TotalQuestions(), question.Question)
		for i, option := range question.Options {
			fmt.Printf("  %d) %s\n", i+1, option)
		}
		fmt.Print("\nAnswer (1-4, s=skip, q=quit): ")

		if !reader.Scan() {
			fmt.Println()
			return app.Session.Reset(ctx)
		}
		input := strings.TrimSpace(strings.ToLower(reader.Text()))

		switch input {
		case "q", "quit":
			fmt.Println("Session saved. Run 'quiz resume' to continue.")
			return nil
		case "s", "skip":
			finished, err := app.Session.Skip(ctx)
			if err != nil {
				return err
			}
			fmt.Println("Skipped.")
			fmt.Println()
			if finished {
				printSummary(app)
				return nil
			}
		default:
			choice, err := strconv.Atoi(input)
			if err != nil || choice < 1 || choice > models.OptionCount {
				fmt.Println("Please enter 1-4, 's', or 'q'.")
				fmt.Println()
				continue
			}
			if err := app.Session.SelectOption(ctx, choice-1); err != nil {
				return err
			}
			if err := app.Session.Submit(ctx); err != nil {
				return err
			}
			if done, err := handleReveal(ctx, app); err != nil || done {
				return err
			}
		}
	}

	if app.Session.State() == services.StateFinished {
		printSummary(app)
	}
	return nil
}

// handleReveal prints the result of the just-submitted answer and advances.
// It returns true when the session is over.
func handleReveal(ctx context.Context, app *App) (bool, error) {
	question := app.Session.CurrentQuestion()
	attempt := app.Session.LastAttempt()

	if attempt.IsCorrect {
		fmt.Println("Correct!")
	} else {
		fmt.Printf("Incorrect. The answer was: %s\n", question.Options[question.CorrectAnswer])
	}
	fmt.Printf("  %s\n", question.Explanation)
	if question.Reference != "" {
		fmt.Printf("  Reference: %s\n", question.Reference)
	}
	fmt.Println()

	finished, err := app.Session.Advance(ctx)
	if err != nil {
		return false, err
	}
	if finished {
		printSummary(app)
		return true, nil
	}
	return false, nil
}

// printSummary prints the final score line for a finished session.
func printSummary(app *App) {
	session := app.Session.Session()
	if session == nil {
		return
	}
	correct := session.CorrectCount()
	total := len(session.Questions)
	fmt.Printf("Session complete: %d/%d correct (%.1f%%)\n", correct, total, session.Score)
}
