package commands

import (
	"fmt"

	"judgequiz/internal/models"

	"github.com/spf13/cobra"
)

// StatsCommand returns the progress statistics command.
func StatsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show overall and per-category accuracy",
		RunE: func(_ *cobra.Command, _ []string) error {
			progress := app.Progress.Progress()

			fmt.Printf("Overall: %d/%d correct (%.1f%%)\n\n",
				progress.TotalCorrect,
				progress.TotalQuestionsAttempted,
				progress.OverallAccuracy)

			fmt.Printf("%-16s %-10s %-10s %-10s %-8s %s\n", "Category", "Attempts", "Correct", "Accuracy", "Missed", "Last studied")
			for _, category := range models.AllCategories {
				stats := progress.CategoryStats[category]
				if stats == nil {
					continue
				}
				lastStudied := "never"
				if stats.LastStudied != nil {
					lastStudied = stats.LastStudied.Format("2006-01-02")
				}
				fmt.Printf("%-16s %-10d %-10d %-9.1f%% %-8d %s\n",
					category,
					stats.TotalAttempts,
					stats.CorrectAnswers,
					stats.Accuracy,
					app.Progress.IncorrectCount(category),
					lastStudied)
			}
			return nil
		},
	}
}

// HistoryCommand returns the session history command.
func HistoryCommand(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past quiz sessions, most recent first",
		RunE: func(_ *cobra.Command, _ []string) error {
			sessions := app.Progress.Progress().HistoryByRecency()
			if len(sessions) == 0 {
				fmt.Println("No sessions yet.")
				return nil
			}
			if limit > 0 && len(sessions) > limit {
				sessions = sessions[:limit]
			}

			fmt.Printf("%-20s %-16s %-12s %s\n", "Started", "Category", "Questions", "Score")
			for _, session := range sessions {
				score := "abandoned"
				if session.Finished() {
					score = fmt.Sprintf("%.1f%%", session.Score)
				}
				fmt.Printf("%-20s %-16s %-12d %s\n",
					session.StartTime.Format("2006-01-02 15:04"),
					session.Category,
					len(session.Questions),
					score)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum sessions to show (0 for all)")
	return cmd
}

// CategoriesCommand returns the category listing command.
func CategoriesCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories with bank sizes and missed counts",
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Printf("%-16s %-10s %-10s %-12s %-10s %s\n", "Category", "Questions", "Beginner", "Intermediate", "Advanced", "Missed")
			for _, category := range models.AllCategories {
				stats := app.Questions.BankStatistics(category)
				fmt.Printf("%-16s %-10d %-10d %-12d %-10d %d\n",
					category,
					stats.Total,
					stats.Beginner,
					stats.Intermediate,
					stats.Advanced,
					app.Progress.IncorrectCount(category))
			}
			return nil
		},
	}
}
