package commands

import (
	"context"
	"fmt"

	contextutils "judgequiz/internal/utils"

	"github.com/spf13/cobra"
)

// BookmarksCommand returns the bookmark management commands.
func BookmarksCommand(app *App) *cobra.Command {
	bookmarksCmd := &cobra.Command{
		Use:   "bookmarks",
		Short: "List and manage bookmarked questions",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			ids := app.Progress.Bookmarks()
			if len(ids) == 0 {
				fmt.Println("No bookmarks.")
				return nil
			}
			for _, id := range ids {
				question := app.Questions.QuestionByID(ctx, id)
				if question == nil {
					fmt.Printf("%-16s (no longer in the question banks)\n", id)
					continue
				}
				fmt.Printf("%-16s [%s/%s] %s\n", question.ID, question.Category, question.Difficulty, question.Question)
			}
			return nil
		},
	}

	bookmarksCmd.AddCommand(&cobra.Command{
		Use:   "add [question-id]",
		Short: "Bookmark a question by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx := context.Background()

			if app.Questions.QuestionByID(ctx, args[0]) == nil {
				return contextutils.WrapErrorf(contextutils.ErrQuestionNotFound, "no question with id %q", args[0])
			}
			if err := app.Progress.BookmarkQuestion(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Bookmarked %s.\n", args[0])
			return nil
		},
	})

	bookmarksCmd.AddCommand(&cobra.Command{
		Use:   "remove [question-id]",
		Short: "Remove a bookmark by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx := context.Background()

			if err := app.Progress.UnbookmarkQuestion(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed bookmark %s.\n", args[0])
			return nil
		},
	})

	return bookmarksCmd
}
