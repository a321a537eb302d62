package services

import (
	"fmt"

	"judgequiz/internal/models"
	contextutils "judgequiz/internal/utils"
)

// NoQuestionsAvailableError is returned when a session cannot start because
// the selection produced an empty pool. ReviewMode distinguishes an empty
// missed-set from an empty bank so the caller can word the message.
type NoQuestionsAvailableError struct {
	Category   models.Category
	Difficulty models.Difficulty
	ReviewMode bool
}

func (e *NoQuestionsAvailableError) Error() string {
	if e.ReviewMode {
		return fmt.Sprintf("no missed questions to review in category %q", e.Category)
	}
	if e.Difficulty != "" {
		return fmt.Sprintf("no questions available in category %q at difficulty %q", e.Category, e.Difficulty)
	}
	return fmt.Sprintf("no questions available in category %q", e.Category)
}

// Unwrap lets errors.Is match the shared sentinel.
func (e *NoQuestionsAvailableError) Unwrap() error {
	return contextutils.ErrNoQuestionsAvailable
}
