package services

import (
	"context"
	"math"
	"time"

	"judgequiz/internal/models"
	"judgequiz/internal/observability"
	"judgequiz/internal/storage"
	contextutils "judgequiz/internal/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ProgressService owns the persisted user progress aggregate: the session
// history, derived statistics, the missed-question sets, and bookmarks.
// Derived statistics are always recomputed in full from history rather than
// patched incrementally, so a stats bug can never compound across sessions.
type ProgressService struct {
	store    storage.Store
	logger   *observability.Logger
	events   observability.EventHook
	progress *models.UserProgress
}

// NewProgressService loads or initializes the progress aggregate. A missing
// or corrupt record is replaced with a fresh one and persisted immediately.
func NewProgressService(ctx context.Context, store storage.Store, logger *observability.Logger, events observability.EventHook) (*ProgressService, error) {
	ps := &ProgressService{
		store:  store,
		logger: logger,
		events: events,
	}

	progress, err := store.LoadProgress(ctx)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load progress")
	}
	if progress == nil {
		progress = InitializeProgress()
		logger.Info(ctx, "Initialized new user progress", map[string]interface{}{"user_id": progress.UserID})
		if err := store.SaveProgress(ctx, progress); err != nil {
			return nil, contextutils.WrapError(err, "failed to persist initial progress")
		}
	}
	ps.progress = progress
	return ps, nil
}

// InitializeProgress builds a fresh aggregate at the current schema version
// with every category map fully pre-populated.
func InitializeProgress() *models.UserProgress {
	now := time.Now().UTC()
	progress := &models.UserProgress{
		Version:             storage.SchemaVersion,
		UserID:              uuid.New().String(),
		CreatedAt:           now,
		LastActive:          now,
		CategoryStats:       make(map[models.Category]*models.CategoryStats, len(models.AllCategories)),
		QuizHistory:         []models.QuizSession{},
		BookmarkedQuestions: []string{},
		IncorrectQuestions:  make(map[models.Category][]string, len(models.AllCategories)),
	}
	for _, category := range models.AllCategories {
		progress.CategoryStats[category] = &models.CategoryStats{Category: category}
		progress.IncorrectQuestions[category] = []string{}
	}
	return progress
}

// Progress returns the in-memory aggregate. Callers must treat it as
// read-only; mutation goes through the service methods.
func (ps *ProgressService) Progress() *models.UserProgress {
	return ps.progress
}

// ReloadFromStore replaces the in-memory aggregate with the persisted one.
// Used after another component wrote the record directly.
func (ps *ProgressService) ReloadFromStore(ctx context.Context) error {
	progress, err := ps.store.LoadProgress(ctx)
	if err != nil {
		return contextutils.WrapError(err, "failed to reload progress")
	}
	if progress == nil {
		progress = InitializeProgress()
	}
	ps.progress = progress
	return nil
}

// RoundAccuracy rounds a percentage to one decimal place, half away from
// zero, matching how scores are displayed.
func RoundAccuracy(pct float64) float64 {
	return math.Round(pct*10) / 10
}

// Recompute rebuilds every derived statistic from the stored session history.
// Only finished sessions count; an abandoned session contributes nothing.
// Every category gets an entry even with zero attempts.
func Recompute(progress *models.UserProgress) {
	totalAttempted := 0
	totalCorrect := 0

	stats := make(map[models.Category]*models.CategoryStats, len(models.AllCategories))
	for _, category := range models.AllCategories {
		stats[category] = &models.CategoryStats{Category: category}
	}

	for i := range progress.QuizHistory {
		session := &progress.QuizHistory[i]
		if !session.Finished() {
			continue
		}
		cs, ok := stats[session.Category]
		if !ok {
			// History referencing a retired category still counts toward
			// the overall totals.
			cs = &models.CategoryStats{Category: session.Category}
			stats[session.Category] = cs
		}

		attempts := len(session.Questions)
		correct := session.CorrectCount()

		cs.TotalAttempts += attempts
		cs.CorrectAnswers += correct
		if cs.LastStudied == nil || session.StartTime.After(*cs.LastStudied) {
			t := session.StartTime
			cs.LastStudied = &t
		}

		totalAttempted += attempts
		totalCorrect += correct
	}

	for _, cs := range stats {
		if cs.TotalAttempts > 0 {
			cs.Accuracy = RoundAccuracy(float64(cs.CorrectAnswers) / float64(cs.TotalAttempts) * 100)
		}
	}

	progress.TotalQuestionsAttempted = totalAttempted
	progress.TotalCorrect = totalCorrect
	progress.OverallAccuracy = 0
	if totalAttempted > 0 {
		progress.OverallAccuracy = RoundAccuracy(float64(totalCorrect) / float64(totalAttempted) * 100)
	}
	progress.CategoryStats = stats
}

// OnSessionFinished folds a completed session into history, recomputes every
// derived statistic, and persists.
func (ps *ProgressService) OnSessionFinished(ctx context.Context, session *models.QuizSession) (err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "on_session_finished",
		attribute.String("session.id", session.SessionID),
		attribute.String("session.category", string(session.Category)),
		attribute.Int("session.attempts", len(session.Questions)),
	)
	defer observability.FinishSpan(span, &err)

	if !session.Finished() {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "session %s is not finished", session.SessionID)
	}

	ps.progress.QuizHistory = append(ps.progress.QuizHistory, *session)
	Recompute(ps.progress)

	ps.logger.Info(ctx, "Session folded into progress", map[string]interface{}{
		"session_id":       session.SessionID,
		"category":         string(session.Category),
		"score":            session.Score,
		"overall_accuracy": ps.progress.OverallAccuracy,
	})
	return ps.store.SaveProgress(ctx, ps.progress)
}

// AddIncorrectQuestion records a question id in the category's missed-set.
// Idempotent: re-missing an already tracked question changes nothing.
func (ps *ProgressService) AddIncorrectQuestion(ctx context.Context, category models.Category, questionID string) error {
	ids := ps.progress.IncorrectQuestions[category]
	for _, id := range ids {
		if id == questionID {
			return nil
		}
	}
	ps.progress.IncorrectQuestions[category] = append(ids, questionID)
	ps.emit(ctx, observability.EventMissedQuestionAdded, map[string]interface{}{
		"category":    string(category),
		"question_id": questionID,
	})
	return ps.store.SaveProgress(ctx, ps.progress)
}

// RemoveIncorrectQuestion drops a question id from the category's missed-set.
// Removing an id that is not present is a silent no-op with no write.
func (ps *ProgressService) RemoveIncorrectQuestion(ctx context.Context, category models.Category, questionID string) error {
	ids := ps.progress.IncorrectQuestions[category]
	for i, id := range ids {
		if id == questionID {
			ps.progress.IncorrectQuestions[category] = append(ids[:i], ids[i+1:]...)
			ps.emit(ctx, observability.EventMissedQuestionRemoved, map[string]interface{}{
				"category":    string(category),
				"question_id": questionID,
			})
			return ps.store.SaveProgress(ctx, ps.progress)
		}
	}
	return nil
}

// IncorrectIDs returns a copy of the category's missed-set in insertion order.
func (ps *ProgressService) IncorrectIDs(category models.Category) []string {
	ids := ps.progress.IncorrectQuestions[category]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// IncorrectCount returns the size of the category's missed-set.
func (ps *ProgressService) IncorrectCount(category models.Category) int {
	return len(ps.progress.IncorrectQuestions[category])
}

// BookmarkQuestion adds a question id to the bookmark list. Idempotent.
func (ps *ProgressService) BookmarkQuestion(ctx context.Context, questionID string) error {
	for _, id := range ps.progress.BookmarkedQuestions {
		if id == questionID {
			return nil
		}
	}
	ps.progress.BookmarkedQuestions = append(ps.progress.BookmarkedQuestions, questionID)
	return ps.store.SaveProgress(ctx, ps.progress)
}

// UnbookmarkQuestion removes a question id from the bookmark list. Removing
// an absent id is a no-op with no write.
func (ps *ProgressService) UnbookmarkQuestion(ctx context.Context, questionID string) error {
	for i, id := range ps.progress.BookmarkedQuestions {
		if id == questionID {
			ps.progress.BookmarkedQuestions = append(ps.progress.BookmarkedQuestions[:i], ps.progress.BookmarkedQuestions[i+1:]...)
			return ps.store.SaveProgress(ctx, ps.progress)
		}
	}
	return nil
}

// IsBookmarked reports whether a question id is bookmarked.
func (ps *ProgressService) IsBookmarked(questionID string) bool {
	for _, id := range ps.progress.BookmarkedQuestions {
		if id == questionID {
			return true
		}
	}
	return false
}

// Bookmarks returns a copy of the bookmark list in insertion order.
func (ps *ProgressService) Bookmarks() []string {
	out := make([]string, len(ps.progress.BookmarkedQuestions))
	copy(out, ps.progress.BookmarkedQuestions)
	return out
}

// Reset wipes all persisted records and replaces the aggregate with a fresh
// one under a new user id.
func (ps *ProgressService) Reset(ctx context.Context) (err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "reset")
	defer observability.FinishSpan(span, &err)

	if err := ps.store.ResetAll(ctx); err != nil {
		return contextutils.WrapError(err, "failed to reset storage")
	}
	ps.progress = InitializeProgress()
	ps.logger.Info(ctx, "Progress reset", map[string]interface{}{"user_id": ps.progress.UserID})
	return ps.store.SaveProgress(ctx, ps.progress)
}

func (ps *ProgressService) emit(ctx context.Context, eventType observability.EventType, fields map[string]interface{}) {
	if ps.events == nil {
		return
	}
	ps.events.Emit(ctx, observability.Event{Type: eventType, Fields: fields})
}
