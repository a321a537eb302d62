package services

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"judgequiz/internal/models"
	"judgequiz/internal/observability"
	"judgequiz/internal/storage"
	contextutils "judgequiz/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionHarness struct {
	store     storage.Store
	events    *observability.RecordingEventHook
	questions *QuestionService
	progress  *ProgressService
	session   *SessionService
}

func newSessionHarness(t *testing.T) *sessionHarness {
	t.Helper()
	store, events := newTestStore(t)

	banks := map[models.Category]*models.QuestionBank{
		models.CategoryRules:     makeBank(models.CategoryRules, 10),
		models.CategoryMechanics: makeBank(models.CategoryMechanics, 6),
	}
	questions := NewQuestionServiceWithRand(banks, rand.New(rand.NewSource(1)), testLogger())

	progress, err := NewProgressService(context.Background(), store, testLogger(), events)
	require.NoError(t, err)

	return &sessionHarness{
		store:     store,
		events:    events,
		questions: questions,
		progress:  progress,
		session:   NewSessionService(questions, progress, store, testLogger(), events),
	}
}

// reopen builds fresh services over the same store, simulating a restart.
func (h *sessionHarness) reopen(t *testing.T) *sessionHarness {
	t.Helper()
	progress, err := NewProgressService(context.Background(), h.store, testLogger(), h.events)
	require.NoError(t, err)
	return &sessionHarness{
		store:     h.store,
		events:    h.events,
		questions: h.questions,
		progress:  progress,
		session:   NewSessionService(h.questions, progress, h.store, testLogger(), h.events),
	}
}

// answer submits the given option and advances past the reveal.
func (h *sessionHarness) answer(t *testing.T, option int) bool {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.session.SelectOption(ctx, option))
	require.NoError(t, h.session.Submit(ctx))
	finished, err := h.session.Advance(ctx)
	require.NoError(t, err)
	return finished
}

func startRules(t *testing.T, h *sessionHarness, count int) {
	t.Helper()
	require.NoError(t, h.session.Start(context.Background(), models.SessionConfig{
		Category:      models.CategoryRules,
		QuestionCount: count,
	}))
}

func TestSessionService_FullRun_SevenOfTen(t *testing.T) {
	h := newSessionHarness(t)
	startRules(t, h, 10)

	assert.Equal(t, StateAnswering, h.session.State())
	assert.Equal(t, 10, h.session.TotalQuestions())

	finished := false
	for i := 0; i < 10; i++ {
		correct := h.session.CurrentQuestion().CorrectAnswer
		if i < 7 {
			finished = h.answer(t, correct)
		} else {
			finished = h.answer(t, (correct+1)%models.OptionCount)
		}
	}

	assert.True(t, finished)
	assert.Equal(t, StateFinished, h.session.State())

	session := h.session.Session()
	assert.Equal(t, 70.0, session.Score)
	assert.Equal(t, 7, session.CorrectCount())
	require.NotNil(t, session.EndTime)

	progress := h.progress.Progress()
	assert.Equal(t, 10, progress.TotalQuestionsAttempted)
	assert.Equal(t, 70.0, progress.OverallAccuracy)
	require.Len(t, progress.QuizHistory, 1)

	// The three misses entered the missed-set.
	assert.Equal(t, 3, h.progress.IncorrectCount(models.CategoryRules))

	assert.Len(t, h.events.ByType(observability.EventSessionStarted), 1)
	assert.Len(t, h.events.ByType(observability.EventAnswerSubmitted), 10)
	assert.Len(t, h.events.ByType(observability.EventSessionFinished), 1)
}

func TestSessionService_Start_InvalidWhileRunning(t *testing.T) {
	h := newSessionHarness(t)
	startRules(t, h, 3)

	err := h.session.Start(context.Background(), models.SessionConfig{Category: models.CategoryRules})
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeInvalidTransition, contextutils.GetErrorCode(err))
	assert.Equal(t, StateAnswering, h.session.State())
}

func TestSessionService_Start_EmptyReviewQueue(t *testing.T) {
	h := newSessionHarness(t)

	err := h.session.Start(context.Background(), models.SessionConfig{
		Category:   models.CategoryRules,
		ReviewMode: true,
	})
	require.Error(t, err)

	var noQuestions *NoQuestionsAvailableError
	require.True(t, errors.As(err, &noQuestions))
	assert.True(t, noQuestions.ReviewMode)
	assert.True(t, errors.Is(err, contextutils.ErrNoQuestionsAvailable))
	assert.Equal(t, StateIdle, h.session.State())
}

func TestSessionService_SelectOption_Validation(t *testing.T) {
	h := newSessionHarness(t)
	startRules(t, h, 3)
	ctx := context.Background()

	err := h.session.SelectOption(ctx, 4)
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeInvalidAnswerIndex, contextutils.GetErrorCode(err))

	err = h.session.SelectOption(ctx, -1)
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeInvalidAnswerIndex, contextutils.GetErrorCode(err))

	// A rejected pick leaves no pending selection behind.
	_, picked := h.session.PendingSelection()
	assert.False(t, picked)

	require.NoError(t, h.session.SelectOption(ctx, 2))
	picked2, ok := h.session.PendingSelection()
	assert.True(t, ok)
	assert.Equal(t, 2, picked2)

	// Repicking overwrites.
	require.NoError(t, h.session.SelectOption(ctx, 0))
	picked2, _ = h.session.PendingSelection()
	assert.Equal(t, 0, picked2)
}

func TestSessionService_Submit_WithoutSelection(t *testing.T) {
	h := newSessionHarness(t)
	startRules(t, h, 3)

	err := h.session.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeInvalidInput, contextutils.GetErrorCode(err))
	assert.Equal(t, StateAnswering, h.session.State())
	assert.Empty(t, h.session.Session().Questions)
}

func TestSessionService_InvalidTransitionsAreNoOps(t *testing.T) {
	h := newSessionHarness(t)
	ctx := context.Background()

	// Idle: nothing but Start and Resume is legal.
	assert.Equal(t, contextutils.ErrorCodeInvalidTransition, contextutils.GetErrorCode(h.session.SelectOption(ctx, 0)))
	assert.Equal(t, contextutils.ErrorCodeInvalidTransition, contextutils.GetErrorCode(h.session.Submit(ctx)))
	_, err := h.session.Skip(ctx)
	assert.Equal(t, contextutils.ErrorCodeInvalidTransition, contextutils.GetErrorCode(err))
	_, err = h.session.Advance(ctx)
	assert.Equal(t, contextutils.ErrorCodeInvalidTransition, contextutils.GetErrorCode(err))
	assert.Equal(t, contextutils.ErrorCodeInvalidTransition, contextutils.GetErrorCode(h.session.Finish(ctx)))

	startRules(t, h, 3)
	require.NoError(t, h.session.SelectOption(ctx, 0))
	require.NoError(t, h.session.Submit(ctx))

	// Revealed: submitting again is illegal.
	assert.Equal(t, contextutils.ErrorCodeInvalidTransition, contextutils.GetErrorCode(h.session.Submit(ctx)))
	_, err = h.session.Skip(ctx)
	assert.Equal(t, contextutils.ErrorCodeInvalidTransition, contextutils.GetErrorCode(err))
	assert.Len(t, h.session.Session().Questions, 1)
}

func TestSessionService_Skip_RecordsSentinelAndAdvances(t *testing.T) {
	h := newSessionHarness(t)
	startRules(t, h, 3)
	ctx := context.Background()

	skippedID := h.session.CurrentQuestion().ID
	finished, err := h.session.Skip(ctx)
	require.NoError(t, err)
	assert.False(t, finished)
	assert.Equal(t, StateAnswering, h.session.State())
	assert.Equal(t, 1, h.session.CurrentIndex())

	attempt := h.session.LastAttempt()
	require.NotNil(t, attempt)
	assert.Equal(t, models.SkippedAnswer, attempt.SelectedAnswer)
	assert.True(t, attempt.Skipped())
	assert.False(t, attempt.IsCorrect)

	// A skip counts as a miss.
	assert.Contains(t, h.progress.IncorrectIDs(models.CategoryRules), skippedID)
}

func TestSessionService_Skip_LastQuestionFinishes(t *testing.T) {
	h := newSessionHarness(t)
	startRules(t, h, 1)

	finished, err := h.session.Skip(context.Background())
	require.NoError(t, err)
	assert.True(t, finished)
	assert.Equal(t, StateFinished, h.session.State())
	assert.Equal(t, 0.0, h.session.Session().Score)
}

func TestSessionService_WrongAnswerEntersMissedSet(t *testing.T) {
	h := newSessionHarness(t)
	startRules(t, h, 1)

	question := h.session.CurrentQuestion()
	wrong := (question.CorrectAnswer + 1) % models.OptionCount
	h.answer(t, wrong)

	assert.Contains(t, h.progress.IncorrectIDs(models.CategoryRules), question.ID)
}

func TestSessionService_ReviewMode_CorrectAnswerLeavesMissedSet(t *testing.T) {
	h := newSessionHarness(t)
	ctx := context.Background()

	require.NoError(t, h.progress.AddIncorrectQuestion(ctx, models.CategoryRules, "rules-002"))
	require.NoError(t, h.progress.AddIncorrectQuestion(ctx, models.CategoryRules, "rules-005"))

	require.NoError(t, h.session.Start(ctx, models.SessionConfig{
		Category:   models.CategoryRules,
		ReviewMode: true,
	}))
	require.Equal(t, 2, h.session.TotalQuestions())

	// Answer the first correctly, the second wrongly.
	first := h.session.CurrentQuestion()
	h.answer(t, first.CorrectAnswer)
	second := h.session.CurrentQuestion()
	h.answer(t, (second.CorrectAnswer+1)%models.OptionCount)

	ids := h.progress.IncorrectIDs(models.CategoryRules)
	assert.NotContains(t, ids, first.ID)
	// A repeat miss in review mode stays in the set but is not re-added.
	assert.Contains(t, ids, second.ID)
	assert.Len(t, ids, 1)
}

func TestSessionService_FinishEarly(t *testing.T) {
	h := newSessionHarness(t)
	startRules(t, h, 5)
	ctx := context.Background()

	correct := h.session.CurrentQuestion().CorrectAnswer
	require.NoError(t, h.session.SelectOption(ctx, correct))
	require.NoError(t, h.session.Submit(ctx))
	_, err := h.session.Advance(ctx)
	require.NoError(t, err)

	require.NoError(t, h.session.Finish(ctx))
	assert.Equal(t, StateFinished, h.session.State())

	// Score covers only the recorded attempts.
	assert.Equal(t, 100.0, h.session.Session().Score)
	assert.Len(t, h.session.Session().Questions, 1)
	assert.False(t, h.session.HasCheckpoint(ctx))
}

func TestSessionService_Reset(t *testing.T) {
	h := newSessionHarness(t)
	startRules(t, h, 3)
	ctx := context.Background()

	require.True(t, h.session.HasCheckpoint(ctx))
	require.NoError(t, h.session.Reset(ctx))

	assert.Equal(t, StateIdle, h.session.State())
	assert.Nil(t, h.session.Session())
	assert.Nil(t, h.session.CurrentQuestion())
	assert.False(t, h.session.HasCheckpoint(ctx))
	assert.Len(t, h.events.ByType(observability.EventSessionReset), 1)

	// A discarded session contributes nothing to history.
	assert.Empty(t, h.progress.Progress().QuizHistory)
}

func TestSessionService_Resume_AfterRestart(t *testing.T) {
	h := newSessionHarness(t)
	startRules(t, h, 4)
	ctx := context.Background()

	originalID := h.session.Session().SessionID
	firstQuestion := h.session.CurrentQuestion().ID
	h.answer(t, h.session.CurrentQuestion().CorrectAnswer)
	require.Equal(t, 1, h.session.CurrentIndex())

	checkpoint, err := h.store.LoadCheckpoint(ctx)
	require.NoError(t, err)

	restarted := h.reopen(t)
	require.NoError(t, restarted.session.Resume(ctx))

	assert.Equal(t, StateAnswering, restarted.session.State())
	assert.Equal(t, originalID, restarted.session.Session().SessionID)
	assert.Equal(t, checkpoint.QuestionOrder[1], restarted.session.CurrentQuestion().ID)
	assert.Equal(t, 1, restarted.session.CurrentIndex())
	assert.Equal(t, 4, restarted.session.TotalQuestions())
	assert.NotEqual(t, firstQuestion, restarted.session.CurrentQuestion().ID)
	assert.Len(t, restarted.session.Session().Questions, 1)
	assert.Len(t, h.events.ByType(observability.EventSessionResumed), 1)

	// Finishing the resumed session folds into the same progress record.
	for restarted.session.State() == StateAnswering {
		restarted.answer(t, restarted.session.CurrentQuestion().CorrectAnswer)
	}
	assert.Equal(t, StateFinished, restarted.session.State())
	assert.Len(t, restarted.progress.Progress().QuizHistory, 1)
}

func TestSessionService_Resume_MidRevealRestoresRevealed(t *testing.T) {
	h := newSessionHarness(t)
	startRules(t, h, 3)
	ctx := context.Background()

	require.NoError(t, h.session.SelectOption(ctx, h.session.CurrentQuestion().CorrectAnswer))
	require.NoError(t, h.session.Submit(ctx))

	restarted := h.reopen(t)
	require.NoError(t, restarted.session.Resume(ctx))

	assert.Equal(t, StateRevealed, restarted.session.State())
	assert.Equal(t, 0, restarted.session.CurrentIndex())

	finished, err := restarted.session.Advance(ctx)
	require.NoError(t, err)
	assert.False(t, finished)
	assert.Equal(t, StateAnswering, restarted.session.State())
}

func TestSessionService_Resume_NoCheckpoint(t *testing.T) {
	h := newSessionHarness(t)

	err := h.session.Resume(context.Background())
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeNoActiveSession, contextutils.GetErrorCode(err))
	assert.Equal(t, StateIdle, h.session.State())
}

func TestSessionService_Resume_UnknownQuestionDiscardsCheckpoint(t *testing.T) {
	h := newSessionHarness(t)
	ctx := context.Background()

	require.NoError(t, h.store.SaveCheckpoint(ctx, &models.SessionCheckpoint{
		Session:       models.QuizSession{SessionID: "stale", Category: models.CategoryRules},
		Config:        models.SessionConfig{Category: models.CategoryRules},
		QuestionOrder: []string{"rules-001", "retired-999"},
		CurrentIndex:  0,
	}))

	err := h.session.Resume(ctx)
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeNoActiveSession, contextutils.GetErrorCode(err))
	assert.Equal(t, StateIdle, h.session.State())
	assert.False(t, h.session.HasCheckpoint(ctx))
}

func TestSessionService_CheckpointTracksProgress(t *testing.T) {
	h := newSessionHarness(t)
	startRules(t, h, 3)
	ctx := context.Background()

	checkpoint, err := h.store.LoadCheckpoint(ctx)
	require.NoError(t, err)
	require.NotNil(t, checkpoint)
	assert.Equal(t, 0, checkpoint.CurrentIndex)
	assert.Len(t, checkpoint.QuestionOrder, 3)

	h.answer(t, h.session.CurrentQuestion().CorrectAnswer)

	checkpoint, err = h.store.LoadCheckpoint(ctx)
	require.NoError(t, err)
	require.NotNil(t, checkpoint)
	assert.Equal(t, 1, checkpoint.CurrentIndex)
	assert.Len(t, checkpoint.Session.Questions, 1)
}
