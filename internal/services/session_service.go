package services

import (
	"context"
	"time"

	"judgequiz/internal/models"
	"judgequiz/internal/observability"
	"judgequiz/internal/storage"
	contextutils "judgequiz/internal/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// SessionState is the quiz session machine's current state.
type SessionState string

// Session machine states. Every operation is legal only in specific states;
// an operation invoked elsewhere returns an INVALID_TRANSITION error and
// leaves all state untouched.
const (
	// StateIdle means no session exists
	StateIdle SessionState = "idle"
	// StateAnswering means a question is presented and awaiting an answer
	StateAnswering SessionState = "answering"
	// StateRevealed means the current question has been scored and explained
	StateRevealed SessionState = "revealed"
	// StateFinished means the session is finalized and folded into history
	StateFinished SessionState = "finished"
)

// noSelection is the pending-selection value meaning nothing is picked yet.
const noSelection = -1

// SessionService drives one quiz session at a time through its lifecycle and
// checkpoints it after every mutation so an interrupted run can be resumed.
// It is single-threaded by design: one session, one caller.
type SessionService struct {
	questions *QuestionService
	progress  *ProgressService
	store     storage.Store
	logger    *observability.Logger
	events    observability.EventHook

	state     SessionState
	session   *models.QuizSession
	config    models.SessionConfig
	order     []models.Question
	index     int
	selection int
}

// NewSessionService creates a session machine in the Idle state.
func NewSessionService(questions *QuestionService, progress *ProgressService, store storage.Store, logger *observability.Logger, events observability.EventHook) *SessionService {
	return &SessionService{
		questions: questions,
		progress:  progress,
		store:     store,
		logger:    logger,
		events:    events,
		state:     StateIdle,
		selection: noSelection,
	}
}

// State returns the machine's current state.
func (ss *SessionService) State() SessionState {
	return ss.state
}

// Session returns the live session, or nil in Idle.
func (ss *SessionService) Session() *models.QuizSession {
	return ss.session
}

// Config returns the configuration the live session was started with.
func (ss *SessionService) Config() models.SessionConfig {
	return ss.config
}

// CurrentIndex returns the zero-based position in the question order.
func (ss *SessionService) CurrentIndex() int {
	return ss.index
}

// TotalQuestions returns how many questions the session presents.
func (ss *SessionService) TotalQuestions() int {
	return len(ss.order)
}

// CurrentQuestion returns the question at the current position, or nil when
// no session is active.
func (ss *SessionService) CurrentQuestion() *models.Question {
	if ss.state == StateIdle || ss.index >= len(ss.order) {
		return nil
	}
	q := ss.order[ss.index]
	return &q
}

// PendingSelection returns the currently picked option index and whether one
// has been picked.
func (ss *SessionService) PendingSelection() (int, bool) {
	if ss.selection == noSelection {
		return 0, false
	}
	return ss.selection, true
}

// LastAttempt returns the most recently recorded attempt, or nil before any.
func (ss *SessionService) LastAttempt() *models.QuizAttempt {
	if ss.session == nil || len(ss.session.Questions) == 0 {
		return nil
	}
	a := ss.session.Questions[len(ss.session.Questions)-1]
	return &a
}

// Start begins a new session. In review mode the pool is restricted to the
// category's missed-set. An empty pool fails with NoQuestionsAvailableError
// and the machine stays Idle.
func (ss *SessionService) Start(ctx context.Context, cfg models.SessionConfig) (err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "start",
		attribute.String("session.category", string(cfg.Category)),
		attribute.Bool("session.review_mode", cfg.ReviewMode),
		attribute.Int("session.question_count", cfg.QuestionCount),
	)
	defer observability.FinishSpan(span, &err)

	if ss.state != StateIdle {
		return contextutils.WrapErrorf(contextutils.ErrInvalidTransition, "cannot start a session in state %s", ss.state)
	}
	if err := contextutils.ValidateStruct(&cfg); err != nil {
		return err
	}

	selectCfg := SelectConfig{
		Category:   cfg.Category,
		Difficulty: cfg.Difficulty,
		Count:      cfg.QuestionCount,
		Shuffle:    cfg.Shuffle,
	}
	if cfg.ReviewMode {
		selectCfg.RestrictToIDs = ss.progress.IncorrectIDs(cfg.Category)
	}

	selected, err := ss.questions.Select(ctx, selectCfg)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return &NoQuestionsAvailableError{
			Category:   cfg.Category,
			Difficulty: cfg.Difficulty,
			ReviewMode: cfg.ReviewMode,
		}
	}

	ss.session = &models.QuizSession{
		SessionID: uuid.New().String(),
		Category:  cfg.Category,
		StartTime: time.Now().UTC(),
		Questions: []models.QuizAttempt{},
	}
	ss.config = cfg
	ss.order = selected
	ss.index = 0
	ss.selection = noSelection
	ss.state = StateAnswering

	ss.logger.Info(ctx, "Session started", map[string]interface{}{
		"session_id":  ss.session.SessionID,
		"category":    string(cfg.Category),
		"questions":   len(selected),
		"review_mode": cfg.ReviewMode,
	})
	ss.emit(ctx, observability.EventSessionStarted, map[string]interface{}{
		"session_id":  ss.session.SessionID,
		"category":    string(cfg.Category),
		"questions":   len(selected),
		"review_mode": cfg.ReviewMode,
	})
	return ss.checkpoint(ctx)
}

// SelectOption records a provisional answer pick. Legal only while Answering;
// repicking overwrites the previous pick. Nothing is scored until Submit.
func (ss *SessionService) SelectOption(ctx context.Context, option int) error {
	if ss.state != StateAnswering {
		return contextutils.WrapErrorf(contextutils.ErrInvalidTransition, "cannot select an option in state %s", ss.state)
	}
	if option < 0 || option >= models.OptionCount {
		return contextutils.WrapErrorf(contextutils.ErrInvalidAnswerIndex, "option %d out of range [0,%d)", option, models.OptionCount)
	}
	ss.selection = option
	return nil
}

// Submit scores the pending selection against the current question, records
// the attempt, applies the missed-set side effects, and moves to Revealed.
func (ss *SessionService) Submit(ctx context.Context) (err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "submit",
		attribute.Int("session.index", ss.index),
	)
	defer observability.FinishSpan(span, &err)

	if ss.state != StateAnswering {
		return contextutils.WrapErrorf(contextutils.ErrInvalidTransition, "cannot submit in state %s", ss.state)
	}
	if ss.selection == noSelection {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "no option selected")
	}

	question := ss.order[ss.index]
	correct := ss.selection == question.CorrectAnswer

	ss.recordAttempt(ctx, question, ss.selection, correct)
	ss.selection = noSelection
	ss.state = StateRevealed
	return ss.checkpoint(ctx)
}

// Skip records the current question as skipped and advances immediately,
// bypassing the Revealed state. A skip counts as a miss.
func (ss *SessionService) Skip(ctx context.Context) (finished bool, err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "skip",
		attribute.Int("session.index", ss.index),
	)
	defer observability.FinishSpan(span, &err)

	if ss.state != StateAnswering {
		return false, contextutils.WrapErrorf(contextutils.ErrInvalidTransition, "cannot skip in state %s", ss.state)
	}

	question := ss.order[ss.index]
	ss.recordAttempt(ctx, question, models.SkippedAnswer, false)
	ss.selection = noSelection

	return ss.advance(ctx)
}

// Advance moves from Revealed to the next question, or finalizes the session
// when the last question has been scored.
func (ss *SessionService) Advance(ctx context.Context) (finished bool, err error) {
	if ss.state != StateRevealed {
		return false, contextutils.WrapErrorf(contextutils.ErrInvalidTransition, "cannot advance in state %s", ss.state)
	}
	return ss.advance(ctx)
}

// Finish finalizes the session early, scoring only the attempts recorded so
// far. Legal in Answering and Revealed.
func (ss *SessionService) Finish(ctx context.Context) (err error) {
	if ss.state != StateAnswering && ss.state != StateRevealed {
		return contextutils.WrapErrorf(contextutils.ErrInvalidTransition, "cannot finish in state %s", ss.state)
	}
	return ss.finalize(ctx)
}

// Reset discards any session state and returns to Idle, clearing the
// checkpoint. Legal in every state.
func (ss *SessionService) Reset(ctx context.Context) (err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "reset")
	defer observability.FinishSpan(span, &err)

	hadSession := ss.session != nil
	ss.session = nil
	ss.config = models.SessionConfig{}
	ss.order = nil
	ss.index = 0
	ss.selection = noSelection
	ss.state = StateIdle

	if hadSession {
		ss.emit(ctx, observability.EventSessionReset, nil)
	}
	return ss.store.ClearCheckpoint(ctx)
}

// Resume reconstructs an interrupted session from the persisted checkpoint.
// Legal only in Idle. A missing checkpoint returns NO_ACTIVE_SESSION; a
// checkpoint referencing questions no longer in the banks is discarded.
func (ss *SessionService) Resume(ctx context.Context) (err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "resume")
	defer observability.FinishSpan(span, &err)

	if ss.state != StateIdle {
		return contextutils.WrapErrorf(contextutils.ErrInvalidTransition, "cannot resume in state %s", ss.state)
	}

	checkpoint, err := ss.store.LoadCheckpoint(ctx)
	if err != nil {
		return contextutils.WrapError(err, "failed to load checkpoint")
	}
	if checkpoint == nil {
		return contextutils.WrapErrorf(contextutils.ErrNoActiveSession, "no checkpoint to resume")
	}
	if checkpoint.Session.Finished() || checkpoint.CurrentIndex >= len(checkpoint.QuestionOrder) {
		ss.logger.Warn(ctx, "Checkpoint is already complete, discarding", map[string]interface{}{
			"session_id": checkpoint.Session.SessionID,
		})
		_ = ss.store.ClearCheckpoint(ctx)
		return contextutils.WrapErrorf(contextutils.ErrNoActiveSession, "checkpoint already complete")
	}

	order := make([]models.Question, 0, len(checkpoint.QuestionOrder))
	for _, id := range checkpoint.QuestionOrder {
		q := ss.questions.QuestionByID(ctx, id)
		if q == nil {
			ss.logger.Warn(ctx, "Checkpoint references unknown question, discarding", map[string]interface{}{
				"session_id":  checkpoint.Session.SessionID,
				"question_id": id,
			})
			_ = ss.store.ClearCheckpoint(ctx)
			return contextutils.WrapErrorf(contextutils.ErrNoActiveSession, "checkpoint references unknown question %s", id)
		}
		order = append(order, *q)
	}

	session := checkpoint.Session
	ss.session = &session
	ss.config = checkpoint.Config
	ss.order = order
	ss.index = checkpoint.CurrentIndex
	ss.selection = noSelection

	// More recorded attempts than the current index means the current
	// question was already scored before the interruption.
	if len(session.Questions) > checkpoint.CurrentIndex {
		ss.state = StateRevealed
	} else {
		ss.state = StateAnswering
	}

	ss.logger.Info(ctx, "Session resumed", map[string]interface{}{
		"session_id": session.SessionID,
		"index":      ss.index,
		"questions":  len(order),
		"state":      string(ss.state),
	})
	ss.emit(ctx, observability.EventSessionResumed, map[string]interface{}{
		"session_id": session.SessionID,
		"index":      ss.index,
	})
	return nil
}

// HasCheckpoint reports whether a resumable checkpoint is persisted.
func (ss *SessionService) HasCheckpoint(ctx context.Context) bool {
	checkpoint, err := ss.store.LoadCheckpoint(ctx)
	return err == nil && checkpoint != nil && !checkpoint.Session.Finished()
}

// recordAttempt appends a scored attempt and applies the missed-set rules:
// a miss outside review mode enters the set, a correct answer in review mode
// leaves it.
func (ss *SessionService) recordAttempt(ctx context.Context, question models.Question, selected int, correct bool) {
	attempt := models.QuizAttempt{
		QuestionID:     question.ID,
		SelectedAnswer: selected,
		IsCorrect:      correct,
		Timestamp:      time.Now().UTC(),
	}
	ss.session.Questions = append(ss.session.Questions, attempt)

	if !correct && !ss.config.ReviewMode {
		if err := ss.progress.AddIncorrectQuestion(ctx, question.Category, question.ID); err != nil {
			ss.logger.Warn(ctx, "Failed to record missed question", map[string]interface{}{
				"question_id": question.ID,
				"error":       err.Error(),
			})
		}
	}
	if correct && ss.config.ReviewMode {
		if err := ss.progress.RemoveIncorrectQuestion(ctx, question.Category, question.ID); err != nil {
			ss.logger.Warn(ctx, "Failed to clear missed question", map[string]interface{}{
				"question_id": question.ID,
				"error":       err.Error(),
			})
		}
	}

	ss.emit(ctx, observability.EventAnswerSubmitted, map[string]interface{}{
		"session_id":  ss.session.SessionID,
		"question_id": question.ID,
		"correct":     correct,
		"skipped":     attempt.Skipped(),
	})
}

// advance moves to the next question or finalizes past the last one.
func (ss *SessionService) advance(ctx context.Context) (bool, error) {
	if ss.index+1 < len(ss.order) {
		ss.index++
		ss.state = StateAnswering
		return false, ss.checkpoint(ctx)
	}
	return true, ss.finalize(ctx)
}

// finalize stamps the end time, computes the score over recorded attempts,
// folds the session into progress, and clears the checkpoint.
func (ss *SessionService) finalize(ctx context.Context) error {
	now := time.Now().UTC()
	ss.session.EndTime = &now
	if attempts := len(ss.session.Questions); attempts > 0 {
		ss.session.Score = RoundAccuracy(float64(ss.session.CorrectCount()) / float64(attempts) * 100)
	}

	if err := ss.progress.OnSessionFinished(ctx, ss.session); err != nil {
		return contextutils.WrapError(err, "failed to record finished session")
	}
	if err := ss.store.ClearCheckpoint(ctx); err != nil {
		ss.logger.Warn(ctx, "Failed to clear checkpoint after finish", map[string]interface{}{"error": err.Error()})
	}

	ss.state = StateFinished
	ss.logger.Info(ctx, "Session finished", map[string]interface{}{
		"session_id": ss.session.SessionID,
		"score":      ss.session.Score,
		"attempts":   len(ss.session.Questions),
	})
	ss.emit(ctx, observability.EventSessionFinished, map[string]interface{}{
		"session_id": ss.session.SessionID,
		"score":      ss.session.Score,
		"attempts":   len(ss.session.Questions),
	})
	return nil
}

// checkpoint snapshots the in-flight session. Best-effort: the store logs
// and absorbs write failures.
func (ss *SessionService) checkpoint(ctx context.Context) error {
	ids := make([]string, len(ss.order))
	for i, q := range ss.order {
		ids[i] = q.ID
	}
	return ss.store.SaveCheckpoint(ctx, &models.SessionCheckpoint{
		Session:       *ss.session,
		Config:        ss.config,
		QuestionOrder: ids,
		CurrentIndex:  ss.index,
		ReviewMode:    ss.config.ReviewMode,
	})
}

func (ss *SessionService) emit(ctx context.Context, eventType observability.EventType, fields map[string]interface{}) {
	if ss.events == nil {
		return
	}
	ss.events.Emit(ctx, observability.Event{Type: eventType, Fields: fields})
}
