package observability

import (
	"context"
	"sync"
)

// EventType identifies a core state transition surfaced to the event hook.
type EventType string

// Core event types emitted by the session machine, aggregator, and store
const (
	// EventSessionStarted fires when a new quiz session enters Answering
	EventSessionStarted EventType = "session_started"
	// EventSessionResumed fires when a checkpointed session is reconstructed
	EventSessionResumed EventType = "session_resumed"
	// EventSessionFinished fires when a session is finalized and folded into history
	EventSessionFinished EventType = "session_finished"
	// EventSessionReset fires when the machine returns to Idle discarding state
	EventSessionReset EventType = "session_reset"
	// EventAnswerSubmitted fires for every scored attempt, including skips
	EventAnswerSubmitted EventType = "answer_submitted"
	// EventMissedQuestionAdded fires when a question id enters a missed-set
	EventMissedQuestionAdded EventType = "missed_question_added"
	// EventMissedQuestionRemoved fires when a question id leaves a missed-set
	EventMissedQuestionRemoved EventType = "missed_question_removed"
	// EventCheckpointSaved fires after the in-flight session snapshot is written
	EventCheckpointSaved EventType = "checkpoint_saved"
	// EventCheckpointCleared fires when the snapshot is removed
	EventCheckpointCleared EventType = "checkpoint_cleared"
	// EventHistoryPruned fires when quota pressure truncates session history
	EventHistoryPruned EventType = "history_pruned"
	// EventSchemaMigrated fires when a persisted record is upgraded on load
	EventSchemaMigrated EventType = "schema_migrated"
	// EventWriteFailed fires when a persistence write is swallowed after retry
	EventWriteFailed EventType = "write_failed"
	// EventCorruptRecord fires when a persisted record is unreadable and treated as absent
	EventCorruptRecord EventType = "corrupt_record"
)

// Event is one structured core event.
type Event struct {
	Type   EventType
	Fields map[string]interface{}
}

// EventHook receives structured events for core state transitions. It exists
// so tests and callers can observe the missed-set bookkeeping and persistence
// outcomes without scraping logs. Implementations must be cheap; hooks run
// inline on the single thread of control.
type EventHook interface {
	Emit(ctx context.Context, event Event)
}

// LoggingEventHook forwards every event to the structured logger at debug level.
type LoggingEventHook struct {
	logger *Logger
}

// NewLoggingEventHook creates an EventHook backed by the given logger.
func NewLoggingEventHook(logger *Logger) *LoggingEventHook {
	return &LoggingEventHook{logger: logger}
}

// Emit implements EventHook.
func (h *LoggingEventHook) Emit(ctx context.Context, event Event) {
	fields := map[string]interface{}{"event": string(event.Type)}
	for k, v := range event.Fields {
		fields[k] = v
	}
	h.logger.Debug(ctx, "core event", fields)
}

// RecordingEventHook captures events in memory for test assertions.
type RecordingEventHook struct {
	mu     sync.Mutex
	events []Event
}

// NewRecordingEventHook creates an empty recording hook.
func NewRecordingEventHook() *RecordingEventHook {
	return &RecordingEventHook{}
}

// Emit implements EventHook.
func (h *RecordingEventHook) Emit(_ context.Context, event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

// Events returns a copy of everything recorded so far.
func (h *RecordingEventHook) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Event, len(h.events))
	copy(out, h.events)
	return out
}

// ByType returns the recorded events matching the given type.
func (h *RecordingEventHook) ByType(t EventType) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Event
	for _, e := range h.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
