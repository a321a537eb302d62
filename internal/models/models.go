// Package models defines data structures used throughout the judge quiz trainer.
package models

import (
	"sort"
	"time"
)

// Category identifies one of the fixed question categories.
type Category string

// The closed set of question categories. Every map keyed by Category is
// pre-populated with all of these; adding a category means updating them all.
const (
	// CategoryRules covers basic game rules, turn structure, and win conditions
	CategoryRules Category = "rules"
	// CategoryAdvancedRules covers detailed procedures, timing, and effect ordering
	CategoryAdvancedRules Category = "advanced_rules"
	// CategoryPenalties covers warnings, game losses, and disqualification criteria
	CategoryPenalties Category = "penalties"
	// CategoryTournament covers swiss pairings, round management, and deck lists
	CategoryTournament Category = "tournament"
	// CategoryMechanics covers card effect resolution, timing, and priority
	CategoryMechanics Category = "mechanics"
	// CategoryScenarios covers rulings in complex board states
	CategoryScenarios Category = "scenarios"
)

// AllCategories lists every category in display order.
var AllCategories = []Category{
	CategoryRules,
	CategoryAdvancedRules,
	CategoryPenalties,
	CategoryTournament,
	CategoryMechanics,
	CategoryScenarios,
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Difficulty represents the difficulty rating of a question.
type Difficulty string

// Difficulty levels supported by the question banks
const (
	// DifficultyBeginner is for questions testing fundamental knowledge
	DifficultyBeginner Difficulty = "beginner"
	// DifficultyIntermediate is for questions requiring rule interactions
	DifficultyIntermediate Difficulty = "intermediate"
	// DifficultyAdvanced is for questions requiring judge-level rulings
	DifficultyAdvanced Difficulty = "advanced"
)

// AllDifficulties lists every difficulty in ascending order.
var AllDifficulties = []Difficulty{
	DifficultyBeginner,
	DifficultyIntermediate,
	DifficultyAdvanced,
}

// IsValid reports whether d is a known difficulty.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// OptionCount is the number of answer options every question carries.
const OptionCount = 4

// SkippedAnswer is the sentinel selected-answer index recording a skip.
const SkippedAnswer = -1

// Question represents a single multiple-choice question. Questions come from
// the static banks and are never mutated at runtime.
type Question struct {
	ID            string     `json:"id" yaml:"id"`
	Category      Category   `json:"category" yaml:"category"`
	Difficulty    Difficulty `json:"difficulty" yaml:"difficulty"`
	Question      string     `json:"question" yaml:"question"`
	Options       []string   `json:"options" yaml:"options"`
	CorrectAnswer int        `json:"correctAnswer" yaml:"correct_answer"`
	Explanation   string     `json:"explanation" yaml:"explanation"`
	Tags          []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	Reference     string     `json:"reference,omitempty" yaml:"reference,omitempty"`
}

// QuestionBank is the external format of one category's question collection.
type QuestionBank struct {
	Category    Category   `json:"category" yaml:"category"`
	Version     string     `json:"version" yaml:"version"`
	LastUpdated string     `json:"lastUpdated" yaml:"last_updated"`
	Questions   []Question `json:"questions" yaml:"questions"`
}

// QuizAttempt records one answered-or-skipped question within a session.
// Created once and immutable thereafter.
type QuizAttempt struct {
	QuestionID     string    `json:"questionId"`
	SelectedAnswer int       `json:"selectedAnswer"`
	IsCorrect      bool      `json:"isCorrect"`
	Timestamp      time.Time `json:"timestamp"`
}

// Skipped reports whether this attempt recorded a skip rather than an answer.
func (a QuizAttempt) Skipped() bool {
	return a.SelectedAnswer == SkippedAnswer
}

// QuizSession is one quiz run from start to finish or abandonment. Attempts
// are appended in submission order. Score is populated only at completion and
// must not be trusted before EndTime is set.
type QuizSession struct {
	SessionID string        `json:"sessionId"`
	Category  Category      `json:"category"`
	StartTime time.Time     `json:"startTime"`
	EndTime   *time.Time    `json:"endTime,omitempty"`
	Questions []QuizAttempt `json:"questions"`
	Score     float64       `json:"score"`
}

// Finished reports whether the session has been finalized.
func (s *QuizSession) Finished() bool {
	return s.EndTime != nil
}

// CorrectCount returns the number of correct attempts recorded so far.
func (s *QuizSession) CorrectCount() int {
	count := 0
	for _, a := range s.Questions {
		if a.IsCorrect {
			count++
		}
	}
	return count
}

// SessionConfig describes how to build the question list for a session.
type SessionConfig struct {
	Category      Category   `json:"category" validate:"required"`
	Difficulty    Difficulty `json:"difficulty,omitempty"`
	QuestionCount int        `json:"questionCount" validate:"gte=0"`
	Shuffle       bool       `json:"shuffle"`
	ReviewMode    bool       `json:"reviewMode"`
}

// SessionCheckpoint is the durable snapshot of an in-progress session used
// for reload recovery. QuestionOrder preserves the exact presented order so
// a shuffled session can be reconstructed deterministically.
type SessionCheckpoint struct {
	Session       QuizSession   `json:"session"`
	Config        SessionConfig `json:"config"`
	QuestionOrder []string      `json:"questionOrder"`
	CurrentIndex  int           `json:"currentIndex"`
	ReviewMode    bool          `json:"reviewMode"`
}

// DifficultyStats is the per-difficulty slice of a category's statistics.
type DifficultyStats struct {
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}

// DifficultyBreakdown holds stats for each difficulty level. The base
// aggregation leaves it zero-valued; it is reserved for richer analysis that
// joins attempts back to question metadata.
type DifficultyBreakdown struct {
	Beginner     DifficultyStats `json:"beginner"`
	Intermediate DifficultyStats `json:"intermediate"`
	Advanced     DifficultyStats `json:"advanced"`
}

// CategoryStats is the derived per-category aggregate. It is always fully
// recomputed from session history, never incrementally patched.
type CategoryStats struct {
	Category       Category            `json:"category"`
	TotalAttempts  int                 `json:"totalAttempts"`
	CorrectAnswers int                 `json:"correctAnswers"`
	Accuracy       float64             `json:"accuracy"`
	LastStudied    *time.Time          `json:"lastStudied,omitempty"`
	Breakdown      DifficultyBreakdown `json:"difficultyBreakdown"`
}

// UserProgress is the root persisted aggregate: one instance per profile,
// created on first launch and mutated for the life of the app.
type UserProgress struct {
	Version                 string                      `json:"version"`
	UserID                  string                      `json:"userId"`
	CreatedAt               time.Time                   `json:"createdAt"`
	LastActive              time.Time                   `json:"lastActive"`
	TotalQuestionsAttempted int                         `json:"totalQuestionsAttempted"`
	TotalCorrect            int                         `json:"totalCorrect"`
	OverallAccuracy         float64                     `json:"overallAccuracy"`
	CategoryStats           map[Category]*CategoryStats `json:"categoryStats"`
	QuizHistory             []QuizSession               `json:"quizHistory"`
	BookmarkedQuestions     []string                    `json:"bookmarkedQuestions"`
	IncorrectQuestions      map[Category][]string       `json:"incorrectQuestions"`
}

// HistoryByRecency returns the session history sorted by descending start
// time without mutating the stored append-order slice.
func (p *UserProgress) HistoryByRecency() []QuizSession {
	sorted := make([]QuizSession, len(p.QuizHistory))
	copy(sorted, p.QuizHistory)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.After(sorted[j].StartTime)
	})
	return sorted
}
