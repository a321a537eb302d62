package commands

import (
	"testing"

	"judgequiz/internal/config"
	"judgequiz/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestResolveSessionConfig_Defaults(t *testing.T) {
	quizCfg := config.QuizConfig{DefaultQuestionCount: 10, ShuffleByDefault: true}

	cfg := resolveSessionConfig(quizCfg, sessionFlags{category: "rules"})

	assert.Equal(t, models.CategoryRules, cfg.Category)
	assert.Equal(t, 10, cfg.QuestionCount)
	assert.True(t, cfg.Shuffle)
	assert.False(t, cfg.ReviewMode)
}

func TestResolveSessionConfig_ExplicitShuffleFalseOverridesDefault(t *testing.T) {
	quizCfg := config.QuizConfig{DefaultQuestionCount: 10, ShuffleByDefault: true}

	cfg := resolveSessionConfig(quizCfg, sessionFlags{
		category:   "rules",
		shuffle:    false,
		shuffleSet: true,
	})

	assert.False(t, cfg.Shuffle)
}

func TestResolveSessionConfig_ExplicitValuesWin(t *testing.T) {
	quizCfg := config.QuizConfig{DefaultQuestionCount: 10}

	cfg := resolveSessionConfig(quizCfg, sessionFlags{
		category:   "mechanics",
		difficulty: "advanced",
		count:      3,
		shuffle:    true,
		shuffleSet: true,
		review:     true,
	})

	assert.Equal(t, models.CategoryMechanics, cfg.Category)
	assert.Equal(t, models.DifficultyAdvanced, cfg.Difficulty)
	assert.Equal(t, 3, cfg.QuestionCount)
	assert.True(t, cfg.Shuffle)
	assert.True(t, cfg.ReviewMode)
}
