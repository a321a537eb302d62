package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"math/rand"
	"time"

	"judgequiz/internal/models"
	"judgequiz/internal/observability"
	contextutils "judgequiz/internal/utils"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
)

// QuestionService is the read-only repository over the static question banks.
// It holds no mutable state; every selection is reproducible given the same
// random source.
type QuestionService struct {
	banks  map[models.Category]*models.QuestionBank
	byID   map[string]*models.Question
	rng    *rand.Rand
	logger *observability.Logger
}

// SelectConfig specifies a question selection. RestrictToIDs, when non-nil,
// limits the pool to the given ids (used by review mode with the missed-set).
type SelectConfig struct {
	Category      models.Category `validate:"required"`
	Difficulty    models.Difficulty
	Count         int `validate:"gte=0"`
	Shuffle       bool
	RestrictToIDs []string
}

// BankStatistics summarizes one category's bank by difficulty.
type BankStatistics struct {
	Total        int `json:"total"`
	Beginner     int `json:"beginner"`
	Intermediate int `json:"intermediate"`
	Advanced     int `json:"advanced"`
}

// NewQuestionServiceWithLogger creates a repository over already-loaded banks
// with a time-seeded random source.
func NewQuestionServiceWithLogger(banks map[models.Category]*models.QuestionBank, logger *observability.Logger) *QuestionService {
	return NewQuestionServiceWithRand(banks, rand.New(rand.NewSource(time.Now().UnixNano())), logger)
}

// NewQuestionServiceWithRand creates a repository with an injected random
// source so shuffling is deterministic under test.
func NewQuestionServiceWithRand(banks map[models.Category]*models.QuestionBank, rng *rand.Rand, logger *observability.Logger) *QuestionService {
	byID := make(map[string]*models.Question)
	for _, bank := range banks {
		for i := range bank.Questions {
			byID[bank.Questions[i].ID] = &bank.Questions[i]
		}
	}
	return &QuestionService{
		banks:  banks,
		byID:   byID,
		rng:    rng,
		logger: logger,
	}
}

// LoadQuestionBanks reads and validates every category's bank from the given
// filesystem (questions/<category>.json). An unreadable or schema-invalid
// bank is logged and skipped, which downstream reads as an absent category.
func LoadQuestionBanks(ctx context.Context, fsys fs.FS, schema []byte, logger *observability.Logger) map[models.Category]*models.QuestionBank {
	schemaLoader := gojsonschema.NewBytesLoader(schema)

	banks := make(map[models.Category]*models.QuestionBank, len(models.AllCategories))
	for _, category := range models.AllCategories {
		path := "questions/" + string(category) + ".json"
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			logger.Warn(ctx, "Question bank missing", map[string]interface{}{"category": string(category), "error": err.Error()})
			continue
		}

		result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
		if err != nil {
			logger.Error(ctx, "Question bank validation errored", err, map[string]interface{}{"category": string(category)})
			continue
		}
		if !result.Valid() {
			fields := map[string]interface{}{"category": string(category)}
			for i, desc := range result.Errors() {
				if i >= 3 {
					break
				}
				fields[fmt.Sprintf("violation_%d", i)] = desc.String()
			}
			logger.Error(ctx, "Question bank failed schema validation, skipping", nil, fields)
			continue
		}

		bank := &models.QuestionBank{}
		if err := json.Unmarshal(data, bank); err != nil {
			logger.Error(ctx, "Question bank failed to decode", err, map[string]interface{}{"category": string(category)})
			continue
		}
		banks[category] = bank
	}
	return banks
}

// QuestionsByCategory returns the category's questions in stable source
// order, or an empty slice when the category has no bank.
func (qs *QuestionService) QuestionsByCategory(ctx context.Context, category models.Category) []models.Question {
	bank, ok := qs.banks[category]
	if !ok {
		qs.logger.Warn(ctx, "No question bank for category", map[string]interface{}{"category": string(category)})
		return []models.Question{}
	}
	out := make([]models.Question, len(bank.Questions))
	copy(out, bank.Questions)
	return out
}

// AllQuestions returns every question across all banks in category order.
func (qs *QuestionService) AllQuestions(ctx context.Context) []models.Question {
	var out []models.Question
	for _, category := range models.AllCategories {
		if bank, ok := qs.banks[category]; ok {
			out = append(out, bank.Questions...)
		}
	}
	return out
}

// QuestionByID returns the question with the given id, or nil if no bank
// contains it. Absence is logged, never returned as an error.
func (qs *QuestionService) QuestionByID(ctx context.Context, id string) *models.Question {
	q, ok := qs.byID[id]
	if !ok {
		qs.logger.Debug(ctx, "Question not found", map[string]interface{}{"question_id": id})
		return nil
	}
	copied := *q
	return &copied
}

// QuestionsByTag returns every question carrying the given tag.
func (qs *QuestionService) QuestionsByTag(ctx context.Context, tag string) []models.Question {
	var out []models.Question
	for _, q := range qs.AllQuestions(ctx) {
		for _, t := range q.Tags {
			if t == tag {
				out = append(out, q)
				break
			}
		}
	}
	return out
}

// CountByCategory returns the number of questions in a category's bank.
func (qs *QuestionService) CountByCategory(category models.Category) int {
	if bank, ok := qs.banks[category]; ok {
		return len(bank.Questions)
	}
	return 0
}

// TotalCount returns the number of questions across all banks.
func (qs *QuestionService) TotalCount() int {
	total := 0
	for _, bank := range qs.banks {
		total += len(bank.Questions)
	}
	return total
}

// BankStatistics returns per-difficulty counts for one category.
func (qs *QuestionService) BankStatistics(category models.Category) BankStatistics {
	stats := BankStatistics{}
	bank, ok := qs.banks[category]
	if !ok {
		return stats
	}
	stats.Total = len(bank.Questions)
	for _, q := range bank.Questions {
		switch q.Difficulty {
		case models.DifficultyBeginner:
			stats.Beginner++
		case models.DifficultyIntermediate:
			stats.Intermediate++
		case models.DifficultyAdvanced:
			stats.Advanced++
		}
	}
	return stats
}

// BankInfo returns the bank metadata (version, last updated) for a category,
// or nil when the category has no bank.
func (qs *QuestionService) BankInfo(category models.Category) *models.QuestionBank {
	bank, ok := qs.banks[category]
	if !ok {
		return nil
	}
	meta := &models.QuestionBank{
		Category:    bank.Category,
		Version:     bank.Version,
		LastUpdated: bank.LastUpdated,
	}
	return meta
}

// Select filters the category's questions by difficulty and id restriction,
// optionally shuffles them, and truncates to the requested count. When fewer
// questions match than requested, all matches are returned.
func (qs *QuestionService) Select(ctx context.Context, cfg SelectConfig) (result0 []models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "select",
		attribute.String("question.category", string(cfg.Category)),
		attribute.String("question.difficulty", string(cfg.Difficulty)),
		attribute.Int("question.count", cfg.Count),
		attribute.Bool("question.shuffle", cfg.Shuffle),
		attribute.Bool("question.restricted", cfg.RestrictToIDs != nil),
	)
	defer observability.FinishSpan(span, &err)

	if err := contextutils.ValidateStruct(&cfg); err != nil {
		return nil, err
	}
	if !cfg.Category.IsValid() {
		return nil, contextutils.WrapErrorf(contextutils.ErrCategoryNotFound, "unknown category %q", cfg.Category)
	}
	if cfg.Difficulty != "" && !cfg.Difficulty.IsValid() {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown difficulty %q", cfg.Difficulty)
	}

	questions := qs.QuestionsByCategory(ctx, cfg.Category)

	if cfg.Difficulty != "" {
		filtered := questions[:0]
		for _, q := range questions {
			if q.Difficulty == cfg.Difficulty {
				filtered = append(filtered, q)
			}
		}
		questions = filtered
	}

	if cfg.RestrictToIDs != nil {
		allowed := make(map[string]struct{}, len(cfg.RestrictToIDs))
		for _, id := range cfg.RestrictToIDs {
			allowed[id] = struct{}{}
		}
		filtered := questions[:0]
		for _, q := range questions {
			if _, ok := allowed[q.ID]; ok {
				filtered = append(filtered, q)
			}
		}
		questions = filtered
	}

	if cfg.Shuffle {
		qs.shuffle(questions)
	}

	if cfg.Count > 0 && len(questions) > cfg.Count {
		questions = questions[:cfg.Count]
	}

	span.SetAttributes(attribute.Int("question.selected", len(questions)))
	return questions, nil
}

// shuffle applies an unbiased Fisher-Yates permutation in place.
func (qs *QuestionService) shuffle(questions []models.Question) {
	for i := len(questions) - 1; i > 0; i-- {
		j := qs.rng.Intn(i + 1)
		questions[i], questions[j] = questions[j], questions[i]
	}
}
