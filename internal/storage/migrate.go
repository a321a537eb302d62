package storage

import (
	"judgequiz/internal/models"
)

// MigrateProgress upgrades a loaded progress record to the current schema in
// place. It returns whether anything changed (so the caller can write back
// immediately) and the version the record was loaded at.
//
// Upgrades are additive and self-healing: a record already at the current
// version but missing a category entry (for example after a category was
// added to the enumeration) is repaired the same way. Records from unknown
// future versions are left at their own version and only self-healed.
func MigrateProgress(progress *models.UserProgress) (changed bool, fromVersion string) {
	fromVersion = progress.Version

	// 1.0.0 predates the missed-question sets.
	if progress.Version == "1.0.0" {
		progress.Version = SchemaVersion
		changed = true
	}

	if progress.IncorrectQuestions == nil {
		progress.IncorrectQuestions = make(map[models.Category][]string, len(models.AllCategories))
		changed = true
	}
	for _, category := range models.AllCategories {
		if _, ok := progress.IncorrectQuestions[category]; !ok {
			progress.IncorrectQuestions[category] = []string{}
			changed = true
		}
	}

	if progress.CategoryStats == nil {
		progress.CategoryStats = make(map[models.Category]*models.CategoryStats, len(models.AllCategories))
		changed = true
	}
	for _, category := range models.AllCategories {
		if _, ok := progress.CategoryStats[category]; !ok {
			progress.CategoryStats[category] = &models.CategoryStats{Category: category}
			changed = true
		}
	}

	if progress.BookmarkedQuestions == nil {
		progress.BookmarkedQuestions = []string{}
		changed = true
	}

	return changed, fromVersion
}
