// Package commands implements the quiz CLI subcommands.
package commands

import (
	"judgequiz/internal/config"
	"judgequiz/internal/observability"
	"judgequiz/internal/services"
	"judgequiz/internal/storage"
)

// App bundles the initialized services every subcommand works against.
type App struct {
	Config    *config.Config
	Logger    *observability.Logger
	Store     storage.Store
	Questions *services.QuestionService
	Progress  *services.ProgressService
	Session   *services.SessionService
}
