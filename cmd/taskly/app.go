package main

import (
	"fmt"

	"gorm.io/gorm"

	"taskly/internal/config"
	"taskly/internal/llm"
	"taskly/internal/recommend"
	"taskly/internal/repository"
	"taskly/internal/service"
)

// app holds the wiring shared by every subcommand.
type app struct {
	cfg config.Config
	db  *gorm.DB

	users        *repository.UserRepository
	settingsRepo *repository.SettingsRepository
	recRepo      *repository.RecommendationRepository

	tasks     *service.TaskService
	settings  *service.SettingsService
	generator *recommend.Generator
	keys      *llm.KeyValidator
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	a := &app{
		cfg:          cfg,
		db:           db,
		users:        repository.NewUserRepository(db),
		settingsRepo: repository.NewSettingsRepository(db),
		recRepo:      repository.NewRecommendationRepository(db),
		keys:         llm.NewKeyValidator(),
	}
	a.tasks = service.NewTaskService(repository.NewTaskRepository(db), cfg.FetchRetryDelay)
	a.settings = service.NewSettingsService(a.settingsRepo, a.users, llm.NewFactory(cfg.LLM), a.keys)

	var opts []recommend.Option
	if cfg.ModelRecommendations() {
		opts = append(opts, recommend.WithModel(a.settings))
	}
	a.generator = recommend.NewGenerator(a.tasks, a.recRepo, opts...)
	return a, nil
}

func (a *app) Close() error {
	return repository.Close(a.db)
}
