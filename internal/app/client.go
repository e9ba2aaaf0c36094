// Package app wires configuration into the client and backend object graphs.
package app

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"taskboard/internal/config"
	"taskboard/internal/controller"
	"taskboard/internal/notify"
	"taskboard/internal/repository"
	"taskboard/internal/store"
)

// Client is the board side: one store client shared by the repositories and
// both boards, reporting into one notification center.
type Client struct {
	Config     *config.Config
	Logger     *zap.Logger
	Store      *store.HTTPClient
	Tasks      *repository.TaskRepository
	Categories *repository.CategoryRepository
	Projects   *repository.ProjectRepository
	Notices    *notify.Center
	Catalog    *notify.Catalog
}

func NewClient(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	catalog, err := notify.NewCatalog(cfg.Board.Language)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	s := store.New(cfg.Client.BaseURL, cfg.Client.Token)
	s.Timeout = cfg.Client.Timeout
	s.HTTPClient = &http.Client{Timeout: cfg.Client.Timeout}
	s.Logger = logger.Named("store")
	return &Client{
		Config:     cfg,
		Logger:     logger,
		Store:      s,
		Tasks:      repository.NewTaskRepository(s, logger),
		Categories: repository.NewCategoryRepository(s, logger),
		Projects:   repository.NewProjectRepository(s, logger),
		Notices:    notify.NewCenter(),
		Catalog:    catalog,
	}, nil
}

func (c *Client) options() controller.Options {
	return controller.Options{
		Logger:       c.Logger,
		Notifier:     c.Notices,
		Messages:     c.Catalog,
		TogglePolicy: controller.TogglePolicy(c.Config.Board.TogglePolicy),
	}
}

func (c *Client) TaskBoard() *controller.TaskBoard {
	return controller.NewTaskBoard(c.Tasks, c.Categories, c.options())
}

func (c *Client) ProjectBoard() *controller.ProjectBoard {
	return controller.NewProjectBoard(c.Projects, c.Config.Board.PageSize, c.options())
}
