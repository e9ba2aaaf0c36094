package notify

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

const (
	LanguageEn = "en"
	LanguageFr = "fr"
)

// Message ids of the success templates.
const (
	TaskCreated     = "taskCreated"
	TaskUpdated     = "taskUpdated"
	TaskDeleted     = "taskDeleted"
	TaskCompleted   = "taskCompleted"
	TaskRestored    = "taskRestored"
	ProjectCreated  = "projectCreated"
	ProjectUpdated  = "projectUpdated"
	ProjectDeleted  = "projectDeleted"
	CategoryCreated = "categoryCreated"
	CategoryUpdated = "categoryUpdated"
	CategoryDeleted = "categoryDeleted"
	LoadFailed      = "loadFailed"

	CategoryCountsSynced = "categoryCountsSynced"
)

//go:embed locales/*.toml
var locales embed.FS

// Catalog renders message templates in one language, falling back to English.
type Catalog struct {
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	lang      string
}

func NewCatalog(lang string) (*Catalog, error) {
	if lang == "" {
		lang = LanguageEn
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("parse language %q: %w", lang, err)
	}
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	files, err := fs.Glob(locales, "locales/*.toml")
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if _, err := bundle.LoadMessageFileFS(locales, f); err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return &Catalog{
		bundle:    bundle,
		localizer: i18n.NewLocalizer(bundle, tag.String(), LanguageEn),
		lang:      tag.String(),
	}, nil
}

// MustCatalog is NewCatalog for the embedded languages, which cannot fail to load.
func MustCatalog(lang string) *Catalog {
	c, err := NewCatalog(lang)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Language() string { return c.lang }

// Text renders id with optional template data. An unknown id renders as itself.
func (c *Catalog) Text(id string, data ...map[string]any) string {
	cfg := &i18n.LocalizeConfig{MessageID: id}
	if len(data) > 0 {
		cfg.TemplateData = data[0]
	}
	msg, err := c.localizer.Localize(cfg)
	if err != nil {
		zap.L().Warn("missing translation", zap.String("id", id), zap.String("lang", c.lang), zap.Error(err))
		return id
	}
	return msg
}
