package repository

import (
	"context"

	"github.com/newsroom-authoring-api/internal/database"
	"github.com/newsroom-authoring-api/internal/models"
	"github.com/newsroom-authoring-api/internal/profile"
)

// ArticleRepository defines the interface for archive data operations
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	GetByID(ctx context.Context, id string) (*models.Article, error)

	// Update persists the article guarded by the expected etag. Returns
	// false without error when the row's etag no longer matches.
	Update(ctx context.Context, article *models.Article, ifEtag string) (bool, error)

	// Overwrite persists the article unconditionally, bypassing the etag
	// guard. Used only by the forced-overwrite path.
	Overwrite(ctx context.Context, article *models.Article) error

	SetLock(ctx context.Context, id, userID, sessionID string) (bool, error)
	ClearLock(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// AutosaveRepository defines the interface for autosave records
type AutosaveRepository interface {
	Get(ctx context.Context, itemID string) (*models.AutosaveRecord, error)
	Upsert(ctx context.Context, record *models.AutosaveRecord) error
	Delete(ctx context.Context, itemID string) error
	Count(ctx context.Context) (int, error)
}

// ProfileRepository defines the interface for content-profile schemas
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*profile.Schema, error)
	Upsert(ctx context.Context, id string, schema *profile.Schema) error
}

// Repositories holds all repository interfaces
type Repositories struct {
	Article  ArticleRepository
	Autosave AutosaveRepository
	Profile  ProfileRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Article:  NewArticleRepo(db),
		Autosave: NewAutosaveRepo(db),
		Profile:  NewProfileRepo(db),
	}
}
