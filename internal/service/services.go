package service

import (
	"context"

	"github.com/newsroom-authoring-api/internal/models"
	"github.com/newsroom-authoring-api/internal/patches"
	"github.com/newsroom-authoring-api/internal/profile"
	"github.com/newsroom-authoring-api/internal/repository"
	"github.com/rs/zerolog"
)

// ArticleService defines the interface for archive operations
type ArticleService interface {
	Get(ctx context.Context, id string) (*models.Article, error)

	// ApplyPatch applies a partial update guarded by the expected etag and
	// broadcasts it to subscribed sessions. Fails with
	// models.ErrSaveConflict when the token no longer matches.
	ApplyPatch(ctx context.Context, id string, p models.Patch, ifEtag, sessionID string) (*models.Article, error)

	// Overwrite replaces article data bypassing the etag check and
	// broadcasts a forced-overwrite event.
	Overwrite(ctx context.Context, id string, p models.Patch, sessionID string) (*models.Article, error)

	Lock(ctx context.Context, id, userID, sessionID string) (*models.Article, error)
	Unlock(ctx context.Context, id, sessionID string) (*models.Article, error)
	Count(ctx context.Context) (int, error)
}

// AutosaveService defines the interface for autosave records
type AutosaveService interface {
	Get(ctx context.Context, itemID string) (*models.AutosaveRecord, error)
	Put(ctx context.Context, record *models.AutosaveRecord) error
	Delete(ctx context.Context, itemID string) error
	Count(ctx context.Context) (int, error)
}

// ProfileService defines the interface for content-profile schemas
type ProfileService interface {
	GetSchema(ctx context.Context, id string) (*profile.Schema, error)
}

// Services holds all service interfaces
type Services struct {
	Article  ArticleService
	Autosave AutosaveService
	Profile  ProfileService
	Hub      *patches.Hub
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, hub *patches.Hub, log zerolog.Logger) *Services {
	return &Services{
		Article:  newArticleService(repos.Article, hub, log),
		Autosave: newAutosaveService(repos.Autosave, log),
		Profile:  newProfileService(repos.Profile),
		Hub:      hub,
	}
}
