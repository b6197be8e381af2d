package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/newsroom-authoring-api/internal/models"
	"github.com/newsroom-authoring-api/internal/patch"
	"github.com/newsroom-authoring-api/internal/patches"
	"github.com/newsroom-authoring-api/internal/repository"
	"github.com/rs/zerolog"
)

// articleService is the concrete implementation of ArticleService
type articleService struct {
	articles repository.ArticleRepository
	hub      *patches.Hub
	log      zerolog.Logger
}

func newArticleService(articles repository.ArticleRepository, hub *patches.Hub, log zerolog.Logger) *articleService {
	return &articleService{
		articles: articles,
		hub:      hub,
		log:      log.With().Str("service", "article").Logger(),
	}
}

func (s *articleService) Get(ctx context.Context, id string) (*models.Article, error) {
	return s.articles.GetByID(ctx, id)
}

// ApplyPatch applies a conditional partial update. The etag is checked twice:
// once against the loaded row to fail fast, and again atomically in the
// UPDATE's WHERE clause so two concurrent saves cannot both win.
func (s *articleService) ApplyPatch(ctx context.Context, id string, p models.Patch, ifEtag, sessionID string) (*models.Article, error) {
	stored, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if stored.Etag != ifEtag {
		return nil, models.ErrSaveConflict
	}

	applied := patch.OmitFields(p)
	next := patch.Apply(stored, applied)
	next.Etag = uuid.NewString()
	next.Version = stored.Version + 1

	ok, err := s.articles.Update(ctx, next, ifEtag)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrSaveConflict
	}

	s.log.Info().
		Str("item_id", id).
		Int("version", next.Version).
		Int("changed_fields", len(applied)).
		Msg("Article patched")

	s.hub.Broadcast(patches.Event{
		Type:   patches.EventPatch,
		ItemID: id,
		Patch:  applied,
		Origin: sessionID,
	})

	return next, nil
}

// Overwrite replaces article data without the etag guard and announces it as
// a forced overwrite so open sessions replace both their snapshots.
func (s *articleService) Overwrite(ctx context.Context, id string, p models.Patch, sessionID string) (*models.Article, error) {
	stored, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := patch.Apply(stored, p)
	next.Etag = uuid.NewString()
	next.Version = stored.Version + 1

	if err := s.articles.Overwrite(ctx, next); err != nil {
		return nil, err
	}

	s.log.Warn().Str("item_id", id).Msg("Article data overwritten, bypassing etag check")

	// The broadcast carries the new bookkeeping so subscribers' original
	// snapshots pick up the fresh concurrency token.
	broadcast := make(models.Patch, len(p)+2)
	for k, v := range p {
		broadcast[k] = v
	}
	broadcast["etag"] = next.Etag
	broadcast["version"] = next.Version

	s.hub.Broadcast(patches.Event{
		Type:   patches.EventOverwrite,
		ItemID: id,
		Patch:  broadcast,
		Origin: sessionID,
	})

	return next, nil
}

func (s *articleService) Lock(ctx context.Context, id, userID, sessionID string) (*models.Article, error) {
	ok, err := s.articles.SetLock(ctx, id, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrLockConflict
	}
	return s.articles.GetByID(ctx, id)
}

func (s *articleService) Unlock(ctx context.Context, id, sessionID string) (*models.Article, error) {
	stored, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if stored.IsLockedInOtherSession(sessionID) {
		return nil, models.ErrLockConflict
	}
	if err := s.articles.ClearLock(ctx, id); err != nil {
		return nil, err
	}
	return s.articles.GetByID(ctx, id)
}

func (s *articleService) Count(ctx context.Context) (int, error) {
	return s.articles.Count(ctx)
}
