// Package storage is the single seam between the editing session and the
// archive API: loading, locking, conditional saves and the close flow all go
// through the Gateway interface. An alternative implementation can be swapped
// in to enable offline support.
package storage

import (
	"context"
	"fmt"

	"github.com/newsroom-authoring-api/internal/autosave"
	"github.com/newsroom-authoring-api/internal/client"
	"github.com/newsroom-authoring-api/internal/models"
	"github.com/newsroom-authoring-api/internal/patch"
	"github.com/newsroom-authoring-api/internal/profile"
	"github.com/rs/zerolog"
)

// ArticleWithAutosave is the result of loading an article: the saved snapshot
// plus a pending autosave when one exists for the current session.
type ArticleWithAutosave struct {
	Saved     *models.Article
	Autosaved *models.Article
}

// CloseAction is the user's choice when closing with unsaved changes.
type CloseAction int

const (
	// CloseCancel keeps the session open; nothing is persisted or unlocked.
	CloseCancel CloseAction = iota

	// CloseDiscard drops unsaved changes and their autosave record.
	CloseDiscard

	// CloseSave persists unsaved changes before closing.
	CloseSave
)

// ClosePrompt resolves the save/discard/cancel choice when unsaved changes
// exist at close time. Implemented by the UI boundary.
type ClosePrompt func(ctx context.Context) (CloseAction, error)

// Hooks let collaborators participate in the save flow. Any hook may be nil.
type Hooks struct {
	// SaveBefore may transform the article before the patch is computed.
	SaveBefore func(ctx context.Context, current, original *models.Article) (*models.Article, error)

	// SaveAfter runs with the server-returned article after a successful save.
	SaveAfter func(ctx context.Context, next, original *models.Article)

	// ConfirmClose resolves unsaved changes at close time. When nil,
	// unsaved changes are saved before closing.
	ConfirmClose ClosePrompt
}

// Gateway is the boundary through which the session performs every
// load/lock/save/close/content-profile operation.
type Gateway interface {
	GetArticle(ctx context.Context, id string) (*ArticleWithAutosave, error)
	Lock(ctx context.Context, id string) (*models.Article, error)
	Unlock(ctx context.Context, id string) (*models.Article, error)

	// SaveArticle persists the diff between original and current, guarded
	// by original's etag. Fails with models.ErrSaveConflict when the token
	// no longer matches server state; the caller must not auto-retry.
	SaveArticle(ctx context.Context, current, original *models.Article) (*models.Article, error)

	// CloseAuthoring resolves unsaved changes, unlocks the article and
	// invokes onClose. When the user cancels, nothing happens and onClose
	// is not called.
	CloseAuthoring(ctx context.Context, current, original *models.Article, onClose func()) error

	GetContentProfile(ctx context.Context, article *models.Article) (*profile.Profile, error)

	// Autosave exposes the debounced autosave store bound to this gateway.
	Autosave() autosave.Store
}

type httpGateway struct {
	api     *client.Client
	store   autosave.Store
	schemas profile.SchemaResolver
	labels  profile.LabelResolver
	hooks   Hooks
	log     zerolog.Logger
}

// NewHTTP creates a Gateway talking to the archive REST API.
func NewHTTP(api *client.Client, store autosave.Store, schemas profile.SchemaResolver, labels profile.LabelResolver, hooks Hooks, log zerolog.Logger) Gateway {
	if labels == nil {
		labels = func(fieldID string) string { return fieldID }
	}
	return &httpGateway{
		api:     api,
		store:   store,
		schemas: schemas,
		labels:  labels,
		hooks:   hooks,
		log:     log.With().Str("component", "storage-gateway").Logger(),
	}
}

func (g *httpGateway) GetArticle(ctx context.Context, id string) (*ArticleWithAutosave, error) {
	var saved models.Article
	if err := g.api.Get(ctx, "/v1/archive/"+id, &saved); err != nil {
		return nil, fmt.Errorf("failed to fetch article %s: %w", id, err)
	}

	if saved.IsLockedInOtherSession(g.api.SessionID()) {
		// Another editor holds the lock; their autosave is not ours to load.
		return &ArticleWithAutosave{Saved: &saved}, nil
	}

	if saved.IsLockedInSession(g.api.SessionID()) {
		autosaved, err := g.store.Get(ctx, id)
		if err != nil {
			// A broken autosave must not block editing. Fall back to the
			// saved snapshot.
			if err != models.ErrNotFound {
				g.log.Warn().Err(err).Str("item_id", id).Msg("Autosave fetch failed, ignoring")
			}
			return &ArticleWithAutosave{Saved: &saved}, nil
		}
		return &ArticleWithAutosave{Saved: &saved, Autosaved: autosaved}, nil
	}

	return &ArticleWithAutosave{Saved: &saved}, nil
}

func (g *httpGateway) Lock(ctx context.Context, id string) (*models.Article, error) {
	var locked models.Article
	if err := g.api.Post(ctx, "/v1/archive/"+id+"/lock", nil, &locked); err != nil {
		return nil, err
	}
	return &locked, nil
}

func (g *httpGateway) Unlock(ctx context.Context, id string) (*models.Article, error) {
	var unlocked models.Article
	if err := g.api.Post(ctx, "/v1/archive/"+id+"/unlock", nil, &unlocked); err != nil {
		return nil, err
	}
	return &unlocked, nil
}

func (g *httpGateway) SaveArticle(ctx context.Context, current, original *models.Article) (*models.Article, error) {
	transformed := current
	if g.hooks.SaveBefore != nil {
		var err error
		transformed, err = g.hooks.SaveBefore(ctx, current, original)
		if err != nil {
			return nil, fmt.Errorf("save hook rejected article %s: %w", original.ID, err)
		}
	}

	payload := patch.OmitFields(patch.Diff(original, transformed))

	var next models.Article
	if err := g.api.Patch(ctx, "/v1/archive/"+original.ID, original.Etag, payload, &next); err != nil {
		return nil, err
	}

	if g.hooks.SaveAfter != nil {
		g.hooks.SaveAfter(ctx, &next, original)
	}
	return &next, nil
}

func (g *httpGateway) CloseAuthoring(ctx context.Context, current, original *models.Article, onClose func()) error {
	hasUnsavedChanges := len(patch.Diff(original, current)) > 0

	save := func() error {
		_, err := g.SaveArticle(ctx, current, original)
		return err
	}
	cancelAutosave := func() error {
		g.store.Cancel()
		return g.store.Delete(ctx, current)
	}
	unlock := func() error {
		_, err := g.Unlock(ctx, original.ID)
		return err
	}

	return closeFlow(ctx, hasUnsavedChanges, g.hooks.ConfirmClose, save, cancelAutosave, unlock, onClose)
}

// closeFlow is the shared close sequence: resolve unsaved changes, then
// always unlock and notify, unless the user cancelled.
func closeFlow(ctx context.Context, hasUnsavedChanges bool, confirm ClosePrompt, save, cancelAutosave, unlock func() error, onClose func()) error {
	if hasUnsavedChanges {
		action := CloseSave
		if confirm != nil {
			var err error
			action, err = confirm(ctx)
			if err != nil {
				return err
			}
		}

		switch action {
		case CloseCancel:
			return nil
		case CloseSave:
			if err := save(); err != nil {
				return err
			}
		case CloseDiscard:
			if err := cancelAutosave(); err != nil {
				return err
			}
		}
	}

	if err := unlock(); err != nil {
		return err
	}
	onClose()
	return nil
}

func (g *httpGateway) GetContentProfile(ctx context.Context, article *models.Article) (*profile.Profile, error) {
	return profile.Resolve(ctx, g.schemas, g.labels, article)
}

func (g *httpGateway) Autosave() autosave.Store {
	return g.store
}

// httpSchemaResolver fetches raw profile schemas from the archive API.
type httpSchemaResolver struct {
	api *client.Client
}

// NewHTTPSchemaResolver resolves content-profile schemas via the API.
func NewHTTPSchemaResolver(api *client.Client) profile.SchemaResolver {
	return &httpSchemaResolver{api: api}
}

func (r *httpSchemaResolver) ResolveSchema(ctx context.Context, profileID string) (*profile.Schema, error) {
	var schema profile.Schema
	if err := r.api.Get(ctx, "/v1/content_types/"+profileID, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}
