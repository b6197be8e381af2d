package storage_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/newsroom-authoring-api/internal/client"
	"github.com/newsroom-authoring-api/internal/mocks"
	"github.com/newsroom-authoring-api/internal/models"
	"github.com/newsroom-authoring-api/internal/profile"
	"github.com/newsroom-authoring-api/internal/storage"
)

// archiveBackend is a minimal in-memory stand-in for the archive API used to
// drive the HTTP gateway in tests.
type archiveBackend struct {
	mu       sync.Mutex
	articles map[string]*models.Article
	schemas  map[string]*profile.Schema

	patches []models.Patch
	unlocks int
}

func newArchiveBackend() *archiveBackend {
	return &archiveBackend{
		articles: make(map[string]*models.Article),
		schemas:  make(map[string]*profile.Schema),
	}
}

func (b *archiveBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/archive/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/v1/archive/")
		id := rest
		action := ""
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			id, action = rest[:i], rest[i+1:]
		}

		b.mu.Lock()
		defer b.mu.Unlock()

		article, ok := b.articles[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		switch {
		case r.Method == http.MethodGet && action == "":
			json.NewEncoder(w).Encode(article)
		case r.Method == http.MethodPatch && action == "":
			if r.Header.Get(client.HeaderIfMatch) != article.Etag {
				w.WriteHeader(http.StatusPreconditionFailed)
				return
			}
			var p models.Patch
			json.NewDecoder(r.Body).Decode(&p)
			b.patches = append(b.patches, p)

			next := article.Clone()
			if headline, ok := p["headline"].(string); ok {
				next.Headline = headline
			}
			next.Etag = article.Etag + "'"
			next.Version++
			b.articles[id] = next
			json.NewEncoder(w).Encode(next)
		case r.Method == http.MethodPost && action == "unlock":
			b.unlocks++
			next := article.Clone()
			next.LockedBy = ""
			next.LockSession = ""
			b.articles[id] = next
			json.NewEncoder(w).Encode(next)
		case r.Method == http.MethodPost && action == "lock":
			next := article.Clone()
			next.LockedBy = "user-1"
			next.LockSession = r.Header.Get(client.HeaderSession)
			b.articles[id] = next
			json.NewEncoder(w).Encode(next)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/v1/content_types/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/v1/content_types/")
		b.mu.Lock()
		defer b.mu.Unlock()
		schema, ok := b.schemas[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(schema)
	})

	return mux
}

func (b *archiveBackend) lastPatch() models.Patch {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.patches) == 0 {
		return nil
	}
	return b.patches[len(b.patches)-1]
}

func newTestGateway(t *testing.T, backend *archiveBackend, store *mocks.MockAutosaveStore, hooks storage.Hooks) storage.Gateway {
	t.Helper()
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	api := client.New(server.URL, "session-1", zerolog.Nop())
	return storage.NewHTTP(api, store, storage.NewHTTPSchemaResolver(api), nil, hooks, zerolog.Nop())
}

func seedArticle(backend *archiveBackend, lockSession string) *models.Article {
	article := &models.Article{
		ID:          "article-1",
		Headline:    "Original headline",
		Profile:     "news",
		Status:      "draft",
		Etag:        "etag-1",
		Version:     1,
		LockSession: lockSession,
	}
	if lockSession != "" {
		article.LockedBy = "user-1"
	}
	backend.articles["article-1"] = article
	return article
}

func TestGetArticle_LockedInCurrentSession(t *testing.T) {
	backend := newArchiveBackend()
	seedArticle(backend, "session-1")
	store := mocks.NewMockAutosaveStore()
	store.Records["article-1"] = &models.Article{ID: "article-1", Headline: "Autosaved headline"}

	gw := newTestGateway(t, backend, store, storage.Hooks{})

	item, err := gw.GetArticle(context.Background(), "article-1")
	if err != nil {
		t.Fatalf("GetArticle failed: %v", err)
	}
	if item.Autosaved == nil || item.Autosaved.Headline != "Autosaved headline" {
		t.Errorf("Expected autosave loaded for own lock, got %+v", item.Autosaved)
	}
}

func TestGetArticle_LockedInOtherSession(t *testing.T) {
	backend := newArchiveBackend()
	seedArticle(backend, "session-2")
	store := mocks.NewMockAutosaveStore()
	store.Records["article-1"] = &models.Article{ID: "article-1", Headline: "Someone else's draft"}

	gw := newTestGateway(t, backend, store, storage.Hooks{})

	item, err := gw.GetArticle(context.Background(), "article-1")
	if err != nil {
		t.Fatalf("GetArticle failed: %v", err)
	}
	if item.Autosaved != nil {
		t.Error("Another session's autosave must not be loaded")
	}
	if item.Saved.Headline != "Original headline" {
		t.Errorf("Expected saved snapshot, got %q", item.Saved.Headline)
	}
}

func TestGetArticle_AutosaveFailureFallsBack(t *testing.T) {
	backend := newArchiveBackend()
	seedArticle(backend, "session-1")
	store := mocks.NewMockAutosaveStore()
	store.GetErr = errors.New("autosave backend down")

	gw := newTestGateway(t, backend, store, storage.Hooks{})

	item, err := gw.GetArticle(context.Background(), "article-1")
	if err != nil {
		t.Fatalf("Autosave failure must not block loading, got %v", err)
	}
	if item.Autosaved != nil {
		t.Error("Expected fallback to saved snapshot")
	}
}

func TestGetArticle_NotFound(t *testing.T) {
	backend := newArchiveBackend()
	gw := newTestGateway(t, backend, mocks.NewMockAutosaveStore(), storage.Hooks{})

	if _, err := gw.GetArticle(context.Background(), "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestSaveArticle_SendsStrippedDiff(t *testing.T) {
	backend := newArchiveBackend()
	original := seedArticle(backend, "session-1")
	gw := newTestGateway(t, backend, mocks.NewMockAutosaveStore(), storage.Hooks{})

	current := original.Clone()
	current.Headline = "Changed headline"
	current.Version = 99 // bookkeeping noise that must not reach the server

	next, err := gw.SaveArticle(context.Background(), current, original)
	if err != nil {
		t.Fatalf("SaveArticle failed: %v", err)
	}

	sent := backend.lastPatch()
	if sent["headline"] != "Changed headline" {
		t.Errorf("Expected headline in payload, got %v", sent)
	}
	if _, ok := sent["version"]; ok {
		t.Error("Bookkeeping fields must be stripped from the payload")
	}
	if _, ok := sent["status"]; ok {
		t.Error("Unchanged fields must not be in the payload")
	}
	if next.Etag == original.Etag {
		t.Error("Expected server-assigned etag on the result")
	}
	if next.Headline != "Changed headline" {
		t.Errorf("Expected server snapshot back, got %q", next.Headline)
	}
}

func TestSaveArticle_StaleEtagConflicts(t *testing.T) {
	backend := newArchiveBackend()
	original := seedArticle(backend, "session-1")
	gw := newTestGateway(t, backend, mocks.NewMockAutosaveStore(), storage.Hooks{})

	stale := original.Clone()
	stale.Etag = "etag-0"
	current := stale.Clone()
	current.Headline = "Changed"

	if _, err := gw.SaveArticle(context.Background(), current, stale); !errors.Is(err, models.ErrSaveConflict) {
		t.Fatalf("Expected ErrSaveConflict, got %v", err)
	}
}

func TestSaveArticle_Hooks(t *testing.T) {
	backend := newArchiveBackend()
	original := seedArticle(backend, "session-1")

	var afterRan bool
	hooks := storage.Hooks{
		SaveBefore: func(ctx context.Context, current, original *models.Article) (*models.Article, error) {
			transformed := current.Clone()
			transformed.Headline = transformed.Headline + " [edited]"
			return transformed, nil
		},
		SaveAfter: func(ctx context.Context, next, original *models.Article) {
			afterRan = true
		},
	}
	gw := newTestGateway(t, backend, mocks.NewMockAutosaveStore(), hooks)

	current := original.Clone()
	current.Headline = "Changed"

	next, err := gw.SaveArticle(context.Background(), current, original)
	if err != nil {
		t.Fatalf("SaveArticle failed: %v", err)
	}
	if next.Headline != "Changed [edited]" {
		t.Errorf("Expected transform applied before save, got %q", next.Headline)
	}
	if !afterRan {
		t.Error("Expected SaveAfter hook to run")
	}
}

func TestCloseAuthoring(t *testing.T) {
	promptWith := func(action storage.CloseAction) storage.ClosePrompt {
		return func(ctx context.Context) (storage.CloseAction, error) {
			return action, nil
		}
	}

	t.Run("save on close by default", func(t *testing.T) {
		backend := newArchiveBackend()
		original := seedArticle(backend, "session-1")
		gw := newTestGateway(t, backend, mocks.NewMockAutosaveStore(), storage.Hooks{})

		current := original.Clone()
		current.Headline = "Changed"

		closed := false
		if err := gw.CloseAuthoring(context.Background(), current, original, func() { closed = true }); err != nil {
			t.Fatalf("CloseAuthoring failed: %v", err)
		}
		if !closed {
			t.Error("Expected close callback")
		}
		if backend.lastPatch() == nil {
			t.Error("Expected unsaved changes persisted")
		}
		if backend.unlocks != 1 {
			t.Errorf("Expected unlock, got %d", backend.unlocks)
		}
	})

	t.Run("cancel leaves everything alone", func(t *testing.T) {
		backend := newArchiveBackend()
		original := seedArticle(backend, "session-1")
		hooks := storage.Hooks{ConfirmClose: promptWith(storage.CloseCancel)}
		gw := newTestGateway(t, backend, mocks.NewMockAutosaveStore(), hooks)

		current := original.Clone()
		current.Headline = "Changed"

		closed := false
		if err := gw.CloseAuthoring(context.Background(), current, original, func() { closed = true }); err != nil {
			t.Fatalf("CloseAuthoring failed: %v", err)
		}
		if closed {
			t.Error("Cancel must not close")
		}
		if backend.lastPatch() != nil || backend.unlocks != 0 {
			t.Error("Cancel must not save or unlock")
		}
	})

	t.Run("discard drops the autosave record", func(t *testing.T) {
		backend := newArchiveBackend()
		original := seedArticle(backend, "session-1")
		store := mocks.NewMockAutosaveStore()
		hooks := storage.Hooks{ConfirmClose: promptWith(storage.CloseDiscard)}
		gw := newTestGateway(t, backend, store, hooks)

		current := original.Clone()
		current.Headline = "Changed"

		closed := false
		if err := gw.CloseAuthoring(context.Background(), current, original, func() { closed = true }); err != nil {
			t.Fatalf("CloseAuthoring failed: %v", err)
		}
		if !closed {
			t.Error("Expected close callback")
		}
		if backend.lastPatch() != nil {
			t.Error("Discard must not save")
		}
		if store.Cancels == 0 || store.DeletedCount() == 0 {
			t.Error("Discard must cancel and delete the autosave record")
		}
		if backend.unlocks != 1 {
			t.Errorf("Expected unlock, got %d", backend.unlocks)
		}
	})

	t.Run("no changes closes without prompt", func(t *testing.T) {
		backend := newArchiveBackend()
		original := seedArticle(backend, "session-1")
		hooks := storage.Hooks{ConfirmClose: func(ctx context.Context) (storage.CloseAction, error) {
			t.Error("Prompt must not fire without unsaved changes")
			return storage.CloseCancel, nil
		}}
		gw := newTestGateway(t, backend, mocks.NewMockAutosaveStore(), hooks)

		closed := false
		if err := gw.CloseAuthoring(context.Background(), original, original, func() { closed = true }); err != nil {
			t.Fatalf("CloseAuthoring failed: %v", err)
		}
		if !closed || backend.unlocks != 1 {
			t.Error("Expected unlock and close")
		}
	})
}

func TestLockUnlock(t *testing.T) {
	backend := newArchiveBackend()
	seedArticle(backend, "")
	gw := newTestGateway(t, backend, mocks.NewMockAutosaveStore(), storage.Hooks{})

	locked, err := gw.Lock(context.Background(), "article-1")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if locked.LockSession != "session-1" {
		t.Errorf("Expected lock attributed to this session, got %q", locked.LockSession)
	}

	unlocked, err := gw.Unlock(context.Background(), "article-1")
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if unlocked.LockSession != "" {
		t.Errorf("Expected lock cleared, got %q", unlocked.LockSession)
	}
}

func TestGetContentProfile(t *testing.T) {
	backend := newArchiveBackend()
	article := seedArticle(backend, "session-1")
	backend.schemas["news"] = &profile.Schema{
		Name: "News",
		Editor: map[string]profile.EditorField{
			"headline": {Order: 1, Section: "header"},
			"body":     {Order: 1, Section: "content"},
		},
	}
	gw := newTestGateway(t, backend, mocks.NewMockAutosaveStore(), storage.Hooks{})

	resolved, err := gw.GetContentProfile(context.Background(), article)
	if err != nil {
		t.Fatalf("GetContentProfile failed: %v", err)
	}
	if resolved.Name != "News" {
		t.Errorf("Expected News profile, got %q", resolved.Name)
	}
	if len(resolved.Header) != 1 || len(resolved.Content) != 1 {
		t.Errorf("Expected 1 header and 1 content field, got %d/%d", len(resolved.Header), len(resolved.Content))
	}
}
