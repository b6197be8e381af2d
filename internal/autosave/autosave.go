// Package autosave persists in-progress edits with a debounced write-behind
// scheme so typing never blocks on the network and explicit saves are not
// interfered with.
package autosave

import (
	"context"
	"sync"
	"time"

	"github.com/newsroom-authoring-api/internal/client"
	"github.com/newsroom-authoring-api/internal/models"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long edits are coalesced before an autosave write.
const DefaultDebounce = 3 * time.Second

// Store defines the autosave boundary used by the editing session.
type Store interface {
	// Get fetches the persisted autosave for an article id. Returns
	// models.ErrNotFound when none exists; callers that tolerate absence
	// treat that as a normal outcome.
	Get(ctx context.Context, id string) (*models.Article, error)

	// Schedule arms a delayed write of the given snapshot, replacing any
	// pending write for the same timer. Only the most recent snapshot
	// scheduled within the debounce window is ever persisted.
	Schedule(item *models.Article)

	// Cancel clears any pending timer without writing.
	Cancel()

	// Delete removes the persisted autosave record. Idempotent if none
	// exists.
	Delete(ctx context.Context, item *models.Article) error
}

// httpStore persists autosaves via the archive API.
type httpStore struct {
	api      *client.Client
	debounce time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending *models.Article
}

// NewHTTP creates a Store backed by the archive_autosave endpoint.
func NewHTTP(api *client.Client, debounce time.Duration, log zerolog.Logger) Store {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &httpStore{
		api:      api,
		debounce: debounce,
		log:      log.With().Str("component", "autosave").Logger(),
	}
}

func (s *httpStore) Get(ctx context.Context, id string) (*models.Article, error) {
	var record models.AutosaveRecord
	if err := s.api.Get(ctx, "/v1/archive_autosave/"+id, &record); err != nil {
		return nil, err
	}
	return record.Article, nil
}

func (s *httpStore) Schedule(item *models.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.pending = item
	s.timer = time.AfterFunc(s.debounce, s.flush)
}

func (s *httpStore) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
}

func (s *httpStore) Delete(ctx context.Context, item *models.Article) error {
	return s.api.Delete(ctx, "/v1/archive_autosave/"+item.ID)
}

// flush runs on the debounce timer's goroutine once the window elapses.
func (s *httpStore) flush() {
	s.mu.Lock()
	item := s.pending
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()

	if item == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	record := models.AutosaveRecord{ItemID: item.ID, Article: item, UpdatedAt: time.Now()}
	if err := s.api.Put(ctx, "/v1/archive_autosave/"+item.ID, &record); err != nil {
		// A failed autosave must not disturb editing. The next edit
		// schedules a fresh write.
		s.log.Warn().Err(err).Str("item_id", item.ID).Msg("Autosave write failed")
	}
}
