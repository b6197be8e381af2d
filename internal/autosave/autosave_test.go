package autosave_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/newsroom-authoring-api/internal/autosave"
	"github.com/newsroom-authoring-api/internal/client"
	"github.com/newsroom-authoring-api/internal/models"
)

// autosaveBackend records autosave writes the way the archive API would.
type autosaveBackend struct {
	mu      sync.Mutex
	records map[string]models.AutosaveRecord
	puts    int
}

func newAutosaveBackend() *autosaveBackend {
	return &autosaveBackend{records: make(map[string]models.AutosaveRecord)}
}

func (b *autosaveBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/v1/archive_autosave/")

		b.mu.Lock()
		defer b.mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			record, ok := b.records[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(record)
		case http.MethodPut:
			var record models.AutosaveRecord
			if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			b.records[id] = record
			b.puts++
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			if _, ok := b.records[id]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			delete(b.records, id)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func (b *autosaveBackend) putCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.puts
}

func (b *autosaveBackend) record(id string) (models.AutosaveRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	record, ok := b.records[id]
	return record, ok
}

func newTestStore(t *testing.T, debounce time.Duration) (autosave.Store, *autosaveBackend) {
	t.Helper()
	backend := newAutosaveBackend()
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	api := client.New(server.URL, "session-1", zerolog.Nop())
	return autosave.NewHTTP(api, debounce, zerolog.Nop()), backend
}

func TestSchedule_CoalescesWrites(t *testing.T) {
	store, backend := newTestStore(t, 40*time.Millisecond)

	// Three rapid edits inside one debounce window.
	store.Schedule(&models.Article{ID: "article-1", Headline: "v1"})
	store.Schedule(&models.Article{ID: "article-1", Headline: "v2"})
	store.Schedule(&models.Article{ID: "article-1", Headline: "v3"})

	waitFor(t, func() bool { return backend.putCount() > 0 })

	if got := backend.putCount(); got != 1 {
		t.Errorf("Expected a single coalesced write, got %d", got)
	}
	record, ok := backend.record("article-1")
	if !ok || record.Article.Headline != "v3" {
		t.Errorf("Expected latest snapshot persisted, got %+v", record)
	}
}

func TestSchedule_SeparateWindows(t *testing.T) {
	store, backend := newTestStore(t, 20*time.Millisecond)

	store.Schedule(&models.Article{ID: "article-1", Headline: "v1"})
	waitFor(t, func() bool { return backend.putCount() == 1 })

	store.Schedule(&models.Article{ID: "article-1", Headline: "v2"})
	waitFor(t, func() bool { return backend.putCount() == 2 })
}

func TestCancel_DropsPendingWrite(t *testing.T) {
	store, backend := newTestStore(t, 30*time.Millisecond)

	store.Schedule(&models.Article{ID: "article-1", Headline: "v1"})
	store.Cancel()

	time.Sleep(100 * time.Millisecond)
	if got := backend.putCount(); got != 0 {
		t.Errorf("Expected no write after cancel, got %d", got)
	}
}

func TestGet(t *testing.T) {
	store, backend := newTestStore(t, time.Hour)

	if _, err := store.Get(context.Background(), "article-1"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for missing record, got %v", err)
	}

	store.Schedule(&models.Article{ID: "article-1", Headline: "v1"})
	if _, ok := backend.record("article-1"); ok {
		t.Fatal("Write must not happen before the debounce window elapses")
	}

	// Bypass the timer by writing to the backend directly.
	backend.mu.Lock()
	backend.records["article-1"] = models.AutosaveRecord{
		ItemID:  "article-1",
		Article: &models.Article{ID: "article-1", Headline: "persisted"},
	}
	backend.mu.Unlock()

	item, err := store.Get(context.Background(), "article-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if item.Headline != "persisted" {
		t.Errorf("Expected persisted snapshot, got %q", item.Headline)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	store, backend := newTestStore(t, time.Hour)

	backend.mu.Lock()
	backend.records["article-1"] = models.AutosaveRecord{ItemID: "article-1", Article: &models.Article{ID: "article-1"}}
	backend.mu.Unlock()

	item := &models.Article{ID: "article-1"}
	if err := store.Delete(context.Background(), item); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := backend.record("article-1"); ok {
		t.Error("Expected record removed")
	}

	// Deleting again hits a 404 which the store swallows.
	if err := store.Delete(context.Background(), item); err != nil {
		t.Errorf("Second delete must be a no-op, got %v", err)
	}
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met before deadline")
}
