package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/newsroom-authoring-api/internal/autosave"
	"github.com/newsroom-authoring-api/internal/models"
	"github.com/newsroom-authoring-api/internal/patch"
	"github.com/newsroom-authoring-api/internal/profile"
	"github.com/newsroom-authoring-api/internal/storage"
)

// MockAutosaveStore is a mock implementation of autosave.Store. Schedule
// records snapshots synchronously instead of debouncing.
type MockAutosaveStore struct {
	mu        sync.Mutex
	Records   map[string]*models.Article
	Scheduled []*models.Article
	Cancels   int
	Deleted   []string
	GetErr    error
	DeleteErr error
}

func NewMockAutosaveStore() *MockAutosaveStore {
	return &MockAutosaveStore{Records: make(map[string]*models.Article)}
}

func (m *MockAutosaveStore) Get(ctx context.Context, id string) (*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	item, ok := m.Records[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return item, nil
}

func (m *MockAutosaveStore) Schedule(item *models.Article) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Scheduled = append(m.Scheduled, item)
}

func (m *MockAutosaveStore) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cancels++
}

func (m *MockAutosaveStore) Delete(ctx context.Context, item *models.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.Deleted = append(m.Deleted, item.ID)
	delete(m.Records, item.ID)
	return nil
}

// LastScheduled returns the most recently scheduled snapshot, or nil.
func (m *MockAutosaveStore) LastScheduled() *models.Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Scheduled) == 0 {
		return nil
	}
	return m.Scheduled[len(m.Scheduled)-1]
}

// DeletedCount returns how many delete calls were made.
func (m *MockAutosaveStore) DeletedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Deleted)
}

// MockGateway is a mock implementation of storage.Gateway
type MockGateway struct {
	Autosaves *MockAutosaveStore
	Articles  map[string]*models.Article
	Profiles  map[string]*profile.Profile

	GetArticleFunc func(ctx context.Context, id string) (*storage.ArticleWithAutosave, error)
	SaveFunc       func(ctx context.Context, current, original *models.Article) (*models.Article, error)
	CloseFunc      func(ctx context.Context, current, original *models.Article, onClose func()) error

	mu        sync.Mutex
	SaveCalls int
	Unlocked  []string
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		Autosaves: NewMockAutosaveStore(),
		Articles:  make(map[string]*models.Article),
		Profiles:  make(map[string]*profile.Profile),
	}
}

func (m *MockGateway) GetArticle(ctx context.Context, id string) (*storage.ArticleWithAutosave, error) {
	if m.GetArticleFunc != nil {
		return m.GetArticleFunc(ctx, id)
	}
	saved, ok := m.Articles[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	autosaved, _ := m.Autosaves.Records[id]
	return &storage.ArticleWithAutosave{Saved: saved, Autosaved: autosaved}, nil
}

func (m *MockGateway) Lock(ctx context.Context, id string) (*models.Article, error) {
	return m.Articles[id], nil
}

func (m *MockGateway) Unlock(ctx context.Context, id string) (*models.Article, error) {
	m.mu.Lock()
	m.Unlocked = append(m.Unlocked, id)
	m.mu.Unlock()
	return m.Articles[id], nil
}

func (m *MockGateway) SaveArticle(ctx context.Context, current, original *models.Article) (*models.Article, error) {
	m.mu.Lock()
	m.SaveCalls++
	m.mu.Unlock()

	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, current, original)
	}

	// Default server behavior: accept the save, return a fresh snapshot
	// with new bookkeeping.
	next := current.Clone()
	next.Etag = uuid.NewString()
	next.Version = original.Version + 1
	m.Articles[next.ID] = next
	return next, nil
}

func (m *MockGateway) CloseAuthoring(ctx context.Context, current, original *models.Article, onClose func()) error {
	if m.CloseFunc != nil {
		return m.CloseFunc(ctx, current, original, onClose)
	}

	if len(patch.Diff(original, current)) > 0 {
		if _, err := m.SaveArticle(ctx, current, original); err != nil {
			return err
		}
	}
	if _, err := m.Unlock(ctx, original.ID); err != nil {
		return err
	}
	onClose()
	return nil
}

func (m *MockGateway) GetContentProfile(ctx context.Context, article *models.Article) (*profile.Profile, error) {
	if p, ok := m.Profiles[article.Profile]; ok {
		return p, nil
	}
	return &profile.Profile{Name: "default"}, nil
}

func (m *MockGateway) Autosave() autosave.Store {
	return m.Autosaves
}

// MockSchemaResolver is a mock implementation of profile.SchemaResolver
type MockSchemaResolver struct {
	Schemas map[string]*profile.Schema
	Err     error
}

func NewMockSchemaResolver() *MockSchemaResolver {
	return &MockSchemaResolver{Schemas: make(map[string]*profile.Schema)}
}

func (m *MockSchemaResolver) ResolveSchema(ctx context.Context, profileID string) (*profile.Schema, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	schema, ok := m.Schemas[profileID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return schema, nil
}
