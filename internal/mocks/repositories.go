package mocks

import (
	"context"
	"sync"

	"github.com/newsroom-authoring-api/internal/models"
	"github.com/newsroom-authoring-api/internal/profile"
)

// MockArticleRepository is a mock implementation of repository.ArticleRepository
type MockArticleRepository struct {
	mu          sync.Mutex
	Articles    map[string]*models.Article
	UpdateError error
}

func NewMockArticleRepository() *MockArticleRepository {
	return &MockArticleRepository{Articles: make(map[string]*models.Article)}
}

func (m *MockArticleRepository) Create(ctx context.Context, article *models.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Articles[article.ID] = article
	return nil
}

func (m *MockArticleRepository) GetByID(ctx context.Context, id string) (*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	article, ok := m.Articles[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return article, nil
}

func (m *MockArticleRepository) Update(ctx context.Context, article *models.Article, ifEtag string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	stored, ok := m.Articles[article.ID]
	if !ok || stored.Etag != ifEtag {
		return false, nil
	}
	m.Articles[article.ID] = article
	return true, nil
}

func (m *MockArticleRepository) Overwrite(ctx context.Context, article *models.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Articles[article.ID] = article
	return nil
}

func (m *MockArticleRepository) SetLock(ctx context.Context, id, userID, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.Articles[id]
	if !ok {
		return false, nil
	}
	if stored.LockSession != "" && stored.LockSession != sessionID {
		return false, nil
	}
	next := stored.Clone()
	next.LockedBy = userID
	next.LockSession = sessionID
	m.Articles[id] = next
	return true, nil
}

func (m *MockArticleRepository) ClearLock(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.Articles[id]; ok {
		next := stored.Clone()
		next.LockedBy = ""
		next.LockSession = ""
		m.Articles[id] = next
	}
	return nil
}

func (m *MockArticleRepository) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.Articles[id]
	return exists, nil
}

func (m *MockArticleRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Articles), nil
}

// MockAutosaveRepository is a mock implementation of repository.AutosaveRepository
type MockAutosaveRepository struct {
	mu      sync.Mutex
	Records map[string]*models.AutosaveRecord
}

func NewMockAutosaveRepository() *MockAutosaveRepository {
	return &MockAutosaveRepository{Records: make(map[string]*models.AutosaveRecord)}
}

func (m *MockAutosaveRepository) Get(ctx context.Context, itemID string) (*models.AutosaveRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.Records[itemID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return record, nil
}

func (m *MockAutosaveRepository) Upsert(ctx context.Context, record *models.AutosaveRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records[record.ItemID] = record
	return nil
}

func (m *MockAutosaveRepository) Delete(ctx context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Records, itemID)
	return nil
}

func (m *MockAutosaveRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Records), nil
}

// MockProfileRepository is a mock implementation of repository.ProfileRepository
type MockProfileRepository struct {
	mu      sync.Mutex
	Schemas map[string]*profile.Schema
}

func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{Schemas: make(map[string]*profile.Schema)}
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id string) (*profile.Schema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	schema, ok := m.Schemas[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return schema, nil
}

func (m *MockProfileRepository) Upsert(ctx context.Context, id string, schema *profile.Schema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Schemas[id] = schema
	return nil
}
